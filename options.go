// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

import (
	"log/slog"
	"sync"
	"unicode"
)

// RowEnding selects the record terminator cesil reads or writes.
type RowEnding int

const (
	RowEndingCR RowEnding = iota
	RowEndingLF
	RowEndingCRLF
	RowEndingDetect
)

// ReadHeader controls whether the first record of a read is treated as a header.
type ReadHeader int

const (
	ReadHeaderAlways ReadHeader = iota
	ReadHeaderNever
	ReadHeaderDetect
)

// WriteHeader controls whether the writer emits a header record.
type WriteHeader int

const (
	WriteHeaderAlways WriteHeader = iota
	WriteHeaderNever
)

// WriteTrailingRowEnding controls whether the writer emits a row ending after the
// final record on Dispose.
type WriteTrailingRowEnding int

const (
	WriteTrailingRowEndingAlways WriteTrailingRowEnding = iota
	WriteTrailingRowEndingNever
)

// DynamicRowDisposal is the dynamic-mode disposal setting. It is stored on Options
// by WithDynamicRowDisposal; no Reader or Writer in this package reads it.
type DynamicRowDisposal int

const (
	DynamicRowDisposalDefault DynamicRowDisposal = iota
)

// WhitespaceTreatment is a bit set of whitespace handling rules.
type WhitespaceTreatment uint8

const (
	WhitespacePreserve           WhitespaceTreatment = 0
	WhitespaceTrimBeforeValues   WhitespaceTreatment = 1 << 0
	WhitespaceTrimAfterValues    WhitespaceTreatment = 1 << 1
	WhitespaceTrimLeadingInValue WhitespaceTreatment = 1 << 2
	WhitespaceTrimTrailingValue  WhitespaceTreatment = 1 << 3
)

func (w WhitespaceTreatment) has(flag WhitespaceTreatment) bool { return w&flag != 0 }

// Options is an immutable, shareable dialect+behavior configuration. Build one with
// NewOptionsBuilder.
type Options struct {
	valueSeparator    rune
	hasEscape         bool
	escapeStart       rune
	hasEscapeEscape   bool
	escapeEscape      rune
	hasComment        bool
	commentChar       rune
	rowEnding         RowEnding
	readHeader        ReadHeader
	writeHeader       WriteHeader
	writeTrailing     WriteTrailingRowEnding
	writeBufferSet    bool
	writeBufferSize   int
	readBufferSize    int
	whitespace        WhitespaceTreatment
	dynamicDisposal   DynamicRowDisposal
	logger            *slog.Logger
}

func (o Options) Logger() *slog.Logger {
	if o.logger == nil {
		return discardLogger
	}
	return o.logger
}

var discardLogger = slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// OptionsBuilder accumulates dialect/behavior settings; call Build to validate and
// freeze them into an Options value.
type OptionsBuilder struct {
	o Options
	// track whether ValueSeparator was ever set, since the zero rune is not a valid
	// "unset" sentinel (NUL is technically settable, if unlikely).
	sepSet bool
}

// NewOptionsBuilder returns a builder pre-seeded with RFC4180-ish defaults: comma
// separator, double-quote escaping, CRLF row ending, header always read/written.
func NewOptionsBuilder() *OptionsBuilder {
	b := &OptionsBuilder{}
	b.WithValueSeparator(',')
	b.WithEscapeStartAndEnd('"')
	b.WithEscapeEscapeCharacter('"')
	b.WithRowEnding(RowEndingCRLF)
	b.WithReadHeader(ReadHeaderAlways)
	b.WithWriteHeader(WriteHeaderAlways)
	b.WithWriteTrailingRowEnding(WriteTrailingRowEndingNever)
	b.o.readBufferSize = 0
	return b
}

func (b *OptionsBuilder) WithValueSeparator(r rune) *OptionsBuilder {
	b.o.valueSeparator = r
	b.sepSet = true
	return b
}

func (b *OptionsBuilder) WithEscapeStartAndEnd(r rune) *OptionsBuilder {
	b.o.hasEscape = true
	b.o.escapeStart = r
	return b
}

func (b *OptionsBuilder) WithoutEscape() *OptionsBuilder {
	b.o.hasEscape = false
	b.o.escapeStart = 0
	b.o.hasEscapeEscape = false
	b.o.escapeEscape = 0
	return b
}

func (b *OptionsBuilder) WithEscapeEscapeCharacter(r rune) *OptionsBuilder {
	b.o.hasEscapeEscape = true
	b.o.escapeEscape = r
	return b
}

func (b *OptionsBuilder) WithCommentCharacter(r rune) *OptionsBuilder {
	b.o.hasComment = true
	b.o.commentChar = r
	return b
}

func (b *OptionsBuilder) WithoutComment() *OptionsBuilder {
	b.o.hasComment = false
	b.o.commentChar = 0
	return b
}

func (b *OptionsBuilder) WithRowEnding(re RowEnding) *OptionsBuilder {
	b.o.rowEnding = re
	return b
}

func (b *OptionsBuilder) WithReadHeader(rh ReadHeader) *OptionsBuilder {
	b.o.readHeader = rh
	return b
}

func (b *OptionsBuilder) WithWriteHeader(wh WriteHeader) *OptionsBuilder {
	b.o.writeHeader = wh
	return b
}

func (b *OptionsBuilder) WithWriteTrailingRowEnding(wt WriteTrailingRowEnding) *OptionsBuilder {
	b.o.writeTrailing = wt
	return b
}

// WithWriteBufferSizeHint sets the write buffer hint; 0 disables write buffering.
func (b *OptionsBuilder) WithWriteBufferSizeHint(n int) *OptionsBuilder {
	b.o.writeBufferSet = true
	b.o.writeBufferSize = n
	return b
}

func (b *OptionsBuilder) WithoutWriteBufferSizeHint() *OptionsBuilder {
	b.o.writeBufferSet = false
	b.o.writeBufferSize = 0
	return b
}

func (b *OptionsBuilder) WithReadBufferSizeHint(n int) *OptionsBuilder {
	b.o.readBufferSize = n
	return b
}

func (b *OptionsBuilder) WithWhitespaceTreatment(w WhitespaceTreatment) *OptionsBuilder {
	b.o.whitespace = w
	return b
}

func (b *OptionsBuilder) WithDynamicRowDisposal(d DynamicRowDisposal) *OptionsBuilder {
	b.o.dynamicDisposal = d
	return b
}

func (b *OptionsBuilder) WithLogger(l *slog.Logger) *OptionsBuilder {
	b.o.logger = l
	return b
}

// Build validates the accumulated settings and returns an immutable Options, or a
// *Error with Kind == ErrConfigInvalid.
func (b *OptionsBuilder) Build() (Options, error) {
	o := b.o
	if !b.sepSet {
		return Options{}, configErr("value separator not set")
	}
	switch o.rowEnding {
	case RowEndingCR, RowEndingLF, RowEndingCRLF, RowEndingDetect:
	default:
		return Options{}, configErr("invalid row ending %d", o.rowEnding)
	}
	switch o.readHeader {
	case ReadHeaderAlways, ReadHeaderNever, ReadHeaderDetect:
	default:
		return Options{}, configErr("invalid read header mode %d", o.readHeader)
	}
	switch o.writeHeader {
	case WriteHeaderAlways, WriteHeaderNever:
	default:
		return Options{}, configErr("invalid write header mode %d", o.writeHeader)
	}
	switch o.writeTrailing {
	case WriteTrailingRowEndingAlways, WriteTrailingRowEndingNever:
	default:
		return Options{}, configErr("invalid write trailing row ending mode %d", o.writeTrailing)
	}
	if o.writeBufferSet && o.writeBufferSize < 0 {
		return Options{}, configErr("write buffer size hint must be non-negative, got %d", o.writeBufferSize)
	}
	if o.readBufferSize < 0 {
		return Options{}, configErr("read buffer size hint must be non-negative, got %d", o.readBufferSize)
	}
	if o.hasEscapeEscape && !o.hasEscape {
		return Options{}, configErr("escape-escape character set without an escape start/end character")
	}

	distinct := map[rune]string{}
	check := func(r rune, name string) error {
		if other, ok := distinct[r]; ok {
			return configErr("%s and %s both use character %q", name, other, r)
		}
		distinct[r] = name
		return nil
	}
	if err := check(o.valueSeparator, "value separator"); err != nil {
		return Options{}, err
	}
	if o.hasEscape {
		if err := check(o.escapeStart, "escape start/end"); err != nil {
			return Options{}, err
		}
	}
	if o.hasComment {
		if err := check(o.commentChar, "comment character"); err != nil {
			return Options{}, err
		}
	}

	if o.whitespace != WhitespacePreserve {
		isWS := func(r rune) bool { return unicode.IsSpace(r) }
		if isWS(o.valueSeparator) {
			return Options{}, configErr("whitespace trimming is configured but the value separator %q is whitespace", o.valueSeparator)
		}
		if o.hasEscape && isWS(o.escapeStart) {
			return Options{}, configErr("whitespace trimming is configured but the escape character %q is whitespace", o.escapeStart)
		}
		if o.hasComment && isWS(o.commentChar) {
			return Options{}, configErr("whitespace trimming is configured but the comment character %q is whitespace", o.commentChar)
		}
	}

	return o, nil
}

// dialectKey identifies the character-level grammar for memoizing the classifier,
// per spec.md §4.I. The state machine is a plain function and needs no cache.
type dialectKey struct {
	valueSeparator  rune
	hasEscape       bool
	escapeStart     rune
	hasEscapeEscape bool
	escapeEscape    rune
	hasComment      bool
	commentChar     rune
	whitespace      WhitespaceTreatment
}

func (o Options) dialectKey() dialectKey {
	return dialectKey{
		valueSeparator:  o.valueSeparator,
		hasEscape:       o.hasEscape,
		escapeStart:     o.escapeStart,
		hasEscapeEscape: o.hasEscapeEscape,
		escapeEscape:    o.escapeEscape,
		hasComment:      o.hasComment,
		commentChar:     o.commentChar,
		whitespace:      o.whitespace,
	}
}

var dialectCache sync.Map // dialectKey -> *classifier

func (o Options) classifier() *classifier {
	key := o.dialectKey()
	if v, ok := dialectCache.Load(key); ok {
		return v.(*classifier)
	}
	c := newClassifier(o)
	actual, _ := dialectCache.LoadOrStore(key, c)
	return actual.(*classifier)
}
