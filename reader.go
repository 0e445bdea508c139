// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

import (
	"context"
	"io"
)

// Reader is the reflection-free streaming CSV reader of spec.md §1/§6 (components
// B-G wired together). Create one with NewReader; it is not safe for concurrent use.
type Reader[T any] struct {
	opts     Options
	cls      *classifier
	dialect  *runtimeDialect
	buf      *buffer
	in       InputAdapter
	provider InstanceProvider[T]
	cols     Columns[T]

	boundIdx     []int // CSV position -> index into cols, or -1
	state        smState
	row          int
	headerDone   bool
	rowEndingSet bool // true once RowEndingDetect has resolved to a concrete value
	poisoned     error

	// pendingComments holds comment records observed while ensureHeader was
	// hunting for the header row, so TryReadWithComment can still surface them
	// in source order instead of ensureHeader swallowing them.
	pendingComments []string
}

// NewReader builds a Reader[T] over in, using o's dialect and provider/cols to
// assemble each row.
func NewReader[T any](in InputAdapter, o Options, provider InstanceProvider[T], cols Columns[T]) (*Reader[T], error) {
	if provider.Kind == ProviderWithParameters && provider.NewFromHold == nil {
		return nil, configErr("parameterized InstanceProvider is missing NewFromHold")
	}
	if provider.Kind != ProviderWithParameters && provider.New == nil {
		return nil, configErr("InstanceProvider is missing New")
	}
	if provider.Kind == ProviderWithParameters {
		maxParam := -1
		for _, cb := range cols {
			if cb.holdParam > maxParam {
				maxParam = cb.holdParam
			}
		}
		if provider.HoldCount != maxParam+1 {
			return nil, configErr("parameterized InstanceProvider has HoldCount %d, but the highest held column parameter index is %d", provider.HoldCount, maxParam)
		}
	}
	r := &Reader[T]{
		opts:     o,
		cls:      o.classifier(),
		dialect:  newRuntimeDialect(o),
		buf:      newBuffer(nil, in, o.readBufferSize),
		in:       in,
		provider: provider,
		cols:     cols,
		state:    stRecordStart,
		row:      0,
	}
	r.rowEndingSet = o.rowEnding != RowEndingDetect
	return r, nil
}

// Close releases the reader's pooled buffer and closes the underlying adapter.
func (r *Reader[T]) Close() error {
	r.buf.release()
	return r.in.Close()
}

// physicalRecord is one raw record off the tokenizer: either a row of fields or a
// comment line.
type physicalRecord struct {
	fields  [][]rune
	comment []rune
	isEOF   bool
}

func (r *Reader[T]) poison(err error) error {
	if r.poisoned == nil {
		r.poisoned = err
	}
	return err
}

// readPhysical drives the state machine (component B) through buffer (component C)
// until it produces one full record, a comment line, or clean EOF. It also resolves
// RowEndingDetect (component D) the first time an unambiguous observation occurs.
func (r *Reader[T]) readPhysical() (physicalRecord, error) {
	if r.poisoned != nil {
		return physicalRecord{}, newErr(ErrPoisoned, r.row, "", "reader is poisoned by a previous error: %w", r.poisoned)
	}

	var fields [][]rune
	var cur []rune
	var isComment bool

	finishValue := func(escaped bool) {
		if !escaped && r.opts.whitespace.has(WhitespaceTrimAfterValues) {
			cur = trimTrailingSpace(cur)
		}
		fields = append(fields, cur)
		cur = nil
	}

	for {
		ch, ok, err := r.buf.next()
		if err != nil {
			return physicalRecord{}, r.poison(newErr(ErrUnexpectedEnd, r.row, "", "read input: %w", err))
		}
		if !ok {
			return r.finishAtEOF(fields, cur, isComment)
		}

		rl := r.cls.classify(ch)

		next, result, consume := advance(r.state, rl, r.dialect)

		if !r.rowEndingSet {
			if re, resolved := detectRowEnding(r.state, rl); resolved {
				r.dialect.rowEnding = re
				r.rowEndingSet = true
			}
		}

		switch result {
		case resSkip:
			if r.state == stRecordStart && next == stInComment {
				isComment = true
			}
		case resAppendChar:
			cur = append(cur, ch)
		case resAppendCRThenChar:
			cur = append(cur, '\r', ch)
		case resFinishedUnescapedValue:
			finishValue(false)
		case resFinishedEscapedValue:
			finishValue(true)
		case resFinishedLastValueUnescapedRecord:
			finishValue(false)
			r.row++
			r.state = next
			if !consume {
				r.buf.pushBack(ch)
			}
			return physicalRecord{fields: fields}, nil
		case resFinishedLastValueEscapedRecord:
			finishValue(true)
			r.row++
			r.state = next
			if !consume {
				r.buf.pushBack(ch)
			}
			return physicalRecord{fields: fields}, nil
		case resFinishedComment:
			r.row++
			r.state = next
			if !consume {
				r.buf.pushBack(ch)
			}
			return physicalRecord{comment: cur}, nil
		default:
			if result.isException() {
				return physicalRecord{}, r.poison(sminException(result, r.row))
			}
		}

		if !consume && result != resFinishedLastValueUnescapedRecord && result != resFinishedLastValueEscapedRecord && result != resFinishedComment {
			r.buf.pushBack(ch)
		}
		r.state = next
	}
}

// finishAtEOF handles input ending mid-record: a file without a trailing row ending
// still yields its last record rather than an error, matching every common CSV
// dialect's leniency here.
func (r *Reader[T]) finishAtEOF(fields [][]rune, cur []rune, isComment bool) (physicalRecord, error) {
	switch r.state {
	case stRecordStart:
		if len(fields) == 0 && len(cur) == 0 {
			return physicalRecord{isEOF: true}, nil
		}
	case stInEscapedValue:
		return physicalRecord{}, r.poison(newErr(ErrUnexpectedEnd, r.row, "", "input ended inside an escaped value"))
	}
	r.state = stRecordStart
	if isComment {
		return physicalRecord{comment: cur}, nil
	}
	fields = append(fields, cur)
	return physicalRecord{fields: fields}, nil
}

func sminException(result advanceResult, row int) *Error {
	switch result {
	case resExceptionUnexpectedCharacterInEscapeSequence:
		return newErr(ErrUnexpectedCharInEscape, row, "", "unexpected character following an escape-end character")
	case resExceptionExpectedEndOfRecordOrValue:
		return newErr(ErrExpectedEndOfRecordOrValue, row, "", "expected a value separator or row ending")
	default:
		return newErr(ErrUnexpectedEnd, row, "", "unexpected end of input")
	}
}

func trimTrailingSpace(rs []rune) []rune {
	end := len(rs)
	for end > 0 && isRuneSpace(rs[end-1]) {
		end--
	}
	return rs[:end]
}

func isRuneSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\v', '\f':
		return true
	default:
		return false
	}
}

// commentText strips exactly one leading space after the comment character, the
// customary "# comment" convention, not all leading whitespace.
func commentText(raw []rune) string {
	if len(raw) > 0 && raw[0] == ' ' {
		return string(raw[1:])
	}
	return string(raw)
}

// popPendingComment removes and returns the oldest comment queued by ensureHeader,
// if any.
func (r *Reader[T]) popPendingComment() (string, bool) {
	if len(r.pendingComments) == 0 {
		return "", false
	}
	c := r.pendingComments[0]
	r.pendingComments = r.pendingComments[1:]
	return c, true
}

// ensureHeader reads and matches the header record per component E, or builds an
// identity binding when headers are not being read.
func (r *Reader[T]) ensureHeader() error {
	if r.headerDone {
		return nil
	}
	r.headerDone = true
	if r.opts.readHeader == ReadHeaderNever {
		r.boundIdx = noHeaderBinding(r.cols)
		return nil
	}
	for {
		rec, err := r.readPhysical()
		if err != nil {
			return err
		}
		if rec.isEOF {
			return r.poison(newErr(ErrUnexpectedEnd, r.row, "", "input ended before the header record"))
		}
		if rec.comment != nil {
			r.pendingComments = append(r.pendingComments, commentText(rec.comment))
			continue
		}
		headerRow := make([]string, len(rec.fields))
		for i, f := range rec.fields {
			headerRow[i] = string(f)
		}
		boundIdx, err := matchHeaders(headerRow, r.cols)
		if err != nil {
			return r.poison(err)
		}
		r.boundIdx = boundIdx
		return nil
	}
}

// TryRead reads the next data record, silently skipping comment records. It returns
// (nil, nil) at clean end of input.
func (r *Reader[T]) TryRead(ctx context.Context) (*T, error) {
	row, _, err := r.tryRead(ctx, nil)
	return row, err
}

// TryReadWithComment behaves like TryRead but surfaces the next comment record (if
// any precede the next data record) instead of skipping it: exactly one of the
// returned row and comment is non-zero, unless both are zero at clean EOF.
func (r *Reader[T]) TryReadWithComment(ctx context.Context) (*T, string, error) {
	return r.tryReadOne(ctx, nil)
}

// TryReadWithReuse behaves like TryRead but reuses reuse as the row instance instead
// of allocating a new one, when the bound InstanceProvider supports it (NoArgs,
// Factory, and Delegate kinds; not ProviderWithParameters, which must construct a
// fresh value once its held arguments are known).
func (r *Reader[T]) TryReadWithReuse(ctx context.Context, reuse *T) (*T, error) {
	row, _, err := r.tryRead(ctx, reuse)
	return row, err
}

func (r *Reader[T]) tryRead(ctx context.Context, reuse *T) (*T, bool, error) {
	for {
		row, comment, err := r.tryReadOne(ctx, reuse)
		if err != nil || row != nil {
			return row, false, err
		}
		if comment == "" && row == nil {
			return nil, false, nil // clean EOF
		}
		// comment != "": loop for the next physical record
	}
}

func (r *Reader[T]) tryReadOne(ctx context.Context, reuse *T) (*T, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", r.poison(newErr(ErrCancelled, r.row, "", "read cancelled: %w", err))
	}
	if c, ok := r.popPendingComment(); ok {
		return nil, c, nil
	}
	headerWasDone := r.headerDone
	if err := r.ensureHeader(); err != nil {
		return nil, "", err
	}
	if !headerWasDone {
		if c, ok := r.popPendingComment(); ok {
			return nil, c, nil
		}
	}
	rec, err := r.readPhysical()
	if err != nil {
		return nil, "", err
	}
	if rec.isEOF {
		return nil, "", nil
	}
	if rec.comment != nil {
		return nil, commentText(rec.comment), nil
	}

	builder := newRowBuilder[T](r.provider, r.cols)
	if reuse != nil {
		if sb, ok := builder.(*simpleBuilder[T]); ok {
			sb.row = reuse
		} else {
			return nil, "", configErr("TryReadWithReuse requires a NoArgs/Factory/Delegate InstanceProvider")
		}
	}

	ctxr := &ReadContext{Mode: ReadingColumn, Row: r.row}
	for pos, data := range rec.fields {
		if pos >= len(r.boundIdx) || r.boundIdx[pos] < 0 {
			continue
		}
		if err := builder.column(ctxr, r.boundIdx[pos], data); err != nil {
			return nil, "", r.poison(err)
		}
	}
	ctxr.Mode = ConvertingRow
	row, err := builder.finish(ctxr)
	if err != nil {
		return nil, "", r.poison(err)
	}
	return row, "", nil
}

// ReadAll reads every remaining data record into a slice, skipping comments.
func (r *Reader[T]) ReadAll(ctx context.Context) ([]*T, error) {
	var out []*T
	for {
		row, err := r.TryRead(ctx)
		if err != nil {
			return out, err
		}
		if row == nil {
			return out, nil
		}
		out = append(out, row)
	}
}

// RowOrError is one element of the channel EnumerateAll produces.
type RowOrError[T any] struct {
	Row *T
	Err error
}

// EnumerateAll is the Go-idiomatic substitute for spec.md's EnumerateAllAsync: it
// drives the Reader on a background goroutine and streams rows (or a single
// terminal error) on the returned channel, honoring ctx cancellation the way the
// source's CancellationToken does. The channel is closed after the row carrying the
// terminal error, or after clean EOF.
func (r *Reader[T]) EnumerateAll(ctx context.Context) <-chan RowOrError[T] {
	out := make(chan RowOrError[T])
	go func() {
		defer close(out)
		for {
			row, err := r.TryRead(ctx)
			if err != nil {
				select {
				case out <- RowOrError[T]{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if row == nil {
				return
			}
			select {
			case out <- RowOrError[T]{Row: row}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

var _ io.Closer = (*Reader[struct{}])(nil)
