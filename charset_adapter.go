// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

import (
	"bufio"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// NewCharsetReaderAdapter builds an InputAdapter that decodes bytes in the named
// charset (any name golang.org/x/text/encoding/htmlindex recognizes, e.g.
// "windows-1252", "iso-8859-2", "utf-16le") into the code-point stream the core
// consumes. This is the external bridge spec.md §1's out-of-scope "arbitrary
// encodings" note calls for; the core itself only ever sees runes.
func NewCharsetReaderAdapter(r io.Reader, charset string) (InputAdapter, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, configErr("unknown charset %q: %w", charset, err)
	}
	return NewReaderAdapter(transform.NewReader(r, enc.NewDecoder())), nil
}

// NewCharsetWriterAdapter builds an OutputAdapter that encodes the core's rune
// stream into the named charset.
func NewCharsetWriterAdapter(w io.Writer, charset string) (OutputAdapter, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, configErr("unknown charset %q: %w", charset, err)
	}
	return NewWriterAdapter(transform.NewWriter(w, enc.NewEncoder())), nil
}

// detectBOM sniffs a byte-order mark off r's first bytes and returns the encoding
// it implies (nil, meaning "caller's declared charset stands") when none is found.
func detectBOM(r *bufio.Reader) (encoding.Encoding, error) {
	peek, err := r.Peek(3)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	switch {
	case len(peek) >= 3 && peek[0] == 0xEF && peek[1] == 0xBB && peek[2] == 0xBF:
		r.Discard(3)
		return encoding.Nop, nil // UTF-8 BOM: bytes are already UTF-8, pass them through unchanged
	case len(peek) >= 2 && peek[0] == 0xFF && peek[1] == 0xFE:
		r.Discard(2)
		return htmlindex.Get("utf-16le")
	case len(peek) >= 2 && peek[0] == 0xFE && peek[1] == 0xFF:
		r.Discard(2)
		return htmlindex.Get("utf-16be")
	}
	return nil, nil
}

// NewAutoCharsetReaderAdapter sniffs a leading BOM and decodes accordingly,
// falling back to fallbackCharset (commonly "utf-8") when none is present.
func NewAutoCharsetReaderAdapter(r io.Reader, fallbackCharset string) (InputAdapter, error) {
	br := bufio.NewReader(r)
	enc, err := detectBOM(br)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return NewCharsetReaderAdapter(br, fallbackCharset)
	}
	return NewReaderAdapter(transform.NewReader(br, enc.NewDecoder())), nil
}
