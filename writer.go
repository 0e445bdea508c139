// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

import "context"

// StagingBuffer accumulates a single formatted cell's characters before the writer
// decides whether it needs escaping (component J) and copies it into the record
// buffer. Formatters (ColumnFormatter[V]) write into it; nothing else does.
type StagingBuffer struct {
	runes []rune
}

func (s *StagingBuffer) WriteString(str string) {
	for _, r := range str {
		s.runes = append(s.runes, r)
	}
}

func (s *StagingBuffer) WriteRune(r rune) {
	s.runes = append(s.runes, r)
}

func (s *StagingBuffer) Reset() { s.runes = s.runes[:0] }

// Writer is the reflection-free streaming CSV writer of spec.md §1/§6 (components
// H and J wired together). Create one with NewWriter; it is not safe for
// concurrent use.
type Writer[T any] struct {
	opts    Options
	scanner *encodeScanner
	out     OutputAdapter
	cols    WriteColumns[T]

	row           int
	headerWritten bool
	disposed      bool
	poisoned      error

	cell StagingBuffer
	line []rune
}

// NewWriter builds a Writer[T] over out, using o's dialect and cols to render each
// row. o.RowEnding must already be a concrete value (RowEndingDetect makes no sense
// on write, since there is nothing to detect from).
func NewWriter[T any](out OutputAdapter, o Options, cols WriteColumns[T]) (*Writer[T], error) {
	if o.rowEnding == RowEndingDetect {
		return nil, configErr("RowEndingDetect is not valid for a Writer; pick a concrete RowEnding")
	}
	return &Writer[T]{
		opts:    o,
		scanner: newEncodeScanner(o),
		out:     out,
		cols:    cols,
	}, nil
}

func (w *Writer[T]) poison(err error) error {
	if w.poisoned == nil {
		w.poisoned = err
	}
	return err
}

func (w *Writer[T]) rowEndingRunes() []rune {
	switch w.opts.rowEnding {
	case RowEndingCR:
		return []rune{'\r'}
	case RowEndingLF:
		return []rune{'\n'}
	default:
		return []rune{'\r', '\n'}
	}
}

// writeEscaped appends v to w.line, wrapping it in the escape character and
// doubling any interior escape characters if either forceEscape is set or
// the encode scanner finds a character that forces it.
func (w *Writer[T]) writeEscaped(v []rune, forceEscape bool) {
	if !w.opts.hasEscape || (!forceEscape && !w.scanner.needsEncode(v)) {
		w.line = append(w.line, v...)
		return
	}
	w.line = append(w.line, w.opts.escapeStart)
	escEscape := w.opts.escapeStart
	if w.opts.hasEscapeEscape {
		escEscape = w.opts.escapeEscape
	}
	for _, r := range v {
		if r == w.opts.escapeStart {
			w.line = append(w.line, escEscape)
		}
		w.line = append(w.line, r)
	}
	w.line = append(w.line, w.opts.escapeStart)
}

func (w *Writer[T]) writeHeaderIfNeeded() error {
	if w.headerWritten || w.opts.writeHeader == WriteHeaderNever {
		w.headerWritten = true
		return nil
	}
	w.headerWritten = true
	w.line = w.line[:0]
	for i, cb := range w.cols {
		if i > 0 {
			w.line = append(w.line, w.opts.valueSeparator)
		}
		w.writeEscaped([]rune(cb.Name), false)
	}
	w.line = append(w.line, w.rowEndingRunes()...)
	return w.out.Write(w.line)
}

// Write renders one row and writes it, preceded by the header on the first call if
// Options requests one.
func (w *Writer[T]) Write(ctx context.Context, row *T) error {
	if w.poisoned != nil {
		return newErr(ErrPoisoned, w.row, "", "writer is poisoned by a previous error: %w", w.poisoned)
	}
	if err := ctx.Err(); err != nil {
		return w.poison(newErr(ErrCancelled, w.row, "", "write cancelled: %w", err))
	}
	if err := w.writeHeaderIfNeeded(); err != nil {
		return w.poison(err)
	}

	wctx := &WriteContext{Mode: DiscoveringCells, Row: w.row}
	w.line = w.line[:0]
	for i, cb := range w.cols {
		wctx.Column = cb.Name
		if cb.shouldSerialize != nil {
			ok, err := cb.shouldSerialize(wctx, row)
			if err != nil {
				return w.poison(newErr(ErrSetterFailed, w.row, cb.Name, "shouldSerialize column %q: %w", cb.Name, err))
			}
			if !ok {
				if i > 0 {
					w.line = append(w.line, w.opts.valueSeparator)
				}
				continue
			}
		}
		value, err := cb.get(wctx, row)
		if err != nil {
			return w.poison(newErr(ErrSetterFailed, w.row, cb.Name, "get column %q: %w", cb.Name, err))
		}
		if cb.EmitDefault == EmitDefaultOmitZero && cb.shouldSerialize == nil && cb.isZero(value) {
			if i > 0 {
				w.line = append(w.line, w.opts.valueSeparator)
			}
			continue
		}
		w.cell.Reset()
		wctx.Mode = WritingColumn
		if err := cb.format(wctx, value, &w.cell); err != nil {
			return w.poison(newErr(ErrSetterFailed, w.row, cb.Name, "format column %q: %w", cb.Name, err))
		}
		if i > 0 {
			w.line = append(w.line, w.opts.valueSeparator)
		}
		w.writeEscaped(w.cell.runes, false)
		wctx.Mode = DiscoveringCells
	}
	w.line = append(w.line, w.rowEndingRunes()...)
	if err := w.out.Write(w.line); err != nil {
		return w.poison(newErr(ErrUnexpectedEnd, w.row, "", "write record: %w", err))
	}
	w.row++
	return nil
}

// WriteAll writes every row in rows.
func (w *Writer[T]) WriteAll(ctx context.Context, rows []*T) error {
	for _, row := range rows {
		if err := w.Write(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// WriteComment writes a standalone comment line. It requires Options to have a
// comment character configured; long comment text containing the row ending is
// split across multiple comment lines the way multicorecsv's writer splits
// multi-line quoted fields, so every physical line stays a well-formed comment.
func (w *Writer[T]) WriteComment(ctx context.Context, text string) error {
	if w.poisoned != nil {
		return newErr(ErrPoisoned, w.row, "", "writer is poisoned by a previous error: %w", w.poisoned)
	}
	if !w.opts.hasComment {
		return w.poison(configErr("WriteComment requires a comment character to be configured"))
	}
	if err := w.writeHeaderIfNeeded(); err != nil {
		return w.poison(err)
	}
	for _, part := range splitLines([]rune(text)) {
		w.line = w.line[:0]
		w.line = append(w.line, w.opts.commentChar)
		w.line = append(w.line, part...)
		w.line = append(w.line, w.rowEndingRunes()...)
		if err := w.out.Write(w.line); err != nil {
			return w.poison(newErr(ErrUnexpectedEnd, w.row, "", "write comment: %w", err))
		}
	}
	w.row++
	return nil
}

func splitLines(text []rune) [][]rune {
	var out [][]rune
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			out = append(out, text[start:i])
			start = i + 1
		case '\r':
			out = append(out, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	out = append(out, text[start:])
	return out
}

// Dispose flushes any Options-driven trailing row ending and closes the underlying
// adapter. It is safe to call more than once.
func (w *Writer[T]) Dispose() error {
	if w.disposed {
		return nil
	}
	w.disposed = true
	if w.opts.writeTrailing == WriteTrailingRowEndingAlways {
		if err := w.out.Write(w.rowEndingRunes()); err != nil {
			return w.out.Close()
		}
	}
	return w.out.Close()
}
