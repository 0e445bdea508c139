// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

// DynamicRow is the untyped row type spec.md §9 (REDESIGN FLAGS) calls for in place
// of the source's reflection-driven dynamic dispatch: an ordered string map, built
// from whatever header the input actually has rather than a compile-time Columns[T].
type DynamicRow struct {
	keys   []string
	values map[string]string
}

// Get returns the value for key and whether it was present.
func (d *DynamicRow) Get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the column names in header order.
func (d *DynamicRow) Keys() []string { return append([]string(nil), d.keys...) }

func (d *DynamicRow) set(key, value string) {
	if d.values == nil {
		d.values = make(map[string]string)
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// DynamicColumns builds a Columns[DynamicRow] bound to the given header names, one
// string column per name, in order. Reader callers typically don't need this
// directly: NewDynamicReader derives it from the input's own header record.
func DynamicColumns(names []string) Columns[DynamicRow] {
	cols := make(Columns[DynamicRow], len(names))
	for i, name := range names {
		n := name // capture
		cols[i] = Column[DynamicRow, string](n, ParseString,
			func(ctx *ReadContext, row *DynamicRow, value string) error {
				row.set(n, value)
				return nil
			})
	}
	return cols
}

// NewDynamicReader builds a Reader[DynamicRow] that reads its header first (Options
// must have ReadHeader != ReadHeaderNever) and derives its Columns[DynamicRow] from
// whatever names that header actually contains, rather than a caller-supplied,
// compile-time column list.
func NewDynamicReader(in InputAdapter, o Options) (*Reader[DynamicRow], error) {
	if o.readHeader == ReadHeaderNever {
		return nil, configErr("NewDynamicReader requires a header to discover column names from")
	}
	peek := &headerPeekAdapter{in: in}
	probe, err := NewReader[DynamicRow](peek, o, NewInstanceProvider(func(ctx *ReadContext) (*DynamicRow, error) {
		return &DynamicRow{}, nil
	}), nil)
	if err != nil {
		return nil, err
	}
	names, err := probe.peekHeaderNames()
	if err != nil {
		return nil, err
	}
	replay := &replayAdapter{prefix: peek.buf, in: in}
	return NewReader[DynamicRow](replay, o, NewInstanceProvider(func(ctx *ReadContext) (*DynamicRow, error) {
		return &DynamicRow{}, nil
	}), DynamicColumns(names))
}

// peekHeaderNames reads the first physical record and returns its fields as the
// header's names, without matching them against any Columns. Whatever it reads
// comes off the underlying input, so the caller must run this Reader over a
// headerPeekAdapter, discard it, and build a fresh Reader over a replayAdapter
// that serves the mirrored runes first.
func (r *Reader[DynamicRow]) peekHeaderNames() ([]string, error) {
	rec, err := r.readPhysical()
	if err != nil {
		return nil, err
	}
	if rec.isEOF {
		return nil, newErr(ErrUnexpectedEnd, 0, "", "input ended before the header record")
	}
	names := make([]string, len(rec.fields))
	for i, f := range rec.fields {
		names[i] = string(f)
	}
	return names, nil
}

// headerPeekAdapter mirrors every rune it reads into a buffer so a second pass can
// replay it, letting NewDynamicReader learn the header's column names without
// consuming the caller's original InputAdapter.
type headerPeekAdapter struct {
	in  InputAdapter
	buf []rune
}

func (h *headerPeekAdapter) ReadInto(dst []rune) (int, error) {
	n, err := h.in.ReadInto(dst)
	if n > 0 {
		h.buf = append(h.buf, dst[:n]...)
	}
	return n, err
}

func (h *headerPeekAdapter) Close() error { return nil }

// replayAdapter serves the runes NewDynamicReader already consumed while probing
// the header, then continues reading from the original adapter.
type replayAdapter struct {
	prefix []rune
	pos    int
	in     InputAdapter
}

func (r *replayAdapter) ReadInto(dst []rune) (int, error) {
	if r.pos < len(r.prefix) {
		n := copy(dst, r.prefix[r.pos:])
		r.pos += n
		return n, nil
	}
	return r.in.ReadInto(dst)
}

func (r *replayAdapter) Close() error { return r.in.Close() }
