// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

// buffer is the pushback-capable input buffer of component C: it reads from an
// InputAdapter into a pool-rented []rune and lets the caller push characters back
// onto the front so the next call to next() re-sees them.
type buffer struct {
	pool *CharPool
	in   InputAdapter

	data     []rune
	pos, end int

	pushback []rune
	pbPos    int

	sizeHint int
	eof      bool
}

func newBuffer(pool *CharPool, in InputAdapter, sizeHint int) *buffer {
	if pool == nil {
		pool = defaultPool
	}
	return &buffer{pool: pool, in: in, sizeHint: sizeHint}
}

// next returns the next rune, consuming any pushback first. ok is false only at a
// clean EOF (no pushback, no data, adapter reports 0/nil).
func (b *buffer) next() (r rune, ok bool, err error) {
	for {
		if b.pbPos < len(b.pushback) {
			r := b.pushback[b.pbPos]
			b.pbPos++
			if b.pbPos == len(b.pushback) {
				b.pushback = b.pushback[:0]
				b.pbPos = 0
			}
			return r, true, nil
		}
		if b.pos < b.end {
			r := b.data[b.pos]
			b.pos++
			return r, true, nil
		}
		if b.eof {
			return 0, false, nil
		}
		if err := b.refill(); err != nil {
			return 0, false, err
		}
	}
}

func (b *buffer) refill() error {
	if cap(b.data) == 0 {
		sz := b.sizeHint
		if sz <= 0 {
			sz = 4096
		}
		var err error
		if b.data, err = b.pool.Rent(sz); err != nil {
			return err
		}
	}
	b.data = b.data[:cap(b.data)]
	n, err := b.in.ReadInto(b.data)
	if err != nil {
		b.data = b.data[:0]
		return err
	}
	if n == 0 {
		b.eof = true
		b.data = b.data[:0]
		b.pos, b.end = 0, 0
		return nil
	}
	b.pos, b.end = 0, n
	return nil
}

// pushBack returns r to the head of the stream so the next next() call re-sees it.
// Pushback depth in this design is always tiny (at most a couple of characters, for
// the CR/LF lookahead and row-ending detection), so a simple prepend is fine.
func (b *buffer) pushBack(r rune) {
	rest := b.pushback[b.pbPos:]
	merged := make([]rune, 0, len(rest)+1)
	merged = append(merged, r)
	merged = append(merged, rest...)
	b.pushback = merged
	b.pbPos = 0
}

// pushBackAll un-reads the runes in rs, most recently returned by next(), in order,
// so they will be re-seen.
func (b *buffer) pushBackAll(rs []rune) {
	for i := len(rs) - 1; i >= 0; i-- {
		b.pushBack(rs[i])
	}
}

func (b *buffer) release() {
	if cap(b.data) > 0 {
		b.pool.Release(b.data)
		b.data = nil
	}
}
