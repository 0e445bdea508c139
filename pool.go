// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

import "sync"

// CharPool is a pool of rune buffers, the only shared resource in the design (§5,
// §9). It is safe for concurrent Rent/Release. Buffers are bucketed by capacity
// class (next power-of-two) so a pool of mixed-size rentals doesn't thrash.
type CharPool struct {
	maxSize int
	buckets sync.Map // int (capacity class) -> *sync.Pool
}

// NewCharPool returns a CharPool that refuses to grow a rented buffer past maxSize.
// maxSize <= 0 means unbounded.
func NewCharPool(maxSize int) *CharPool {
	return &CharPool{maxSize: maxSize}
}

func (p *CharPool) MaxSize() int { return p.maxSize }

func bucketFor(n int) int {
	b := 64
	for b < n {
		b <<= 1
	}
	return b
}

// Rent returns a []rune with length 0 and capacity >= minSize.
func (p *CharPool) Rent(minSize int) ([]rune, error) {
	if minSize <= 0 {
		minSize = 64
	}
	class := bucketFor(minSize)
	if p.maxSize > 0 && class > p.maxSize {
		return nil, newErr(ErrBufferTooSmall, -1, "", "requested buffer class %d exceeds pool max %d", class, p.maxSize)
	}
	v, _ := p.buckets.LoadOrStore(class, &sync.Pool{New: func() interface{} {
		buf := make([]rune, 0, class)
		return &buf
	}})
	pool := v.(*sync.Pool)
	buf := pool.Get().(*[]rune)
	return (*buf)[:0], nil
}

// Release returns buf to the pool. It must not be used by the caller afterward.
func (p *CharPool) Release(buf []rune) {
	if cap(buf) == 0 {
		return
	}
	// File the buffer under the largest class its capacity fully covers, so Rent's
	// capacity >= minSize guarantee holds; a buffer that grew past its original
	// class (via append) lands in a bigger class than it was rented from. A buffer
	// smaller than the smallest class is dropped.
	class := bucketFor(cap(buf))
	if class > cap(buf) {
		class >>= 1
	}
	if class < 64 {
		return
	}
	v, _ := p.buckets.LoadOrStore(class, &sync.Pool{New: func() interface{} {
		b := make([]rune, 0, class)
		return &b
	}})
	pool := v.(*sync.Pool)
	b := buf[:0]
	pool.Put(&b)
}

var defaultPool = NewCharPool(0)
