// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// NewGzipReaderAdapter wraps r, first decompressing gzip, then decoding UTF-8. The
// returned adapter's Close also closes the gzip reader.
func NewGzipReaderAdapter(r io.Reader) (InputAdapter, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, newErr(ErrUnexpectedEnd, -1, "", "open gzip stream: %w", err)
	}
	inner := NewReaderAdapter(gr)
	return &closeChainAdapter{InputAdapter: inner, extra: gr}, nil
}

// NewGzipWriterAdapter wraps w, UTF-8 encoding then gzip-compressing. Dispose (via
// the Writer it backs) flushes and closes the gzip stream.
func NewGzipWriterAdapter(w io.Writer) OutputAdapter {
	gw := gzip.NewWriter(w)
	return &gzipWriterAdapter{w: gw}
}

type gzipWriterAdapter struct {
	w *gzip.Writer
}

func (a *gzipWriterAdapter) Write(data []rune) error {
	buf := make([]byte, 0, len(data)*3)
	for _, r := range data {
		buf = append(buf, string(r)...)
	}
	_, err := a.w.Write(buf)
	return err
}

func (a *gzipWriterAdapter) Close() error { return a.w.Close() }

// NewZstdReaderAdapter wraps r, first decompressing zstd, then decoding UTF-8.
func NewZstdReaderAdapter(r io.Reader) (InputAdapter, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, newErr(ErrUnexpectedEnd, -1, "", "open zstd stream: %w", err)
	}
	inner := NewReaderAdapter(zr.IOReadCloser())
	return inner, nil
}

// NewZstdWriterAdapter wraps w, UTF-8 encoding then zstd-compressing.
func NewZstdWriterAdapter(w io.Writer) (OutputAdapter, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, newErr(ErrUnexpectedEnd, -1, "", "open zstd writer: %w", err)
	}
	return &zstdWriterAdapter{w: zw}, nil
}

type zstdWriterAdapter struct {
	w *zstd.Encoder
}

func (a *zstdWriterAdapter) Write(data []rune) error {
	buf := make([]byte, 0, len(data)*3)
	for _, r := range data {
		buf = append(buf, string(r)...)
	}
	_, err := a.w.Write(buf)
	return err
}

func (a *zstdWriterAdapter) Close() error { return a.w.Close() }

// closeChainAdapter closes an extra io.Closer (the compression layer) alongside
// the wrapped InputAdapter's own Close.
type closeChainAdapter struct {
	InputAdapter
	extra io.Closer
}

func (c *closeChainAdapter) Close() error {
	err := c.InputAdapter.Close()
	if cerr := c.extra.Close(); err == nil {
		err = cerr
	}
	return err
}
