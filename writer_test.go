// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

import (
	"bytes"
	"context"
	"testing"
)

func personWriteColumns() WriteColumns[personRow] {
	return WriteColumns[personRow]{
		WriteColumn[personRow, string]("name", func(ctx *WriteContext, r *personRow) (string, error) {
			return r.Name, nil
		}, FormatString),
		WriteColumn[personRow, int]("age", func(ctx *WriteContext, r *personRow) (int, error) {
			return r.Age, nil
		}, FormatInt[int]()),
	}
}

func TestWriterBasicRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingCRLF).Build()
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWriter[personRow](NewWriterAdapter(&buf), opts, personWriteColumns())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteAll(context.Background(), []*personRow{{Name: "Ada", Age: 30}, {Name: "Grace", Age: 85}}); err != nil {
		t.Fatal(err)
	}
	if err := w.Dispose(); err != nil {
		t.Fatal(err)
	}
	want := "name,age\r\nAda,30\r\nGrace,85\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriterRejectsRowEndingDetect(t *testing.T) {
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingDetect).Build()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := NewWriter[personRow](NewWriterAdapter(&buf), opts, personWriteColumns()); err == nil {
		t.Fatal("expected an error: RowEndingDetect is not valid for a Writer")
	}
}

func TestWriterEscapesValueContainingSeparator(t *testing.T) {
	var buf bytes.Buffer
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingCRLF).Build()
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWriter[personRow](NewWriterAdapter(&buf), opts, personWriteColumns())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(context.Background(), &personRow{Name: "Ada, Countess", Age: 36}); err != nil {
		t.Fatal(err)
	}
	if err := w.Dispose(); err != nil {
		t.Fatal(err)
	}
	want := "name,age\r\n\"Ada, Countess\",36\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriterDoublesInteriorEscapeCharacter(t *testing.T) {
	var buf bytes.Buffer
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingCRLF).Build()
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWriter[personRow](NewWriterAdapter(&buf), opts, personWriteColumns())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(context.Background(), &personRow{Name: `Ada "Countess" Lovelace`, Age: 36}); err != nil {
		t.Fatal(err)
	}
	if err := w.Dispose(); err != nil {
		t.Fatal(err)
	}
	want := "name,age\r\n\"Ada \"\"Countess\"\" Lovelace\",36\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriterEmitDefaultOmitZero(t *testing.T) {
	var buf bytes.Buffer
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingCRLF).WithWriteHeader(WriteHeaderNever).Build()
	if err != nil {
		t.Fatal(err)
	}
	cols := WriteColumns[personRow]{
		WriteColumn[personRow, string]("name", func(ctx *WriteContext, r *personRow) (string, error) {
			return r.Name, nil
		}, FormatString),
		WriteColumn[personRow, int]("age", func(ctx *WriteContext, r *personRow) (int, error) {
			return r.Age, nil
		}, FormatInt[int](), WithEmitDefault[personRow](EmitDefaultOmitZero)),
	}
	w, err := NewWriter[personRow](NewWriterAdapter(&buf), opts, cols)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(context.Background(), &personRow{Name: "Ada", Age: 0}); err != nil {
		t.Fatal(err)
	}
	if err := w.Dispose(); err != nil {
		t.Fatal(err)
	}
	want := "Ada,\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriterShouldSerializeSkipsColumn(t *testing.T) {
	var buf bytes.Buffer
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingCRLF).WithWriteHeader(WriteHeaderNever).Build()
	if err != nil {
		t.Fatal(err)
	}
	cols := WriteColumns[personRow]{
		WriteColumn[personRow, string]("name", func(ctx *WriteContext, r *personRow) (string, error) {
			return r.Name, nil
		}, FormatString),
		WriteColumn[personRow, int]("age", func(ctx *WriteContext, r *personRow) (int, error) {
			return r.Age, nil
		}, FormatInt[int](), WithShouldSerialize[personRow](func(ctx *WriteContext, r *personRow) (bool, error) {
			return false, nil
		})),
	}
	w, err := NewWriter[personRow](NewWriterAdapter(&buf), opts, cols)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(context.Background(), &personRow{Name: "Ada", Age: 30}); err != nil {
		t.Fatal(err)
	}
	if err := w.Dispose(); err != nil {
		t.Fatal(err)
	}
	want := "Ada,\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriterCommentSplitsOnEmbeddedRowEnding(t *testing.T) {
	var buf bytes.Buffer
	opts, err := NewOptionsBuilder().
		WithValueSeparator(',').
		WithRowEnding(RowEndingCRLF).
		WithCommentCharacter('#').
		WithWriteHeader(WriteHeaderNever).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWriter[personRow](NewWriterAdapter(&buf), opts, personWriteColumns())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteComment(context.Background(), "first line\nsecond line"); err != nil {
		t.Fatal(err)
	}
	if err := w.Dispose(); err != nil {
		t.Fatal(err)
	}
	want := "#first line\r\n#second line\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriterCommentRequiresCommentCharacter(t *testing.T) {
	var buf bytes.Buffer
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingCRLF).Build()
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWriter[personRow](NewWriterAdapter(&buf), opts, personWriteColumns())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteComment(context.Background(), "note"); err == nil {
		t.Fatal("expected an error: no comment character configured")
	}
}

func TestWriterTrailingRowEndingAlways(t *testing.T) {
	var buf bytes.Buffer
	opts, err := NewOptionsBuilder().
		WithValueSeparator(',').
		WithRowEnding(RowEndingCRLF).
		WithWriteHeader(WriteHeaderNever).
		WithWriteTrailingRowEnding(WriteTrailingRowEndingAlways).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWriter[personRow](NewWriterAdapter(&buf), opts, personWriteColumns())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(context.Background(), &personRow{Name: "Ada", Age: 30}); err != nil {
		t.Fatal(err)
	}
	if err := w.Dispose(); err != nil {
		t.Fatal(err)
	}
	want := "Ada,30\r\n\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriterDisposeIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingCRLF).Build()
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWriter[personRow](NewWriterAdapter(&buf), opts, personWriteColumns())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Dispose(); err != nil {
		t.Fatal(err)
	}
	if err := w.Dispose(); err != nil {
		t.Fatalf("second Dispose should be a no-op, got %v", err)
	}
}

func TestWriterPoisonsAfterFailure(t *testing.T) {
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingCRLF).Build()
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWriter[personRow](failingAdapter{}, opts, personWriteColumns())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(context.Background(), &personRow{Name: "Ada", Age: 30}); err == nil {
		t.Fatal("expected the underlying adapter's write failure to surface")
	}
	err = w.Write(context.Background(), &personRow{Name: "Grace", Age: 85})
	if _, ok := AsError(err, ErrPoisoned); !ok {
		t.Fatalf("expected ErrPoisoned on the second Write, got %v", err)
	}
}

type failingAdapter struct{}

func (failingAdapter) Write(data []rune) error { return errWriteFailed }
func (failingAdapter) Close() error            { return nil }

var errWriteFailed = &Error{Kind: ErrUnexpectedEnd}
