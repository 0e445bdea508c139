// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

import (
	"context"
	"strings"
	"testing"
)

func TestNewDynamicReaderDiscoversColumnsFromHeader(t *testing.T) {
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingCRLF).Build()
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewDynamicReader(NewReaderAdapter(strings.NewReader("name,age\r\nAda,30\r\nGrace,85\r\n")), opts)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	rows, err := r.ReadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if got := rows[0].Keys(); len(got) != 2 || got[0] != "name" || got[1] != "age" {
		t.Fatalf("got keys %v", got)
	}
	if v, ok := rows[0].Get("name"); !ok || v != "Ada" {
		t.Fatalf("got (%q,%v)", v, ok)
	}
	if v, ok := rows[1].Get("age"); !ok || v != "85" {
		t.Fatalf("got (%q,%v)", v, ok)
	}
}

func TestNewDynamicReaderPeekDoesNotDropHeaderRowFromRealPass(t *testing.T) {
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingCRLF).Build()
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewDynamicReader(NewReaderAdapter(strings.NewReader("a,b,c\r\n1,2,3\r\n")), opts)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	row, err := r.TryRead(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if row == nil {
		t.Fatal("expected the data row to survive the header-peek replay")
	}
	for _, kv := range []struct{ k, v string }{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		if got, ok := row.Get(kv.k); !ok || got != kv.v {
			t.Fatalf("column %q: got (%q,%v), want %q", kv.k, got, ok, kv.v)
		}
	}
	if next, err := r.TryRead(context.Background()); err != nil || next != nil {
		t.Fatalf("expected clean EOF, got (%v,%v)", next, err)
	}
}

func TestNewDynamicReaderRejectsReadHeaderNever(t *testing.T) {
	opts, err := NewOptionsBuilder().WithValueSeparator(',').WithRowEnding(RowEndingCRLF).WithReadHeader(ReadHeaderNever).Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewDynamicReader(NewReaderAdapter(strings.NewReader("1,2\r\n")), opts); err == nil {
		t.Fatal("expected an error: NewDynamicReader requires a header")
	}
}

func TestDynamicColumnsBuildsOneStringColumnPerName(t *testing.T) {
	cols := DynamicColumns([]string{"x", "y"})
	if len(cols) != 2 || cols[0].Name != "x" || cols[1].Name != "y" {
		t.Fatalf("got %+v", cols)
	}
}
