// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

import "testing"

type personRow struct {
	Name string
	Age  int
}

func personColumns() Columns[personRow] {
	return Columns[personRow]{
		Column[personRow, string]("name", ParseString, func(ctx *ReadContext, r *personRow, v string) error {
			r.Name = v
			return nil
		}, Required[personRow]()),
		Column[personRow, int]("age", ParseInt[int](0), func(ctx *ReadContext, r *personRow, v int) error {
			r.Age = v
			return nil
		}),
	}
}

func TestMatchHeadersInOrder(t *testing.T) {
	boundIdx, err := matchHeaders([]string{"name", "age"}, personColumns())
	if err != nil {
		t.Fatal(err)
	}
	if len(boundIdx) != 2 || boundIdx[0] != 0 || boundIdx[1] != 1 {
		t.Fatalf("got %v", boundIdx)
	}
}

func TestMatchHeadersReordered(t *testing.T) {
	boundIdx, err := matchHeaders([]string{"age", "name"}, personColumns())
	if err != nil {
		t.Fatal(err)
	}
	if boundIdx[0] != 1 || boundIdx[1] != 0 {
		t.Fatalf("got %v, want [1 0]", boundIdx)
	}
}

func TestMatchHeadersUnknownColumnIsSkipped(t *testing.T) {
	boundIdx, err := matchHeaders([]string{"name", "extra", "age"}, personColumns())
	if err != nil {
		t.Fatal(err)
	}
	if boundIdx[1] != -1 {
		t.Fatalf("unknown header column should bind to -1, got %d", boundIdx[1])
	}
}

func TestMatchHeadersMissingRequiredColumn(t *testing.T) {
	_, err := matchHeaders([]string{"age"}, personColumns())
	if err == nil {
		t.Fatal("expected an error: required column \"name\" absent")
	}
	if _, ok := AsError(err, ErrRequiredColumnMissing); !ok {
		t.Fatalf("expected ErrRequiredColumnMissing, got %v", err)
	}
}

func TestMatchHeadersDuplicateColumnName(t *testing.T) {
	cols := Columns[personRow]{
		Column[personRow, string]("name", ParseString, func(ctx *ReadContext, r *personRow, v string) error { return nil }),
		Column[personRow, string]("name", ParseString, func(ctx *ReadContext, r *personRow, v string) error { return nil }),
	}
	_, err := matchHeaders([]string{"name"}, cols)
	if err == nil {
		t.Fatal("expected an error: duplicate column name in Columns")
	}
}

func TestNoHeaderBindingIsIdentity(t *testing.T) {
	boundIdx := noHeaderBinding(personColumns())
	if len(boundIdx) != 2 || boundIdx[0] != 0 || boundIdx[1] != 1 {
		t.Fatalf("got %v", boundIdx)
	}
}
