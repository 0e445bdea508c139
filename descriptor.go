// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

// This file is the explicit descriptor-builder surface spec.md §9 calls for in place
// of reflection: one generic function per member, resolved at compile time. No
// runtime reflection is used anywhere in the read/write hot path.

// ColumnParser converts a raw value slice into a V, for row type T's column.
type ColumnParser[V any] func(ctx *ReadContext, data []rune) (V, error)

// ColumnSetter applies a parsed V onto row.
type ColumnSetter[T, V any] func(ctx *ReadContext, row *T, value V) error

// ColumnReset runs before Setter, on an already-existing row.
type ColumnReset[T any] func(ctx *ReadContext, row *T) error

// ColumnBinding is the type-erased, per-column read descriptor cesil actually
// drives. Build one with Column or HeldColumn; do not construct one by hand.
type ColumnBinding[T any] struct {
	Name       string
	IsRequired bool

	parse func(ctx *ReadContext, data []rune) (interface{}, error)
	apply func(ctx *ReadContext, row *T, value interface{}) error
	reset func(ctx *ReadContext, row *T) error

	// holdParam is the constructor-parameter index this column feeds when used with
	// a parameterized InstanceProvider; -1 when it targets a regular member.
	holdParam int
}

// ColumnOpt configures optional ColumnBinding fields.
type ColumnOpt[T any] func(*ColumnBinding[T])

// Required marks a column as mandatory: spec.md §4.F rejects a record that never
// sets it with ErrRequiredColumnMissing.
func Required[T any]() ColumnOpt[T] {
	return func(cb *ColumnBinding[T]) { cb.IsRequired = true }
}

// WithReset attaches a reset hook that runs on an existing row before Setter. It has
// no effect for columns bound to a constructor parameter of a NeedsHold provider,
// since no row exists yet when such a column is parsed.
func WithReset[T any](fn ColumnReset[T]) ColumnOpt[T] {
	return func(cb *ColumnBinding[T]) { cb.reset = func(ctx *ReadContext, row *T) error { return fn(ctx, row) } }
}

// Column builds a column descriptor that sets a regular member of T.
func Column[T, V any](name string, parse ColumnParser[V], set ColumnSetter[T, V], opts ...ColumnOpt[T]) ColumnBinding[T] {
	cb := ColumnBinding[T]{
		Name:      name,
		holdParam: -1,
		parse: func(ctx *ReadContext, data []rune) (interface{}, error) {
			return parse(ctx, data)
		},
		apply: func(ctx *ReadContext, row *T, value interface{}) error {
			return set(ctx, row, value.(V))
		},
	}
	for _, o := range opts {
		o(&cb)
	}
	return cb
}

// HeldColumn builds a column descriptor whose value feeds constructor parameter
// paramIndex of a parameterized InstanceProvider (spec.md §3 "Instance provider",
// §4.F "Needs-hold constructor"). A held column may not carry WithReset: the row
// does not exist yet when it is parsed.
func HeldColumn[T, V any](name string, paramIndex int, parse ColumnParser[V], opts ...ColumnOpt[T]) ColumnBinding[T] {
	cb := ColumnBinding[T]{
		Name:      name,
		holdParam: paramIndex,
		parse: func(ctx *ReadContext, data []rune) (interface{}, error) {
			return parse(ctx, data)
		},
	}
	for _, o := range opts {
		o(&cb)
	}
	cb.reset = nil // a held column has no live row to reset
	return cb
}

// Columns is the ordered set of column descriptors for row type T, matched to CSV
// headers by ordinal name equality (component E).
type Columns[T any] []ColumnBinding[T]

// --- Writer-side descriptors (component H) ---

// EmitDefaultPolicy controls whether a zero Go value is still written.
type EmitDefaultPolicy int

const (
	EmitDefaultAlways EmitDefaultPolicy = iota
	EmitDefaultOmitZero
)

type ColumnGetter[T, V any] func(ctx *WriteContext, row *T) (V, error)
type ColumnFormatter[V any] func(ctx *WriteContext, value V, buf *StagingBuffer) error
type ShouldSerializeFunc[T any] func(ctx *WriteContext, row *T) (bool, error)

// ColumnWriter is the type-erased, per-column write descriptor.
type ColumnWriter[T any] struct {
	Name        string
	EmitDefault EmitDefaultPolicy

	get             func(ctx *WriteContext, row *T) (interface{}, error)
	format          func(ctx *WriteContext, value interface{}, buf *StagingBuffer) error
	shouldSerialize func(ctx *WriteContext, row *T) (bool, error)
	isZero          func(value interface{}) bool
}

type WriteColumnOpt[T any] func(*ColumnWriter[T])

func WithShouldSerialize[T any](fn ShouldSerializeFunc[T]) WriteColumnOpt[T] {
	return func(cw *ColumnWriter[T]) { cw.shouldSerialize = func(ctx *WriteContext, row *T) (bool, error) { return fn(ctx, row) } }
}

func WithEmitDefault[T any](p EmitDefaultPolicy) WriteColumnOpt[T] {
	return func(cw *ColumnWriter[T]) { cw.EmitDefault = p }
}

// WriteColumn builds a write-side column descriptor. V must be comparable for
// EmitDefaultOmitZero to be usable without an explicit WithShouldSerialize.
func WriteColumn[T any, V comparable](name string, get ColumnGetter[T, V], format ColumnFormatter[V], opts ...WriteColumnOpt[T]) ColumnWriter[T] {
	var zero V
	cw := ColumnWriter[T]{
		Name: name,
		get: func(ctx *WriteContext, row *T) (interface{}, error) {
			return get(ctx, row)
		},
		format: func(ctx *WriteContext, value interface{}, buf *StagingBuffer) error {
			return format(ctx, value.(V), buf)
		},
		isZero: func(value interface{}) bool { return value.(V) == zero },
	}
	for _, o := range opts {
		o(&cw)
	}
	return cw
}

// WriteColumns is the ordered set of write descriptors for row type T.
type WriteColumns[T any] []ColumnWriter[T]
