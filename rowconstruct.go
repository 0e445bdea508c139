// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

// rowBuilder assembles one row of type T from the column events the Reader pipeline
// fires in header order. Two implementations exist because a NoArgs/Factory/Delegate
// provider has a live row from the first column on, while a parameterized provider
// cannot produce one until every held constructor argument has arrived
// (spec.md §4.F, "Simple" vs "Needs-hold" row construction).
type rowBuilder[T any] interface {
	// column handles the value parsed for the boundIdx'th ColumnBinding. boundIdx
	// indexes into the same Columns[T] slice the builder was constructed from.
	column(ctx *ReadContext, boundIdx int, data []rune) error
	// finish completes the row, checking required-column coverage.
	finish(ctx *ReadContext) (*T, error)
}

func newRowBuilder[T any](provider InstanceProvider[T], cols Columns[T]) rowBuilder[T] {
	if provider.Kind == ProviderWithParameters {
		return &holdBuilder[T]{provider: provider, cols: cols, seen: make([]bool, len(cols))}
	}
	return &simpleBuilder[T]{provider: provider, cols: cols, seen: make([]bool, len(cols))}
}

// simpleBuilder is component F's "Simple" row constructor: the row is obtained once,
// up front, and every column event runs Reset (if any) then Setter directly on it.
type simpleBuilder[T any] struct {
	provider InstanceProvider[T]
	cols     Columns[T]
	row      *T
	seen     []bool
}

func (b *simpleBuilder[T]) ensureRow(ctx *ReadContext) error {
	if b.row != nil {
		return nil
	}
	row, err := b.provider.New(ctx)
	if err != nil {
		return newErr(ErrSetterFailed, ctx.Row, "", "construct row: %w", err)
	}
	b.row = row
	return nil
}

func (b *simpleBuilder[T]) column(ctx *ReadContext, boundIdx int, data []rune) error {
	if err := b.ensureRow(ctx); err != nil {
		return err
	}
	cb := &b.cols[boundIdx]
	ctx.Column = cb.Name
	ctx.Mode = ConvertingColumn
	value, err := cb.parse(ctx, data)
	if err != nil {
		return newErr(ErrParseFailed, ctx.Row, cb.Name, "parse column %q: %w", cb.Name, err)
	}
	if cb.reset != nil {
		if err := cb.reset(ctx, b.row); err != nil {
			return newErr(ErrSetterFailed, ctx.Row, cb.Name, "reset column %q: %w", cb.Name, err)
		}
	}
	if err := cb.apply(ctx, b.row, value); err != nil {
		return newErr(ErrSetterFailed, ctx.Row, cb.Name, "apply column %q: %w", cb.Name, err)
	}
	b.seen[boundIdx] = true
	return nil
}

func (b *simpleBuilder[T]) finish(ctx *ReadContext) (*T, error) {
	if err := b.ensureRow(ctx); err != nil {
		return nil, err
	}
	if err := checkRequired(ctx, b.cols, b.seen); err != nil {
		return nil, err
	}
	return b.row, nil
}

// holdBuilder is component F's "Needs-hold" row constructor: columns bound to a
// constructor parameter are staged into hold slots; columns bound to a regular
// member are deferred (their parsed value is kept, not yet applied) until
// NewFromHold has produced a live row, after which the deferred Reset/Setter pairs
// replay in original column order.
type holdBuilder[T any] struct {
	provider InstanceProvider[T]
	cols     Columns[T]
	seen     []bool

	hold    []interface{}
	holdSet []bool

	deferredIdx   []int
	deferredValue []interface{}
}

func (b *holdBuilder[T]) column(ctx *ReadContext, boundIdx int, data []rune) error {
	cb := &b.cols[boundIdx]
	ctx.Column = cb.Name
	ctx.Mode = ConvertingColumn
	value, err := cb.parse(ctx, data)
	if err != nil {
		return newErr(ErrParseFailed, ctx.Row, cb.Name, "parse column %q: %w", cb.Name, err)
	}
	b.seen[boundIdx] = true
	if cb.holdParam >= 0 {
		if b.hold == nil {
			b.hold = make([]interface{}, b.provider.HoldCount)
			b.holdSet = make([]bool, b.provider.HoldCount)
		}
		b.hold[cb.holdParam] = value
		b.holdSet[cb.holdParam] = true
		return nil
	}
	b.deferredIdx = append(b.deferredIdx, boundIdx)
	b.deferredValue = append(b.deferredValue, value)
	return nil
}

func (b *holdBuilder[T]) finish(ctx *ReadContext) (*T, error) {
	if err := checkRequired(ctx, b.cols, b.seen); err != nil {
		return nil, err
	}
	if b.hold == nil {
		b.hold = make([]interface{}, b.provider.HoldCount)
		b.holdSet = make([]bool, b.provider.HoldCount)
	}
	for i, set := range b.holdSet {
		if !set {
			return nil, newErr(ErrRequiredColumnMissing, ctx.Row, "", "constructor parameter %d never received a value", i)
		}
	}
	ctx.Mode = ConvertingRow
	row, err := b.provider.NewFromHold(ctx, b.hold)
	if err != nil {
		return nil, newErr(ErrSetterFailed, ctx.Row, "", "construct row from held columns: %w", err)
	}
	for i, boundIdx := range b.deferredIdx {
		cb := &b.cols[boundIdx]
		ctx.Column = cb.Name
		if cb.reset != nil {
			if err := cb.reset(ctx, row); err != nil {
				return nil, newErr(ErrSetterFailed, ctx.Row, cb.Name, "reset column %q: %w", cb.Name, err)
			}
		}
		if err := cb.apply(ctx, row, b.deferredValue[i]); err != nil {
			return nil, newErr(ErrSetterFailed, ctx.Row, cb.Name, "apply column %q: %w", cb.Name, err)
		}
	}
	return row, nil
}

func checkRequired[T any](ctx *ReadContext, cols Columns[T], seen []bool) error {
	for i, cb := range cols {
		if cb.IsRequired && !seen[i] {
			return newErr(ErrRequiredColumnMissing, ctx.Row, cb.Name, "required column %q was not present in this record", cb.Name)
		}
	}
	return nil
}
