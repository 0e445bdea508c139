// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

// ProviderKind distinguishes the four instance-provider shapes of spec.md §3.
type ProviderKind int

const (
	ProviderNoArgs ProviderKind = iota
	ProviderWithParameters
	ProviderStaticFactory
	ProviderDelegate
)

// InstanceProvider tells a Reader[T] how to obtain a *T. ConstructorNoArgs,
// StaticFactoryMethod, and Delegate all reduce to "produce *T given no arguments" in
// Go (there is no overload-driven distinction the way there is in the source
// language) and share the NoArgs/Factory/Delegate kinds purely for documentation
// parity with spec.md; all three are driven identically by New.
// ConstructorWithParameters is the one kind that changes Row Constructor behavior:
// the row cannot exist until every held column has a value (component F's
// "Needs-hold constructor").
type InstanceProvider[T any] struct {
	Kind ProviderKind

	// New produces a row directly. Required for NoArgs/Factory/Delegate.
	New func(ctx *ReadContext) (*T, error)

	// NewFromHold produces a row from the held constructor-parameter values, in
	// parameter order. Required for ProviderWithParameters.
	NewFromHold func(ctx *ReadContext, hold []interface{}) (*T, error)

	// HoldCount is the number of constructor parameters (and thus hold slots).
	HoldCount int
}

// NewInstanceProvider builds a no-argument provider (covers plain constructors,
// static factory methods, and delegates).
func NewInstanceProvider[T any](new func(ctx *ReadContext) (*T, error)) InstanceProvider[T] {
	return InstanceProvider[T]{Kind: ProviderNoArgs, New: new}
}

// NewFactoryProvider is an alias of NewInstanceProvider kept for readability at call
// sites that model a static factory method rather than a constructor.
func NewFactoryProvider[T any](new func(ctx *ReadContext) (*T, error)) InstanceProvider[T] {
	return InstanceProvider[T]{Kind: ProviderStaticFactory, New: new}
}

// NewDelegateProvider is an alias of NewInstanceProvider for a caller-supplied
// delegate.
func NewDelegateProvider[T any](new func(ctx *ReadContext) (*T, error)) InstanceProvider[T] {
	return InstanceProvider[T]{Kind: ProviderDelegate, New: new}
}

// NewParameterizedInstanceProvider builds a provider backed by a multi-argument
// constructor. holdCount must equal the highest HeldColumn paramIndex + 1 across the
// bound Columns[T]; mismatches are rejected when the Reader is constructed.
func NewParameterizedInstanceProvider[T any](holdCount int, new func(ctx *ReadContext, hold []interface{}) (*T, error)) InstanceProvider[T] {
	return InstanceProvider[T]{Kind: ProviderWithParameters, NewFromHold: new, HoldCount: holdCount}
}
