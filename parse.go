// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/constraints"
)

// Ready-made Parser/Formatter pairs for the common scalar column types, generic over
// the target numeric type rather than reflect.Type-switched the way the teacher's
// getColConverter dispatches in write.go.

// ParseString is the identity parser.
func ParseString(ctx *ReadContext, data []rune) (string, error) {
	return string(data), nil
}

// FormatString is the identity formatter.
func FormatString(ctx *WriteContext, v string, buf *StagingBuffer) error {
	buf.WriteString(v)
	return nil
}

// ParseInt builds a Parser for any signed integer type.
func ParseInt[T constraints.Signed](bitSize int) ColumnParser[T] {
	return func(ctx *ReadContext, data []rune) (T, error) {
		n, err := strconv.ParseInt(string(data), 10, bitSize)
		if err != nil {
			return 0, err
		}
		return T(n), nil
	}
}

// FormatInt builds a Formatter for any signed integer type.
func FormatInt[T constraints.Signed]() ColumnFormatter[T] {
	return func(ctx *WriteContext, v T, buf *StagingBuffer) error {
		buf.WriteString(strconv.FormatInt(int64(v), 10))
		return nil
	}
}

// ParseUint builds a Parser for any unsigned integer type.
func ParseUint[T constraints.Unsigned](bitSize int) ColumnParser[T] {
	return func(ctx *ReadContext, data []rune) (T, error) {
		n, err := strconv.ParseUint(string(data), 10, bitSize)
		if err != nil {
			return 0, err
		}
		return T(n), nil
	}
}

// FormatUint builds a Formatter for any unsigned integer type.
func FormatUint[T constraints.Unsigned]() ColumnFormatter[T] {
	return func(ctx *WriteContext, v T, buf *StagingBuffer) error {
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
		return nil
	}
}

// ParseFloat builds a Parser for any floating-point type.
func ParseFloat[T constraints.Float](bitSize int) ColumnParser[T] {
	return func(ctx *ReadContext, data []rune) (T, error) {
		f, err := strconv.ParseFloat(string(data), bitSize)
		if err != nil {
			return 0, err
		}
		return T(f), nil
	}
}

// FormatFloat builds a Formatter for any floating-point type.
func FormatFloat[T constraints.Float](bitSize int) ColumnFormatter[T] {
	return func(ctx *WriteContext, v T, buf *StagingBuffer) error {
		buf.WriteString(strconv.FormatFloat(float64(v), 'f', -1, bitSize))
		return nil
	}
}

// ParseBool parses "true"/"false" (case-insensitive) plus the usual strconv forms.
func ParseBool(ctx *ReadContext, data []rune) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(string(data)))
}

// FormatBool formats a bool as "true"/"false".
func FormatBool(ctx *WriteContext, v bool, buf *StagingBuffer) error {
	buf.WriteString(strconv.FormatBool(v))
	return nil
}

// ParseTime builds a Parser using the given time.Parse layout.
func ParseTime(layout string) ColumnParser[time.Time] {
	return func(ctx *ReadContext, data []rune) (time.Time, error) {
		return time.Parse(layout, string(data))
	}
}

// FormatTime builds a Formatter using the given time.Format layout.
func FormatTime(layout string) ColumnFormatter[time.Time] {
	return func(ctx *WriteContext, v time.Time, buf *StagingBuffer) error {
		buf.WriteString(v.Format(layout))
		return nil
	}
}
