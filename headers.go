// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

// matchHeaders is component E: the first physical record of a read, resolved against
// the caller's Columns[T] by ordinal name equality, producing the per-position
// ColumnBinding index the row builder drives off of.
//
// boundIdx[i] is the index into cols for the header field at CSV position i, or -1
// if that CSV column has no matching binding (and is therefore skipped on read).
func matchHeaders[T any](headerRow []string, cols Columns[T]) (boundIdx []int, err error) {
	byName := make(map[string]int, len(cols))
	for i, cb := range cols {
		if _, dup := byName[cb.Name]; dup {
			return nil, configErr("duplicate column name %q in Columns", cb.Name)
		}
		byName[cb.Name] = i
	}

	boundIdx = make([]int, len(headerRow))
	matched := make([]bool, len(cols))
	for i, h := range headerRow {
		if idx, ok := byName[h]; ok {
			boundIdx[i] = idx
			matched[idx] = true
		} else {
			boundIdx[i] = -1
		}
	}
	for i, cb := range cols {
		if cb.IsRequired && !matched[i] {
			return nil, newErr(ErrRequiredColumnMissing, 0, cb.Name, "required column %q not present in header", cb.Name)
		}
	}
	return boundIdx, nil
}

// noHeaderBinding builds an identity boundIdx slice for a headerless read: CSV
// position i is bound to cols[i], in declaration order, for as many positions as
// there are columns.
func noHeaderBinding[T any](cols Columns[T]) []int {
	boundIdx := make([]int, len(cols))
	for i := range cols {
		boundIdx[i] = i
	}
	return boundIdx
}
