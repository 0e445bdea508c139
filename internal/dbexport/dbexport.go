// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package dbexport streams database/sql rows through a cesil.Writer. It replaces
// the teacher's reflect.Type-switched Stringer hierarchy with cesil's own
// generic Column machinery: each database/sql column type is bound, once, to a
// concrete cesil.ColumnWriter[Row] instead of dispatching through an interface on
// every row.
package dbexport

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/UNO-SOFT/cesil"
	"github.com/UNO-SOFT/spreadsheet"
)

// Row is one exported database row: parallel to its source columns, boxed as
// interface{} so a single Columns descriptor set can serve any query's result
// shape discovered at runtime.
type Row struct {
	Values []interface{}
}

// ColumnInfo is what ColumnsFor needs out of *sql.Rows to build a Row exporter;
// it mirrors the teacher's Column type but only carries what cesil's descriptors
// need; reflect.Type is consulted exactly once per column, at setup, to pick a
// formatter, not per row.
type ColumnInfo struct {
	Name string
	Type reflect.Type
}

// ColumnsFor reads the column metadata off rows (must be called before the first
// rows.Next) and returns both the dest slots to Scan into and the
// cesil.WriteColumns[Row] descriptor set driving each column's text form.
func ColumnsFor(rows *sql.Rows) ([]ColumnInfo, []interface{}, cesil.WriteColumns[Row], error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, nil, err
	}
	infos := make([]ColumnInfo, len(types))
	dest := make([]interface{}, len(types))
	cols := make(cesil.WriteColumns[Row], len(types))
	for i, t := range types {
		infos[i] = ColumnInfo{Name: t.Name(), Type: t.ScanType()}
		dest[i] = reflect.New(infos[i].Type).Interface()
		cols[i] = columnFor(i, infos[i])
	}
	return infos, dest, cols, nil
}

var (
	typeOfTime     = reflect.TypeOf(time.Time{})
	typeOfNullTime = reflect.TypeOf(sql.NullTime{})
)

func columnFor(idx int, info ColumnInfo) cesil.ColumnWriter[Row] {
	get := func(ctx *cesil.WriteContext, row *Row) (interface{}, error) {
		return row.Values[idx], nil
	}
	switch info.Type.Kind() {
	case reflect.Float32, reflect.Float64:
		return cesil.WriteColumn[Row, interface{}](info.Name, get, formatReflectFloat)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return cesil.WriteColumn[Row, interface{}](info.Name, get, formatReflectInt)
	}
	switch info.Type {
	case typeOfTime, typeOfNullTime:
		return cesil.WriteColumn[Row, interface{}](info.Name, get, formatReflectTime)
	}
	return cesil.WriteColumn[Row, interface{}](info.Name, get, formatReflectString)
}

func formatReflectString(ctx *cesil.WriteContext, v interface{}, buf *cesil.StagingBuffer) error {
	buf.WriteString(fmt.Sprint(reflect.Indirect(reflect.ValueOf(v)).Interface()))
	return nil
}

func formatReflectInt(ctx *cesil.WriteContext, v interface{}, buf *cesil.StagingBuffer) error {
	rv := reflect.Indirect(reflect.ValueOf(v))
	buf.WriteString(fmt.Sprintf("%d", rv.Int()))
	return nil
}

func formatReflectFloat(ctx *cesil.WriteContext, v interface{}, buf *cesil.StagingBuffer) error {
	rv := reflect.Indirect(reflect.ValueOf(v))
	buf.WriteString(fmt.Sprintf("%g", rv.Float()))
	return nil
}

func formatReflectTime(ctx *cesil.WriteContext, v interface{}, buf *cesil.StagingBuffer) error {
	rv := reflect.Indirect(reflect.ValueOf(v)).Interface()
	var t time.Time
	switch x := rv.(type) {
	case time.Time:
		t = x
	case sql.NullTime:
		if !x.Valid {
			return nil
		}
		t = x.Time
	}
	if !t.IsZero() {
		buf.WriteString(t.Format("2006-01-02T15:04:05"))
	}
	return nil
}

// SheetHeader builds the spreadsheet column header describing infos, for callers
// writing a .xlsx/.ods sheet instead of a cesil stream off the same query.
func SheetHeader(infos []ColumnInfo) []spreadsheet.Column {
	header := make([]spreadsheet.Column, len(infos))
	for i, info := range infos {
		header[i] = spreadsheet.Column{Name: info.Name}
	}
	return header
}

// ExportSheet drains rows into sheet, one spreadsheet row per database row. It
// mirrors Export, but appends indirected Go values straight off dest instead of
// routing them through a cesil.Writer.
func ExportSheet(ctx context.Context, sheet spreadsheet.Sheet, rows *sql.Rows, dest []interface{}) (int, error) {
	n := 0
	vals := make([]interface{}, len(dest))
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := rows.Scan(dest...); err != nil {
			return n, fmt.Errorf("scan: %w", err)
		}
		for i, d := range dest {
			vals[i] = reflect.Indirect(reflect.ValueOf(d)).Interface()
		}
		if err := sheet.AppendRow(vals...); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

// Export drains rows through w, one record per row.
func Export(ctx context.Context, w *cesil.Writer[Row], rows *sql.Rows, dest []interface{}) (int, error) {
	n := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := rows.Scan(dest...); err != nil {
			return n, fmt.Errorf("scan: %w", err)
		}
		vals := make([]interface{}, len(dest))
		copy(vals, dest)
		if err := w.Write(ctx, &Row{Values: vals}); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}
