// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package main in cesilimport reads one sheet of a legacy .xls or modern .xlsx
// workbook and re-emits it through a cesil.Writer as CSV, the inverse of
// dbcsv's ReadXLSFile/ReadXLSXFile feeding a CSV dump.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/UNO-SOFT/cesil"
	"github.com/UNO-SOFT/zlog/v2"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	verbose zlog.VerboseVar
	logger  = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()
)

func main() {
	if err := Main(); err != nil {
		logger.Error("Main", "error", err)
		os.Exit(1)
	}
}

type fileType int

const (
	typeUnknown fileType = iota
	typeXLS
	typeXLSX
)

// detectFileType sniffs the leading magic bytes: OLE2 for legacy .xls, PKZip
// for .xlsx, matching dbcsv's DetectReaderType.
func detectFileType(path string) (fileType, error) {
	fh, err := os.Open(path)
	if err != nil {
		return typeUnknown, err
	}
	defer fh.Close()
	var b [4]byte
	if _, err := io.ReadFull(fh, b[:]); err != nil {
		return typeUnknown, fmt.Errorf("%s: %w", path, err)
	}
	switch {
	case bytes.Equal(b[:], []byte{0xd0, 0xcf, 0x11, 0xe0}):
		return typeXLS, nil
	case bytes.Equal(b[:], []byte{0x50, 0x4b, 0x03, 0x04}):
		return typeXLSX, nil
	default:
		return typeUnknown, fmt.Errorf("%s: not a recognized .xls/.xlsx file", path)
	}
}

func readXLSX(path string, sheetIndex, skip int) ([][]string, error) {
	xlFile, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer xlFile.Close()
	sheetName := xlFile.GetSheetName(sheetIndex)
	if sheetName == "" {
		return nil, fmt.Errorf("%d: unknown sheet", sheetIndex)
	}
	rows, err := xlFile.Rows(sheetName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][]string
	i := 0
	for rows.Next() {
		i++
		if i <= skip {
			continue
		}
		row, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func readXLS(path, charset string, sheetIndex, skip int) ([][]string, error) {
	wb, err := xls.Open(path, charset)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	sheet := wb.GetSheet(sheetIndex)
	if sheet == nil {
		return nil, fmt.Errorf("this XLS file does not contain sheet no %d", sheetIndex)
	}
	var out [][]string
	for n := 0; n < int(sheet.MaxRow); n++ {
		row := sheet.Row(n)
		if n < skip || row == nil {
			continue
		}
		off := row.FirstCol()
		last := row.LastCol()
		vals := make([]string, last-off)
		for j := off; j < last; j++ {
			vals[j-off] = row.Col(j)
		}
		out = append(out, vals)
	}
	return out, nil
}

// importRow is one re-emitted spreadsheet row, addressed positionally since the
// source sheet's column count is only known once the file is open.
type importRow struct {
	cells []string
}

func importWriteColumns(names []string) cesil.WriteColumns[importRow] {
	cols := make(cesil.WriteColumns[importRow], len(names))
	for i, name := range names {
		i := i
		cols[i] = cesil.WriteColumn[importRow, string](name,
			func(ctx *cesil.WriteContext, row *importRow) (string, error) {
				if i >= len(row.cells) {
					return "", nil
				}
				return row.cells[i], nil
			},
			cesil.FormatString)
	}
	return cols
}

func Main() error {
	flagSheet := flag.Int("sheet", 0, "sheet index (0-based)")
	flagSkip := flag.Int("skip", 0, "number of leading rows to skip")
	flagHeader := flag.Bool("header", true, "treat the first read row as a header record")
	flagCharset := flag.String("charset", "utf-8", "charset, for legacy .xls files")
	flagSep := flag.String("sep", ",", "output value separator")
	flagOut := flag.String("o", "-", "output path (defaults to stdout)")
	flag.Var(&verbose, "v", "verbose logging")

	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), strings.Replace(`Usage of {{.prog}}:
	{{.prog}} [options] <in.xls|in.xlsx>

reads one sheet of a legacy .xls or modern .xlsx workbook and re-emits it as a
cesil dialect CSV.

`, "{{.prog}}", os.Args[0], -1))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("exactly one input file is required")
	}
	path := flag.Arg(0)

	typ, err := detectFileType(path)
	if err != nil {
		return err
	}

	var sheetRows [][]string
	switch typ {
	case typeXLSX:
		sheetRows, err = readXLSX(path, *flagSheet, *flagSkip)
	case typeXLS:
		sheetRows, err = readXLS(path, *flagCharset, *flagSheet, *flagSkip)
	}
	if err != nil {
		return err
	}
	if len(sheetRows) == 0 {
		logger.Info("sheet is empty", "file", path, "sheet", *flagSheet)
		return nil
	}

	var names []string
	if *flagHeader {
		names = sheetRows[0]
		sheetRows = sheetRows[1:]
	} else {
		names = make([]string, len(sheetRows[0]))
		for i := range names {
			names[i] = "col" + strconv.Itoa(i+1)
		}
	}

	fh := os.Stdout
	if *flagOut != "" && *flagOut != "-" {
		if fh, err = os.Create(*flagOut); err != nil {
			return fmt.Errorf("%s: %w", *flagOut, err)
		}
		defer fh.Close()
	}

	opts, err := cesil.NewOptionsBuilder().
		WithValueSeparator([]rune(*flagSep)[0]).
		WithRowEnding(cesil.RowEndingCRLF).
		WithWriteHeader(cesil.WriteHeaderAlways).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}

	w, err := cesil.NewWriter[importRow](cesil.NewWriterAdapter(fh), opts, importWriteColumns(names))
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, cells := range sheetRows {
		if err := w.Write(ctx, &importRow{cells: cells}); err != nil {
			return err
		}
	}
	return w.Dispose()
}
