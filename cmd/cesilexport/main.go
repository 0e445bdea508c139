// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package main in cesilexport dumps a database query's result set as a cesil
// stream: connect, query, and stream rows through a cesil.Writer instead of the
// reflect.Type-switched Stringer hierarchy dbcsv's csvdump used.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/UNO-SOFT/cesil"
	"github.com/UNO-SOFT/cesil/internal/dbexport"
	"github.com/UNO-SOFT/cesil/internal/sigctx"
	"github.com/UNO-SOFT/spreadsheet"
	"github.com/UNO-SOFT/spreadsheet/ods"
	"github.com/UNO-SOFT/spreadsheet/xlsx"
	"github.com/UNO-SOFT/zlog/v2"
	"github.com/godror/godror"
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

func Main() error {
	flagConnect := flag.String("connect", os.Getenv("DB_ID"), "user/passw@sid to connect to")
	flagSep := flag.String("sep", ",", "value separator")
	flagHeader := flag.Bool("header", true, "write a header record")
	flagOut := flag.String("o", "-", "output (defaults to stdout); .xlsx/.ods writes a spreadsheet instead of CSV")
	flagSheet := flag.String("sheet", "Sheet1", "sheet name, for -o ending in .xlsx/.ods")
	flagTimeout := flag.Duration("timeout", 15*time.Minute, "timeout")
	flag.Var(&verbose, "v", "verbose logging")

	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), strings.Replace(`Usage of {{.prog}}:
	{{.prog}} [options] 'SELECT * FROM T_able WHERE F_ield = 1'

executes the query and streams the result set as a cesil dialect CSV.

`, "{{.prog}}", os.Args[0], -1))
		flag.PrintDefaults()
	}
	flag.Parse()
	if *flagConnect == "" {
		*flagConnect = os.Getenv("BRUNO_ID")
	}
	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("a query is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()
	ctx, cancel = sigctx.Wrap(ctx)
	defer cancel()

	db, err := sql.Open("godror", *flagConnect)
	if err != nil {
		return fmt.Errorf("%s: %w", *flagConnect, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(2)

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("beginTx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, flag.Arg(0), godror.FetchRowCount(1024))
	if err != nil {
		return fmt.Errorf("%s: %w", flag.Arg(0), err)
	}
	defer rows.Close()

	infos, dest, cols, err := dbexport.ColumnsFor(rows)
	if err != nil {
		return err
	}

	if strings.HasSuffix(*flagOut, ".xlsx") || strings.HasSuffix(*flagOut, ".ods") {
		return exportSheet(ctx, *flagOut, *flagSheet, *flagHeader, infos, rows, dest)
	}

	fh := os.Stdout
	if *flagOut != "" && *flagOut != "-" {
		if fh, err = os.Create(*flagOut); err != nil {
			return fmt.Errorf("%s: %w", *flagOut, err)
		}
		defer fh.Close()
	}

	writeHeader := cesil.WriteHeaderNever
	if *flagHeader {
		writeHeader = cesil.WriteHeaderAlways
	}
	opts, err := cesil.NewOptionsBuilder().
		WithValueSeparator([]rune(*flagSep)[0]).
		WithRowEnding(cesil.RowEndingCRLF).
		WithWriteHeader(writeHeader).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}

	w, err := cesil.NewWriter[dbexport.Row](cesil.NewWriterAdapter(fh), opts, cols)
	if err != nil {
		return err
	}

	n, err := dbexport.Export(ctx, w, rows, dest)
	logger.Info("export finished", "rows", n, "error", err)
	if err != nil {
		return err
	}
	return w.Dispose()
}

// exportSheet drains rows into a .xlsx/.ods sheet instead of a cesil CSV stream,
// the way the teacher's csvdump switched to spreadsheet.Writer for -sheets.
func exportSheet(ctx context.Context, path, sheetName string, withHeader bool, infos []dbexport.ColumnInfo, rows *sql.Rows, dest []interface{}) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer fh.Close()

	var w spreadsheet.Writer
	if strings.HasSuffix(path, ".xlsx") {
		w = xlsx.NewWriter(fh)
	} else {
		if w, err = ods.NewWriter(fh); err != nil {
			return err
		}
	}
	defer w.Close()

	var header []spreadsheet.Column
	if withHeader {
		header = dbexport.SheetHeader(infos)
	} else {
		header = make([]spreadsheet.Column, len(infos))
	}
	sheet, err := w.NewSheet(sheetName, header)
	if err != nil {
		return err
	}

	n, err := dbexport.ExportSheet(ctx, sheet, rows, dest)
	if closeErr := sheet.Close(); err == nil {
		err = closeErr
	}
	logger.Info("export finished", "rows", n, "error", err)
	return err
}
