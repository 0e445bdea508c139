// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package main in cesilcat reads a CSV/CSIL stream under one dialect and rewrites
// it under another, optionally changing charset or compression on the way.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/UNO-SOFT/cesil"
	"github.com/UNO-SOFT/cesil/internal/sigctx"
	"github.com/UNO-SOFT/zlog/v2"
	"github.com/google/renameio/v2"
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

// atomicFile adapts a renameio.PendingFile to the io.WriteCloser a cesil
// OutputAdapter wants, so -o's file only ever shows a complete write.
type atomicFile struct {
	pf *renameio.PendingFile
}

func (a *atomicFile) Write(p []byte) (int, error) { return a.pf.Write(p) }
func (a *atomicFile) Close() error                { return a.pf.CloseAtomicallyReplace() }

func Main() error {
	flagSep := flag.String("sep", ",", "input value separator")
	flagOutSep := flag.String("out-sep", "", "output value separator (defaults to -sep)")
	flagRowEnding := flag.String("row-ending", "detect", "input row ending: cr, lf, crlf, or detect")
	flagOutRowEnding := flag.String("out-row-ending", "crlf", "output row ending: cr, lf, or crlf")
	flagInHeader := flag.Bool("header", true, "input has a header record")
	flagOutHeader := flag.Bool("out-header", true, "write a header record")
	flagComment := flag.String("comment", "", "comment-start character, empty disables comments")
	flagInCharset := flag.String("charset", "utf-8", "input charset")
	flagOutCharset := flag.String("out-charset", "utf-8", "output charset")
	flagCompress := flag.String("compress", "", "decompress input with gz/gzip or zst/zstd/zstandard")
	flagOut := flag.String("o", "-", "output path, \"-\" for stdout")
	flag.Var(&verbose, "v", "verbose logging")

	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), strings.Replace(`Usage of {{.prog}}:
	{{.prog}} [options] <in.csv >out.csv

reads a delimited stream under -sep/-row-ending/-charset and rewrites it under
-out-sep/-out-row-ending/-out-charset, auto-detecting the input row ending by
default.

`, "{{.prog}}", os.Args[0], -1))
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, cancel := sigctx.Wrap(context.Background())
	defer cancel()

	outSep := *flagOutSep
	if outSep == "" {
		outSep = *flagSep
	}

	inBuilder := cesil.NewOptionsBuilder().
		WithValueSeparator([]rune(*flagSep)[0]).
		WithRowEnding(parseRowEnding(*flagRowEnding, cesil.RowEndingDetect)).
		WithLogger(logger)
	if *flagInHeader {
		inBuilder.WithReadHeader(cesil.ReadHeaderAlways)
	} else {
		inBuilder.WithReadHeader(cesil.ReadHeaderNever)
	}
	if *flagComment != "" {
		inBuilder.WithCommentCharacter([]rune(*flagComment)[0])
	}
	inOpts, err := inBuilder.Build()
	if err != nil {
		return err
	}

	outBuilder := cesil.NewOptionsBuilder().
		WithValueSeparator([]rune(outSep)[0]).
		WithRowEnding(parseRowEnding(*flagOutRowEnding, cesil.RowEndingCRLF)).
		WithLogger(logger)
	if *flagOutHeader {
		outBuilder.WithWriteHeader(cesil.WriteHeaderAlways)
	} else {
		outBuilder.WithWriteHeader(cesil.WriteHeaderNever)
	}
	outOpts, err := outBuilder.Build()
	if err != nil {
		return err
	}

	var in cesil.InputAdapter
	if *flagCompress != "" {
		var src cesil.InputAdapter
		switch strings.ToLower(*flagCompress) {
		case "gz", "gzip":
			src, err = cesil.NewGzipReaderAdapter(os.Stdin)
		case "zst", "zstd", "zstandard":
			src, err = cesil.NewZstdReaderAdapter(os.Stdin)
		default:
			err = fmt.Errorf("unknown compression %q", *flagCompress)
		}
		if err != nil {
			return err
		}
		in = src
	} else if in, err = cesil.NewCharsetReaderAdapter(os.Stdin, *flagInCharset); err != nil {
		return err
	}

	var dest io.Writer = os.Stdout
	if *flagOut != "" && *flagOut != "-" {
		pf, err := renameio.NewPendingFile(*flagOut)
		if err != nil {
			return err
		}
		defer pf.Cleanup()
		dest = &atomicFile{pf: pf}
	}
	out, err := cesil.NewCharsetWriterAdapter(dest, *flagOutCharset)
	if err != nil {
		return err
	}

	reader, err := cesil.NewDynamicReader(in, inOpts)
	if err != nil {
		return err
	}
	defer reader.Close()

	var writer *cesil.Writer[cesil.DynamicRow]
	rows, wrErr := reader.ReadAll(ctx)
	if wrErr != nil {
		return wrErr
	}
	if len(rows) == 0 {
		return nil
	}
	writer, err = cesil.NewWriter[cesil.DynamicRow](out, outOpts, dynamicWriteColumns(rows[0].Keys()))
	if err != nil {
		return err
	}
	if err := writer.WriteAll(ctx, rows); err != nil {
		return err
	}
	return writer.Dispose()
}

func dynamicWriteColumns(names []string) cesil.WriteColumns[cesil.DynamicRow] {
	cols := make(cesil.WriteColumns[cesil.DynamicRow], len(names))
	for i, name := range names {
		n := name
		cols[i] = cesil.WriteColumn[cesil.DynamicRow, string](n,
			func(ctx *cesil.WriteContext, row *cesil.DynamicRow) (string, error) {
				v, _ := row.Get(n)
				return v, nil
			},
			cesil.FormatString)
	}
	return cols
}

func parseRowEnding(s string, def cesil.RowEnding) cesil.RowEnding {
	switch strings.ToLower(s) {
	case "cr":
		return cesil.RowEndingCR
	case "lf":
		return cesil.RowEndingLF
	case "crlf":
		return cesil.RowEndingCRLF
	case "detect":
		return cesil.RowEndingDetect
	default:
		return def
	}
}
