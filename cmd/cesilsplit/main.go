// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package main in cesilsplit partitions one CSV file into N part files by row
// number, writing the parts concurrently the way paraexp fans a batch of queries
// out across a bounded worker pool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/UNO-SOFT/cesil"
	"github.com/UNO-SOFT/cesil/internal/sigctx"
	"github.com/UNO-SOFT/zlog/v2"
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
	flagSep := flag.String("sep", ",", "value separator")
	flagParts := flag.Int("parts", runtime.GOMAXPROCS(-1), "number of part files to write")
	flagOutDir := flag.String("o", ".", "output directory for the part files")
	flagPrefix := flag.String("prefix", "part-", "part file name prefix")
	flagConcurrency := flag.Int("concurrency", runtime.GOMAXPROCS(-1), "number of parts written concurrently")
	flag.Var(&verbose, "v", "verbose logging")

	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), strings.Replace(`Usage of {{.prog}}:
	{{.prog}} [options] <in.csv

splits stdin into -parts files of roughly equal size, distributing rows round-robin
and writing the parts -concurrency at a time.

`, "{{.prog}}", os.Args[0], -1))
		flag.PrintDefaults()
	}
	flag.Parse()
	if *flagParts < 1 {
		return fmt.Errorf("-parts must be at least 1")
	}

	ctx, cancel := sigctx.Wrap(context.Background())
	defer cancel()

	opts, err := cesil.NewOptionsBuilder().
		WithValueSeparator([]rune(*flagSep)[0]).
		WithRowEnding(cesil.RowEndingDetect).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}

	reader, err := cesil.NewDynamicReader(cesil.NewReaderAdapter(os.Stdin), opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	rows, err := reader.ReadAll(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		logger.Info("nothing to split: input was empty")
		return nil
	}

	shards := make([][]*cesil.DynamicRow, *flagParts)
	for i, row := range rows {
		shard := i % *flagParts
		shards[shard] = append(shards[shard], row)
	}

	writeOpts, err := cesil.NewOptionsBuilder().
		WithValueSeparator([]rune(*flagSep)[0]).
		WithRowEnding(cesil.RowEndingCRLF).
		WithWriteHeader(cesil.WriteHeaderAlways).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}

	names := rows[0].Keys()
	concLimit := make(chan struct{}, *flagConcurrency)
	grp, grpCtx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		i, shard := i, shard
		if len(shard) == 0 {
			continue
		}
		grp.Go(func() error {
			concLimit <- struct{}{}
			defer func() { <-concLimit }()
			return writeShard(grpCtx, *flagOutDir, *flagPrefix, i, names, shard, writeOpts)
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}
	logger.Info("split finished", "rows", len(rows), "parts", *flagParts)
	return nil
}

func writeShard(ctx context.Context, dir, prefix string, idx int, names []string, rows []*cesil.DynamicRow, opts cesil.Options) error {
	path := filepath.Join(dir, fmt.Sprintf("%s%03d.csv", prefix, idx))
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	cols := dynamicWriteColumns(names)
	w, err := cesil.NewWriter[cesil.DynamicRow](cesil.NewWriterAdapter(fh), opts, cols)
	if err != nil {
		fh.Close()
		return err
	}
	if err := w.WriteAll(ctx, rows); err != nil {
		fh.Close()
		return err
	}
	if err := w.Dispose(); err != nil {
		return err
	}
	return fh.Close()
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
