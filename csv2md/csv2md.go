// Copyright 2024 Tamás Gulácsi. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

// Package main in csv2md renders a CSV file as a GitHub-flavored Markdown table,
// reading it through cesil's header-driven DynamicRow rather than dbcsv's Row.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/UNO-SOFT/cesil"
)

func main() {
	if err := Main(); err != nil {
		log.Fatal(err)
	}
}

func Main() error {
	flagSep := flag.String("sep", ",", "value separator")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fh := os.Stdin
	if fn := flag.Arg(0); fn != "" && fn != "-" {
		var err error
		if fh, err = os.Open(fn); err != nil {
			return err
		}
		defer fh.Close()
	}

	defer os.Stdout.Close()
	bw := bufio.NewWriter(os.Stdout)
	defer bw.Flush()

	opts, err := cesil.NewOptionsBuilder().
		WithValueSeparator([]rune(*flagSep)[0]).
		WithRowEnding(cesil.RowEndingDetect).
		Build()
	if err != nil {
		return err
	}

	reader, err := cesil.NewDynamicReader(cesil.NewReaderAdapter(fh), opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	var buf bytes.Buffer
	var emptyRows []string
	first := true
	for {
		row, err := reader.TryRead(ctx)
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		buf.Reset()
		printRow(&buf, row)
		if bytes.IndexFunc(buf.Bytes(), func(r rune) bool { return !(r == '|' || r == ' ' || r == '-' || r == '\n') }) < 0 {
			// empty row
			emptyRows = append(emptyRows, buf.String())
			continue
		}
		for _, s := range emptyRows {
			bw.WriteString(s)
		}
		emptyRows = emptyRows[:0]
		bw.Write(buf.Bytes())
		if first {
			first = false
			p := buf.Bytes()
			var afterPipe bool
			for i, b := range p {
				if b == '|' || b == '\n' {
					afterPipe = true
				} else if afterPipe {
					p[i] = ' '
					afterPipe = false
				} else if len(p) > i && p[i+1] == '|' { // beforePipe
					p[i] = ' '
				} else {
					p[i] = '-'
				}
			}
			bw.Write(p)
		}
	}
	return bw.Flush()
}

var quote = strings.NewReplacer("|", "&#124;", "\n", "<br/>")

func printRow(w io.Writer, row *cesil.DynamicRow) error {
	for i, k := range row.Keys() {
		if i == 0 {
			w.Write([]byte("|"))
		}
		v, _ := row.Get(k)
		io.WriteString(w, " "+quote.Replace(v))
		w.Write([]byte(" |"))
	}
	_, err := w.Write([]byte("\n"))
	return err
}
