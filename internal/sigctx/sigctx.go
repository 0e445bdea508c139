// Copyright 2020 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package sigctx cancels a context on SIGINT/SIGTERM, giving the process a grace
// period before forcing it down, shared by every cesil command-line tool.
package sigctx

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Wrap returns a context canceled on SIGINT/SIGTERM. If the process has not
// exited 3 seconds after the signal, it is re-sent to force termination.
func Wrap(ctx context.Context) (context.Context, context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		sig := <-sigCh
		signal.Stop(sigCh)
		cancel()
		go func() {
			time.Sleep(3 * time.Second)
			if p, _ := os.FindProcess(os.Getpid()); p != nil {
				_ = p.Signal(sig)
			}
			time.Sleep(2 * time.Second)
			os.Exit(1)
		}()
	}()
	return ctx, cancel
}
