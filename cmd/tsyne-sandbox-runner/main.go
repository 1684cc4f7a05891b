// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// tsyne-sandbox-runner executes one page script for the isolated
// sandbox backend. The host starts it inside a bubblewrap jail, writes
// a CBOR request to its stdin and reads a CBOR reply from its stdout.
// It is not meant to be run by hand.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tsyne-foundation/tsyne/lib/process"
	"github.com/tsyne-foundation/tsyne/lib/version"
	"github.com/tsyne-foundation/tsyne/sandbox"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		verbose     bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("tsyne-sandbox-runner", pflag.ContinueOnError)
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log script failures to stderr")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("tsyne-sandbox-runner %s\n", version.Info())
		return nil
	}

	if err := sandbox.ApplyRunnerLimits(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return sandbox.Serve(ctx, os.Stdin, os.Stdout, sandbox.ServeOptions{
		Logger: process.Logger(os.Stderr, verbose),
	})
}
