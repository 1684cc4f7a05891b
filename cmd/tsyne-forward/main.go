// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// tsyne-forward relays renderer connections between sockets, for
// example to expose a renderer's unix socket on a TCP port inside a
// container.
//
// Usage:
//
//	tsyne-forward --listen tcp:127.0.0.1:7700 --target unix:/run/tsyne/renderer.sock --token-file /run/tsyne/token
//
// With --token-file every inbound connection must prove the shared token
// before it is relayed; apps name the same file in bridge.token_file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/tsyne-foundation/tsyne/lib/process"
	"github.com/tsyne-foundation/tsyne/lib/version"
	"github.com/tsyne-foundation/tsyne/transport"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		listen          string
		target          string
		dialTimeout     time.Duration
		tokenFile       string
		targetTokenFile string
		verbose         bool
		showVersion     bool
	)
	flagSet := pflag.NewFlagSet("tsyne-forward", pflag.ContinueOnError)
	flagSet.StringVar(&listen, "listen", "", "endpoint to accept on: unix:<path> or tcp:<host:port> (required)")
	flagSet.StringVar(&target, "target", "", "endpoint to relay to: unix:<path> or tcp:<host:port> (required)")
	flagSet.StringVar(&tokenFile, "token-file", "", "require inbound connections to prove the token in this file")
	flagSet.StringVar(&targetTokenFile, "target-token-file", "", "prove the token in this file to the target")
	flagSet.DurationVar(&dialTimeout, "dial-timeout", 5*time.Second, "timeout for each connection to the target")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log every relayed connection")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("tsyne-forward %s\n", version.Info())
		return nil
	}
	if listen == "" || target == "" {
		return errors.New("--listen and --target are required")
	}

	listenEndpoint, err := transport.ParseEndpoint(listen)
	if err != nil {
		return fmt.Errorf("--listen: %w", err)
	}
	targetEndpoint, err := transport.ParseEndpoint(target)
	if err != nil {
		return fmt.Errorf("--target: %w", err)
	}

	forwarder := &transport.Forwarder{
		Listen:      listenEndpoint,
		Target:      targetEndpoint,
		DialTimeout: dialTimeout,
		Logger:      process.Logger(os.Stderr, verbose),
	}
	if tokenFile != "" {
		if forwarder.Token, err = transport.ReadToken(tokenFile); err != nil {
			return fmt.Errorf("--token-file: %w", err)
		}
	}
	if targetTokenFile != "" {
		if forwarder.TargetToken, err = transport.ReadToken(targetTokenFile); err != nil {
			return fmt.Errorf("--target-token-file: %w", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := forwarder.Start(ctx); err != nil {
		return err
	}
	forwarder.Wait()
	return nil
}
