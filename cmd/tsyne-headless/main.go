// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// tsyne-headless is a renderer without a display. Apps spawn it as
// their renderer for tests and CI, or connect to it on a socket.
//
// Usage:
//
//	tsyne-headless [flags]
//
// Without --socket it serves the channel its parent set up: the
// socketpair named by TSYNE_BRIDGE_FD, or stdin and stdout. Logs go to
// stderr; stdout carries only frames.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tsyne-foundation/tsyne/bridge"
	"github.com/tsyne-foundation/tsyne/lib/config"
	"github.com/tsyne-foundation/tsyne/lib/process"
	"github.com/tsyne-foundation/tsyne/lib/version"
	"github.com/tsyne-foundation/tsyne/renderer"
	"github.com/tsyne-foundation/tsyne/renderer/headless"
	"github.com/tsyne-foundation/tsyne/transport"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		socket      string
		tokenFile   string
		encoding    string
		compression string
		verbose     bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("tsyne-headless", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $TSYNE_CONFIG, then built-in defaults)")
	flagSet.StringVar(&socket, "socket", "", "listen on unix:<path> or tcp:<host:port> instead of the inherited channel")
	flagSet.StringVar(&tokenFile, "token-file", "", "with --socket, require connections to prove the token in this file")
	flagSet.StringVar(&encoding, "encoding", "", "frame encoding: json, cbor or msgpack (overrides the config file)")
	flagSet.StringVar(&compression, "compression", "", "frame compression: none, lz4 or zstd (overrides the config file)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log every request at debug level")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("tsyne-headless %s\n", version.Info())
		return nil
	}

	logger := process.Logger(os.Stderr, verbose)

	settings, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if encoding != "" {
		settings.Bridge.Encoding = encoding
	}
	if compression != "" {
		settings.Bridge.Compression = compression
	}
	codec, err := bridge.CodecFor(settings.Bridge)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := renderer.NewServer(renderer.Options{Codec: codec, Logger: logger})
	toolkit := headless.New(server, logger)
	go func() {
		select {
		case <-toolkit.Quit():
			cancel()
		case <-ctx.Done():
		}
	}()

	if socket != "" {
		endpoint, err := transport.ParseEndpoint(socket)
		if err != nil {
			return fmt.Errorf("--socket: %w", err)
		}
		listener, err := transport.Listen(endpoint)
		if err != nil {
			return err
		}
		defer listener.Close()
		if tokenFile == "" {
			if endpoint.Network == transport.NetworkTCP {
				logger.Warn("renderer accepts tcp connections without a token", "socket", endpoint.String())
			}
			return server.ServeListener(ctx, listener)
		}
		token, err := transport.ReadToken(tokenFile)
		if err != nil {
			return fmt.Errorf("--token-file: %w", err)
		}
		return server.ServeListener(ctx, &transport.TokenListener{
			Listener: listener,
			Token:    token,
			Rejected: func(remote net.Addr, err error) {
				logger.Warn("rejected connection", "remote_addr", remote, "error", err)
			},
		})
	}

	conn, err := transport.Inherited()
	if err != nil {
		return err
	}
	return server.Serve(ctx, conn)
}
