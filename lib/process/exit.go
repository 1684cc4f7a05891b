// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Fatal writes "error: err" to stderr and exits with status 1. Binaries
// call it from main with the error run returned.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// Logger returns a text logger on w, at Debug when verbose. Renderer
// binaries pass stderr so stdout stays reserved for frames.
func Logger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
