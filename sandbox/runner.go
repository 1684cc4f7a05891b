// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tsyne-foundation/tsyne/lib/clock"
	"github.com/tsyne-foundation/tsyne/lib/codec"
)

// Runner resource caps. Go needs a handful of descriptors and threads
// of its own; the script can open neither files nor processes.
const (
	runnerMaxFiles     = 32
	runnerMaxProcesses = 4096
)

// RunnerRequest is what the host writes to the runner's stdin.
type RunnerRequest struct {
	AppName        string   `cbor:"app_name"`
	Source         string   `cbor:"source"`
	TimeoutMs      int64    `cbor:"timeout_ms"`
	MemoryLimitMB  int      `cbor:"memory_limit_mb"`
	AllowedModules []string `cbor:"allowed_modules"`
}

// RunnerReply is what the runner writes to its stdout.
type RunnerReply struct {
	Exports map[string]any `cbor:"exports,omitempty"`
	Error   *RunnerError   `cbor:"error,omitempty"`
}

// RunnerError carries a typed sandbox error across the process
// boundary.
type RunnerError struct {
	Kind    string `cbor:"kind"`
	Limit   Limit  `cbor:"limit,omitempty"`
	Message string `cbor:"message"`
	Stack   string `cbor:"stack,omitempty"`
}

const (
	runnerErrorConfig   = "config"
	runnerErrorLimit    = "limit"
	runnerErrorScript   = "script"
	runnerErrorInternal = "internal"
)

func runnerErrorFrom(err error) *RunnerError {
	var (
		configError *ConfigError
		limitError  *LimitError
		scriptError *ScriptError
	)
	switch {
	case errors.As(err, &configError):
		return &RunnerError{Kind: runnerErrorConfig, Message: configError.Reason}
	case errors.As(err, &limitError):
		return &RunnerError{Kind: runnerErrorLimit, Limit: limitError.Limit, Message: limitError.Error()}
	case errors.As(err, &scriptError):
		return &RunnerError{Kind: runnerErrorScript, Message: scriptError.Message, Stack: scriptError.Stack}
	}
	return &RunnerError{Kind: runnerErrorInternal, Message: err.Error()}
}

// err rebuilds the host-side error. Limit values come from the host's
// own configuration, not from the runner.
func (e *RunnerError) err(config Config) error {
	switch e.Kind {
	case runnerErrorConfig:
		return &ConfigError{Reason: e.Message}
	case runnerErrorLimit:
		if e.Limit == LimitMemory {
			return &LimitError{Limit: LimitMemory, Value: uint64(config.MemoryLimitMB) << 20}
		}
		return &LimitError{Limit: LimitTimeout, Value: config.Timeout}
	case runnerErrorScript:
		return &ScriptError{Message: e.Message, Stack: e.Stack}
	}
	return fmt.Errorf("isolated runner: %s", e.Message)
}

// ServeOptions configures Serve.
type ServeOptions struct {
	// Modules available to the script. Only data modules are used.
	// Default: DefaultModules.
	Modules Modules

	Clock  clock.Clock
	Logger *slog.Logger
}

// Serve reads one RunnerRequest from r, runs it, and writes one
// RunnerReply to w. Script failures are reported in the reply; the
// returned error is for I/O failures only.
func Serve(ctx context.Context, r io.Reader, w io.Writer, options ServeOptions) error {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sandbox-runner")
	modules := options.Modules
	if modules == nil {
		modules = DefaultModules()
	}
	runClock := options.Clock
	if runClock == nil {
		runClock = clock.Real()
	}

	var request RunnerRequest
	if err := codec.NewDecoder(r).Decode(&request); err != nil {
		return fmt.Errorf("reading request: %w", err)
	}

	engine := engine{
		modules:     modules.dataOnly(),
		allowed:     request.AllowedModules,
		timeout:     time.Duration(request.TimeoutMs) * time.Millisecond,
		memoryLimit: uint64(max(request.MemoryLimitMB, 0)) << 20,
		clock:       runClock,
	}
	var reply RunnerReply
	exports, err := engine.run(ctx, request.AppName, request.Source)
	if err != nil {
		logger.Debug("script failed", "app", request.AppName, "error", err)
		reply.Error = runnerErrorFrom(err)
	} else {
		reply.Exports = exports
	}

	if err := codec.NewEncoder(w).Encode(reply); err != nil {
		return fmt.Errorf("writing reply: %w", err)
	}
	return nil
}

// ApplyRunnerLimits lowers the process's descriptor and process limits.
// Limits already below the caps are left alone.
func ApplyRunnerLimits() error {
	for _, limit := range []struct {
		name     string
		resource int
		value    uint64
	}{
		{"RLIMIT_NOFILE", unix.RLIMIT_NOFILE, runnerMaxFiles},
		{"RLIMIT_NPROC", unix.RLIMIT_NPROC, runnerMaxProcesses},
		{"RLIMIT_CORE", unix.RLIMIT_CORE, 0},
	} {
		var current unix.Rlimit
		if err := unix.Getrlimit(limit.resource, &current); err != nil {
			return fmt.Errorf("reading %s: %w", limit.name, err)
		}
		lowered := unix.Rlimit{Cur: min(current.Cur, limit.value), Max: min(current.Max, limit.value)}
		if lowered == current {
			continue
		}
		if err := unix.Setrlimit(limit.resource, &lowered); err != nil {
			return fmt.Errorf("setting %s: %w", limit.name, err)
		}
	}
	return nil
}
