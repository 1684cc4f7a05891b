// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/tsyne-foundation/tsyne/lib/clock"
	"github.com/tsyne-foundation/tsyne/lib/codec"
)

// runnerGrace is how long past the script timeout the host waits before
// killing the runner itself.
const runnerGrace = 2 * time.Second

// Request is one script execution handed to a backend.
type Request struct {
	AppName string
	Source  string
	Config  Config
}

// Backend runs scripts with a particular isolation guarantee.
type Backend interface {
	Runtime() Runtime

	// Check reports whether Run can work on this system. It may be
	// expensive on first call.
	Check() Availability

	// Run executes the script and returns its converted exports.
	Run(ctx context.Context, request Request) (map[string]any, error)
}

// FastBackend runs scripts in-process. It is always available. Its
// timeout is cooperative and it does not bound memory.
type FastBackend struct {
	Modules Modules
	Clock   clock.Clock
}

func (b *FastBackend) Runtime() Runtime    { return RuntimeFast }
func (b *FastBackend) Check() Availability { return available() }

func (b *FastBackend) Run(ctx context.Context, request Request) (map[string]any, error) {
	engine := engine{
		modules: b.Modules,
		allowed: request.Config.AllowedModules,
		timeout: request.Config.Timeout,
		clock:   b.Clock,
	}
	if engine.clock == nil {
		engine.clock = clock.Real()
	}
	return engine.run(ctx, request.AppName, request.Source)
}

// IsolatedOptions configures an IsolatedBackend.
type IsolatedOptions struct {
	// RunnerPath is the tsyne-sandbox-runner binary: a path, a name
	// looked up on PATH, or empty for FindRunner.
	RunnerPath string

	// BwrapPath is the bubblewrap binary. Empty means BwrapPath().
	BwrapPath string

	Logger *slog.Logger
}

// IsolatedBackend runs each script in a fresh tsyne-sandbox-runner
// process inside a bubblewrap jail.
type IsolatedBackend struct {
	options IsolatedOptions
	logger  *slog.Logger

	checkOnce    sync.Once
	availability Availability
	bwrapPath    string
	runnerPath   string
}

// NewIsolatedBackend creates a backend. Nothing is checked until Check
// or Run.
func NewIsolatedBackend(options IsolatedOptions) *IsolatedBackend {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IsolatedBackend{
		options: options,
		logger:  logger.With("component", "sandbox", "runtime", RuntimeIsolated),
	}
}

func (b *IsolatedBackend) Runtime() Runtime { return RuntimeIsolated }

// Check checks bubblewrap, user namespaces and the runner once and
// caches the answer.
func (b *IsolatedBackend) Check() Availability {
	b.checkOnce.Do(func() {
		b.bwrapPath = b.options.BwrapPath
		if b.bwrapPath == "" {
			b.bwrapPath, _ = BwrapPath()
		}
		b.runnerPath, _ = resolveRunner(b.options.RunnerPath)
		b.availability = checkIsolation(b.bwrapPath, b.runnerPath)
		if !b.availability.Available {
			b.logger.Debug("isolated runtime unavailable", "reason", b.availability.Reason)
		}
	})
	return b.availability
}

func (b *IsolatedBackend) Run(ctx context.Context, request Request) (map[string]any, error) {
	if availability := b.Check(); !availability.Available {
		return nil, &ConfigError{Reason: "isolated runtime unavailable: " + availability.Reason}
	}

	args, err := NewBwrapBuilder().Build(&BwrapOptions{RunnerPath: b.runnerPath})
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	payload, err := codec.Marshal(RunnerRequest{
		AppName:        request.AppName,
		Source:         request.Source,
		TimeoutMs:      request.Config.Timeout.Milliseconds(),
		MemoryLimitMB:  request.Config.MemoryLimitMB,
		AllowedModules: request.Config.AllowedModules,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding runner request: %w", err)
	}

	runContext := ctx
	if request.Config.Timeout > 0 {
		var cancel context.CancelFunc
		runContext, cancel = context.WithTimeout(ctx, request.Config.Timeout+runnerGrace)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runContext, b.bwrapPath, args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	b.logger.Debug("starting runner", "app", request.AppName, "command", quoteArgs(cmd.Args))
	runErr := cmd.Run()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errors.Is(runContext.Err(), context.DeadlineExceeded) {
		return nil, &LimitError{Limit: LimitTimeout, Value: request.Config.Timeout}
	}

	var reply RunnerReply
	if err := codec.Unmarshal(stdout.Bytes(), &reply); err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("isolated runner failed: %w: %s", runErr, lastLine(stderr.String()))
		}
		return nil, fmt.Errorf("decoding runner reply: %w", err)
	}
	if reply.Error != nil {
		return nil, reply.Error.err(request.Config)
	}
	if runErr != nil {
		return nil, fmt.Errorf("isolated runner failed after replying: %w", runErr)
	}
	return restoreExports(reply.Exports).(map[string]any), nil
}

func lastLine(text string) string {
	text = strings.TrimSpace(text)
	if index := strings.LastIndexByte(text, '\n'); index >= 0 {
		return text[index+1:]
	}
	return text
}
