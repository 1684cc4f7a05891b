// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Result is a successful execution.
type Result struct {
	// Exports is module.exports converted to plain data.
	Exports map[string]any

	// Token identifies the app and source that produced Exports.
	Token string

	// RuntimeUsed is the backend that ran the script. It differs from
	// the requested runtime only when AcceptWeaker allowed a downgrade.
	RuntimeUsed Runtime
}

// ExecutorOptions configures NewExecutor.
type ExecutorOptions struct {
	// Modules are the host modules scripts may require, subject to each
	// Config's AllowedModules. Default: DefaultModules.
	Modules Modules

	// Isolated configures the isolated backend.
	Isolated IsolatedOptions

	Logger *slog.Logger
}

// Executor picks a backend for each execution and enforces the
// fail-closed rules.
type Executor struct {
	Fast     Backend
	Isolated Backend

	// Modules is consulted to refuse host modules under isolation.
	Modules Modules

	Logger *slog.Logger
}

// NewExecutor returns an executor with the in-process fast backend and
// a bubblewrap isolated backend.
func NewExecutor(options ExecutorOptions) *Executor {
	modules := options.Modules
	if modules == nil {
		modules = DefaultModules()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	isolated := options.Isolated
	if isolated.Logger == nil {
		isolated.Logger = logger
	}
	return &Executor{
		Fast:     &FastBackend{Modules: modules},
		Isolated: NewIsolatedBackend(isolated),
		Modules:  modules,
		Logger:   logger.With("component", "sandbox"),
	}
}

var defaultExecutor = sync.OnceValue(func() *Executor {
	return NewExecutor(ExecutorOptions{})
})

// Execute runs source with the default executor.
func Execute(ctx context.Context, source, appName string, config Config) (*Result, error) {
	return defaultExecutor().Execute(ctx, source, appName, config)
}

// Execute runs source as appName's page code under config.
//
// Refusals are *ConfigError values returned before the script starts.
// An unavailable isolated runtime is refused unless config.AcceptWeaker
// is set.
func (x *Executor) Execute(ctx context.Context, source, appName string, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	backend, err := x.choose(config)
	if err != nil {
		return nil, err
	}

	exports, err := backend.Run(ctx, Request{AppName: appName, Source: source, Config: config})
	if err != nil {
		x.Logger.Debug("execution failed",
			"app", appName,
			"runtime", backend.Runtime(),
			"error", err,
		)
		return nil, err
	}
	return &Result{
		Exports:     exports,
		Token:       Token(appName, source),
		RuntimeUsed: backend.Runtime(),
	}, nil
}

func (x *Executor) choose(config Config) (Backend, error) {
	if config.Runtime == RuntimeFast {
		return x.Fast, nil
	}

	if x.Isolated == nil {
		return x.downgrade(config, "no isolated backend configured")
	}
	if availability := x.Isolated.Check(); !availability.Available {
		return x.downgrade(config, availability.Reason)
	}
	for _, name := range config.AllowedModules {
		if module, ok := x.Modules[name]; ok && !module.Data {
			return nil, &ConfigError{Reason: fmt.Sprintf("module %q needs host access and cannot run isolated", name)}
		}
	}
	return x.Isolated, nil
}

func (x *Executor) downgrade(config Config, reason string) (Backend, error) {
	if !config.AcceptWeaker {
		return nil, &ConfigError{Reason: "isolated runtime unavailable: " + reason}
	}
	x.Logger.Warn("isolated runtime unavailable, running with the fast runtime",
		"reason", reason,
	)
	return x.Fast, nil
}
