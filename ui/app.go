// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/tsyne-foundation/tsyne/bridge"
	"github.com/tsyne-foundation/tsyne/lib/buildstack"
	"github.com/tsyne-foundation/tsyne/lib/ident"
	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/transport"
)

// Options configures an App.
type Options struct {
	// Namespace prefixes every id the app allocates. Apps that share a
	// renderer need distinct namespaces.
	Namespace string

	// Bridge configures the dispatcher. A nil Registry is replaced by
	// one drawing ids from the app's allocator.
	Bridge bridge.Options

	Logger *slog.Logger
}

// App is one application talking to one renderer.
type App struct {
	ids        *ident.Allocator
	registry   *bridge.Registry
	dispatcher *bridge.Dispatcher
	logger     *slog.Logger

	// buildMutex serializes build passes; stack and the factories'
	// bookkeeping belong to the pass holding it.
	buildMutex sync.Mutex
	stack      buildstack.Stack
	pass       atomic.Pointer[pass]

	mutex sync.Mutex
	nodes map[string]*node
	order []string
}

// New returns an app whose dispatcher owns conn. Call Start before
// building.
func New(conn transport.Conn, options Options) *App {
	ids := ident.New(options.Namespace)
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bridgeOptions := options.Bridge
	if bridgeOptions.Registry == nil {
		bridgeOptions.Registry = bridge.NewRegistry(ids)
	}
	if bridgeOptions.Logger == nil {
		bridgeOptions.Logger = logger
	}
	if options.Namespace != "" {
		logger = logger.With("app", options.Namespace)
	}
	return &App{
		ids:        ids,
		registry:   bridgeOptions.Registry,
		dispatcher: bridge.New(conn, bridgeOptions),
		logger:     logger.With("component", "ui"),
		nodes:      make(map[string]*node),
	}
}

// Start starts the dispatcher.
func (a *App) Start(ctx context.Context) { a.dispatcher.Start(ctx) }

// WaitReady blocks until the renderer reports ready.
func (a *App) WaitReady(ctx context.Context) (protocol.ReadyResult, error) {
	return a.dispatcher.WaitReady(ctx)
}

// Close closes the channel. Pending requests fail.
func (a *App) Close() error { return a.dispatcher.Close() }

// Wait blocks until the dispatcher's goroutines have exited.
func (a *App) Wait() { a.dispatcher.Wait() }

// Quit asks the renderer to stop.
func (a *App) Quit(ctx context.Context) error {
	return a.dispatcher.Request(ctx, protocol.Quit{}, nil)
}

func (a *App) Dispatcher() *bridge.Dispatcher { return a.dispatcher }
func (a *App) Registry() *bridge.Registry     { return a.registry }
func (a *App) IDs() *ident.Allocator          { return a.ids }

// pass is one Build in progress.
type pass struct {
	ctx context.Context

	mutex sync.Mutex
	calls []*bridge.Call
	err   error
}

func (p *pass) failed() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.err != nil
}

func (p *pass) fail(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.err == nil {
		p.err = err
	}
}

// Build runs fn as a build pass. Factories may only be called while fn
// runs. Build returns fn's error, or the first failed request of the
// pass. Build must not be called from inside fn.
func (a *App) Build(ctx context.Context, fn func() error) error {
	a.buildMutex.Lock()
	defer a.buildMutex.Unlock()

	p := &pass{ctx: ctx}
	a.pass.Store(p)
	defer func() {
		a.pass.Store(nil)
		a.stack = buildstack.Stack{}
	}()

	if err := fn(); err != nil {
		p.fail(err)
	}
	if err := a.dispatcher.Flush(); err != nil {
		p.fail(err)
	}
	waitErr := bridge.WaitAll(ctx, p.calls...)

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.err != nil {
		return p.err
	}
	if waitErr != nil {
		return fmt.Errorf("building: %w", waitErr)
	}
	return nil
}

// building returns the current pass. Factories panic outside Build.
func (a *App) building(factory string) *pass {
	p := a.pass.Load()
	if p == nil {
		panic(fmt.Sprintf("ui: %s called outside App.Build", factory))
	}
	return p
}

// enqueue sends operation as part of the current pass, or on its own
// when no pass is running. Nothing is sent once the pass has failed.
func (a *App) enqueue(operation protocol.Operation) {
	p := a.pass.Load()
	if p == nil {
		call := a.dispatcher.Send(context.Background(), operation)
		go func() {
			if _, err := call.Wait(context.Background()); err != nil {
				a.logger.Warn("request failed", "operation", operation.OperationType(), "error", err)
			}
		}()
		return
	}
	if p.failed() {
		return
	}
	call := a.dispatcher.Send(p.ctx, operation)
	p.mutex.Lock()
	p.calls = append(p.calls, call)
	p.mutex.Unlock()
}

// request performs one operation and waits for it.
func (a *App) request(ctx context.Context, operation protocol.Operation, out any) error {
	return a.dispatcher.Request(ctx, operation, out)
}

// callerSource returns the file:line of the caller of the function that
// calls it.
func callerSource() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", file, line)
}
