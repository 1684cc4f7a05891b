// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tsyne-foundation/tsyne/bridge"
	"github.com/tsyne-foundation/tsyne/lib/clock"
)

// Refresher is what an Animator drives. *Scene implements it.
type Refresher interface {
	Refresh(ctx context.Context) (Patch, error)
}

// AnimatorOptions configures an Animator.
type AnimatorOptions struct {
	// FPS is the target frame rate. Defaults to 60.
	FPS int

	// Clock drives the frame ticker. Defaults to the wall clock.
	Clock clock.Clock

	// OnError is called with every refresh error other than a skipped
	// frame. The animator keeps running unless the channel closed.
	OnError func(error)

	Logger *slog.Logger
}

// Animator refreshes a scene once per frame interval. A tick that
// arrives while the previous frame is still being applied is dropped.
type Animator struct {
	target   Refresher
	clock    clock.Clock
	interval time.Duration
	onError  func(error)
	logger   *slog.Logger

	frames  atomic.Uint64
	skipped atomic.Uint64

	mutex  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAnimator returns a stopped animator for target.
func NewAnimator(target Refresher, options AnimatorOptions) *Animator {
	fps := options.FPS
	if fps <= 0 {
		fps = 60
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Animator{
		target:   target,
		clock:    clk,
		interval: time.Second / time.Duration(fps),
		onError:  options.OnError,
		logger:   logger.With("component", "animator"),
	}
}

// Interval returns the time between frames.
func (a *Animator) Interval() time.Duration { return a.interval }

// Start begins ticking. It is a no-op if the animator is running.
func (a *Animator) Start(ctx context.Context) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.done != nil {
		return
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	ticker := a.clock.NewTicker(a.interval)
	go a.run(ctx, ticker, a.done)
}

// Stop ends the animation and waits for an in-flight frame to finish.
func (a *Animator) Stop() {
	a.mutex.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mutex.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Frames returns how many refreshes completed without error.
func (a *Animator) Frames() uint64 { return a.frames.Load() }

// Skipped returns how many ticks found a refresh already running.
func (a *Animator) Skipped() uint64 { return a.skipped.Load() }

func (a *Animator) run(ctx context.Context, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	a.logger.Debug("animation started", "interval", a.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		_, err := a.target.Refresh(ctx)
		switch {
		case err == nil:
			a.frames.Add(1)
		case errors.Is(err, ErrRefreshInProgress):
			a.skipped.Add(1)
		case errors.Is(err, bridge.ErrChannelClosed):
			a.logger.Info("animation stopped, channel closed")
			return
		case ctx.Err() != nil:
			return
		default:
			a.logger.Warn("frame failed", "error", err)
			if a.onError != nil {
				a.onError(err)
			}
		}
	}
}
