// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the subset of the time package that Tsyne components use.
type Clock interface {
	Now() time.Time

	// After behaves like time.After. A non-positive d delivers
	// immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc behaves like time.AfterFunc. The returned Timer has a
	// nil C. A fake clock runs f synchronously when d is non-positive.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker behaves like time.NewTicker and panics on d <= 0.
	NewTicker(d time.Duration) *Ticker

	Sleep(d time.Duration)
}

// Ticker delivers ticks on C, a channel of capacity 1. Ticks a slow
// reader misses are dropped.
type Ticker struct {
	C <-chan time.Time

	stop  func()
	reset func(time.Duration)
}

// Stop ends the ticks. C is not closed.
func (t *Ticker) Stop() { t.stop() }

// Reset restarts the ticker with period d.
func (t *Ticker) Reset(d time.Duration) { t.reset(d) }

// Timer is a pending AfterFunc call.
type Timer struct {
	C <-chan time.Time

	stop  func() bool
	reset func(time.Duration) bool
}

// Stop cancels the call. It reports whether the timer was still
// pending.
func (t *Timer) Stop() bool { return t.stop() }

// Reset reschedules the call d from now. It reports whether the timer
// was still pending.
func (t *Timer) Reset(d time.Duration) bool { return t.reset(d) }
