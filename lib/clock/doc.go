// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets time-dependent code run against a controllable
// clock in tests.
//
// The bridge's flush window, the scene animator's frame ticker and the
// sandbox's execution deadline all take a [Clock]. Production code
// passes [Real]; tests pass a [FakeClock] and move time with Advance:
//
//	fake := clock.Fake(time.Unix(0, 0))
//	animator := scene.NewAnimator(s, scene.AnimatorOptions{FPS: 60, Clock: fake})
//	animator.Start(ctx)
//	fake.WaitForTimers(1) // the frame ticker is registered
//	fake.Advance(16 * time.Millisecond)
//
// WaitForTimers closes the race between a goroutine registering a timer
// and the test advancing past it.
package clock
