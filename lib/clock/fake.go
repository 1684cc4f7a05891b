// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock that only moves when Advance is called. It is
// safe for concurrent use.
//
// AfterFunc callbacks run on the goroutine calling Advance, in deadline
// order. A callback must not call Advance or Sleep on the same clock.
type FakeClock struct {
	mutex   sync.Mutex
	now     time.Time
	pending []*alarm
	changed *sync.Cond

	// sequence orders alarms with equal deadlines by registration.
	sequence uint64
}

// alarm is one registered After, AfterFunc, Sleep or ticker.
type alarm struct {
	when     time.Time
	sequence uint64

	// Exactly one of channel and callback is set.
	channel  chan time.Time
	callback func()

	// period is non-zero for tickers, which re-arm after firing.
	period time.Duration
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	fake := &FakeClock{now: start}
	fake.changed = sync.NewCond(&fake.mutex)
	return fake
}

func (c *FakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

// armLocked registers a and wakes WaitForTimers.
func (c *FakeClock) armLocked(a *alarm, d time.Duration) {
	c.sequence++
	a.when = c.now.Add(d)
	a.sequence = c.sequence
	c.pending = append(c.pending, a)
	c.changed.Broadcast()
}

// disarmLocked removes a and reports whether it was pending.
func (c *FakeClock) disarmLocked(a *alarm) bool {
	for i, candidate := range c.pending {
		if candidate == a {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	channel := make(chan time.Time, 1)
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.armLocked(&alarm{channel: channel}, d)
	return channel
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{
			stop:  func() bool { return false },
			reset: func(time.Duration) bool { return false },
		}
	}

	a := &alarm{callback: f}
	c.mutex.Lock()
	c.armLocked(a, d)
	c.mutex.Unlock()

	return &Timer{
		stop: func() bool {
			c.mutex.Lock()
			defer c.mutex.Unlock()
			return c.disarmLocked(a)
		},
		reset: func(d time.Duration) bool {
			c.mutex.Lock()
			defer c.mutex.Unlock()
			wasPending := c.disarmLocked(a)
			c.armLocked(a, d)
			return wasPending
		},
	}
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker needs a positive period")
	}
	channel := make(chan time.Time, 1)
	a := &alarm{channel: channel, period: d}
	c.mutex.Lock()
	c.armLocked(a, d)
	c.mutex.Unlock()

	return &Ticker{
		C: channel,
		stop: func() {
			c.mutex.Lock()
			defer c.mutex.Unlock()
			c.disarmLocked(a)
		},
		reset: func(d time.Duration) {
			c.mutex.Lock()
			defer c.mutex.Unlock()
			c.disarmLocked(a)
			a.period = d
			c.armLocked(a, d)
		},
	}
}

func (c *FakeClock) Sleep(d time.Duration) {
	if d > 0 {
		<-c.After(d)
	}
}

// Advance moves the clock forward by d and fires every alarm due by the
// new time, earliest first. The clock reads each alarm's deadline while
// it fires, so a callback that arms another alarm inside the window sees
// it fire in the same Advance. A ticker whose period fits several times
// into d fires once per period, dropping ticks its reader has not
// consumed.
func (c *FakeClock) Advance(d time.Duration) {
	c.mutex.Lock()
	target := c.now.Add(d)
	c.mutex.Unlock()

	for {
		a, fireTime, ok := c.nextDue(target)
		if !ok {
			c.mutex.Lock()
			if c.now.Before(target) {
				c.now = target
			}
			c.mutex.Unlock()
			return
		}
		if a.callback != nil {
			a.callback()
			continue
		}
		select {
		case a.channel <- fireTime:
		default:
		}
	}
}

// nextDue pops the earliest alarm due at or before target, moves the
// clock to its deadline and re-arms tickers at their next period.
func (c *FakeClock) nextDue(target time.Time) (*alarm, time.Time, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.pending) == 0 {
		return nil, time.Time{}, false
	}
	sort.Slice(c.pending, func(i, j int) bool {
		if c.pending[i].when.Equal(c.pending[j].when) {
			return c.pending[i].sequence < c.pending[j].sequence
		}
		return c.pending[i].when.Before(c.pending[j].when)
	})
	a := c.pending[0]
	if a.when.After(target) {
		return nil, time.Time{}, false
	}
	fireTime := a.when
	if fireTime.After(c.now) {
		c.now = fireTime
	}
	c.pending = c.pending[1:]
	if a.period > 0 {
		c.sequence++
		a.when = a.when.Add(a.period)
		a.sequence = c.sequence
		c.pending = append(c.pending, a)
	}
	return a, fireTime, true
}

// WaitForTimers blocks until at least n alarms are pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for len(c.pending) < n {
		c.changed.Wait()
	}
}

// PendingCount returns how many alarms are registered and unfired.
func (c *FakeClock) PendingCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.pending)
}
