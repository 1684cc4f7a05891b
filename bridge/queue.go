// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"sync"

	"github.com/tsyne-foundation/tsyne/protocol"
)

// eventQueue is an unbounded FIFO between the receive loop and the event
// goroutine. push never blocks, so the receive loop keeps resolving
// responses however slow the handlers are.
type eventQueue struct {
	mutex  sync.Mutex
	items  []*protocol.Event
	closed bool

	// signal has capacity 1; a pending token means "look again".
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

// push appends event and returns the backlog length. Events pushed after
// close are discarded.
func (q *eventQueue) push(event *protocol.Event) int {
	q.mutex.Lock()
	if q.closed {
		q.mutex.Unlock()
		return 0
	}
	q.items = append(q.items, event)
	backlog := len(q.items)
	q.mutex.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return backlog
}

// pop blocks until an event is available or the queue is closed and
// drained.
func (q *eventQueue) pop() (*protocol.Event, bool) {
	for {
		q.mutex.Lock()
		if len(q.items) > 0 {
			event := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			if len(q.items) == 0 {
				q.items = nil
			}
			q.mutex.Unlock()
			return event, true
		}
		if q.closed {
			q.mutex.Unlock()
			return nil, false
		}
		q.mutex.Unlock()
		<-q.signal
	}
}

// close stops accepting events and discards the backlog. pop returns
// false once it observes the close.
func (q *eventQueue) close() {
	q.mutex.Lock()
	q.closed = true
	q.items = nil
	q.mutex.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
