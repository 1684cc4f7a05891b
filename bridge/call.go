// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"sync"

	"github.com/tsyne-foundation/tsyne/protocol"
)

// Call is a request in flight. It completes exactly once: with the
// renderer's response, or with an error when the request could not be
// sent or the channel closed first.
type Call struct {
	// ID is the correlation id. Empty if the request was never sent.
	ID        string
	Operation protocol.Operation

	done     chan struct{}
	once     sync.Once
	response *protocol.Response
	err      error
}

func newCall(id string, operation protocol.Operation) *Call {
	return &Call{ID: id, Operation: operation, done: make(chan struct{})}
}

func failedCall(operation protocol.Operation, err error) *Call {
	call := newCall("", operation)
	call.complete(nil, err)
	return call
}

// complete resolves the call. Only the first completion has any effect;
// the return value reports whether this one did.
func (c *Call) complete(response *protocol.Response, err error) bool {
	completed := false
	c.once.Do(func() {
		c.response = response
		c.err = err
		completed = true
		close(c.done)
	})
	return completed
}

func (c *Call) operationType() string {
	if c.Operation == nil {
		return ""
	}
	return c.Operation.OperationType()
}

// Done is closed once the call has completed.
func (c *Call) Done() <-chan struct{} { return c.done }

// Wait blocks until the call completes or ctx ends. A renderer-reported
// failure is an [*ApplicationError]. Giving up on ctx does not cancel
// the request; its response is discarded when it arrives.
func (c *Call) Wait(ctx context.Context) (*protocol.Response, error) {
	select {
	case <-c.done:
		return c.response, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err returns the call's error once it has completed, nil before.
func (c *Call) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Decode waits for the call and decodes its result into out.
func (c *Call) Decode(ctx context.Context, out any) error {
	response, err := c.Wait(ctx)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return response.DecodeResult(out)
}

// WaitAll waits for every call and returns the first error in call
// order. It waits for all of them even after an error, so no response
// is left unobserved.
func WaitAll(ctx context.Context, calls ...*Call) error {
	var first error
	for _, call := range calls {
		if _, err := call.Wait(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
