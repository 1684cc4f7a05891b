// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"sync"

	"github.com/tsyne-foundation/tsyne/lib/ident"
	"github.com/tsyne-foundation/tsyne/protocol"
)

// Handler receives the events routed to one callback id. Handlers run
// on the dispatcher's event goroutine, one at a time, in arrival order.
type Handler interface {
	HandleEvent(ctx context.Context, event *protocol.Event)
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc func(ctx context.Context, event *protocol.Event)

func (f HandlerFunc) HandleEvent(ctx context.Context, event *protocol.Event) { f(ctx, event) }

// callbackPrefix is the ident prefix of callback ids.
const callbackPrefix = "callback"

// Registry maps callback ids to handlers. It is safe for concurrent use:
// the build path registers while the event goroutine looks up.
type Registry struct {
	ids *ident.Allocator

	mutex    sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry drawing callback ids from ids.
func NewRegistry(ids *ident.Allocator) *Registry {
	return &Registry{ids: ids, handlers: make(map[string]Handler)}
}

// Registration is one registered handler. The zero value is not
// registered.
type Registration struct {
	// ID is the callback id to send to the renderer.
	ID string

	registry *Registry
}

// Register adds handler under a fresh callback id.
func (r *Registry) Register(handler Handler) Registration {
	id := string(r.ids.NextID(callbackPrefix))
	r.mutex.Lock()
	r.handlers[id] = handler
	r.mutex.Unlock()
	return Registration{ID: id, registry: r}
}

// RegisterFunc is Register for a plain function.
func (r *Registry) RegisterFunc(handler func(ctx context.Context, event *protocol.Event)) Registration {
	return r.Register(HandlerFunc(handler))
}

// Lookup returns the handler for id.
func (r *Registry) Lookup(id string) (Handler, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	handler, ok := r.handlers[id]
	return handler, ok
}

// Len returns the number of live registrations.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.handlers)
}

// Release removes the registration. Events already queued for it are
// dropped. Returns false if it was not registered.
func (g Registration) Release() bool {
	if g.registry == nil || g.ID == "" {
		return false
	}
	g.registry.mutex.Lock()
	defer g.registry.mutex.Unlock()
	if _, ok := g.registry.handlers[g.ID]; !ok {
		return false
	}
	delete(g.registry.handlers, g.ID)
	return true
}

// Registered reports whether the registration is still live.
func (g Registration) Registered() bool {
	if g.registry == nil {
		return false
	}
	_, ok := g.registry.Lookup(g.ID)
	return ok
}
