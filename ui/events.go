// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"context"

	"github.com/tsyne-foundation/tsyne/bridge"
	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/scene"
)

// DragEvent is one step of a drag gesture.
type DragEvent = scene.DragEvent

// Handlers run on the dispatcher's event goroutine, one at a time. A
// nil function registers nothing and returns the zero Registration,
// whose empty ID tells the renderer there is no callback.

// OnClick registers fn for click events.
func (a *App) OnClick(fn func(ctx context.Context)) bridge.Registration {
	if fn == nil {
		return bridge.Registration{}
	}
	return a.registry.RegisterFunc(func(ctx context.Context, _ *protocol.Event) { fn(ctx) })
}

// OnChange registers fn for text change events. fn receives the whole
// current text.
func (a *App) OnChange(fn func(ctx context.Context, text string)) bridge.Registration {
	if fn == nil {
		return bridge.Registration{}
	}
	return a.registry.RegisterFunc(func(ctx context.Context, event *protocol.Event) { fn(ctx, event.Data.Text) })
}

// OnSubmit registers fn for entry submit events.
func (a *App) OnSubmit(fn func(ctx context.Context, text string)) bridge.Registration {
	return a.OnChange(fn)
}

// OnCheck registers fn for checkbox change events.
func (a *App) OnCheck(fn func(ctx context.Context, checked bool)) bridge.Registration {
	if fn == nil {
		return bridge.Registration{}
	}
	return a.registry.RegisterFunc(func(ctx context.Context, event *protocol.Event) {
		fn(ctx, event.Data.Checked != nil && *event.Data.Checked)
	})
}

// OnDrag registers fn for drag events.
func (a *App) OnDrag(fn func(ctx context.Context, event DragEvent)) bridge.Registration {
	if fn == nil {
		return bridge.Registration{}
	}
	return a.registry.RegisterFunc(func(ctx context.Context, event *protocol.Event) {
		fn(ctx, DragEvent{
			Phase:  event.Data.Phase,
			X:      event.Data.X,
			Y:      event.Data.Y,
			DeltaX: event.Data.DeltaX,
			DeltaY: event.Data.DeltaY,
		})
	})
}
