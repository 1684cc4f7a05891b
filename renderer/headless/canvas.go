// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package headless

import (
	"context"

	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/renderer"
)

func newCanvasObject(id, kind string, style protocol.Style, hooks protocol.CanvasHooks, geometry map[string]float64) *widget {
	object := newWidget(id, kind)
	object.geometry = geometry
	object.style = &style
	setSlot(object, slotClick, hooks.CallbackID)
	setSlot(object, slotDrag, hooks.DragCallbackID)
	return object
}

// createCanvasObject adds object and, when canvasID is set, attaches it
// to that canvas stack.
func (t *Toolkit) createCanvasObject(canvasID string, object *widget) (any, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	var canvas *widget
	if canvasID != "" {
		var err error
		if canvas, err = t.lookupLocked(canvasID); err != nil {
			return nil, err
		}
		if canvas.kind != KindCanvasStack {
			return nil, renderer.Invalid("%s is a %s, not a canvas stack", canvasID, canvas.kind)
		}
	}
	if err := t.addLocked(object, nil); err != nil {
		return nil, err
	}
	if canvas != nil {
		object.parentID = canvas.id
		object.windowID = canvas.windowID
		canvas.children = append(canvas.children, object.id)
	}
	return nil, nil
}

// updateCanvasObject applies patch to a canvas object of kind.
func (t *Toolkit) updateCanvasObject(id, kind string, patch protocol.CanvasPatch) (any, error) {
	return t.withWidget(id, func(w *widget) (any, error) {
		if w.kind != kind {
			return nil, renderer.Invalid("%s is a %s, not a %s", id, w.kind, kind)
		}
		w.applyPatch(patch)
		return nil, nil
	})
}

func (t *Toolkit) registerCanvas() {
	s := t.server
	renderer.On(s, func(_ context.Context, o *protocol.CreateCanvasCircle) (any, error) {
		return t.createCanvasObject(o.CanvasID, newCanvasObject(o.ID, KindCircle, o.Style, o.Hooks,
			map[string]float64{"x": o.CX, "y": o.CY, "radius": o.Radius}))
	})
	renderer.On(s, func(_ context.Context, o *protocol.CreateCanvasRectangle) (any, error) {
		return t.createCanvasObject(o.CanvasID, newCanvasObject(o.ID, KindRectangle, o.Style, o.Hooks,
			map[string]float64{"x": o.X, "y": o.Y, "width": o.Width, "height": o.Height, "cornerRadius": o.CornerRadius}))
	})
	renderer.On(s, func(_ context.Context, o *protocol.CreateCanvasLine) (any, error) {
		return t.createCanvasObject(o.CanvasID, newCanvasObject(o.ID, KindLine, o.Style, o.Hooks,
			map[string]float64{"x": o.X1, "y": o.Y1, "x2": o.X2, "y2": o.Y2}))
	})
	renderer.On(s, func(_ context.Context, o *protocol.CreateCanvasText) (any, error) {
		object := newCanvasObject(o.ID, KindText, o.Style, o.Hooks, map[string]float64{"x": o.X, "y": o.Y, "size": o.Size})
		object.text = o.Text
		return t.createCanvasObject(o.CanvasID, object)
	})
	renderer.On(s, func(_ context.Context, o *protocol.UpdateCanvasCircle) (any, error) {
		return t.updateCanvasObject(o.ID, KindCircle, o.Patch)
	})
	renderer.On(s, func(_ context.Context, o *protocol.UpdateCanvasRectangle) (any, error) {
		return t.updateCanvasObject(o.ID, KindRectangle, o.Patch)
	})
	renderer.On(s, func(_ context.Context, o *protocol.UpdateCanvasLine) (any, error) {
		return t.updateCanvasObject(o.ID, KindLine, o.Patch)
	})
	renderer.On(s, func(_ context.Context, o *protocol.UpdateCanvasText) (any, error) {
		return t.updateCanvasObject(o.ID, KindText, o.Patch)
	})
	renderer.On(s, func(_ context.Context, o *protocol.RemoveCanvasObject) (any, error) {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		w, err := t.lookupLocked(o.ID)
		if err != nil {
			return nil, err
		}
		if !w.isCanvasObject() {
			return nil, renderer.Invalid("%s is a %s, not a canvas object", o.ID, w.kind)
		}
		t.removeLocked(w)
		return nil, nil
	})
}
