// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package headless

import (
	"context"

	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/renderer"
)

// interactable resolves a widget a user could act on. Events are
// collected under the mutex and emitted after it is released.
func (t *Toolkit) interactable(id string) (*widget, error) {
	w, err := t.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	if !w.visible {
		return nil, renderer.Invalid("widget %s is hidden", w.id)
	}
	if !w.enabled {
		return nil, renderer.Invalid("widget %s is disabled", w.id)
	}
	return w, nil
}

func callbackEvent(w *widget, slot string, data protocol.EventData) *protocol.Event {
	callbackID, ok := w.callbacks[slot]
	if !ok {
		return nil
	}
	data.CallbackID = callbackID
	return &protocol.Event{Type: protocol.EventCallback, WidgetID: w.id, Data: data}
}

func (t *Toolkit) emitAll(events []*protocol.Event) {
	for _, event := range events {
		if event != nil {
			t.emit(event)
		}
	}
}

func (t *Toolkit) click(o *protocol.ClickWidget) (any, error) {
	t.mutex.Lock()
	w, err := t.interactable(o.WidgetID)
	if err != nil {
		t.mutex.Unlock()
		return nil, err
	}
	var event *protocol.Event
	switch w.kind {
	case KindCheckbox:
		w.checked = !w.checked
		checked := w.checked
		event = callbackEvent(w, slotChange, protocol.EventData{Checked: &checked})
	default:
		event = callbackEvent(w, slotClick, protocol.EventData{X: o.X, Y: o.Y})
	}
	t.mutex.Unlock()

	t.emitAll([]*protocol.Event{event})
	return nil, nil
}

func (t *Toolkit) typeText(o *protocol.TypeText) (any, error) {
	t.mutex.Lock()
	w, err := t.interactable(o.WidgetID)
	if err != nil {
		t.mutex.Unlock()
		return nil, err
	}
	if w.kind != KindEntry {
		t.mutex.Unlock()
		return nil, renderer.Invalid("%s is a %s, not an entry", w.id, w.kind)
	}
	w.text += o.Text
	events := []*protocol.Event{callbackEvent(w, slotChange, protocol.EventData{Text: w.text})}
	if o.Submit {
		events = append(events, callbackEvent(w, slotSubmit, protocol.EventData{Text: w.text}))
	}
	t.mutex.Unlock()

	t.emitAll(events)
	return nil, nil
}

// drag emits a start event, Steps move events and an end event. Each
// move carries the delta since the previous one.
func (t *Toolkit) drag(o *protocol.DragWidget) (any, error) {
	t.mutex.Lock()
	w, err := t.interactable(o.WidgetID)
	if err != nil {
		t.mutex.Unlock()
		return nil, err
	}
	if _, ok := w.callbacks[slotDrag]; !ok {
		t.mutex.Unlock()
		return nil, renderer.Invalid("widget %s is not draggable", w.id)
	}
	steps := o.Steps
	if steps <= 0 {
		steps = 1
	}
	events := []*protocol.Event{callbackEvent(w, slotDrag, protocol.EventData{X: o.FromX, Y: o.FromY, Phase: "start"})}
	stepX := (o.ToX - o.FromX) / float64(steps)
	stepY := (o.ToY - o.FromY) / float64(steps)
	for i := 1; i <= steps; i++ {
		events = append(events, callbackEvent(w, slotDrag, protocol.EventData{
			X:      o.FromX + stepX*float64(i),
			Y:      o.FromY + stepY*float64(i),
			DeltaX: stepX,
			DeltaY: stepY,
			Phase:  "move",
		}))
	}
	events = append(events, callbackEvent(w, slotDrag, protocol.EventData{X: o.ToX, Y: o.ToY, Phase: "end"}))
	t.mutex.Unlock()

	t.emitAll(events)
	return nil, nil
}

func (t *Toolkit) registerInspection() {
	s := t.server
	renderer.On(s, func(_ context.Context, o *protocol.ClickWidget) (any, error) { return t.click(o) })
	renderer.On(s, func(_ context.Context, o *protocol.TypeText) (any, error) { return t.typeText(o) })
	renderer.On(s, func(_ context.Context, o *protocol.DragWidget) (any, error) { return t.drag(o) })
	renderer.On(s, func(context.Context, *protocol.GetAllWidgets) (any, error) {
		return protocol.WidgetsResult{Widgets: t.Snapshot()}, nil
	})
	renderer.On(s, func(_ context.Context, o *protocol.GetWidgetInfo) (any, error) {
		return t.withWidget(o.WidgetID, func(w *widget) (any, error) {
			return w.info(), nil
		})
	})
}
