// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package headless

import (
	"context"

	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/renderer"
)

func (t *Toolkit) register() {
	s := t.server

	// Windows.
	renderer.On(s, func(_ context.Context, o *protocol.CreateWindow) (any, error) {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		if _, exists := t.windows[o.WindowID]; exists {
			return nil, renderer.Invalid("window %s already exists", o.WindowID)
		}
		t.windows[o.WindowID] = &window{
			id:            o.WindowID,
			title:         o.Title,
			width:         o.Width,
			height:        o.Height,
			fixedSize:     o.FixedSize,
			closeCallback: o.CloseCallbackID,
		}
		return nil, nil
	})
	renderer.On(s, func(_ context.Context, o *protocol.SetContent) (any, error) {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		win, ok := t.windows[o.WindowID]
		if !ok {
			return nil, renderer.NotFound("window", o.WindowID)
		}
		content, err := t.lookupLocked(o.WidgetID)
		if err != nil {
			return nil, err
		}
		if previous, ok := t.widgets[win.contentID]; ok && previous != content {
			t.setWindowLocked(previous, "")
		}
		win.contentID = content.id
		t.setWindowLocked(content, win.id)
		return nil, nil
	})
	renderer.On(s, func(_ context.Context, o *protocol.ShowWindow) (any, error) {
		return t.withWindow(o.WindowID, func(w *window) (any, error) {
			w.shown = true
			return nil, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.SetWindowTitle) (any, error) {
		return t.withWindow(o.WindowID, func(w *window) (any, error) {
			w.title = o.Title
			return nil, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.ResizeWindow) (any, error) {
		if o.Width <= 0 || o.Height <= 0 {
			return nil, renderer.Invalid("window size %dx%d must be positive", o.Width, o.Height)
		}
		return t.withWindow(o.WindowID, func(w *window) (any, error) {
			if w.fixedSize {
				return nil, renderer.Invalid("window %s has a fixed size", w.id)
			}
			w.width, w.height = o.Width, o.Height
			return nil, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.CloseWindow) (any, error) {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		if _, ok := t.windows[o.WindowID]; !ok {
			return nil, renderer.NotFound("window", o.WindowID)
		}
		delete(t.windows, o.WindowID)
		return nil, nil
	})
	renderer.On(s, t.quitApp)

	// Containers.
	renderer.On(s, func(_ context.Context, o *protocol.CreateVBox) (any, error) {
		return t.create(newWidget(o.ID, KindVBox), o.Children)
	})
	renderer.On(s, func(_ context.Context, o *protocol.CreateHBox) (any, error) {
		return t.create(newWidget(o.ID, KindHBox), o.Children)
	})
	renderer.On(s, func(_ context.Context, o *protocol.CreateScroll) (any, error) {
		var children []string
		if o.ContentID != "" {
			children = []string{o.ContentID}
		}
		return t.create(newWidget(o.ID, KindScroll), children)
	})
	renderer.On(s, func(_ context.Context, o *protocol.CreateCanvasStack) (any, error) {
		stack := newWidget(o.ID, KindCanvasStack)
		stack.geometry = map[string]float64{"width": o.Width, "height": o.Height}
		return t.create(stack, o.Children)
	})
	renderer.On(s, func(_ context.Context, o *protocol.ContainerAdd) (any, error) {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		container, err := t.lookupLocked(o.ContainerID)
		if err != nil {
			return nil, err
		}
		if !container.isContainer() {
			return nil, renderer.Invalid("%s is a %s, not a container", container.id, container.kind)
		}
		child, err := t.lookupLocked(o.ChildID)
		if err != nil {
			return nil, err
		}
		if child.parentID != "" {
			return nil, renderer.Invalid("widget %s already belongs to %s", child.id, child.parentID)
		}
		child.parentID = container.id
		container.children = append(container.children, child.id)
		t.setWindowLocked(child, container.windowID)
		return nil, nil
	})
	renderer.On(s, func(_ context.Context, o *protocol.ContainerRemoveAll) (any, error) {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		container, err := t.lookupLocked(o.ContainerID)
		if err != nil {
			return nil, err
		}
		for _, childID := range container.children {
			if child, ok := t.widgets[childID]; ok {
				child.parentID = ""
				t.setWindowLocked(child, "")
			}
		}
		container.children = nil
		return nil, nil
	})

	// Widgets.
	renderer.On(s, func(_ context.Context, o *protocol.CreateLabel) (any, error) {
		label := newWidget(o.ID, KindLabel)
		label.text = o.Text
		return t.create(label, nil)
	})
	renderer.On(s, func(_ context.Context, o *protocol.CreateButton) (any, error) {
		button := newWidget(o.ID, KindButton)
		button.text = o.Text
		setSlot(button, slotClick, o.CallbackID)
		return t.create(button, nil)
	})
	renderer.On(s, func(_ context.Context, o *protocol.CreateEntry) (any, error) {
		entry := newWidget(o.ID, KindEntry)
		entry.text = o.Text
		entry.placeholder = o.Placeholder
		setSlot(entry, slotChange, o.ChangeCallbackID)
		setSlot(entry, slotSubmit, o.SubmitCallbackID)
		return t.create(entry, nil)
	})
	renderer.On(s, func(_ context.Context, o *protocol.CreateCheckbox) (any, error) {
		checkbox := newWidget(o.ID, KindCheckbox)
		checkbox.text = o.Label
		checkbox.checked = o.Checked
		setSlot(checkbox, slotChange, o.CallbackID)
		return t.create(checkbox, nil)
	})

	// Mutation and queries.
	renderer.On(s, func(_ context.Context, o *protocol.SetText) (any, error) {
		return t.withWidget(o.WidgetID, func(w *widget) (any, error) {
			w.text = o.Text
			return nil, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.GetText) (any, error) {
		return t.withWidget(o.WidgetID, func(w *widget) (any, error) {
			return protocol.TextResult{Text: w.text}, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.EnableWidget) (any, error) {
		return t.withWidget(o.WidgetID, func(w *widget) (any, error) {
			w.enabled = true
			return nil, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.DisableWidget) (any, error) {
		return t.withWidget(o.WidgetID, func(w *widget) (any, error) {
			w.enabled = false
			return nil, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.IsEnabled) (any, error) {
		return t.withWidget(o.WidgetID, func(w *widget) (any, error) {
			return protocol.EnabledResult{Enabled: w.enabled}, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.HideWidget) (any, error) {
		return t.withWidget(o.WidgetID, func(w *widget) (any, error) {
			w.visible = false
			return nil, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.ShowWidget) (any, error) {
		return t.withWidget(o.WidgetID, func(w *widget) (any, error) {
			w.visible = true
			return nil, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.SetChecked) (any, error) {
		return t.withWidget(o.WidgetID, func(w *widget) (any, error) {
			if w.kind != KindCheckbox {
				return nil, renderer.Invalid("%s is a %s, not a checkbox", w.id, w.kind)
			}
			w.checked = o.Checked
			return nil, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.GetChecked) (any, error) {
		return t.withWidget(o.WidgetID, func(w *widget) (any, error) {
			if w.kind != KindCheckbox {
				return nil, renderer.Invalid("%s is a %s, not a checkbox", w.id, w.kind)
			}
			return protocol.CheckedResult{Checked: w.checked}, nil
		})
	})
	renderer.On(s, func(_ context.Context, o *protocol.RegisterCustomID) (any, error) {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		w, ok := t.widgets[o.WidgetID]
		if !ok {
			return nil, renderer.NotFound("widget", o.WidgetID)
		}
		if owner, taken := t.customIDs[o.CustomID]; taken && owner != w.id {
			return nil, renderer.Invalid("custom id %q already names %s", o.CustomID, owner)
		}
		if w.customID != "" {
			delete(t.customIDs, w.customID)
		}
		w.customID = o.CustomID
		t.customIDs[o.CustomID] = w.id
		return nil, nil
	})
	renderer.On(s, func(_ context.Context, o *protocol.DestroyWidget) (any, error) {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		w, err := t.lookupLocked(o.WidgetID)
		if err != nil {
			return nil, err
		}
		t.removeLocked(w)
		return nil, nil
	})

	t.registerCanvas()
	t.registerInspection()
}

func setSlot(w *widget, slot, callbackID string) {
	if callbackID != "" {
		w.callbacks[slot] = callbackID
	}
}
