// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package headless

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/renderer"
)

// Toolkit is the in-memory widget model. Its handlers run on the
// server's request goroutine; the mutex guards the model against
// concurrent inspection through Snapshot.
type Toolkit struct {
	server *renderer.Server
	logger *slog.Logger

	mutex     sync.Mutex
	windows   map[string]*window
	widgets   map[string]*widget
	order     []string
	customIDs map[string]string

	quit     chan struct{}
	quitOnce sync.Once
}

// New returns an empty toolkit bound to server and registers a handler
// for every protocol operation.
func New(server *renderer.Server, logger *slog.Logger) *Toolkit {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Toolkit{
		server:    server,
		logger:    logger.With("component", "headless"),
		windows:   make(map[string]*window),
		widgets:   make(map[string]*widget),
		customIDs: make(map[string]string),
		quit:      make(chan struct{}),
	}
	t.register()
	return t
}

// Quit is closed once the app has sent quit.
func (t *Toolkit) Quit() <-chan struct{} { return t.quit }

// Snapshot returns every widget in creation order.
func (t *Toolkit) Snapshot() []protocol.WidgetInfo {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.allWidgetsLocked()
}

// WindowTitle returns a window's title and whether it exists.
func (t *Toolkit) WindowTitle(windowID string) (string, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	w, ok := t.windows[windowID]
	if !ok {
		return "", false
	}
	return w.title, true
}

// CloseByUser simulates the window manager closing a window: the window
// is removed and its close callback, if any, receives an event.
func (t *Toolkit) CloseByUser(windowID string) error {
	t.mutex.Lock()
	w, ok := t.windows[windowID]
	if ok {
		delete(t.windows, windowID)
	}
	t.mutex.Unlock()
	if !ok {
		return renderer.NotFound("window", windowID)
	}
	if w.closeCallback == "" {
		return nil
	}
	return t.server.Emit(&protocol.Event{
		Type: protocol.EventCallback,
		Data: protocol.EventData{CallbackID: w.closeCallback},
	})
}

// Notify emits a notification event not tied to any callback.
func (t *Toolkit) Notify(name string) error {
	return t.server.Emit(&protocol.Event{Type: protocol.EventNotify, Data: protocol.EventData{Name: name}})
}

func (t *Toolkit) allWidgetsLocked() []protocol.WidgetInfo {
	infos := make([]protocol.WidgetInfo, 0, len(t.order))
	for _, id := range t.order {
		if w, ok := t.widgets[id]; ok {
			infos = append(infos, w.info())
		}
	}
	return infos
}

// lookupLocked resolves a widget id or a registered custom id.
func (t *Toolkit) lookupLocked(id string) (*widget, error) {
	if w, ok := t.widgets[id]; ok {
		return w, nil
	}
	if real, ok := t.customIDs[id]; ok {
		if w, ok := t.widgets[real]; ok {
			return w, nil
		}
	}
	return nil, renderer.NotFound("widget", id)
}

// addLocked records a new widget, adopting children that must already
// exist and be unparented.
func (t *Toolkit) addLocked(w *widget, children []string) error {
	if _, exists := t.widgets[w.id]; exists {
		return renderer.Invalid("widget %s already exists", w.id)
	}
	for _, childID := range children {
		child, ok := t.widgets[childID]
		if !ok {
			return renderer.NotFound("child widget", childID)
		}
		if child.parentID != "" && child.parentID != w.id {
			return renderer.Invalid("widget %s already belongs to %s", childID, child.parentID)
		}
	}
	for _, childID := range children {
		t.widgets[childID].parentID = w.id
	}
	w.children = slices.Clone(children)
	t.widgets[w.id] = w
	t.order = append(t.order, w.id)
	return nil
}

// removeLocked deletes w and its subtree and unlinks it from its
// parent and window.
func (t *Toolkit) removeLocked(w *widget) {
	if parent, ok := t.widgets[w.parentID]; ok {
		parent.children = slices.DeleteFunc(parent.children, func(id string) bool { return id == w.id })
	}
	for _, win := range t.windows {
		if win.contentID == w.id {
			win.contentID = ""
		}
	}
	var remove func(*widget)
	remove = func(node *widget) {
		for _, childID := range node.children {
			if child, ok := t.widgets[childID]; ok {
				remove(child)
			}
		}
		if node.customID != "" && t.customIDs[node.customID] == node.id {
			delete(t.customIDs, node.customID)
		}
		delete(t.widgets, node.id)
	}
	remove(w)
	t.order = slices.DeleteFunc(t.order, func(id string) bool {
		_, ok := t.widgets[id]
		return !ok
	})
}

// setWindowLocked stamps windowID on a subtree.
func (t *Toolkit) setWindowLocked(w *widget, windowID string) {
	w.windowID = windowID
	for _, childID := range w.children {
		if child, ok := t.widgets[childID]; ok {
			t.setWindowLocked(child, windowID)
		}
	}
}

func (t *Toolkit) emit(event *protocol.Event) {
	if err := t.server.Emit(event); err != nil {
		t.logger.Warn("emitting event failed", "callback_id", event.Data.CallbackID, "error", err)
	}
}

// withWidget runs fn on the widget named by id under the mutex.
func (t *Toolkit) withWidget(id string, fn func(w *widget) (any, error)) (any, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	w, err := t.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	return fn(w)
}

func (t *Toolkit) withWindow(id string, fn func(w *window) (any, error)) (any, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	w, ok := t.windows[id]
	if !ok {
		return nil, renderer.NotFound("window", id)
	}
	return fn(w)
}

func (t *Toolkit) create(w *widget, children []string) (any, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if err := t.addLocked(w, children); err != nil {
		return nil, err
	}
	t.logger.Debug("widget created", "id", w.id, "kind", w.kind, "children", len(children))
	return nil, nil
}

// quitApp stops the server after the quit response is written.
func (t *Toolkit) quitApp(context.Context, *protocol.Quit) (any, error) {
	t.server.Stop()
	t.quitOnce.Do(func() { close(t.quit) })
	return nil, nil
}
