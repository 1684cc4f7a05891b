// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"context"
	"fmt"

	"github.com/tsyne-foundation/tsyne/bridge"
	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/scene"
)

// Widget is a handle to a declared widget. Its methods talk to the
// renderer and wait for the answer, except WithID, which is chainable
// during a build.
type Widget struct {
	app *App
	id  string
}

// ID returns the widget's id.
func (w *Widget) ID() string { return w.id }

// WithID pins a stable key to the widget, for tests and tools to find
// it by.
func (w *Widget) WithID(key string) *Widget {
	w.app.setCustomID(w.id, key)
	w.app.enqueue(protocol.RegisterCustomID{WidgetID: w.id, CustomID: key})
	return w
}

// SetText replaces the widget's text.
func (w *Widget) SetText(ctx context.Context, text string) error {
	if err := w.app.request(ctx, protocol.SetText{WidgetID: w.id, Text: text}, nil); err != nil {
		return err
	}
	w.app.setProperty(w.id, "text", text)
	return nil
}

// Text returns the widget's current text.
func (w *Widget) Text(ctx context.Context) (string, error) {
	result, err := bridge.Query[protocol.TextResult](ctx, w.app.dispatcher, protocol.GetText{WidgetID: w.id})
	return result.Text, err
}

func (w *Widget) Enable(ctx context.Context) error {
	return w.app.request(ctx, protocol.EnableWidget{WidgetID: w.id}, nil)
}

func (w *Widget) Disable(ctx context.Context) error {
	return w.app.request(ctx, protocol.DisableWidget{WidgetID: w.id}, nil)
}

// Enabled reports whether the widget accepts input.
func (w *Widget) Enabled(ctx context.Context) (bool, error) {
	result, err := bridge.Query[protocol.EnabledResult](ctx, w.app.dispatcher, protocol.IsEnabled{WidgetID: w.id})
	return result.Enabled, err
}

func (w *Widget) Hide(ctx context.Context) error {
	return w.app.request(ctx, protocol.HideWidget{WidgetID: w.id}, nil)
}

func (w *Widget) Show(ctx context.Context) error {
	return w.app.request(ctx, protocol.ShowWidget{WidgetID: w.id}, nil)
}

// Destroy removes the widget and its descendants and releases their
// callbacks. Their ids are never handed out again.
func (w *Widget) Destroy(ctx context.Context) error {
	if err := w.app.request(ctx, protocol.DestroyWidget{WidgetID: w.id}, nil); err != nil {
		return err
	}
	w.app.forget(w.id)
	return nil
}

// Entry is a text entry handle.
type Entry struct {
	Widget
}

// Type appends text as if typed, firing change events and, with submit,
// a submit event.
func (e *Entry) Type(ctx context.Context, text string, submit bool) error {
	return e.app.request(ctx, protocol.TypeText{WidgetID: e.id, Text: text, Submit: submit}, nil)
}

// Checkbox is a checkbox handle.
type Checkbox struct {
	Widget
}

func (c *Checkbox) SetChecked(ctx context.Context, checked bool) error {
	if err := c.app.request(ctx, protocol.SetChecked{WidgetID: c.id, Checked: checked}, nil); err != nil {
		return err
	}
	c.app.setProperty(c.id, "checked", checked)
	return nil
}

func (c *Checkbox) Checked(ctx context.Context) (bool, error) {
	result, err := bridge.Query[protocol.CheckedResult](ctx, c.app.dispatcher, protocol.GetChecked{WidgetID: c.id})
	return result.Checked, err
}

// Container is a box or scroll handle.
type Container struct {
	Widget
}

// Add appends a detached widget to the container.
func (c *Container) Add(ctx context.Context, child *Widget) error {
	if err := c.app.request(ctx, protocol.ContainerAdd{ContainerID: c.id, ChildID: child.id}, nil); err != nil {
		return err
	}
	c.app.adopt(c.id, []string{child.id})
	return nil
}

// RemoveAll detaches every child. The children still exist and can be
// added elsewhere.
func (c *Container) RemoveAll(ctx context.Context) error {
	if err := c.app.request(ctx, protocol.ContainerRemoveAll{ContainerID: c.id}, nil); err != nil {
		return err
	}
	c.app.detachChildren(c.id)
	return nil
}

// Canvas is a canvas stack handle with the scene it draws.
type Canvas struct {
	Widget
	scene *scene.Scene
}

// Scene returns the canvas's scene.
func (c *Canvas) Scene() *scene.Scene { return c.scene }

// Refresh redraws the scene, sending only what changed.
func (c *Canvas) Refresh(ctx context.Context) (scene.Patch, error) {
	return c.scene.Refresh(ctx)
}

// Animate returns a stopped animator refreshing the canvas.
func (c *Canvas) Animate(options scene.AnimatorOptions) *scene.Animator {
	if options.Logger == nil {
		options.Logger = c.app.logger
	}
	return scene.NewAnimator(c.scene, options)
}

// Window is a window handle.
type Window struct {
	app *App
	id  string
}

func (w *Window) ID() string { return w.id }

func (w *Window) Show(ctx context.Context) error {
	return w.app.request(ctx, protocol.ShowWindow{WindowID: w.id}, nil)
}

func (w *Window) SetTitle(ctx context.Context, title string) error {
	if err := w.app.request(ctx, protocol.SetWindowTitle{WindowID: w.id, Title: title}, nil); err != nil {
		return err
	}
	w.app.setProperty(w.id, "title", title)
	return nil
}

func (w *Window) Resize(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize %s: size %dx%d is not positive", w.id, width, height)
	}
	if err := w.app.request(ctx, protocol.ResizeWindow{WindowID: w.id, Width: width, Height: height}, nil); err != nil {
		return err
	}
	w.app.setProperty(w.id, "width", width)
	w.app.setProperty(w.id, "height", height)
	return nil
}

// SetContent replaces the window's content with a detached widget.
func (w *Window) SetContent(ctx context.Context, content *Widget) error {
	if err := w.app.request(ctx, protocol.SetContent{WindowID: w.id, WidgetID: content.id}, nil); err != nil {
		return err
	}
	w.app.detachChildren(w.id)
	w.app.adopt(w.id, []string{content.id})
	return nil
}

// Close closes the window and forgets its widgets.
func (w *Window) Close(ctx context.Context) error {
	if err := w.app.request(ctx, protocol.CloseWindow{WindowID: w.id}, nil); err != nil {
		return err
	}
	w.app.forget(w.id)
	return nil
}
