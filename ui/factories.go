// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"context"

	"github.com/tsyne-foundation/tsyne/bridge"
	"github.com/tsyne-foundation/tsyne/lib/ident"
	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/scene"
)

// WindowOptions configures a window.
type WindowOptions struct {
	Width, Height int
	FixedSize     bool

	// Show shows the window once its content is set.
	Show bool

	// OnClose runs when the user closes the window.
	OnClose func(ctx context.Context)
}

func nothing() error { return nil }

// Window declares a window. The closure declares its content: a single
// widget becomes the content as is, several are stacked in a vertical
// box.
func (a *App) Window(title string, options WindowOptions, build func() error) *Window {
	return a.window(callerSource(), title, options, build)
}

func (a *App) window(source, title string, options WindowOptions, build func() error) *Window {
	p := a.building("Window")
	if build == nil {
		build = nothing
	}
	id := string(a.ids.NextID(TypeWindow))
	onClose := a.OnClose(options.OnClose)
	a.record(id, TypeWindow, source, map[string]any{
		"title":  title,
		"width":  options.Width,
		"height": options.Height,
	}, onClose)
	a.enqueue(protocol.CreateWindow{
		WindowID:        id,
		Title:           title,
		Width:           options.Width,
		Height:          options.Height,
		FixedSize:       options.FixedSize,
		CloseCallbackID: onClose.ID,
	})

	var children []ident.ID
	err := a.stack.WithWindow(ident.ID(id), func() error {
		var err error
		children, err = a.stack.WithContainer(build)
		return err
	})
	if err != nil {
		p.fail(err)
		return &Window{app: a, id: id}
	}
	if content := a.single(source, children); content != "" {
		a.adopt(id, []string{content})
		a.enqueue(protocol.SetContent{WindowID: id, WidgetID: content})
	}
	if options.Show {
		a.enqueue(protocol.ShowWindow{WindowID: id})
	}
	return &Window{app: a, id: id}
}

// OnClose registers fn for a window close event.
func (a *App) OnClose(fn func(ctx context.Context)) bridge.Registration {
	return a.OnClick(fn)
}

// single returns the one widget among children, wrapping several in an
// implicit vertical box. It returns "" for no children.
func (a *App) single(source string, children []ident.ID) string {
	switch len(children) {
	case 0:
		return ""
	case 1:
		return string(children[0])
	}
	id := string(a.ids.NextID(TypeVBox))
	a.record(id, TypeVBox, source, nil)
	ids := idStrings(children)
	a.adopt(id, ids)
	a.enqueue(protocol.CreateVBox{ID: id, Children: ids})
	return id
}

func idStrings(ids []ident.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// VBox declares a vertical box of the widgets its closure declares.
func (a *App) VBox(build func() error) *Container {
	return a.box(callerSource(), TypeVBox, build)
}

// HBox declares a horizontal box.
func (a *App) HBox(build func() error) *Container {
	return a.box(callerSource(), TypeHBox, build)
}

func (a *App) box(source, kind string, build func() error) *Container {
	p := a.building(kind)
	container := &Container{Widget{app: a, id: a.declare(kind, source, nil)}}
	children, err := a.withChildren(build)
	if err != nil {
		p.fail(err)
		return container
	}
	ids := idStrings(children)
	a.adopt(container.id, ids)
	if kind == TypeHBox {
		a.enqueue(protocol.CreateHBox{ID: container.id, Children: ids})
	} else {
		a.enqueue(protocol.CreateVBox{ID: container.id, Children: ids})
	}
	return container
}

// Scroll declares a scroll container around its closure's content.
func (a *App) Scroll(build func() error) *Container {
	return a.scroll(callerSource(), build)
}

func (a *App) scroll(source string, build func() error) *Container {
	p := a.building("Scroll")
	container := &Container{Widget{app: a, id: a.declare(TypeScroll, source, nil)}}
	children, err := a.withChildren(build)
	if err != nil {
		p.fail(err)
		return container
	}
	content := a.single(source, children)
	if content != "" {
		a.adopt(container.id, []string{content})
	}
	a.enqueue(protocol.CreateScroll{ID: container.id, ContentID: content})
	return container
}

func (a *App) withChildren(build func() error) ([]ident.ID, error) {
	if build == nil {
		build = nothing
	}
	return a.stack.WithContainer(build)
}

// declare allocates an id for a widget, records it and adds it to the
// enclosing container.
func (a *App) declare(kind, source string, properties map[string]any, registrations ...bridge.Registration) string {
	id := a.ids.NextID(kind)
	a.record(string(id), kind, source, properties, registrations...)
	a.stack.AddToCurrentContainer(id)
	return string(id)
}

// Label declares a text label.
func (a *App) Label(text string) *Widget {
	return a.label(callerSource(), text)
}

func (a *App) label(source, text string) *Widget {
	a.building("Label")
	id := a.declare(TypeLabel, source, map[string]any{"text": text})
	a.enqueue(protocol.CreateLabel{ID: id, Text: text})
	return &Widget{app: a, id: id}
}

// Button declares a button. onClick may be nil.
func (a *App) Button(text string, onClick func(ctx context.Context)) *Widget {
	return a.button(callerSource(), text, onClick)
}

func (a *App) button(source, text string, onClick func(ctx context.Context)) *Widget {
	a.building("Button")
	registration := a.OnClick(onClick)
	id := a.declare(TypeButton, source, map[string]any{"text": text}, registration)
	a.enqueue(protocol.CreateButton{ID: id, Text: text, CallbackID: registration.ID})
	return &Widget{app: a, id: id}
}

// Entry declares a single-line text entry. onChange and onSubmit may be
// nil.
func (a *App) Entry(placeholder string, onChange, onSubmit func(ctx context.Context, text string)) *Entry {
	return a.entry(callerSource(), placeholder, "", onChange, onSubmit)
}

func (a *App) entry(source, placeholder, text string, onChange, onSubmit func(ctx context.Context, text string)) *Entry {
	a.building("Entry")
	change := a.OnChange(onChange)
	submit := a.OnSubmit(onSubmit)
	id := a.declare(TypeEntry, source, map[string]any{"placeholder": placeholder, "text": text}, change, submit)
	a.enqueue(protocol.CreateEntry{
		ID:               id,
		Placeholder:      placeholder,
		Text:             text,
		ChangeCallbackID: change.ID,
		SubmitCallbackID: submit.ID,
	})
	return &Entry{Widget{app: a, id: id}}
}

// Checkbox declares an unchecked checkbox. onChange may be nil.
func (a *App) Checkbox(label string, onChange func(ctx context.Context, checked bool)) *Checkbox {
	return a.checkbox(callerSource(), label, false, onChange)
}

func (a *App) checkbox(source, label string, checked bool, onChange func(ctx context.Context, checked bool)) *Checkbox {
	a.building("Checkbox")
	registration := a.OnCheck(onChange)
	id := a.declare(TypeCheckbox, source, map[string]any{"text": label, "checked": checked}, registration)
	a.enqueue(protocol.CreateCheckbox{ID: id, Label: label, Checked: checked, CallbackID: registration.ID})
	return &Checkbox{Widget{app: a, id: id}}
}

// CanvasStack declares a canvas of the given size drawing the scene
// build declares. The first frame is applied during the build pass; the
// returned Canvas refreshes later frames.
func (a *App) CanvasStack(width, height float64, build scene.BuildFunc) *Canvas {
	return a.canvasStack(callerSource(), width, height, build)
}

func (a *App) canvasStack(source string, width, height float64, build scene.BuildFunc) *Canvas {
	p := a.building("CanvasStack")
	id := a.declare(TypeCanvasStack, source, map[string]any{"width": width, "height": height})
	canvas := &Canvas{Widget: Widget{app: a, id: id}}
	if build == nil {
		build = func(*scene.Collector) {}
	}
	canvas.scene = scene.New(build, scene.Options{
		CanvasID: id,
		Applier:  scene.BridgeApplier{Dispatcher: a.dispatcher},
		IDs:      a.ids,
		Registry: a.registry,
		Logger:   a.logger,
	})
	a.enqueue(protocol.CreateCanvasStack{ID: id, Width: width, Height: height})
	if p.failed() {
		return canvas
	}
	if _, err := canvas.scene.Refresh(p.ctx); err != nil {
		p.fail(err)
	}
	return canvas
}
