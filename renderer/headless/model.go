// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package headless

import (
	"maps"
	"slices"

	"github.com/tsyne-foundation/tsyne/protocol"
)

// Widget kinds as reported by getAllWidgets.
const (
	KindVBox        = "vbox"
	KindHBox        = "hbox"
	KindScroll      = "scroll"
	KindCanvasStack = "canvasStack"
	KindLabel       = "label"
	KindButton      = "button"
	KindEntry       = "entry"
	KindCheckbox    = "checkbox"
	KindCircle      = "circle"
	KindRectangle   = "rectangle"
	KindLine        = "line"
	KindText        = "text"
)

// Callback slots on a widget.
const (
	slotClick  = "click"
	slotChange = "change"
	slotSubmit = "submit"
	slotDrag   = "drag"
)

type window struct {
	id            string
	title         string
	width, height int
	fixedSize     bool
	contentID     string
	shown         bool
	closeCallback string
}

type widget struct {
	id       string
	kind     string
	parentID string
	windowID string
	customID string

	text        string
	placeholder string
	enabled     bool
	visible     bool
	checked     bool

	children  []string
	callbacks map[string]string

	// geometry and style are set for canvas objects only.
	geometry map[string]float64
	style    *protocol.Style
}

func newWidget(id, kind string) *widget {
	return &widget{id: id, kind: kind, enabled: true, visible: true, callbacks: make(map[string]string)}
}

func (w *widget) isContainer() bool {
	switch w.kind {
	case KindVBox, KindHBox, KindScroll, KindCanvasStack:
		return true
	}
	return false
}

func (w *widget) isCanvasObject() bool {
	switch w.kind {
	case KindCircle, KindRectangle, KindLine, KindText:
		return true
	}
	return false
}

func (w *widget) info() protocol.WidgetInfo {
	info := protocol.WidgetInfo{
		ID:       w.id,
		Type:     w.kind,
		ParentID: w.parentID,
		WindowID: w.windowID,
		CustomID: w.customID,
		Text:     w.text,
		Enabled:  w.enabled,
		Visible:  w.visible,
		Checked:  w.checked,
		Children: slices.Clone(w.children),
	}
	if w.geometry != nil {
		info.Geometry = maps.Clone(w.geometry)
	}
	if w.style != nil {
		style := *w.style
		info.Style = &style
	}
	return info
}

// applyPatch copies the set fields of patch onto a canvas object.
func (w *widget) applyPatch(patch protocol.CanvasPatch) {
	set := func(name string, value *float64) {
		if value != nil {
			w.geometry[name] = *value
		}
	}
	set("x", patch.X)
	set("y", patch.Y)
	set("x2", patch.X2)
	set("y2", patch.Y2)
	set("width", patch.Width)
	set("height", patch.Height)
	set("radius", patch.Radius)
	set("cornerRadius", patch.CornerRadius)
	set("size", patch.Size)
	if patch.Text != nil {
		w.text = *patch.Text
	}
	if patch.Fill != nil {
		w.style.Fill = *patch.Fill
	}
	if patch.Stroke != nil {
		w.style.Stroke = *patch.Stroke
	}
	if patch.StrokeWidth != nil {
		w.style.StrokeWidth = *patch.StrokeWidth
	}
	if patch.Rotation != nil {
		w.style.Rotation = *patch.Rotation
	}
}
