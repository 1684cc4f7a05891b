// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Operations that drive and inspect the renderer from tests and tools.
// A headless renderer implements them against its in-memory model; a
// desktop renderer synthesizes the corresponding input events.

// ClickWidget taps a widget. The renderer emits the widget's callback
// event if it has one.
type ClickWidget struct {
	WidgetID string  `json:"widgetId"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
}

func (ClickWidget) OperationType() string { return "clickWidget" }
func (o ClickWidget) Validate() error     { return requireField("widgetId", o.WidgetID) }

// TypeText appends text to an entry, emitting change events.
type TypeText struct {
	WidgetID string `json:"widgetId"`
	Text     string `json:"text"`
	Submit   bool   `json:"submit,omitempty"`
}

func (TypeText) OperationType() string { return "typeText" }
func (o TypeText) Validate() error     { return requireField("widgetId", o.WidgetID) }

// DragWidget drags a widget or canvas primitive from one point to
// another in Steps move events.
type DragWidget struct {
	WidgetID string  `json:"widgetId"`
	FromX    float64 `json:"fromX"`
	FromY    float64 `json:"fromY"`
	ToX      float64 `json:"toX"`
	ToY      float64 `json:"toY"`
	Steps    int     `json:"steps,omitempty"`
}

func (DragWidget) OperationType() string { return "dragWidget" }
func (o DragWidget) Validate() error     { return requireField("widgetId", o.WidgetID) }

type GetAllWidgets struct{}

func (GetAllWidgets) OperationType() string { return "getAllWidgets" }

// GetWidgetInfo looks a widget up by ID or by custom ID.
type GetWidgetInfo struct {
	WidgetID string `json:"widgetId"`
}

func (GetWidgetInfo) OperationType() string { return "getWidgetInfo" }
func (o GetWidgetInfo) Validate() error     { return requireField("widgetId", o.WidgetID) }

// WidgetInfo is the renderer's view of one widget.
type WidgetInfo struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	ParentID string             `json:"parentId,omitempty"`
	WindowID string             `json:"windowId,omitempty"`
	CustomID string             `json:"customId,omitempty"`
	Text     string             `json:"text,omitempty"`
	Enabled  bool               `json:"enabled"`
	Visible  bool               `json:"visible"`
	Checked  bool               `json:"checked,omitempty"`
	Children []string           `json:"children,omitempty"`
	Geometry map[string]float64 `json:"geometry,omitempty"`
	Style    *Style             `json:"style,omitempty"`
}

// WidgetsResult answers GetAllWidgets.
type WidgetsResult struct {
	Widgets []WidgetInfo `json:"widgets"`
}
