// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// Style is the paint shared by every canvas primitive. Colours are
// "#rrggbbaa" strings; Rotation is in degrees around the primitive's
// centre.
type Style struct {
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Rotation    float64 `json:"rotation,omitempty"`
}

// CanvasHooks are the optional interaction callbacks of a primitive.
type CanvasHooks struct {
	CallbackID     string `json:"callbackId,omitempty"`
	DragCallbackID string `json:"dragCallbackId,omitempty"`
}

type CreateCanvasCircle struct {
	ID       string      `json:"id"`
	CanvasID string      `json:"canvasId,omitempty"`
	CX       float64     `json:"cx"`
	CY       float64     `json:"cy"`
	Radius   float64     `json:"radius"`
	Style    Style       `json:"style"`
	Hooks    CanvasHooks `json:"hooks"`
}

func (CreateCanvasCircle) OperationType() string { return "createCanvasCircle" }
func (o CreateCanvasCircle) Validate() error     { return requireField("id", o.ID) }

type CreateCanvasRectangle struct {
	ID           string      `json:"id"`
	CanvasID     string      `json:"canvasId,omitempty"`
	X            float64     `json:"x"`
	Y            float64     `json:"y"`
	Width        float64     `json:"width"`
	Height       float64     `json:"height"`
	CornerRadius float64     `json:"cornerRadius,omitempty"`
	Style        Style       `json:"style"`
	Hooks        CanvasHooks `json:"hooks"`
}

func (CreateCanvasRectangle) OperationType() string { return "createCanvasRectangle" }
func (o CreateCanvasRectangle) Validate() error     { return requireField("id", o.ID) }

type CreateCanvasLine struct {
	ID       string      `json:"id"`
	CanvasID string      `json:"canvasId,omitempty"`
	X1       float64     `json:"x1"`
	Y1       float64     `json:"y1"`
	X2       float64     `json:"x2"`
	Y2       float64     `json:"y2"`
	Style    Style       `json:"style"`
	Hooks    CanvasHooks `json:"hooks"`
}

func (CreateCanvasLine) OperationType() string { return "createCanvasLine" }
func (o CreateCanvasLine) Validate() error     { return requireField("id", o.ID) }

type CreateCanvasText struct {
	ID       string      `json:"id"`
	CanvasID string      `json:"canvasId,omitempty"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Text     string      `json:"text"`
	Size     float64     `json:"size,omitempty"`
	Style    Style       `json:"style"`
	Hooks    CanvasHooks `json:"hooks"`
}

func (CreateCanvasText) OperationType() string { return "createCanvasText" }
func (o CreateCanvasText) Validate() error     { return requireField("id", o.ID) }

// CanvasPatch carries only the attributes that changed. Nil fields are
// left as they are on the renderer.
type CanvasPatch struct {
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	X2           *float64 `json:"x2,omitempty"`
	Y2           *float64 `json:"y2,omitempty"`
	Width        *float64 `json:"width,omitempty"`
	Height       *float64 `json:"height,omitempty"`
	Radius       *float64 `json:"radius,omitempty"`
	CornerRadius *float64 `json:"cornerRadius,omitempty"`
	Size         *float64 `json:"size,omitempty"`
	Text         *string  `json:"text,omitempty"`
	Fill         *string  `json:"fill,omitempty"`
	Stroke       *string  `json:"stroke,omitempty"`
	StrokeWidth  *float64 `json:"strokeWidth,omitempty"`
	Rotation     *float64 `json:"rotation,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p CanvasPatch) Empty() bool {
	return p.X == nil && p.Y == nil && p.X2 == nil && p.Y2 == nil &&
		p.Width == nil && p.Height == nil && p.Radius == nil &&
		p.CornerRadius == nil && p.Size == nil && p.Text == nil &&
		p.Fill == nil && p.Stroke == nil && p.StrokeWidth == nil &&
		p.Rotation == nil
}

// For a circle, X and Y in the patch are the centre. For a line, X/Y
// and X2/Y2 are the endpoints.

type UpdateCanvasCircle struct {
	ID    string      `json:"id"`
	Patch CanvasPatch `json:"patch"`
}

func (UpdateCanvasCircle) OperationType() string { return "updateCanvasCircle" }
func (o UpdateCanvasCircle) Validate() error     { return requireField("id", o.ID) }

type UpdateCanvasRectangle struct {
	ID    string      `json:"id"`
	Patch CanvasPatch `json:"patch"`
}

func (UpdateCanvasRectangle) OperationType() string { return "updateCanvasRectangle" }
func (o UpdateCanvasRectangle) Validate() error     { return requireField("id", o.ID) }

type UpdateCanvasLine struct {
	ID    string      `json:"id"`
	Patch CanvasPatch `json:"patch"`
}

func (UpdateCanvasLine) OperationType() string { return "updateCanvasLine" }
func (o UpdateCanvasLine) Validate() error     { return requireField("id", o.ID) }

type UpdateCanvasText struct {
	ID    string      `json:"id"`
	Patch CanvasPatch `json:"patch"`
}

func (UpdateCanvasText) OperationType() string { return "updateCanvasText" }
func (o UpdateCanvasText) Validate() error     { return requireField("id", o.ID) }

type RemoveCanvasObject struct {
	ID       string `json:"id"`
	CanvasID string `json:"canvasId,omitempty"`
}

func (RemoveCanvasObject) OperationType() string { return "removeCanvasObject" }
func (o RemoveCanvasObject) Validate() error     { return requireField("id", o.ID) }
