// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"strconv"
)

// Kind is a canvas primitive type.
type Kind string

const (
	KindCircle    Kind = "circle"
	KindRectangle Kind = "rectangle"
	KindLine      Kind = "line"
	KindText      Kind = "text"
)

// Point is a position on the canvas.
type Point struct {
	X, Y float64
}

// Attributes are the renderable state of one primitive. X and Y are the
// centre of a circle, the origin of a rectangle, the first endpoint of
// a line and the anchor of a text. Colours are normalised "#rrggbbaa".
type Attributes struct {
	X, Y         float64
	X2, Y2       float64
	Width        float64
	Height       float64
	Radius       float64
	CornerRadius float64
	Size         float64
	Text         string
	Fill         string
	Stroke       string
	StrokeWidth  float64
	Rotation     float64
}

// ClickEvent is a tap on a primitive, relative to the canvas.
type ClickEvent struct {
	X, Y float64
}

// DragEvent is one step of a drag gesture. Phase is "start", "move" or
// "end"; DeltaX and DeltaY are the movement since the previous step.
type DragEvent struct {
	Phase          string
	X, Y           float64
	DeltaX, DeltaY float64
}

// Primitive is one declared shape. It is only valid during the refresh
// that declared it.
type Primitive struct {
	kind  Kind
	key   string
	scope string
	attrs Attributes

	position func() Point
	rotation func() float64
	fill     func() string

	onClick func(context.Context, ClickEvent)
	onDrag  func(context.Context, DragEvent)
}

// Kind returns the primitive's type.
func (p *Primitive) Kind() Kind { return p.kind }

// WithID keys the primitive explicitly. Keys must be unique within the
// enclosing [Each] item, or within the scene outside any Each.
func (p *Primitive) WithID(key string) *Primitive {
	p.key = key
	return p
}

// BindPosition makes the primitive's position follow fn. fn is called
// once per refresh.
func (p *Primitive) BindPosition(fn func() Point) *Primitive {
	p.position = fn
	return p
}

// BindRotation makes the rotation, in degrees, follow fn.
func (p *Primitive) BindRotation(fn func() float64) *Primitive {
	p.rotation = fn
	return p
}

// BindFill makes the fill colour follow fn. The result goes through
// [ParseFill].
func (p *Primitive) BindFill(fn func() string) *Primitive {
	p.fill = fn
	return p
}

// Fill sets a static fill colour.
func (p *Primitive) Fill(color string) *Primitive {
	p.attrs.Fill = color
	return p
}

// Stroke sets a static outline.
func (p *Primitive) Stroke(color string, width float64) *Primitive {
	p.attrs.Stroke = color
	p.attrs.StrokeWidth = width
	return p
}

// Rotate sets a static rotation in degrees.
func (p *Primitive) Rotate(degrees float64) *Primitive {
	p.attrs.Rotation = degrees
	return p
}

// OnClick makes the primitive tappable. Whether a primitive has a click
// hook is fixed when it is created: adding or removing the hook later
// replaces the primitive on the renderer. The function itself may
// change between refreshes.
func (p *Primitive) OnClick(fn func(context.Context, ClickEvent)) *Primitive {
	p.onClick = fn
	return p
}

// OnDrag makes the primitive draggable, under the same rules as
// OnClick.
func (p *Primitive) OnDrag(fn func(context.Context, DragEvent)) *Primitive {
	p.onDrag = fn
	return p
}

// evaluate calls each binding once and returns the final attributes.
func (p *Primitive) evaluate() (Attributes, error) {
	attrs := p.attrs
	if p.position != nil {
		point := p.position()
		if p.kind == KindLine {
			// A line moves as a whole.
			attrs.X2 += point.X - attrs.X
			attrs.Y2 += point.Y - attrs.Y
		}
		attrs.X, attrs.Y = point.X, point.Y
	}
	if p.rotation != nil {
		attrs.Rotation = p.rotation()
	}
	if p.fill != nil {
		attrs.Fill = p.fill()
	}
	for _, color := range []*string{&attrs.Fill, &attrs.Stroke} {
		if *color == "" {
			continue
		}
		normalised, err := ParseFill(*color)
		if err != nil {
			return Attributes{}, err
		}
		*color = normalised
	}
	return attrs, nil
}

func positionalKey(kind Kind, n int) string {
	return string(kind) + "#" + strconv.Itoa(n)
}
