// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import "fmt"

// Collector receives the primitives a scene function declares.
type Collector struct {
	primitives []*Primitive
	scope      string
}

// BuildFunc declares one frame of a scene.
type BuildFunc func(c *Collector)

func (c *Collector) add(kind Kind, attrs Attributes) *Primitive {
	p := &Primitive{kind: kind, scope: c.scope, attrs: attrs}
	c.primitives = append(c.primitives, p)
	return p
}

// Circle declares a circle centred on (x, y).
func (c *Collector) Circle(x, y, radius float64) *Primitive {
	return c.add(KindCircle, Attributes{X: x, Y: y, Radius: radius})
}

// Rectangle declares a rectangle with its origin at (x, y).
func (c *Collector) Rectangle(x, y, width, height float64) *Primitive {
	return c.add(KindRectangle, Attributes{X: x, Y: y, Width: width, Height: height})
}

// RoundedRectangle declares a rectangle with rounded corners.
func (c *Collector) RoundedRectangle(x, y, width, height, cornerRadius float64) *Primitive {
	return c.add(KindRectangle, Attributes{X: x, Y: y, Width: width, Height: height, CornerRadius: cornerRadius})
}

// Line declares a line from (x1, y1) to (x2, y2).
func (c *Collector) Line(x1, y1, x2, y2 float64) *Primitive {
	return c.add(KindLine, Attributes{X: x1, Y: y1, X2: x2, Y2: y2})
}

// Text declares a text anchored at (x, y).
func (c *Collector) Text(x, y float64, text string) *Primitive {
	return c.add(KindText, Attributes{X: x, Y: y, Text: text})
}

// TextSize declares a text with an explicit font size.
func (c *Collector) TextSize(x, y float64, text string, size float64) *Primitive {
	return c.add(KindText, Attributes{X: x, Y: y, Text: text, Size: size})
}

// Len returns the number of primitives declared so far.
func (c *Collector) Len() int { return len(c.primitives) }

// Each declares the primitives of every item with fn, scoping their keys
// under key(item). Items that keep their key across refreshes keep
// their primitives, wherever they move in the list.
func Each[T any](c *Collector, items []T, key func(T) string, fn func(c *Collector, item T)) {
	outer := c.scope
	defer func() { c.scope = outer }()
	for _, item := range items {
		c.scope = outer + key(item) + "/"
		fn(c, item)
	}
}

// declared is one primitive of a collected frame with its resolved key
// and evaluated attributes.
type declared struct {
	entry     Entry
	primitive *Primitive
}

// resolve assigns keys and evaluates bindings, once per primitive.
func (c *Collector) resolve() ([]declared, error) {
	positions := make(map[string]int)
	frame := make([]declared, 0, len(c.primitives))
	for _, p := range c.primitives {
		key := p.key
		if key == "" {
			counter := p.scope + string(p.kind)
			key = positionalKey(p.kind, positions[counter])
			positions[counter]++
		}
		key = p.scope + key
		attrs, err := p.evaluate()
		if err != nil {
			return nil, fmt.Errorf("primitive %s: %w", key, err)
		}
		frame = append(frame, declared{
			entry: Entry{
				Key:        key,
				Kind:       p.kind,
				Attributes: attrs,
				Clickable:  p.onClick != nil,
				Draggable:  p.onDrag != nil,
			},
			primitive: p,
		})
	}
	return frame, nil
}
