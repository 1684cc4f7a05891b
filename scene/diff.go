// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"errors"
	"fmt"

	"github.com/tsyne-foundation/tsyne/protocol"
)

// ErrDuplicateKey reports two primitives with the same key in one frame.
var ErrDuplicateKey = errors.New("scene: duplicate primitive key")

// Entry is one keyed primitive of a frame.
type Entry struct {
	Key        string
	Kind       Kind
	Attributes Attributes
	Clickable  bool
	Draggable  bool
}

// OpKind is the kind of a patch operation.
type OpKind int

const (
	OpDelete OpKind = iota
	OpUpdate
	OpCreate
)

func (k OpKind) String() string {
	switch k {
	case OpDelete:
		return "delete"
	case OpUpdate:
		return "update"
	case OpCreate:
		return "create"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is one change to the renderer's canvas.
type Op struct {
	Kind      OpKind
	Key       string
	Primitive Kind

	// ID is the renderer object id. [Diff] leaves it empty; a [Scene]
	// fills it in before applying.
	ID string

	// Attributes are the full attributes of a created primitive.
	Attributes Attributes

	// Changes holds only the attributes an update changes.
	Changes protocol.CanvasPatch

	// Hooks are the callback ids of a created primitive.
	Hooks protocol.CanvasHooks
}

// Patch is the ordered difference between two frames.
type Patch []Op

// Counts returns how many operations of each kind the patch holds.
func (p Patch) Counts() (deletes, updates, creates int) {
	for _, op := range p {
		switch op.Kind {
		case OpDelete:
			deletes++
		case OpUpdate:
			updates++
		case OpCreate:
			creates++
		}
	}
	return deletes, updates, creates
}

// Diff returns the patch that turns previous into next: deletes for keys
// only in previous, updates carrying the changed attributes of keys in
// both, creates for keys only in next. Deletes keep previous's order;
// updates and creates keep next's. A key whose kind or hooks changed is
// deleted and created again. previous must have unique keys; a
// duplicate key in next is an error.
func Diff(previous, next []Entry) (Patch, error) {
	incoming := make(map[string]int, len(next))
	for i, entry := range next {
		if _, exists := incoming[entry.Key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, entry.Key)
		}
		incoming[entry.Key] = i
	}
	existing := make(map[string]Entry, len(previous))
	for _, entry := range previous {
		existing[entry.Key] = entry
	}

	var patch Patch
	for _, old := range previous {
		i, kept := incoming[old.Key]
		if kept && !replaced(old, next[i]) {
			continue
		}
		patch = append(patch, Op{Kind: OpDelete, Key: old.Key, Primitive: old.Kind})
	}
	for _, entry := range next {
		old, ok := existing[entry.Key]
		if !ok || replaced(old, entry) {
			continue
		}
		changes := changedAttributes(entry.Kind, old.Attributes, entry.Attributes)
		if changes.Empty() {
			continue
		}
		patch = append(patch, Op{Kind: OpUpdate, Key: entry.Key, Primitive: entry.Kind, Changes: changes})
	}
	for _, entry := range next {
		old, ok := existing[entry.Key]
		if ok && !replaced(old, entry) {
			continue
		}
		patch = append(patch, Op{Kind: OpCreate, Key: entry.Key, Primitive: entry.Kind, Attributes: entry.Attributes})
	}
	return patch, nil
}

func replaced(old, next Entry) bool {
	return old.Kind != next.Kind || old.Clickable != next.Clickable || old.Draggable != next.Draggable
}

// changedAttributes compares the attributes a kind renders.
func changedAttributes(kind Kind, old, next Attributes) protocol.CanvasPatch {
	var patch protocol.CanvasPatch
	number := func(field **float64, before, after float64) {
		if before != after {
			*field = &after
		}
	}
	text := func(field **string, before, after string) {
		if before != after {
			*field = &after
		}
	}

	number(&patch.X, old.X, next.X)
	number(&patch.Y, old.Y, next.Y)
	text(&patch.Fill, old.Fill, next.Fill)
	text(&patch.Stroke, old.Stroke, next.Stroke)
	number(&patch.StrokeWidth, old.StrokeWidth, next.StrokeWidth)
	number(&patch.Rotation, old.Rotation, next.Rotation)
	switch kind {
	case KindCircle:
		number(&patch.Radius, old.Radius, next.Radius)
	case KindRectangle:
		number(&patch.Width, old.Width, next.Width)
		number(&patch.Height, old.Height, next.Height)
		number(&patch.CornerRadius, old.CornerRadius, next.CornerRadius)
	case KindLine:
		number(&patch.X2, old.X2, next.X2)
		number(&patch.Y2, old.Y2, next.Y2)
	case KindText:
		text(&patch.Text, old.Text, next.Text)
		number(&patch.Size, old.Size, next.Size)
	}
	return patch
}
