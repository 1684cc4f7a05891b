// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/tsyne-foundation/tsyne/lib/codec"
)

// Description is a widget tree as plain data. Page code running in the
// sandbox cannot hand functions to the host, so interactions name an
// Action instead, resolved against the host's [Actions] when the tree
// is built.
type Description struct {
	Type        string        `json:"type"`
	Text        string        `json:"text,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	ID          string        `json:"id,omitempty"`
	Width       int           `json:"width,omitempty"`
	Height      int           `json:"height,omitempty"`
	Checked     bool          `json:"checked,omitempty"`
	Action      string        `json:"action,omitempty"`
	Children    []Description `json:"children,omitempty"`
}

// ActionEvent describes the interaction that fired an action.
type ActionEvent struct {
	Action   string
	WidgetID string
	Text     string
	Checked  bool
}

// Actions maps action names to host functions.
type Actions map[string]func(ctx context.Context, event ActionEvent)

// ErrInvalidDescription reports a description that cannot be built.
var ErrInvalidDescription = errors.New("ui: invalid description")

// DecodeDescription converts a sandbox export, a tree of maps, slices
// and scalars, into a Description.
func DecodeDescription(value any) (Description, error) {
	data, err := codec.Marshal(value)
	if err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}
	var description Description
	if err := codec.Unmarshal(data, &description); err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}
	return description, nil
}

// Validate checks the tree's shape: known types, windows only at the
// root, children only under containers.
func (d Description) Validate() error {
	return d.validate("", true)
}

func (d Description) validate(path string, root bool) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: /%s: %s", ErrInvalidDescription, path, fmt.Sprintf(format, args...))
	}
	container := false
	switch d.Type {
	case TypeWindow:
		if !root {
			return fail("a window can only be the root")
		}
		container = true
	case TypeVBox, TypeHBox, TypeScroll:
		container = true
	case TypeLabel, TypeButton, TypeEntry, TypeCheckbox:
	case "":
		return fail("missing type")
	default:
		return fail("unknown type %q", d.Type)
	}
	if !container && len(d.Children) > 0 {
		return fail("a %s has no children", d.Type)
	}
	for i, child := range d.Children {
		if err := child.validate(childPath(path, i), false); err != nil {
			return err
		}
	}
	return nil
}

func childPath(path string, i int) string {
	if path == "" {
		return strconv.Itoa(i)
	}
	return path + "/" + strconv.Itoa(i)
}

// BuildDescription declares the tree d inside the current build pass.
// Windows are shown once built. Each node's Source is
// "description:/<path>". An Action with no entry in actions is an
// error before anything is declared.
func (a *App) BuildDescription(d Description, actions Actions) error {
	a.building("BuildDescription")
	if err := d.Validate(); err != nil {
		return err
	}
	if err := checkActions(d, actions); err != nil {
		return err
	}
	a.describe(d, "", actions)
	return nil
}

// ActionNames returns the distinct actions the tree refers to, sorted.
func (d Description) ActionNames() []string {
	var names []string
	var walk func(d Description)
	walk = func(d Description) {
		if d.Action != "" {
			names = append(names, d.Action)
		}
		for _, child := range d.Children {
			walk(child)
		}
	}
	walk(d)
	slices.Sort(names)
	return slices.Compact(names)
}

func checkActions(d Description, actions Actions) error {
	if d.Action != "" {
		if _, ok := actions[d.Action]; !ok {
			return fmt.Errorf("%w: unknown action %q", ErrInvalidDescription, d.Action)
		}
	}
	for _, child := range d.Children {
		if err := checkActions(child, actions); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) describe(d Description, path string, actions Actions) {
	source := "description:/" + path
	children := func() error {
		for i, child := range d.Children {
			a.describe(child, childPath(path, i), actions)
		}
		return nil
	}

	var widget *Widget
	switch d.Type {
	case TypeWindow:
		a.window(source, d.Text, WindowOptions{Width: d.Width, Height: d.Height, Show: true}, children)
		return
	case TypeVBox, TypeHBox:
		widget = &a.box(source, d.Type, children).Widget
	case TypeScroll:
		widget = &a.scroll(source, children).Widget
	case TypeLabel:
		widget = a.label(source, d.Text)
	case TypeButton:
		var onClick func(ctx context.Context)
		if action := actions[d.Action]; action != nil {
			var id string
			onClick = func(ctx context.Context) {
				action(ctx, ActionEvent{Action: d.Action, WidgetID: id})
			}
			widget = a.button(source, d.Text, onClick)
			id = widget.id
		} else {
			widget = a.button(source, d.Text, nil)
		}
	case TypeEntry:
		var onSubmit func(ctx context.Context, text string)
		var id string
		if action := actions[d.Action]; action != nil {
			onSubmit = func(ctx context.Context, text string) {
				action(ctx, ActionEvent{Action: d.Action, WidgetID: id, Text: text})
			}
		}
		widget = &a.entry(source, d.Placeholder, d.Text, nil, onSubmit).Widget
		id = widget.id
	case TypeCheckbox:
		var onChange func(ctx context.Context, checked bool)
		var id string
		if action := actions[d.Action]; action != nil {
			onChange = func(ctx context.Context, checked bool) {
				action(ctx, ActionEvent{Action: d.Action, WidgetID: id, Checked: checked})
			}
		}
		widget = &a.checkbox(source, d.Text, d.Checked, onChange).Widget
		id = widget.id
	}
	if d.ID != "" {
		widget.WithID(d.ID)
	}
}
