// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsyne-foundation/tsyne/lib/testutil"
	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/scene"
)

// exported is a description as page code exports it: plain maps,
// slices and scalars.
var exported = map[string]any{
	"type": "window",
	"text": "Todo",
	"children": []any{
		map[string]any{"type": "label", "text": "Things", "id": "heading"},
		map[string]any{
			"type": "hbox",
			"children": []any{
				map[string]any{"type": "entry", "placeholder": "new item", "action": "add"},
				map[string]any{"type": "button", "text": "Clear", "action": "clear"},
			},
		},
		map[string]any{"type": "checkbox", "text": "Hide done", "checked": true},
	},
}

func TestDecodeDescription(t *testing.T) {
	t.Parallel()
	got, err := DecodeDescription(exported)
	if err != nil {
		t.Fatalf("DecodeDescription: %v", err)
	}
	want := Description{
		Type: "window",
		Text: "Todo",
		Children: []Description{
			{Type: "label", Text: "Things", ID: "heading"},
			{Type: "hbox", Children: []Description{
				{Type: "entry", Placeholder: "new item", Action: "add"},
				{Type: "button", Text: "Clear", Action: "clear"},
			}},
			{Type: "checkbox", Text: "Hide done", Checked: true},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("description mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptionValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		description Description
	}{
		{"missing type", Description{}},
		{"unknown type", Description{Type: "slider"}},
		{"nested window", Description{Type: "vbox", Children: []Description{{Type: "window"}}}},
		{"label with children", Description{Type: "label", Children: []Description{{Type: "label"}}}},
		{"deep error", Description{Type: "vbox", Children: []Description{{Type: "hbox", Children: []Description{{Type: "?"}}}}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if err := test.description.Validate(); !errors.Is(err, ErrInvalidDescription) {
				t.Errorf("Validate = %v, want ErrInvalidDescription", err)
			}
		})
	}
}

func TestBuildDescription(t *testing.T) {
	t.Parallel()
	app, toolkit := startApp(t, "page")
	description, err := DecodeDescription(exported)
	if err != nil {
		t.Fatal(err)
	}

	fired := make(chan ActionEvent, 4)
	record := func(_ context.Context, event ActionEvent) { fired <- event }
	mustBuild(t, app, func() error {
		return app.BuildDescription(description, Actions{"add": record, "clear": record})
	})

	inspector := app.Inspector()
	heading, ok := inspector.Node("heading")
	if !ok || heading.Source != "description:/0" || heading.Properties["text"] != "Things" {
		t.Fatalf("heading = %+v, %v", heading, ok)
	}
	var entryID, buttonID string
	for _, n := range inspector.Nodes() {
		switch n.Source {
		case "description:/1/0":
			entryID = n.ID
		case "description:/1/1":
			buttonID = n.ID
		}
	}
	if entryID == "" || buttonID == "" {
		t.Fatalf("entry %q, button %q not found by source", entryID, buttonID)
	}
	for _, info := range toolkit.Snapshot() {
		if info.Type == "checkbox" && !info.Checked {
			t.Error("checkbox not created checked")
		}
	}

	ctx := testContext(t)
	if err := app.Dispatcher().Request(ctx, protocol.TypeText{WidgetID: entryID, Text: "eggs", Submit: true}, nil); err != nil {
		t.Fatal(err)
	}
	got := testutil.RequireReceive(t, fired, testTimeout, "add action")
	if diff := cmp.Diff(ActionEvent{Action: "add", WidgetID: entryID, Text: "eggs"}, got); diff != "" {
		t.Errorf("add event mismatch (-want +got):\n%s", diff)
	}
	if err := app.Dispatcher().Request(ctx, protocol.ClickWidget{WidgetID: buttonID}, nil); err != nil {
		t.Fatal(err)
	}
	got = testutil.RequireReceive(t, fired, testTimeout, "clear action")
	if got.Action != "clear" || got.WidgetID != buttonID {
		t.Errorf("clear event = %+v", got)
	}
}

func TestDescriptionActionNames(t *testing.T) {
	t.Parallel()
	description, err := DecodeDescription(exported)
	if err != nil {
		t.Fatalf("DecodeDescription: %v", err)
	}
	description.Children = append(description.Children, Description{Type: TypeButton, Text: "Add", Action: "add"})
	if diff := cmp.Diff([]string{"add", "clear"}, description.ActionNames()); diff != "" {
		t.Errorf("ActionNames mismatch (-want +got):\n%s", diff)
	}
	if names := (Description{Type: TypeLabel}).ActionNames(); len(names) != 0 {
		t.Errorf("label ActionNames = %v, want none", names)
	}
}

func TestBuildDescriptionRejectsUnknownAction(t *testing.T) {
	t.Parallel()
	app, toolkit := startApp(t, "")
	err := app.Build(testContext(t), func() error {
		return app.BuildDescription(Description{Type: "button", Text: "Go", Action: "launch"}, nil)
	})
	if !errors.Is(err, ErrInvalidDescription) {
		t.Fatalf("Build = %v, want ErrInvalidDescription", err)
	}
	if n := len(toolkit.Snapshot()); n != 0 {
		t.Errorf("%d widgets created from an invalid description", n)
	}
}

func TestCanvasStack(t *testing.T) {
	t.Parallel()
	app, toolkit := startApp(t, "")

	x := 10.0
	var canvas *Canvas
	mustBuild(t, app, func() error {
		canvas = app.CanvasStack(100, 50, func(c *scene.Collector) {
			c.Circle(0, 25, 5).WithID("dot").BindPosition(func() scene.Point { return scene.Point{X: x, Y: 25} })
			c.Line(0, 0, 100, 0)
		})
		return nil
	})

	dotID, ok := canvas.Scene().ObjectID("dot")
	if !ok {
		t.Fatal("dot not mounted")
	}
	if got := rendered(toolkit)[dotID]; got.ParentID != canvas.ID() || got.Geometry["x"] != 10 {
		t.Errorf("dot = %+v", got)
	}

	x = 60
	patch, err := canvas.Refresh(testContext(t))
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(patch) != 1 || patch[0].Kind != scene.OpUpdate {
		t.Errorf("patch = %+v, want one update", patch)
	}
	if got := rendered(toolkit)[dotID].Geometry["x"]; got != 60 {
		t.Errorf("dot x = %v, want 60", got)
	}
	if info, _ := app.Inspector().Node(canvas.ID()); info.Type != TypeCanvasStack || info.Properties["width"] != 100.0 {
		t.Errorf("canvas info = %+v", info)
	}
}
