// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsyne-foundation/tsyne/bridge"
	"github.com/tsyne-foundation/tsyne/lib/testutil"
	"github.com/tsyne-foundation/tsyne/protocol"
)

func TestCounter(t *testing.T) {
	t.Parallel()
	app, toolkit := startApp(t, "counter")

	updated := make(chan struct{}, 4)
	var window *Window
	var count *Widget
	var button *Widget
	n := 0
	mustBuild(t, app, func() error {
		window = app.Window("Counter", WindowOptions{Width: 200, Height: 100, Show: true}, func() error {
			app.VBox(func() error {
				count = app.Label("0").WithID("count")
				button = app.Button("+1", func(ctx context.Context) {
					n++
					if err := count.SetText(ctx, strconv.Itoa(n)); err != nil {
						t.Errorf("SetText: %v", err)
					}
					updated <- struct{}{}
				})
				return nil
			})
			return nil
		})
		return nil
	})

	if title, ok := toolkit.WindowTitle(window.ID()); !ok || title != "Counter" {
		t.Fatalf("window title = %q, %v", title, ok)
	}
	widgets := rendered(toolkit)
	label := widgets[count.ID()]
	if label.CustomID != "count" || label.Text != "0" || label.WindowID != window.ID() {
		t.Errorf("label = %+v", label)
	}
	box := widgets[label.ParentID]
	if diff := cmp.Diff([]string{count.ID(), button.ID()}, box.Children); diff != "" {
		t.Errorf("box children mismatch (-want +got):\n%s", diff)
	}

	ctx := testContext(t)
	for range 2 {
		if err := app.Dispatcher().Request(ctx, protocol.ClickWidget{WidgetID: button.ID()}, nil); err != nil {
			t.Fatalf("click: %v", err)
		}
		testutil.RequireReceive(t, updated, testTimeout, "counter update")
	}
	text, err := count.Text(ctx)
	if err != nil || text != "2" {
		t.Errorf("Text = %q, %v, want 2", text, err)
	}
	info, _ := app.Inspector().Node("count")
	if info.Properties["text"] != "2" {
		t.Errorf("inspector text = %v, want 2", info.Properties["text"])
	}
}

func TestIDsCarryNamespace(t *testing.T) {
	t.Parallel()
	app, _ := startApp(t, "app1")

	var first, second *Widget
	mustBuild(t, app, func() error {
		first = app.Label("a")
		return nil
	})
	if !strings.HasPrefix(first.ID(), "app1:label_") {
		t.Errorf("id = %q, want the app1 namespace", first.ID())
	}
	if err := first.Destroy(testContext(t)); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	mustBuild(t, app, func() error {
		second = app.Label("b")
		return nil
	})
	if second.ID() == first.ID() {
		t.Errorf("destroyed id %s was reused", first.ID())
	}
}

func TestSeveralChildrenShareAnImplicitBox(t *testing.T) {
	t.Parallel()
	app, toolkit := startApp(t, "")

	var window *Window
	var a, b *Widget
	mustBuild(t, app, func() error {
		window = app.Window("Two", WindowOptions{}, func() error {
			a = app.Label("a")
			b = app.Label("b")
			return nil
		})
		return nil
	})

	parent := rendered(toolkit)[a.ID()].ParentID
	if parent == "" || rendered(toolkit)[b.ID()].ParentID != parent {
		t.Fatalf("labels are not siblings in one box")
	}
	children := app.Inspector().Children(window.ID())
	if len(children) != 1 || children[0].Type != TypeVBox || children[0].ID != parent {
		t.Errorf("window children = %+v", children)
	}
}

func TestBuildReturnsClosureError(t *testing.T) {
	t.Parallel()
	app, toolkit := startApp(t, "")
	failure := errors.New("no data")

	err := app.Build(testContext(t), func() error {
		app.VBox(func() error {
			app.Label("before")
			app.HBox(func() error { return failure })
			app.Label("after")
			return nil
		})
		return nil
	})
	if !errors.Is(err, failure) {
		t.Fatalf("Build = %v, want %v", err, failure)
	}
	if app.stack.Depth() != 0 {
		t.Errorf("stack depth = %d after a failed build", app.stack.Depth())
	}
	for _, info := range toolkit.Snapshot() {
		if info.Text == "after" {
			t.Errorf("widget declared after the failure was created")
		}
	}

	mustBuild(t, app, func() error {
		app.Label("recovered")
		return nil
	})
}

func TestBuildPropagatesPanics(t *testing.T) {
	t.Parallel()
	app, _ := startApp(t, "")

	func() {
		defer func() {
			if recovered := recover(); recovered != "broken" {
				t.Errorf("recovered %v, want broken", recovered)
			}
		}()
		app.Build(testContext(t), func() error {
			app.Window("w", WindowOptions{}, func() error {
				app.VBox(func() error { panic("broken") })
				return nil
			})
			return nil
		})
	}()

	if app.stack.Depth() != 0 || app.stack.WindowDepth() != 0 {
		t.Errorf("stack not unwound: depth %d, windows %d", app.stack.Depth(), app.stack.WindowDepth())
	}
	if app.pass.Load() != nil {
		t.Error("build pass still set after panic")
	}
	mustBuild(t, app, func() error {
		app.Label("again")
		return nil
	})
}

func TestBuildReturnsRendererFailure(t *testing.T) {
	t.Parallel()
	app, _ := startApp(t, "")

	err := app.Build(testContext(t), func() error {
		app.Label("a").WithID("taken")
		app.Label("b").WithID("taken")
		return nil
	})
	var applicationError *bridge.ApplicationError
	if !errors.As(err, &applicationError) || applicationError.Operation != "registerCustomId" {
		t.Fatalf("Build = %v, want a registerCustomId failure", err)
	}
}

func TestFactoriesNeedABuild(t *testing.T) {
	t.Parallel()
	app, _ := startApp(t, "")
	defer func() {
		if recover() == nil {
			t.Error("Label outside Build did not panic")
		}
	}()
	app.Label("stray")
}

func TestInspector(t *testing.T) {
	t.Parallel()
	app, _ := startApp(t, "")

	var scroll *Container
	var label *Widget
	mustBuild(t, app, func() error {
		scroll = app.Scroll(func() error {
			label = app.Label("inside").WithID("greeting")
			return nil
		})
		return nil
	})

	inspector := app.Inspector()
	info, ok := inspector.Node(label.ID())
	if !ok {
		t.Fatal("label not recorded")
	}
	if info.ParentID != scroll.ID() || info.CustomID != "greeting" || info.Type != TypeLabel {
		t.Errorf("label info = %+v", info)
	}
	file, line, found := strings.Cut(info.Source, ".go:")
	if !found || filepath.Base(file) != "builder_test" {
		t.Errorf("source = %q, want a location in builder_test.go", info.Source)
	}
	if _, err := strconv.Atoi(line); err != nil {
		t.Errorf("source line %q: %v", line, err)
	}

	byKey, ok := inspector.Node("greeting")
	if !ok || byKey.ID != label.ID() {
		t.Errorf("Node(greeting) = %+v, %v", byKey, ok)
	}
	children := inspector.Children(scroll.ID())
	if len(children) != 1 || children[0].ID != label.ID() {
		t.Errorf("scroll children = %+v", children)
	}

	info.Properties["text"] = "mutated"
	again, _ := inspector.Node(label.ID())
	if again.Properties["text"] != "inside" {
		t.Error("Node returned the live properties map")
	}

	var out strings.Builder
	if err := inspector.Fprint(&out); err != nil {
		t.Fatal(err)
	}
	want := "scroll " + scroll.ID() + "\n  label " + label.ID() + " #greeting text=inside\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("outline mismatch (-want +got):\n%s", diff)
	}
}

func TestDestroyReleasesCallbacks(t *testing.T) {
	t.Parallel()
	app, toolkit := startApp(t, "")

	var box *Container
	mustBuild(t, app, func() error {
		box = app.VBox(func() error {
			app.Button("one", func(context.Context) {})
			app.Entry("name", func(context.Context, string) {}, func(context.Context, string) {})
			app.Label("plain")
			return nil
		})
		return nil
	})
	if got := app.Registry().Len(); got != 3 {
		t.Fatalf("registry holds %d handlers, want 3", got)
	}

	if err := box.Destroy(testContext(t)); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if got := app.Registry().Len(); got != 0 {
		t.Errorf("registry holds %d handlers after Destroy", got)
	}
	if nodes := app.Inspector().Nodes(); len(nodes) != 0 {
		t.Errorf("inspector still lists %d nodes", len(nodes))
	}
	if widgets := toolkit.Snapshot(); len(widgets) != 0 {
		t.Errorf("renderer still holds %d widgets", len(widgets))
	}
}

func TestEntryAndCheckboxEvents(t *testing.T) {
	t.Parallel()
	app, _ := startApp(t, "")

	changes := make(chan string, 8)
	submits := make(chan string, 2)
	toggles := make(chan bool, 2)
	var entry *Entry
	var checkbox *Checkbox
	mustBuild(t, app, func() error {
		app.VBox(func() error {
			entry = app.Entry("todo",
				func(_ context.Context, text string) { changes <- text },
				func(_ context.Context, text string) { submits <- text },
			)
			checkbox = app.Checkbox("done", func(_ context.Context, checked bool) { toggles <- checked })
			return nil
		})
		return nil
	})

	ctx := testContext(t)
	if err := entry.Type(ctx, "milk", true); err != nil {
		t.Fatalf("Type: %v", err)
	}
	if got := testutil.RequireReceive(t, changes, testTimeout, "change"); got != "milk" {
		t.Errorf("change = %q", got)
	}
	if got := testutil.RequireReceive(t, submits, testTimeout, "submit"); got != "milk" {
		t.Errorf("submit = %q", got)
	}

	if err := app.Dispatcher().Request(ctx, protocol.ClickWidget{WidgetID: checkbox.ID()}, nil); err != nil {
		t.Fatalf("click: %v", err)
	}
	if !testutil.RequireReceive(t, toggles, testTimeout, "toggle") {
		t.Error("toggle reported unchecked")
	}
	if err := checkbox.SetChecked(ctx, false); err != nil {
		t.Fatal(err)
	}
	if checked, err := checkbox.Checked(ctx); err != nil || checked {
		t.Errorf("Checked = %v, %v", checked, err)
	}

	if err := entry.Disable(ctx); err != nil {
		t.Fatal(err)
	}
	if enabled, _ := entry.Enabled(ctx); enabled {
		t.Error("entry still enabled")
	}
	err := entry.Type(ctx, "x", false)
	var applicationError *bridge.ApplicationError
	if !errors.As(err, &applicationError) {
		t.Errorf("typing into a disabled entry = %v", err)
	}
}

func TestContainerAddAndRemoveAll(t *testing.T) {
	t.Parallel()
	app, toolkit := startApp(t, "")

	var box *Container
	var loose *Widget
	mustBuild(t, app, func() error {
		box = app.HBox(func() error {
			app.Label("kept")
			return nil
		})
		loose = app.Label("loose")
		return nil
	})

	ctx := testContext(t)
	if err := box.Add(ctx, loose); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := rendered(toolkit)[box.ID()].Children; len(got) != 2 || got[1] != loose.ID() {
		t.Errorf("renderer children = %v", got)
	}
	if info, _ := app.Inspector().Node(loose.ID()); info.ParentID != box.ID() {
		t.Errorf("inspector parent = %q", info.ParentID)
	}

	if err := box.RemoveAll(ctx); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if children := app.Inspector().Children(box.ID()); len(children) != 0 {
		t.Errorf("inspector children after RemoveAll = %+v", children)
	}
	if roots := app.Inspector().Roots(); len(roots) != 3 {
		t.Errorf("roots = %d, want the box and both detached labels", len(roots))
	}
}

func TestWindowCloseCallback(t *testing.T) {
	t.Parallel()
	app, toolkit := startApp(t, "")

	closed := make(chan struct{})
	var window *Window
	mustBuild(t, app, func() error {
		window = app.Window("Bye", WindowOptions{OnClose: func(context.Context) { close(closed) }}, nil)
		return nil
	})
	if err := window.SetTitle(testContext(t), "Goodbye"); err != nil {
		t.Fatal(err)
	}
	if title, _ := toolkit.WindowTitle(window.ID()); title != "Goodbye" {
		t.Errorf("title = %q", title)
	}
	if err := toolkit.CloseByUser(window.ID()); err != nil {
		t.Fatal(err)
	}
	testutil.RequireClosed(t, closed, testTimeout, "close callback")
}
