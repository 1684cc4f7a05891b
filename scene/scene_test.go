// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tsyne-foundation/tsyne/bridge"
	"github.com/tsyne-foundation/tsyne/lib/ident"
	"github.com/tsyne-foundation/tsyne/protocol"
)

const testTimeout = 5 * time.Second

// recorder is an Applier that keeps every patch it is given.
type recorder struct {
	mutex   sync.Mutex
	patches []Patch
	fail    error
	during  func()
}

func (r *recorder) Apply(_ context.Context, _ string, patch Patch) error {
	if r.during != nil {
		r.during()
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.patches = append(r.patches, patch)
	return nil
}

func (r *recorder) last() Patch {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if len(r.patches) == 0 {
		return nil
	}
	return r.patches[len(r.patches)-1]
}

func opKeys(patch Patch) []string {
	var keys []string
	for _, op := range patch {
		keys = append(keys, op.Kind.String()+" "+op.Key)
	}
	return keys
}

func mustRefresh(t *testing.T, s *Scene) Patch {
	t.Helper()
	patch, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return patch
}

func TestPositionalKeys(t *testing.T) {
	t.Parallel()
	s := New(func(c *Collector) {
		c.Circle(0, 0, 1)
		c.Rectangle(0, 0, 1, 1)
		c.Circle(1, 1, 1).WithID("named")
		c.Circle(2, 2, 1)
	}, Options{Applier: &recorder{}})

	got := opKeys(mustRefresh(t, s))
	want := []string{"create circle#0", "create rectangle#0", "create named", "create circle#1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

// Removing an unkeyed primitive shifts the positional keys of its later
// siblings: the survivor is updated in place and the last key deleted.
func TestPositionalKeysShiftOnRemoval(t *testing.T) {
	t.Parallel()
	first := true
	s := New(func(c *Collector) {
		if first {
			c.Circle(0, 0, 1)
		}
		c.Circle(2, 2, 1)
	}, Options{Applier: &recorder{}})
	mustRefresh(t, s)

	first = false
	got := opKeys(mustRefresh(t, s))
	want := []string{"delete circle#1", "update circle#0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshSendsOnlyChanges(t *testing.T) {
	t.Parallel()
	x := 10.0
	applier := &recorder{}
	s := New(func(c *Collector) {
		c.Circle(0, 0, 5).WithID("ball").BindPosition(func() Point { return Point{X: x, Y: 20} })
		c.Text(0, 0, "score").WithID("label")
	}, Options{Applier: applier, IDs: ident.New("app")})

	if patch := mustRefresh(t, s); len(patch) != 2 {
		t.Fatalf("first frame = %v, want two creates", opKeys(patch))
	}
	ballID, _ := s.ObjectID("ball")
	if ballID != "app:circle_1" {
		t.Errorf("ball id = %q, want app:circle_1", ballID)
	}

	if patch := mustRefresh(t, s); len(patch) != 0 {
		t.Fatalf("unchanged frame sent %v", opKeys(patch))
	}
	if len(applier.patches) != 1 {
		t.Errorf("applier called %d times, want 1 (empty patches are not applied)", len(applier.patches))
	}

	x = 11
	want := Patch{{Kind: OpUpdate, Key: "ball", Primitive: KindCircle, ID: ballID, Changes: protocol.CanvasPatch{X: float(11)}}}
	if diff := cmp.Diff(want, mustRefresh(t, s)); diff != "" {
		t.Errorf("update mismatch (-want +got):\n%s", diff)
	}
}

func TestBindingsEvaluatedOncePerFrame(t *testing.T) {
	t.Parallel()
	var positions, rotations, fills int
	s := New(func(c *Collector) {
		c.Rectangle(0, 0, 4, 4).
			BindPosition(func() Point { positions++; return Point{X: 1} }).
			BindRotation(func() float64 { rotations++; return 45 }).
			BindFill(func() string { fills++; return "red" })
	}, Options{Applier: &recorder{}})

	for range 3 {
		mustRefresh(t, s)
	}
	if positions != 3 || rotations != 3 || fills != 3 {
		t.Errorf("evaluations = %d/%d/%d, want 3 each", positions, rotations, fills)
	}
}

func TestFillIsNormalised(t *testing.T) {
	t.Parallel()
	s := New(func(c *Collector) {
		c.Circle(0, 0, 1).Fill("red").Stroke("#abc", 2)
	}, Options{Applier: &recorder{}})
	patch := mustRefresh(t, s)
	if got := patch[0].Attributes; got.Fill != "#ff0000ff" || got.Stroke != "#aabbccff" {
		t.Errorf("fill, stroke = %q, %q", got.Fill, got.Stroke)
	}

	bad := New(func(c *Collector) { c.Circle(0, 0, 1).Fill("no-such-colour") }, Options{Applier: &recorder{}})
	if _, err := bad.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh with an unknown colour succeeded")
	}
}

func TestEachKeepsItemsAcrossReorder(t *testing.T) {
	t.Parallel()
	items := []string{"a", "b", "c"}
	s := New(func(c *Collector) {
		Each(c, items, func(item string) string { return item }, func(c *Collector, item string) {
			c.Circle(0, 0, 1)
			c.Text(0, 0, item)
		})
		c.Circle(9, 9, 1)
	}, Options{Applier: &recorder{}})

	first := opKeys(mustRefresh(t, s))
	want := []string{
		"create a/circle#0", "create a/text#0",
		"create b/circle#0", "create b/text#0",
		"create c/circle#0", "create c/text#0",
		"create circle#0",
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("first frame mismatch (-want +got):\n%s", diff)
	}

	items = []string{"c", "a", "b"}
	if patch := mustRefresh(t, s); len(patch) != 0 {
		t.Errorf("reorder sent %v", opKeys(patch))
	}

	items = []string{"c", "b"}
	got := opKeys(mustRefresh(t, s))
	if diff := cmp.Diff([]string{"delete a/circle#0", "delete a/text#0"}, got); diff != "" {
		t.Errorf("removal mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateKeysFailTheFrame(t *testing.T) {
	t.Parallel()
	applier := &recorder{}
	s := New(func(c *Collector) {
		c.Circle(0, 0, 1).WithID("x")
		c.Line(0, 0, 1, 1).WithID("x")
	}, Options{Applier: applier})
	if _, err := s.Refresh(context.Background()); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
	if len(applier.patches) != 0 {
		t.Error("a frame with duplicate keys reached the applier")
	}
	if s.State() != Idle {
		t.Errorf("state = %s after a failed refresh", s.State())
	}
}

func TestReentrantRefreshFails(t *testing.T) {
	t.Parallel()
	var s *Scene
	var fromBuild, fromApply error
	var states []State
	applier := &recorder{}
	applier.during = func() {
		states = append(states, s.State())
		_, fromApply = s.Refresh(context.Background())
	}
	s = New(func(c *Collector) {
		states = append(states, s.State())
		_, fromBuild = s.Refresh(context.Background())
		c.Circle(0, 0, 1)
	}, Options{Applier: applier})

	mustRefresh(t, s)
	if !errors.Is(fromBuild, ErrRefreshInProgress) || !errors.Is(fromApply, ErrRefreshInProgress) {
		t.Errorf("re-entrant errors = %v, %v", fromBuild, fromApply)
	}
	if diff := cmp.Diff([]State{Collecting, Applying}, states); diff != "" {
		t.Errorf("observed states mismatch (-want +got):\n%s", diff)
	}
	if s.State() != Idle {
		t.Errorf("final state = %s", s.State())
	}
}

func TestPanicLeavesSceneIdle(t *testing.T) {
	t.Parallel()
	explode := true
	s := New(func(c *Collector) {
		c.Circle(0, 0, 1)
		if explode {
			panic("boom")
		}
	}, Options{Applier: &recorder{}})

	func() {
		defer func() {
			if recovered := recover(); recovered != "boom" {
				t.Errorf("recovered %v, want boom", recovered)
			}
		}()
		s.Refresh(context.Background())
	}()
	if s.State() != Idle {
		t.Fatalf("state = %s after panic", s.State())
	}
	explode = false
	if patch := mustRefresh(t, s); len(patch) != 1 {
		t.Errorf("frame after panic = %v", opKeys(patch))
	}
}

func TestFailedApplyIsRetried(t *testing.T) {
	t.Parallel()
	applier := &recorder{fail: bridge.ErrChannelClosed}
	s := New(func(c *Collector) { c.Circle(0, 0, 1) }, Options{Applier: applier})

	if _, err := s.Refresh(context.Background()); !errors.Is(err, bridge.ErrChannelClosed) {
		t.Fatalf("err = %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("failed frame was committed")
	}
	applier.fail = nil
	got := opKeys(mustRefresh(t, s))
	if diff := cmp.Diff([]string{"create circle#0"}, got); diff != "" {
		t.Errorf("retry mismatch (-want +got):\n%s", diff)
	}
}

func TestHooksFollowLatestClosure(t *testing.T) {
	t.Parallel()
	registry := bridge.NewRegistry(ident.New(""))
	var clicks []string
	generation := "first"
	s := New(func(c *Collector) {
		name := generation
		c.Circle(0, 0, 1).WithID("button").OnClick(func(_ context.Context, event ClickEvent) {
			clicks = append(clicks, name)
		})
	}, Options{Applier: &recorder{}, Registry: registry})

	patch := mustRefresh(t, s)
	callbackID := patch[0].Hooks.CallbackID
	if callbackID == "" {
		t.Fatal("create carried no click callback")
	}
	generation = "second"
	mustRefresh(t, s)

	handler, ok := registry.Lookup(callbackID)
	if !ok {
		t.Fatal("click handler not registered")
	}
	handler.HandleEvent(context.Background(), &protocol.Event{Type: protocol.EventCallback, Data: protocol.EventData{CallbackID: callbackID}})
	if diff := cmp.Diff([]string{"second"}, clicks); diff != "" {
		t.Errorf("clicks mismatch (-want +got):\n%s", diff)
	}
}

func TestDeletedPrimitiveReleasesHooks(t *testing.T) {
	t.Parallel()
	registry := bridge.NewRegistry(ident.New(""))
	show := true
	s := New(func(c *Collector) {
		if show {
			c.Circle(0, 0, 1).OnDrag(func(context.Context, DragEvent) {})
		}
	}, Options{Applier: &recorder{}, Registry: registry})

	mustRefresh(t, s)
	if registry.Len() != 1 {
		t.Fatalf("registry holds %d handlers, want 1", registry.Len())
	}
	show = false
	mustRefresh(t, s)
	if registry.Len() != 0 {
		t.Errorf("registry holds %d handlers after delete", registry.Len())
	}
}

func TestHooksNeedRegistry(t *testing.T) {
	t.Parallel()
	s := New(func(c *Collector) {
		c.Circle(0, 0, 1).OnClick(func(context.Context, ClickEvent) {})
	}, Options{Applier: &recorder{}})
	if _, err := s.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh with hooks and no registry succeeded")
	}
}

func TestPartialApply(t *testing.T) {
	t.Parallel()
	lost := errors.New("lost")
	tests := []struct {
		name          string
		first, second []string
		moved         bool
		failKey       string
		failErr       error
		want          []string
	}{
		{
			name: "failed create is created again", first: []string{"a"}, second: []string{"a", "c"},
			failKey: "c", failErr: lost, want: []string{"create c"},
		},
		{
			name: "failed update is retried", first: []string{"a"}, second: []string{"a"}, moved: true,
			failKey: "a", failErr: lost, want: []string{"update a"},
		},
		{
			name: "update of a lost object recreates it", first: []string{"a"}, second: []string{"a"}, moved: true,
			failKey: "a", failErr: &bridge.ApplicationError{Operation: "updateCanvasCircle", Code: "not_found"},
			want: []string{"create a"},
		},
		{
			name: "undelivered delete leads the next patch", first: []string{"a", "b"}, second: []string{"a"},
			failKey: "b", failErr: bridge.ErrChannelClosed, want: []string{"delete b"},
		},
		{
			name: "refused delete is dropped", first: []string{"a", "b"}, second: []string{"a"},
			failKey: "b", failErr: &bridge.ApplicationError{Operation: "removeCanvasObject", Code: "invalid"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			keys, x := test.first, 0.0
			var failNext map[string]error
			applier := ApplierFunc(func(_ context.Context, _ string, patch Patch) error {
				failed := make(map[int]error)
				for i, op := range patch {
					if err, ok := failNext[op.Key]; ok {
						failed[i] = err
					}
				}
				failNext = nil
				if len(failed) == 0 {
					return nil
				}
				return &ApplyError{Failed: failed}
			})
			s := New(func(c *Collector) {
				for _, key := range keys {
					c.Circle(x, 0, 1).WithID(key)
				}
			}, Options{Applier: applier})
			mustRefresh(t, s)

			keys = test.second
			if test.moved {
				x = 1
			}
			failNext = map[string]error{test.failKey: test.failErr}
			_, err := s.Refresh(context.Background())
			var applyError *ApplyError
			if !errors.As(err, &applyError) || !errors.Is(err, test.failErr) {
				t.Fatalf("err = %v, want an ApplyError wrapping %v", err, test.failErr)
			}

			if diff := cmp.Diff(test.want, opKeys(mustRefresh(t, s))); diff != "" {
				t.Errorf("next patch mismatch (-want +got):\n%s", diff)
			}
			if got := opKeys(mustRefresh(t, s)); len(got) != 0 {
				t.Errorf("scene did not settle: %v", got)
			}
			if s.Len() != len(test.second) {
				t.Errorf("Len = %d, want %d", s.Len(), len(test.second))
			}
		})
	}
}
