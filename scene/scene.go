// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tsyne-foundation/tsyne/bridge"
	"github.com/tsyne-foundation/tsyne/lib/ident"
	"github.com/tsyne-foundation/tsyne/protocol"
)

// ErrRefreshInProgress is returned by a Refresh that starts while
// another is running.
var ErrRefreshInProgress = errors.New("scene: refresh already in progress")

// State is the phase of the refresh cycle.
type State int32

const (
	Idle State = iota
	Collecting
	Diffing
	Applying
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Diffing:
		return "diffing"
	case Applying:
		return "applying"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options configures a Scene.
type Options struct {
	// CanvasID is the renderer's canvas stack holding the primitives.
	CanvasID string

	// Applier sends patches to the renderer. Required.
	Applier Applier

	// IDs allocates object ids. Defaults to an allocator without a
	// namespace; apps sharing a renderer must pass their own.
	IDs *ident.Allocator

	// Registry receives the click and drag hooks. Primitives with hooks
	// cannot be declared without one.
	Registry *bridge.Registry

	Logger *slog.Logger
}

// Scene reconciles a scene function against the renderer.
type Scene struct {
	build    BuildFunc
	canvasID string
	applier  Applier
	ids      *ident.Allocator
	registry *bridge.Registry
	logger   *slog.Logger

	state atomic.Int32

	// Owned by the running refresh.
	frame   []Entry
	mounted map[string]*mounted
	frames  uint64

	// undeleted holds deletes that did not reach the renderer. They lead
	// the next patch.
	undeleted []Op
}

// mounted is a primitive live on the renderer.
type mounted struct {
	id            string
	hooks         *hooks
	registrations []bridge.Registration
}

// hooks holds the latest click and drag functions of a primitive. The
// registered handlers read them on the event goroutine.
type hooks struct {
	mutex   sync.Mutex
	onClick func(context.Context, ClickEvent)
	onDrag  func(context.Context, DragEvent)
}

func (h *hooks) set(p *Primitive) {
	h.mutex.Lock()
	h.onClick, h.onDrag = p.onClick, p.onDrag
	h.mutex.Unlock()
}

func (h *hooks) click(ctx context.Context, event *protocol.Event) {
	h.mutex.Lock()
	fn := h.onClick
	h.mutex.Unlock()
	if fn != nil {
		fn(ctx, ClickEvent{X: event.Data.X, Y: event.Data.Y})
	}
}

func (h *hooks) drag(ctx context.Context, event *protocol.Event) {
	h.mutex.Lock()
	fn := h.onDrag
	h.mutex.Unlock()
	if fn != nil {
		fn(ctx, DragEvent{
			Phase:  event.Data.Phase,
			X:      event.Data.X,
			Y:      event.Data.Y,
			DeltaX: event.Data.DeltaX,
			DeltaY: event.Data.DeltaY,
		})
	}
}

// New returns a scene that renders build into options.CanvasID. Nothing
// is sent until the first Refresh.
func New(build BuildFunc, options Options) *Scene {
	if options.Applier == nil {
		panic("scene: Options.Applier is required")
	}
	ids := options.IDs
	if ids == nil {
		ids = ident.New("")
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scene{
		build:    build,
		canvasID: options.CanvasID,
		applier:  options.Applier,
		ids:      ids,
		registry: options.Registry,
		logger:   logger.With("component", "scene", "canvas", options.CanvasID),
		mounted:  make(map[string]*mounted),
	}
}

// State returns the current phase of the refresh cycle.
func (s *Scene) State() State { return State(s.state.Load()) }

// ObjectID returns the renderer id of the primitive with key, if it is
// live. Only call it between refreshes.
func (s *Scene) ObjectID(key string) (string, bool) {
	m, ok := s.mounted[key]
	if !ok {
		return "", false
	}
	return m.id, true
}

// Len returns the number of live primitives. Only call it between
// refreshes.
func (s *Scene) Len() int { return len(s.mounted) }

// Refresh collects a frame, diffs it against the previous one and
// applies the difference. It returns the applied patch.
//
// When the applier fails outright the previous frame stays current, so
// the next refresh retries the same difference. When it reports an
// [*ApplyError] the operations that took effect are kept: a failed
// create is created again next frame, a failed update is retried, an
// update of an object the renderer lost recreates it, and a failed
// delete leads the next patch. A panic in the scene function propagates
// after the scene is back to Idle.
func (s *Scene) Refresh(ctx context.Context) (Patch, error) {
	if !s.state.CompareAndSwap(int32(Idle), int32(Collecting)) {
		return nil, ErrRefreshInProgress
	}
	defer s.state.Store(int32(Idle))

	collector := &Collector{}
	s.build(collector)

	s.state.Store(int32(Diffing))
	frame, err := collector.resolve()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(frame))
	for i, d := range frame {
		entries[i] = d.entry
	}
	diff, err := Diff(s.frame, entries)
	if err != nil {
		return nil, err
	}
	created, err := s.prepare(diff, frame)
	if err != nil {
		return nil, err
	}
	patch := append(Patch(slices.Clone(s.undeleted)), diff...)

	var failed map[int]error
	var applyErr error
	if len(patch) > 0 {
		s.state.Store(int32(Applying))
		if err := s.applier.Apply(ctx, s.canvasID, patch); err != nil {
			var partial *ApplyError
			if !errors.As(err, &partial) {
				for _, m := range created {
					release(m)
				}
				return patch, fmt.Errorf("applying frame %d: %w", s.frames+1, err)
			}
			failed = partial.Failed
			applyErr = fmt.Errorf("applying frame %d: %w", s.frames+1, err)
		}
	}

	s.commit(patch, frame, created, failed)
	s.frames++
	if len(patch) > 0 {
		deletes, updates, creates := patch.Counts()
		s.logger.Debug("frame applied",
			"frame", s.frames,
			"deletes", deletes,
			"updates", updates,
			"creates", creates,
			"failed", len(failed),
		)
	}
	return patch, applyErr
}

// prepare assigns object ids and registers hooks for created
// primitives, and fills in the ids of updated and deleted ones.
func (s *Scene) prepare(patch Patch, frame []declared) (map[string]*mounted, error) {
	byKey := make(map[string]*Primitive, len(frame))
	for _, d := range frame {
		byKey[d.entry.Key] = d.primitive
	}
	created := make(map[string]*mounted)
	for i := range patch {
		op := &patch[i]
		if op.Kind != OpCreate {
			op.ID = s.mounted[op.Key].id
			continue
		}
		p := byKey[op.Key]
		if (p.onClick != nil || p.onDrag != nil) && s.registry == nil {
			for _, m := range created {
				release(m)
			}
			return nil, fmt.Errorf("primitive %s has hooks but the scene has no registry", op.Key)
		}
		m := &mounted{id: string(s.ids.NextID(string(op.Primitive))), hooks: &hooks{}}
		m.hooks.set(p)
		if p.onClick != nil {
			registration := s.registry.RegisterFunc(m.hooks.click)
			m.registrations = append(m.registrations, registration)
			op.Hooks.CallbackID = registration.ID
		}
		if p.onDrag != nil {
			registration := s.registry.RegisterFunc(m.hooks.drag)
			m.registrations = append(m.registrations, registration)
			op.Hooks.DragCallbackID = registration.ID
		}
		op.ID = m.id
		created[op.Key] = m
	}
	return created, nil
}

// commit records the operations of patch that took effect. failed maps
// patch indexes to operations that did not.
func (s *Scene) commit(patch Patch, frame []declared, created map[string]*mounted, failed map[int]error) {
	previous := make(map[string]Entry, len(s.frame))
	for _, entry := range s.frame {
		previous[entry.Key] = entry
	}
	retryUpdate := make(map[string]bool)
	var undeleted []Op
	for i, op := range patch {
		err, opFailed := failed[i]
		switch op.Kind {
		case OpDelete:
			// A replaced key is deleted and created in the same patch,
			// and a retried delete may name a key mounted again since.
			if m, ok := s.mounted[op.Key]; ok && m.id == op.ID {
				release(m)
				delete(s.mounted, op.Key)
			}
			if !opFailed {
				continue
			}
			if bridge.IsApplicationError(err) {
				s.logger.Warn("renderer refused delete", "key", op.Key, "id", op.ID, "error", err)
				continue
			}
			undeleted = append(undeleted, op)
		case OpCreate:
			if opFailed {
				if m, ok := created[op.Key]; ok {
					release(m)
					delete(created, op.Key)
				}
			}
		case OpUpdate:
			if !opFailed {
				continue
			}
			if alreadyGone(err) {
				if m, ok := s.mounted[op.Key]; ok {
					release(m)
					delete(s.mounted, op.Key)
				}
				continue
			}
			retryUpdate[op.Key] = true
		}
	}
	for key, m := range created {
		s.mounted[key] = m
	}
	s.undeleted = undeleted

	s.frame = s.frame[:0]
	for _, d := range frame {
		m, live := s.mounted[d.entry.Key]
		if !live {
			continue
		}
		m.hooks.set(d.primitive)
		if retryUpdate[d.entry.Key] {
			s.frame = append(s.frame, previous[d.entry.Key])
			continue
		}
		s.frame = append(s.frame, d.entry)
	}
}

func release(m *mounted) {
	for _, registration := range m.registrations {
		registration.Release()
	}
	m.registrations = nil
}
