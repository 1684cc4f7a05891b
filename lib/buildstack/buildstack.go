// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package buildstack tracks the open window and container nesting while
// a declarative build pass runs.
//
// Builder closures execute synchronously and nest: a container factory
// pushes a frame, runs the user's closure (which declares children into
// that frame), then pops the frame to collect the children it will
// attach to its own description. A child never receives its parent
// explicitly; it asks the stack via [Stack.AddToCurrentContainer].
//
// Push and pop must balance within a build pass even when a closure
// returns an error or panics. [Stack.WithContainer] and
// [Stack.WithWindow] are the scoped guards that make this hold: they
// restore the depth recorded on entry in a deferred call, then let the
// error or panic continue to the build pass caller.
//
// A Stack belongs to one build pass driver and is not safe for
// concurrent use.
package buildstack

import (
	"errors"

	"github.com/tsyne-foundation/tsyne/lib/ident"
)

// ErrUnbalanced is returned when a pop finds nothing to pop.
var ErrUnbalanced = errors.New("buildstack: pop without matching push")

// Stack holds the window stack and the container stack.
type Stack struct {
	windows    []ident.ID
	containers [][]ident.ID
}

// PushWindow makes id the current window.
func (s *Stack) PushWindow(id ident.ID) {
	s.windows = append(s.windows, id)
}

// PopWindow removes and returns the current window.
func (s *Stack) PopWindow() (ident.ID, bool) {
	if len(s.windows) == 0 {
		return "", false
	}
	top := s.windows[len(s.windows)-1]
	s.windows = s.windows[:len(s.windows)-1]
	return top, true
}

// CurrentWindow returns the innermost open window.
func (s *Stack) CurrentWindow() (ident.ID, bool) {
	if len(s.windows) == 0 {
		return "", false
	}
	return s.windows[len(s.windows)-1], true
}

// PushContainer opens a new frame that collects children.
func (s *Stack) PushContainer() {
	s.containers = append(s.containers, nil)
}

// PopContainer closes the innermost frame and returns its children in
// declaration order.
func (s *Stack) PopContainer() ([]ident.ID, error) {
	if len(s.containers) == 0 {
		return nil, ErrUnbalanced
	}
	children := s.containers[len(s.containers)-1]
	s.containers[len(s.containers)-1] = nil
	s.containers = s.containers[:len(s.containers)-1]
	return children, nil
}

// AddToCurrentContainer appends id to the innermost frame. Returns false
// when no container is open, in which case the node is top-level.
func (s *Stack) AddToCurrentContainer(id ident.ID) bool {
	if len(s.containers) == 0 {
		return false
	}
	top := len(s.containers) - 1
	s.containers[top] = append(s.containers[top], id)
	return true
}

// Depth returns the number of open container frames.
func (s *Stack) Depth() int { return len(s.containers) }

// WindowDepth returns the number of open windows.
func (s *Stack) WindowDepth() int { return len(s.windows) }

// WithContainer runs fn inside a fresh container frame and returns the
// children fn declared. The frame is popped on every exit path. If fn
// left deeper frames open (it can only do so by bypassing the guards),
// those are discarded too, so the depth after WithContainer equals the
// depth before it. A panic in fn propagates after the unwind.
func (s *Stack) WithContainer(fn func() error) (children []ident.ID, err error) {
	depth := len(s.containers)
	s.PushContainer()
	defer func() {
		if len(s.containers) > depth {
			frame := s.containers[depth]
			s.truncateContainers(depth)
			// Children of a failed closure are never attached.
			if err == nil {
				children = frame
			}
		}
	}()
	return nil, fn()
}

// WithWindow runs fn with id as the current window, restoring the window
// stack on every exit path.
func (s *Stack) WithWindow(id ident.ID, fn func() error) error {
	depth := len(s.windows)
	s.PushWindow(id)
	defer func() {
		for i := depth; i < len(s.windows); i++ {
			s.windows[i] = ""
		}
		s.windows = s.windows[:depth]
	}()
	return fn()
}

func (s *Stack) truncateContainers(depth int) {
	for i := depth; i < len(s.containers); i++ {
		s.containers[i] = nil
	}
	s.containers = s.containers[:depth]
}
