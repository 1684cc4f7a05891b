// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package scene

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tsyne-foundation/tsyne/bridge"
	"github.com/tsyne-foundation/tsyne/protocol"
)

// Applier makes a patch take effect on the renderer.
type Applier interface {
	Apply(ctx context.Context, canvasID string, patch Patch) error
}

// ApplierFunc adapts a function to [Applier].
type ApplierFunc func(ctx context.Context, canvasID string, patch Patch) error

func (f ApplierFunc) Apply(ctx context.Context, canvasID string, patch Patch) error {
	return f(ctx, canvasID, patch)
}

// ApplyError reports a patch that took effect only in part. Failed maps
// patch indexes to the reason those operations did not take effect.
// Every other operation did, or was written before the applier stopped
// waiting and is assumed to have. Err, when set, is why the applier
// stopped waiting.
//
// An Applier that returns any other error has applied nothing.
type ApplyError struct {
	Failed map[int]error
	Err    error
}

func (e *ApplyError) indexes() []int {
	indexes := make([]int, 0, len(e.Failed))
	for index := range e.Failed {
		indexes = append(indexes, index)
	}
	slices.Sort(indexes)
	return indexes
}

func (e *ApplyError) Error() string {
	var parts []string
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if indexes := e.indexes(); len(indexes) > 0 {
		parts = append(parts, fmt.Sprintf("%d operations failed, first: %v", len(indexes), e.Failed[indexes[0]]))
	}
	return "partial apply: " + strings.Join(parts, "; ")
}

func (e *ApplyError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	for _, index := range e.indexes() {
		errs = append(errs, e.Failed[index])
	}
	return errs
}

// BridgeApplier sends patches through a dispatcher. Every operation of
// a patch is written before any response is awaited, so a frame costs
// one round trip. Failures are reported per operation in an
// [*ApplyError]; deleting an object the renderer no longer has counts
// as done.
type BridgeApplier struct {
	Dispatcher *bridge.Dispatcher
}

func (a BridgeApplier) Apply(ctx context.Context, canvasID string, patch Patch) error {
	operations := make([]protocol.Operation, len(patch))
	for i, op := range patch {
		operation, err := Operation(canvasID, op)
		if err != nil {
			return err
		}
		operations[i] = operation
	}

	calls := make([]*bridge.Call, len(patch))
	for i, operation := range operations {
		calls[i] = a.Dispatcher.Send(ctx, operation)
	}
	failed := make(map[int]error)
	if err := a.Dispatcher.Flush(); err != nil {
		for i := range calls {
			failed[i] = err
		}
		return &ApplyError{Failed: failed}
	}

	var stopped error
	for i, call := range calls {
		if stopped == nil {
			select {
			case <-call.Done():
			case <-ctx.Done():
				stopped = ctx.Err()
			}
		}
		err := call.Err()
		if err == nil || (patch[i].Kind == OpDelete && alreadyGone(err)) {
			continue
		}
		failed[i] = err
	}
	if len(failed) == 0 && stopped == nil {
		return nil
	}
	return &ApplyError{Failed: failed, Err: stopped}
}

// alreadyGone reports whether err is the renderer saying the object does
// not exist.
func alreadyGone(err error) bool {
	var applicationError *bridge.ApplicationError
	return errors.As(err, &applicationError) && applicationError.Code == "not_found"
}

// Operation converts a patch operation into the protocol request that
// performs it.
func Operation(canvasID string, op Op) (protocol.Operation, error) {
	switch op.Kind {
	case OpDelete:
		return protocol.RemoveCanvasObject{ID: op.ID, CanvasID: canvasID}, nil
	case OpUpdate:
		switch op.Primitive {
		case KindCircle:
			return protocol.UpdateCanvasCircle{ID: op.ID, Patch: op.Changes}, nil
		case KindRectangle:
			return protocol.UpdateCanvasRectangle{ID: op.ID, Patch: op.Changes}, nil
		case KindLine:
			return protocol.UpdateCanvasLine{ID: op.ID, Patch: op.Changes}, nil
		case KindText:
			return protocol.UpdateCanvasText{ID: op.ID, Patch: op.Changes}, nil
		}
	case OpCreate:
		a := op.Attributes
		style := protocol.Style{Fill: a.Fill, Stroke: a.Stroke, StrokeWidth: a.StrokeWidth, Rotation: a.Rotation}
		switch op.Primitive {
		case KindCircle:
			return protocol.CreateCanvasCircle{
				ID: op.ID, CanvasID: canvasID,
				CX: a.X, CY: a.Y, Radius: a.Radius,
				Style: style, Hooks: op.Hooks,
			}, nil
		case KindRectangle:
			return protocol.CreateCanvasRectangle{
				ID: op.ID, CanvasID: canvasID,
				X: a.X, Y: a.Y, Width: a.Width, Height: a.Height, CornerRadius: a.CornerRadius,
				Style: style, Hooks: op.Hooks,
			}, nil
		case KindLine:
			return protocol.CreateCanvasLine{
				ID: op.ID, CanvasID: canvasID,
				X1: a.X, Y1: a.Y, X2: a.X2, Y2: a.Y2,
				Style: style, Hooks: op.Hooks,
			}, nil
		case KindText:
			return protocol.CreateCanvasText{
				ID: op.ID, CanvasID: canvasID,
				X: a.X, Y: a.Y, Text: a.Text, Size: a.Size,
				Style: style, Hooks: op.Hooks,
			}, nil
		}
	}
	return nil, fmt.Errorf("scene: no operation for %s of %s", op.Kind, op.Primitive)
}
