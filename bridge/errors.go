// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"errors"
	"fmt"
)

// ErrChannelClosed matches every error caused by the renderer channel
// ending. Callers must reconnect rather than retry.
var ErrChannelClosed = errors.New("bridge: channel closed")

// ClosedError fails requests that were pending when the channel ended,
// or were issued after it ended.
type ClosedError struct {
	// Cause is what ended the channel: io.EOF when the renderer exited,
	// the read or write error, or nil after Close.
	Cause error
}

func (e *ClosedError) Error() string {
	if e.Cause == nil {
		return ErrChannelClosed.Error()
	}
	return ErrChannelClosed.Error() + ": " + e.Cause.Error()
}

func (e *ClosedError) Is(target error) bool { return target == ErrChannelClosed }
func (e *ClosedError) Unwrap() error        { return e.Cause }
func (e *ClosedError) ErrorCode() string    { return "channel_closed" }

// ApplicationError is a failure the renderer reported for one operation,
// such as an unknown widget id. The channel is unaffected.
type ApplicationError struct {
	RequestID string
	Operation string
	Message   string

	// Code is the renderer's machine-readable code, when it sent one.
	Code string
}

func (e *ApplicationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s failed (%s): %s", e.Operation, e.Code, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

func (e *ApplicationError) ErrorCode() string { return e.Code }

// IsApplicationError reports whether err is, or wraps, an
// [*ApplicationError].
func IsApplicationError(err error) bool {
	var applicationError *ApplicationError
	return errors.As(err, &applicationError)
}
