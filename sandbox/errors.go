// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import "fmt"

// ConfigError is a configuration that cannot run, reported before any
// script code executes.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "sandbox configuration: " + e.Reason }

// Limit names the resource a LimitError exceeded.
type Limit string

const (
	LimitTimeout Limit = "timeout"
	LimitMemory  Limit = "memory"
)

// LimitError is an execution stopped by its timeout or memory ceiling.
type LimitError struct {
	Limit Limit

	// Value is the configured limit: a duration for timeouts, bytes for
	// memory.
	Value any
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("sandbox %s exceeded (limit %v)", e.Limit, e.Value)
}

// ScriptError is an exception thrown by the script.
type ScriptError struct {
	Message string

	// Stack is the interpreter's stack trace, when it has one.
	Stack string
}

func (e *ScriptError) Error() string { return "script error: " + e.Message }
