// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox runs untrusted page code that describes a user
// interface.
//
// [Execute] evaluates a CommonJS-style script and returns what it
// assigned to module.exports, converted to plain data: maps, slices,
// strings, numbers, booleans and [Function] markers in place of
// functions. Nothing the script allocated survives the call.
//
// Two [Backend]s implement execution. The fast backend runs the script
// in-process in a fresh goja interpreter. Its timeout interrupts the
// interpreter between instructions, so a loop inside a host function is
// not preempted, and it enforces no memory ceiling. The isolated backend
// runs the same interpreter in a tsyne-sandbox-runner child inside a
// bubblewrap namespace with no network, no writable filesystem and an
// empty environment. The runner enforces the timeout and a heap
// ceiling, and caps file descriptors and processes with rlimits. Only
// data modules are available in isolation.
//
// Execution fails closed. Asking for the isolated runtime where it is
// unavailable returns a [*ConfigError] before any script code runs,
// unless [Config.AcceptWeaker] is set; then the fast backend runs the
// script and [Result.RuntimeUsed] reports the downgrade. A timeout or a
// memory ceiling is a [*LimitError]; an exception the script throws is
// a [*ScriptError].
//
// require is limited to [Config.AllowedModules], and each allowed name
// must be a module the host registered ([Module]).
package sandbox
