// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package ident allocates node identities for a Tsyne application.
//
// Every logical node created during a build pass (window, widget, canvas
// primitive, callback, request) receives an [ID] of the form
// "<prefix>_<sequence>". The prefix names the node kind for debugging;
// the sequence comes from a single counter owned by the [Allocator], so
// two IDs from the same allocator never collide regardless of prefix.
//
// IDs are never reused. A destroyed node's ID stays retired for the
// lifetime of the allocator, which rules out a late event from the
// renderer being routed to a newer node that inherited the old ID.
//
// There is no package-level counter. Each application instance owns its
// own allocator, which keeps tests independent and lets several bridges
// share a process. An allocator created with a namespace qualifies every
// ID as "<namespace>:<prefix>_<sequence>" so that apps multiplexed over
// one renderer cannot collide either.
package ident
