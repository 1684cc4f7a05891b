// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge is the app side of the channel to a renderer.
//
// A [Dispatcher] owns one transport.Conn. [Dispatcher.Send] writes a
// request immediately and returns a [Call], a future for its response;
// requests reach the wire in the order Send was called. A receive loop
// demultiplexes inbound frames: responses resolve their pending Call
// exactly once, events go to an unbounded queue drained by a separate
// goroutine that invokes the [Handler] registered under the event's
// callback id. Neither message class waits for the other, so a slow
// callback never delays a response and a pending request never delays
// an event.
//
// Peer mistakes are [protocol.ProtocolError]s: malformed frames,
// responses for ids nobody is waiting on, and second responses for an
// id already answered. They are logged, reported through
// [Options.OnProtocolError] and dropped; the channel stays up. A failed
// operation is an [*ApplicationError] delivered to exactly the caller of
// that request. When the channel ends, every pending Call fails with a
// [*ClosedError] (matching [ErrChannelClosed]) and later Sends fail
// immediately.
//
// A [Registry] maps callback ids to handlers. Ids come from an
// ident.Allocator, so two apps sharing a process never collide when
// their allocators have distinct namespaces, and a released id is never
// handed out again.
//
// With [Options.FlushWindow] set, frames issued within the window are
// coalesced into one transport write, which cuts syscalls for scene
// updates that send dozens of small frames per animation tick.
package bridge
