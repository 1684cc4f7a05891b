// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package renderer is the native end of a Tsyne bridge channel.
//
// A [Server] reads request frames, dispatches each to the handler
// registered for its operation type and writes exactly one response per
// request. Requests are handled one at a time in arrival order, the way
// a toolkit's UI thread would run them. [Server.Emit] writes events from
// any goroutine; the write mutex keeps events and responses from
// interleaving inside a frame.
//
// On Serve the server first writes the ready frame, an unsolicited
// response with id "ready", which the app side waits for before it
// sends anything.
//
// Package headless supplies an in-memory toolkit model that registers
// handlers for every operation.
package renderer
