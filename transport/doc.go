// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries protocol frames between a Tsyne app and its
// renderer.
//
// Everything above this package sees a [Conn]: an ordered, reliable byte
// stream. Framing, encoding and correlation happen in the protocol and
// bridge packages; transport only decides where the bytes go.
//
// An [Endpoint] names one of three channel kinds. "stdio" is the
// renderer's standard input and output, the default when an app spawns
// its renderer. "unix:<path>" and "tcp:<host:port>" are stream sockets
// for renderers that outlive a single app or run elsewhere; [Listen]
// binds one and [Dialer] connects to one.
//
// [Spawn] starts a renderer child process and returns its [Child]. The
// child is connected either through stdin/stdout or through a kernel
// socketpair passed as file descriptor 3, announced to the child in
// TSYNE_BRIDGE_FD. A renderer recovers its end with [Inherited]. The
// child's stderr is relayed line by line to the parent's logger, so
// stdout carries nothing but frames.
//
// [Pipe] and [SocketPair] connect two Conns inside one process, for
// tests and in-process renderers.
//
// [Forwarder] accepts connections on one endpoint and relays each to
// another, which exposes a local renderer socket on a TCP port. With a
// Token set it runs [Authenticate] on each inbound connection, and a
// [Dialer] with the same Token answers the challenge. The handshake
// proves knowledge of the token with a keyed BLAKE3 hash of a fresh
// nonce; it does not encrypt the frames that follow.
package transport
