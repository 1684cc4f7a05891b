// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides connection and HTTP I/O helpers.
//
// [IsExpectedCloseError] classifies errors that occur during normal
// connection teardown; the dispatcher and renderer server use it to
// tell a peer that went away from a broken channel. [BridgeConnections]
// relays bytes between two connections for the transport forwarder.
// [ReadLimited] and [ErrorBody] bound HTTP body reads for the browser's
// page fetches.
package netutil
