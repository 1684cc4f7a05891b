// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"io"
	"net"
)

// RelayStats counts the bytes a relay moved in each direction.
type RelayStats struct {
	// AToB counts bytes read from the first connection.
	AToB int64
	// BToA counts bytes read from the second connection.
	BToA int64
}

type relayDirection struct {
	fromA  bool
	copied int64
	err    error
}

// BridgeReaders relays bytes between two connections. Each direction
// copies from one reader into the opposite connection; a reader differs
// from its connection when bytes were already buffered from it.
//
// Returns when either direction finishes, after closing both connections
// and waiting for the other direction. The error is the first
// direction's, or nil when it ended with an expected close.
func BridgeReaders(connectionA net.Conn, readerA io.Reader, connectionB net.Conn, readerB io.Reader) (RelayStats, error) {
	done := make(chan relayDirection, 2)
	go func() {
		copied, err := io.Copy(connectionB, readerA)
		done <- relayDirection{fromA: true, copied: copied, err: err}
	}()
	go func() {
		copied, err := io.Copy(connectionA, readerB)
		done <- relayDirection{fromA: false, copied: copied, err: err}
	}()

	first := <-done
	connectionA.Close()
	connectionB.Close()
	second := <-done

	var stats RelayStats
	for _, direction := range []relayDirection{first, second} {
		if direction.fromA {
			stats.AToB = direction.copied
		} else {
			stats.BToA = direction.copied
		}
	}
	if first.err != nil && !IsExpectedCloseError(first.err) {
		return stats, first.err
	}
	return stats, nil
}

// BridgeConnections is BridgeReaders with each connection as its own
// reader.
func BridgeConnections(a, b net.Conn) (RelayStats, error) {
	return BridgeReaders(a, a, b, b)
}
