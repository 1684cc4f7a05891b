// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"io"
	"strings"
)

// Conn is a bidirectional byte stream carrying protocol frames. Close
// must unblock a Read in progress on another goroutine.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// Network is the kind of channel an [Endpoint] names.
type Network string

const (
	NetworkStdio Network = "stdio"
	NetworkUnix  Network = "unix"
	NetworkTCP   Network = "tcp"
)

// Endpoint identifies one end of a renderer channel.
type Endpoint struct {
	Network Network

	// Address is a filesystem path for unix and host:port for tcp.
	// Empty for stdio.
	Address string
}

// Stdio is the endpoint for the process's standard input and output.
var Stdio = Endpoint{Network: NetworkStdio}

// ParseEndpoint parses "stdio", "unix:<path>" or "tcp:<host:port>". An
// absolute or ./-relative path without a scheme is a unix socket.
func ParseEndpoint(value string) (Endpoint, error) {
	switch {
	case value == "stdio" || value == "-":
		return Stdio, nil
	case strings.HasPrefix(value, "unix:"):
		return unixEndpoint(strings.TrimPrefix(value, "unix:"))
	case strings.HasPrefix(value, "tcp:"):
		address := strings.TrimPrefix(value, "tcp:")
		if !strings.Contains(address, ":") {
			return Endpoint{}, fmt.Errorf("tcp endpoint %q: want host:port", value)
		}
		return Endpoint{Network: NetworkTCP, Address: address}, nil
	case strings.HasPrefix(value, "/") || strings.HasPrefix(value, "./"):
		return unixEndpoint(value)
	default:
		return Endpoint{}, fmt.Errorf("endpoint %q: want stdio, unix:<path> or tcp:<host:port>", value)
	}
}

func unixEndpoint(path string) (Endpoint, error) {
	if path == "" {
		return Endpoint{}, fmt.Errorf("unix endpoint without a path")
	}
	return Endpoint{Network: NetworkUnix, Address: path}, nil
}

func (e Endpoint) String() string {
	if e.Network == NetworkStdio {
		return string(NetworkStdio)
	}
	return string(e.Network) + ":" + e.Address
}

// IsSocket reports whether the endpoint can be listened on or dialed.
func (e Endpoint) IsSocket() bool {
	return e.Network == NetworkUnix || e.Network == NetworkTCP
}
