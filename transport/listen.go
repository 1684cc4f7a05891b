// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// Listen binds a socket endpoint. A stale unix socket file at the path is
// removed first; the caller removes it again after closing the listener.
func Listen(endpoint Endpoint) (net.Listener, error) {
	if !endpoint.IsSocket() {
		return nil, fmt.Errorf("cannot listen on %s", endpoint)
	}
	if endpoint.Network == NetworkUnix {
		if err := os.Remove(endpoint.Address); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale socket %s: %w", endpoint.Address, err)
		}
	}
	listener, err := net.Listen(string(endpoint.Network), endpoint.Address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", endpoint, err)
	}
	return listener, nil
}

// Dialer opens connections to socket endpoints.
type Dialer struct {
	// Timeout bounds connection establishment. Zero means only the
	// context deadline applies.
	Timeout time.Duration

	// Token, when set, is proven to the listener with the token
	// handshake before DialContext returns. Timeout also bounds the
	// handshake.
	Token string
}

// DialContext connects to endpoint.
func (d *Dialer) DialContext(ctx context.Context, endpoint Endpoint) (net.Conn, error) {
	if !endpoint.IsSocket() {
		return nil, fmt.Errorf("cannot dial %s", endpoint)
	}
	connection, err := (&net.Dialer{Timeout: d.Timeout}).DialContext(ctx, string(endpoint.Network), endpoint.Address)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", endpoint, err)
	}
	if d.Token == "" {
		return connection, nil
	}
	deadline := handshakeDeadline(d.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := presentToken(connection, d.Token, deadline); err != nil {
		connection.Close()
		return nil, fmt.Errorf("authenticating to %s: %w", endpoint, err)
	}
	return connection, nil
}
