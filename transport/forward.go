// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/tsyne-foundation/tsyne/lib/netutil"
)

// Forwarder relays connections accepted on Listen to Target.
type Forwarder struct {
	Listen Endpoint
	Target Endpoint

	// DialTimeout bounds each connection to Target. Defaults to five
	// seconds.
	DialTimeout time.Duration

	// Token, when set, must be proven by every inbound connection with
	// the token handshake before it is relayed.
	Token string

	// TargetToken is proven to Target on every outbound connection.
	TargetToken string

	// HandshakeTimeout bounds an inbound token handshake. Defaults to
	// DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// Logger receives structured log output. If nil, slog.Default() is
	// used. Per-connection events are logged at Debug level.
	Logger *slog.Logger

	listener    net.Listener
	cancel      context.CancelFunc
	done        chan struct{}
	connections sync.WaitGroup
}

func (f *Forwarder) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

func (f *Forwarder) dialer() *Dialer {
	timeout := f.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dialer{Timeout: timeout, Token: f.TargetToken}
}

// Start verifies that Target accepts connections, binds Listen and
// begins forwarding in the background. It runs until Stop is called or
// ctx is cancelled.
func (f *Forwarder) Start(ctx context.Context) error {
	if !f.Listen.IsSocket() {
		return fmt.Errorf("forwarder: listen endpoint %s is not a socket", f.Listen)
	}
	if !f.Target.IsSocket() {
		return fmt.Errorf("forwarder: target endpoint %s is not a socket", f.Target)
	}

	reachable, err := f.dialer().DialContext(ctx, f.Target)
	if err != nil {
		return fmt.Errorf("forwarder: target not reachable: %w", err)
	}
	reachable.Close()

	listener, err := Listen(f.Listen)
	if err != nil {
		return fmt.Errorf("forwarder: %w", err)
	}
	f.listener = listener

	ctx, f.cancel = context.WithCancel(ctx)
	f.done = make(chan struct{})

	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	go func() {
		defer close(f.done)
		f.acceptLoop(ctx)
	}()

	if f.Token == "" && f.Listen.Network == NetworkTCP {
		f.logger().Warn("forwarder accepts tcp connections without a token", "listen", f.Listen.String())
	}
	f.logger().Info("forwarder started",
		"listen", f.Listen.String(),
		"target", f.Target.String(),
		"authenticated", f.Token != "",
	)
	return nil
}

// Addr returns the bound address, useful when listening on port 0. Nil
// before Start.
func (f *Forwarder) Addr() net.Addr {
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Stop closes the listener and waits for in-flight connections to
// drain.
func (f *Forwarder) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	if f.listener != nil {
		f.listener.Close()
	}
	f.Wait()
}

// Wait blocks until the forwarder has stopped.
func (f *Forwarder) Wait() {
	if f.done != nil {
		<-f.done
	}
}

func (f *Forwarder) acceptLoop(ctx context.Context) {
	defer func() {
		f.connections.Wait()
		if f.Listen.Network == NetworkUnix {
			os.Remove(f.Listen.Address)
		}
	}()

	var connectionCount int64
	for {
		connection, err := f.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			f.logger().Error("accept failed", "error", err)
			continue
		}

		connectionCount++
		connectionID := connectionCount
		f.connections.Add(1)
		go func() {
			defer f.connections.Done()
			f.handleConnection(ctx, connection, connectionID)
		}()
	}
}

func (f *Forwarder) handleConnection(ctx context.Context, inbound net.Conn, connectionID int64) {
	logger := f.logger().With("connection_id", connectionID)
	logger.Debug("connection accepted", "remote_addr", inbound.RemoteAddr())

	if f.Token != "" {
		if err := Authenticate(inbound, f.Token, f.HandshakeTimeout); err != nil {
			inbound.Close()
			logger.Warn("rejected connection", "remote_addr", inbound.RemoteAddr(), "error", err)
			return
		}
	}

	outbound, err := f.dialer().DialContext(ctx, f.Target)
	if err != nil {
		inbound.Close()
		logger.Error("failed to connect to target", "error", err)
		return
	}

	// Frames have no half-close semantics; either side closing ends the
	// session for both.
	stats, err := netutil.BridgeConnections(inbound, outbound)
	if err != nil {
		logger.Debug("relay ended with error", "error", err)
	}
	logger.Debug("connection closed",
		"bytes_to_target", stats.AToB,
		"bytes_from_target", stats.BToA,
	)
}
