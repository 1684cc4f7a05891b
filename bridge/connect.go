// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/tsyne-foundation/tsyne/lib/config"
	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/transport"
)

// rendererStopGrace is how long Close waits for a spawned renderer to
// exit after its channel closes.
const rendererStopGrace = 3 * time.Second

// CodecFor builds the codec selected by the bridge section of a
// configuration file.
func CodecFor(settings config.BridgeConfig) (protocol.Codec, error) {
	encoding, err := protocol.EncodingByName(settings.Encoding)
	if err != nil {
		return protocol.Codec{}, fmt.Errorf("bridge.encoding: %w", err)
	}
	compression, err := protocol.ParseCompression(settings.Compression)
	if err != nil {
		return protocol.Codec{}, fmt.Errorf("bridge.compression: %w", err)
	}
	return protocol.Codec{
		Encoding:          encoding,
		Compression:       compression,
		CompressThreshold: settings.CompressThreshold,
		MaxFrameBytes:     settings.MaxFrameBytes,
	}, nil
}

// OptionsFor returns dispatcher options for the bridge section of a
// configuration file. Callers fill in Registry and callbacks.
func OptionsFor(settings config.BridgeConfig, logger *slog.Logger) (Options, error) {
	codec, err := CodecFor(settings)
	if err != nil {
		return Options{}, err
	}
	window, err := settings.FlushWindowDuration()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Codec:               codec,
		FlushWindow:         window,
		EventBacklogWarning: settings.EventBacklogWarning,
		Logger:              logger,
	}, nil
}

// Renderer is an open channel to a renderer, either dialed or spawned.
type Renderer struct {
	conn  transport.Conn
	child *transport.Child
}

// Conn is the channel to hand to New.
func (r *Renderer) Conn() transport.Conn { return r.conn }

// Spawned reports whether Connect started the renderer process.
func (r *Renderer) Spawned() bool { return r.child != nil }

// Close closes the channel. A spawned renderer is given a grace period
// to exit and then killed.
func (r *Renderer) Close() error {
	if r.child != nil {
		return r.child.Stop(rendererStopGrace)
	}
	err := r.conn.Close()
	if errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// Connect opens the renderer channel the bridge section describes: it
// dials Endpoint when set, proving the token in TokenFile if one is
// named, and otherwise spawns Renderer with RendererArgs. Cancelling
// ctx kills a spawned renderer.
func Connect(ctx context.Context, settings config.BridgeConfig, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.Endpoint != "" {
		endpoint, err := transport.ParseEndpoint(settings.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("bridge.endpoint: %w", err)
		}
		if !endpoint.IsSocket() {
			return nil, fmt.Errorf("bridge.endpoint %s is not a socket", endpoint)
		}
		dialer := &transport.Dialer{}
		if settings.TokenFile != "" {
			if dialer.Token, err = transport.ReadToken(settings.TokenFile); err != nil {
				return nil, fmt.Errorf("bridge.token_file: %w", err)
			}
		}
		conn, err := dialer.DialContext(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("connecting to renderer: %w", err)
		}
		logger.Info("connected to renderer", "endpoint", endpoint.String(), "authenticated", dialer.Token != "")
		return &Renderer{conn: conn}, nil
	}

	if settings.Renderer == "" {
		return nil, errors.New("bridge: neither endpoint nor renderer is configured")
	}
	child, err := transport.Spawn(ctx, transport.Command{
		Path:       settings.Renderer,
		Args:       settings.RendererArgs,
		SocketPair: settings.SocketPair,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return &Renderer{conn: child.Conn(), child: child}, nil
}
