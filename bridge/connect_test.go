// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tsyne-foundation/tsyne/lib/config"
	"github.com/tsyne-foundation/tsyne/lib/testutil"
	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/transport"
)

func TestCodecFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		settings config.BridgeConfig
		want     protocol.Codec
		wantErr  bool
	}{
		{
			name:     "defaults",
			settings: config.BridgeConfig{},
			want:     protocol.Codec{Encoding: protocol.JSON},
		},
		{
			name:     "cbor with lz4",
			settings: config.BridgeConfig{Encoding: "cbor", Compression: "lz4", CompressThreshold: 512, MaxFrameBytes: 1 << 20},
			want:     protocol.Codec{Encoding: protocol.CBOR, Compression: protocol.CompressionLZ4, CompressThreshold: 512, MaxFrameBytes: 1 << 20},
		},
		{
			name:     "msgpack with zstd",
			settings: config.BridgeConfig{Encoding: "msgpack", Compression: "zstd"},
			want:     protocol.Codec{Encoding: protocol.MessagePack, Compression: protocol.CompressionZstd},
		},
		{name: "unknown encoding", settings: config.BridgeConfig{Encoding: "xml"}, wantErr: true},
		{name: "unknown compression", settings: config.BridgeConfig{Compression: "gzip"}, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got, err := CodecFor(test.settings)
			if test.wantErr {
				if err == nil {
					t.Fatalf("CodecFor = %+v, want an error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CodecFor: %v", err)
			}
			if got != test.want {
				t.Errorf("CodecFor = %+v, want %+v", got, test.want)
			}
		})
	}
}

func TestOptionsFor(t *testing.T) {
	t.Parallel()
	options, err := OptionsFor(config.BridgeConfig{FlushWindow: "2ms", EventBacklogWarning: 100}, nil)
	if err != nil {
		t.Fatalf("OptionsFor: %v", err)
	}
	if options.FlushWindow != 2*time.Millisecond || options.EventBacklogWarning != 100 {
		t.Errorf("options = %+v", options)
	}
	if _, err := OptionsFor(config.BridgeConfig{FlushWindow: "soon"}, nil); err == nil {
		t.Error("invalid flush window accepted")
	}
}

func TestConnectEndpoint(t *testing.T) {
	t.Parallel()
	path := filepath.Join(testutil.SocketDir(t), "renderer.sock")
	listener, err := transport.Listen(transport.Endpoint{Network: transport.NetworkUnix, Address: path})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		connection, err := listener.Accept()
		if err == nil {
			accepted <- connection
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	renderer, err := Connect(ctx, config.BridgeConfig{Endpoint: "unix:" + path}, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if renderer.Spawned() {
		t.Error("dialed renderer reports spawned")
	}
	server := testutil.RequireReceive(t, accepted, testTimeout, "listener never accepted")
	defer server.Close()

	if _, err := renderer.Conn().Write([]byte("frame")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buffer := make([]byte, 5)
	if _, err := io.ReadFull(server, buffer); err != nil || string(buffer) != "frame" {
		t.Errorf("server read %q, %v", buffer, err)
	}
	if err := renderer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestConnectSpawn(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	renderer, err := Connect(ctx, config.BridgeConfig{Renderer: "cat"}, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !renderer.Spawned() {
		t.Error("spawned renderer reports dialed")
	}

	if _, err := renderer.Conn().Write([]byte("echo")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buffer := make([]byte, 4)
	if _, err := io.ReadFull(renderer.Conn(), buffer); err != nil || string(buffer) != "echo" {
		t.Errorf("read back %q, %v", buffer, err)
	}
	if err := renderer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestConnectRequiresTarget(t *testing.T) {
	t.Parallel()
	if _, err := Connect(context.Background(), config.BridgeConfig{}, nil); err == nil {
		t.Error("Connect with no endpoint or renderer succeeded")
	}
	if _, err := Connect(context.Background(), config.BridgeConfig{Endpoint: "stdio"}, nil); err == nil {
		t.Error("Connect to stdio succeeded")
	}
}

func TestConnectEndpointWithToken(t *testing.T) {
	t.Parallel()
	directory := t.TempDir()
	tokenPath := filepath.Join(directory, "token")
	if err := os.WriteFile(tokenPath, []byte("s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(testutil.SocketDir(t), "renderer.sock")
	listener, err := transport.Listen(transport.Endpoint{Network: transport.NetworkUnix, Address: path})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	authenticated := make(chan error, 1)
	go func() {
		connection, err := listener.Accept()
		if err != nil {
			authenticated <- err
			return
		}
		defer connection.Close()
		authenticated <- transport.Authenticate(connection, "s3cret", testTimeout)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	renderer, err := Connect(ctx, config.BridgeConfig{Endpoint: "unix:" + path, TokenFile: tokenPath}, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer renderer.Close()
	if err := testutil.RequireReceive(t, authenticated, testTimeout, "handshake never finished"); err != nil {
		t.Errorf("Authenticate = %v", err)
	}

	if _, err := Connect(ctx, config.BridgeConfig{Endpoint: "unix:" + path, TokenFile: filepath.Join(directory, "missing")}, nil); err == nil {
		t.Error("Connect with a missing token file succeeded")
	}
}
