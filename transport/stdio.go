// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
)

// BridgeFDEnv names the environment variable through which a spawned
// renderer learns the file descriptor of its socketpair end.
const BridgeFDEnv = "TSYNE_BRIDGE_FD"

// streamConn joins a separate reader and writer into a Conn.
type streamConn struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (c *streamConn) Read(p []byte) (int, error)  { return c.reader.Read(p) }
func (c *streamConn) Write(p []byte) (int, error) { return c.writer.Write(p) }

func (c *streamConn) Close() error {
	return errors.Join(c.writer.Close(), c.reader.Close())
}

// StdioConn returns the process's stdin and stdout as one Conn. Closing
// it closes both.
func StdioConn() Conn {
	return &streamConn{reader: os.Stdin, writer: os.Stdout}
}

// Inherited returns the renderer's end of the channel its parent set up:
// the socketpair named by TSYNE_BRIDGE_FD when present, stdio otherwise.
func Inherited() (Conn, error) {
	value := os.Getenv(BridgeFDEnv)
	if value == "" {
		return StdioConn(), nil
	}
	descriptor, err := strconv.Atoi(value)
	if err != nil || descriptor < 3 {
		return nil, fmt.Errorf("%s=%q is not an inherited file descriptor", BridgeFDEnv, value)
	}
	file := os.NewFile(uintptr(descriptor), "tsyne-bridge")
	if file == nil {
		return nil, fmt.Errorf("%s=%d is not open", BridgeFDEnv, descriptor)
	}
	// FileConn dups the descriptor.
	connection, err := net.FileConn(file)
	file.Close()
	if err != nil {
		return nil, fmt.Errorf("adopting inherited socket: %w", err)
	}
	return connection, nil
}
