// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Pipe returns two connected in-memory Conns. Writes block until the
// other side reads, so each side needs its own reader goroutine.
func Pipe() (net.Conn, net.Conn) {
	return net.Pipe()
}

// SocketPair returns two connected unix stream sockets. Unlike [Pipe]
// the kernel buffers writes.
func SocketPair() (net.Conn, net.Conn, error) {
	first, second, err := socketPairFiles("tsyne-socketpair")
	if err != nil {
		return nil, nil, err
	}
	defer first.Close()
	defer second.Close()

	firstConnection, err := net.FileConn(first)
	if err != nil {
		return nil, nil, fmt.Errorf("converting socketpair end: %w", err)
	}
	secondConnection, err := net.FileConn(second)
	if err != nil {
		firstConnection.Close()
		return nil, nil, fmt.Errorf("converting socketpair end: %w", err)
	}
	return firstConnection, secondConnection, nil
}

// socketPairFiles creates a close-on-exec socketpair. Descriptors handed
// to a child through exec.Cmd.ExtraFiles lose the flag in the child only.
func socketPairFiles(name string) (*os.File, *os.File, error) {
	descriptors, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("creating socketpair: %w", err)
	}
	return os.NewFile(uintptr(descriptors[0]), name+"-0"), os.NewFile(uintptr(descriptors[1]), name+"-1"), nil
}
