// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// Command describes a renderer child process.
type Command struct {
	// Path is the executable. Resolved through PATH when it contains no
	// slash.
	Path string
	Args []string

	// Env is appended to the parent's environment.
	Env []string
	Dir string

	// SocketPair connects the child through a socketpair on fd 3
	// instead of stdin/stdout.
	SocketPair bool

	// Logger receives the child's stderr lines and lifecycle events. If
	// nil, slog.Default() is used.
	Logger *slog.Logger
}

func (c *Command) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Child is a running renderer process.
type Child struct {
	conn   Conn
	cmd    *exec.Cmd
	logger *slog.Logger

	done    chan struct{}
	waitErr error

	closeOnce sync.Once
	closeErr  error
}

// Spawn starts the renderer described by command and returns once the
// process is running. Cancelling ctx kills the child.
func Spawn(ctx context.Context, command Command) (*Child, error) {
	if command.Path == "" {
		return nil, errors.New("spawn: Path is required")
	}
	path, err := exec.LookPath(command.Path)
	if err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, command.Args...)
	cmd.Dir = command.Dir
	cmd.Env = append(os.Environ(), command.Env...)

	// Parent-side ends stay open after Start; child-side ends are
	// closed once the child holds them.
	var (
		conn       Conn
		childFiles []*os.File
	)
	cleanup := func() {
		for _, file := range childFiles {
			file.Close()
		}
	}

	if command.SocketPair {
		childEnd, parentEnd, err := socketPairFiles("tsyne-bridge")
		if err != nil {
			return nil, fmt.Errorf("spawn: %w", err)
		}
		connection, err := net.FileConn(parentEnd)
		parentEnd.Close()
		if err != nil {
			childEnd.Close()
			return nil, fmt.Errorf("spawn: converting socketpair end: %w", err)
		}
		conn = connection
		childFiles = append(childFiles, childEnd)
		cmd.ExtraFiles = []*os.File{childEnd}
		cmd.Env = append(cmd.Env, BridgeFDEnv+"=3")
	} else {
		stdinReader, stdinWriter, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("spawn: stdin pipe: %w", err)
		}
		stdoutReader, stdoutWriter, err := os.Pipe()
		if err != nil {
			stdinReader.Close()
			stdinWriter.Close()
			return nil, fmt.Errorf("spawn: stdout pipe: %w", err)
		}
		conn = &streamConn{reader: stdoutReader, writer: stdinWriter}
		childFiles = append(childFiles, stdinReader, stdoutWriter)
		cmd.Stdin = stdinReader
		cmd.Stdout = stdoutWriter
	}

	stderrReader, stderrWriter, err := os.Pipe()
	if err != nil {
		conn.Close()
		cleanup()
		return nil, fmt.Errorf("spawn: stderr pipe: %w", err)
	}
	childFiles = append(childFiles, stderrWriter)
	cmd.Stderr = stderrWriter

	logger := command.logger().With("renderer", command.Path)
	if err := cmd.Start(); err != nil {
		conn.Close()
		cleanup()
		stderrReader.Close()
		return nil, fmt.Errorf("spawn: starting %s: %w", path, err)
	}
	cleanup()

	child := &Child{
		conn:   conn,
		cmd:    cmd,
		logger: logger.With("pid", cmd.Process.Pid),
		done:   make(chan struct{}),
	}
	child.logger.Info("renderer started", "socketpair", command.SocketPair)

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		child.relayStderr(stderrReader)
	}()
	go func() {
		err := cmd.Wait()
		<-stderrDone
		child.waitErr = err
		child.logger.Info("renderer exited", "error", err)
		close(child.done)
	}()
	return child, nil
}

// relayStderr logs each stderr line until the child closes it.
func (c *Child) relayStderr(stderr io.ReadCloser) {
	defer stderr.Close()
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	for scanner.Scan() {
		c.logger.Info("renderer stderr", "line", scanner.Text())
	}
}

// Conn returns the parent's end of the channel.
func (c *Child) Conn() Conn { return c.conn }

// PID returns the child's process id.
func (c *Child) PID() int { return c.cmd.Process.Pid }

// Done is closed once the child has exited and its stderr is drained.
func (c *Child) Done() <-chan struct{} { return c.done }

// Wait blocks until the child exits and returns its exit error.
func (c *Child) Wait() error {
	<-c.done
	return c.waitErr
}

// Stop closes the channel, which a well-behaved renderer treats as a
// quit, and kills the child if it has not exited after grace.
func (c *Child) Stop(grace time.Duration) error {
	c.closeOnce.Do(func() { c.closeErr = c.conn.Close() })

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-c.done:
	case <-timer.C:
		c.logger.Warn("renderer did not exit after channel close, killing", "grace", grace)
		if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("killing renderer %d: %w", c.PID(), err)
		}
		<-c.done
	}
	if errors.Is(c.closeErr, os.ErrClosed) || errors.Is(c.closeErr, net.ErrClosed) {
		return nil
	}
	return c.closeErr
}

// String identifies the child in logs.
func (c *Child) String() string {
	return c.cmd.Path + "[" + strconv.Itoa(c.PID()) + "]"
}
