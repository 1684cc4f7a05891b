// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tsyne-foundation/tsyne/lib/clock"
)

// frameWriter puts encoded frames on the wire in call order.
type frameWriter interface {
	writeFrame(frame []byte) error
	flush() error
}

// directWriter writes each frame with one Write.
type directWriter struct {
	writer io.Writer
}

func (w directWriter) writeFrame(frame []byte) error {
	_, err := w.writer.Write(frame)
	return err
}

func (directWriter) flush() error { return nil }

// maxBatchBytes flushes a batch early once it grows past this size.
const maxBatchBytes = 64 * 1024

// batchWriter coalesces frames written within window into one Write.
// A flush error is sticky: every later write returns it, and onError is
// told once when the failing flush ran on the timer.
type batchWriter struct {
	writer  io.Writer
	window  time.Duration
	clock   clock.Clock
	onError func(error)

	mutex  sync.Mutex
	buffer []byte
	timer  *clock.Timer
	err    error
}

func (w *batchWriter) writeFrame(frame []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.err != nil {
		return w.err
	}
	w.buffer = append(w.buffer, frame...)
	if len(w.buffer) >= maxBatchBytes {
		return w.flushLocked()
	}
	if w.timer == nil {
		w.timer = w.clock.AfterFunc(w.window, w.flushOnTimer)
	}
	return nil
}

func (w *batchWriter) flushOnTimer() {
	w.mutex.Lock()
	w.timer = nil
	err := w.flushLocked()
	w.mutex.Unlock()
	if err != nil && w.onError != nil {
		w.onError(err)
	}
}

func (w *batchWriter) flush() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.flushLocked()
}

func (w *batchWriter) flushLocked() error {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.err != nil {
		return w.err
	}
	if len(w.buffer) == 0 {
		return nil
	}
	_, err := w.writer.Write(w.buffer)
	w.buffer = w.buffer[:0]
	if err != nil {
		w.err = fmt.Errorf("flushing batched frames: %w", err)
	}
	return w.err
}
