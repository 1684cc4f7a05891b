// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tsyne-foundation/tsyne/lib/clock"
	"github.com/tsyne-foundation/tsyne/lib/testutil"
	"github.com/tsyne-foundation/tsyne/protocol"
)

func TestEventQueueOrderAndClose(t *testing.T) {
	t.Parallel()
	queue := newEventQueue()
	for i := 0; i < 5; i++ {
		if backlog := queue.push(&protocol.Event{WidgetID: fmt.Sprint(i)}); backlog != i+1 {
			t.Fatalf("push %d: backlog %d", i, backlog)
		}
	}
	for i := 0; i < 5; i++ {
		event, ok := queue.pop()
		if !ok || event.WidgetID != fmt.Sprint(i) {
			t.Fatalf("pop %d = %v, %v", i, event, ok)
		}
	}

	popped := make(chan bool, 1)
	go func() {
		_, ok := queue.pop()
		popped <- ok
	}()
	testutil.RequireNoReceive(t, popped, 20*time.Millisecond, "pop on an empty queue")
	queue.close()
	if ok := testutil.RequireReceive(t, popped, testTimeout, "pop after close"); ok {
		t.Error("pop returned an event after close")
	}
	if backlog := queue.push(&protocol.Event{}); backlog != 0 {
		t.Errorf("push after close reported backlog %d", backlog)
	}
}

func TestRecentSetEvictsOldest(t *testing.T) {
	t.Parallel()
	recent := newRecentSet(3)
	for _, id := range []string{"req_1", "req_2", "req_3", "req_4"} {
		recent.add(id)
	}
	if recent.contains("req_1") {
		t.Error("req_1 should have been evicted")
	}
	for _, id := range []string{"req_2", "req_3", "req_4"} {
		if !recent.contains(id) {
			t.Errorf("%s missing", id)
		}
	}
}

func TestCallCompletesOnce(t *testing.T) {
	t.Parallel()
	call := newCall("req_1", protocol.Quit{})
	if call.Err() != nil {
		t.Error("Err() before completion")
	}
	if !call.complete(protocol.OK("req_1", nil), nil) {
		t.Fatal("first completion ignored")
	}
	if call.complete(nil, errors.New("late")) {
		t.Error("second completion took effect")
	}
	response, err := call.Wait(context.Background())
	if err != nil || response.ID != "req_1" {
		t.Errorf("Wait = %v, %v", response, err)
	}
}

func TestCallWaitHonoursContext(t *testing.T) {
	t.Parallel()
	call := newCall("req_1", protocol.Quit{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := call.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait err = %v", err)
	}
}

func TestWaitAllReturnsFirstErrorInOrder(t *testing.T) {
	t.Parallel()
	first := errors.New("first")
	calls := []*Call{
		newCall("req_1", protocol.Quit{}),
		failedCall(protocol.Quit{}, first),
		failedCall(protocol.Quit{}, errors.New("second")),
	}
	calls[0].complete(protocol.OK("req_1", nil), nil)
	if err := WaitAll(context.Background(), calls...); err != first {
		t.Errorf("WaitAll = %v, want %v", err, first)
	}
}

type failingWriter struct{ writes int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("broken pipe")
}

func TestBatchWriterFlushesOnWindow(t *testing.T) {
	t.Parallel()
	fakeClock := clock.Fake(time.Unix(0, 0))
	var buffer bytes.Buffer
	writer := &batchWriter{writer: &buffer, window: time.Millisecond, clock: fakeClock}

	writer.writeFrame([]byte("one"))
	writer.writeFrame([]byte("two"))
	if buffer.Len() != 0 {
		t.Fatal("batch written before the window")
	}
	fakeClock.Advance(time.Millisecond)
	if buffer.String() != "onetwo" {
		t.Errorf("flushed %q", buffer.String())
	}
	if fakeClock.PendingCount() != 0 {
		t.Error("timer left pending after flush")
	}
}

func TestBatchWriterFlushesWhenFull(t *testing.T) {
	t.Parallel()
	fakeClock := clock.Fake(time.Unix(0, 0))
	var buffer bytes.Buffer
	writer := &batchWriter{writer: &buffer, window: time.Hour, clock: fakeClock}

	if err := writer.writeFrame(make([]byte, maxBatchBytes)); err != nil {
		t.Fatal(err)
	}
	if buffer.Len() != maxBatchBytes {
		t.Errorf("buffer holds %d bytes after a full batch", buffer.Len())
	}
}

func TestBatchWriterErrorIsSticky(t *testing.T) {
	t.Parallel()
	fakeClock := clock.Fake(time.Unix(0, 0))
	failing := &failingWriter{}
	reported := make(chan error, 1)
	writer := &batchWriter{
		writer:  failing,
		window:  time.Millisecond,
		clock:   fakeClock,
		onError: func(err error) { reported <- err },
	}

	writer.writeFrame([]byte("frame"))
	fakeClock.Advance(time.Millisecond)
	testutil.RequireReceive(t, reported, testTimeout, "timer flush error")

	if err := writer.writeFrame([]byte("later")); err == nil {
		t.Error("write after a failed flush succeeded")
	}
	if err := writer.flush(); err == nil {
		t.Error("flush after a failed flush succeeded")
	}
	if failing.writes != 1 {
		t.Errorf("underlying writer called %d times, want 1", failing.writes)
	}
}
