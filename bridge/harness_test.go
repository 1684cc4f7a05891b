// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/tsyne-foundation/tsyne/lib/testutil"
	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/transport"
)

const testTimeout = 5 * time.Second

// fakeRenderer is the far end of a dispatcher's channel. It records
// every request and writes whatever frames the test scripts.
type fakeRenderer struct {
	t        *testing.T
	conn     net.Conn
	codec    protocol.Codec
	requests chan *protocol.Request

	writeMutex sync.Mutex
}

// newHarness starts a dispatcher connected to a fake renderer.
func newHarness(t *testing.T, options Options) (*Dispatcher, *fakeRenderer) {
	t.Helper()
	appSide, rendererSide := transport.Pipe()
	renderer := &fakeRenderer{
		t:        t,
		conn:     rendererSide,
		codec:    options.Codec,
		requests: make(chan *protocol.Request, 256),
	}
	go renderer.readLoop()

	dispatcher := New(appSide, options)
	dispatcher.Start(context.Background())
	t.Cleanup(func() {
		dispatcher.Close()
		rendererSide.Close()
		dispatcher.Wait()
	})
	return dispatcher, renderer
}

func (r *fakeRenderer) readLoop() {
	defer close(r.requests)
	reader := bufio.NewReader(r.conn)
	for {
		message, err := r.codec.ReadMessage(reader)
		if err != nil {
			if protocol.IsProtocolError(err) {
				continue
			}
			return
		}
		if request, ok := message.(*protocol.Request); ok {
			r.requests <- request
		}
	}
}

// next returns the next request the dispatcher wrote.
func (r *fakeRenderer) next() *protocol.Request {
	r.t.Helper()
	return testutil.RequireReceive(r.t, r.requests, testTimeout, "waiting for request")
}

func (r *fakeRenderer) send(message protocol.Message) {
	r.t.Helper()
	frame, err := r.codec.Encode(message)
	if err != nil {
		r.t.Fatalf("encoding %T: %v", message, err)
	}
	r.sendRaw(frame)
}

func (r *fakeRenderer) sendRaw(frame []byte) {
	r.t.Helper()
	r.writeMutex.Lock()
	defer r.writeMutex.Unlock()
	if _, err := r.conn.Write(frame); err != nil {
		r.t.Fatalf("renderer write: %v", err)
	}
}

func (r *fakeRenderer) reply(request *protocol.Request, result any) {
	r.t.Helper()
	r.send(protocol.OK(request.ID, result))
}

func callbackEvent(callbackID string) *protocol.Event {
	return &protocol.Event{
		Type:     protocol.EventCallback,
		WidgetID: "button_1",
		Data:     protocol.EventData{CallbackID: callbackID},
	}
}

// isDone reports whether call has completed without waiting.
func isDone(call *Call) bool {
	select {
	case <-call.Done():
		return true
	default:
		return false
	}
}
