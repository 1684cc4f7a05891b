// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tsyne-foundation/tsyne/lib/clock"
	"github.com/tsyne-foundation/tsyne/lib/ident"
	"github.com/tsyne-foundation/tsyne/lib/testutil"
	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/transport"
)

func TestResponsesCorrelateOutOfOrder(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	ctx := context.Background()

	calls := make([]*Call, 3)
	for i := range calls {
		calls[i] = dispatcher.Send(ctx, protocol.GetText{WidgetID: fmt.Sprintf("label_%d", i)})
	}
	requests := []*protocol.Request{renderer.next(), renderer.next(), renderer.next()}

	// Answer in reverse; each result echoes the widget id it was asked
	// about.
	for i := len(requests) - 1; i >= 0; i-- {
		widgetID := requests[i].Operation.(*protocol.GetText).WidgetID
		renderer.reply(requests[i], protocol.TextResult{Text: widgetID})
	}

	for i, call := range calls {
		response, err := call.Wait(ctx)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if response.ID != call.ID {
			t.Errorf("call %d: response id %q, call id %q", i, response.ID, call.ID)
		}
		result, err := protocol.ResultAs[protocol.TextResult](response)
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("label_%d", i); result.Text != want {
			t.Errorf("call %d: result %q, want %q", i, result.Text, want)
		}
	}
	if dispatcher.Pending() != 0 {
		t.Errorf("Pending() = %d after all responses", dispatcher.Pending())
	}
}

func TestRequestsReachWireInIssueOrder(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	ctx := context.Background()

	const count = 50
	for i := 0; i < count; i++ {
		dispatcher.Send(ctx, protocol.CreateLabel{ID: fmt.Sprintf("label_%d", i), Text: "x"})
	}
	for i := 0; i < count; i++ {
		request := renderer.next()
		if want := fmt.Sprintf("req_%d", i+1); request.ID != want {
			t.Fatalf("request %d has id %q, want %q", i, request.ID, want)
		}
		if want := fmt.Sprintf("label_%d", i); request.Operation.(*protocol.CreateLabel).ID != want {
			t.Fatalf("request %d creates %q, want %q", i, request.Operation.(*protocol.CreateLabel).ID, want)
		}
	}
}

func TestEventDeliveredWhileRequestsPending(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	ctx := context.Background()

	delivered := make(chan string, 4)
	registration := dispatcher.Registry().RegisterFunc(func(_ context.Context, event *protocol.Event) {
		delivered <- event.Data.CallbackID
	})

	first := dispatcher.Send(ctx, protocol.GetText{WidgetID: "entry_1"})
	second := dispatcher.Send(ctx, protocol.GetText{WidgetID: "entry_2"})
	firstRequest, secondRequest := renderer.next(), renderer.next()

	// Response, event, response on one channel.
	renderer.reply(firstRequest, protocol.TextResult{Text: "a"})
	renderer.send(callbackEvent(registration.ID))

	got := testutil.RequireReceive(t, delivered, testTimeout, "event delivery")
	if got != registration.ID {
		t.Errorf("delivered callback %q, want %q", got, registration.ID)
	}
	if isDone(second) {
		t.Fatal("second request resolved before its response was sent")
	}

	renderer.reply(secondRequest, protocol.TextResult{Text: "b"})
	if err := WaitAll(ctx, first, second); err != nil {
		t.Fatalf("WaitAll: %v", err)
	}
}

func TestSlowHandlerDoesNotDelayResponses(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	registration := dispatcher.Registry().RegisterFunc(func(context.Context, *protocol.Event) {
		close(entered)
		<-release
	})
	defer close(release)

	call := dispatcher.Send(ctx, protocol.IsEnabled{WidgetID: "button_1"})
	request := renderer.next()
	renderer.send(callbackEvent(registration.ID))
	testutil.RequireClosed(t, entered, testTimeout, "handler entered")

	// The handler is still blocked; the response must resolve anyway.
	renderer.reply(request, protocol.EnabledResult{Enabled: true})
	testutil.RequireClosed(t, call.Done(), testTimeout, "response while handler blocked")

	var result protocol.EnabledResult
	if err := call.Decode(ctx, &result); err != nil || !result.Enabled {
		t.Errorf("Decode = %+v, %v", result, err)
	}
}

func TestChannelClosePropagatesToPendingRequests(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	ctx := context.Background()

	calls := []*Call{
		dispatcher.Send(ctx, protocol.ShowWindow{WindowID: "window_1"}),
		dispatcher.Send(ctx, protocol.SetText{WidgetID: "label_2", Text: "x"}),
		dispatcher.Send(ctx, protocol.GetChecked{WidgetID: "checkbox_3"}),
	}
	for range calls {
		renderer.next()
	}
	if dispatcher.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", dispatcher.Pending())
	}

	renderer.conn.Close()

	for i, call := range calls {
		testutil.RequireClosed(t, call.Done(), testTimeout, "call %d after channel close", i)
		if !errors.Is(call.Err(), ErrChannelClosed) {
			t.Errorf("call %d: err = %v, want ErrChannelClosed", i, call.Err())
		}
		var closedError *ClosedError
		if !errors.As(call.Err(), &closedError) || !errors.Is(closedError.Cause, io.EOF) {
			t.Errorf("call %d: cause = %v, want io.EOF", i, call.Err())
		}
	}
	testutil.RequireClosed(t, dispatcher.Done(), testTimeout, "dispatcher done")

	// Later sends fail without touching the channel.
	late := dispatcher.Send(ctx, protocol.Quit{})
	if !isDone(late) || !errors.Is(late.Err(), ErrChannelClosed) {
		t.Errorf("send after close: done=%v err=%v", isDone(late), late.Err())
	}
	if !errors.Is(dispatcher.Err(), ErrChannelClosed) {
		t.Errorf("Err() = %v", dispatcher.Err())
	}
	if stats := dispatcher.Stats(); stats.Failed != 3 {
		t.Errorf("Stats().Failed = %d, want 3", stats.Failed)
	}
}

func TestCloseFailsPendingRequests(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	call := dispatcher.Send(context.Background(), protocol.GetAllWidgets{})
	renderer.next()

	if err := dispatcher.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !isDone(call) {
		t.Fatal("pending call not failed by Close")
	}
	var closedError *ClosedError
	if !errors.As(call.Err(), &closedError) || closedError.Cause != nil {
		t.Errorf("err = %v, want ClosedError without cause", call.Err())
	}
	// Idempotent.
	if err := dispatcher.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestContextCancelClosesDispatcher(t *testing.T) {
	appSide, rendererSide := transport.Pipe()
	defer rendererSide.Close()
	go func() { io.Copy(io.Discard, rendererSide) }()

	dispatcher := New(appSide, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)
	call := dispatcher.Send(context.Background(), protocol.Quit{})

	cancel()
	testutil.RequireClosed(t, dispatcher.Done(), testTimeout, "dispatcher done after cancel")
	testutil.RequireClosed(t, call.Done(), testTimeout, "call failed after cancel")
	if !errors.Is(call.Err(), ErrChannelClosed) {
		t.Errorf("err = %v", call.Err())
	}
	dispatcher.Wait()
}

func TestApplicationErrorReachesCaller(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	ctx := context.Background()

	call := dispatcher.Send(ctx, protocol.SetContent{WindowID: "window_9", WidgetID: "vbox_1"})
	request := renderer.next()
	renderer.send(&protocol.Response{ID: request.ID, Error: "window not found: window_9", Code: "not_found"})

	_, err := call.Wait(ctx)
	var applicationError *ApplicationError
	if !errors.As(err, &applicationError) {
		t.Fatalf("err = %v, want *ApplicationError", err)
	}
	if applicationError.Operation != "setContent" || applicationError.Code != "not_found" || applicationError.RequestID != request.ID {
		t.Errorf("ApplicationError = %+v", applicationError)
	}
	if errors.Is(err, ErrChannelClosed) {
		t.Error("application error matches ErrChannelClosed")
	}

	// The channel is unaffected.
	next := dispatcher.Send(ctx, protocol.Quit{})
	renderer.reply(renderer.next(), nil)
	if _, err := next.Wait(ctx); err != nil {
		t.Errorf("request after application error: %v", err)
	}
}

func TestDuplicateResponseIsReported(t *testing.T) {
	reports := make(chan *protocol.ProtocolError, 4)
	dispatcher, renderer := newHarness(t, Options{
		OnProtocolError: func(err *protocol.ProtocolError) { reports <- err },
	})
	ctx := context.Background()

	call := dispatcher.Send(ctx, protocol.GetText{WidgetID: "label_1"})
	request := renderer.next()
	renderer.reply(request, protocol.TextResult{Text: "first"})
	renderer.reply(request, protocol.TextResult{Text: "second"})

	report := testutil.RequireReceive(t, reports, testTimeout, "duplicate report")
	if report.Kind != protocol.KindDuplicateResponse || report.ID != request.ID {
		t.Errorf("report = %v", report)
	}
	response, err := call.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	result, _ := protocol.ResultAs[protocol.TextResult](response)
	if result.Text != "first" {
		t.Errorf("call resolved with %q, want the first response", result.Text)
	}
	if stats := dispatcher.Stats(); stats.DuplicateResponses != 1 || stats.Completed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestUnknownResponseIsDropped(t *testing.T) {
	reports := make(chan *protocol.ProtocolError, 4)
	dispatcher, renderer := newHarness(t, Options{
		OnProtocolError: func(err *protocol.ProtocolError) { reports <- err },
	})
	renderer.send(protocol.OK("req_999", nil))

	report := testutil.RequireReceive(t, reports, testTimeout, "unknown response report")
	if report.Kind != protocol.KindUnknownResponse {
		t.Errorf("kind = %s, want %s", report.Kind, protocol.KindUnknownResponse)
	}

	call := dispatcher.Send(context.Background(), protocol.Quit{})
	renderer.reply(renderer.next(), nil)
	testutil.RequireClosed(t, call.Done(), testTimeout, "request after unknown response")
	if call.Err() != nil {
		t.Errorf("err = %v", call.Err())
	}
}

func TestMalformedFramesAreSkipped(t *testing.T) {
	reports := make(chan *protocol.ProtocolError, 4)
	dispatcher, renderer := newHarness(t, Options{
		OnProtocolError: func(err *protocol.ProtocolError) { reports <- err },
	})
	call := dispatcher.Send(context.Background(), protocol.GetAllWidgets{})
	request := renderer.next()

	garbage, _ := protocol.AppendFrame(nil, protocol.CompressionNone, []byte("{not json"))
	renderer.sendRaw(garbage)
	corrupt, _ := renderer.codec.Encode(protocol.OK(request.ID, nil))
	corrupt[len(corrupt)-1] ^= 0xff
	renderer.sendRaw(corrupt)
	renderer.reply(request, protocol.WidgetsResult{})

	testutil.RequireClosed(t, call.Done(), testTimeout, "response after malformed frames")
	if call.Err() != nil {
		t.Errorf("err = %v", call.Err())
	}
	kinds := map[protocol.ErrorKind]bool{}
	for i := 0; i < 2; i++ {
		kinds[testutil.RequireReceive(t, reports, testTimeout, "malformed report %d", i).Kind] = true
	}
	if !kinds[protocol.KindMalformed] || !kinds[protocol.KindChecksum] {
		t.Errorf("reported kinds = %v", kinds)
	}
	if stats := dispatcher.Stats(); stats.MalformedFrames != 2 {
		t.Errorf("MalformedFrames = %d, want 2", stats.MalformedFrames)
	}
	select {
	case <-dispatcher.Done():
		t.Error("malformed frames closed the dispatcher")
	default:
	}
}

func TestReadyHandshake(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	select {
	case <-dispatcher.Ready():
		t.Fatal("ready before the renderer said so")
	default:
	}
	renderer.send(protocol.OK(protocol.ReadyID, protocol.ReadyResult{Status: "ready", Protocol: protocol.Version}))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	result, err := dispatcher.WaitReady(ctx)
	if err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if result.Protocol != protocol.Version {
		t.Errorf("protocol = %d, want %d", result.Protocol, protocol.Version)
	}
}

func TestWaitReadyFailsWhenChannelCloses(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	renderer.conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	if _, err := dispatcher.WaitReady(ctx); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("WaitReady err = %v, want ErrChannelClosed", err)
	}
}

func TestUnknownCallbackIsDropped(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	delivered := make(chan struct{}, 1)
	registration := dispatcher.Registry().RegisterFunc(func(context.Context, *protocol.Event) {
		delivered <- struct{}{}
	})

	renderer.send(callbackEvent("callback_404"))
	renderer.send(callbackEvent(registration.ID))
	testutil.RequireReceive(t, delivered, testTimeout, "known callback after unknown one")

	if stats := dispatcher.Stats(); stats.EventsDropped != 1 || stats.EventsDelivered != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestReleasedRegistrationStopsDelivery(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	delivered := make(chan string, 2)
	released := dispatcher.Registry().RegisterFunc(func(_ context.Context, event *protocol.Event) {
		delivered <- event.Data.CallbackID
	})
	live := dispatcher.Registry().RegisterFunc(func(_ context.Context, event *protocol.Event) {
		delivered <- event.Data.CallbackID
	})
	if !released.Release() {
		t.Fatal("Release returned false")
	}

	renderer.send(callbackEvent(released.ID))
	renderer.send(callbackEvent(live.ID))
	if got := testutil.RequireReceive(t, delivered, testTimeout, "live callback"); got != live.ID {
		t.Errorf("delivered %q, want %q", got, live.ID)
	}
}

func TestHandlerPanicDoesNotStopDelivery(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	panicking := dispatcher.Registry().RegisterFunc(func(context.Context, *protocol.Event) {
		panic("handler bug")
	})
	delivered := make(chan struct{}, 1)
	healthy := dispatcher.Registry().RegisterFunc(func(context.Context, *protocol.Event) {
		delivered <- struct{}{}
	})

	renderer.send(callbackEvent(panicking.ID))
	renderer.send(callbackEvent(healthy.ID))
	testutil.RequireReceive(t, delivered, testTimeout, "delivery after panic")
}

func TestNotifyEvents(t *testing.T) {
	notifications := make(chan string, 1)
	_, renderer := newHarness(t, Options{
		OnNotify: func(_ context.Context, event *protocol.Event) { notifications <- event.Data.Name },
	})
	renderer.send(&protocol.Event{Type: protocol.EventNotify, Data: protocol.EventData{Name: "themeChanged"}})
	if got := testutil.RequireReceive(t, notifications, testTimeout, "notification"); got != "themeChanged" {
		t.Errorf("notification %q", got)
	}
}

func TestHandlerMaySendRequests(t *testing.T) {
	dispatcher, renderer := newHarness(t, Options{})
	results := make(chan string, 1)
	registration := dispatcher.Registry().RegisterFunc(func(ctx context.Context, event *protocol.Event) {
		text, err := Query[protocol.TextResult](ctx, dispatcher, protocol.GetText{WidgetID: "entry_1"})
		if err != nil {
			results <- "error: " + err.Error()
			return
		}
		results <- text.Text
	})

	renderer.send(callbackEvent(registration.ID))
	request := renderer.next()
	renderer.reply(request, protocol.TextResult{Text: "typed"})
	if got := testutil.RequireReceive(t, results, testTimeout, "handler query"); got != "typed" {
		t.Errorf("handler got %q", got)
	}
}

func TestSendRejectsCancelledContext(t *testing.T) {
	dispatcher, _ := newHarness(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	call := dispatcher.Send(ctx, protocol.Quit{})
	if !errors.Is(call.Err(), context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", call.Err())
	}
	if dispatcher.Stats().Sent != 0 {
		t.Error("cancelled send reached the wire")
	}
}

func TestSendRejectsOversizeRequest(t *testing.T) {
	dispatcher, _ := newHarness(t, Options{Codec: protocol.Codec{MaxFrameBytes: 32}})
	call := dispatcher.Send(context.Background(), protocol.CreateLabel{ID: "label_1", Text: "far too long for a thirty-two byte frame"})
	if !isDone(call) || call.Err() == nil {
		t.Fatalf("oversize request: done=%v err=%v", isDone(call), call.Err())
	}
	if errors.Is(call.Err(), ErrChannelClosed) {
		t.Error("encoding failure closed the channel")
	}
	if dispatcher.Pending() != 0 {
		t.Errorf("Pending() = %d after failed encode", dispatcher.Pending())
	}
}

func TestEncodingsAndCompression(t *testing.T) {
	for _, codec := range []protocol.Codec{
		{Encoding: protocol.CBOR},
		{Encoding: protocol.MessagePack, Compression: protocol.CompressionLZ4, CompressThreshold: 64},
		{Encoding: protocol.JSON, Compression: protocol.CompressionZstd, CompressThreshold: 64},
	} {
		t.Run(codec.Encoding.Name(), func(t *testing.T) {
			dispatcher, renderer := newHarness(t, Options{Codec: codec})
			ctx := context.Background()
			call := dispatcher.Send(ctx, protocol.GetAllWidgets{})
			request := renderer.next()
			widgets := make([]protocol.WidgetInfo, 20)
			for i := range widgets {
				widgets[i] = protocol.WidgetInfo{ID: fmt.Sprintf("label_%d", i), Type: "label", Visible: true}
			}
			renderer.reply(request, protocol.WidgetsResult{Widgets: widgets})

			var result protocol.WidgetsResult
			if err := call.Decode(ctx, &result); err != nil {
				t.Fatal(err)
			}
			if len(result.Widgets) != 20 || result.Widgets[19].ID != "label_19" {
				t.Errorf("result has %d widgets", len(result.Widgets))
			}
		})
	}
}

func TestFlushWindowCoalescesWrites(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(0, 0))
	appSide, rendererSide := transport.Pipe()
	counting := &countingConn{Conn: appSide}
	renderer := &fakeRenderer{t: t, conn: rendererSide, requests: make(chan *protocol.Request, 16)}
	go renderer.readLoop()

	dispatcher := New(counting, Options{FlushWindow: 2 * time.Millisecond, Clock: fakeClock})
	dispatcher.Start(context.Background())
	defer func() {
		dispatcher.Close()
		rendererSide.Close()
		dispatcher.Wait()
	}()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		dispatcher.Send(ctx, protocol.UpdateCanvasCircle{ID: fmt.Sprintf("circle_%d", i)})
	}
	if writes := counting.writeCount(); writes != 0 {
		t.Fatalf("%d writes before the window elapsed", writes)
	}

	fakeClock.Advance(2 * time.Millisecond)
	for i := 0; i < 3; i++ {
		renderer.next()
	}
	if writes := counting.writeCount(); writes != 1 {
		t.Errorf("writes = %d, want 1", writes)
	}
}

func TestCloseFlushesBatchedFrames(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(0, 0))
	appSide, rendererSide := transport.Pipe()
	renderer := &fakeRenderer{t: t, conn: rendererSide, requests: make(chan *protocol.Request, 16)}
	go renderer.readLoop()
	defer rendererSide.Close()

	dispatcher := New(appSide, Options{FlushWindow: time.Hour, Clock: fakeClock})
	dispatcher.Start(context.Background())
	dispatcher.Send(context.Background(), protocol.Quit{})

	closed := make(chan error, 1)
	go func() { closed <- dispatcher.Close() }()
	if request := renderer.next(); request.Type() != "quit" {
		t.Errorf("flushed %q", request.Type())
	}
	testutil.RequireReceive(t, closed, testTimeout, "Close returned")
	dispatcher.Wait()
}

type countingConn struct {
	transport.Conn
	mutex  sync.Mutex
	writes int
}

func (c *countingConn) Write(p []byte) (int, error) {
	c.mutex.Lock()
	c.writes++
	c.mutex.Unlock()
	return c.Conn.Write(p)
}

func (c *countingConn) writeCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.writes
}

func TestSharedRegistryAcrossApps(t *testing.T) {
	first := NewRegistry(ident.New("app1"))
	second := NewRegistry(ident.New("app2"))
	a := first.RegisterFunc(func(context.Context, *protocol.Event) {})
	b := second.RegisterFunc(func(context.Context, *protocol.Event) {})
	if a.ID == b.ID {
		t.Fatalf("apps collided on callback id %q", a.ID)
	}
	if _, ok := first.Lookup(b.ID); ok {
		t.Error("app1 registry resolves app2's callback")
	}
}
