// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tsyne-foundation/tsyne/lib/clock"
	"github.com/tsyne-foundation/tsyne/lib/ident"
	"github.com/tsyne-foundation/tsyne/lib/netutil"
	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/transport"
)

// requestPrefix is the ident prefix of correlation ids.
const requestPrefix = "req"

// defaultRecentResponses is how many answered ids are remembered for
// duplicate detection.
const defaultRecentResponses = 4096

// Options configures a Dispatcher. The zero value is usable.
type Options struct {
	// Codec encodes outbound requests and decodes inbound frames.
	Codec protocol.Codec

	// Registry routes callback events. If nil, the dispatcher creates
	// one with an unnamespaced allocator.
	Registry *Registry

	// OnNotify receives events of type protocol.EventNotify. Runs on
	// the event goroutine.
	OnNotify func(ctx context.Context, event *protocol.Event)

	// OnProtocolError is told about every dropped frame, unknown
	// response and duplicate response. Runs on the receive goroutine
	// and must not block.
	OnProtocolError func(err *protocol.ProtocolError)

	// FlushWindow, when positive, coalesces frames written within the
	// window into one transport write.
	FlushWindow time.Duration

	// RecentResponses is how many answered correlation ids are kept for
	// duplicate detection. Defaults to 4096.
	RecentResponses int

	// EventBacklogWarning logs a warning whenever the undelivered event
	// backlog reaches a multiple of this size. Zero disables it.
	EventBacklogWarning int

	// Clock drives the flush window. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives structured log output. If nil, slog.Default() is
	// used. Per-frame events log at Debug.
	Logger *slog.Logger
}

// Stats counts what a dispatcher has seen.
type Stats struct {
	Sent               uint64
	Completed          uint64
	Failed             uint64
	EventsDelivered    uint64
	EventsDropped      uint64
	MalformedFrames    uint64
	UnknownResponses   uint64
	DuplicateResponses uint64
}

type counters struct {
	sent, completed, failed        atomic.Uint64
	eventsDelivered, eventsDropped atomic.Uint64
	malformed, unknown, duplicate  atomic.Uint64
}

// Dispatcher is the app's end of one renderer channel.
type Dispatcher struct {
	conn     transport.Conn
	codec    protocol.Codec
	registry *Registry
	options  Options
	logger   *slog.Logger
	ids      *ident.Allocator

	// writeMutex orders id allocation and frame writes together, so wire
	// order is issue order.
	writeMutex sync.Mutex
	writer     frameWriter

	// mutex guards pending, recent and the terminal state.
	mutex    sync.Mutex
	pending  map[string]*Call
	recent   *recentSet
	closed   bool
	closeErr *ClosedError

	events  *eventQueue
	counter counters

	ready      chan struct{}
	readyOnce  sync.Once
	readyValue atomic.Pointer[protocol.ReadyResult]

	startOnce   sync.Once
	started     atomic.Bool
	cancel      context.CancelFunc
	closedCh    chan struct{}
	receiveDone chan struct{}
	eventDone   chan struct{}
}

// New returns a dispatcher for conn. Nothing is read until Start.
func New(conn transport.Conn, options Options) *Dispatcher {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.RecentResponses <= 0 {
		options.RecentResponses = defaultRecentResponses
	}
	registry := options.Registry
	if registry == nil {
		registry = NewRegistry(ident.New(""))
	}
	d := &Dispatcher{
		conn:        conn,
		codec:       options.Codec,
		registry:    registry,
		options:     options,
		ids:         ident.New(""),
		pending:     make(map[string]*Call),
		recent:      newRecentSet(options.RecentResponses),
		events:      newEventQueue(),
		ready:       make(chan struct{}),
		closedCh:    make(chan struct{}),
		receiveDone: make(chan struct{}),
		eventDone:   make(chan struct{}),
	}
	d.logger = d.buildLogger()
	if options.FlushWindow > 0 {
		d.writer = &batchWriter{
			writer:  conn,
			window:  options.FlushWindow,
			clock:   options.Clock,
			onError: d.closeWith,
		}
	} else {
		d.writer = directWriter{writer: conn}
	}
	return d
}

func (d *Dispatcher) buildLogger() *slog.Logger {
	logger := d.options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", "dispatcher")
}

// Registry returns the callback registry events are routed through.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Start launches the receive and event goroutines. Cancelling ctx closes
// the dispatcher. Calling Start more than once has no further effect.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		ctx, d.cancel = context.WithCancel(ctx)
		d.started.Store(true)
		go func() {
			defer close(d.receiveDone)
			d.receiveLoop()
		}()
		go func() {
			defer close(d.eventDone)
			d.eventLoop(ctx)
		}()
		go func() {
			select {
			case <-ctx.Done():
				d.closeWith(nil)
			case <-d.closedCh:
			}
		}()
		d.logger.Info("dispatcher started",
			"encoding", d.encodingName(),
			"compression", d.codec.Compression.String(),
			"flush_window", d.options.FlushWindow,
		)
	})
}

func (d *Dispatcher) encodingName() string {
	if d.codec.Encoding == nil {
		return protocol.JSON.Name()
	}
	return d.codec.Encoding.Name()
}

// Send issues operation and returns its Call without waiting for the
// response. It fails the Call immediately if ctx is already done, the
// operation cannot be encoded, or the dispatcher is closed.
func (d *Dispatcher) Send(ctx context.Context, operation protocol.Operation) *Call {
	if operation == nil {
		return failedCall(nil, errors.New("bridge: nil operation"))
	}
	if err := ctx.Err(); err != nil {
		return failedCall(operation, err)
	}

	d.writeMutex.Lock()
	defer d.writeMutex.Unlock()

	d.mutex.Lock()
	if d.closed {
		err := d.closeErr
		d.mutex.Unlock()
		return failedCall(operation, err)
	}
	id := string(d.ids.NextID(requestPrefix))
	call := newCall(id, operation)
	d.pending[id] = call
	d.mutex.Unlock()

	frame, err := d.codec.Encode(&protocol.Request{ID: id, Operation: operation})
	if err != nil {
		d.abandon(call, fmt.Errorf("encoding %s: %w", operation.OperationType(), err))
		return call
	}
	if err := d.writer.writeFrame(frame); err != nil {
		// The channel is broken for everyone, this call included.
		d.closeWith(fmt.Errorf("writing %s: %w", operation.OperationType(), err))
		return call
	}
	d.counter.sent.Add(1)
	d.logger.Debug("request sent", "id", id, "type", operation.OperationType(), "bytes", len(frame))
	return call
}

// Request sends operation, waits for its response and decodes the result
// into out when out is non-nil.
func (d *Dispatcher) Request(ctx context.Context, operation protocol.Operation, out any) error {
	return d.Send(ctx, operation).Decode(ctx, out)
}

// Query sends operation and decodes its result as T.
func Query[T any](ctx context.Context, d *Dispatcher, operation protocol.Operation) (T, error) {
	response, err := d.Send(ctx, operation).Wait(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return protocol.ResultAs[T](response)
}

// Flush writes any batched frames now.
func (d *Dispatcher) Flush() error {
	d.writeMutex.Lock()
	defer d.writeMutex.Unlock()
	return d.writer.flush()
}

// abandon removes a call that never reached the wire and fails it.
func (d *Dispatcher) abandon(call *Call, err error) {
	d.mutex.Lock()
	delete(d.pending, call.ID)
	d.mutex.Unlock()
	d.counter.failed.Add(1)
	call.complete(nil, err)
}

// Ready is closed when the renderer's ready frame arrives.
func (d *Dispatcher) Ready() <-chan struct{} { return d.ready }

// WaitReady blocks until the renderer is ready, the channel closes or
// ctx ends.
func (d *Dispatcher) WaitReady(ctx context.Context) (protocol.ReadyResult, error) {
	select {
	case <-d.ready:
		return *d.readyValue.Load(), nil
	case <-d.closedCh:
		// Ready and close can race; prefer ready if both happened.
		select {
		case <-d.ready:
			return *d.readyValue.Load(), nil
		default:
		}
		return protocol.ReadyResult{}, d.Err()
	case <-ctx.Done():
		return protocol.ReadyResult{}, ctx.Err()
	}
}

// Done is closed when the dispatcher reaches its terminal state. Every
// pending call has failed by then.
func (d *Dispatcher) Done() <-chan struct{} { return d.closedCh }

// Err returns the terminal *ClosedError, or nil while open.
func (d *Dispatcher) Err() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closeErr == nil {
		return nil
	}
	return d.closeErr
}

// Pending returns the number of requests awaiting a response.
func (d *Dispatcher) Pending() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.pending)
}

// Stats returns a snapshot of the dispatcher's counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:               d.counter.sent.Load(),
		Completed:          d.counter.completed.Load(),
		Failed:             d.counter.failed.Load(),
		EventsDelivered:    d.counter.eventsDelivered.Load(),
		EventsDropped:      d.counter.eventsDropped.Load(),
		MalformedFrames:    d.counter.malformed.Load(),
		UnknownResponses:   d.counter.unknown.Load(),
		DuplicateResponses: d.counter.duplicate.Load(),
	}
}

// Close flushes batched frames, closes the channel, fails every pending
// call and waits for the receive goroutine to exit. It may be called
// from an event handler; use Wait to also wait for the event goroutine.
func (d *Dispatcher) Close() error {
	d.writeMutex.Lock()
	flushErr := d.writer.flush()
	d.writeMutex.Unlock()

	d.closeWith(nil)
	if d.started.Load() {
		<-d.receiveDone
	}
	if flushErr != nil && !netutil.IsExpectedCloseError(flushErr) {
		return flushErr
	}
	return nil
}

// Wait blocks until both dispatcher goroutines have exited. It returns
// immediately if Start was never called.
func (d *Dispatcher) Wait() {
	if d.started.Load() {
		<-d.receiveDone
		<-d.eventDone
	}
}

// closeWith moves the dispatcher to its terminal state. The first call
// wins; cause is nil for a deliberate Close.
func (d *Dispatcher) closeWith(cause error) {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return
	}
	d.closed = true
	d.closeErr = &ClosedError{Cause: cause}
	pending := d.pending
	d.pending = make(map[string]*Call)
	d.mutex.Unlock()

	d.conn.Close()
	d.events.close()
	if d.cancel != nil {
		d.cancel()
	}

	for _, call := range pending {
		if call.complete(nil, d.closeErr) {
			d.counter.failed.Add(1)
		}
	}
	close(d.closedCh)

	if cause == nil || netutil.IsExpectedCloseError(cause) {
		d.logger.Info("dispatcher closed", "cause", cause, "failed_pending", len(pending))
	} else {
		d.logger.Error("dispatcher closed", "cause", cause, "failed_pending", len(pending))
	}
}

func (d *Dispatcher) receiveLoop() {
	reader := bufio.NewReaderSize(d.conn, 64*1024)
	for {
		message, err := d.codec.ReadMessage(reader)
		if err != nil {
			var protocolError *protocol.ProtocolError
			if errors.As(err, &protocolError) {
				d.counter.malformed.Add(1)
				d.reportProtocolError(protocolError)
				continue
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = fmt.Errorf("renderer closed the channel mid-frame: %w", err)
			}
			d.closeWith(err)
			return
		}

		switch typed := message.(type) {
		case *protocol.Response:
			d.resolve(typed)
		case *protocol.Event:
			backlog := d.events.push(typed)
			if limit := d.options.EventBacklogWarning; limit > 0 && backlog%limit == 0 {
				d.logger.Warn("event backlog growing", "backlog", backlog)
			}
		case *protocol.Request:
			d.counter.malformed.Add(1)
			d.reportProtocolError(&protocol.ProtocolError{
				Kind: protocol.KindMalformed,
				ID:   typed.ID,
				Type: typed.Type(),
				Err:  errors.New("renderer sent a request; the app side serves none"),
			})
		}
	}
}

func (d *Dispatcher) resolve(response *protocol.Response) {
	if response.ID == protocol.ReadyID {
		d.markReady(response)
		return
	}

	d.mutex.Lock()
	call, ok := d.pending[response.ID]
	duplicate := false
	if ok {
		delete(d.pending, response.ID)
		d.recent.add(response.ID)
	} else {
		duplicate = d.recent.contains(response.ID)
	}
	d.mutex.Unlock()

	if !ok {
		kind := protocol.KindUnknownResponse
		if duplicate {
			kind = protocol.KindDuplicateResponse
			d.counter.duplicate.Add(1)
		} else {
			d.counter.unknown.Add(1)
		}
		d.reportProtocolError(&protocol.ProtocolError{
			Kind: kind,
			ID:   response.ID,
			Err:  fmt.Errorf("response for request %s with no pending call", response.ID),
		})
		return
	}

	if response.Success {
		d.counter.completed.Add(1)
		call.complete(response, nil)
		d.logger.Debug("response received", "id", response.ID, "type", call.operationType())
		return
	}
	d.counter.failed.Add(1)
	call.complete(response, &ApplicationError{
		RequestID: response.ID,
		Operation: call.operationType(),
		Message:   response.Error,
		Code:      response.Code,
	})
	d.logger.Debug("request failed", "id", response.ID, "type", call.operationType(), "error", response.Error)
}

func (d *Dispatcher) markReady(response *protocol.Response) {
	result, err := protocol.ResultAs[protocol.ReadyResult](response)
	if err != nil {
		d.logger.Warn("ready frame has an unreadable result", "error", err)
	}
	if result.Status == "" {
		result.Status = "ready"
	}
	fresh := false
	d.readyOnce.Do(func() {
		d.readyValue.Store(&result)
		close(d.ready)
		fresh = true
	})
	if fresh {
		d.logger.Info("renderer ready", "protocol", result.Protocol)
	} else {
		d.logger.Warn("renderer sent a second ready frame")
	}
}

func (d *Dispatcher) reportProtocolError(err *protocol.ProtocolError) {
	d.logger.Warn("protocol error", "kind", string(err.Kind), "id", err.ID, "type", err.Type, "error", err.Err)
	if d.options.OnProtocolError != nil {
		d.options.OnProtocolError(err)
	}
}

func (d *Dispatcher) eventLoop(ctx context.Context) {
	for {
		event, ok := d.events.pop()
		if !ok {
			return
		}
		d.deliver(ctx, event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event *protocol.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("event handler panicked",
				"callback_id", event.Data.CallbackID,
				"widget_id", event.WidgetID,
				"panic", recovered,
			)
		}
	}()

	if event.Type == protocol.EventNotify {
		if d.options.OnNotify == nil {
			d.counter.eventsDropped.Add(1)
			d.logger.Debug("notification dropped", "name", event.Data.Name)
			return
		}
		d.counter.eventsDelivered.Add(1)
		d.options.OnNotify(ctx, event)
		return
	}

	handler, ok := d.registry.Lookup(event.Data.CallbackID)
	if !ok {
		// The node may have been torn down after the renderer emitted
		// the event.
		d.counter.eventsDropped.Add(1)
		d.logger.Debug("event for unknown callback dropped",
			"callback_id", event.Data.CallbackID,
			"widget_id", event.WidgetID,
		)
		return
	}
	d.counter.eventsDelivered.Add(1)
	handler.HandleEvent(ctx, event)
}
