// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package renderer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/tsyne-foundation/tsyne/lib/netutil"
	"github.com/tsyne-foundation/tsyne/protocol"
	"github.com/tsyne-foundation/tsyne/transport"
)

// HandlerFunc answers one request. A nil result produces a success
// response without a result. An error produces a failure response; an
// error with an ErrorCode() string method supplies the code.
type HandlerFunc func(ctx context.Context, request *protocol.Request) (any, error)

// ErrNotServing is returned by Emit when no channel is being served.
var ErrNotServing = errors.New("renderer: not serving")

// Options configures a Server.
type Options struct {
	Codec protocol.Codec

	// Logger receives structured log output. If nil, slog.Default() is
	// used.
	Logger *slog.Logger
}

// Server dispatches requests to handlers for one channel at a time.
type Server struct {
	codec    protocol.Codec
	logger   *slog.Logger
	handlers map[string]HandlerFunc

	// writeMutex serializes frames from responses and Emit.
	writeMutex sync.Mutex
	conn       transport.Conn

	stopping atomic.Bool
	served   atomic.Uint64
}

// NewServer returns a server with no handlers.
func NewServer(options Options) *Server {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		codec:    options.Codec,
		logger:   logger.With("component", "renderer"),
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers handler for an operation type. It panics if the type
// is not a protocol operation or already has a handler. Register every
// handler before Serve.
func (s *Server) Handle(operationType string, handler HandlerFunc) {
	if !protocol.IsOperation(operationType) {
		panic(fmt.Sprintf("renderer.Server: %q is not a protocol operation", operationType))
	}
	if _, exists := s.handlers[operationType]; exists {
		panic(fmt.Sprintf("renderer.Server: duplicate handler for %q", operationType))
	}
	s.handlers[operationType] = handler
}

// On registers a handler that receives the decoded payload as *T.
func On[T protocol.Operation](s *Server, handler func(ctx context.Context, operation *T) (any, error)) {
	var zero T
	s.Handle(zero.OperationType(), func(ctx context.Context, request *protocol.Request) (any, error) {
		switch operation := any(request.Operation).(type) {
		case *T:
			return handler(ctx, operation)
		case T:
			return handler(ctx, &operation)
		default:
			return nil, fmt.Errorf("payload for %s decoded as %T", request.Type(), request.Operation)
		}
	})
}

// Stop makes Serve return once the request in progress has been
// answered. A quit handler calls it.
func (s *Server) Stop() { s.stopping.Store(true) }

// Served returns how many requests have been answered.
func (s *Server) Served() uint64 { return s.served.Load() }

// Serve writes the ready frame and answers requests on conn until the
// peer hangs up, ctx is cancelled or Stop is called. Serve closes conn
// before returning. A clean end returns nil.
func (s *Server) Serve(ctx context.Context, conn transport.Conn) error {
	s.writeMutex.Lock()
	s.conn = conn
	s.writeMutex.Unlock()
	s.stopping.Store(false)

	defer func() {
		s.writeMutex.Lock()
		s.conn = nil
		s.writeMutex.Unlock()
		conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	ready := protocol.OK(protocol.ReadyID, protocol.ReadyResult{Status: "ready", Protocol: protocol.Version})
	if err := s.write(ready); err != nil {
		return fmt.Errorf("writing ready frame: %w", err)
	}
	s.logger.Info("renderer serving", "handlers", len(s.handlers))

	reader := bufio.NewReaderSize(conn, 64*1024)
	for !s.stopping.Load() {
		message, err := s.codec.ReadMessage(reader)
		if err != nil {
			var protocolError *protocol.ProtocolError
			if errors.As(err, &protocolError) {
				s.handleProtocolError(protocolError)
				continue
			}
			if errors.Is(err, io.EOF) || netutil.IsExpectedCloseError(err) || ctx.Err() != nil {
				s.logger.Info("renderer channel closed", "served", s.served.Load())
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}

		request, ok := message.(*protocol.Request)
		if !ok {
			s.logger.Warn("ignoring non-request frame", "kind", string(message.MessageKind()))
			continue
		}
		if err := s.write(s.dispatch(ctx, request)); err != nil {
			if netutil.IsExpectedCloseError(err) {
				return nil
			}
			return fmt.Errorf("writing response to %s: %w", request.ID, err)
		}
		s.served.Add(1)
	}
	s.logger.Info("renderer stopped", "served", s.served.Load())
	return nil
}

// ServeListener serves each connection accepted on listener in turn. A
// renderer hosts one app at a time, so the next connection is accepted
// only after the previous one ends. It returns nil when ctx is
// cancelled or a handler calls Stop.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()
	s.logger.Info("renderer listening", "address", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting: %w", err)
		}
		if err := s.Serve(ctx, conn); err != nil {
			s.logger.Error("channel failed", "error", err)
		}
		if s.stopping.Load() || ctx.Err() != nil {
			return nil
		}
	}
}

func (s *Server) dispatch(ctx context.Context, request *protocol.Request) *protocol.Response {
	handler, ok := s.handlers[request.Type()]
	if !ok {
		return protocol.Failure(request.ID, &OperationError{
			Code:    "unsupported_operation",
			Message: fmt.Sprintf("operation %q is not supported by this renderer", request.Type()),
		})
	}
	result, err := s.invoke(ctx, handler, request)
	if err != nil {
		s.logger.Debug("request failed", "id", request.ID, "type", request.Type(), "error", err)
		return protocol.Failure(request.ID, err)
	}
	s.logger.Debug("request handled", "id", request.ID, "type", request.Type())
	return protocol.OK(request.ID, result)
}

// invoke runs handler, turning a panic into a failure response so one
// bad request cannot take the renderer down.
func (s *Server) invoke(ctx context.Context, handler HandlerFunc, request *protocol.Request) (result any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("handler panicked", "type", request.Type(), "panic", recovered)
			err = &OperationError{Code: "internal", Message: fmt.Sprintf("handler panicked: %v", recovered)}
		}
	}()
	return handler(ctx, request)
}

func (s *Server) handleProtocolError(err *protocol.ProtocolError) {
	s.logger.Warn("protocol error", "kind", string(err.Kind), "id", err.ID, "type", err.Type, "error", err.Err)
	if err.ID == "" {
		return
	}
	// The request had an id, so the app is waiting on it.
	var code string
	switch err.Kind {
	case protocol.KindUnknownOperation:
		code = "unknown_operation"
	case protocol.KindMalformed:
		code = "invalid_payload"
	default:
		return
	}
	response := protocol.Failure(err.ID, &OperationError{Code: code, Message: err.Error()})
	if writeErr := s.write(response); writeErr != nil {
		s.logger.Debug("failed to answer rejected request", "id", err.ID, "code", code, "error", writeErr)
	}
}

// Emit writes event to the app. It is safe to call from any goroutine,
// including from inside a handler.
func (s *Server) Emit(event *protocol.Event) error {
	return s.write(event)
}

func (s *Server) write(message protocol.Message) error {
	frame, err := s.codec.Encode(message)
	if err != nil {
		return err
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if s.conn == nil {
		return ErrNotServing
	}
	_, err = s.conn.Write(frame)
	return err
}

// OperationError is a handler failure with a machine-readable code.
type OperationError struct {
	Code    string
	Message string
}

func (e *OperationError) Error() string     { return e.Message }
func (e *OperationError) ErrorCode() string { return e.Code }

// NotFound reports an id the renderer does not know.
func NotFound(kind, id string) error {
	return &OperationError{Code: "not_found", Message: fmt.Sprintf("%s not found: %s", kind, id)}
}

// Invalid reports a request that is well formed but cannot apply.
func Invalid(format string, args ...any) error {
	return &OperationError{Code: "invalid", Message: fmt.Sprintf(format, args...)}
}
