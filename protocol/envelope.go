// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
	"reflect"
)

// MessageKind tags an envelope.
type MessageKind string

const (
	MessageRequest  MessageKind = "request"
	MessageResponse MessageKind = "response"
	MessageEvent    MessageKind = "event"
)

// Event types carried in the event envelope's type field.
const (
	// EventCallback is a user interaction routed to a registered
	// callback by data.callbackId.
	EventCallback = "callback"

	// EventNotify is a renderer notification not tied to a callback
	// (window closed by the window manager, theme change).
	EventNotify = "event"
)

// ReadyID is the correlation id of the unsolicited response a renderer
// sends once it is ready to accept requests.
const ReadyID = "ready"

// Message is a decoded envelope: *Request, *Response or *Event.
type Message interface {
	MessageKind() MessageKind
}

// Request asks the renderer to perform one operation.
type Request struct {
	// ID is chosen by the sender and must not be reused while the
	// request is in flight.
	ID        string
	Operation Operation
}

func (*Request) MessageKind() MessageKind { return MessageRequest }

// Type returns the operation name.
func (r *Request) Type() string {
	if r.Operation == nil {
		return ""
	}
	return r.Operation.OperationType()
}

// Response answers the request with the same ID.
type Response struct {
	ID      string
	Success bool

	// Result is the operation's result. On decoded responses it is nil;
	// use [ResultAs] to decode it into a concrete type.
	Result any

	// Error and Code describe a failed operation.
	Error string
	Code  string

	// body and encoding retain the decoded frame so ResultAs can decode
	// the result field straight into the caller's type.
	body     []byte
	encoding Encoding
}

func (*Response) MessageKind() MessageKind { return MessageResponse }

// OK builds a success response.
func OK(id string, result any) *Response {
	return &Response{ID: id, Success: true, Result: result}
}

// Failure builds a failure response from err. An err implementing
// ErrorCode() string supplies the machine-readable code.
func Failure(id string, err error) *Response {
	response := &Response{ID: id, Success: false, Error: err.Error()}
	var coder interface{ ErrorCode() string }
	if errors.As(err, &coder) {
		response.Code = coder.ErrorCode()
	}
	return response
}

// ResultAs decodes a response's result as T. A response without a result
// yields T's zero value.
func ResultAs[T any](r *Response) (T, error) {
	var zero T
	if r.body == nil {
		switch typed := r.Result.(type) {
		case nil:
			return zero, nil
		case T:
			return typed, nil
		case *T:
			if typed == nil {
				return zero, nil
			}
			return *typed, nil
		default:
			return zero, fmt.Errorf("response %s: result is %T, not %T", r.ID, r.Result, zero)
		}
	}
	var envelope struct {
		Result *T `json:"result"`
	}
	if err := r.encoding.Unmarshal(r.body, &envelope); err != nil {
		return zero, fmt.Errorf("response %s: decoding result: %w", r.ID, err)
	}
	if envelope.Result == nil {
		return zero, nil
	}
	return *envelope.Result, nil
}

// DecodeResult decodes the response's result into out, which must be a
// non-nil pointer. A response without a result leaves out unchanged.
func (r *Response) DecodeResult(out any) error {
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("response %s: DecodeResult needs a non-nil pointer, got %T", r.ID, out)
	}
	if r.body == nil {
		if r.Result == nil {
			return nil
		}
		value := reflect.ValueOf(r.Result)
		if value.Kind() == reflect.Pointer && value.Type() == target.Type() {
			value = value.Elem()
		}
		if !value.Type().AssignableTo(target.Elem().Type()) {
			return fmt.Errorf("response %s: result is %T, not assignable to %s", r.ID, r.Result, target.Elem().Type())
		}
		target.Elem().Set(value)
		return nil
	}
	// The wrapper's field holds out itself, so every encoding decodes
	// into the caller's value rather than a copy.
	wrapperType := reflect.StructOf([]reflect.StructField{{
		Name: "Result",
		Type: target.Type(),
		Tag:  `json:"result"`,
	}})
	wrapper := reflect.New(wrapperType)
	wrapper.Elem().Field(0).Set(target)
	if err := r.encoding.Unmarshal(r.body, wrapper.Interface()); err != nil {
		return fmt.Errorf("response %s: decoding result: %w", r.ID, err)
	}
	return nil
}

// Event is an asynchronous message from the renderer. It correlates with
// no request.
type Event struct {
	Type     string
	WidgetID string
	Data     EventData
}

func (*Event) MessageKind() MessageKind { return MessageEvent }

// EventData is the event payload. CallbackID routes the event; the
// remaining fields are set according to the interaction.
type EventData struct {
	CallbackID string `json:"callbackId"`

	// X and Y are the pointer position relative to the widget.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// DeltaX and DeltaY are the drag movement since the previous drag
	// event.
	DeltaX float64 `json:"deltaX,omitempty"`
	DeltaY float64 `json:"deltaY,omitempty"`

	// Phase is "start", "move" or "end" for drags.
	Phase string `json:"phase,omitempty"`

	// Text is the entry content for change and submit events.
	Text string `json:"text,omitempty"`

	// Checked is the new checkbox state.
	Checked *bool `json:"checked,omitempty"`

	// Name identifies notification events (EventNotify).
	Name string `json:"name,omitempty"`
}

// envelope is the encoded form of every message.
type envelope struct {
	Kind     MessageKind `json:"kind,omitempty"`
	ID       string      `json:"id,omitempty"`
	Type     string      `json:"type,omitempty"`
	Payload  any         `json:"payload,omitempty"`
	Success  *bool       `json:"success,omitempty"`
	Result   any         `json:"result,omitempty"`
	Error    string      `json:"error,omitempty"`
	Code     string      `json:"code,omitempty"`
	WidgetID string      `json:"widgetId,omitempty"`
	Data     *EventData  `json:"data,omitempty"`
}

// envelopeHeader is the first decoding pass: everything except the
// payload and result, whose shapes depend on the operation.
type envelopeHeader struct {
	Kind     MessageKind `json:"kind"`
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Success  *bool       `json:"success"`
	Error    string      `json:"error"`
	Code     string      `json:"code"`
	WidgetID string      `json:"widgetId"`
	Data     *EventData  `json:"data"`
}

func toEnvelope(message Message) (*envelope, error) {
	switch typed := message.(type) {
	case *Request:
		if typed.ID == "" {
			return nil, errors.New("request without id")
		}
		if typed.Operation == nil {
			return nil, fmt.Errorf("request %s without operation", typed.ID)
		}
		return &envelope{
			Kind:    MessageRequest,
			ID:      typed.ID,
			Type:    typed.Operation.OperationType(),
			Payload: typed.Operation,
		}, nil
	case *Response:
		if typed.ID == "" {
			return nil, errors.New("response without id")
		}
		success := typed.Success
		return &envelope{
			Kind:    MessageResponse,
			ID:      typed.ID,
			Success: &success,
			Result:  typed.Result,
			Error:   typed.Error,
			Code:    typed.Code,
		}, nil
	case *Event:
		eventType := typed.Type
		if eventType == "" {
			eventType = EventCallback
		}
		data := typed.Data
		return &envelope{
			Kind:     MessageEvent,
			Type:     eventType,
			WidgetID: typed.WidgetID,
			Data:     &data,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported message %T", message)
	}
}

// classify infers the kind of an envelope written without one.
func (h *envelopeHeader) classify() MessageKind {
	if h.Kind != "" {
		return h.Kind
	}
	if h.Success != nil {
		return MessageResponse
	}
	if h.ID != "" {
		return MessageRequest
	}
	return MessageEvent
}

func fromBody(encoding Encoding, body []byte) (Message, error) {
	var header envelopeHeader
	if err := encoding.Unmarshal(body, &header); err != nil {
		return nil, &ProtocolError{Kind: KindMalformed, Err: err}
	}

	switch header.classify() {
	case MessageRequest:
		if header.ID == "" {
			return nil, protocolErrorf(KindMalformed, "request without id")
		}
		decode, ok := operationTable[header.Type]
		if !ok {
			return nil, &ProtocolError{
				Kind: KindUnknownOperation,
				ID:   header.ID,
				Type: header.Type,
				Err:  fmt.Errorf("unknown message type: %s", header.Type),
			}
		}
		operation, err := decode(encoding, body)
		if err != nil {
			return nil, &ProtocolError{Kind: KindMalformed, ID: header.ID, Type: header.Type, Err: err}
		}
		if validator, ok := operation.(interface{ Validate() error }); ok {
			if err := validator.Validate(); err != nil {
				return nil, &ProtocolError{Kind: KindMalformed, ID: header.ID, Type: header.Type, Err: err}
			}
		}
		return &Request{ID: header.ID, Operation: operation}, nil

	case MessageResponse:
		if header.ID == "" {
			return nil, protocolErrorf(KindMalformed, "response without id")
		}
		success := header.Success != nil && *header.Success
		return &Response{
			ID:       header.ID,
			Success:  success,
			Error:    header.Error,
			Code:     header.Code,
			body:     body,
			encoding: encoding,
		}, nil

	case MessageEvent:
		event := &Event{Type: header.Type, WidgetID: header.WidgetID}
		if event.Type == "" {
			event.Type = EventCallback
		}
		if header.Data != nil {
			event.Data = *header.Data
		}
		return event, nil

	default:
		return nil, protocolErrorf(KindMalformed, "unknown envelope kind %q", header.Kind)
	}
}
