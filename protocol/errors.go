// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "fmt"

// ErrorKind classifies a [ProtocolError].
type ErrorKind string

const (
	// KindMalformed is a frame whose body could not be decoded.
	KindMalformed ErrorKind = "malformed"

	// KindChecksum is a frame whose CRC did not match its body.
	KindChecksum ErrorKind = "checksum"

	// KindOversize is a frame larger than the configured maximum. The
	// body has been skipped.
	KindOversize ErrorKind = "oversize"

	// KindCompression is a frame with an unknown compression tag or a
	// body that failed to decompress.
	KindCompression ErrorKind = "compression"

	// KindUnknownOperation is a request whose type is not in the
	// operation table. ID carries the request id so a renderer can still
	// answer it.
	KindUnknownOperation ErrorKind = "unknown_operation"

	// KindUnknownResponse is a response for an id with no pending
	// request.
	KindUnknownResponse ErrorKind = "unknown_response"

	// KindDuplicateResponse is a second response for an id that has
	// already been answered.
	KindDuplicateResponse ErrorKind = "duplicate_response"
)

// ProtocolError reports a frame or envelope the peer got wrong. Protocol
// errors never close the channel; the frame is dropped and the stream
// continues.
type ProtocolError struct {
	Kind ErrorKind

	// ID is the correlation id, when the envelope got far enough to
	// have one.
	ID string

	// Type is the request type, when known.
	Type string

	Err error
}

func (e *ProtocolError) Error() string {
	message := "protocol error (" + string(e.Kind) + ")"
	if e.Type != "" {
		message += " type=" + e.Type
	}
	if e.ID != "" {
		message += " id=" + e.ID
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func protocolErrorf(kind ErrorKind, format string, args ...any) *ProtocolError {
	return &ProtocolError{Kind: kind, Err: fmt.Errorf(format, args...)}
}
