// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the wire format between the declarative UI
// side of Tsyne and the native renderer process.
//
// # Framing
//
// Every message travels in one frame:
//
//	[4 bytes header, big-endian] [4 bytes CRC-32 (IEEE), big-endian] [body]
//
// The low 24 bits of the header are the body length. The high 8 bits
// are a [Compression] tag; zero means the body is the encoded envelope
// as is, which makes an uncompressed frame byte-identical to the framing
// used by earlier renderers. A compressed body starts with the
// uncompressed length as a big-endian uint32. The checksum covers the
// body exactly as transmitted. Because the length field is bounded, a
// reader can always skip a bad frame and stay in sync with the stream:
// checksum mismatches and oversize frames are reported as
// [*ProtocolError] and reading continues with the next frame.
//
// # Envelopes
//
// The body is one encoded envelope of three kinds, tagged by a "kind"
// field:
//
//	request  {kind, id, type, payload}
//	response {kind, id, success, result, error, code}
//	event    {kind, type: "callback"|"event", widgetId, data: {callbackId, ...}}
//
// Requests and responses correlate by id. Events carry no id; the
// receiver routes them by data.callbackId. Envelopes without a kind are
// classified the way older peers wrote them: a success field marks a
// response, an id marks a request, anything else is an event.
//
// # Operations
//
// Request payloads are tagged variants. Each operation is a Go struct
// implementing [Operation]; [Decode] looks the request type up in the
// operation table and decodes the payload straight into the concrete
// struct, so an unknown type or a payload of the wrong shape is caught at
// the boundary rather than inside a handler.
//
// # Encodings
//
// Envelopes are encoded with one of [JSON], [CBOR] or [MessagePack].
// All three read the same json struct tags. Both ends of a channel must
// agree on the encoding; it is a deployment setting, not negotiated.
package protocol
