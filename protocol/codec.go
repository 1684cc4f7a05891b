// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Codec encodes messages into frames and decodes frames into messages.
// The zero value uses JSON, no compression and the default size limit.
// A Codec holds no state and is safe for concurrent use.
type Codec struct {
	Encoding Encoding

	// Compression is applied to bodies of at least CompressThreshold
	// bytes. Bodies that do not shrink are sent uncompressed.
	Compression       Compression
	CompressThreshold int

	// MaxFrameBytes bounds frame bodies and decompressed envelopes.
	MaxFrameBytes int
}

func (c Codec) encoding() Encoding {
	if c.Encoding == nil {
		return JSON
	}
	return c.Encoding
}

func (c Codec) maxFrameBytes() int {
	if c.MaxFrameBytes <= 0 {
		return DefaultMaxFrameBytes
	}
	return c.MaxFrameBytes
}

func (c Codec) threshold() int {
	if c.CompressThreshold <= 0 {
		return DefaultCompressThreshold
	}
	return c.CompressThreshold
}

// Marshal encodes message into an uncompressed, unframed body.
func (c Codec) Marshal(message Message) ([]byte, error) {
	wire, err := toEnvelope(message)
	if err != nil {
		return nil, err
	}
	body, err := c.encoding().Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", message.MessageKind(), err)
	}
	return body, nil
}

// Unmarshal decodes an uncompressed body. Errors are [*ProtocolError].
func (c Codec) Unmarshal(body []byte) (Message, error) {
	return fromBody(c.encoding(), body)
}

// Encode returns message as one complete frame.
func (c Codec) Encode(message Message) ([]byte, error) {
	return c.AppendMessage(nil, message)
}

// AppendMessage appends message as one frame to dst.
func (c Codec) AppendMessage(dst []byte, message Message) ([]byte, error) {
	body, err := c.Marshal(message)
	if err != nil {
		return dst, err
	}
	if len(body) > c.maxFrameBytes() {
		return dst, fmt.Errorf("%s body %d bytes exceeds maximum %d", message.MessageKind(), len(body), c.maxFrameBytes())
	}
	compression := CompressionNone
	if c.Compression != CompressionNone && len(body) >= c.threshold() {
		compressed, err := compressBody(body, c.Compression)
		switch {
		case err == nil:
			body, compression = compressed, c.Compression
		case !errors.Is(err, errIncompressible):
			return dst, err
		}
	}
	return AppendFrame(dst, compression, body)
}

// Decode decodes exactly one complete frame.
func (c Codec) Decode(frame []byte) (Message, error) {
	reader := bytes.NewReader(frame)
	message, err := c.ReadMessage(reader)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, protocolErrorf(KindMalformed, "truncated frame (%d bytes)", len(frame))
		}
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, protocolErrorf(KindMalformed, "%d trailing bytes after frame", reader.Len())
	}
	return message, nil
}

// ReadMessage reads and decodes the next frame from r. A
// [*ProtocolError] means the frame was consumed and dropped; any other
// error means the stream is finished.
func (c Codec) ReadMessage(r io.Reader) (Message, error) {
	compression, body, err := ReadFrame(r, c.maxFrameBytes())
	if err != nil {
		return nil, err
	}
	if compression != CompressionNone {
		body, err = decompressBody(body, compression, c.maxFrameBytes())
		if err != nil {
			return nil, &ProtocolError{Kind: KindCompression, Err: err}
		}
	}
	return c.Unmarshal(body)
}

// WriteMessage encodes message and writes it to w in a single Write, so
// concurrent writers serialized by a mutex never interleave frames.
func (c Codec) WriteMessage(w io.Writer, message Message) error {
	frame, err := c.Encode(message)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("writing %s frame: %w", message.MessageKind(), err)
	}
	return nil
}

// IsProtocolError reports whether err is a recoverable protocol error.
func IsProtocolError(err error) bool {
	var protocolError *ProtocolError
	return errors.As(err, &protocolError)
}
