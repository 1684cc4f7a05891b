// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// frameHeaderLength is the header plus checksum.
const frameHeaderLength = 8

// maxWireLength is the largest body the 24-bit length field can carry.
const maxWireLength = 1<<24 - 1

// DefaultMaxFrameBytes bounds frame bodies and decompressed envelopes.
const DefaultMaxFrameBytes = 10 * 1024 * 1024

// AppendFrame appends one frame carrying body to dst.
func AppendFrame(dst []byte, compression Compression, body []byte) ([]byte, error) {
	if len(body) > maxWireLength {
		return dst, fmt.Errorf("frame body %d bytes exceeds wire maximum %d", len(body), maxWireLength)
	}
	var header [frameHeaderLength]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(compression)<<24|uint32(len(body)))
	binary.BigEndian.PutUint32(header[4:8], crc32.ChecksumIEEE(body))
	dst = append(dst, header[:]...)
	return append(dst, body...), nil
}

// ReadFrame reads one frame from r and returns its compression tag and
// body as transmitted.
//
// I/O errors (including io.EOF before the first header byte and
// io.ErrUnexpectedEOF mid-frame) are returned as is and leave the stream
// unusable. Checksum and size violations are returned as
// [*ProtocolError] after the frame has been consumed, so the caller may
// keep reading.
func ReadFrame(r io.Reader, maxBody int) (Compression, []byte, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	word := binary.BigEndian.Uint32(header[0:4])
	compression := Compression(word >> 24)
	length := int(word & maxWireLength)
	expectedChecksum := binary.BigEndian.Uint32(header[4:8])

	if maxBody <= 0 {
		maxBody = DefaultMaxFrameBytes
	}
	if length > maxBody {
		if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
			return 0, nil, err
		}
		return 0, nil, protocolErrorf(KindOversize, "frame body %d bytes exceeds maximum %d", length, maxBody)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, nil, err
	}
	if actual := crc32.ChecksumIEEE(body); actual != expectedChecksum {
		return 0, nil, protocolErrorf(KindChecksum, "checksum mismatch: expected %08x, got %08x", expectedChecksum, actual)
	}
	return compression, body, nil
}
