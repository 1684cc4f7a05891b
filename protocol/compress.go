// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression is the frame compression tag carried in the high byte of
// the frame header. The values are wire constants.
type Compression uint8

const (
	// CompressionNone sends the body as encoded.
	CompressionNone Compression = 0

	// CompressionLZ4 is LZ4 block compression. Cheap enough to leave on
	// for per-frame canvas traffic.
	CompressionLZ4 Compression = 1

	// CompressionZstd is zstd at the default level. Better ratios for
	// large text-heavy payloads such as widget tree dumps.
	CompressionZstd Compression = 2
)

// DefaultCompressThreshold is the body size below which frames are sent
// uncompressed even when compression is enabled.
const DefaultCompressThreshold = 4096

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a configuration name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, lz4 or zstd)", name)
	}
}

// errIncompressible means compression would not shrink the body; the
// frame goes out uncompressed.
var errIncompressible = errors.New("incompressible")

// The zstd encoder is safe for concurrent use and expensive to build,
// so one serves every channel. Decoders stream, so they are pooled.
var zstdEncoder *zstd.Encoder

var zstdDecoders = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxWireLength),
			zstd.WithDecoderMaxWindow(maxWireLength),
		)
		if err != nil {
			panic("protocol: zstd decoder initialization failed: " + err.Error())
		}
		return decoder
	},
}

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("protocol: zstd encoder initialization failed: " + err.Error())
	}
}

// zstdDecompress decodes payload, which must expand to exactly size
// bytes. Decoding stops one byte past size, so a body lying about its
// size cannot make the reader allocate more than it declared.
func zstdDecompress(payload []byte, size int) ([]byte, error) {
	decoder := zstdDecoders.Get().(*zstd.Decoder)
	defer func() {
		decoder.Reset(nil)
		zstdDecoders.Put(decoder)
	}()
	if err := decoder.Reset(bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	destination := make([]byte, size)
	read, err := io.ReadFull(decoder, destination)
	if err != nil {
		return nil, fmt.Errorf("got %d bytes, expected %d: %w", read, size, err)
	}
	var extra [1]byte
	if n, err := decoder.Read(extra[:]); n > 0 {
		return nil, fmt.Errorf("body expands past the declared %d bytes", size)
	} else if err != nil && err != io.EOF {
		return nil, err
	}
	return destination, nil
}

// compressBody returns [uint32 uncompressed length][compressed bytes].
func compressBody(body []byte, compression Compression) ([]byte, error) {
	var compressed []byte
	switch compression {
	case CompressionLZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(body)))
		written, err := lz4.CompressBlock(body, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if written == 0 {
			return nil, errIncompressible
		}
		compressed = destination[:written]
	case CompressionZstd:
		compressed = zstdEncoder.EncodeAll(body, nil)
	default:
		return nil, fmt.Errorf("unsupported compression %s", compression)
	}
	if len(compressed)+4 >= len(body) {
		return nil, errIncompressible
	}
	output := make([]byte, 4+len(compressed))
	binary.BigEndian.PutUint32(output[:4], uint32(len(body)))
	copy(output[4:], compressed)
	return output, nil
}

// decompressBody reverses compressBody. maxSize bounds the declared
// uncompressed length.
func decompressBody(body []byte, compression Compression, maxSize int) ([]byte, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("compressed body too short (%d bytes)", len(body))
	}
	size := int(binary.BigEndian.Uint32(body[:4]))
	if size > maxSize {
		return nil, fmt.Errorf("declared uncompressed size %d exceeds maximum %d", size, maxSize)
	}
	payload := body[4:]
	switch compression {
	case CompressionLZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(payload, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return destination, nil
	case CompressionZstd:
		result, err := zstdDecompress(payload, size)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression tag %d", uint8(compression))
	}
}
