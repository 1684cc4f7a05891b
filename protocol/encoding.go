// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tsyne-foundation/tsyne/lib/codec"
)

// Encoding turns envelopes into frame bodies and back.
type Encoding interface {
	// Name is the configuration name of the encoding.
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var (
	// JSON is the default encoding and the one older renderers speak.
	JSON Encoding = jsonEncoding{}

	// CBOR uses Core Deterministic Encoding, so equal envelopes produce
	// equal frames.
	CBOR Encoding = cborEncoding{}

	// MessagePack matches the renderer's unix socket mode.
	MessagePack Encoding = msgpackEncoding{}
)

// EncodingByName resolves a configuration name to an Encoding.
func EncodingByName(name string) (Encoding, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	case "msgpack":
		return MessagePack, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q (want json, cbor or msgpack)", name)
	}
}

type jsonEncoding struct{}

func (jsonEncoding) Name() string                       { return "json" }
func (jsonEncoding) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonEncoding) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type cborEncoding struct{}

func (cborEncoding) Name() string                       { return "cbor" }
func (cborEncoding) Marshal(v any) ([]byte, error)      { return codec.Marshal(v) }
func (cborEncoding) Unmarshal(data []byte, v any) error { return codec.Unmarshal(data, v) }

// msgpackEncoding reads the json struct tags so operation structs need
// only one set of tags.
type msgpackEncoding struct{}

func (msgpackEncoding) Name() string { return "msgpack" }

func (msgpackEncoding) Marshal(v any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := msgpack.NewEncoder(&buffer)
	encoder.SetCustomStructTag("json")
	encoder.UseCompactInts(true)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func (msgpackEncoding) Unmarshal(data []byte, v any) error {
	decoder := msgpack.NewDecoder(bytes.NewReader(data))
	decoder.SetCustomStructTag("json")
	return decoder.Decode(v)
}
