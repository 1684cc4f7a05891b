// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds Tsyne's CBOR configuration.
//
// CBOR appears in two places: as one of the bridge wire encodings
// (protocol.CBOR) and as the request/reply format between the sandbox
// executor and its isolated runner process. Both go through this
// package so every CBOR byte Tsyne produces uses the same modes.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer and float encodings, definite lengths.
// Equal values produce equal bytes, which keeps golden-frame tests
// stable.
//
// Types shared with the JSON encoding carry only `json` tags;
// fxamacker/cbor falls back to them when no `cbor` tag is present.
// Types that only ever travel as CBOR (the runner IPC) use `cbor`
// tags.
package codec
