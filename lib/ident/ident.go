// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package ident

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// ID is an opaque node identity. Compare IDs for equality only; use
// [Prefix] and [Sequence] for diagnostics.
type ID string

// String returns the ID as a plain string.
func (id ID) String() string { return string(id) }

// MaxSequence is the largest sequence number an allocator hands out.
// It matches the largest integer a float64 represents exactly, so IDs
// survive a round trip through JSON numbers on the renderer side.
const MaxSequence = 1<<53 - 1

// ErrExhausted is the panic value raised when an allocator would have to
// wrap its counter. Wrapping would reissue IDs, which is never allowed.
var ErrExhausted = errors.New("ident: sequence exhausted")

// Allocator issues unique, monotonically increasing IDs. The zero value
// is ready to use and has no namespace. Allocator is safe for concurrent
// use, and re-entrant calls from nested builder closures are atomic.
type Allocator struct {
	namespace string
	sequence  atomic.Uint64
}

// New returns an allocator whose IDs are qualified with namespace. An
// empty namespace produces unqualified IDs. The namespace may itself
// contain ':' (a host:port app name, say); prefixes must not.
func New(namespace string) *Allocator {
	return &Allocator{namespace: namespace}
}

// Namespace returns the allocator's namespace.
func (a *Allocator) Namespace() string { return a.namespace }

// NextID returns a fresh ID for a node of the given kind. Panics with
// [ErrExhausted] after [MaxSequence] calls.
func (a *Allocator) NextID(prefix string) ID {
	sequence := a.sequence.Add(1)
	if sequence > MaxSequence {
		panic(ErrExhausted)
	}
	if a.namespace == "" {
		return ID(prefix + "_" + strconv.FormatUint(sequence, 10))
	}
	return ID(a.namespace + ":" + prefix + "_" + strconv.FormatUint(sequence, 10))
}

// Issued returns how many IDs the allocator has handed out.
func (a *Allocator) Issued() uint64 {
	issued := a.sequence.Load()
	if issued > MaxSequence {
		return MaxSequence
	}
	return issued
}

// Prefix returns the node-kind prefix of id, without namespace.
func Prefix(id ID) string {
	local := stripNamespace(string(id))
	separator := strings.LastIndexByte(local, '_')
	if separator < 0 {
		return local
	}
	return local[:separator]
}

// Sequence parses the sequence number out of id.
func Sequence(id ID) (uint64, error) {
	local := stripNamespace(string(id))
	separator := strings.LastIndexByte(local, '_')
	if separator < 0 {
		return 0, fmt.Errorf("ident: %q has no sequence", id)
	}
	sequence, err := strconv.ParseUint(local[separator+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ident: %q: %w", id, err)
	}
	return sequence, nil
}

// stripNamespace cuts at the last ':' since only the namespace may
// contain one.
func stripNamespace(s string) string {
	if index := strings.LastIndexByte(s, ':'); index >= 0 {
		return s[index+1:]
	}
	return s
}
