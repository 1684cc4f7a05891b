// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package ident

import (
	"errors"
	"sync"
	"testing"
)

func TestNextIDFormat(t *testing.T) {
	allocator := New("")
	if got := allocator.NextID("window"); got != "window_1" {
		t.Errorf("first id = %q, want window_1", got)
	}
	if got := allocator.NextID("button"); got != "button_2" {
		t.Errorf("second id = %q, want button_2 (one counter across prefixes)", got)
	}
}

func TestNamespacedIDs(t *testing.T) {
	first := New("calc")
	second := New("clock")

	a := first.NextID("callback")
	b := second.NextID("callback")
	if a == b {
		t.Fatalf("namespaced allocators collided on %q", a)
	}
	if a != "calc:callback_1" {
		t.Errorf("got %q, want calc:callback_1", a)
	}
	if Prefix(b) != "callback" {
		t.Errorf("Prefix(%q) = %q", b, Prefix(b))
	}
}

func TestUniqueUnderConcurrency(t *testing.T) {
	allocator := New("")
	const workers = 8
	const perWorker = 500

	var mutex sync.Mutex
	seen := make(map[ID]bool, workers*perWorker)
	var waitGroup sync.WaitGroup
	for worker := 0; worker < workers; worker++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			local := make([]ID, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, allocator.NextID("node"))
			}
			mutex.Lock()
			defer mutex.Unlock()
			for _, id := range local {
				if seen[id] {
					t.Errorf("duplicate id %q", id)
				}
				seen[id] = true
			}
		}()
	}
	waitGroup.Wait()

	if allocator.Issued() != workers*perWorker {
		t.Errorf("Issued() = %d, want %d", allocator.Issued(), workers*perWorker)
	}
}

func TestNoReuseAcrossRebuilds(t *testing.T) {
	// Simulates destroy/recreate cycles: nothing is ever returned to the
	// allocator, so a rebuilt node always gets a new ID.
	allocator := New("")
	previous := make(map[ID]bool)
	for cycle := 0; cycle < 10; cycle++ {
		for i := 0; i < 5; i++ {
			id := allocator.NextID("circle")
			if previous[id] {
				t.Fatalf("cycle %d reissued %q", cycle, id)
			}
			previous[id] = true
		}
	}
}

func TestSequence(t *testing.T) {
	sequence, err := Sequence("app:canvas_circle_42")
	if err != nil {
		t.Fatal(err)
	}
	if sequence != 42 {
		t.Errorf("sequence = %d, want 42", sequence)
	}
	if Prefix("app:canvas_circle_42") != "canvas_circle" {
		t.Errorf("prefix = %q", Prefix("app:canvas_circle_42"))
	}
	if _, err := Sequence("nounderscore"); err == nil {
		t.Error("expected error for id without sequence")
	}
}

func TestNamespaceWithColons(t *testing.T) {
	allocator := New("example.com:8080:shop")
	id := allocator.NextID("button")
	if id != "example.com:8080:shop:button_1" {
		t.Fatalf("id = %q", id)
	}
	if got := Prefix(id); got != "button" {
		t.Errorf("Prefix(%q) = %q, want button", id, got)
	}
	if got, err := Sequence(id); err != nil || got != 1 {
		t.Errorf("Sequence(%q) = %d, %v, want 1", id, got, err)
	}
}

func TestExhaustionPanics(t *testing.T) {
	allocator := New("")
	allocator.sequence.Store(MaxSequence)

	defer func() {
		recovered := recover()
		err, ok := recovered.(error)
		if !ok || !errors.Is(err, ErrExhausted) {
			t.Fatalf("recovered %v, want ErrExhausted", recovered)
		}
	}()
	allocator.NextID("node")
}
