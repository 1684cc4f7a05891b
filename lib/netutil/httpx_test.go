// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReadLimited(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		data, err := ReadLimited(strings.NewReader("export const ui = {}"), 64)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "export const ui = {}" {
			t.Fatalf("got %q", data)
		}
	})

	t.Run("exactly at limit", func(t *testing.T) {
		data, err := ReadLimited(bytes.NewReader(make([]byte, 16)), 16)
		if err != nil || len(data) != 16 {
			t.Fatalf("got %d bytes, %v", len(data), err)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := ReadLimited(bytes.NewReader(make([]byte, 17)), 16)
		if !errors.Is(err, ErrTooLarge) {
			t.Fatalf("err = %v, want ErrTooLarge", err)
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if _, err := ReadLimited(&failReader{}, 16); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestErrorBody(t *testing.T) {
	t.Run("returns body as string", func(t *testing.T) {
		if got := ErrorBody(strings.NewReader("404 page not found")); got != "404 page not found" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("truncates long bodies", func(t *testing.T) {
		got := ErrorBody(strings.NewReader(strings.Repeat("x", errorBodyLimit*2)))
		if len(got) != errorBodyLimit {
			t.Fatalf("got %d bytes, want %d", len(got), errorBodyLimit)
		}
	})

	t.Run("read error yields partial body", func(t *testing.T) {
		if got := ErrorBody(&failReader{}); got != "" {
			t.Fatalf("got %q, want empty", got)
		}
	})
}

type failReader struct{}

func (failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated read failure")
}
