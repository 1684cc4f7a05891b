// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned by ReadLimited when the body exceeds its limit.
var ErrTooLarge = errors.New("body exceeds size limit")

// errorBodyLimit bounds how much of an error response ends up in an
// error message.
const errorBodyLimit = 4096

// ReadLimited reads body up to limit bytes. A body longer than limit is
// an error wrapping ErrTooLarge rather than a silent truncation, since a
// truncated script is worse than none.
func ReadLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return data, nil
}

// ErrorBody reads the start of an HTTP error response for a diagnostic
// message. Read errors are ignored.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, errorBodyLimit))
	return string(data)
}
