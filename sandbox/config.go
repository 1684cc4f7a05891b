// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"time"

	"github.com/tsyne-foundation/tsyne/lib/config"
)

// Runtime names a backend.
type Runtime string

const (
	RuntimeFast     Runtime = "fast"
	RuntimeIsolated Runtime = "isolated"
)

// Config is one execution's limits.
type Config struct {
	Runtime Runtime

	// MemoryLimitMB caps the interpreter heap. The fast backend does not
	// enforce it.
	MemoryLimitMB int

	// Timeout bounds the script's run time. Zero means no limit.
	Timeout time.Duration

	// AllowedModules are the names require may load.
	AllowedModules []string

	// AcceptWeaker lets an unavailable isolated runtime fall back to the
	// fast backend.
	AcceptWeaker bool
}

// DefaultConfig is the fast runtime with a five second timeout and the
// describe module.
func DefaultConfig() Config {
	return Config{
		Runtime:        RuntimeFast,
		MemoryLimitMB:  64,
		Timeout:        5 * time.Second,
		AllowedModules: []string{DescribeModule},
	}
}

// FromSettings converts the sandbox section of a tsyne configuration
// file.
func FromSettings(settings config.SandboxConfig) Config {
	return Config{
		Runtime:        Runtime(settings.Runtime),
		MemoryLimitMB:  settings.MemoryLimitMB,
		Timeout:        settings.Timeout(),
		AllowedModules: append([]string(nil), settings.AllowedModules...),
		AcceptWeaker:   settings.WeakerAccepted(),
	}
}

// Validate checks the configuration's own values.
func (c Config) Validate() error {
	switch c.Runtime {
	case RuntimeFast, RuntimeIsolated:
	default:
		return &ConfigError{Reason: fmt.Sprintf("unknown runtime %q", c.Runtime)}
	}
	if c.MemoryLimitMB < 0 {
		return &ConfigError{Reason: fmt.Sprintf("memory limit %d MB is negative", c.MemoryLimitMB)}
	}
	if c.Timeout < 0 {
		return &ConfigError{Reason: fmt.Sprintf("timeout %v is negative", c.Timeout)}
	}
	return nil
}
