// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by Tsyne
// binaries: reporting a fatal error before the logger exists, and
// building that logger from the --verbose flag.
package process
