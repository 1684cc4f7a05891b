// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build of a Tsyne binary for --version and
// for the renderer's ready handshake.
//
// The variables are set with -ldflags at build time:
//
//	go build -ldflags "-X github.com/tsyne-foundation/tsyne/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
