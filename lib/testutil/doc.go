// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Tsyne packages.
//
// [RequireReceive], [RequireClosed] and [RequireNoReceive] wrap the
// select-with-timeout pattern so individual tests never call
// time.After directly. Dispatcher, renderer and animator tests wait on
// channels through these helpers; everything else in the suite runs
// on lib/clock's fake clock.
//
// [SocketDir] creates a short temporary directory under /tmp for unix
// socket files, which must fit in the 108-byte sun_path.
//
// All helpers call t.Fatalf on failure.
package testutil
