// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the configuration shared by Tsyne binaries.
//
// A configuration comes from exactly one file, named by the TSYNE_CONFIG
// environment variable ([Load]) or a --config flag ([LoadFile]). There
// is no search path. Files ending in .json or .jsonc may carry comments
// and trailing commas; everything else is YAML.
//
// The file has three sections:
//
//   - bridge: wire encoding and compression, frame limits, the renderer
//     command or endpoint, and the write coalescing window
//   - scene: the animator frame rate
//   - sandbox: runtime tier, limits and allowed modules for page code
//
// A development or production section overrides base values when
// environment matches. Production without an explicit section refuses
// to fall back to the weaker sandbox runtime.
//
// Path fields expand ${HOME} and ${VAR:-default} after loading.
package config
