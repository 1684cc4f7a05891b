// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// tokenDomainKey separates execution tokens from any other BLAKE3 use
// of the same bytes. Changing it changes every token.
var tokenDomainKey = [32]byte{
	't', 's', 'y', 'n', 'e', '.', 's', 'a', 'n', 'd', 'b', 'o', 'x', '.',
	't', 'o', 'k', 'e', 'n', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Token identifies one script of one app: the hex BLAKE3 keyed hash of
// the app name and the source. The app name is length-prefixed so no
// two (app, source) pairs share an input.
func Token(appName, source string) string {
	hasher, err := blake3.NewKeyed(tokenDomainKey[:])
	if err != nil {
		// NewKeyed only fails for keys that are not 32 bytes.
		panic("sandbox: token key: " + err.Error())
	}
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(appName)))
	hasher.Write(length[:])
	hasher.Write([]byte(appName))
	hasher.Write([]byte(source))
	return hex.EncodeToString(hasher.Sum(nil))
}
