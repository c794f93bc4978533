// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "encoding/binary"

// RawKey is a pre-composed mapping key.
type RawKey []byte

// Bytes implements Key.
func (k RawKey) Bytes() []byte {
	return k
}

// U32Key encodes a uint32 big-endian, so numeric keys keep their natural
// order inside a bucket.
func U32Key(v uint32) RawKey {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

// CompositeKey concatenates key parts. Fixed-width parts (era, address)
// keep composite keys prefix-scannable.
func CompositeKey(parts ...[]byte) RawKey {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 0, n)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}
