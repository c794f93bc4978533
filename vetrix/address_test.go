// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vetrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddress(t *testing.T) {
	addr := BytesToAddress([]byte("addr"))
	assert.Equal(t, "0x0000000000000000000000000000000061646472", addr.String())
	assert.False(t, addr.IsZero())
	assert.True(t, Address{}.IsZero())

	parsed, err := ParseAddress(addr.String())
	assert.NoError(t, err)
	assert.Equal(t, addr, *parsed)

	_, err = ParseAddress("0x123")
	assert.Error(t, err)

	text, err := addr.MarshalText()
	assert.NoError(t, err)
	var back Address
	assert.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, addr, back)
}

func TestBytes32(t *testing.T) {
	b32 := BytesToBytes32([]byte("key"))
	assert.True(t, len(b32.String()) == 2+64)
	assert.False(t, b32.IsZero())

	parsed, err := ParseBytes32(b32.String())
	assert.NoError(t, err)
	assert.Equal(t, b32, parsed)

	// cropped from the left when oversized
	long := make([]byte, 40)
	long[39] = 0xff
	assert.Equal(t, byte(0xff), BytesToBytes32(long)[31])
}

func TestBlake2b(t *testing.T) {
	h1 := Blake2b([]byte("hello"))
	h2 := Blake2b([]byte("hel"), []byte("lo"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, Blake2b([]byte("world")))
}
