// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakedb

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetrixchain/vetrix/kv"
)

func TestStakeDBBasic(t *testing.T) {
	db, err := OpenMem()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get([]byte("missing"))
	assert.True(t, db.IsNotFound(err))

	require.NoError(t, db.Put([]byte("k"), []byte("v")))

	// second get is served by the cache
	for range 2 {
		v, err := db.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), v)
	}

	has, err := db.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, db.Delete([]byte("k")))
	_, err = db.Get([]byte("k"))
	assert.True(t, db.IsNotFound(err))
}

func TestStakeDBBulkInvalidatesCache(t *testing.T) {
	db, err := OpenMem()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("k"), []byte("old")))
	v, _ := db.Get([]byte("k")) // warm the cache
	assert.Equal(t, []byte("old"), v)

	b := db.Bulk()
	require.NoError(t, b.Put([]byte("k"), []byte("new")))
	require.NoError(t, b.Write())

	v, err = db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestStakeDBIterateAndDeleteRange(t *testing.T) {
	db, err := OpenMem()
	require.NoError(t, err)
	defer db.Close()

	for i := range 5 {
		require.NoError(t, db.Put(fmt.Appendf(nil, "a/%d", i), []byte{byte(i)}))
	}
	require.NoError(t, db.Put([]byte("b/0"), []byte{9}))

	it := db.Iterate(kv.Range{Start: []byte("a/"), Limit: []byte("a0")})
	n := 0
	for it.Next() {
		n++
	}
	it.Release()
	require.NoError(t, it.Error())
	assert.Equal(t, 5, n)

	deleted, err := db.DeleteRange([]byte("a/"))
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	_, err = db.Get([]byte("a/0"))
	assert.True(t, db.IsNotFound(err))
	v, err := db.Get([]byte("b/0"))
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, v)
}
