// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetrixchain/vetrix/stakedb"
)

func newState(t *testing.T) *State {
	db, err := stakedb.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestStateSetGetDelete(t *testing.T) {
	st := newState(t)

	v, err := st.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, v)

	st.Set([]byte("k1"), []byte("v1"))
	v, err = st.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	has, err := st.Has([]byte("k1"))
	require.NoError(t, err)
	assert.True(t, has)

	st.Delete([]byte("k1"))
	has, err = st.Has([]byte("k1"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStateCheckpointRevert(t *testing.T) {
	st := newState(t)

	st.Set([]byte("a"), []byte("1"))
	cp := st.NewCheckpoint()
	st.Set([]byte("a"), []byte("2"))
	st.Set([]byte("b"), []byte("3"))
	st.RevertTo(cp)

	v, err := st.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	has, err := st.Has([]byte("b"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStateCommitAndReload(t *testing.T) {
	db, err := stakedb.OpenMem()
	require.NoError(t, err)
	defer db.Close()

	st := New(db)
	st.Set([]byte("x"), []byte("y"))
	st.Delete([]byte("never-there"))
	require.NoError(t, st.Stage().Commit())

	// a fresh state over the same store observes committed values
	st2 := New(db)
	v, err := st2.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), v)
}

func TestStateIterateMergesJournal(t *testing.T) {
	db, err := stakedb.OpenMem()
	require.NoError(t, err)
	defer db.Close()

	st := New(db)
	st.Set([]byte("p/a"), []byte("committed-a"))
	st.Set([]byte("p/c"), []byte("committed-c"))
	st.Set([]byte("q/x"), []byte("other-bucket"))
	require.NoError(t, st.Stage().Commit())

	// uncommitted: overwrite a, delete c, add b
	st.Set([]byte("p/a"), []byte("journal-a"))
	st.Delete([]byte("p/c"))
	st.Set([]byte("p/b"), []byte("journal-b"))

	var keys []string
	var vals []string
	require.NoError(t, st.Iterate([]byte("p/"), func(key, val []byte) (bool, error) {
		keys = append(keys, string(key))
		vals = append(vals, string(val))
		return true, nil
	}))
	assert.Equal(t, []string{"p/a", "p/b"}, keys)
	assert.Equal(t, []string{"journal-a", "journal-b"}, vals)
}

func TestMappingRoundTrip(t *testing.T) {
	st := newState(t)

	type record struct {
		Amount *big.Int
		Era    uint32
	}
	m := NewMapping[RawKey, record](st, "t-rec")

	// absent key decodes to zero value with allocated pointers
	got, err := m.Get(RawKey("nope"))
	require.NoError(t, err)
	assert.Nil(t, got.Amount)

	want := record{Amount: big.NewInt(12345), Era: 7}
	require.NoError(t, m.Set(RawKey("k"), want))
	got, err = m.Get(RawKey("k"))
	require.NoError(t, err)
	assert.Equal(t, 0, want.Amount.Cmp(got.Amount))
	assert.Equal(t, uint32(7), got.Era)

	m.Delete(RawKey("k"))
	has, err := m.Has(RawKey("k"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMappingPointerValue(t *testing.T) {
	st := newState(t)
	m := NewMapping[RawKey, *big.Int](st, "t-big")

	// absent keys return an allocated zero, never nil
	got, err := m.Get(RawKey("zero"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Sign())

	require.NoError(t, m.Set(RawKey("v"), big.NewInt(42)))
	got, err = m.Get(RawKey("v"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Int64())
}

func TestMappingEraPrefix(t *testing.T) {
	st := newState(t)
	m := NewMapping[RawKey, uint64](st, "t-era")

	for era := uint32(1); era <= 3; era++ {
		for i := byte(0); i < 3; i++ {
			key := CompositeKey(U32Key(era), []byte{i})
			require.NoError(t, m.Set(key, uint64(era)*100+uint64(i)))
		}
	}

	// scan one era; callback keys carry neither bucket nor sub prefix
	var seen []uint64
	var suffixes [][]byte
	require.NoError(t, m.IteratePrefix(U32Key(2), func(key []byte, v uint64) (bool, error) {
		seen = append(seen, v)
		suffixes = append(suffixes, append([]byte(nil), key...))
		return true, nil
	}))
	assert.Equal(t, []uint64{200, 201, 202}, seen)
	assert.Equal(t, [][]byte{{0}, {1}, {2}}, suffixes)

	// prune one era
	n, err := m.DeletePrefix(U32Key(2))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var rest int
	require.NoError(t, m.Iterate(func(_ []byte, _ uint64) (bool, error) {
		rest++
		return true, nil
	}))
	assert.Equal(t, 6, rest)
}

func TestMappingBucketIsolation(t *testing.T) {
	st := newState(t)

	// a bucket whose name prefixes a slot key (or a longer bucket) must
	// never pick up the other's entries
	m := NewMapping[RawKey, uint64](st, "t-iso")
	longer := NewMapping[RawKey, uint64](st, "t-iso-extra")
	s := NewSlot[uint64](st, "t-iso-count")

	require.NoError(t, m.Set(RawKey("a"), 1))
	require.NoError(t, longer.Set(RawKey("b"), 2))
	require.NoError(t, s.Set(3))

	var got []uint64
	require.NoError(t, m.Iterate(func(_ []byte, v uint64) (bool, error) {
		got = append(got, v)
		return true, nil
	}))
	assert.Equal(t, []uint64{1}, got)

	got = nil
	require.NoError(t, longer.Iterate(func(_ []byte, v uint64) (bool, error) {
		got = append(got, v)
		return true, nil
	}))
	assert.Equal(t, []uint64{2}, got)
}

func TestSlot(t *testing.T) {
	st := newState(t)
	s := NewSlot[uint32](st, "t-slot")

	v, err := s.Get()
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, s.Set(99))
	v, err = s.Get()
	require.NoError(t, err)
	assert.Equal(t, uint32(99), v)

	has, err := s.Has()
	require.NoError(t, err)
	assert.True(t, has)

	s.Delete()
	has, err = s.Has()
	require.NoError(t, err)
	assert.False(t, has)
}
