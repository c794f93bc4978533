// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vetrixchain/vetrix/stackedmap"
)

func TestStackedMap(t *testing.T) {
	assert := assert.New(t)
	src := make(map[string]string)
	src["foo"] = "bar"

	sm := stackedmap.New(func(key string) (string, bool, error) {
		v, r := src[key]
		return v, r, nil
	})

	get := func(key string) (string, bool) {
		v, ok, err := sm.Get(key)
		assert.NoError(err)
		return v, ok
	}

	// read through to src
	sm.Push()
	v, ok := get("foo")
	assert.True(ok)
	assert.Equal("bar", v)

	// shadow src value
	sm.Put("foo", "baz")
	v, _ = get("foo")
	assert.Equal("baz", v)

	// nested overwrite. Push reports the depth before pushing.
	depth := sm.Push()
	assert.Equal(1, depth)
	sm.Put("foo", "qux")
	sm.Put("new", "n1")
	v, _ = get("foo")
	assert.Equal("qux", v)

	// pop reverts the top level only
	sm.Pop()
	v, _ = get("foo")
	assert.Equal("baz", v)
	_, ok = get("new")
	assert.False(ok)

	// pop to empty falls back to src
	sm.PopTo(0)
	assert.Equal(0, sm.Depth())
	v, ok = get("foo")
	assert.True(ok)
	assert.Equal("bar", v)
}

func TestStackedMapRepeatedPut(t *testing.T) {
	assert := assert.New(t)
	src := map[string]string{"a": "0"}
	sm := stackedmap.New(func(key string) (string, bool, error) {
		v, r := src[key]
		return v, r, nil
	})

	// rewriting a key inside one level keeps a single revision,
	// so a pop/push cycle must fully forget it.
	sm.Push()
	sm.Put("a", "1")
	sm.Put("a", "2")
	v, ok, err := sm.Get("a")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("2", v)

	sm.PopTo(0)
	sm.Push()
	v, ok, err = sm.Get("a")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("0", v)

	sm.Put("a", "3")
	sm.Put("a", "4")
	sm.Pop()
	v, _, _ = sm.Get("a")
	assert.Equal("0", v)
}

func TestStackedMapPuts(t *testing.T) {
	assert := assert.New(t)
	sm := stackedmap.New(func(_ string) (string, bool, error) {
		return "", false, nil
	})

	kvs := []struct{ k, v string }{
		{"a", "b"},
		{"a", "c"},
		{"d", "e"},
		{"f", "g"},
		{"h", "i"},
	}

	sm.Push()
	for _, kv := range kvs {
		sm.Put(kv.k, kv.v)
	}
	i := 0
	sm.Journal(func(k, v string) bool {
		assert.Equal(kvs[i].k, k)
		assert.Equal(kvs[i].v, v)
		i++
		return true
	})
	assert.Equal(len(kvs), i)

	// journal should abort when cb returns false
	n := 0
	sm.Journal(func(_, _ string) bool {
		n++
		return false
	})
	assert.Equal(1, n)
}
