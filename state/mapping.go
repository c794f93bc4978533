// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Key is anything usable as a mapping key.
type Key interface {
	Bytes() []byte
}

// Mapping is a typed key/value view over a bucket of the state, similar to
// a storage map of a contract. Values are RLP encoded. Keys keep their
// natural byte order inside the bucket, so composite keys (era ‖ address)
// iterate and prune by prefix.
type Mapping[K Key, V any] struct {
	state  *State
	bucket []byte
}

// bucketTerminator closes the bucket name in every stored key, so a
// bucket can never alias a slot key or another bucket it is a prefix of.
const bucketTerminator = 0x00

// NewMapping creates a mapping over the given bucket.
func NewMapping[K Key, V any](state *State, bucket string) *Mapping[K, V] {
	return &Mapping[K, V]{state: state, bucket: append([]byte(bucket), bucketTerminator)}
}

func (m *Mapping[K, V]) key(k K) []byte {
	kb := k.Bytes()
	buf := make([]byte, 0, len(m.bucket)+len(kb))
	return append(append(buf, m.bucket...), kb...)
}

// Get returns the value for the given key. An absent key decodes to the
// zero value; pointer-kind values are allocated so callers never observe
// a nil dereference.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	raw, err := m.state.Get(m.key(key))
	if err != nil {
		return value, err
	}
	if reflect.ValueOf(&value).Elem().Kind() == reflect.Ptr {
		value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
	}
	if len(raw) == 0 {
		return value, nil
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, errors.Wrap(err, "mapping: decode value")
	}
	return value, nil
}

// Has returns whether the given key holds a value.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	return m.state.Has(m.key(key))
}

// Set stores the value for the given key.
func (m *Mapping[K, V]) Set(key K, value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrap(err, "mapping: encode value")
	}
	m.state.Set(m.key(key), raw)
	return nil
}

// Delete removes the given key.
func (m *Mapping[K, V]) Delete(key K) {
	m.state.Delete(m.key(key))
}

// Iterate walks all entries of the bucket in key order. The key passed to
// fn is stripped of the bucket prefix.
func (m *Mapping[K, V]) Iterate(fn func(key []byte, value V) (bool, error)) error {
	return m.IteratePrefix(nil, fn)
}

// IteratePrefix walks entries whose key (bucket stripped) starts with the
// given sub prefix. The key passed to fn is stripped of both the bucket
// and the sub prefix.
func (m *Mapping[K, V]) IteratePrefix(sub []byte, fn func(key []byte, value V) (bool, error)) error {
	prefix := append(append([]byte(nil), m.bucket...), sub...)
	return m.state.Iterate(prefix, func(key, raw []byte) (bool, error) {
		var value V
		if reflect.ValueOf(&value).Elem().Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) > 0 {
			if err := rlp.DecodeBytes(raw, &value); err != nil {
				return false, errors.Wrap(err, "mapping: decode value")
			}
		}
		return fn(key[len(prefix):], value)
	})
}

// DeletePrefix removes every entry whose key (bucket stripped) starts with
// the given sub prefix, returning the count of removed entries. The
// removal is journaled like any other write.
func (m *Mapping[K, V]) DeletePrefix(sub []byte) (int, error) {
	prefix := append(append([]byte(nil), m.bucket...), sub...)
	var keys [][]byte
	if err := m.state.Iterate(prefix, func(key, _ []byte) (bool, error) {
		keys = append(keys, key)
		return true, nil
	}); err != nil {
		return 0, err
	}
	for _, key := range keys {
		m.state.Delete(key)
	}
	return len(keys), nil
}

// Slot is a typed view over a single state value, for heads, counters and
// config variables.
type Slot[V any] struct {
	state *State
	key   []byte
}

// NewSlot creates a slot at the given key.
func NewSlot[V any](state *State, key string) *Slot[V] {
	return &Slot[V]{state: state, key: []byte(key)}
}

// Get returns the slot value, the zero value if unset.
func (s *Slot[V]) Get() (value V, err error) {
	raw, err := s.state.Get(s.key)
	if err != nil {
		return value, err
	}
	if reflect.ValueOf(&value).Elem().Kind() == reflect.Ptr {
		value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
	}
	if len(raw) == 0 {
		return value, nil
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, errors.Wrap(err, "slot: decode value")
	}
	return value, nil
}

// Has returns whether the slot holds a value.
func (s *Slot[V]) Has() (bool, error) {
	return s.state.Has(s.key)
}

// Set stores the slot value.
func (s *Slot[V]) Set(value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrap(err, "slot: encode value")
	}
	s.state.Set(s.key, raw)
	return nil
}

// Delete unsets the slot.
func (s *Slot[V]) Delete() {
	s.state.Delete(s.key)
}
