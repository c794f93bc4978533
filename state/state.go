// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state implements the staking engine's exclusive storage: an
// ordered key/value space with a revision journal on top of a kv.Store.
//
// Every externally triggered operation runs between a checkpoint and
// either a revert (on error) or a staged commit, so storage observes each
// operation atomically. Keys are composite byte strings ordered for
// prefix scans; era-keyed data is pruned with bulk deletes by prefix.
package state

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vetrixchain/vetrix/kv"
	"github.com/vetrixchain/vetrix/stackedmap"
)

// State is the journaled view over the backing store.
//
// Reads observe uncommitted writes of the current operation. A nil journal
// value marks a deletion.
type State struct {
	store kv.Store
	sm    *stackedmap.StackedMap[string, []byte]
}

// New creates a state instance over the given store.
func New(store kv.Store) *State {
	st := &State{store: store}
	st.sm = stackedmap.New(func(key string) ([]byte, bool, error) {
		val, err := store.Get([]byte(key))
		if err != nil {
			if store.IsNotFound(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
		return val, true, nil
	})
	// the base level holding uncommitted writes
	st.sm.Push()
	return st
}

// Get returns the value for the given key, or nil if absent.
func (s *State) Get(key []byte) ([]byte, error) {
	val, _, err := s.sm.Get(string(key))
	if err != nil {
		return nil, errors.Wrap(err, "state: get")
	}
	return val, nil
}

// Has returns whether the given key holds a value.
func (s *State) Has(key []byte) (bool, error) {
	val, ok, err := s.sm.Get(string(key))
	if err != nil {
		return false, errors.Wrap(err, "state: has")
	}
	return ok && val != nil, nil
}

// Set journals the value for the given key. An empty value is distinct
// from an absent one.
func (s *State) Set(key, val []byte) {
	if val == nil {
		val = []byte{}
	}
	s.sm.Put(string(key), append([]byte(nil), val...))
}

// Delete journals removal of the given key.
func (s *State) Delete(key []byte) {
	s.sm.Put(string(key), nil)
}

// NewCheckpoint makes a checkpoint of the current state.
// It returns the checkpoint to be passed to RevertTo.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts the state to the given checkpoint, undoing every
// write journaled after it.
func (s *State) RevertTo(checkpoint int) {
	s.sm.PopTo(checkpoint)
}

// Iterate walks all keys prefixed with the given prefix in ascending key
// order, merging committed values with the uncommitted journal: the
// current operation observes its own writes and deletions. The walk stops
// early when fn returns false.
func (s *State) Iterate(prefix []byte, fn func(key, val []byte) (bool, error)) error {
	// overlay of uncommitted writes within the prefix
	overlay := make(map[string][]byte)
	p := string(prefix)
	s.sm.Journal(func(k string, v []byte) bool {
		if strings.HasPrefix(k, p) {
			overlay[k] = v
		}
		return true
	})
	overlayKeys := make([]string, 0, len(overlay))
	for k := range overlay {
		overlayKeys = append(overlayKeys, k)
	}
	sort.Strings(overlayKeys)

	rng := util.BytesPrefix(prefix)
	iter := s.store.Iterate(kv.Range{Start: rng.Start, Limit: rng.Limit})
	defer iter.Release()

	emit := func(key string, val []byte) (bool, error) {
		if val == nil { // journaled deletion
			return true, nil
		}
		return fn([]byte(key), val)
	}

	i := 0
	hasNext := iter.First()
	for hasNext || i < len(overlayKeys) {
		switch {
		case !hasNext:
			goNext, err := emit(overlayKeys[i], overlay[overlayKeys[i]])
			if err != nil || !goNext {
				return err
			}
			i++
		case i >= len(overlayKeys):
			goNext, err := fn(append([]byte(nil), iter.Key()...), append([]byte(nil), iter.Value()...))
			if err != nil || !goNext {
				return err
			}
			hasNext = iter.Next()
		default:
			storeKey := string(iter.Key())
			overlayKey := overlayKeys[i]
			switch {
			case storeKey < overlayKey:
				goNext, err := fn([]byte(storeKey), append([]byte(nil), iter.Value()...))
				if err != nil || !goNext {
					return err
				}
				hasNext = iter.Next()
			case storeKey > overlayKey:
				goNext, err := emit(overlayKey, overlay[overlayKey])
				if err != nil || !goNext {
					return err
				}
				i++
			default: // same key, the journal wins
				goNext, err := emit(overlayKey, overlay[overlayKey])
				if err != nil || !goNext {
					return err
				}
				i++
				hasNext = iter.Next()
			}
		}
	}
	return iter.Error()
}

// Stage makes a stage committing journaled writes into the store.
func (s *State) Stage() *Stage {
	return &Stage{s}
}

// Stage abstracts the writing of journaled changes into the backing store.
type Stage struct {
	state *State
}

// Commit writes the journal into the store atomically, then flattens the
// journal. A failed commit leaves both journal and store unchanged.
func (st *Stage) Commit() error {
	// only the latest value per key lands
	final := make(map[string][]byte)
	st.state.sm.Journal(func(k string, v []byte) bool {
		final[k] = v
		return true
	})
	if len(final) == 0 {
		return nil
	}

	bulk := st.state.store.Bulk()
	for k, v := range final {
		var err error
		if v == nil {
			err = bulk.Delete([]byte(k))
		} else {
			err = bulk.Put([]byte(k), v)
		}
		if err != nil {
			return errors.Wrap(err, "state: stage write")
		}
	}
	if err := bulk.Write(); err != nil {
		return errors.Wrap(err, "state: commit")
	}
	st.state.sm.PopTo(0)
	st.state.sm.Push()
	return nil
}
