// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stakedb implements the backing store of the staking engine.
// It is a goleveldb instance fronted by a read-through value cache,
// exposed through the kv.Store interface. Keys are ordered, which the
// engine relies on for prefix scans and bulk deletes by era.
package stakedb

import (
	"github.com/qianbin/directcache"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/pkg/errors"

	"github.com/vetrixchain/vetrix/kv"
)

var (
	writeOpt = opt.WriteOptions{}
	readOpt  = opt.ReadOptions{}
	scanOpt  = opt.ReadOptions{DontFillCache: true}
)

// Options optional parameters for StakeDB.
type Options struct {
	// CacheSizeMB is the size of the read-through value cache.
	CacheSizeMB int
	// OpenFilesCacheCapacity is the capacity of open files caching for the underlying database.
	OpenFilesCacheCapacity int
	// ReadCacheMB is the size of read cache for the underlying database.
	ReadCacheMB int
	// WriteBufferMB is the size of write buffer for the underlying database.
	WriteBufferMB int
}

// StakeDB is the persistent store of the staking engine.
type StakeDB struct {
	db    *leveldb.DB
	cache *directcache.Cache
}

var _ kv.Store = (*StakeDB)(nil)

// Open opens or creates the DB at the given path.
func Open(path string, options *Options) (*StakeDB, error) {
	if options == nil {
		options = &Options{}
	}
	stg, err := storage.OpenFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, "open stakedb storage")
	}
	db, err := openLevelDB(stg, options)
	if err != nil {
		stg.Close()
		return nil, err
	}
	return db, nil
}

// OpenMem creates a DB backed by memory, for tests and one-shot replays.
func OpenMem() (*StakeDB, error) {
	return openLevelDB(storage.NewMemStorage(), &Options{})
}

func openLevelDB(stg storage.Storage, options *Options) (*StakeDB, error) {
	if options.CacheSizeMB < 1 {
		options.CacheSizeMB = 8
	}
	if options.OpenFilesCacheCapacity < 16 {
		options.OpenFilesCacheCapacity = 16
	}
	if options.ReadCacheMB < 8 {
		options.ReadCacheMB = 8
	}
	if options.WriteBufferMB < 4 {
		options.WriteBufferMB = 4
	}
	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: options.OpenFilesCacheCapacity,
		BlockCacheCapacity:     options.ReadCacheMB * opt.MiB,
		WriteBuffer:            options.WriteBufferMB * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open stakedb")
	}
	return &StakeDB{
		db:    db,
		cache: directcache.New(options.CacheSizeMB * 1024 * 1024),
	}, nil
}

// Close closes the DB. Later operations will all fail.
func (s *StakeDB) Close() error {
	return s.db.Close()
}

// IsNotFound checks if the error returned by Get indicates key not found.
func (s *StakeDB) IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}

// Get retrieves the value for the given key, reading through the cache.
// It returns an error checkable via IsNotFound if the key does not exist.
func (s *StakeDB) Get(key []byte) ([]byte, error) {
	var cached []byte
	if s.cache.AdvGet(key, func(val []byte) {
		cached = append([]byte(nil), val...)
	}, false) {
		return cached, nil
	}

	val, err := s.db.Get(key, &readOpt)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(key, val)
	return val, nil
}

// Has returns whether a key exists.
func (s *StakeDB) Has(key []byte) (bool, error) {
	if s.cache.Has(key) {
		return true, nil
	}
	return s.db.Has(key, &readOpt)
}

// Put saves the value for the given key, keeping the cache coherent.
func (s *StakeDB) Put(key, val []byte) error {
	if err := s.db.Put(key, val, &writeOpt); err != nil {
		return err
	}
	_ = s.cache.Set(key, val)
	return nil
}

// Delete deletes the given key and its value.
func (s *StakeDB) Delete(key []byte) error {
	if err := s.db.Delete(key, &writeOpt); err != nil {
		return err
	}
	s.cache.Del(key)
	return nil
}

// Snapshot takes a snapshot of the current state of the DB.
// Snapshot reads bypass the cache.
func (s *StakeDB) Snapshot() kv.Snapshot {
	snap, err := s.db.GetSnapshot()
	return &snapshot{snap, err}
}

// Bulk creates a bulk putter backed by a leveldb batch. Written keys are
// invalidated in the cache when the batch lands.
func (s *StakeDB) Bulk() kv.Bulk {
	return &bulk{db: s, batch: &leveldb.Batch{}}
}

// Iterate iterates the given key range in ascending order.
func (s *StakeDB) Iterate(r kv.Range) kv.Iterator {
	return s.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, &scanOpt)
}

// DeleteRange deletes all keys prefixed with the given prefix,
// returning the count of deleted keys.
func (s *StakeDB) DeleteRange(prefix []byte) (int, error) {
	rng := util.BytesPrefix(prefix)
	it := s.db.NewIterator(rng, &scanOpt)
	defer it.Release()

	batch := &leveldb.Batch{}
	n := 0
	for it.Next() {
		key := append([]byte(nil), it.Key()...)
		batch.Delete(key)
		s.cache.Del(key)
		n++
	}
	if err := it.Error(); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.db.Write(batch, &writeOpt)
}

type snapshot struct {
	snap *leveldb.Snapshot
	err  error
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snap.Get(key, &readOpt)
}

func (s *snapshot) Has(key []byte) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.snap.Has(key, &readOpt)
}

func (s *snapshot) IsNotFound(err error) bool {
	return err == leveldb.ErrNotFound
}

func (s *snapshot) Release() {
	if s.err == nil {
		s.snap.Release()
	}
}

type bulk struct {
	db        *StakeDB
	batch     *leveldb.Batch
	autoFlush bool
	touched   [][]byte
}

func (b *bulk) Put(key, val []byte) error {
	b.batch.Put(key, val)
	b.touched = append(b.touched, append([]byte(nil), key...))
	return b.flushIfNeeded()
}

func (b *bulk) Delete(key []byte) error {
	b.batch.Delete(key)
	b.touched = append(b.touched, append([]byte(nil), key...))
	return b.flushIfNeeded()
}

// EnableAutoFlush makes the bulk non-atomic: writes land whenever the
// pending batch grows large enough.
func (b *bulk) EnableAutoFlush() {
	b.autoFlush = true
}

func (b *bulk) flushIfNeeded() error {
	if b.autoFlush && len(b.batch.Dump()) >= 128*1024 {
		return b.Write()
	}
	return nil
}

func (b *bulk) Write() error {
	if b.batch.Len() == 0 {
		return nil
	}
	if err := b.db.db.Write(b.batch, &writeOpt); err != nil {
		return err
	}
	for _, key := range b.touched {
		b.db.cache.Del(key)
	}
	b.touched = b.touched[:0]
	b.batch.Reset()
	return nil
}
