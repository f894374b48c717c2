package rawdb

import (
	"bytes"
	"maps"
	"slices"
	"strings"
	"sync"
)

// MemoryDB keeps records in a map guarded by a read-write lock. Scenario
// runs and tests use it; values are copied in and out so callers never
// share a buffer with the store.
type MemoryDB struct {
	lock    sync.RWMutex
	records map[string][]byte
}

var _ Database = (*MemoryDB)(nil)

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{records: map[string][]byte{}}
}

func (db *MemoryDB) Has(key []byte) (bool, error) {
	db.lock.RLock()
	_, ok := db.records[string(key)]
	db.lock.RUnlock()
	return ok, nil
}

func (db *MemoryDB) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if v, ok := db.records[string(key)]; ok {
		return bytes.Clone(v), nil
	}
	return nil, ErrNotFound
}

func (db *MemoryDB) Put(key, value []byte) error {
	return db.apply([]BatchOp{{Key: key, Value: value}})
}

func (db *MemoryDB) Delete(key []byte) error {
	return db.apply([]BatchOp{{Key: key, Delete: true}})
}

// apply writes ops under one lock acquisition, so a batch is never
// observed half applied.
func (db *MemoryDB) apply(ops []BatchOp) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	for _, op := range ops {
		if op.Delete {
			delete(db.records, string(op.Key))
			continue
		}
		v := bytes.Clone(op.Value)
		if v == nil {
			v = []byte{}
		}
		db.records[string(op.Key)] = v
	}
	return nil
}

func (db *MemoryDB) NewBatch() Batch { return NewOpBatch(db.apply) }

// NewIterator snapshots the records under prefix, sorted by key.
func (db *MemoryDB) NewIterator(prefix []byte) Iterator {
	p := string(prefix)
	db.lock.RLock()
	keys := slices.Sorted(maps.Keys(db.records))
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, p) {
			entries = append(entries, Entry{Key: []byte(k), Value: bytes.Clone(db.records[k])})
		}
	}
	db.lock.RUnlock()
	return NewSnapshotIterator(entries, nil)
}

// Len reports the number of stored records.
func (db *MemoryDB) Len() int {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return len(db.records)
}

func (db *MemoryDB) Close() error { return nil }
