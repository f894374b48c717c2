// Package rawdb persists sale state as flat key-value records: contract
// storage slots, call receipts, the call sequence head and deployment
// records. Backends implement Database; the accessors in this package
// own the key layout.
package rawdb

import "errors"

// ErrNotFound is returned by Get for a key that has no record.
var ErrNotFound = errors.New("rawdb: not found")

type KeyValueReader interface {
	Has(key []byte) (bool, error)
	// Get returns a copy of the stored value, or ErrNotFound.
	Get(key []byte) ([]byte, error)
}

type KeyValueWriter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	Close() error
}

// Iterator walks records in ascending byte order of their keys. Key and
// Value are nil before the first Next and after exhaustion.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Iteratee opens an iterator over every key starting with prefix. A nil
// prefix selects the whole store.
type Iteratee interface {
	NewIterator(prefix []byte) Iterator
}

// Batch buffers writes until Write applies them all or none.
type Batch interface {
	KeyValueWriter
	// ValueSize is the number of key and value bytes buffered.
	ValueSize() int
	Write() error
	Reset()
}

type Batcher interface {
	NewBatch() Batch
}

// Database is what the executor and state layer need from a backend.
type Database interface {
	KeyValueStore
	Iteratee
	Batcher
}
