package rawdb

import "bytes"

// Entry is one record loaded into a SnapshotIterator.
type Entry struct {
	Key   []byte
	Value []byte
}

// SnapshotIterator walks a fixed, already-sorted slice of records. Backends
// load the records matching a prefix up front and return one of these, so
// an open iterator never holds a lock or a connection.
type SnapshotIterator struct {
	entries []Entry
	next    int
	err     error
}

// NewSnapshotIterator returns an iterator over entries, which must be
// sorted by key. A non-nil err makes the iterator empty and reports err.
func NewSnapshotIterator(entries []Entry, err error) *SnapshotIterator {
	if err != nil {
		entries = nil
	}
	return &SnapshotIterator{entries: entries, err: err}
}

func (it *SnapshotIterator) Next() bool {
	if it.next > len(it.entries) {
		return false
	}
	it.next++
	return it.next <= len(it.entries)
}

func (it *SnapshotIterator) current() *Entry {
	if it.next == 0 || it.next > len(it.entries) {
		return nil
	}
	return &it.entries[it.next-1]
}

func (it *SnapshotIterator) Key() []byte {
	if e := it.current(); e != nil {
		return e.Key
	}
	return nil
}

func (it *SnapshotIterator) Value() []byte {
	if e := it.current(); e != nil {
		return e.Value
	}
	return nil
}

func (it *SnapshotIterator) Error() error { return it.err }

func (it *SnapshotIterator) Release() {
	it.entries = nil
	it.next = 0
}

// PrefixEnd returns the smallest key greater than every key beginning with
// prefix, or nil when the prefix is empty or all 0xff.
func PrefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
