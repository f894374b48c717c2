// Package state implements the journaled contract-storage database every
// sale call executes against. Writes stay dirty in memory until Commit
// flushes them to the backing rawdb store in one batch; Snapshot and
// RevertToSnapshot unwind any suffix of them.
package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/rawdb"
	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/crypto"
)

// storageObject holds the slots of one contract.
type storageObject struct {
	dirtyStorage     map[types.Hash]types.Hash
	committedStorage map[types.Hash]types.Hash // read-through cache of the db
}

func newStorageObject() *storageObject {
	return &storageObject{
		dirtyStorage:     make(map[types.Hash]types.Hash),
		committedStorage: make(map[types.Hash]types.Hash),
	}
}

// StateDB is a journaled view of contract storage over a rawdb.Database.
// It is not safe for concurrent use; callers serialize access.
type StateDB struct {
	db      rawdb.Database
	objects map[types.Address]*storageObject
	journal *journal

	logs    []*types.Log
	callSeq uint64

	// dbErr memorizes the first read error of the current call. Reads
	// cannot fail individually; the error surfaces at Commit and is cleared
	// there and by Prepare.
	dbErr error
}

// New creates a state database backed by db.
func New(db rawdb.Database) *StateDB {
	return &StateDB{
		db:      db,
		objects: make(map[types.Address]*storageObject),
		journal: new(journal),
	}
}

// NewMemory creates a state database over a fresh in-memory store.
func NewMemory() *StateDB {
	return New(rawdb.NewMemoryDB())
}

// Database returns the backing store.
func (s *StateDB) Database() rawdb.Database { return s.db }

// Error returns the first database read error since the last Prepare or
// Commit, if any.
func (s *StateDB) Error() error { return s.dbErr }

func (s *StateDB) setError(err error) {
	if s.dbErr == nil {
		s.dbErr = err
	}
}

func (s *StateDB) getOrNewObject(addr types.Address) *storageObject {
	if obj := s.objects[addr]; obj != nil {
		return obj
	}
	obj := newStorageObject()
	s.objects[addr] = obj
	return obj
}

// --- Storage ---

// GetState returns the current value of a storage slot.
func (s *StateDB) GetState(addr types.Address, key types.Hash) types.Hash {
	obj := s.getOrNewObject(addr)
	if val, ok := obj.dirtyStorage[key]; ok {
		return val
	}
	return s.committed(obj, addr, key)
}

// GetCommittedState returns the value of a slot as of the last Commit.
func (s *StateDB) GetCommittedState(addr types.Address, key types.Hash) types.Hash {
	return s.committed(s.getOrNewObject(addr), addr, key)
}

func (s *StateDB) committed(obj *storageObject, addr types.Address, key types.Hash) types.Hash {
	if val, ok := obj.committedStorage[key]; ok {
		return val
	}
	val, err := rawdb.ReadStorage(s.db, addr, key)
	if err != nil {
		s.setError(fmt.Errorf("state: read %s/%s: %w", addr, key, err))
		return types.Hash{}
	}
	obj.committedStorage[key] = val
	return val
}

// SetState writes a storage slot.
func (s *StateDB) SetState(addr types.Address, key, value types.Hash) {
	obj := s.getOrNewObject(addr)
	if prev, dirty := obj.dirtyStorage[key]; dirty {
		s.journal.record(func() { obj.dirtyStorage[key] = prev })
	} else {
		s.journal.record(func() { delete(obj.dirtyStorage, key) })
	}
	obj.dirtyStorage[key] = value
}

// GetUint256 reads a slot as a big-endian unsigned integer.
func (s *StateDB) GetUint256(addr types.Address, key types.Hash) *uint256.Int {
	val := s.GetState(addr, key)
	return new(uint256.Int).SetBytes32(val[:])
}

// SetUint256 writes v into a slot as a big-endian word.
func (s *StateDB) SetUint256(addr types.Address, key types.Hash, v *uint256.Int) {
	s.SetState(addr, key, types.Hash(v.Bytes32()))
}

// GetAddress reads a slot holding a left-padded address.
func (s *StateDB) GetAddress(addr types.Address, key types.Hash) types.Address {
	val := s.GetState(addr, key)
	return types.BytesToAddress(val[types.HashLength-types.AddressLength:])
}

// SetAddress writes a left-padded address into a slot.
func (s *StateDB) SetAddress(addr types.Address, key types.Hash, v types.Address) {
	s.SetState(addr, key, v.Hash())
}

// GetBool reads a slot holding a boolean.
func (s *StateDB) GetBool(addr types.Address, key types.Hash) bool {
	return !s.GetState(addr, key).IsZero()
}

// SetBool writes a boolean into a slot.
func (s *StateDB) SetBool(addr types.Address, key types.Hash, v bool) {
	var word types.Hash
	if v {
		word[types.HashLength-1] = 1
	}
	s.SetState(addr, key, word)
}

// SlotKey returns the key of the fixed storage slot n.
func SlotKey(n uint64) types.Hash {
	return types.Hash(uint256.NewInt(n).Bytes32())
}

// MappingSlot returns the storage key of mapping entry key at base slot n:
// keccak256(pad32(key) ++ pad32(n)).
func MappingSlot(key types.Hash, n uint64) types.Hash {
	slot := SlotKey(n)
	return crypto.Keccak256Hash(key[:], slot[:])
}

// NestedMappingSlot returns the key of entry [outer][inner] of a two-level
// mapping at base slot n.
func NestedMappingSlot(outer, inner types.Hash, n uint64) types.Hash {
	mid := MappingSlot(outer, n)
	return crypto.Keccak256Hash(inner[:], mid[:])
}

// --- Logs ---

// Prepare sets the call sequence number stamped on subsequently emitted
// logs, clears the log buffer and forgets earlier read errors. It is not
// journaled.
func (s *StateDB) Prepare(callSeq uint64) {
	s.callSeq = callSeq
	s.logs = nil
	s.dbErr = nil
}

// AddLog appends an event to the current call's log buffer.
func (s *StateDB) AddLog(log *types.Log) {
	n := len(s.logs)
	s.journal.record(func() { s.logs = s.logs[:n] })
	log.CallSeq = s.callSeq
	log.Index = uint(len(s.logs))
	s.logs = append(s.logs, log)
}

// Logs returns the logs emitted since the last Prepare.
func (s *StateDB) Logs() []*types.Log {
	return s.logs
}

// --- Snapshot and revert ---

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	return s.journal.snapshot()
}

// RevertToSnapshot undoes every change made since the snapshot was taken.
// Reverting to an unknown or already-reverted id is a no-op.
func (s *StateDB) RevertToSnapshot(id int) {
	s.journal.revertTo(id)
}

// JournalLength returns the number of changes since the last Commit.
func (s *StateDB) JournalLength() int {
	return s.journal.length()
}

// --- Commit ---

// DirtySlots returns the number of slots written since the last Commit.
func (s *StateDB) DirtySlots() int {
	n := 0
	for _, obj := range s.objects {
		n += len(obj.dirtyStorage)
	}
	return n
}

// Commit flushes dirty storage to the backing database in a single batch.
// Each extra stage function may add its own records to the same batch. On a
// failure nothing is flushed and the dirty state is kept.
func (s *StateDB) Commit(extra ...func(rawdb.KeyValueWriter) error) error {
	if err := s.dbErr; err != nil {
		s.dbErr = nil
		return err
	}
	batch := s.db.NewBatch()
	for addr, obj := range s.objects {
		for key, val := range obj.dirtyStorage {
			if err := rawdb.WriteStorage(batch, addr, key, val); err != nil {
				return fmt.Errorf("state: stage %s/%s: %w", addr, key, err)
			}
		}
	}
	for _, stage := range extra {
		if err := stage(batch); err != nil {
			return fmt.Errorf("state: stage: %w", err)
		}
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	for _, obj := range s.objects {
		for key, val := range obj.dirtyStorage {
			obj.committedStorage[key] = val
		}
		clear(obj.dirtyStorage)
	}
	s.journal.reset()
	return nil
}
