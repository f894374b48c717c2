package rawdb

import (
	"bytes"
	"slices"
)

// BatchOp is one buffered write. A Delete op carries no value.
type BatchOp struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// OpBatch is a Batch that records its writes and hands them to a backend
// commit function on Write. Backends supply the commit; the buffering is
// shared.
type OpBatch struct {
	commit func([]BatchOp) error
	ops    []BatchOp
	size   int
}

// NewOpBatch returns an empty batch committing through commit.
func NewOpBatch(commit func([]BatchOp) error) *OpBatch {
	return &OpBatch{commit: commit}
}

func (b *OpBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, BatchOp{Key: bytes.Clone(key), Value: bytes.Clone(value)})
	b.size += len(key) + len(value)
	return nil
}

func (b *OpBatch) Delete(key []byte) error {
	b.ops = append(b.ops, BatchOp{Key: bytes.Clone(key), Delete: true})
	b.size += len(key)
	return nil
}

func (b *OpBatch) ValueSize() int { return b.size }

// Ops returns the buffered writes in order.
func (b *OpBatch) Ops() []BatchOp { return slices.Clip(b.ops) }

// Write commits the buffered writes. An empty batch is a no-op.
func (b *OpBatch) Write() error {
	if len(b.ops) == 0 {
		return nil
	}
	return b.commit(b.ops)
}

func (b *OpBatch) Reset() {
	clear(b.ops)
	b.ops = b.ops[:0]
	b.size = 0
}

// Replay applies ops to w one at a time, stopping at the first error.
func Replay(w KeyValueWriter, ops []BatchOp) error {
	for _, op := range ops {
		var err error
		if op.Delete {
			err = w.Delete(op.Key)
		} else {
			err = w.Put(op.Key, op.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
