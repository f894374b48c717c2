package rawdb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eth2030/presale/core/types"
)

// --- Storage Accessors ---

// WriteStorage stores a 32-byte storage word. Zero words are deleted so that
// an absent key and a zero slot read the same.
func WriteStorage(db KeyValueWriter, contract types.Address, slot, value types.Hash) error {
	if value.IsZero() {
		return db.Delete(storageKey(contract, slot))
	}
	return db.Put(storageKey(contract, slot), value[:])
}

// ReadStorage retrieves a storage word. A missing slot reads as zero.
func ReadStorage(db KeyValueReader, contract types.Address, slot types.Hash) (types.Hash, error) {
	data, err := db.Get(storageKey(contract, slot))
	if errors.Is(err, ErrNotFound) {
		return types.Hash{}, nil
	}
	if err != nil {
		return types.Hash{}, err
	}
	if len(data) != types.HashLength {
		return types.Hash{}, fmt.Errorf("rawdb: storage word has %d bytes", len(data))
	}
	return types.BytesToHash(data), nil
}

// IterateStorage calls fn for every non-zero slot of contract in key order.
func IterateStorage(db Iteratee, contract types.Address, fn func(slot, value types.Hash) bool) error {
	prefix := storageContractPrefix(contract)
	it := db.NewIterator(prefix)
	defer it.Release()
	for it.Next() {
		key := it.Key()
		if len(key) != len(prefix)+types.HashLength {
			continue
		}
		if !fn(types.BytesToHash(key[len(prefix):]), types.BytesToHash(it.Value())) {
			break
		}
	}
	return it.Error()
}

// --- Receipt Accessors ---

// WriteReceipt stores a call receipt under its sequence number and advances
// the head sequence marker.
func WriteReceipt(db KeyValueWriter, r *types.Receipt) error {
	enc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("rawdb: encode receipt %d: %w", r.Seq, err)
	}
	if err := db.Put(receiptKey(r.Seq), enc); err != nil {
		return err
	}
	return WriteHeadSeq(db, r.Seq)
}

// ReadReceipt retrieves the receipt of call seq.
func ReadReceipt(db KeyValueReader, seq uint64) (*types.Receipt, error) {
	data, err := db.Get(receiptKey(seq))
	if err != nil {
		return nil, err
	}
	var r types.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("rawdb: decode receipt %d: %w", seq, err)
	}
	return &r, nil
}

// ReadReceipts returns every stored receipt in sequence order.
func ReadReceipts(db Iteratee) ([]*types.Receipt, error) {
	it := db.NewIterator(receiptPrefix)
	defer it.Release()

	var out []*types.Receipt
	for it.Next() {
		var r types.Receipt
		if err := json.Unmarshal(it.Value(), &r); err != nil {
			return nil, fmt.Errorf("rawdb: decode receipt %x: %w", it.Key(), err)
		}
		out = append(out, &r)
	}
	return out, it.Error()
}

// WriteHeadSeq stores the last assigned call sequence number.
func WriteHeadSeq(db KeyValueWriter, seq uint64) error {
	return db.Put(headSeqKey, encodeSeq(seq))
}

// ReadHeadSeq retrieves the last assigned call sequence number, zero when
// no call has been recorded.
func ReadHeadSeq(db KeyValueReader) (uint64, error) {
	data, err := db.Get(headSeqKey)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("rawdb: head sequence has %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// --- Deployment Accessors ---

// WriteParams stores the encoded deployment parameters of a contract.
func WriteParams(db KeyValueWriter, contract types.Address, data []byte) error {
	return db.Put(paramsKey(contract), data)
}

// ReadParams retrieves the encoded deployment parameters of a contract.
func ReadParams(db KeyValueReader, contract types.Address) ([]byte, error) {
	return db.Get(paramsKey(contract))
}

// HasParams checks whether a contract has been deployed.
func HasParams(db KeyValueReader, contract types.Address) bool {
	ok, _ := db.Has(paramsKey(contract))
	return ok
}

// WriteSaleAddress records the address of the deployed sale.
func WriteSaleAddress(db KeyValueWriter, addr types.Address) error {
	return db.Put(saleKey, addr[:])
}

// ReadSaleAddress retrieves the address of the deployed sale.
func ReadSaleAddress(db KeyValueReader) (types.Address, error) {
	data, err := db.Get(saleKey)
	if err != nil {
		return types.Address{}, err
	}
	if len(data) != types.AddressLength {
		return types.Address{}, fmt.Errorf("rawdb: sale address has %d bytes", len(data))
	}
	return types.BytesToAddress(data), nil
}
