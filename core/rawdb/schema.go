package rawdb

import (
	"encoding/binary"

	"github.com/eth2030/presale/core/types"
)

// Key prefixes for the database schema.
var (
	// Contract storage
	storagePrefix = []byte("s") // s + contract (20 bytes) + slot (32 bytes) -> word (32 bytes)

	// Call receipts
	receiptPrefix = []byte("r")  // r + seq (8 bytes BE) -> receipt JSON
	headSeqKey    = []byte("hs") // -> last assigned call sequence (8 bytes BE)

	// Deployments
	paramsPrefix = []byte("p")  // p + contract (20 bytes) -> deployment params JSON
	saleKey      = []byte("ds") // -> address of the deployed sale
)

// encodeSeq encodes a call sequence number as an 8-byte big-endian value.
func encodeSeq(seq uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, seq)
	return enc
}

// storageKey = storagePrefix + contract + slot
func storageKey(contract types.Address, slot types.Hash) []byte {
	key := make([]byte, 0, len(storagePrefix)+types.AddressLength+types.HashLength)
	key = append(key, storagePrefix...)
	key = append(key, contract[:]...)
	return append(key, slot[:]...)
}

// storageContractPrefix = storagePrefix + contract
func storageContractPrefix(contract types.Address) []byte {
	return append(append([]byte{}, storagePrefix...), contract[:]...)
}

// receiptKey = receiptPrefix + seq
func receiptKey(seq uint64) []byte {
	return append(append([]byte{}, receiptPrefix...), encodeSeq(seq)...)
}

// paramsKey = paramsPrefix + contract
func paramsKey(contract types.Address) []byte {
	return append(append([]byte{}, paramsPrefix...), contract[:]...)
}
