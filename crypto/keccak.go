// Package crypto holds the engine's hashing: legacy Keccak-256, the
// function behind storage slot keys, role ids and event topics, and the
// sorted-pair Merkle allowlist that gates buyers.
package crypto

import (
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/eth2030/presale/core/types"
)

var hashers = sync.Pool{New: func() any { return sha3.NewLegacyKeccak256() }}

// Keccak256Hash hashes the concatenation of parts.
func Keccak256Hash(parts ...[]byte) (h types.Hash) {
	d := hashers.Get().(hash.Hash)
	defer hashers.Put(d)
	d.Reset()
	for _, p := range parts {
		d.Write(p)
	}
	d.Sum(h[:0])
	return h
}
