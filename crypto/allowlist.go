// allowlist.go implements the address allowlist commitment: a binary Keccak
// Merkle tree over keccak256(address) leaves whose internal nodes hash the
// two children in sorted order. Sorting removes left/right position bits
// from proofs, so a proof is just the list of sibling hashes. The layout
// matches merkletreejs with {sortPairs: true}: an unpaired trailing node is
// promoted to the next layer unchanged.
package crypto

import (
	"bytes"
	"errors"

	"github.com/eth2030/presale/core/types"
)

// MaxAllowlistProofLength bounds the number of siblings a proof may carry.
// A tree of 2^64 leaves never needs more; longer inputs are rejected
// without hashing.
const MaxAllowlistProofLength = 64

// Allowlist tree errors.
var (
	ErrAllowlistEmpty     = errors.New("allowlist: no addresses")
	ErrAllowlistDuplicate = errors.New("allowlist: duplicate address")
	ErrAllowlistNotMember = errors.New("allowlist: address not in tree")
)

// AllowlistLeaf returns the leaf hash committed for addr.
func AllowlistLeaf(addr types.Address) types.Hash {
	return Keccak256Hash(addr[:])
}

// hashSortedPair hashes two nodes in canonical low/high order.
func hashSortedPair(a, b types.Hash) types.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return Keccak256Hash(a[:], b[:])
}

// VerifyAllowlistProof reports whether addr is a member of the set committed
// to by root. It never errors: a proof of the wrong length or with altered
// siblings simply folds to a different root.
func VerifyAllowlistProof(addr types.Address, proof types.Proof, root types.Hash) bool {
	if len(proof) > MaxAllowlistProofLength {
		return false
	}
	current := AllowlistLeaf(addr)
	for _, sibling := range proof {
		current = hashSortedPair(current, sibling)
	}
	return current == root
}

// AllowlistTree is a fully materialised allowlist tree used to produce the
// root and per-address proofs off-line. It is immutable once built.
type AllowlistTree struct {
	layers [][]types.Hash
	index  map[types.Address]int
}

// NewAllowlistTree builds the tree over addrs, preserving their order.
func NewAllowlistTree(addrs []types.Address) (*AllowlistTree, error) {
	if len(addrs) == 0 {
		return nil, ErrAllowlistEmpty
	}
	index := make(map[types.Address]int, len(addrs))
	leaves := make([]types.Hash, len(addrs))
	for i, addr := range addrs {
		if _, dup := index[addr]; dup {
			return nil, ErrAllowlistDuplicate
		}
		index[addr] = i
		leaves[i] = AllowlistLeaf(addr)
	}

	layers := [][]types.Hash{leaves}
	for layer := leaves; len(layer) > 1; {
		next := make([]types.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			next = append(next, hashSortedPair(layer[i], layer[i+1]))
		}
		layers = append(layers, next)
		layer = next
	}
	return &AllowlistTree{layers: layers, index: index}, nil
}

// Root returns the allowlist commitment.
func (t *AllowlistTree) Root() types.Hash {
	return t.layers[len(t.layers)-1][0]
}

// Size returns the number of addresses in the tree.
func (t *AllowlistTree) Size() int {
	return len(t.layers[0])
}

// Depth returns the number of hashing layers above the leaves.
func (t *AllowlistTree) Depth() int {
	return len(t.layers) - 1
}

// Contains reports whether addr is one of the tree's leaves.
func (t *AllowlistTree) Contains(addr types.Address) bool {
	_, ok := t.index[addr]
	return ok
}

// Proof returns the sibling path for addr.
func (t *AllowlistTree) Proof(addr types.Address) (types.Proof, error) {
	idx, ok := t.index[addr]
	if !ok {
		return nil, ErrAllowlistNotMember
	}
	var proof types.Proof
	for _, layer := range t.layers[:len(t.layers)-1] {
		if sib := idx ^ 1; sib < len(layer) {
			proof = append(proof, layer[sib])
		}
		idx /= 2
	}
	return proof, nil
}
