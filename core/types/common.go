// Package types defines the values that cross package boundaries in the
// sale engine: 32-byte words, 20-byte addresses, allowlist proofs, event
// logs and call receipts. Hex handling follows go-ethereum's.
package types

import (
	"errors"
	"fmt"
	"strings"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	HashLength    = gethcommon.HashLength
	AddressLength = gethcommon.AddressLength
)

var (
	ErrInvalidAddress = errors.New("types: invalid hex address")
	ErrInvalidHash    = errors.New("types: invalid hex hash")
)

// Hash is a 32-byte storage word, digest or event topic.
type Hash [HashLength]byte

// BytesToHash right-aligns b, keeping its last 32 bytes when longer.
func BytesToHash(b []byte) Hash { return Hash(gethcommon.BytesToHash(b)) }

// HexToHash is the lenient decoder used for literals: short input is
// left-padded and bad digits decode as nothing.
func HexToHash(s string) Hash { return BytesToHash(gethcommon.FromHex(s)) }

// ParseHash accepts exactly 64 hex digits, with or without 0x.
func ParseHash(s string) (Hash, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %q: %v", ErrInvalidHash, s, err)
	}
	if len(b) != HashLength {
		return Hash{}, fmt.Errorf("%w: %q is %d bytes", ErrInvalidHash, s, len(b))
	}
	return Hash(b), nil
}

func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) Hex() string    { return hexutil.Encode(h[:]) }
func (h Hash) String() string { return h.Hex() }
func (h Hash) IsZero() bool   { return h == Hash{} }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

func (h *Hash) UnmarshalText(input []byte) (err error) {
	*h, err = ParseHash(string(input))
	return err
}

// Address identifies an account, token or sale.
type Address [AddressLength]byte

// BytesToAddress right-aligns b, keeping its last 20 bytes when longer.
func BytesToAddress(b []byte) Address { return Address(gethcommon.BytesToAddress(b)) }

// HexToAddress is the lenient decoder used for literals such as "0x5a1e".
func HexToAddress(s string) Address { return BytesToAddress(gethcommon.FromHex(s)) }

// ParseAddress accepts a full 40-digit address in any letter case.
func ParseAddress(s string) (Address, error) {
	if !gethcommon.IsHexAddress(s) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address(gethcommon.HexToAddress(s)), nil
}

func (a Address) Bytes() []byte  { return a[:] }
func (a Address) String() string { return a.Hex() }
func (a Address) IsZero() bool   { return a == Address{} }

// Hex is lowercase; Checksum is the EIP-55 form used in JSON and YAML.
func (a Address) Hex() string      { return hexutil.Encode(a[:]) }
func (a Address) Checksum() string { return gethcommon.Address(a).Hex() }

// Hash left-pads the address into a storage word.
func (a Address) Hash() Hash { return BytesToHash(a[:]) }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.Checksum()), nil }

func (a *Address) UnmarshalText(input []byte) (err error) {
	*a, err = ParseAddress(string(input))
	return err
}

// Proof lists the sibling hashes from an allowlist leaf up to the root.
type Proof []Hash

func (p Proof) Hex() []string {
	out := make([]string, len(p))
	for i := range p {
		out[i] = p[i].Hex()
	}
	return out
}

// ParseProof decodes hex hashes in order.
func ParseProof(items []string) (Proof, error) {
	p := make(Proof, len(items))
	for i, item := range items {
		h, err := ParseHash(item)
		if err != nil {
			return nil, fmt.Errorf("proof element %d: %w", i, err)
		}
		p[i] = h
	}
	return p, nil
}
