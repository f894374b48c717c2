// Package token provides reference collaborators for the sale: a fungible
// ERC-20 style token and a fixed-supply collection with role-gated
// minting. Both keep their balances in contract storage of the shared
// journaled state, so a reverted sale call unwinds token movements too.
package token

import (
	"errors"

	"github.com/eth2030/presale/core/events"
	"github.com/eth2030/presale/core/state"
	"github.com/eth2030/presale/core/types"
)

var (
	ErrZeroAddress           = errors.New("token: invalid address")
	ErrInsufficientBalance   = errors.New("token: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrSupplyLimit           = errors.New("token: limit reached")
	ErrZeroQuantity          = errors.New("token: zero quantity")
	ErrOverflow              = errors.New("token: arithmetic overflow")
	ErrNonexistentToken      = errors.New("token: nonexistent token")
)

var (
	transferEvent = events.New("Transfer",
		events.Param{Name: "from", Type: "address", Indexed: true},
		events.Param{Name: "to", Type: "address", Indexed: true},
		events.Param{Name: "value", Type: "uint256"},
	)
	approvalEvent = events.New("Approval",
		events.Param{Name: "owner", Type: "address", Indexed: true},
		events.Param{Name: "spender", Type: "address", Indexed: true},
		events.Param{Name: "value", Type: "uint256"},
	)
	// Collection transfers index the token id as well.
	nftTransferEvent = events.New("Transfer",
		events.Param{Name: "from", Type: "address", Indexed: true},
		events.Param{Name: "to", Type: "address", Indexed: true},
		events.Param{Name: "tokenId", Type: "uint256", Indexed: true},
	)
)

func emit(st *state.StateDB, contract types.Address, ev *events.Event, values ...any) error {
	l, err := ev.Log(contract, values...)
	if err != nil {
		return err
	}
	st.AddLog(l)
	return nil
}
