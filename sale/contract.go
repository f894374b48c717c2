// Package sale implements a gated token and NFT sale: allowlist-gated
// purchases against per-buyer and global caps, owner-controlled
// configuration, and pause-gated release of proceeds to a treasury.
//
// Contract holds the sale logic over contract storage of a journaled
// state. Its methods mutate state directly and are not atomic on their
// own; Sale runs each of them as one serialized call of an executor, which
// reverts every effect of a failed call.
package sale

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/state"
	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/pricing"
)

// Contract is a sale bound to its storage and collaborators.
type Contract struct {
	st      *state.StateDB
	params  Params
	engine  pricing.Engine
	payment Token
	issued  Token
	minter  Minter
	tokens  map[types.Address]Token
}

// NewContract binds a sale to existing storage. It checks that the
// collaborators match the deployment parameters but does not touch state.
func NewContract(st *state.StateDB, params Params, collab Collaborators) (*Contract, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if collab.Payment == nil {
		return nil, fmt.Errorf("%w: missing payment token", ErrInvalidParams)
	}
	if collab.Payment.Address() != params.PaymentToken {
		return nil, fmt.Errorf("%w: payment token is %s, bound %s",
			ErrInvalidParams, params.PaymentToken, collab.Payment.Address())
	}
	if collab.Payment.Decimals() != params.PaymentDecimals {
		return nil, fmt.Errorf("%w: payment token has %d decimals, want %d",
			ErrInvalidParams, collab.Payment.Decimals(), params.PaymentDecimals)
	}
	c := &Contract{
		st:      st,
		params:  params,
		engine:  params.engine(),
		payment: collab.Payment,
		tokens:  map[types.Address]Token{params.PaymentToken: collab.Payment},
	}
	switch params.Flavor {
	case FlavorEntitlement:
		if collab.Issued == nil || collab.Issued.Address() != params.IssuedToken {
			return nil, fmt.Errorf("%w: issued token %s not bound", ErrInvalidParams, params.IssuedToken)
		}
		if collab.Issued.Decimals() != params.OutputDecimals {
			return nil, fmt.Errorf("%w: issued token has %d decimals, want %d",
				ErrInvalidParams, collab.Issued.Decimals(), params.OutputDecimals)
		}
		c.issued = collab.Issued
		c.tokens[params.IssuedToken] = collab.Issued
	case FlavorMint:
		if collab.Minter == nil || collab.Minter.Address() != params.IssuedToken {
			return nil, fmt.Errorf("%w: minter %s not bound", ErrInvalidParams, params.IssuedToken)
		}
		c.minter = collab.Minter
	}
	for _, tok := range collab.Extra {
		if _, dup := c.tokens[tok.Address()]; !dup {
			c.tokens[tok.Address()] = tok
		}
	}
	return c, nil
}

// Deploy binds a sale and writes its initial state. Deploying twice at the
// same address fails with ErrInvalidState.
func Deploy(st *state.StateDB, params Params, collab Collaborators, init InitConfig) (*Contract, error) {
	c, err := NewContract(st, params, collab)
	if err != nil {
		return nil, err
	}
	if !c.PriceInUSD().IsZero() {
		return nil, fmt.Errorf("%w: sale %s already deployed", ErrInvalidState, params.Address)
	}
	if init.Owner.IsZero() {
		return nil, fmt.Errorf("%w: zero owner", ErrInvalidParams)
	}
	treasury := init.Treasury
	if treasury.IsZero() {
		treasury = init.Owner
	}
	price, err := c.storePrice(init.PriceUSD)
	if err != nil {
		return nil, err
	}
	hardcap, allowance := orZero(init.Hardcap), orZero(init.AllowedUserBalance)
	if _, err := c.scaleCap(hardcap); err != nil {
		return nil, err
	}
	if _, err := c.scaleCap(allowance); err != nil {
		return nil, err
	}

	addr := params.Address
	st.SetAddress(addr, c.slot(slotOwner), init.Owner)
	st.SetAddress(addr, c.slot(slotTreasury), treasury)
	st.SetBool(addr, c.slot(slotWhitelist), init.WhitelistEnabled)
	st.SetState(addr, c.slot(slotCommitment), init.AllowlistCommitment)
	c.setUint(slotPrice, price)
	c.setUint(slotHardcap, hardcap)
	c.setUint(slotAllowedUserBalance, allowance)
	if err := c.emit(OwnershipTransferredEvent, types.Address{}, init.Owner); err != nil {
		return nil, err
	}
	return c, nil
}

// Address returns the sale's contract address.
func (c *Contract) Address() types.Address { return c.params.Address }

// Params returns the deployment parameters.
func (c *Contract) Params() Params { return c.params }

// PaymentToken returns the bound payment collaborator.
func (c *Contract) PaymentToken() Token { return c.payment }

// PaymentBalance returns the payment-token funds held by the sale.
func (c *Contract) PaymentBalance() *uint256.Int {
	return c.payment.BalanceOf(c.params.Address)
}

// storePrice validates a whole-unit price and returns its stored form.
func (c *Contract) storePrice(whole *uint256.Int) (*uint256.Int, error) {
	if whole == nil || whole.IsZero() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, pricing.ErrZeroPrice)
	}
	return c.engine.StorePrice(whole)
}

// scaleCap converts a whole-unit cap into cap base units.
func (c *Contract) scaleCap(whole *uint256.Int) (*uint256.Int, error) {
	return pricing.MulPow10(whole, uint(c.params.CapDecimals))
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
