package sale

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/crypto"
	"github.com/eth2030/presale/pricing"
)

// Purchase describes an accepted buy.
type Purchase struct {
	Buyer   types.Address `json:"buyer"`
	Payment *uint256.Int  `json:"payment"`
	// Entitlement is credited to Claimable in the entitlement flavor.
	Entitlement *uint256.Int `json:"entitlement,omitempty"`
	// Quantity is the number of items minted in the mint flavor.
	Quantity *uint256.Int `json:"quantity,omitempty"`
	// Recorded is the amount added to the buyer's cap record.
	Recorded *uint256.Int `json:"recorded"`
}

// Buy admits a purchase by caller. amount is the payment in the
// entitlement flavor and the item quantity in the mint flavor. When gating
// is enabled proof must place caller under the allowlist commitment.
func (c *Contract) Buy(caller types.Address, amount *uint256.Int, proof types.Proof) (*Purchase, error) {
	if amount == nil || amount.IsZero() {
		return nil, fmt.Errorf("%w: zero amount", ErrInvalidState)
	}
	if c.WhitelistEnabled() && !crypto.VerifyAllowlistProof(caller, proof, c.AllowlistCommitment()) {
		return nil, fmt.Errorf("%w: %s not allowlisted", ErrUnauthorized, caller)
	}
	price := c.PriceInUSD()

	p := &Purchase{Buyer: caller}
	switch c.params.Flavor {
	case FlavorEntitlement:
		ent, err := c.engine.Entitlement(amount, price)
		if err != nil {
			return nil, err
		}
		if ent.IsZero() {
			return nil, fmt.Errorf("%w: payment %s buys nothing", ErrInvalidState, amount)
		}
		p.Payment, p.Entitlement = amount.Clone(), ent
		p.Recorded = p.Payment
		if c.params.CapUnit == CapEntitlement {
			p.Recorded = ent
		}
	case FlavorMint:
		pay, err := c.engine.RequiredPayment(amount, price)
		if err != nil {
			return nil, err
		}
		p.Payment, p.Quantity = pay, amount.Clone()
		p.Recorded = p.Payment
		if c.params.CapUnit == CapQuantity {
			p.Recorded = p.Quantity
		}
	}

	if err := c.TryRecord(caller, p.Recorded); err != nil {
		return nil, err
	}
	if err := c.payment.TransferFrom(c.params.Address, caller, c.params.Address, p.Payment); err != nil {
		return nil, fmt.Errorf("%w: pull payment: %w", ErrCollaborator, err)
	}

	if c.params.Flavor == FlavorMint {
		if err := c.minter.Mint(c.params.Address, caller, p.Quantity); err != nil {
			return nil, fmt.Errorf("%w: mint: %w", ErrCollaborator, err)
		}
		if err := c.emit(TokensMintedEvent, caller, p.Quantity, p.Payment); err != nil {
			return nil, err
		}
		return p, nil
	}

	claimable, overflow := new(uint256.Int).AddOverflow(c.Claimable(caller), p.Entitlement)
	if overflow {
		return nil, fmt.Errorf("%w: claimable", pricing.ErrOverflow)
	}
	total, overflow := new(uint256.Int).AddOverflow(c.TotalClaimable(), p.Entitlement)
	if overflow {
		return nil, fmt.Errorf("%w: total claimable", pricing.ErrOverflow)
	}
	c.st.SetUint256(c.params.Address, c.claimableSlot(caller), claimable)
	c.setUint(slotTotalClaimable, total)
	if err := c.emit(TokensPurchasedEvent, caller, p.Payment, p.Entitlement); err != nil {
		return nil, err
	}
	return p, nil
}

// Claim pays out caller's whole claimable entitlement from the sale's
// balance of the issued token. It is not gated by pause.
func (c *Contract) Claim(caller types.Address) (*uint256.Int, error) {
	if c.params.Flavor != FlavorEntitlement {
		return nil, fmt.Errorf("%w: %s sales have nothing to claim", ErrInvalidState, c.params.Flavor)
	}
	amount := c.Claimable(caller)
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: nothing claimable for %s", ErrInsufficientBalance, caller)
	}
	c.st.SetUint256(c.params.Address, c.claimableSlot(caller), new(uint256.Int))
	c.setUint(slotTotalClaimable, new(uint256.Int).Sub(c.TotalClaimable(), amount))
	if err := c.issued.Transfer(c.params.Address, caller, amount); err != nil {
		return nil, fmt.Errorf("%w: pay claim: %w", ErrCollaborator, err)
	}
	if err := c.emit(ClaimedEvent, caller, amount); err != nil {
		return nil, err
	}
	return amount, nil
}
