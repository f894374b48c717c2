package sale

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
)

// SetWhitelist turns allowlist gating on or off. Setting the current value
// is rejected.
func (c *Contract) SetWhitelist(caller types.Address, enabled bool) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	if c.WhitelistEnabled() == enabled {
		return fmt.Errorf("%w: whitelist already %t", ErrInvalidState, enabled)
	}
	c.st.SetBool(c.params.Address, c.slot(slotWhitelist), enabled)
	return c.emitParam(ParamWhitelist, boolValue(enabled))
}

// ChangeHardCap replaces the global cap. The new cap may not fall below
// what has already been sold.
func (c *Contract) ChangeHardCap(caller types.Address, hardcap *uint256.Int) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	hardcap = orZero(hardcap)
	scaled, err := c.scaleCap(hardcap)
	if err != nil {
		return err
	}
	if scaled.Lt(c.TotalSold()) {
		return fmt.Errorf("%w: hardcap %s below total sold", ErrInvalidState, hardcap)
	}
	c.setUint(slotHardcap, hardcap)
	return c.emitParam(ParamHardcap, hardcap)
}

// ChangeAllowedUserBalance replaces the per-buyer cap. The new cap may not
// fall below any buyer's existing record.
func (c *Contract) ChangeAllowedUserBalance(caller types.Address, allowance *uint256.Int) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	allowance = orZero(allowance)
	scaled, err := c.scaleCap(allowance)
	if err != nil {
		return err
	}
	if scaled.Lt(c.MaxPurchased()) {
		return fmt.Errorf("%w: allowance %s below an existing purchase", ErrInvalidState, allowance)
	}
	c.setUint(slotAllowedUserBalance, allowance)
	return c.emitParam(ParamAllowedUserBalance, allowance)
}

// SetPriceUSD sets the price in whole units.
func (c *Contract) SetPriceUSD(caller types.Address, whole *uint256.Int) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	price, err := c.storePrice(whole)
	if err != nil {
		return err
	}
	c.setUint(slotPrice, price)
	return c.emitParam(ParamPriceUSD, price)
}

// SetAllowlistCommitment replaces the allowlist root.
func (c *Contract) SetAllowlistCommitment(caller types.Address, root types.Hash) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	c.st.SetState(c.params.Address, c.slot(slotCommitment), root)
	return c.emitParam(ParamCommitment, new(uint256.Int).SetBytes32(root[:]))
}
