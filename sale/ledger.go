package sale

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/pricing"
)

// TryRecord adds amount, in cap base units, to buyer's record and to the
// sale total. Both caps are read from live state; the global cap is
// checked first. On error nothing is written.
func (c *Contract) TryRecord(buyer types.Address, amount *uint256.Int) error {
	hardcap, err := c.scaleCap(c.Hardcap())
	if err != nil {
		return err
	}
	allowance, err := c.scaleCap(c.AllowedUserBalance())
	if err != nil {
		return err
	}

	sold, overflow := new(uint256.Int).AddOverflow(c.TotalSold(), amount)
	if overflow {
		return fmt.Errorf("%w: total sold", pricing.ErrOverflow)
	}
	if sold.Gt(hardcap) {
		return fmt.Errorf("%w: %s of %s", ErrHardcapReached, sold, hardcap)
	}
	record, overflow := new(uint256.Int).AddOverflow(c.Purchased(buyer), amount)
	if overflow {
		return fmt.Errorf("%w: buyer record", pricing.ErrOverflow)
	}
	if record.Gt(allowance) {
		return fmt.Errorf("%w: %s of %s", ErrExceededAllowance, record, allowance)
	}

	c.setUint(slotTotalSold, sold)
	c.st.SetUint256(c.params.Address, c.purchasedSlot(buyer), record)
	if record.Gt(c.MaxPurchased()) {
		c.setUint(slotMaxPurchased, record)
	}
	return nil
}
