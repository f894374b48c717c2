package sale

import (
	"fmt"

	"github.com/eth2030/presale/core/types"
)

// onlyOwner fails unless caller is the current owner. Once ownership is
// renounced no caller passes, the zero address included.
func (c *Contract) onlyOwner(caller types.Address) error {
	owner := c.Owner()
	if owner.IsZero() || caller != owner {
		return fmt.Errorf("%w: caller is not the owner", ErrUnauthorized)
	}
	return nil
}

// TransferOwnership hands the sale to newOwner.
func (c *Contract) TransferOwnership(caller, newOwner types.Address) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return fmt.Errorf("%w: new owner is the zero address", ErrInvalidState)
	}
	return c.setOwner(newOwner)
}

// RenounceOwnership leaves the sale without an owner. Every owner-only
// operation fails afterwards, permanently.
func (c *Contract) RenounceOwnership(caller types.Address) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	return c.setOwner(types.Address{})
}

func (c *Contract) setOwner(owner types.Address) error {
	prev := c.Owner()
	c.st.SetAddress(c.params.Address, c.slot(slotOwner), owner)
	return c.emit(OwnershipTransferredEvent, prev, owner)
}
