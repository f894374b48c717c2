package sale

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
)

// Pause closes the round and opens withdrawal.
func (c *Contract) Pause(caller types.Address) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	if c.Paused() {
		return fmt.Errorf("%w: paused", ErrInvalidState)
	}
	c.st.SetBool(c.params.Address, c.slot(slotPaused), true)
	return c.emit(PausedEvent, caller)
}

// Unpause reopens the round and locks withdrawal again.
func (c *Contract) Unpause(caller types.Address) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	if !c.Paused() {
		return fmt.Errorf("%w: not paused", ErrInvalidState)
	}
	c.st.SetBool(c.params.Address, c.slot(slotPaused), false)
	return c.emit(UnpausedEvent, caller)
}

// Withdraw moves amount of the payment token to the treasury. The pause
// check precedes the owner check, so an unpaused sale refuses everyone.
func (c *Contract) Withdraw(caller types.Address, amount *uint256.Int) error {
	if !c.Paused() {
		return fmt.Errorf("%w: not paused", ErrInvalidState)
	}
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("%w: zero amount", ErrInvalidState)
	}
	balance := c.payment.BalanceOf(c.params.Address)
	if balance.IsZero() || balance.Lt(amount) {
		return fmt.Errorf("%w: sale holds %s, requested %s", ErrInsufficientBalance, balance, amount)
	}
	return c.release(c.payment, amount)
}

// SetTreasury replaces the withdrawal destination.
func (c *Contract) SetTreasury(caller, treasury types.Address) error {
	if err := c.onlyOwner(caller); err != nil {
		return err
	}
	if treasury.IsZero() {
		return fmt.Errorf("%w: treasury is the zero address", ErrInvalidState)
	}
	prev := c.Treasury()
	c.st.SetAddress(c.params.Address, c.slot(slotTreasury), treasury)
	return c.emit(TreasuryUpdatedEvent, prev, treasury)
}

// SweepToken moves the sale's whole free balance of tok to the treasury.
// Sweeping the payment token is a withdrawal and needs the sale paused;
// for the issued token, balances owed to buyers stay behind.
func (c *Contract) SweepToken(caller, tok types.Address) (*uint256.Int, error) {
	if err := c.onlyOwner(caller); err != nil {
		return nil, err
	}
	t, ok := c.tokens[tok]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token %s", ErrInvalidState, tok)
	}
	if tok == c.params.PaymentToken && !c.Paused() {
		return nil, fmt.Errorf("%w: not paused", ErrInvalidState)
	}
	amount := t.BalanceOf(c.params.Address)
	if tok == c.params.IssuedToken {
		owed := c.TotalClaimable()
		if amount.Lt(owed) {
			amount.Clear()
		} else {
			amount.Sub(amount, owed)
		}
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: no free balance of %s", ErrInsufficientBalance, tok)
	}
	if err := c.release(t, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (c *Contract) release(t Token, amount *uint256.Int) error {
	treasury := c.Treasury()
	if err := t.Transfer(c.params.Address, treasury, amount); err != nil {
		return fmt.Errorf("%w: transfer to treasury: %w", ErrCollaborator, err)
	}
	return c.emit(WithdrawalEvent, t.Address(), treasury, amount)
}
