package sale

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
)

func TestPauseStateMachine(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)

	_, err := f.sale.Unpause(ctx, owner)
	wantErr(t, err, ErrInvalidState)

	r, err := f.sale.Pause(ctx, owner)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !f.sale.Paused() {
		t.Fatal("sale not paused")
	}
	if len(r.Logs) != 1 || !PausedEvent.Matches(r.Logs[0]) {
		t.Fatalf("pause logs = %v", r.Logs)
	}
	_, err = f.sale.Pause(ctx, owner)
	wantErr(t, err, ErrInvalidState)

	_, err = f.sale.Unpause(ctx, alice)
	wantErr(t, err, ErrUnauthorized)
	if _, err := f.sale.Unpause(ctx, owner); err != nil {
		t.Fatalf("Unpause: %v", err)
	}
	if f.sale.Paused() {
		t.Fatal("sale still paused")
	}
}

func TestWithdrawRequiresPauseForEveryone(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	if _, _, err := f.sale.Buy(ctx, alice, units(35, 6), f.proof(t, alice)); err != nil {
		t.Fatalf("Buy: %v", err)
	}

	for _, caller := range []types.Address{owner, alice, {}} {
		r, err := f.sale.Withdraw(ctx, caller, units(10, 6))
		wantErr(t, err, ErrInvalidState)
		if r.Reason != ReasonInvalidState {
			t.Fatalf("reason for %s = %q", caller, r.Reason)
		}
	}
	wantEq(t, "sale USDT", f.usdt.BalanceOf(saleAddr), units(35, 6))
}

func TestWithdraw(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	if _, _, err := f.sale.Buy(ctx, alice, units(35, 6), f.proof(t, alice)); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := f.sale.SetTreasury(ctx, owner, treasury); err != nil {
		t.Fatalf("SetTreasury: %v", err)
	}
	if _, err := f.sale.Pause(ctx, owner); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	_, err := f.sale.Withdraw(ctx, alice, units(10, 6))
	wantErr(t, err, ErrUnauthorized)
	_, err = f.sale.Withdraw(ctx, owner, units(50, 6))
	wantErr(t, err, ErrInsufficientBalance)
	_, err = f.sale.Withdraw(ctx, owner, new(uint256.Int))
	wantErr(t, err, ErrInvalidState)

	r, err := f.sale.Withdraw(ctx, owner, units(20, 6))
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	wantEq(t, "treasury USDT", f.usdt.BalanceOf(treasury), units(20, 6))
	wantEq(t, "sale USDT", f.usdt.BalanceOf(saleAddr), units(15, 6))

	fields, err := WithdrawalEvent.Decode(r.Logs[len(r.Logs)-1])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if fields["token"] != usdtAddr.Hash() || fields["treasury"] != treasury.Hash() {
		t.Fatalf("withdrawal topics = %v", fields)
	}
}

func TestWithdrawEmptySale(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	if _, err := f.sale.Pause(ctx, owner); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	_, err := f.sale.Withdraw(ctx, owner, u(1))
	wantErr(t, err, ErrInsufficientBalance)
}

func TestWithdrawAfterUnpauseRelocks(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	if _, _, err := f.sale.Buy(ctx, alice, units(10, 6), f.proof(t, alice)); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if _, err := f.sale.Pause(ctx, owner); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := f.sale.Unpause(ctx, owner); err != nil {
		t.Fatalf("Unpause: %v", err)
	}
	_, err := f.sale.Withdraw(ctx, owner, units(10, 6))
	wantErr(t, err, ErrInvalidState)
}

func TestSetTreasury(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	if got := f.sale.Treasury(); got != owner {
		t.Fatalf("default treasury = %s, want owner", got)
	}
	_, err := f.sale.SetTreasury(ctx, owner, types.Address{})
	wantErr(t, err, ErrInvalidState)
	_, err = f.sale.SetTreasury(ctx, alice, treasury)
	wantErr(t, err, ErrUnauthorized)

	r, err := f.sale.SetTreasury(ctx, owner, treasury)
	if err != nil {
		t.Fatalf("SetTreasury: %v", err)
	}
	if f.sale.Treasury() != treasury {
		t.Fatalf("treasury = %s", f.sale.Treasury())
	}
	if len(r.Logs) != 1 || !TreasuryUpdatedEvent.Matches(r.Logs[0]) {
		t.Fatalf("logs = %v", r.Logs)
	}
}

func TestSweepToken(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	if _, err := f.sale.SetTreasury(ctx, owner, treasury); err != nil {
		t.Fatalf("SetTreasury: %v", err)
	}
	if _, _, err := f.sale.Buy(ctx, alice, units(35, 6), f.proof(t, alice)); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	// A stray transfer straight to the sale.
	f.setup(t, func() error { return f.stray.Mint(owner, saleAddr, units(3, 18)) })

	_, _, err := f.sale.SweepToken(ctx, alice, strayAddr)
	wantErr(t, err, ErrUnauthorized)
	_, _, err = f.sale.SweepToken(ctx, owner, types.HexToAddress("0xdead"))
	wantErr(t, err, ErrInvalidState)

	amount, _, err := f.sale.SweepToken(ctx, owner, strayAddr)
	if err != nil {
		t.Fatalf("SweepToken(stray): %v", err)
	}
	wantEq(t, "swept", amount, units(3, 18))
	wantEq(t, "treasury STR", f.stray.BalanceOf(treasury), units(3, 18))
	_, _, err = f.sale.SweepToken(ctx, owner, strayAddr)
	wantErr(t, err, ErrInsufficientBalance)

	// Issued tokens owed to buyers stay in the sale.
	amount, _, err = f.sale.SweepToken(ctx, owner, issuedAddr)
	if err != nil {
		t.Fatalf("SweepToken(issued): %v", err)
	}
	wantEq(t, "swept issued", amount, new(uint256.Int).Sub(units(1000, 18), units(1750, 16)))
	wantEq(t, "sale PRE", f.issued.BalanceOf(saleAddr), units(1750, 16))
	if _, _, err := f.sale.Claim(ctx, alice); err != nil {
		t.Fatalf("Claim after sweep: %v", err)
	}

	// The payment token is proceeds and needs the pause.
	_, _, err = f.sale.SweepToken(ctx, owner, usdtAddr)
	wantErr(t, err, ErrInvalidState)
	if _, err := f.sale.Pause(ctx, owner); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	amount, _, err = f.sale.SweepToken(ctx, owner, usdtAddr)
	if err != nil {
		t.Fatalf("SweepToken(usdt): %v", err)
	}
	wantEq(t, "swept usdt", amount, units(35, 6))
	wantEq(t, "treasury USDT", f.usdt.BalanceOf(treasury), units(35, 6))
}
