package sale

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/pricing"
)

func TestInitialState(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	st := f.sale.Status()
	if st.Owner != owner || st.Paused || !st.WhitelistEnabled {
		t.Fatalf("status = %+v", st)
	}
	wantEq(t, "price", st.PriceInUSD, u(2))
	wantEq(t, "hardcap", st.Hardcap, u(70))
	wantEq(t, "allowance", st.AllowedUserBalance, u(35))
	if st.AllowlistCommitment != f.tree.Root() {
		t.Fatalf("commitment = %s", st.AllowlistCommitment)
	}
	if got := f.sale.Params().PaymentToken; got != usdtAddr {
		t.Fatalf("payment token = %s", got)
	}
}

func TestOwnerOnlyOperations(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	calls := map[string]func(types.Address) error{
		"setWhitelist": func(a types.Address) error {
			_, err := f.sale.SetWhitelist(ctx, a, false)
			return err
		},
		"changeHardCap": func(a types.Address) error {
			_, err := f.sale.ChangeHardCap(ctx, a, u(300))
			return err
		},
		"changeAllowedUserBalance": func(a types.Address) error {
			_, err := f.sale.ChangeAllowedUserBalance(ctx, a, u(150))
			return err
		},
		"setPriceUSD": func(a types.Address) error {
			_, err := f.sale.SetPriceUSD(ctx, a, u(4))
			return err
		},
		"setTreasury": func(a types.Address) error {
			_, err := f.sale.SetTreasury(ctx, a, treasury)
			return err
		},
		"setAllowlistCommitment": func(a types.Address) error {
			_, err := f.sale.SetAllowlistCommitment(ctx, a, types.HexToHash("0x01"))
			return err
		},
		"pause": func(a types.Address) error {
			_, err := f.sale.Pause(ctx, a)
			return err
		},
		"transferOwnership": func(a types.Address) error {
			_, err := f.sale.TransferOwnership(ctx, a, alice)
			return err
		},
		"renounceOwnership": func(a types.Address) error {
			_, err := f.sale.RenounceOwnership(ctx, a)
			return err
		},
		"sweepToken": func(a types.Address) error {
			_, _, err := f.sale.SweepToken(ctx, a, strayAddr)
			return err
		},
	}
	before := f.sale.Status()
	for name, call := range calls {
		for _, caller := range []types.Address{alice, eve, {}} {
			if err := call(caller); Reason(err) != ReasonUnauthorized {
				t.Errorf("%s by %s: err = %v, want Unauthorized", name, caller, err)
			}
		}
	}
	after := f.sale.Status()
	if after.Owner != before.Owner || after.Paused != before.Paused || !after.Hardcap.Eq(before.Hardcap) {
		t.Fatalf("rejected calls changed state: %+v -> %+v", before, after)
	}
}

func TestSetWhitelist(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	_, err := f.sale.SetWhitelist(ctx, owner, true)
	wantErr(t, err, ErrInvalidState)

	r, err := f.sale.SetWhitelist(ctx, owner, false)
	if err != nil {
		t.Fatalf("SetWhitelist: %v", err)
	}
	if f.sale.WhitelistEnabled() {
		t.Fatal("gating still enabled")
	}
	if r.Logs[0].Topics[1] != ParamTopic(ParamWhitelist) {
		t.Fatalf("parameter topic = %s", r.Logs[0].Topics[1])
	}
	_, err = f.sale.SetWhitelist(ctx, owner, false)
	wantErr(t, err, ErrInvalidState)
}

func TestChangeHardCap(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	for _, buyer := range []types.Address{alice, bob} {
		if _, _, err := f.sale.Buy(ctx, buyer, units(30, 6), f.proof(t, buyer)); err != nil {
			t.Fatalf("Buy: %v", err)
		}
	}
	_, err := f.sale.ChangeHardCap(ctx, owner, u(59))
	wantErr(t, err, ErrInvalidState)

	if _, err := f.sale.ChangeHardCap(ctx, owner, u(60)); err != nil {
		t.Fatalf("ChangeHardCap(60): %v", err)
	}
	_, _, err = f.sale.Buy(ctx, carol, u(1), f.proof(t, carol))
	wantErr(t, err, ErrHardcapReached)

	if _, err := f.sale.ChangeHardCap(ctx, owner, u(350)); err != nil {
		t.Fatalf("ChangeHardCap(350): %v", err)
	}
	wantEq(t, "hardcap", f.sale.Hardcap(), u(350))
	if _, _, err := f.sale.Buy(ctx, carol, units(35, 6), f.proof(t, carol)); err != nil {
		t.Fatalf("Buy after raise: %v", err)
	}

	huge := new(uint256.Int).SetAllOne()
	_, err = f.sale.ChangeHardCap(ctx, owner, huge)
	wantErr(t, err, pricing.ErrOverflow)
}

func TestChangeAllowedUserBalance(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	if _, _, err := f.sale.Buy(ctx, alice, units(30, 6), f.proof(t, alice)); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	_, err := f.sale.ChangeAllowedUserBalance(ctx, owner, u(29))
	wantErr(t, err, ErrInvalidState)

	if _, err := f.sale.ChangeAllowedUserBalance(ctx, owner, u(150)); err != nil {
		t.Fatalf("ChangeAllowedUserBalance: %v", err)
	}
	wantEq(t, "allowance", f.sale.AllowedUserBalance(), u(150))
	if _, _, err := f.sale.Buy(ctx, alice, units(25, 6), f.proof(t, alice)); err != nil {
		t.Fatalf("Buy after raise: %v", err)
	}
	wantEq(t, "max purchased", f.sale.Contract().MaxPurchased(), units(55, 6))
}

func TestSetPriceUSD(t *testing.T) {
	f := newMintSale(t, CapQuantity)

	_, err := f.sale.SetPriceUSD(ctx, owner, new(uint256.Int))
	wantErr(t, err, ErrInvalidState)
	wantErr(t, err, pricing.ErrZeroPrice)

	if _, err := f.sale.SetPriceUSD(ctx, owner, u(4)); err != nil {
		t.Fatalf("SetPriceUSD: %v", err)
	}
	wantEq(t, "stored price", f.sale.PriceInUSD(), u(40000))

	p, _, err := f.sale.Buy(ctx, alice, u(10), f.proof(t, alice))
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	wantEq(t, "payment at new price", p.Payment, units(40, 6))
}

func TestSetAllowlistCommitment(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	next := newTree(t, eve)
	if _, err := f.sale.SetAllowlistCommitment(ctx, owner, next.Root()); err != nil {
		t.Fatalf("SetAllowlistCommitment: %v", err)
	}
	_, _, err := f.sale.Buy(ctx, alice, units(1, 6), f.proof(t, alice))
	wantErr(t, err, ErrUnauthorized)
}

func TestOwnershipLifecycle(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)

	_, err := f.sale.TransferOwnership(ctx, owner, types.Address{})
	wantErr(t, err, ErrInvalidState)

	r, err := f.sale.TransferOwnership(ctx, owner, eve)
	if err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	if f.sale.Owner() != eve {
		t.Fatalf("owner = %s, want eve", f.sale.Owner())
	}
	fields, err := OwnershipTransferredEvent.Decode(r.Logs[0])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if fields["previousOwner"] != owner.Hash() || fields["newOwner"] != eve.Hash() {
		t.Fatalf("ownership topics = %v", fields)
	}

	_, err = f.sale.Pause(ctx, owner)
	wantErr(t, err, ErrUnauthorized)
	if _, err := f.sale.Pause(ctx, eve); err != nil {
		t.Fatalf("Pause by new owner: %v", err)
	}

	if _, err := f.sale.RenounceOwnership(ctx, eve); err != nil {
		t.Fatalf("RenounceOwnership: %v", err)
	}
	if !f.sale.Owner().IsZero() {
		t.Fatalf("owner = %s, want zero", f.sale.Owner())
	}
	for _, caller := range []types.Address{eve, owner, {}} {
		gated := map[string]func() (*types.Receipt, error){
			"Unpause":           func() (*types.Receipt, error) { return f.sale.Unpause(ctx, caller) },
			"TransferOwnership": func() (*types.Receipt, error) { return f.sale.TransferOwnership(ctx, caller, alice) },
			"SetWhitelist":      func() (*types.Receipt, error) { return f.sale.SetWhitelist(ctx, caller, false) },
			"ChangeHardCap":     func() (*types.Receipt, error) { return f.sale.ChangeHardCap(ctx, caller, units(1000, 6)) },
			"ChangeAllowedUserBalance": func() (*types.Receipt, error) {
				return f.sale.ChangeAllowedUserBalance(ctx, caller, units(1000, 6))
			},
			"SetPriceUSD":       func() (*types.Receipt, error) { return f.sale.SetPriceUSD(ctx, caller, uint256.NewInt(3)) },
			"SetTreasury":       func() (*types.Receipt, error) { return f.sale.SetTreasury(ctx, caller, bob) },
			"Withdraw":          func() (*types.Receipt, error) { return f.sale.Withdraw(ctx, caller, uint256.NewInt(0)) },
			"RenounceOwnership": func() (*types.Receipt, error) { return f.sale.RenounceOwnership(ctx, caller) },
			"SetAllowlistCommitment": func() (*types.Receipt, error) {
				return f.sale.SetAllowlistCommitment(ctx, caller, types.HexToHash("0x01"))
			},
		}
		for name, call := range gated {
			if _, err := call(); !errors.Is(err, ErrUnauthorized) {
				t.Errorf("%s by %s after renounce: err = %v, want ErrUnauthorized", name, caller, err)
			}
		}
	}
	// Funds stay locked in a paused, ownerless sale; buying still works.
	if _, _, err := f.sale.Buy(ctx, alice, units(1, 6), f.proof(t, alice)); err != nil {
		t.Fatalf("Buy after renounce: %v", err)
	}
}

func TestDeployTwice(t *testing.T) {
	f := newEntitlementSale(t, CapPayment, 6)
	_, err := f.exec.Execute(ctx, owner, MethodDeploy, func() error {
		_, err := Deploy(f.st, f.sale.Params(), Collaborators{Payment: f.usdt, Issued: f.issued}, InitConfig{
			Owner:    eve,
			PriceUSD: u(1),
		})
		return err
	})
	wantErr(t, err, ErrInvalidState)
	if f.sale.Owner() != owner {
		t.Fatal("second deploy replaced the owner")
	}
}
