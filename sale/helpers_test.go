package sale

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/access"
	"github.com/eth2030/presale/core/executor"
	"github.com/eth2030/presale/core/state"
	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/crypto"
	"github.com/eth2030/presale/log"
	"github.com/eth2030/presale/pricing"
	"github.com/eth2030/presale/token"
)

var (
	owner    = types.HexToAddress("0x00000000000000000000000000000000000a0001")
	alice    = types.HexToAddress("0x00000000000000000000000000000000000a0002")
	bob      = types.HexToAddress("0x00000000000000000000000000000000000a0003")
	carol    = types.HexToAddress("0x00000000000000000000000000000000000a0004")
	dave     = types.HexToAddress("0x00000000000000000000000000000000000a0005")
	eve      = types.HexToAddress("0x00000000000000000000000000000000000a0006")
	treasury = types.HexToAddress("0x00000000000000000000000000000000000a0007")

	saleAddr   = types.HexToAddress("0x0000000000000000000000000000000000005a1e")
	usdtAddr   = types.HexToAddress("0x000000000000000000000000000000000000d011")
	issuedAddr = types.HexToAddress("0x0000000000000000000000000000000000000e20")
	nftAddr    = types.HexToAddress("0x0000000000000000000000000000000000000721")
	strayAddr  = types.HexToAddress("0x000000000000000000000000000000000000bad0")
)

var ctx = context.Background()

// units returns n * 10^dec.
func units(n uint64, dec uint8) *uint256.Int {
	v, err := pricing.MulPow10(uint256.NewInt(n), uint(dec))
	if err != nil {
		panic(err)
	}
	return v
}

func u(n uint64) *uint256.Int { return uint256.NewInt(n) }

type fixture struct {
	exec   *executor.Executor
	st     *state.StateDB
	usdt   *token.ERC20
	issued *token.ERC20
	nft    *token.Collection
	stray  *token.ERC20
	tree   *crypto.AllowlistTree
	sale   *Sale
}

func (f *fixture) proof(t *testing.T, addr types.Address) types.Proof {
	t.Helper()
	p, err := f.tree.Proof(addr)
	if err != nil {
		t.Fatalf("Proof(%s): %v", addr, err)
	}
	return p
}

// setup runs fn as a committed call by owner.
func (f *fixture) setup(t *testing.T, fn func() error) {
	t.Helper()
	if _, err := f.exec.Execute(ctx, owner, "setup", fn); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func newExecutor(t *testing.T) *executor.Executor {
	t.Helper()
	exec, err := executor.New(state.NewMemory(), ExecutorConfig(log.Discard()))
	if err != nil {
		t.Fatalf("executor.New: %v", err)
	}
	return exec
}

func newTree(t *testing.T, addrs ...types.Address) *crypto.AllowlistTree {
	t.Helper()
	tree, err := crypto.NewAllowlistTree(addrs)
	if err != nil {
		t.Fatalf("NewAllowlistTree: %v", err)
	}
	return tree
}

// newEntitlementSale deploys the 6-decimal payment / 18-decimal entitlement
// sale: price 2, hardcap 70, allowance 35, caps in whole payment units,
// gating on. alice, bob and carol hold 200 USDT each with the sale
// approved; dave is allowlisted but unfunded; eve is not allowlisted.
func newEntitlementSale(t *testing.T, capUnit CapUnit, capDecimals uint8) *fixture {
	t.Helper()
	f := &fixture{exec: newExecutor(t)}
	f.st = f.exec.State()
	f.tree = newTree(t, owner, alice, bob, carol, dave)

	params := Params{
		Address:         saleAddr,
		Flavor:          FlavorEntitlement,
		CapUnit:         capUnit,
		PaymentToken:    usdtAddr,
		IssuedToken:     issuedAddr,
		PaymentDecimals: 6,
		OutputDecimals:  18,
		CapDecimals:     capDecimals,
	}
	f.setup(t, func() (err error) {
		if f.usdt, err = token.DeployERC20(f.st, usdtAddr, owner, "Tether", "USDT", 6); err != nil {
			return err
		}
		if f.issued, err = token.DeployERC20(f.st, issuedAddr, owner, "Presale", "PRE", 18); err != nil {
			return err
		}
		if f.stray, err = token.DeployERC20(f.st, strayAddr, owner, "Stray", "STR", 18); err != nil {
			return err
		}
		c, err := Deploy(f.st, params, Collaborators{Payment: f.usdt, Issued: f.issued, Extra: []Token{f.stray}}, InitConfig{
			Owner:               owner,
			PriceUSD:            u(2),
			Hardcap:             u(70),
			AllowedUserBalance:  u(35),
			WhitelistEnabled:    true,
			AllowlistCommitment: f.tree.Root(),
		})
		if err != nil {
			return err
		}
		f.sale = New(f.exec, c)
		for _, buyer := range []types.Address{alice, bob, carol} {
			if err := f.usdt.Mint(owner, buyer, units(200, 6)); err != nil {
				return err
			}
		}
		for _, buyer := range []types.Address{alice, bob, carol, dave} {
			if err := f.usdt.Approve(buyer, saleAddr, new(uint256.Int).SetAllOne()); err != nil {
				return err
			}
		}
		return f.issued.Mint(owner, saleAddr, units(1000, 18))
	})
	return f
}

// newMintSale deploys the collection sale: hardcap 80 and allowance 40
// items, price 2 USD at 4 price decimals, paid in 6-decimal USDT.
func newMintSale(t *testing.T, capUnit CapUnit) *fixture {
	t.Helper()
	f := &fixture{exec: newExecutor(t)}
	f.st = f.exec.State()
	f.tree = newTree(t, owner, alice, bob, carol)

	params := Params{
		Address:         saleAddr,
		Flavor:          FlavorMint,
		CapUnit:         capUnit,
		PaymentToken:    usdtAddr,
		IssuedToken:     nftAddr,
		PaymentDecimals: 6,
		PriceDecimals:   4,
	}
	hardcap, allowance := u(80), u(40)
	if capUnit == CapPayment {
		params.CapDecimals = 6
		hardcap, allowance = u(160), u(80)
	}
	f.setup(t, func() (err error) {
		if f.usdt, err = token.DeployERC20(f.st, usdtAddr, owner, "Tether", "USDT", 6); err != nil {
			return err
		}
		if f.nft, err = token.DeployCollection(f.st, nftAddr, owner, "TEST-NFT", 80); err != nil {
			return err
		}
		if err := f.nft.Roles().Grant(owner, access.MinterRole, saleAddr); err != nil {
			return err
		}
		c, err := Deploy(f.st, params, Collaborators{Payment: f.usdt, Minter: f.nft}, InitConfig{
			Owner:               owner,
			Treasury:            treasury,
			PriceUSD:            u(2),
			Hardcap:             hardcap,
			AllowedUserBalance:  allowance,
			WhitelistEnabled:    true,
			AllowlistCommitment: f.tree.Root(),
		})
		if err != nil {
			return err
		}
		f.sale = New(f.exec, c)
		for _, buyer := range []types.Address{alice, bob, carol} {
			if err := f.usdt.Mint(owner, buyer, units(1000, 6)); err != nil {
				return err
			}
			if err := f.usdt.Approve(buyer, saleAddr, new(uint256.Int).SetAllOne()); err != nil {
				return err
			}
		}
		return nil
	})
	return f
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
}

func wantEq(t *testing.T, what string, got, want *uint256.Int) {
	t.Helper()
	if !got.Eq(want) {
		t.Fatalf("%s = %s, want %s", what, got, want)
	}
}
