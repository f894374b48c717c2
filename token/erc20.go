package token

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/access"
	"github.com/eth2030/presale/core/state"
	"github.com/eth2030/presale/core/types"
)

// ERC20 storage layout.
const (
	erc20BalancesSlot    = 0 // mapping(address => uint256)
	erc20AllowancesSlot  = 1 // mapping(address => mapping(address => uint256))
	erc20TotalSupplySlot = 2
	erc20RolesSlot       = 3 // access table, two slots
)

// ERC20 is a fungible token with admin-controlled minting.
type ERC20 struct {
	st       *state.StateDB
	address  types.Address
	name     string
	symbol   string
	decimals uint8
	roles    *access.Table
}

// NewERC20 binds a token to its storage. Deployment state is created by
// DeployERC20; binding an existing address only attaches to it.
func NewERC20(st *state.StateDB, address types.Address, name, symbol string, decimals uint8) *ERC20 {
	return &ERC20{
		st:       st,
		address:  address,
		name:     name,
		symbol:   symbol,
		decimals: decimals,
		roles:    access.NewTable(st, address, erc20RolesSlot),
	}
}

// DeployERC20 creates a token and gives admin both the admin and minter
// roles.
func DeployERC20(st *state.StateDB, address, admin types.Address, name, symbol string, decimals uint8) (*ERC20, error) {
	if admin.IsZero() {
		return nil, ErrZeroAddress
	}
	t := NewERC20(st, address, name, symbol, decimals)
	if err := t.roles.Setup(access.DefaultAdminRole, admin); err != nil {
		return nil, err
	}
	if err := t.roles.Setup(access.MinterRole, admin); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *ERC20) Address() types.Address { return t.address }
func (t *ERC20) Name() string           { return t.name }
func (t *ERC20) Symbol() string         { return t.symbol }
func (t *ERC20) Decimals() uint8        { return t.decimals }

// Roles exposes the token's capability table.
func (t *ERC20) Roles() *access.Table { return t.roles }

func (t *ERC20) balanceSlot(owner types.Address) types.Hash {
	return state.MappingSlot(owner.Hash(), erc20BalancesSlot)
}

func (t *ERC20) allowanceSlot(owner, spender types.Address) types.Hash {
	return state.NestedMappingSlot(owner.Hash(), spender.Hash(), erc20AllowancesSlot)
}

// BalanceOf returns the balance of owner.
func (t *ERC20) BalanceOf(owner types.Address) *uint256.Int {
	return t.st.GetUint256(t.address, t.balanceSlot(owner))
}

// Allowance returns how much spender may move from owner.
func (t *ERC20) Allowance(owner, spender types.Address) *uint256.Int {
	return t.st.GetUint256(t.address, t.allowanceSlot(owner, spender))
}

// TotalSupply returns the amount in circulation.
func (t *ERC20) TotalSupply() *uint256.Int {
	return t.st.GetUint256(t.address, state.SlotKey(erc20TotalSupplySlot))
}

// Transfer moves amount from from to to.
func (t *ERC20) Transfer(from, to types.Address, amount *uint256.Int) error {
	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	bal := t.BalanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), bal, amount)
	}
	t.st.SetUint256(t.address, t.balanceSlot(from), new(uint256.Int).Sub(bal, amount))
	// Cannot overflow: the sum of balances is bounded by the total supply.
	t.st.SetUint256(t.address, t.balanceSlot(to), new(uint256.Int).Add(t.BalanceOf(to), amount))
	return emit(t.st, t.address, transferEvent, from, to, amount)
}

// Approve sets the allowance of spender over owner's tokens.
func (t *ERC20) Approve(owner, spender types.Address, amount *uint256.Int) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}
	t.st.SetUint256(t.address, t.allowanceSlot(owner, spender), amount)
	return emit(t.st, t.address, approvalEvent, owner, spender, amount)
}

// TransferFrom moves amount from from to to using spender's allowance.
func (t *ERC20) TransferFrom(spender, from, to types.Address, amount *uint256.Int) error {
	allowed := t.Allowance(from, spender)
	if allowed.Lt(amount) {
		return fmt.Errorf("%w: %s may spend %s, needs %s", ErrInsufficientAllowance, spender.Hex(), allowed, amount)
	}
	if err := t.Transfer(from, to, amount); err != nil {
		return err
	}
	t.st.SetUint256(t.address, t.allowanceSlot(from, spender), new(uint256.Int).Sub(allowed, amount))
	return nil
}

// Mint creates amount new tokens for to. The operator must hold the minter
// role.
func (t *ERC20) Mint(operator, to types.Address, amount *uint256.Int) error {
	if err := t.roles.Check(access.MinterRole, operator); err != nil {
		return err
	}
	if to.IsZero() {
		return ErrZeroAddress
	}
	supply, overflow := new(uint256.Int).AddOverflow(t.TotalSupply(), amount)
	if overflow {
		return ErrOverflow
	}
	t.st.SetUint256(t.address, state.SlotKey(erc20TotalSupplySlot), supply)
	t.st.SetUint256(t.address, t.balanceSlot(to), new(uint256.Int).Add(t.BalanceOf(to), amount))
	return emit(t.st, t.address, transferEvent, types.Address{}, to, amount)
}
