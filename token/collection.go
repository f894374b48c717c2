package token

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/access"
	"github.com/eth2030/presale/core/state"
	"github.com/eth2030/presale/core/types"
)

// Collection storage layout.
const (
	collOwnersSlot   = 0 // mapping(uint256 => address)
	collBalancesSlot = 1 // mapping(address => uint256)
	collMintedSlot   = 2
	collRolesSlot    = 3 // access table, two slots
)

// Collection is a fixed-supply non-fungible collection. Token ids are
// assigned sequentially from 1.
type Collection struct {
	st        *state.StateDB
	address   types.Address
	name      string
	maxSupply uint64
	roles     *access.Table
}

// NewCollection binds a collection to its storage.
func NewCollection(st *state.StateDB, address types.Address, name string, maxSupply uint64) *Collection {
	return &Collection{
		st:        st,
		address:   address,
		name:      name,
		maxSupply: maxSupply,
		roles:     access.NewTable(st, address, collRolesSlot),
	}
}

// DeployCollection creates a collection administered by admin.
func DeployCollection(st *state.StateDB, address, admin types.Address, name string, maxSupply uint64) (*Collection, error) {
	if admin.IsZero() {
		return nil, ErrZeroAddress
	}
	c := NewCollection(st, address, name, maxSupply)
	if err := c.roles.Setup(access.DefaultAdminRole, admin); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collection) Address() types.Address { return c.address }
func (c *Collection) Name() string           { return c.name }
func (c *Collection) MaxSupply() uint64      { return c.maxSupply }

// Roles exposes the collection's capability table.
func (c *Collection) Roles() *access.Table { return c.roles }

// TotalMinted returns the number of tokens issued so far.
func (c *Collection) TotalMinted() uint64 {
	return c.st.GetUint256(c.address, state.SlotKey(collMintedSlot)).Uint64()
}

// BalanceOf returns the number of tokens held by owner.
func (c *Collection) BalanceOf(owner types.Address) *uint256.Int {
	return c.st.GetUint256(c.address, state.MappingSlot(owner.Hash(), collBalancesSlot))
}

// OwnerOf returns the holder of token id.
func (c *Collection) OwnerOf(id uint64) (types.Address, error) {
	owner := c.st.GetAddress(c.address, c.ownerSlot(id))
	if owner.IsZero() {
		return types.Address{}, fmt.Errorf("%w: %d", ErrNonexistentToken, id)
	}
	return owner, nil
}

func (c *Collection) ownerSlot(id uint64) types.Hash {
	return state.MappingSlot(state.SlotKey(id), collOwnersSlot)
}

// Mint issues quantity sequential tokens to to. The operator must hold the
// minter role and the supply limit must not be exceeded.
func (c *Collection) Mint(operator, to types.Address, quantity *uint256.Int) error {
	if err := c.roles.Check(access.MinterRole, operator); err != nil {
		return err
	}
	if to.IsZero() {
		return ErrZeroAddress
	}
	if quantity.IsZero() {
		return ErrZeroQuantity
	}
	minted := c.TotalMinted()
	if !quantity.IsUint64() || quantity.Uint64() > c.maxSupply-minted {
		return fmt.Errorf("%w: %d of %d minted, %s requested", ErrSupplyLimit, minted, c.maxSupply, quantity)
	}
	n := quantity.Uint64()
	for id := minted + 1; id <= minted+n; id++ {
		c.st.SetAddress(c.address, c.ownerSlot(id), to)
		if err := emit(c.st, c.address, nftTransferEvent, types.Address{}, to, id); err != nil {
			return err
		}
	}
	c.st.SetUint256(c.address, state.SlotKey(collMintedSlot), uint256.NewInt(minted+n))
	balSlot := state.MappingSlot(to.Hash(), collBalancesSlot)
	c.st.SetUint256(c.address, balSlot, new(uint256.Int).Add(c.BalanceOf(to), quantity))
	return nil
}
