package sale

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/state"
	"github.com/eth2030/presale/core/types"
)

// Sale storage layout.
const (
	slotOwner              = 0
	slotTreasury           = 1
	slotPaused             = 2
	slotWhitelist          = 3
	slotPrice              = 4 // whole price * 10^PriceDecimals
	slotHardcap            = 5 // whole units
	slotAllowedUserBalance = 6 // whole units
	slotTotalSold          = 7 // cap base units
	slotCommitment         = 8
	slotPurchased          = 9  // mapping(address => uint256), cap base units
	slotClaimable          = 10 // mapping(address => uint256)
	slotTotalClaimable     = 11
	slotMaxPurchased       = 12 // largest single-buyer record
)

func (c *Contract) slot(n uint64) types.Hash { return state.SlotKey(n) }

func (c *Contract) getUint(n uint64) *uint256.Int {
	return c.st.GetUint256(c.params.Address, c.slot(n))
}

func (c *Contract) setUint(n uint64, v *uint256.Int) {
	c.st.SetUint256(c.params.Address, c.slot(n), v)
}

func (c *Contract) purchasedSlot(buyer types.Address) types.Hash {
	return state.MappingSlot(buyer.Hash(), slotPurchased)
}

func (c *Contract) claimableSlot(buyer types.Address) types.Hash {
	return state.MappingSlot(buyer.Hash(), slotClaimable)
}

// Owner returns the owner, or the zero address once ownership has been
// renounced.
func (c *Contract) Owner() types.Address {
	return c.st.GetAddress(c.params.Address, c.slot(slotOwner))
}

// Treasury returns the withdrawal destination.
func (c *Contract) Treasury() types.Address {
	return c.st.GetAddress(c.params.Address, c.slot(slotTreasury))
}

func (c *Contract) Paused() bool {
	return c.st.GetBool(c.params.Address, c.slot(slotPaused))
}

func (c *Contract) WhitelistEnabled() bool {
	return c.st.GetBool(c.params.Address, c.slot(slotWhitelist))
}

// PriceInUSD returns the stored fixed-point price.
func (c *Contract) PriceInUSD() *uint256.Int { return c.getUint(slotPrice) }

// Hardcap returns the global cap in whole units.
func (c *Contract) Hardcap() *uint256.Int { return c.getUint(slotHardcap) }

// AllowedUserBalance returns the per-buyer cap in whole units.
func (c *Contract) AllowedUserBalance() *uint256.Int { return c.getUint(slotAllowedUserBalance) }

// TotalSold returns the cumulative recorded amount in cap base units.
func (c *Contract) TotalSold() *uint256.Int { return c.getUint(slotTotalSold) }

func (c *Contract) AllowlistCommitment() types.Hash {
	return c.st.GetState(c.params.Address, c.slot(slotCommitment))
}

// Purchased returns buyer's cumulative recorded amount in cap base units.
func (c *Contract) Purchased(buyer types.Address) *uint256.Int {
	return c.st.GetUint256(c.params.Address, c.purchasedSlot(buyer))
}

// Claimable returns the entitlement buyer has not yet claimed.
func (c *Contract) Claimable(buyer types.Address) *uint256.Int {
	return c.st.GetUint256(c.params.Address, c.claimableSlot(buyer))
}

// TotalClaimable returns the sum of every buyer's unclaimed entitlement.
func (c *Contract) TotalClaimable() *uint256.Int { return c.getUint(slotTotalClaimable) }

// MaxPurchased returns the largest cumulative record of any single buyer.
func (c *Contract) MaxPurchased() *uint256.Int { return c.getUint(slotMaxPurchased) }
