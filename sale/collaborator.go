package sale

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/token"
)

// Token is the fungible collaborator the sale pulls payment through and,
// in the entitlement flavor, pays claims from.
type Token interface {
	Address() types.Address
	Decimals() uint8
	BalanceOf(owner types.Address) *uint256.Int
	Transfer(from, to types.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to types.Address, amount *uint256.Int) error
}

// Minter is the collaborator that issues items in the mint flavor. The
// sale must hold whatever capability the minter requires of its operator.
type Minter interface {
	Address() types.Address
	Mint(operator, to types.Address, quantity *uint256.Int) error
}

// Collaborators binds a contract to its external tokens.
type Collaborators struct {
	Payment Token
	Issued  Token  // entitlement flavor
	Minter  Minter // mint flavor
	// Extra lists further tokens the owner may sweep from the sale.
	Extra []Token
}

var (
	_ Token  = (*token.ERC20)(nil)
	_ Minter = (*token.Collection)(nil)
)
