package sale

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/pricing"
)

// Flavor selects what a purchase issues.
type Flavor string

const (
	// FlavorEntitlement credits buyers a claimable balance of the issued
	// token, priced per unit of payment.
	FlavorEntitlement Flavor = "entitlement"
	// FlavorMint mints a fixed quantity of collection items per purchase,
	// priced per item.
	FlavorMint Flavor = "mint"
)

// CapUnit selects which amount the hardcap and per-buyer allowance bound.
type CapUnit string

const (
	CapPayment     CapUnit = "payment"     // payment-token amount
	CapEntitlement CapUnit = "entitlement" // issued entitlement (entitlement flavor)
	CapQuantity    CapUnit = "quantity"    // minted items (mint flavor)
)

// Params are the immutable deployment parameters of a sale.
type Params struct {
	Address      types.Address `json:"address"`
	Flavor       Flavor        `json:"flavor"`
	CapUnit      CapUnit       `json:"capUnit"`
	PaymentToken types.Address `json:"paymentToken"`
	IssuedToken  types.Address `json:"issuedToken"`

	PaymentDecimals uint8 `json:"paymentDecimals"`
	OutputDecimals  uint8 `json:"outputDecimals"`
	PriceDecimals   uint8 `json:"priceDecimals"`
	// CapDecimals scales the whole-unit hardcap and allowance into the
	// cap unit's base units.
	CapDecimals uint8 `json:"capDecimals"`
}

// Validate checks the parameters for consistency.
func (p *Params) Validate() error {
	switch {
	case p.Address.IsZero():
		return fmt.Errorf("%w: zero sale address", ErrInvalidParams)
	case p.PaymentToken.IsZero():
		return fmt.Errorf("%w: zero payment token", ErrInvalidParams)
	case p.IssuedToken.IsZero():
		return fmt.Errorf("%w: zero issued token", ErrInvalidParams)
	case p.PaymentToken == p.IssuedToken:
		return fmt.Errorf("%w: payment and issued token are the same contract", ErrInvalidParams)
	case p.Address == p.PaymentToken || p.Address == p.IssuedToken:
		return fmt.Errorf("%w: sale address collides with a token", ErrInvalidParams)
	}
	switch p.Flavor {
	case FlavorEntitlement:
		if p.CapUnit != CapPayment && p.CapUnit != CapEntitlement {
			return fmt.Errorf("%w: cap unit %q not valid for %s sales", ErrInvalidParams, p.CapUnit, p.Flavor)
		}
	case FlavorMint:
		if p.CapUnit != CapPayment && p.CapUnit != CapQuantity {
			return fmt.Errorf("%w: cap unit %q not valid for %s sales", ErrInvalidParams, p.CapUnit, p.Flavor)
		}
		if p.PaymentDecimals < p.PriceDecimals {
			return fmt.Errorf("%w: price decimals %d exceed payment decimals %d",
				ErrInvalidParams, p.PriceDecimals, p.PaymentDecimals)
		}
	default:
		return fmt.Errorf("%w: unknown flavor %q", ErrInvalidParams, p.Flavor)
	}
	if p.CapDecimals > pricing.MaxDecimals {
		return fmt.Errorf("%w: cap decimals %d", ErrInvalidParams, p.CapDecimals)
	}
	if err := p.engine().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

func (p *Params) engine() pricing.Engine {
	return pricing.Engine{
		PaymentDecimals: p.PaymentDecimals,
		OutputDecimals:  p.OutputDecimals,
		PriceDecimals:   p.PriceDecimals,
	}
}

// InitConfig holds the mutable sale state set at deployment. Amounts are
// whole units; the price is scaled by 10^PriceDecimals when stored.
type InitConfig struct {
	Owner               types.Address
	Treasury            types.Address // defaults to Owner
	PriceUSD            *uint256.Int
	Hardcap             *uint256.Int
	AllowedUserBalance  *uint256.Int
	WhitelistEnabled    bool
	AllowlistCommitment types.Hash
}
