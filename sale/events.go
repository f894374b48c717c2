package sale

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/events"
	"github.com/eth2030/presale/core/types"
)

// Names of ParameterUpdated subjects.
const (
	ParamWhitelist          = "whitelist"
	ParamHardcap            = "hardcap"
	ParamAllowedUserBalance = "allowedUserBalance"
	ParamPriceUSD           = "priceUSD"
	ParamCommitment         = "allowlistCommitment"
)

// Events emitted by the sale.
var (
	OwnershipTransferredEvent = events.New("OwnershipTransferred",
		events.Param{Name: "previousOwner", Type: "address", Indexed: true},
		events.Param{Name: "newOwner", Type: "address", Indexed: true},
	)
	PausedEvent = events.New("Paused",
		events.Param{Name: "account", Type: "address"},
	)
	UnpausedEvent = events.New("Unpaused",
		events.Param{Name: "account", Type: "address"},
	)
	TokensPurchasedEvent = events.New("TokensPurchased",
		events.Param{Name: "buyer", Type: "address", Indexed: true},
		events.Param{Name: "payment", Type: "uint256"},
		events.Param{Name: "entitlement", Type: "uint256"},
	)
	TokensMintedEvent = events.New("TokensMinted",
		events.Param{Name: "buyer", Type: "address", Indexed: true},
		events.Param{Name: "quantity", Type: "uint256"},
		events.Param{Name: "payment", Type: "uint256"},
	)
	WithdrawalEvent = events.New("Withdrawal",
		events.Param{Name: "token", Type: "address", Indexed: true},
		events.Param{Name: "treasury", Type: "address", Indexed: true},
		events.Param{Name: "amount", Type: "uint256"},
	)
	ClaimedEvent = events.New("Claimed",
		events.Param{Name: "buyer", Type: "address", Indexed: true},
		events.Param{Name: "amount", Type: "uint256"},
	)
	TreasuryUpdatedEvent = events.New("TreasuryUpdated",
		events.Param{Name: "previousTreasury", Type: "address", Indexed: true},
		events.Param{Name: "newTreasury", Type: "address", Indexed: true},
	)
	ParameterUpdatedEvent = events.New("ParameterUpdated",
		events.Param{Name: "name", Type: "bytes32", Indexed: true},
		events.Param{Name: "value", Type: "uint256"},
	)
)

// ParamTopic returns the bytes32 encoding of a parameter name, left-aligned
// the way a Solidity string literal converts to bytes32.
func ParamTopic(name string) types.Hash {
	var h types.Hash
	copy(h[:], name)
	return h
}

func (c *Contract) emit(ev *events.Event, values ...any) error {
	l, err := ev.Log(c.params.Address, values...)
	if err != nil {
		return err
	}
	c.st.AddLog(l)
	return nil
}

func (c *Contract) emitParam(name string, value *uint256.Int) error {
	return c.emit(ParameterUpdatedEvent, ParamTopic(name), value)
}

func boolValue(b bool) *uint256.Int {
	if b {
		return uint256.NewInt(1)
	}
	return new(uint256.Int)
}
