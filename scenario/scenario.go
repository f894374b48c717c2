// Package scenario runs scripted sale flows against an in-memory node and
// renders a deterministic trace of every call. Scenarios are YAML files:
// a sale deployment, setup calls that must succeed, a flow of calls with
// expected outcomes, and assertions on the final state.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/node"
	"github.com/eth2030/presale/sale"
)

// Scenario is one scripted sale flow.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Accounts names the addresses that steps and assertions refer to.
	Accounts map[string]types.Address `yaml:"accounts"`

	// Sale is deployed before the first step.
	Sale node.SaleConfig `yaml:"sale"`

	// Setup calls establish balances and approvals; each must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow calls carry their expected outcome.
	Flow []Step `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one call. Account and token fields take an account name, the
// token aliases "payment" and "issued", or a hex address.
type Step struct {
	Call   string       `yaml:"call"`
	From   string       `yaml:"from"`
	To     string       `yaml:"to,omitempty"`
	Token  string       `yaml:"token,omitempty"`
	Amount *uint256.Int `yaml:"amount,omitempty"`

	// Enabled is the setWhitelist argument.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Allowlist lists the accounts committed by setAllowlistCommitment.
	// Later buys prove membership against it.
	Allowlist []string `yaml:"allowlist,omitempty"`

	// Proof is "none" to buy without a proof; by default the buyer's proof
	// is derived from the current allowlist.
	Proof string `yaml:"proof,omitempty"`

	// Expect is the failure reason the call must revert with; empty means
	// the call must succeed.
	Expect string `yaml:"expect,omitempty"`
}

// Supported calls.
const (
	CallBuy                      = "buy"
	CallClaim                    = "claim"
	CallPause                    = "pause"
	CallUnpause                  = "unpause"
	CallWithdraw                 = "withdraw"
	CallSweep                    = "sweep"
	CallSetTreasury              = "setTreasury"
	CallSetWhitelist             = "setWhitelist"
	CallChangeHardCap            = "changeHardCap"
	CallChangeAllowedUserBalance = "changeAllowedUserBalance"
	CallSetPriceUSD              = "setPriceUSD"
	CallSetAllowlistCommitment   = "setAllowlistCommitment"
	CallTransferOwnership        = "transferOwnership"
	CallRenounceOwnership        = "renounceOwnership"
	CallMint                     = "mint"
	CallApprove                  = "approve"
	CallTransfer                 = "transfer"
)

// Assertion checks one value of the final state.
type Assertion struct {
	// Check is one of balance, purchased, claimable, status, reverts.
	Check  string `yaml:"check"`
	Holder string `yaml:"holder,omitempty"`
	Token  string `yaml:"token,omitempty"`
	// Field names a status field for status checks.
	Field string `yaml:"field,omitempty"`
	// Reason selects the reverted calls counted by reverts checks.
	Reason string `yaml:"reason,omitempty"`
	Equals string `yaml:"equals"`
}

// Assertion checks.
const (
	CheckBalance   = "balance"
	CheckPurchased = "purchased"
	CheckClaimable = "claimable"
	CheckStatus    = "status"
	CheckReverts   = "reverts"
)

var (
	ErrInvalidScenario = errors.New("scenario: invalid")
	ErrUnknownAccount  = errors.New("scenario: unknown account")
)

// Parse decodes a scenario, rejecting unknown fields. Sale fields left out
// keep the node defaults.
func Parse(data []byte) (*Scenario, error) {
	sc := Scenario{Sale: node.DefaultConfig().Sale}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("scenario: parse: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	return Parse(data)
}

var knownCalls = map[string]bool{
	CallBuy: true, CallClaim: true, CallPause: true, CallUnpause: true,
	CallWithdraw: true, CallSweep: true, CallSetTreasury: true,
	CallSetWhitelist: true, CallChangeHardCap: true,
	CallChangeAllowedUserBalance: true, CallSetPriceUSD: true,
	CallSetAllowlistCommitment: true, CallTransferOwnership: true,
	CallRenounceOwnership: true, CallMint: true, CallApprove: true,
	CallTransfer: true,
}

// Validate checks required fields and call names.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	if len(sc.Flow) == 0 {
		return fmt.Errorf("%w: flow must not be empty", ErrInvalidScenario)
	}
	if err := sc.Sale.ValidateSale(); err != nil {
		return fmt.Errorf("%w: sale: %w", ErrInvalidScenario, err)
	}
	for name, steps := range map[string][]Step{"setup": sc.Setup, "flow": sc.Flow} {
		for i, step := range steps {
			if !knownCalls[step.Call] {
				return fmt.Errorf("%w: %s[%d]: unknown call %q", ErrInvalidScenario, name, i, step.Call)
			}
			if step.From == "" {
				return fmt.Errorf("%w: %s[%d]: from is required", ErrInvalidScenario, name, i)
			}
			if name == "setup" && step.Expect != "" {
				return fmt.Errorf("%w: setup[%d]: setup calls cannot expect a failure", ErrInvalidScenario, i)
			}
			if step.Expect != "" && !isReason(step.Expect) {
				return fmt.Errorf("%w: %s[%d]: unknown reason %q", ErrInvalidScenario, name, i, step.Expect)
			}
		}
	}
	for i, a := range sc.Assertions {
		switch a.Check {
		case CheckBalance:
			if a.Token == "" || a.Holder == "" {
				return fmt.Errorf("%w: assertions[%d]: balance needs token and holder", ErrInvalidScenario, i)
			}
		case CheckPurchased, CheckClaimable:
			if a.Holder == "" {
				return fmt.Errorf("%w: assertions[%d]: %s needs a holder", ErrInvalidScenario, i, a.Check)
			}
		case CheckStatus:
			if a.Field == "" {
				return fmt.Errorf("%w: assertions[%d]: status needs a field", ErrInvalidScenario, i)
			}
		case CheckReverts:
			if a.Reason != "" && !isReason(a.Reason) {
				return fmt.Errorf("%w: assertions[%d]: unknown reason %q", ErrInvalidScenario, i, a.Reason)
			}
		default:
			return fmt.Errorf("%w: assertions[%d]: unknown check %q", ErrInvalidScenario, i, a.Check)
		}
	}
	return nil
}

// isReason reports whether s names a failure reason.
func isReason(s string) bool { return slices.Contains(sale.Reasons(), s) }
