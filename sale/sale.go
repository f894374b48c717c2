package sale

import (
	"context"
	"errors"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/executor"
	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/log"
	"github.com/eth2030/presale/metrics"
)

// Method names recorded in receipts.
const (
	MethodDeploy                   = "deploy"
	MethodBuy                      = "buy"
	MethodClaim                    = "claim"
	MethodPause                    = "pause"
	MethodUnpause                  = "unpause"
	MethodWithdraw                 = "withdraw"
	MethodSweepToken               = "sweepToken"
	MethodSetTreasury              = "setTreasury"
	MethodSetWhitelist             = "setWhitelist"
	MethodChangeHardCap            = "changeHardCap"
	MethodChangeAllowedUserBalance = "changeAllowedUserBalance"
	MethodSetPriceUSD              = "setPriceUSD"
	MethodSetAllowlistCommitment   = "setAllowlistCommitment"
	MethodTransferOwnership        = "transferOwnership"
	MethodRenounceOwnership        = "renounceOwnership"
)

// Sale is the public surface of a deployed sale. Every write runs as one
// atomic call of the executor; reads observe committed or in-flight state
// under the executor lock.
type Sale struct {
	exec *executor.Executor
	c    *Contract
	log  *log.Logger
}

// New wraps a bound contract. exec must run over the contract's state.
func New(exec *executor.Executor, c *Contract) *Sale {
	return &Sale{
		exec: exec,
		c:    c,
		log:  log.Default().Module("sale").With("sale", c.Address().Hex()),
	}
}

// ExecutorConfig returns an executor configuration whose receipts carry
// sale failure reasons.
func ExecutorConfig(logger *log.Logger) executor.Config {
	return executor.Config{Reason: Reason, Logger: logger}
}

func (s *Sale) Contract() *Contract          { return s.c }
func (s *Sale) Executor() *executor.Executor { return s.exec }
func (s *Sale) Address() types.Address       { return s.c.Address() }
func (s *Sale) Params() Params               { return s.c.Params() }

// Buy submits a purchase. See Contract.Buy.
func (s *Sale) Buy(ctx context.Context, caller types.Address, amount *uint256.Int, proof types.Proof) (*Purchase, *types.Receipt, error) {
	var p *Purchase
	r, err := s.exec.Execute(ctx, caller, MethodBuy, func() (err error) {
		p, err = s.c.Buy(caller, amount, proof)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			metrics.AllowlistRejections.Inc()
		}
		return nil, r, err
	}
	metrics.PurchasesAccepted.Inc()
	return p, r, nil
}

// Claim pays out caller's claimable entitlement.
func (s *Sale) Claim(ctx context.Context, caller types.Address) (*uint256.Int, *types.Receipt, error) {
	var amount *uint256.Int
	r, err := s.exec.Execute(ctx, caller, MethodClaim, func() (err error) {
		amount, err = s.c.Claim(caller)
		return err
	})
	if err != nil {
		return nil, r, err
	}
	metrics.Claims.Inc()
	return amount, r, nil
}

func (s *Sale) Pause(ctx context.Context, caller types.Address) (*types.Receipt, error) {
	r, err := s.exec.Execute(ctx, caller, MethodPause, func() error { return s.c.Pause(caller) })
	if err == nil {
		s.log.Info("sale paused", "by", caller.Hex())
	}
	return r, err
}

func (s *Sale) Unpause(ctx context.Context, caller types.Address) (*types.Receipt, error) {
	r, err := s.exec.Execute(ctx, caller, MethodUnpause, func() error { return s.c.Unpause(caller) })
	if err == nil {
		s.log.Info("sale unpaused", "by", caller.Hex())
	}
	return r, err
}

// Withdraw releases amount of the payment token to the treasury.
func (s *Sale) Withdraw(ctx context.Context, caller types.Address, amount *uint256.Int) (*types.Receipt, error) {
	r, err := s.exec.Execute(ctx, caller, MethodWithdraw, func() error { return s.c.Withdraw(caller, amount) })
	if err == nil {
		metrics.Withdrawals.Inc()
		s.log.Info("proceeds withdrawn", "amount", amount, "treasury", s.Treasury().Hex())
	}
	return r, err
}

// SweepToken releases the sale's free balance of tok to the treasury.
func (s *Sale) SweepToken(ctx context.Context, caller, tok types.Address) (*uint256.Int, *types.Receipt, error) {
	var amount *uint256.Int
	r, err := s.exec.Execute(ctx, caller, MethodSweepToken, func() (err error) {
		amount, err = s.c.SweepToken(caller, tok)
		return err
	})
	if err != nil {
		return nil, r, err
	}
	metrics.Withdrawals.Inc()
	s.log.Info("token swept", "token", tok.Hex(), "amount", amount)
	return amount, r, nil
}

func (s *Sale) SetTreasury(ctx context.Context, caller, treasury types.Address) (*types.Receipt, error) {
	return s.exec.Execute(ctx, caller, MethodSetTreasury, func() error { return s.c.SetTreasury(caller, treasury) })
}

func (s *Sale) SetWhitelist(ctx context.Context, caller types.Address, enabled bool) (*types.Receipt, error) {
	return s.exec.Execute(ctx, caller, MethodSetWhitelist, func() error { return s.c.SetWhitelist(caller, enabled) })
}

func (s *Sale) ChangeHardCap(ctx context.Context, caller types.Address, hardcap *uint256.Int) (*types.Receipt, error) {
	return s.exec.Execute(ctx, caller, MethodChangeHardCap, func() error { return s.c.ChangeHardCap(caller, hardcap) })
}

func (s *Sale) ChangeAllowedUserBalance(ctx context.Context, caller types.Address, allowance *uint256.Int) (*types.Receipt, error) {
	return s.exec.Execute(ctx, caller, MethodChangeAllowedUserBalance, func() error {
		return s.c.ChangeAllowedUserBalance(caller, allowance)
	})
}

func (s *Sale) SetPriceUSD(ctx context.Context, caller types.Address, whole *uint256.Int) (*types.Receipt, error) {
	return s.exec.Execute(ctx, caller, MethodSetPriceUSD, func() error { return s.c.SetPriceUSD(caller, whole) })
}

func (s *Sale) SetAllowlistCommitment(ctx context.Context, caller types.Address, root types.Hash) (*types.Receipt, error) {
	return s.exec.Execute(ctx, caller, MethodSetAllowlistCommitment, func() error {
		return s.c.SetAllowlistCommitment(caller, root)
	})
}

func (s *Sale) TransferOwnership(ctx context.Context, caller, newOwner types.Address) (*types.Receipt, error) {
	r, err := s.exec.Execute(ctx, caller, MethodTransferOwnership, func() error {
		return s.c.TransferOwnership(caller, newOwner)
	})
	if err == nil {
		s.log.Info("ownership transferred", "from", caller.Hex(), "to", newOwner.Hex())
	}
	return r, err
}

func (s *Sale) RenounceOwnership(ctx context.Context, caller types.Address) (*types.Receipt, error) {
	r, err := s.exec.Execute(ctx, caller, MethodRenounceOwnership, func() error { return s.c.RenounceOwnership(caller) })
	if err == nil {
		s.log.Warn("ownership renounced", "by", caller.Hex())
	}
	return r, err
}

// ---- Read surface ----

func (s *Sale) Owner() (owner types.Address) {
	s.exec.View(func() { owner = s.c.Owner() })
	return owner
}

func (s *Sale) Treasury() (treasury types.Address) {
	s.exec.View(func() { treasury = s.c.Treasury() })
	return treasury
}

func (s *Sale) Paused() (paused bool) {
	s.exec.View(func() { paused = s.c.Paused() })
	return paused
}

func (s *Sale) WhitelistEnabled() (enabled bool) {
	s.exec.View(func() { enabled = s.c.WhitelistEnabled() })
	return enabled
}

func (s *Sale) PriceInUSD() (price *uint256.Int) {
	s.exec.View(func() { price = s.c.PriceInUSD() })
	return price
}

func (s *Sale) Hardcap() (hardcap *uint256.Int) {
	s.exec.View(func() { hardcap = s.c.Hardcap() })
	return hardcap
}

func (s *Sale) AllowedUserBalance() (allowance *uint256.Int) {
	s.exec.View(func() { allowance = s.c.AllowedUserBalance() })
	return allowance
}

func (s *Sale) TotalSold() (sold *uint256.Int) {
	s.exec.View(func() { sold = s.c.TotalSold() })
	return sold
}

func (s *Sale) AllowlistCommitment() (root types.Hash) {
	s.exec.View(func() { root = s.c.AllowlistCommitment() })
	return root
}

func (s *Sale) Purchased(buyer types.Address) (amount *uint256.Int) {
	s.exec.View(func() { amount = s.c.Purchased(buyer) })
	return amount
}

func (s *Sale) Claimable(buyer types.Address) (amount *uint256.Int) {
	s.exec.View(func() { amount = s.c.Claimable(buyer) })
	return amount
}

// Status is a consistent snapshot of the sale state.
type Status struct {
	Address             types.Address `json:"address" yaml:"address"`
	Flavor              Flavor        `json:"flavor" yaml:"flavor"`
	Owner               types.Address `json:"owner" yaml:"owner"`
	Treasury            types.Address `json:"treasury" yaml:"treasury"`
	Paused              bool          `json:"paused" yaml:"paused"`
	WhitelistEnabled    bool          `json:"whitelistEnabled" yaml:"whitelistEnabled"`
	PriceInUSD          *uint256.Int  `json:"priceInUSD" yaml:"priceInUSD"`
	Hardcap             *uint256.Int  `json:"hardcap" yaml:"hardcap"`
	AllowedUserBalance  *uint256.Int  `json:"allowedUserBalance" yaml:"allowedUserBalance"`
	TotalSold           *uint256.Int  `json:"totalSold" yaml:"totalSold"`
	TotalClaimable      *uint256.Int  `json:"totalClaimable" yaml:"totalClaimable"`
	AllowlistCommitment types.Hash    `json:"allowlistCommitment" yaml:"allowlistCommitment"`
	PaymentBalance      *uint256.Int  `json:"paymentBalance" yaml:"paymentBalance"`
}

// Status reads every sale field in one view.
func (s *Sale) Status() (st Status) {
	s.exec.View(func() {
		st = Status{
			Address:             s.c.Address(),
			Flavor:              s.c.params.Flavor,
			Owner:               s.c.Owner(),
			Treasury:            s.c.Treasury(),
			Paused:              s.c.Paused(),
			WhitelistEnabled:    s.c.WhitelistEnabled(),
			PriceInUSD:          s.c.PriceInUSD(),
			Hardcap:             s.c.Hardcap(),
			AllowedUserBalance:  s.c.AllowedUserBalance(),
			TotalSold:           s.c.TotalSold(),
			TotalClaimable:      s.c.TotalClaimable(),
			AllowlistCommitment: s.c.AllowlistCommitment(),
			PaymentBalance:      s.c.PaymentBalance(),
		}
	})
	return st
}
