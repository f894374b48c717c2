package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/crypto"
	"github.com/eth2030/presale/node"
	"github.com/eth2030/presale/sale"
)

// TraceEvent is one executed call.
type TraceEvent struct {
	Seq    uint64
	Method string
	Caller string
	// Outcome is "ok" or the failure reason.
	Outcome string
}

// Result is the outcome of a run.
type Result struct {
	Name  string
	Trace []TraceEvent
	// Final holds the rendered status fields after the last step.
	Final map[string]string
	// Failures lists unmet expectations and assertions.
	Failures []string
}

// Passed reports whether every expectation and assertion held.
func (r *Result) Passed() bool { return len(r.Failures) == 0 }

type runner struct {
	sc    *Scenario
	n     *node.Node
	sale  *sale.Sale
	sub   *node.Subscription
	names map[types.Address]string
	tree  *crypto.AllowlistTree
	res   *Result
}

// Run deploys the scenario's sale on a fresh in-memory node and executes
// its steps. The returned error reports a scenario that could not run;
// unmet expectations are recorded in Result.Failures.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	cfg := node.DefaultConfig()
	cfg.Store = node.StoreMemory
	cfg.Sale = sc.Sale
	n, err := node.New(&cfg)
	if err != nil {
		return nil, err
	}
	defer n.Close()

	r := &runner{
		sc:    sc,
		n:     n,
		sub:   n.Subscribe(),
		names: make(map[types.Address]string, len(sc.Accounts)),
		res:   &Result{Name: sc.Name},
	}
	for name, addr := range sc.Accounts {
		r.names[addr] = name
	}
	if len(sc.Sale.Allowlist) > 0 {
		if r.tree, err = crypto.NewAllowlistTree(sc.Sale.Allowlist); err != nil {
			return nil, fmt.Errorf("scenario: allowlist: %w", err)
		}
	}

	if r.sale, _, err = n.Deploy(ctx); err != nil {
		return nil, fmt.Errorf("scenario: deploy: %w", err)
	}
	r.drain()

	for i, step := range sc.Setup {
		if err := r.step(ctx, step); err != nil {
			return nil, fmt.Errorf("scenario: setup[%d] %s: %w", i, step.Call, err)
		}
	}
	for i, step := range sc.Flow {
		err := r.step(ctx, step)
		var reverted *revertError
		switch {
		case errors.As(err, &reverted):
			if reverted.reason != step.Expect {
				r.failf("flow[%d] %s by %s: reverted with %s, want %s",
					i, step.Call, step.From, reverted.reason, outcome(step.Expect))
			}
		case err != nil:
			return nil, fmt.Errorf("scenario: flow[%d] %s: %w", i, step.Call, err)
		case step.Expect != "":
			r.failf("flow[%d] %s by %s: succeeded, want %s", i, step.Call, step.From, step.Expect)
		}
	}

	r.res.Final = r.statusFields()
	for i, a := range sc.Assertions {
		if err := r.assert(a); err != nil {
			r.failf("assertions[%d] %s: %v", i, a.Check, err)
		}
	}
	return r.res, nil
}

func outcome(reason string) string {
	if reason == "" {
		return "success"
	}
	return reason
}

func (r *runner) failf(format string, args ...any) {
	r.res.Failures = append(r.res.Failures, fmt.Sprintf(format, args...))
}

// revertError marks a call that executed and reverted.
type revertError struct {
	reason string
	err    error
}

func (e *revertError) Error() string { return e.reason + ": " + e.err.Error() }
func (e *revertError) Unwrap() error { return e.err }

// drain moves every receipt published so far into the trace.
func (r *runner) drain() {
	for {
		select {
		case ev, ok := <-r.sub.Chan():
			if !ok {
				return
			}
			rc := ev.Receipt
			out := "ok"
			if !rc.Succeeded() {
				out = rc.Reason
			}
			r.res.Trace = append(r.res.Trace, TraceEvent{
				Seq:     rc.Seq,
				Method:  rc.Method,
				Caller:  r.name(rc.Caller),
				Outcome: out,
			})
		default:
			return
		}
	}
}

func (r *runner) step(ctx context.Context, st Step) error {
	rc, err := r.call(ctx, st)
	r.drain()
	if err != nil && rc != nil && !rc.Succeeded() {
		return &revertError{reason: rc.Reason, err: err}
	}
	return err
}

func (r *runner) call(ctx context.Context, st Step) (*types.Receipt, error) {
	from, err := r.account(st.From)
	if err != nil {
		return nil, err
	}
	s := r.sale
	if st.Amount == nil && st.Call != CallApprove {
		st.Amount = new(uint256.Int)
	}
	switch st.Call {
	case CallBuy:
		proof, err := r.proof(st, from)
		if err != nil {
			return nil, err
		}
		_, rc, err := s.Buy(ctx, from, st.Amount, proof)
		return rc, err
	case CallClaim:
		_, rc, err := s.Claim(ctx, from)
		return rc, err
	case CallPause:
		return s.Pause(ctx, from)
	case CallUnpause:
		return s.Unpause(ctx, from)
	case CallWithdraw:
		return s.Withdraw(ctx, from, st.Amount)
	case CallSweep:
		tok, err := r.token(st.Token)
		if err != nil {
			return nil, err
		}
		_, rc, err := s.SweepToken(ctx, from, tok)
		return rc, err
	case CallSetTreasury:
		to, err := r.account(st.To)
		if err != nil {
			return nil, err
		}
		return s.SetTreasury(ctx, from, to)
	case CallSetWhitelist:
		if st.Enabled == nil {
			return nil, fmt.Errorf("%w: setWhitelist needs enabled", ErrInvalidScenario)
		}
		return s.SetWhitelist(ctx, from, *st.Enabled)
	case CallChangeHardCap:
		return s.ChangeHardCap(ctx, from, st.Amount)
	case CallChangeAllowedUserBalance:
		return s.ChangeAllowedUserBalance(ctx, from, st.Amount)
	case CallSetPriceUSD:
		return s.SetPriceUSD(ctx, from, st.Amount)
	case CallSetAllowlistCommitment:
		tree, err := r.allowlist(st.Allowlist)
		if err != nil {
			return nil, err
		}
		rc, err := s.SetAllowlistCommitment(ctx, from, tree.Root())
		if err == nil {
			r.tree = tree
		}
		return rc, err
	case CallTransferOwnership:
		to, err := r.account(st.To)
		if err != nil {
			return nil, err
		}
		return s.TransferOwnership(ctx, from, to)
	case CallRenounceOwnership:
		return s.RenounceOwnership(ctx, from)
	case CallMint, CallApprove, CallTransfer:
		return r.tokenCall(ctx, st, from)
	}
	return nil, fmt.Errorf("%w: unknown call %q", ErrInvalidScenario, st.Call)
}

func (r *runner) tokenCall(ctx context.Context, st Step, from types.Address) (*types.Receipt, error) {
	tok, err := r.token(st.Token)
	if err != nil {
		return nil, err
	}
	to, err := r.account(st.To)
	if err != nil {
		return nil, err
	}
	amount := st.Amount
	switch st.Call {
	case CallMint:
		return r.n.MintToken(ctx, from, tok, to, amount)
	case CallApprove:
		if amount == nil {
			amount = new(uint256.Int).SetAllOne()
		}
		return r.n.Approve(ctx, from, tok, to, amount)
	default:
		return r.n.Transfer(ctx, from, tok, to, amount)
	}
}

func (r *runner) proof(st Step, buyer types.Address) (types.Proof, error) {
	switch {
	case st.Proof != "" && st.Proof != "none":
		return nil, fmt.Errorf("%w: proof must be empty or none", ErrInvalidScenario)
	case st.Proof == "none", r.tree == nil, !r.tree.Contains(buyer):
		return nil, nil
	}
	return r.tree.Proof(buyer)
}

func (r *runner) allowlist(names []string) (*crypto.AllowlistTree, error) {
	addrs := make([]types.Address, 0, len(names))
	for _, name := range names {
		addr, err := r.account(name)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return crypto.NewAllowlistTree(addrs)
}

// account resolves a name, "sale", or a hex address.
func (r *runner) account(ref string) (types.Address, error) {
	if addr, ok := r.sc.Accounts[ref]; ok {
		return addr, nil
	}
	if ref == "sale" {
		return r.sc.Sale.Address, nil
	}
	if strings.HasPrefix(ref, "0x") {
		return types.ParseAddress(ref)
	}
	return types.Address{}, fmt.Errorf("%w: %q", ErrUnknownAccount, ref)
}

func (r *runner) token(ref string) (types.Address, error) {
	switch ref {
	case "payment":
		return r.sc.Sale.PaymentToken.Address, nil
	case "issued":
		return r.sc.Sale.IssuedToken.Address, nil
	}
	return r.account(ref)
}

// name renders an address by account name where one is known.
func (r *runner) name(addr types.Address) string {
	if name, ok := r.names[addr]; ok {
		return name
	}
	switch addr {
	case r.sc.Sale.Address:
		return "sale"
	case types.Address{}:
		return "zero"
	}
	return addr.Hex()
}
