// Package executor runs contract calls as globally serialized,
// all-or-nothing units. Every call executes under one mutex against the
// shared journaled state; a failing call is reverted to the snapshot taken
// when it started, and the outcome of every call, failed or not, is
// recorded as a receipt committed together with the state changes.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eth2030/presale/core/rawdb"
	"github.com/eth2030/presale/core/state"
	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/log"
	"github.com/eth2030/presale/metrics"
)

// TracerName is the instrumentation scope of executor spans.
const TracerName = "presale/executor"

// ErrCommit wraps a failure to persist a call's outcome. The call's state
// changes have been discarded when it is returned.
var ErrCommit = errors.New("executor: commit failed")

// Config customizes an Executor. The zero value is usable.
type Config struct {
	// Reason maps a call error to its stable identifier. Defaults to the
	// error message.
	Reason func(error) string
	// Logger receives per-call records. Defaults to the package default.
	Logger *log.Logger
	// Tracer starts call spans. Defaults to the global provider's tracer.
	Tracer trace.Tracer
	// OnReceipt, if set, observes every persisted receipt. It runs under
	// the executor lock and must not call back into the executor.
	OnReceipt func(*types.Receipt)
}

// Executor serializes calls over a StateDB.
type Executor struct {
	mu        sync.Mutex
	st        *state.StateDB
	seq       uint64
	reason    func(error) string
	log       *log.Logger
	tracer    trace.Tracer
	onReceipt func(*types.Receipt)
}

// New creates an executor over st, resuming the call sequence recorded in
// st's backing database.
func New(st *state.StateDB, cfg Config) (*Executor, error) {
	seq, err := rawdb.ReadHeadSeq(st.Database())
	if err != nil {
		return nil, fmt.Errorf("executor: read head sequence: %w", err)
	}
	if cfg.Reason == nil {
		cfg.Reason = func(err error) string { return err.Error() }
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(TracerName)
	}
	metrics.CallSeq.Set(int64(seq))
	return &Executor{
		st:        st,
		seq:       seq,
		reason:    cfg.Reason,
		log:       cfg.Logger.Module("executor"),
		tracer:    cfg.Tracer,
		onReceipt: cfg.OnReceipt,
	}, nil
}

// State returns the underlying state. Callers must only touch it from
// within Execute or View.
func (e *Executor) State() *state.StateDB { return e.st }

// Seq returns the sequence number of the last executed call.
func (e *Executor) Seq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// Execute runs fn as one atomic call on behalf of caller. The returned error
// is fn's error, or ErrCommit if the outcome could not be persisted. A
// receipt is returned whenever the call was assigned a sequence number.
func (e *Executor) Execute(ctx context.Context, caller types.Address, method string, fn func() error) (*types.Receipt, error) {
	return e.execute(ctx, caller, method, fn, nil)
}

// ExecuteRecord is Execute with record written in the same commit as the
// call's state changes when fn succeeds.
func (e *Executor) ExecuteRecord(ctx context.Context, caller types.Address, method string, fn func() error, record func(rawdb.KeyValueWriter) error) (*types.Receipt, error) {
	return e.execute(ctx, caller, method, fn, record)
}

func (e *Executor) execute(ctx context.Context, caller types.Address, method string, fn func() error, record func(rawdb.KeyValueWriter) error) (*types.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, span := e.tracer.Start(ctx, method, trace.WithAttributes(
		attribute.String("caller", caller.Hex()),
	))
	defer span.End()

	seq := e.seq + 1
	e.st.Prepare(seq)
	snap := e.st.Snapshot()

	metrics.CallsExecuted.Inc()
	start := time.Now()
	callErr := fn()
	metrics.CallLatency.ObserveSince(start)

	receipt := &types.Receipt{
		ID:     newCallID(),
		Seq:    seq,
		Method: method,
		Caller: caller,
	}
	if callErr != nil {
		e.st.RevertToSnapshot(snap)
		receipt.Status = types.ReceiptStatusFailed
		receipt.Reason = e.reason(callErr)
		receipt.Err = callErr.Error()
	} else {
		receipt.Status = types.ReceiptStatusSuccessful
		for _, l := range e.st.Logs() {
			receipt.Logs = append(receipt.Logs, l.Copy())
		}
	}

	err := e.st.Commit(func(w rawdb.KeyValueWriter) error {
		if callErr == nil && record != nil {
			if err := record(w); err != nil {
				return err
			}
		}
		return rawdb.WriteReceipt(w, receipt)
	})
	if err != nil {
		e.st.RevertToSnapshot(snap)
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit")
		e.log.Error("call not persisted", "seq", seq, "method", method, "err", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrCommit, method, err)
	}
	e.seq = seq
	metrics.CallSeq.Set(int64(seq))
	if e.onReceipt != nil {
		e.onReceipt(receipt)
	}

	span.SetAttributes(
		attribute.Int64("seq", int64(seq)),
		attribute.Int("logs", len(receipt.Logs)),
	)
	if callErr != nil {
		metrics.CallsReverted.Inc()
		metrics.RevertsByReason.With(receipt.Reason).Inc()
		span.RecordError(callErr)
		span.SetStatus(codes.Error, receipt.Reason)
		e.log.Warn("call reverted", "seq", seq, "method", method,
			"caller", caller.Hex(), "reason", receipt.Reason, "err", callErr)
		return receipt, callErr
	}
	span.SetStatus(codes.Ok, "")
	e.log.Debug("call executed", "seq", seq, "method", method,
		"caller", caller.Hex(), "logs", len(receipt.Logs))
	return receipt, nil
}

// View runs fn under the executor lock without a snapshot. fn must not
// modify state.
func (e *Executor) View(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Receipt returns the persisted receipt of call seq.
func (e *Executor) Receipt(seq uint64) (*types.Receipt, error) {
	return rawdb.ReadReceipt(e.st.Database(), seq)
}

// Receipts returns every persisted receipt in call order.
func (e *Executor) Receipts() ([]*types.Receipt, error) {
	return rawdb.ReadReceipts(e.st.Database())
}

func newCallID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
