package metrics

// Executor.
var (
	CallsExecuted   = DefaultRegistry.Counter("executor.calls")
	CallsReverted   = DefaultRegistry.Counter("executor.reverts")
	RevertsByReason = DefaultRegistry.CounterVec("executor.reverts_by_reason", "reason")
	// CallLatency is in microseconds.
	CallLatency = DefaultRegistry.Histogram("executor.call_us")
	// CallSeq is the sequence number of the last persisted call.
	CallSeq = DefaultRegistry.Gauge("executor.seq")
)

// Sale operations that succeeded.
var (
	PurchasesAccepted   = DefaultRegistry.Counter("sale.purchases")
	AllowlistRejections = DefaultRegistry.Counter("sale.allowlist_rejections")
	// Withdrawals includes sweeps.
	Withdrawals = DefaultRegistry.Counter("sale.withdrawals")
	Claims      = DefaultRegistry.Counter("sale.claims")
)

// Persistent store.
var (
	StoreBatches   = DefaultRegistry.Counter("store.batches")
	StoreBatchSize = DefaultRegistry.Histogram("store.batch_bytes")
)
