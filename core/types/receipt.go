package types

// Receipt status values.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt records the outcome of one executed call.
type Receipt struct {
	ID     string  `json:"id"`
	Seq    uint64  `json:"seq"`
	Method string  `json:"method"`
	Caller Address `json:"caller"`
	Status uint64  `json:"status"`

	// Reason is the stable failure identifier; empty on success.
	Reason string `json:"reason,omitempty"`
	// Err is the full error message of a failed call.
	Err string `json:"error,omitempty"`

	Logs []*Log `json:"logs,omitempty"`
}

// Succeeded returns true if the call committed.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}
