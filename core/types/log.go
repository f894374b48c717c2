package types

import "fmt"

// MaxTopicsPerLog is the maximum number of indexed topics in a single log event.
const MaxTopicsPerLog = 4

// Log is an event emitted by a contract during a call.
type Log struct {
	Address Address `json:"address"`
	Topics  []Hash  `json:"topics"`
	Data    []byte  `json:"data"`

	// Derived fields, filled in by the executor.
	CallSeq uint64 `json:"callSeq"`
	Index   uint   `json:"logIndex"`
}

// Validate checks the structural limits of a log.
func (l *Log) Validate() error {
	if len(l.Topics) > MaxTopicsPerLog {
		return fmt.Errorf("log: too many topics: %d > %d", len(l.Topics), MaxTopicsPerLog)
	}
	return nil
}

// Copy returns a deep copy of the log.
func (l *Log) Copy() *Log {
	cp := *l
	cp.Topics = append([]Hash(nil), l.Topics...)
	cp.Data = append([]byte(nil), l.Data...)
	return &cp
}
