// Package events defines contract events and their log encoding. Topic 0 is
// the Keccak hash of the canonical signature, indexed arguments follow as
// topics and the remaining arguments are ABI-encoded into the log data.
package events

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
)

var (
	ErrArgCount     = errors.New("events: argument count mismatch")
	ErrTopicMissing = errors.New("events: log topic does not match event")
)

// Param describes one event argument.
type Param struct {
	Name    string
	Type    string // ABI type name: address, uint256, bool, bytes32
	Indexed bool
}

// Event is a compiled event definition.
type Event struct {
	ev abi.Event
}

// New compiles an event definition. It panics on an unknown ABI type, as
// definitions are package-level constants.
func New(name string, params ...Param) *Event {
	args := make(abi.Arguments, len(params))
	for i, p := range params {
		typ, err := abi.NewType(p.Type, "", nil)
		if err != nil {
			panic(fmt.Sprintf("events: %s.%s: %v", name, p.Name, err))
		}
		args[i] = abi.Argument{Name: p.Name, Type: typ, Indexed: p.Indexed}
	}
	return &Event{ev: abi.NewEvent(name, name, false, args)}
}

// Name returns the event name.
func (e *Event) Name() string { return e.ev.Name }

// Signature returns the canonical signature, e.g. "Paused(address)".
func (e *Event) Signature() string { return e.ev.Sig }

// Topic returns topic 0 of logs of this event.
func (e *Event) Topic() types.Hash { return types.Hash(e.ev.ID) }

// Log builds a log emitted by contract. Values are given in declaration
// order: types.Address, types.Hash, *uint256.Int, bool or uint64.
func (e *Event) Log(contract types.Address, values ...any) (*types.Log, error) {
	if len(values) != len(e.ev.Inputs) {
		return nil, fmt.Errorf("%w: %s wants %d, got %d", ErrArgCount, e.ev.Name, len(e.ev.Inputs), len(values))
	}
	topics := []types.Hash{e.Topic()}
	var data []any
	for i, arg := range e.ev.Inputs {
		v := toABI(values[i])
		if arg.Indexed {
			topic, err := topicOf(v)
			if err != nil {
				return nil, fmt.Errorf("events: %s.%s: %w", e.ev.Name, arg.Name, err)
			}
			topics = append(topics, topic)
			continue
		}
		data = append(data, v)
	}
	enc, err := e.ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return nil, fmt.Errorf("events: pack %s: %w", e.ev.Name, err)
	}
	return &types.Log{Address: contract, Topics: topics, Data: enc}, nil
}

// Matches reports whether l is an instance of this event.
func (e *Event) Matches(l *types.Log) bool {
	return len(l.Topics) > 0 && l.Topics[0] == e.Topic()
}

// Decode returns the arguments of l keyed by name. Indexed arguments are
// returned as their raw topic hash.
func (e *Event) Decode(l *types.Log) (map[string]any, error) {
	if !e.Matches(l) {
		return nil, ErrTopicMissing
	}
	out := make(map[string]any, len(e.ev.Inputs))
	if err := e.ev.Inputs.UnpackIntoMap(out, l.Data); err != nil {
		return nil, fmt.Errorf("events: unpack %s: %w", e.ev.Name, err)
	}
	topic := 1
	for _, arg := range e.ev.Inputs {
		if !arg.Indexed {
			continue
		}
		if topic >= len(l.Topics) {
			return nil, fmt.Errorf("%w: %s.%s", ErrTopicMissing, e.ev.Name, arg.Name)
		}
		out[arg.Name] = l.Topics[topic]
		topic++
	}
	return out, nil
}

// toABI converts engine values to the Go types the ABI packer expects.
func toABI(v any) any {
	switch x := v.(type) {
	case types.Address:
		return gethcommon.Address(x)
	case types.Hash:
		return [32]byte(x)
	case *uint256.Int:
		return x.ToBig()
	case uint64:
		return new(big.Int).SetUint64(x)
	}
	return v
}

func topicOf(v any) (types.Hash, error) {
	switch x := v.(type) {
	case gethcommon.Address:
		return types.BytesToHash(x[:]), nil
	case [32]byte:
		return types.Hash(x), nil
	case *big.Int:
		return types.BytesToHash(x.Bytes()), nil
	case bool:
		if x {
			return types.BytesToHash([]byte{1}), nil
		}
		return types.Hash{}, nil
	}
	return types.Hash{}, fmt.Errorf("unsupported indexed value %T", v)
}
