package events

import (
	"errors"
	"math/big"
	"testing"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/crypto"
)

var transfer = New("Transfer",
	Param{Name: "from", Type: "address", Indexed: true},
	Param{Name: "to", Type: "address", Indexed: true},
	Param{Name: "value", Type: "uint256"},
)

func TestEventSignature(t *testing.T) {
	if got := transfer.Signature(); got != "Transfer(address,address,uint256)" {
		t.Fatalf("Signature = %q", got)
	}
	want := crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	if transfer.Topic() != want {
		t.Fatalf("Topic = %s, want %s", transfer.Topic(), want)
	}
}

func TestEventLogRoundTrip(t *testing.T) {
	contract := types.HexToAddress("0xc0")
	from := types.HexToAddress("0x01")
	to := types.HexToAddress("0x02")
	l, err := transfer.Log(contract, from, to, uint256.NewInt(35_000_000))
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if l.Address != contract || len(l.Topics) != 3 {
		t.Fatalf("log = %+v", l)
	}
	if l.Topics[1] != from.Hash() || l.Topics[2] != to.Hash() {
		t.Fatal("indexed addresses not left-padded into topics")
	}
	if len(l.Data) != 32 {
		t.Fatalf("data length = %d, want 32", len(l.Data))
	}

	args, err := transfer.Decode(l)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, ok := args["value"].(*big.Int); !ok || v.Int64() != 35_000_000 {
		t.Fatalf("value = %v", args["value"])
	}
	if args["to"] != to.Hash() {
		t.Fatalf("to = %v", args["to"])
	}
}

func TestEventValueConversions(t *testing.T) {
	ev := New("Mixed",
		Param{Name: "name", Type: "bytes32", Indexed: true},
		Param{Name: "flag", Type: "bool"},
		Param{Name: "who", Type: "address"},
		Param{Name: "n", Type: "uint256"},
	)
	name := crypto.Keccak256Hash([]byte("hardcap"))
	who := types.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	l, err := ev.Log(types.Address{}, name, true, who, uint64(7))
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if l.Topics[1] != name {
		t.Fatal("bytes32 topic mismatch")
	}
	args, err := ev.Decode(l)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if args["flag"] != true {
		t.Fatalf("flag = %v", args["flag"])
	}
	if args["who"] != gethcommon.Address(who) {
		t.Fatalf("who = %v", args["who"])
	}
	if n := args["n"].(*big.Int); n.Uint64() != 7 {
		t.Fatalf("n = %v", n)
	}
}

func TestEventErrors(t *testing.T) {
	if _, err := transfer.Log(types.Address{}, types.Address{}); !errors.Is(err, ErrArgCount) {
		t.Fatalf("Log err = %v, want ErrArgCount", err)
	}
	other := New("Paused", Param{Name: "account", Type: "address"})
	l, _ := other.Log(types.Address{}, types.HexToAddress("0x01"))
	if transfer.Matches(l) {
		t.Fatal("Transfer matched a Paused log")
	}
	if _, err := transfer.Decode(l); !errors.Is(err, ErrTopicMissing) {
		t.Fatalf("Decode err = %v, want ErrTopicMissing", err)
	}
}

func TestNewPanicsOnUnknownType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown ABI type")
		}
	}()
	New("Bad", Param{Name: "x", Type: "money"})
}
