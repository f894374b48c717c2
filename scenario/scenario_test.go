package scenario

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/presale/log"
	"github.com/eth2030/presale/sale"
)

func init() {
	log.SetDefault(log.Discard())
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestScenarioTraces(t *testing.T) {
	for _, name := range []string{"erc20_sale", "nft_sale"} {
		t.Run(name, func(t *testing.T) {
			sc, err := Load(filepath.Join("testdata", name+".yaml"))
			require.NoError(t, err)

			res, err := Run(context.Background(), sc)
			require.NoError(t, err)
			assert.True(t, res.Passed(), "failures: %v", res.Failures)

			var buf bytes.Buffer
			require.NoError(t, res.Render(&buf))
			newGoldie(t).Assert(t, name, buf.Bytes())
		})
	}
}

func TestScenarioDefaults(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "erc20_sale.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "USDT", sc.Sale.PaymentToken.Symbol)
	assert.Equal(t, uint8(18), sc.Sale.IssuedToken.Decimals)
	assert.Equal(t, "1000", sc.Sale.IssuedToken.Supply.Dec())
	assert.Len(t, sc.Flow, 21)
}

const minimal = `
name: minimal
accounts:
  owner: 0x0000000000000000000000000000000000000001
  alice: 0x00000000000000000000000000000000000000a1
sale:
  address: 0x0000000000000000000000000000000000005a1e
  owner: 0x0000000000000000000000000000000000000001
  priceUSD: 1
  hardcap: 10
  allowedUserBalance: 5
  whitelist: false
  paymentToken:
    address: 0x0000000000000000000000000000000000000d01
  issuedToken:
    address: 0x0000000000000000000000000000000000000e01
    supply: 100
`

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no flow", minimal, "flow must not be empty"},
		{"unknown call", minimal + "flow:\n  - {call: mint2, from: owner}\n", "unknown call"},
		{"missing from", minimal + "flow:\n  - {call: pause}\n", "from is required"},
		{"unknown reason", minimal + "flow:\n  - {call: pause, from: alice, expect: Nope}\n", "unknown reason"},
		{"misspelled reason", minimal + "flow:\n  - {call: pause, from: alice, expect: HardcapReched}\n", `unknown reason "HardcapReched"`},
		{"unknown reverts reason", minimal + "flow:\n  - {call: pause, from: owner}\nassertions:\n  - {check: reverts, reason: Nope, equals: \"0\"}\n", "unknown reason"},
		{"setup expect", minimal + "setup:\n  - {call: pause, from: alice, expect: Unauthorized}\nflow:\n  - {call: pause, from: owner}\n", "cannot expect"},
		{"unknown field", minimal + "flow:\n  - {call: pause, from: owner, gas: 1}\n", "gas"},
		{"unknown check", minimal + "flow:\n  - {call: pause, from: owner}\nassertions:\n  - {check: vibes, equals: good}\n", "unknown check"},
		{"status field", minimal + "flow:\n  - {call: pause, from: owner}\nassertions:\n  - {check: status, equals: x}\n", "needs a field"},
		{"no name", strings.Replace(minimal, "name: minimal", "", 1) + "flow:\n  - {call: pause, from: owner}\n", "name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunRecordsUnmetExpectations(t *testing.T) {
	body := minimal + `
setup:
  - {call: mint, from: owner, token: payment, to: alice, amount: 5000000}
  - {call: approve, from: alice, token: payment, to: sale}
flow:
  - {call: buy, from: alice, amount: 1000000, expect: HardcapReached}
  - {call: pause, from: alice}
assertions:
  - {check: purchased, holder: alice, equals: "1000000"}
  - {check: claimable, holder: alice, equals: "2"}
  - {check: reverts, reason: Unauthorized, equals: "1"}
  - {check: status, field: nonsense, equals: "1"}
`
	sc, err := Parse([]byte(body))
	require.NoError(t, err)
	res, err := Run(context.Background(), sc)
	require.NoError(t, err)
	require.False(t, res.Passed())
	require.Len(t, res.Failures, 4)
	assert.Contains(t, res.Failures[0], "succeeded, want HardcapReached")
	assert.Contains(t, res.Failures[1], "reverted with Unauthorized, want success")
	assert.Contains(t, res.Failures[2], "claimable")
	assert.Contains(t, res.Failures[3], "unknown status field")

	require.Len(t, res.Trace, 5)
	assert.Equal(t, sale.MethodPause, res.Trace[4].Method)
	assert.Equal(t, "alice", res.Trace[4].Caller)

	var buf bytes.Buffer
	require.NoError(t, res.Render(&buf))
	assert.Contains(t, buf.String(), "FAIL flow[0] buy by alice")
	assert.NotContains(t, buf.String(), "passed")
}

func TestRunSetupFailureIsFatal(t *testing.T) {
	body := minimal + `
setup:
  - {call: mint, from: alice, token: payment, to: alice, amount: 1}
flow:
  - {call: pause, from: owner}
`
	sc, err := Parse([]byte(body))
	require.NoError(t, err)
	_, err = Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[0] mint")
}

func TestRunUnknownAccount(t *testing.T) {
	sc, err := Parse([]byte(minimal + "flow:\n  - {call: pause, from: mallory}\n"))
	require.NoError(t, err)
	_, err = Run(context.Background(), sc)
	require.ErrorIs(t, err, ErrUnknownAccount)
}
