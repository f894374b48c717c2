package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const saleYAML = `
store: sqlite
log:
  level: error
sale:
  address: 0x0000000000000000000000000000000000005a1e
  owner: 0x0000000000000000000000000000000000000001
  priceUSD: 2
  hardcap: 70
  allowedUserBalance: 35
  allowlist:
    - 0x00000000000000000000000000000000000000a1
    - 0x00000000000000000000000000000000000000b0
  paymentToken:
    address: 0x0000000000000000000000000000000000000d01
  issuedToken:
    address: 0x0000000000000000000000000000000000000e01
    supply: 1000
`

const (
	alice    = "0x00000000000000000000000000000000000000a1"
	eve      = "0x00000000000000000000000000000000000000ee"
	saleAddr = "0x0000000000000000000000000000000000005a1e"
)

// cli runs the command line against a config file and data directory
// shared by every call of one test.
type cli struct {
	t       *testing.T
	cfgPath string
	dataDir string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sale.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(saleYAML), 0o600))
	return &cli{t: t, cfgPath: cfgPath, dataDir: filepath.Join(dir, "data")}
}

func (c *cli) run(args ...string) (stdout, stderr string, code int) {
	c.t.Helper()
	var out, errb bytes.Buffer
	full := append([]string{"--config", c.cfgPath, "--datadir", c.dataDir}, args...)
	opts := &rootOptions{environ: map[string]string{}}
	code = execute(context.Background(), newRootCommand(opts), full, &out, &errb)
	return out.String(), errb.String(), code
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	out, errOut, code := c.run(args...)
	require.Equal(c.t, ExitSuccess, code, "args %v: %s", args, errOut)
	return out
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m), out)
	return m
}

func TestCommandPresence(t *testing.T) {
	root := newRootCommand(&rootOptions{})
	for _, path := range [][]string{
		{"deploy"}, {"status"}, {"buy"}, {"claim"}, {"pause"}, {"unpause"},
		{"withdraw"}, {"sweep"}, {"set", "treasury"}, {"set", "whitelist"},
		{"set", "hardcap"}, {"set", "allowance"}, {"set", "price"},
		{"set", "commitment"}, {"owner", "transfer"}, {"owner", "renounce"},
		{"allowlist", "root"}, {"allowlist", "proof"}, {"token", "mint"},
		{"token", "approve"}, {"token", "transfer"}, {"token", "balance"},
		{"receipts"}, {"health"}, {"metrics"}, {"scenario", "run"}, {"version"},
	} {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			cmd, _, err := root.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], cmd.Name())
		})
	}
}

func TestPauseHelpDescribesWithdrawal(t *testing.T) {
	// Pausing gates withdrawal only; purchases stay open.
	root := newRootCommand(&rootOptions{})
	for _, name := range []string{"pause", "unpause"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Contains(t, cmd.Short, "withdrawal")
		assert.NotContains(t, strings.ToLower(cmd.Short), "purchases")
	}
}

func TestGlobalFlags(t *testing.T) {
	root := newRootCommand(&rootOptions{})
	output := root.PersistentFlags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, OutputYAML, output.DefValue)
	for _, name := range []string{"config", "store", "datadir", "log-level", "log-format", "from"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	code := execute(context.Background(), newRootCommand(&rootOptions{}), []string{"version"}, &out, &out)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out.String(), "presale "+version)
}

func TestCommandErrors(t *testing.T) {
	c := newCLI(t)
	_, errOut, code := c.run("--output", "xml", "status")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut, "invalid output")

	_, errOut, code = c.run("--store", "tape", "status")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut, "unknown store")

	_, errOut, code = c.run("status")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut, "no sale deployed")

	_, errOut, code = c.run("buy", "1")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut, "--from is required")

	_, errOut, code = c.run("--from", alice, "buy", "lots")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut, "invalid amount")
}

func TestSaleLifecycle(t *testing.T) {
	c := newCLI(t)
	c.ok("deploy")

	_, _, code := c.run("deploy")
	assert.Equal(t, ExitCommandError, code, "second deploy")

	c.ok("token", "mint", "payment", alice, "35000000")
	c.ok("--from", alice, "token", "approve", "payment", saleAddr, "35000000")

	out := c.ok("-o", "json", "--from", alice, "buy", "35000000")
	assert.Equal(t, "17500000000000000000", decode(t, out)["entitlement"])

	out, _, code = c.run("-o", "json", "--from", eve, "buy", "1000000")
	assert.Equal(t, ExitFailure, code)
	r := decode(t, out)
	assert.Equal(t, "Unauthorized", r["reason"])

	out = c.ok("-o", "json", "status", "--buyer", alice)
	assert.Equal(t, "35000000", decode(t, out)["purchased"])

	c.ok("--from", alice, "claim")
	out = c.ok("-o", "json", "token", "balance", "issued", alice)
	assert.Equal(t, "17500000000000000000", decode(t, out)["balance"])

	_, _, code = c.run("withdraw", "1000000")
	assert.Equal(t, ExitFailure, code, "withdraw before pause")
	c.ok("pause")
	c.ok("set", "treasury", "0x00000000000000000000000000000000000000fe")
	c.ok("withdraw", "35000000")
	c.ok("set", "hardcap", "350")

	out = c.ok("-o", "json", "status")
	st := decode(t, out)
	assert.Equal(t, true, st["paused"])
	assert.Equal(t, "350", st["hardcap"])
	assert.Equal(t, "0", st["paymentBalance"])

	out = c.ok("-o", "json", "receipts", "--reverted")
	var reverted []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &reverted))
	require.Len(t, reverted, 2)
	assert.Equal(t, "buy", reverted[0]["method"])
	assert.Equal(t, "withdraw", reverted[1]["method"])

	out = c.ok("health")
	assert.Contains(t, out, "sale paused")

	c.ok("owner", "renounce")
	_, _, code = c.run("unpause")
	assert.Equal(t, ExitFailure, code)
}

func TestAllowlistCommands(t *testing.T) {
	c := newCLI(t)
	out := c.ok("-o", "json", "allowlist", "root")
	root := decode(t, out)
	assert.EqualValues(t, 2, root["size"])
	assert.EqualValues(t, 1, root["depth"])

	out = c.ok("-o", "json", "allowlist", "proof", alice)
	proof := decode(t, out)
	assert.Equal(t, root["root"], proof["root"])
	assert.Len(t, proof["proof"], 1)

	_, _, code := c.run("allowlist", "proof", eve)
	assert.Equal(t, ExitCommandError, code)
}

func TestScenarioRun(t *testing.T) {
	c := newCLI(t)
	path := filepath.Join("..", "..", "scenario", "testdata", "erc20_sale.yaml")
	out := c.ok("scenario", "run", "--metrics", path)
	assert.True(t, strings.HasPrefix(out, "scenario erc20-sale\n"))
	assert.Contains(t, out, "passed\n")
	assert.Contains(t, out, "presale_executor_calls")
}

func TestMetrics(t *testing.T) {
	c := newCLI(t)
	out := c.ok("metrics")
	assert.Contains(t, out, "# TYPE presale_executor_seq gauge")
}
