package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/log"
	"github.com/eth2030/presale/node"
	"github.com/eth2030/presale/sale"
)

// rootOptions holds the global flags and the configuration they resolve to.
type rootOptions struct {
	ConfigPath string
	Store      string
	DataDir    string
	LogLevel   string
	LogFormat  string
	Output     string
	From       string

	// environ replaces the process environment when non-nil.
	environ map[string]string
	cfg     *node.Config
	out     *printer
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presale",
		Short: "Operate a gated token or NFT sale",
		Long: `presale deploys a sale with its payment and issued tokens, then runs
purchases, claims and owner operations against it. Every call is executed
atomically and recorded with a receipt.

Example:
  presale --config sale.yaml --store sqlite deploy
  presale --config sale.yaml --store sqlite --from 0xa1... buy 35000000`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	pf.StringVar(&opts.Store, "store", "", "storage backend (memory|sqlite)")
	pf.StringVar(&opts.DataDir, "datadir", "", "data directory for the sqlite store")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	pf.StringVar(&opts.LogFormat, "log-format", "", "log format (json|text)")
	pf.StringVarP(&opts.Output, "output", "o", OutputYAML, "output format (yaml|json)")
	pf.StringVar(&opts.From, "from", "", "caller address; owner calls default to the configured owner")

	cmd.AddCommand(
		newDeployCommand(opts),
		newStatusCommand(opts),
		newBuyCommand(opts),
		newClaimCommand(opts),
		newPauseCommand(opts, true),
		newPauseCommand(opts, false),
		newWithdrawCommand(opts),
		newSweepCommand(opts),
		newSetCommand(opts),
		newOwnerCommand(opts),
		newAllowlistCommand(opts),
		newTokenCommand(opts),
		newReceiptsCommand(opts),
		newHealthCommand(opts),
		newMetricsCommand(opts),
		newScenarioCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// execute runs cmd with args and maps its error to an exit code.
func execute(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return ExitSuccess
}

// setup loads the configuration, applies flag overrides and installs the
// logger.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	if !validOutput(o.Output) {
		return fmt.Errorf("invalid output %q: must be %s or %s", o.Output, OutputYAML, OutputJSON)
	}
	cfg, err := node.Load(o.ConfigPath, o.environ)
	if err != nil {
		return err
	}
	if o.Store != "" {
		cfg.Store = o.Store
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger, err := log.NewWriter(cmd.ErrOrStderr(), level, cfg.Log.Format)
	if err != nil {
		return err
	}
	log.SetDefault(logger)

	o.cfg = cfg
	o.out = &printer{format: o.Output, w: cmd.OutOrStdout()}
	return nil
}

// openNode opens the configured node; the caller closes it.
func (o *rootOptions) openNode() (*node.Node, error) {
	n, err := node.New(o.cfg)
	if err != nil {
		return nil, wrapExit(ExitCommandError, "open node", err)
	}
	return n, nil
}

// withSale runs fn against the deployed sale.
func (o *rootOptions) withSale(fn func(n *node.Node, s *sale.Sale) error) error {
	n, err := o.openNode()
	if err != nil {
		return err
	}
	defer n.Close()
	s, err := n.Sale()
	if err != nil {
		return err
	}
	return fn(n, s)
}

// caller returns the --from address. Owner calls fall back to the
// configured owner.
func (o *rootOptions) caller(ownerCall bool) (types.Address, error) {
	if o.From != "" {
		return types.ParseAddress(o.From)
	}
	if ownerCall && !o.cfg.Sale.Owner.IsZero() {
		return o.cfg.Sale.Owner, nil
	}
	return types.Address{}, errors.New("--from is required")
}

// result prints the outcome of a call. A reverted call prints its receipt
// and fails with ExitFailure.
func (o *rootOptions) result(r *types.Receipt, err error, value any) error {
	if err != nil {
		if r == nil {
			return err
		}
		if perr := o.out.print(r); perr != nil {
			return perr
		}
		return wrapExit(ExitFailure, "call reverted", err)
	}
	if value == nil {
		return o.out.print(r)
	}
	return o.out.print(value)
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}
