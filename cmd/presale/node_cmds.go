package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/eth2030/presale/metrics"
	"github.com/eth2030/presale/node"
)

func newReceiptsCommand(opts *rootOptions) *cobra.Command {
	var (
		seq      uint64
		reverted bool
	)
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "List call receipts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := opts.openNode()
			if err != nil {
				return err
			}
			defer n.Close()
			if seq > 0 {
				r, err := n.Executor().Receipt(seq)
				if err != nil {
					return err
				}
				return opts.out.print(r)
			}
			receipts, err := n.Receipts()
			if err != nil {
				return err
			}
			if reverted {
				kept := receipts[:0]
				for _, r := range receipts {
					if !r.Succeeded() {
						kept = append(kept, r)
					}
				}
				receipts = kept
			}
			return opts.out.print(receipts)
		},
	}
	cmd.Flags().Uint64Var(&seq, "seq", 0, "show only the receipt of this call")
	cmd.Flags().BoolVar(&reverted, "reverted", false, "show only reverted calls")
	return cmd
}

func newHealthCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the store and the sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := opts.openNode()
			if err != nil {
				return err
			}
			defer n.Close()
			report := n.Health()
			if err := opts.out.print(report); err != nil {
				return err
			}
			if report.OverallStatus == node.StatusUnhealthy {
				return wrapExit(ExitFailure, "node unhealthy", nil)
			}
			return nil
		},
	}
}

func newMetricsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print process metrics in the Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := opts.openNode()
			if err != nil {
				return err
			}
			defer n.Close()
			return metrics.WriteText(cmd.OutOrStdout(), metrics.DefaultRegistry, opts.cfg.Metrics.Namespace)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "presale %s (commit %s, %s)\n", version, commit, runtime.Version())
		},
	}
}
