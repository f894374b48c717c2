package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eth2030/presale/metrics"
	"github.com/eth2030/presale/scenario"
)

func newScenarioCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run scripted sale flows",
	}
	var showMetrics bool
	run := &cobra.Command{
		Use:   "run <file>...",
		Short: "Run scenarios on fresh in-memory sales and print their traces",
		Long: `Run deploys each scenario's sale on a fresh in-memory node, executes its
steps and prints the call trace. It fails when any expectation or assertion
does not hold.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				res, err := scenario.Run(cmd.Context(), sc)
				if err != nil {
					return err
				}
				if err := res.Render(cmd.OutOrStdout()); err != nil {
					return err
				}
				if !res.Passed() {
					failed++
				}
			}
			if showMetrics {
				if err := metrics.WriteText(cmd.OutOrStdout(), metrics.DefaultRegistry, opts.cfg.Metrics.Namespace); err != nil {
					return err
				}
			}
			if failed > 0 {
				return wrapExit(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", failed, len(args)), nil)
			}
			return nil
		},
	}
	run.Flags().BoolVar(&showMetrics, "metrics", false, "print metrics after the run")
	cmd.AddCommand(run)
	return cmd
}
