package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/project"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare algorithms on a request",
	Long:  "Runs the request once per algorithm, plus thinner-kerf and no-safety variants, and prints a comparison table.",
	RunE:  runCompare,
}

var compareInput string

func init() {
	compareCmd.Flags().StringVarP(&compareInput, "in", "i", "", "Path to request JSON file (required)")

	if err := compareCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, _ []string) error {
	req, err := project.LoadRequest(compareInput)
	if err != nil {
		return err
	}

	opt, logger, err := newOptimizer()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	results := opt.CompareAlgorithms(req)
	best := engine.BestScenario(results)
	writeComparison(cmd.OutOrStdout(), results, best)

	if best < 0 {
		return fmt.Errorf("every scenario failed")
	}
	return nil
}

func writeComparison(w io.Writer, results []engine.ComparisonResult, best int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SCENARIO\tBARS\tCUTS\tWASTE %\tCOST\tQUALITY\tMS\t")
	for i, r := range results {
		name := r.Scenario.Name
		if i == best {
			name += " *"
		}
		if r.Err != nil {
			_, _ = fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t-\t%s\n", name, engine.CodeOf(r.Err))
			continue
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.2f\t%.1f\t%d\t\n",
			name, r.BarsUsed, r.TotalCuts, r.WastePercent, r.TotalCost, r.Quality, r.ElapsedMs)
	}
	_ = tw.Flush()
}
