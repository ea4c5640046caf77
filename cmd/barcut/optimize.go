package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/project"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize a cut list request",
	Long:  "Reads a request JSON file, computes a cutting plan and writes the response JSON file.",
	RunE:  runOptimize,
}

var (
	optimizeInput     string
	optimizeOutput    string
	optimizeAlgorithm string
	optimizeArchive   string
	optimizeStockFile string
)

func init() {
	optimizeCmd.Flags().StringVarP(&optimizeInput, "in", "i", "", "Path to request JSON file (required)")
	optimizeCmd.Flags().StringVarP(&optimizeOutput, "out", "o", "", "Path to output response JSON file (required)")
	optimizeCmd.Flags().StringVarP(&optimizeAlgorithm, "algorithm", "a", "", "Override the request algorithm")
	optimizeCmd.Flags().StringVar(&optimizeArchive, "archive", "", "Also write a run archive with request and response")
	optimizeCmd.Flags().StringVar(&optimizeStockFile, "offcuts-stock", "", "Add reclaimed offcuts to this stock list file")

	if err := optimizeCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	if err := optimizeCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	req, err := project.LoadRequest(optimizeInput)
	if err != nil {
		return err
	}
	if optimizeAlgorithm != "" {
		req.Algorithm = model.Algorithm(optimizeAlgorithm)
	}

	opt, logger, err := newOptimizer()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	resp, optErr := opt.Optimize(req)

	// The failure response is written too so callers can read the error code
	if err := project.SaveResponse(optimizeOutput, resp); err != nil {
		return err
	}
	if optErr != nil {
		return fmt.Errorf("optimization failed: %w", optErr)
	}

	if optimizeArchive != "" {
		if err := project.SaveRunArchive(optimizeArchive, project.NewRunArchive(req, resp)); err != nil {
			return err
		}
	}
	if optimizeStockFile != "" && len(resp.Offcuts) > 0 {
		added, err := project.ReturnOffcutsToStock(optimizeStockFile, resp.Offcuts)
		if err != nil {
			return fmt.Errorf("failed to return offcuts to stock: %w", err)
		}
		logger.Info("offcuts returned to stock", zap.Int("added", added), zap.String("path", optimizeStockFile))
	}

	printSummary(cmd.OutOrStdout(), resp)
	return nil
}

func printSummary(w io.Writer, resp model.Response) {
	_, _ = fmt.Fprintf(w, "Algorithm:   %s\n", resp.Algorithm)
	_, _ = fmt.Fprintf(w, "Bars used:   %d\n", len(resp.Cuts))
	_, _ = fmt.Fprintf(w, "Efficiency:  %.1f%%\n", resp.Efficiency*100)
	_, _ = fmt.Fprintf(w, "Waste:       %.1f%% (%.0fmm)\n", resp.WastePercentage, resp.TotalWaste)
	_, _ = fmt.Fprintf(w, "Total cost:  %.2f\n", resp.TotalCost)
	_, _ = fmt.Fprintf(w, "Offcuts:     %d\n", len(resp.Offcuts))
	if resp.FrontSize > 0 {
		_, _ = fmt.Fprintf(w, "Pareto front: %d solutions\n", resp.FrontSize)
	}
	for _, r := range resp.Recommendations {
		_, _ = fmt.Fprintf(w, "  [%s] %s\n", r.Priority, r.Message)
	}
}
