package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piwi3910/BarCut/internal/importer"
	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/project"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Build a request from a CSV or Excel cut list",
	Long:  "Reads a cut list (work order, profile, length, quantity) from a CSV or Excel file and writes a request JSON file.",
	RunE:  runImport,
}

var (
	importInput     string
	importOutput    string
	importStock     []float64
	importProfile   string
	importKerf      float64
	importAlgorithm string
)

func init() {
	importCmd.Flags().StringVarP(&importInput, "in", "i", "", "Path to CSV or Excel cut list (required)")
	importCmd.Flags().StringVarP(&importOutput, "out", "o", "", "Path to output request JSON file (required)")
	importCmd.Flags().Float64SliceVar(&importStock, "stock", []float64{6000}, "Available stock lengths in mm")
	importCmd.Flags().StringVar(&importProfile, "profile", "", "Restrict the stock lengths to one profile")
	importCmd.Flags().Float64Var(&importKerf, "kerf", -1, "Kerf width in mm (default from config)")
	importCmd.Flags().StringVarP(&importAlgorithm, "algorithm", "a", "", "Algorithm to store in the request")

	if err := importCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	if err := importCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	result := importer.ImportFile(importInput)
	for _, w := range result.Warnings {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
	}
	for _, e := range result.Errors {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", e)
	}
	if len(result.Pieces) == 0 {
		return fmt.Errorf("no pieces imported from %s", importInput)
	}

	kerf := importKerf
	if kerf < 0 {
		kerf = cfg.KerfWidth
	}
	req := buildRequest(result.Pieces, importStock, importProfile, kerf)
	if importAlgorithm != "" {
		req.Algorithm = model.Algorithm(importAlgorithm)
	}

	if err := project.SaveRequest(importOutput, req); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items (%d rows skipped) into %s\n",
		len(result.Pieces), len(result.Errors), importOutput)
	return nil
}

// buildRequest wraps imported pieces in a request that minimizes waste over
// unlimited bars of the given lengths.
func buildRequest(pieces []model.Piece, stockLengths []float64, profile string, kerf float64) model.Request {
	stocks := make([]model.StockDefinition, 0, len(stockLengths))
	for _, l := range stockLengths {
		stocks = append(stocks, model.NewStockDefinition(profile, l, 0))
	}
	return model.Request{
		Items: pieces,
		Objectives: []model.Objective{
			{Type: model.ObjectiveMinimizeWaste, Weight: 1, Priority: 1},
		},
		Constraints:          model.Constraints{KerfWidth: kerf},
		MaterialStockLengths: stocks,
	}
}
