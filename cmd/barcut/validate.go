package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/project"
	"github.com/piwi3910/BarCut/internal/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a request without optimizing it",
	Long:  "Checks a request JSON file against the request schema and the optimizer's input rules.",
	RunE:  runValidate,
}

var validateInput string

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "in", "i", "", "Path to request JSON file (required)")

	if err := validateCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	req, err := project.LoadRequest(validateInput)
	if err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			for _, fe := range ve.Errors {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", fe.Field, fe.Message)
			}
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	opt, logger, err := newOptimizer()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := opt.Validate(req); err != nil {
		return fmt.Errorf("validation failed [%s]: %w", engine.CodeOf(err), err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Validation passed: %d items, %d stock lengths\n",
		len(req.Items), len(req.MaterialStockLengths))
	return nil
}
