package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/piwi3910/BarCut/internal/config"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default config file",
	RunE:  runInitConfig,
}

var initConfigForce bool

func init() {
	initConfigCmd.Flags().BoolVarP(&initConfigForce, "force", "f", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initConfigCmd)
}

func runInitConfig(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(configPath); err == nil && !initConfigForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := config.Save(configPath, config.Default()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	return nil
}
