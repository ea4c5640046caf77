// Package main provides the barcut command line tool for planning linear cuts.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/piwi3910/BarCut/internal/config"
	"github.com/piwi3910/BarCut/internal/engine"
)

var rootCmd = &cobra.Command{
	Use:          "barcut",
	Short:        "Linear cutting stock optimizer",
	Long:         "BarCut plans how to cut profile bars into the pieces of a cut list while minimizing waste and cost.",
	SilenceUsage: true,
}

var (
	configPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
}

// loadConfig reads the config file and applies the --log-level flag.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zc := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// newOptimizer builds an optimizer from the config file and flags. The
// caller must sync the returned logger.
func newOptimizer() (*engine.Optimizer, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("config loaded", zap.String("path", configPath), zap.String("algorithm", cfg.Algorithm))
	return engine.New(cfg.Settings(), engine.WithLogger(logger)), logger, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
