// Package config loads optimizer defaults from a YAML file and BARCUT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/piwi3910/BarCut/internal/model"
)

// Config holds the engine defaults and CLI preferences.
type Config struct {
	Algorithm         string  `yaml:"algorithm"`
	Mode              string  `yaml:"mode"`
	KerfWidth         float64 `yaml:"kerf_width"`
	MaxProcessingTime int     `yaml:"max_processing_time_ms"`
	CuttingTolerance  float64 `yaml:"cutting_tolerance"`
	SetupSeconds      float64 `yaml:"setup_seconds"`
	CutSeconds        float64 `yaml:"cut_seconds"`
	Evaluator         string  `yaml:"evaluator"` // auto, cpu or batched
	EvaluatorWorkers  int     `yaml:"evaluator_workers"`
	LogLevel          string  `yaml:"log_level"`

	Genetic         model.GeneticSettings `yaml:"genetic"`
	Pattern         model.PatternSettings `yaml:"pattern"`
	Pareto          model.ParetoSettings  `yaml:"pareto"`
	WasteThresholds model.WasteThresholds `yaml:"waste_thresholds"`
}

// DefaultConfigDir returns ~/.barcut, or ./.barcut when there is no home.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".barcut")
}

// DefaultConfigPath returns the config file used when none is given.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config matching model.DefaultSettings.
func Default() Config {
	s := model.DefaultSettings()
	return Config{
		Algorithm:         string(s.Algorithm),
		Mode:              string(s.Mode),
		KerfWidth:         s.KerfWidth,
		MaxProcessingTime: s.MaxProcessingTime,
		CuttingTolerance:  s.CuttingTolerance,
		SetupSeconds:      s.SetupSeconds,
		CutSeconds:        s.CutSeconds,
		Evaluator:         s.Evaluator,
		EvaluatorWorkers:  s.EvaluatorWorkers,
		LogLevel:          "info",
		Genetic:           s.Genetic,
		Pattern:           s.Pattern,
		Pareto:            s.Pareto,
		WasteThresholds:   s.WasteThresholds,
	}
}

// Load reads the config at path over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func applyEnv(cfg *Config) error {
	var errs []error
	envOverride(&cfg.Algorithm, "BARCUT_ALGORITHM")
	envOverride(&cfg.Mode, "BARCUT_MODE")
	envOverride(&cfg.Evaluator, "BARCUT_EVALUATOR")
	envOverride(&cfg.LogLevel, "BARCUT_LOG_LEVEL")
	envOverride(&cfg.Genetic.DecodeRule, "BARCUT_DECODE_RULE")
	errs = append(errs,
		envOverrideFloat(&cfg.KerfWidth, "BARCUT_KERF_WIDTH"),
		envOverrideInt(&cfg.MaxProcessingTime, "BARCUT_MAX_PROCESSING_TIME_MS"),
		envOverrideInt(&cfg.EvaluatorWorkers, "BARCUT_EVALUATOR_WORKERS"),
		envOverrideInt(&cfg.Genetic.PopulationSize, "BARCUT_POPULATION_SIZE"),
		envOverrideInt(&cfg.Genetic.Generations, "BARCUT_GENERATIONS"),
		envOverrideInt64(&cfg.Genetic.Seed, "BARCUT_SEED"),
		envOverrideInt(&cfg.Pattern.MaxPieces, "BARCUT_PATTERN_MAX_PIECES"),
		envOverrideInt(&cfg.Pareto.MaxRuns, "BARCUT_PARETO_MAX_RUNS"),
	)
	return errors.Join(errs...)
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideInt64(field *int64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	known := false
	for _, a := range model.Algorithms {
		if string(a) == c.Algorithm {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown algorithm '%s'", c.Algorithm)
	}
	switch model.AlgorithmMode(c.Mode) {
	case model.ModeStandard, model.ModeAdvanced:
	default:
		return fmt.Errorf("mode must be 'standard' or 'advanced', got '%s'", c.Mode)
	}
	switch c.Evaluator {
	case "auto", "cpu", "batched":
	default:
		return fmt.Errorf("evaluator must be 'auto', 'cpu' or 'batched', got '%s'", c.Evaluator)
	}
	switch strings.ToLower(c.Genetic.DecodeRule) {
	case "ffd", "bfd":
	default:
		return fmt.Errorf("genetic.decode_rule must be 'ffd' or 'bfd', got '%s'", c.Genetic.DecodeRule)
	}
	if c.KerfWidth < 0 {
		return fmt.Errorf("invalid kerf_width '%g': must be >= 0", c.KerfWidth)
	}
	if c.MaxProcessingTime <= 0 {
		return fmt.Errorf("invalid max_processing_time_ms '%d': must be > 0", c.MaxProcessingTime)
	}
	if c.Genetic.PopulationSize < 2 {
		return fmt.Errorf("invalid genetic.population_size '%d': must be >= 2", c.Genetic.PopulationSize)
	}
	if c.Genetic.Generations < 1 {
		return fmt.Errorf("invalid genetic.generations '%d': must be >= 1", c.Genetic.Generations)
	}
	if c.Pareto.MaxRuns < 1 {
		return fmt.Errorf("invalid pareto.max_runs '%d': must be >= 1", c.Pareto.MaxRuns)
	}
	return nil
}

// ApplyToSettings copies the configured defaults into engine settings.
func (c Config) ApplyToSettings(s *model.EngineSettings) {
	s.Algorithm = model.Algorithm(c.Algorithm)
	s.Mode = model.AlgorithmMode(c.Mode)
	s.KerfWidth = c.KerfWidth
	s.MaxProcessingTime = c.MaxProcessingTime
	s.CuttingTolerance = c.CuttingTolerance
	s.SetupSeconds = c.SetupSeconds
	s.CutSeconds = c.CutSeconds
	s.Evaluator = c.Evaluator
	s.EvaluatorWorkers = c.EvaluatorWorkers
	s.Genetic = c.Genetic
	s.Genetic.DecodeRule = strings.ToLower(c.Genetic.DecodeRule)
	s.Pattern = c.Pattern
	s.Pareto = c.Pareto
	s.WasteThresholds = c.WasteThresholds
}

// Settings returns engine settings built from the defaults and c.
func (c Config) Settings() model.EngineSettings {
	s := model.DefaultSettings()
	c.ApplyToSettings(&s)
	return s
}
