//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-promocast.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for pgedge-promocast.
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	// Input locates the sales and calendar files.
	Input InputConfig `mapstructure:"input"`

	// Promotions selects the training and held-out windows.
	Promotions PromotionsConfig `mapstructure:"promotions"`

	// Pipeline toggles optional stages.
	Pipeline PipelineConfig `mapstructure:"pipeline"`

	// Cache configures the feature store.
	Cache CacheConfig `mapstructure:"cache"`

	// Model selects an optional regression backend.
	Model ModelConfig `mapstructure:"model"`

	// Output controls where results are written.
	Output OutputConfig `mapstructure:"output"`

	// Generate holds configuration for the generate subcommand.
	Generate GenerateConfig `mapstructure:"generate"`
}

// InputConfig holds input file locations and decoding options.
type InputConfig struct {
	// Train and Test are the sales CSV files.
	Train string `mapstructure:"train" validate:"required"`
	Test  string `mapstructure:"test" validate:"required"`

	// Calendar is the promotion calendar CSV.
	Calendar string `mapstructure:"calendar" validate:"required"`

	// Charset is the source encoding (utf-8, shift_jis, windows-1252, iso-8859-1).
	Charset string `mapstructure:"charset" validate:"omitempty,oneof=utf-8 utf8 shift_jis sjis windows-1252 cp1252 iso-8859-1 latin1"`

	// DateLayouts are Go time layouts tried in order.
	DateLayouts []string `mapstructure:"date_layouts"`
}

// PromotionsConfig selects calendar windows by name.
type PromotionsConfig struct {
	// Train lists the windows used to tag the training table. Empty means
	// every window before the held-out one.
	Train []string `mapstructure:"train"`

	// HeldOut is the window evaluated as unseen.
	HeldOut string `mapstructure:"held_out" validate:"required"`
}

// PipelineConfig toggles optional pipeline stages.
type PipelineConfig struct {
	// Densify zero-fills missing store-item-days of the training table
	// before tagging.
	Densify bool `mapstructure:"densify"`

	// Features enables temporal feature engineering.
	Features bool `mapstructure:"features"`

	// Workers bounds per-series parallelism. 0 or 1 runs sequentially.
	Workers int `mapstructure:"workers" validate:"gte=0,lte=256"`
}

// CacheConfig configures the feature store.
type CacheConfig struct {
	// Backend is none, file, sqlite or postgres.
	Backend string `mapstructure:"backend" validate:"oneof=none file sqlite postgres"`

	// Dir is the file cache directory and default SQLite location.
	Dir string `mapstructure:"dir"`

	// DSN is the SQLite path or PostgreSQL connection string.
	DSN string `mapstructure:"dsn"`
}

// ModelConfig selects a regression backend.
type ModelConfig struct {
	// Backend is a registered backend id. Empty disables the model stage.
	Backend string `mapstructure:"backend"`

	// ValFraction is the share of training rows held for validation.
	ValFraction float64 `mapstructure:"val_fraction" validate:"gte=0,lt=1"`

	// Seed makes the validation split reproducible.
	Seed uint64 `mapstructure:"seed"`
}

// OutputConfig controls result artifacts.
type OutputConfig struct {
	// Dir receives forecast files.
	Dir string `mapstructure:"dir" validate:"required"`

	// XLSX also writes a workbook next to each CSV.
	XLSX bool `mapstructure:"xlsx"`

	// PrometheusFile, when set, receives the metrics in textfile format.
	PrometheusFile string `mapstructure:"prometheus_file"`

	// Language is a BCP 47 tag for number formatting in the text report.
	Language string `mapstructure:"language" validate:"omitempty,bcp47_language_tag"`
}

// GenerateConfig holds configuration for synthetic data generation.
type GenerateConfig struct {
	Dir        string  `mapstructure:"dir" validate:"required"`
	Seed       uint64  `mapstructure:"seed"`
	Stores     int     `mapstructure:"stores" validate:"min=1"`
	Items      int     `mapstructure:"items" validate:"min=1"`
	Start      string  `mapstructure:"start" validate:"datetime=2006-01-02"`
	TrainDays  int     `mapstructure:"train_days" validate:"min=1"`
	TestDays   int     `mapstructure:"test_days" validate:"min=1"`
	Windows    int     `mapstructure:"windows" validate:"min=2"`
	WindowDays int     `mapstructure:"window_days" validate:"min=1"`
	Lift       float64 `mapstructure:"lift" validate:"gt=0"`
	SparseProb float64 `mapstructure:"sparse_prob" validate:"gte=0,lt=1"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Promotions: PromotionsConfig{
			HeldOut: "Promo6",
		},
		Pipeline: PipelineConfig{
			Features: true,
			Workers:  4,
		},
		Cache: CacheConfig{
			Backend: "file",
			Dir:     ".promocast-cache",
		},
		Model: ModelConfig{
			ValFraction: 0.1,
			Seed:        42,
		},
		Output: OutputConfig{
			Dir:      "results",
			Language: "en",
		},
		Generate: GenerateConfig{
			Dir:        "data",
			Seed:       42,
			Stores:     10,
			Items:      50,
			Start:      "2024-01-01",
			TrainDays:  300,
			TestDays:   60,
			Windows:    6,
			WindowDays: 7,
			Lift:       1.6,
			SparseProb: 0.1,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-promocast.yaml
// 3. ~/.config/pgedge-promocast/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-promocast")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-promocast"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// structErr converts validator output into a single readable error.
func structErr(section string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s.%s failed %q", section, strings.ToLower(fe.Field()), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	if err := validate.Var(c.LogLevel, "oneof=debug info warn error"); err != nil {
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	return nil
}

// ValidateForecast checks configuration required for the forecast command.
func (c *Config) ValidateForecast() error {
	if err := c.Validate(); err != nil {
		return err
	}
	sections := []struct {
		name string
		v    any
	}{
		{"input", c.Input},
		{"promotions", c.Promotions},
		{"pipeline", c.Pipeline},
		{"cache", c.Cache},
		{"model", c.Model},
		{"output", c.Output},
	}
	for _, s := range sections {
		if err := validate.Struct(s.v); err != nil {
			return structErr(s.name, err)
		}
	}

	if slices.Contains(c.Promotions.Train, c.Promotions.HeldOut) {
		return fmt.Errorf("held-out window %q cannot also be a training window", c.Promotions.HeldOut)
	}
	if err := c.ValidateCache(); err != nil {
		return err
	}
	if c.Model.Backend != "" && !c.Pipeline.Features {
		return fmt.Errorf("model backend %q requires pipeline.features", c.Model.Backend)
	}
	return nil
}

// ValidateCache checks that the selected cache backend is locatable.
func (c *Config) ValidateCache() error {
	if err := validate.Struct(c.Cache); err != nil {
		return structErr("cache", err)
	}
	switch c.Cache.Backend {
	case "file":
		if c.Cache.Dir == "" {
			return fmt.Errorf("cache.dir is required for the file backend")
		}
	case "sqlite":
		if c.Cache.DSN == "" && c.Cache.Dir == "" {
			return fmt.Errorf("cache.dsn or cache.dir is required for the sqlite backend")
		}
	case "postgres":
		if c.Cache.DSN == "" {
			return fmt.Errorf("cache.dsn is required for the postgres backend")
		}
	}
	return nil
}

// SQLitePath returns the SQLite database path, defaulting to a file in
// the cache directory.
func (c *Config) SQLitePath() string {
	if c.Cache.DSN != "" {
		return c.Cache.DSN
	}
	return filepath.Join(c.Cache.Dir, "features.db")
}

// ValidateGenerate checks configuration required for the generate command.
func (c *Config) ValidateGenerate() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(c.Generate); err != nil {
		return structErr("generate", err)
	}
	g := c.Generate
	if g.TestDays < g.WindowDays {
		return fmt.Errorf("generate.test_days must be >= generate.window_days")
	}
	if g.TrainDays < (g.Windows-1)*g.WindowDays {
		return fmt.Errorf("generate.train_days cannot hold %d windows of %d days", g.Windows-1, g.WindowDays)
	}
	return nil
}
