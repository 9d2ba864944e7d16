//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	// Check default values
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.Promotions.HeldOut != "Promo6" {
		t.Errorf("Expected Promotions.HeldOut 'Promo6', got '%s'", cfg.Promotions.HeldOut)
	}
	if !cfg.Pipeline.Features {
		t.Error("Expected Pipeline.Features true")
	}
	if cfg.Pipeline.Densify {
		t.Error("Expected Pipeline.Densify false")
	}
	if cfg.Pipeline.Workers != 4 {
		t.Errorf("Expected Pipeline.Workers 4, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Cache.Backend != "file" {
		t.Errorf("Expected Cache.Backend 'file', got '%s'", cfg.Cache.Backend)
	}
	if cfg.Model.Backend != "" {
		t.Errorf("Expected no Model.Backend, got '%s'", cfg.Model.Backend)
	}
	if cfg.Model.ValFraction != 0.1 {
		t.Errorf("Expected Model.ValFraction 0.1, got %f", cfg.Model.ValFraction)
	}
	if cfg.Output.Dir != "results" {
		t.Errorf("Expected Output.Dir 'results', got '%s'", cfg.Output.Dir)
	}

	// Generate defaults
	if cfg.Generate.Windows != 6 {
		t.Errorf("Expected Generate.Windows 6, got %d", cfg.Generate.Windows)
	}
	if cfg.Generate.Start != "2024-01-01" {
		t.Errorf("Expected Generate.Start '2024-01-01', got '%s'", cfg.Generate.Start)
	}
}

// forecastConfig returns a configuration that passes ValidateForecast.
func forecastConfig() *Config {
	cfg := DefaultConfig()
	cfg.Input.Train = "train.csv"
	cfg.Input.Test = "test.csv"
	cfg.Input.Calendar = "promotions.csv"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		wantError bool
	}{
		{"debug", "debug", false},
		{"error", "error", false},
		{"unknown", "verbose", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LogLevel = tt.logLevel
			err := cfg.Validate()
			if tt.wantError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestConfigValidateForecast(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantError string
	}{
		{
			name:   "valid forecast config",
			modify: func(c *Config) {},
		},
		{
			name:      "missing train file",
			modify:    func(c *Config) { c.Input.Train = "" },
			wantError: "input.train",
		},
		{
			name:      "unsupported charset",
			modify:    func(c *Config) { c.Input.Charset = "ebcdic" },
			wantError: "input.charset",
		},
		{
			name:   "shift_jis charset",
			modify: func(c *Config) { c.Input.Charset = "shift_jis" },
		},
		{
			name:      "missing held-out window",
			modify:    func(c *Config) { c.Promotions.HeldOut = "" },
			wantError: "promotions.heldout",
		},
		{
			name: "held-out is also training",
			modify: func(c *Config) {
				c.Promotions.Train = []string{"Promo1", "Promo6"}
			},
			wantError: "cannot also be a training window",
		},
		{
			name:      "negative workers",
			modify:    func(c *Config) { c.Pipeline.Workers = -1 },
			wantError: "pipeline.workers",
		},
		{
			name:      "unknown cache backend",
			modify:    func(c *Config) { c.Cache.Backend = "redis" },
			wantError: "cache.backend",
		},
		{
			name:      "validation fraction of one",
			modify:    func(c *Config) { c.Model.ValFraction = 1 },
			wantError: "model.valfraction",
		},
		{
			name:      "missing output dir",
			modify:    func(c *Config) { c.Output.Dir = "" },
			wantError: "output.dir",
		},
		{
			name:      "invalid language",
			modify:    func(c *Config) { c.Output.Language = "not a tag" },
			wantError: "output.language",
		},
		{
			name: "model without features",
			modify: func(c *Config) {
				c.Model.Backend = "ols"
				c.Pipeline.Features = false
			},
			wantError: "requires pipeline.features",
		},
		{
			name: "no features and no model",
			modify: func(c *Config) {
				c.Pipeline.Features = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := forecastConfig()
			tt.modify(cfg)
			err := cfg.ValidateForecast()
			if tt.wantError == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantError)
			}
			if !strings.Contains(err.Error(), tt.wantError) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantError, err)
			}
		})
	}
}

func TestConfigValidateCache(t *testing.T) {
	tests := []struct {
		name      string
		cache     CacheConfig
		wantError bool
	}{
		{"none", CacheConfig{Backend: "none"}, false},
		{"file with dir", CacheConfig{Backend: "file", Dir: "c"}, false},
		{"file without dir", CacheConfig{Backend: "file"}, true},
		{"sqlite with dir", CacheConfig{Backend: "sqlite", Dir: "c"}, false},
		{"sqlite with dsn", CacheConfig{Backend: "sqlite", DSN: "c.db"}, false},
		{"sqlite without location", CacheConfig{Backend: "sqlite"}, true},
		{"postgres with dsn", CacheConfig{Backend: "postgres", DSN: "postgres://localhost/db"}, false},
		{"postgres without dsn", CacheConfig{Backend: "postgres", Dir: "c"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Cache = tt.cache
			err := cfg.ValidateCache()
			if tt.wantError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestSQLitePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Dir = "cache"
	if got := cfg.SQLitePath(); got != filepath.Join("cache", "features.db") {
		t.Errorf("SQLitePath mismatch: %s", got)
	}
	cfg.Cache.DSN = "/tmp/other.db"
	if got := cfg.SQLitePath(); got != "/tmp/other.db" {
		t.Errorf("SQLitePath should prefer the DSN, got %s", got)
	}
}

func TestConfigValidateGenerate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*GenerateConfig)
		wantError bool
	}{
		{"defaults", func(g *GenerateConfig) {}, false},
		{"bad start date", func(g *GenerateConfig) { g.Start = "01/01/2024" }, true},
		{"one window", func(g *GenerateConfig) { g.Windows = 1 }, true},
		{"zero lift", func(g *GenerateConfig) { g.Lift = 0 }, true},
		{"test shorter than window", func(g *GenerateConfig) { g.TestDays = 3 }, true},
		{"train too short", func(g *GenerateConfig) { g.TrainDays = 20 }, true},
		{"missing dir", func(g *GenerateConfig) { g.Dir = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg.Generate)
			err := cfg.ValidateGenerate()
			if tt.wantError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pgedge-promocast.yaml")

	configContent := `
log_level: "debug"

input:
  train: "data/sales_train.csv"
  test: "data/sales_test.csv"
  calendar: "data/promotions.csv"
  charset: "shift_jis"
  date_layouts: ["2006/01/02"]

promotions:
  train: ["Promo1", "Promo2"]
  held_out: "Promo5"

pipeline:
  densify: true
  workers: 8

cache:
  backend: "sqlite"
  dsn: "/var/cache/promocast.db"

model:
  backend: "ols"
  val_fraction: 0.2
  seed: 7

output:
  dir: "out"
  xlsx: true
  prometheus_file: "/var/lib/node_exporter/promocast.prom"
  language: "de"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify loaded values
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel mismatch: %s", cfg.LogLevel)
	}
	if cfg.Input.Train != "data/sales_train.csv" {
		t.Errorf("Input.Train mismatch: %s", cfg.Input.Train)
	}
	if cfg.Input.Charset != "shift_jis" {
		t.Errorf("Input.Charset mismatch: %s", cfg.Input.Charset)
	}
	if len(cfg.Input.DateLayouts) != 1 || cfg.Input.DateLayouts[0] != "2006/01/02" {
		t.Errorf("Input.DateLayouts mismatch: %v", cfg.Input.DateLayouts)
	}
	if len(cfg.Promotions.Train) != 2 || cfg.Promotions.HeldOut != "Promo5" {
		t.Errorf("Promotions mismatch: %+v", cfg.Promotions)
	}
	if !cfg.Pipeline.Densify || cfg.Pipeline.Workers != 8 {
		t.Errorf("Pipeline mismatch: %+v", cfg.Pipeline)
	}
	// Unset keys keep their defaults.
	if !cfg.Pipeline.Features {
		t.Error("Pipeline.Features should keep its default")
	}
	if cfg.Cache.Backend != "sqlite" || cfg.Cache.DSN != "/var/cache/promocast.db" {
		t.Errorf("Cache mismatch: %+v", cfg.Cache)
	}
	if cfg.Model.Backend != "ols" || cfg.Model.ValFraction != 0.2 || cfg.Model.Seed != 7 {
		t.Errorf("Model mismatch: %+v", cfg.Model)
	}
	if cfg.Output.Dir != "out" || !cfg.Output.XLSX || cfg.Output.Language != "de" {
		t.Errorf("Output mismatch: %+v", cfg.Output)
	}
	if err := cfg.ValidateForecast(); err != nil {
		t.Errorf("Loaded config should validate, got: %v", err)
	}
}

func TestLoadConfigFileNotFound(t *testing.T) {
	// When a specific config file is provided but doesn't exist, Load returns an error
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load should error when specified config file doesn't exist")
	}
}

func TestLoadConfigDefaultPath(t *testing.T) {
	// When no config file is specified (empty string), Load returns defaults
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load should not error with empty path, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load should return default config")
	}
	// Should have default values
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidContent := `
input: [invalid yaml
  that: won't parse
`
	err := os.WriteFile(configPath, []byte(invalidContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err = Load(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}
