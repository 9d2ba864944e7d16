//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-promocast/internal/cache"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
)

var (
	cacheBackend string
	cacheDir     string
	cacheDSN     string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the engineered feature cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every cached feature table",
	Long: `Remove every engineered feature table from the configured cache
backend. The next forecast recomputes features from scratch.

Example:
  pgedge-promocast cache purge --cache sqlite --cache-dsn features.db`,
	RunE: runCachePurge,
}

func init() {
	f := cacheCmd.PersistentFlags()
	f.StringVar(&cacheBackend, "cache", "", "cache backend: file, sqlite, postgres")
	f.StringVar(&cacheDir, "cache-dir", "", "cache directory")
	f.StringVar(&cacheDSN, "cache-dsn", "", "SQLite path or PostgreSQL connection string")

	cacheCmd.AddCommand(cachePurgeCmd)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	if cacheBackend != "" {
		cfg.Cache.Backend = cacheBackend
	}
	if cacheDir != "" {
		cfg.Cache.Dir = cacheDir
	}
	if cacheDSN != "" {
		cfg.Cache.DSN = cacheDSN
	}
	if err := cfg.ValidateCache(); err != nil {
		return err
	}

	cc := cache.Config{Backend: cfg.Cache.Backend, Dir: cfg.Cache.Dir, DSN: cfg.Cache.DSN}
	if cc.Backend == cache.SQLite {
		cc.DSN = cfg.SQLitePath()
	}

	ctx := context.Background()
	backend, err := cache.Open(ctx, cc)
	if err != nil {
		return err
	}
	if backend == nil {
		cmd.Println("Cache backend is none; nothing to purge.")
		return nil
	}
	defer backend.Close()

	if err := backend.Purge(ctx); err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	logging.Info().Str("backend", cc.Backend).Msg("Purged feature cache")
	cmd.Printf("Purged %s cache.\n", cc.Backend)
	return nil
}
