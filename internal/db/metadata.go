//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/pkg/version"
)

const metadataTable = "promocast_cache_metadata"

const createMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS promocast_cache_metadata (
    cache_key  TEXT PRIMARY KEY,
    row_count  INTEGER NOT NULL,
    version    TEXT NOT NULL,
    run_id     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
)`

// Entry describes one cached feature table.
type Entry struct {
	Key       string
	Rows      int
	Version   string
	RunID     string
	CreatedAt time.Time
}

// EnsureMetadata creates the metadata table if it doesn't exist.
func EnsureMetadata(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, createMetadataTableSQL); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}
	return nil
}

// SaveEntry records that key now holds rows cached records. It runs
// inside tx so the entry only becomes visible with the data.
func SaveEntry(ctx context.Context, tx pgx.Tx, key string, rows int, runID string) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO promocast_cache_metadata (cache_key, row_count, version, run_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (cache_key) DO UPDATE SET
            row_count = EXCLUDED.row_count,
            version = EXCLUDED.version,
            run_id = EXCLUDED.run_id,
            created_at = EXCLUDED.created_at
    `, key, rows, version.Short(), runID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save metadata for %s: %w", key, err)
	}

	logging.Debug().
		Str("key", key).
		Int("rows", rows).
		Msg("Saved cache metadata")
	return nil
}

// GetEntry returns the entry for key. The boolean is false when the key
// is not cached.
func GetEntry(ctx context.Context, pool *pgxpool.Pool, key string) (Entry, bool, error) {
	e := Entry{Key: key}
	err := pool.QueryRow(ctx, `
        SELECT row_count, version, run_id, created_at
        FROM promocast_cache_metadata WHERE cache_key = $1
    `, key).Scan(&e.Rows, &e.Version, &e.RunID, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// ListEntries returns every cache entry ordered by key.
func ListEntries(ctx context.Context, pool *pgxpool.Pool) ([]Entry, error) {
	rows, err := pool.Query(ctx, `
        SELECT cache_key, row_count, version, run_id, created_at
        FROM promocast_cache_metadata ORDER BY cache_key
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Rows, &e.Version, &e.RunID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearMetadata deletes every entry.
func ClearMetadata(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", metadataTable))
	return err
}

// MetadataExists checks if the metadata table exists.
func MetadataExists(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_name = $1
        )
    `, metadataTable).Scan(&exists)
	return exists, err
}
