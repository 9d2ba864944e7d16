//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS feature_cache (
    cache_key          TEXT    NOT NULL,
    seq                INTEGER NOT NULL,
    sale_date          TEXT    NOT NULL,
    store              INTEGER NOT NULL,
    item               INTEGER NOT NULL,
    quantity           INTEGER NOT NULL,
    promotion          INTEGER NOT NULL,
    held_out           INTEGER NOT NULL,
    item_cluster       INTEGER NOT NULL,
    store_cluster      INTEGER NOT NULL,
    day_of_week        INTEGER NOT NULL,
    is_weekend         INTEGER NOT NULL,
    last7_avg          REAL    NOT NULL,
    last30_avg         REAL    NOT NULL,
    last_sale_day_diff INTEGER NOT NULL,
    promo_start_lag    INTEGER NOT NULL,
    PRIMARY KEY (cache_key, seq)
);
CREATE TABLE IF NOT EXISTS feature_cache_entries (
    cache_key  TEXT PRIMARY KEY,
    row_count  INTEGER NOT NULL,
    created_at TEXT NOT NULL
);`

// cachedRow is the SQL row layout shared by the SQLite and PostgreSQL stores.
type cachedRow struct {
	CacheKey        string  `db:"cache_key"`
	Seq             int     `db:"seq"`
	SaleDate        string  `db:"sale_date"`
	Store           int     `db:"store"`
	Item            int     `db:"item"`
	Quantity        int     `db:"quantity"`
	Promotion       bool    `db:"promotion"`
	HeldOut         bool    `db:"held_out"`
	ItemCluster     int     `db:"item_cluster"`
	StoreCluster    int     `db:"store_cluster"`
	DayOfWeek       int     `db:"day_of_week"`
	IsWeekend       int     `db:"is_weekend"`
	Last7Avg        float64 `db:"last7_avg"`
	Last30Avg       float64 `db:"last30_avg"`
	LastSaleDayDiff int     `db:"last_sale_day_diff"`
	PromoStartLag   int     `db:"promo_start_lag"`
}

func toRow(key string, seq int, r sales.Record) cachedRow {
	return cachedRow{
		CacheKey:        key,
		Seq:             seq,
		SaleDate:        r.Date.Format(dateLayout),
		Store:           r.Store,
		Item:            r.Item,
		Quantity:        r.Quantity,
		Promotion:       r.Promotion,
		HeldOut:         r.HeldOut,
		ItemCluster:     int(r.ItemCluster),
		StoreCluster:    int(r.StoreCluster),
		DayOfWeek:       r.DayOfWeek,
		IsWeekend:       r.IsWeekend,
		Last7Avg:        r.Last7Avg,
		Last30Avg:       r.Last30Avg,
		LastSaleDayDiff: r.LastSaleDayDiff,
		PromoStartLag:   r.PromoStartLag,
	}
}

func (c cachedRow) record() (sales.Record, error) {
	date, err := time.Parse(dateLayout, c.SaleDate)
	if err != nil {
		return sales.Record{}, fmt.Errorf("invalid cached date %q: %w", c.SaleDate, err)
	}
	r := sales.NewRecord(date, c.Store, c.Item, c.Quantity)
	r.Promotion = c.Promotion
	r.HeldOut = c.HeldOut
	r.ItemCluster = sales.Cluster(c.ItemCluster)
	r.StoreCluster = sales.Cluster(c.StoreCluster)
	r.DayOfWeek = c.DayOfWeek
	r.IsWeekend = c.IsWeekend
	r.Last7Avg = c.Last7Avg
	r.Last30Avg = c.Last30Avg
	r.LastSaleDayDiff = c.LastSaleDayDiff
	r.PromoStartLag = c.PromoStartLag
	return r, nil
}

// SQLiteStore keeps cached tables in a SQLite database file.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite cache requires a database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply cache schema: %w", err)
	}
	logging.Debug().Str("path", path).Msg("Opened sqlite feature cache")
	return &SQLiteStore{db: db}, nil
}

// Load reads the cached table for key in insertion order.
func (s *SQLiteStore) Load(ctx context.Context, key string) ([]sales.Record, bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM feature_cache_entries WHERE cache_key = ?`, key)
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}

	var rows []cachedRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM feature_cache WHERE cache_key = ? ORDER BY seq`, key); err != nil {
		return nil, false, err
	}
	records := make([]sales.Record, len(rows))
	for i, row := range rows {
		if records[i], err = row.record(); err != nil {
			return nil, false, err
		}
	}
	return records, true, nil
}

// Save replaces the cached table for key in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, key string, records []sales.Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM feature_cache WHERE cache_key = ?`, key); err != nil {
		return err
	}
	stmt, err := tx.PrepareNamedContext(ctx, `
        INSERT INTO feature_cache (
            cache_key, seq, sale_date, store, item, quantity, promotion, held_out,
            item_cluster, store_cluster, day_of_week, is_weekend, last7_avg,
            last30_avg, last_sale_day_diff, promo_start_lag
        ) VALUES (
            :cache_key, :seq, :sale_date, :store, :item, :quantity, :promotion, :held_out,
            :item_cluster, :store_cluster, :day_of_week, :is_weekend, :last7_avg,
            :last30_avg, :last_sale_day_diff, :promo_start_lag
        )`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range records {
		if _, err := stmt.ExecContext(ctx, toRow(key, i, records[i])); err != nil {
			return fmt.Errorf("failed to insert cached row %d: %w", i, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO feature_cache_entries (cache_key, row_count, created_at) VALUES (?, ?, ?)
        ON CONFLICT (cache_key) DO UPDATE SET row_count = excluded.row_count, created_at = excluded.created_at`,
		key, len(records), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}

// Purge deletes every cached table.
func (s *SQLiteStore) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM feature_cache`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM feature_cache_entries`)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
