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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-promocast/internal/db"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

const postgresTable = "promocast_feature_cache"

const createPostgresTableSQL = `
CREATE TABLE IF NOT EXISTS promocast_feature_cache (
    cache_key          TEXT             NOT NULL,
    seq                INTEGER          NOT NULL,
    sale_date          DATE             NOT NULL,
    store              INTEGER          NOT NULL,
    item               INTEGER          NOT NULL,
    quantity           INTEGER          NOT NULL,
    promotion          BOOLEAN          NOT NULL,
    held_out           BOOLEAN          NOT NULL,
    item_cluster       SMALLINT         NOT NULL,
    store_cluster      SMALLINT         NOT NULL,
    day_of_week        SMALLINT         NOT NULL,
    is_weekend         SMALLINT         NOT NULL,
    last7_avg          DOUBLE PRECISION NOT NULL,
    last30_avg         DOUBLE PRECISION NOT NULL,
    last_sale_day_diff INTEGER          NOT NULL,
    promo_start_lag    INTEGER          NOT NULL,
    PRIMARY KEY (cache_key, seq)
)`

// PostgresStore keeps cached tables in a PostgreSQL database, with one
// metadata row per key.
type PostgresStore struct {
	pool  *pgxpool.Pool
	runID string
}

// OpenPostgres connects to dsn and creates the cache tables.
func OpenPostgres(ctx context.Context, dsn, runID string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres cache requires a connection string")
	}
	pool, err := db.Connect(ctx, dsn, 0)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, createPostgresTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}
	if err := db.EnsureMetadata(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool, runID: runID}, nil
}

// Load reads the cached table for key.
func (s *PostgresStore) Load(ctx context.Context, key string) ([]sales.Record, bool, error) {
	entry, ok, err := db.GetEntry(ctx, s.pool, key)
	if err != nil || !ok {
		return nil, false, err
	}

	rows, err := s.pool.Query(ctx, `
        SELECT cache_key, seq, to_char(sale_date, 'YYYY-MM-DD') AS sale_date,
               store, item, quantity, promotion, held_out,
               item_cluster::int AS item_cluster, store_cluster::int AS store_cluster,
               day_of_week::int AS day_of_week, is_weekend::int AS is_weekend,
               last7_avg, last30_avg, last_sale_day_diff, promo_start_lag
        FROM promocast_feature_cache
        WHERE cache_key = $1
        ORDER BY seq
    `, key)
	if err != nil {
		return nil, false, err
	}
	cached, err := pgx.CollectRows(rows, pgx.RowToStructByName[cachedRow])
	if err != nil {
		return nil, false, err
	}
	if len(cached) != entry.Rows {
		logging.Warn().
			Str("key", key).
			Int("expected", entry.Rows).
			Int("found", len(cached)).
			Msg("Cache entry is incomplete, ignoring")
		return nil, false, nil
	}

	records := make([]sales.Record, len(cached))
	for i, row := range cached {
		if records[i], err = row.record(); err != nil {
			return nil, false, err
		}
	}
	return records, true, nil
}

// Save replaces the cached table for key using COPY.
func (s *PostgresStore) Save(ctx context.Context, key string, records []sales.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM promocast_feature_cache WHERE cache_key = $1`, key); err != nil {
		return err
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{postgresTable},
		append([]string{"cache_key", "seq"}, columns...),
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			r := records[i]
			return []any{
				key, i, r.Date, r.Store, r.Item, r.Quantity, r.Promotion, r.HeldOut,
				int16(r.ItemCluster), int16(r.StoreCluster), int16(r.DayOfWeek), int16(r.IsWeekend),
				r.Last7Avg, r.Last30Avg, r.LastSaleDayDiff, r.PromoStartLag,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy cached rows: %w", err)
	}
	if err := db.SaveEntry(ctx, tx, key, int(n), s.runID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Purge deletes every cached table and its metadata.
func (s *PostgresStore) Purge(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", postgresTable)); err != nil {
		return err
	}
	return db.ClearMetadata(ctx, s.pool)
}

// Entries lists the cached keys.
func (s *PostgresStore) Entries(ctx context.Context) ([]db.Entry, error) {
	return db.ListEntries(ctx, s.pool)
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
