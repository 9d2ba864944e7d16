//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package features

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// Store persists engineered tables keyed by dataset identity.
type Store interface {
	// Load returns the cached records for key. ok is false on a miss.
	Load(ctx context.Context, key string) (records []sales.Record, ok bool, err error)

	// Save stores the records of an engineered table under key.
	Save(ctx context.Context, key string, records []sales.Record) error
}

// CacheKey identifies t by its name and a digest of every base column the
// features depend on, so any upstream change produces a different key.
func CacheKey(t sales.Table) string {
	h := sha256.New()
	h.Write([]byte(t.Name))
	var buf [8]byte
	put := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	for i := range t.Records {
		r := &t.Records[i]
		put(r.Date.Unix())
		put(int64(r.Store))
		put(int64(r.Item))
		put(int64(r.Quantity))
		put(boolBit(r.Promotion) | boolBit(r.HeldOut)<<1)
		put(int64(r.ItemCluster)<<8 | int64(r.StoreCluster))
	}
	put(int64(t.Columns()))
	return fmt.Sprintf("%s-%s", t.Name, hex.EncodeToString(h.Sum(nil))[:16])
}

// EngineerCached loads the engineered table for t from store, or derives and
// saves it on a miss. Loaded tables are re-sorted before being returned. A nil
// store always recomputes.
func EngineerCached(ctx context.Context, t sales.Table, store Store, opts Options) (sales.Table, bool, error) {
	if err := t.RequirePromotion(); err != nil {
		return sales.Table{}, false, err
	}
	if store == nil {
		out, err := Engineer(ctx, t, opts)
		return out, false, err
	}

	key := CacheKey(t)
	records, ok, err := store.Load(ctx, key)
	if err != nil {
		return sales.Table{}, false, fmt.Errorf("failed to load feature cache %s: %w", key, err)
	}
	if ok {
		out := sales.NewTable(t.Name, records).With(t.Columns() | sales.ColFeatures)
		out.SortByKey()
		logging.Info().
			Str("table", t.Name).
			Str("key", key).
			Int("rows", out.Len()).
			Msg("Loaded engineered features from cache")
		return out, true, nil
	}

	out, err := Engineer(ctx, t, opts)
	if err != nil {
		return sales.Table{}, false, err
	}
	if err := store.Save(ctx, key, out.Records); err != nil {
		return sales.Table{}, false, fmt.Errorf("failed to save feature cache %s: %w", key, err)
	}
	logging.Debug().
		Str("table", t.Name).
		Str("key", key).
		Msg("Saved engineered features to cache")
	return out, false, nil
}

func boolBit(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
