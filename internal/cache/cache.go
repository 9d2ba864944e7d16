//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cache provides stable storage backends for engineered feature
// tables: a CSV directory, a SQLite file and a PostgreSQL database.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-promocast/internal/features"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// Backend names.
const (
	None     = "none"
	File     = "file"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Backend is a feature store that can also be emptied and closed.
type Backend interface {
	features.Store

	// Purge removes every cached table.
	Purge(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Config selects and locates a backend.
type Config struct {
	Backend string

	// Dir is the directory for the file backend and the default location
	// of the SQLite database.
	Dir string

	// DSN is the SQLite file path or the PostgreSQL connection string.
	DSN string

	// RunID is recorded with entries written by the PostgreSQL backend.
	RunID string
}

// Open returns the configured backend. The none backend yields a nil
// Backend and no error, which disables caching.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case None, "":
		return nil, nil
	case File:
		return NewFileStore(cfg.Dir)
	case SQLite:
		return OpenSQLite(ctx, cfg.DSN)
	case Postgres:
		return OpenPostgres(ctx, cfg.DSN, cfg.RunID)
	}
	return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
}

// columns is the persisted layout of a cached record.
var columns = []string{
	"sale_date", "store", "item", "quantity", "promotion", "held_out",
	"item_cluster", "store_cluster", "day_of_week", "is_weekend",
	"last7_avg", "last30_avg", "last_sale_day_diff", "promo_start_lag",
}

const dateLayout = "2006-01-02"

func encodeRecord(r sales.Record) []string {
	return []string{
		r.Date.Format(dateLayout),
		strconv.Itoa(r.Store),
		strconv.Itoa(r.Item),
		strconv.Itoa(r.Quantity),
		strconv.FormatBool(r.Promotion),
		strconv.FormatBool(r.HeldOut),
		r.ItemCluster.String(),
		r.StoreCluster.String(),
		strconv.Itoa(r.DayOfWeek),
		strconv.Itoa(r.IsWeekend),
		strconv.FormatFloat(r.Last7Avg, 'g', -1, 64),
		strconv.FormatFloat(r.Last30Avg, 'g', -1, 64),
		strconv.Itoa(r.LastSaleDayDiff),
		strconv.Itoa(r.PromoStartLag),
	}
}

func decodeRecord(fields []string) (sales.Record, error) {
	if len(fields) != len(columns) {
		return sales.Record{}, fmt.Errorf("want %d fields, got %d", len(columns), len(fields))
	}
	p := fieldParser{fields: fields}
	date := p.date(0)
	r := sales.NewRecord(date, p.int(1), p.int(2), p.int(3))
	r.Promotion = p.bool(4)
	r.HeldOut = p.bool(5)
	r.ItemCluster = p.cluster(6)
	r.StoreCluster = p.cluster(7)
	r.DayOfWeek = p.int(8)
	r.IsWeekend = p.int(9)
	r.Last7Avg = p.float(10)
	r.Last30Avg = p.float(11)
	r.LastSaleDayDiff = p.int(12)
	r.PromoStartLag = p.int(13)
	if p.err != nil {
		return sales.Record{}, p.err
	}
	return r, nil
}

// fieldParser converts string fields and keeps the first error.
type fieldParser struct {
	fields []string
	err    error
}

func (p *fieldParser) fail(i int, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("column %s: %w", columns[i], err)
	}
}

func (p *fieldParser) int(i int) int {
	v, err := strconv.Atoi(p.fields[i])
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) float(i int) float64 {
	v, err := strconv.ParseFloat(p.fields[i], 64)
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) bool(i int) bool {
	v, err := strconv.ParseBool(p.fields[i])
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) date(i int) time.Time {
	v, err := time.Parse(dateLayout, p.fields[i])
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) cluster(i int) sales.Cluster {
	v, err := sales.ParseCluster(p.fields[i])
	if err != nil {
		p.fail(i, err)
	}
	return v
}
