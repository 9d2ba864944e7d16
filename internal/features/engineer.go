//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package features derives per-(Store, Item) temporal features: day of week,
// trailing averages, gaps between sales and days since promotion start.
package features

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// Trailing window lengths, in records.
const (
	ShortWindow = 7
	LongWindow  = 30
)

// Options controls feature derivation.
type Options struct {
	// Workers is the number of series processed concurrently. Values
	// below 2 run sequentially.
	Workers int
}

// Engineer returns a copy of t sorted by (Store, Item, Date) with every
// feature column recomputed from the base columns. Recomputing an already
// engineered table yields the same values.
func Engineer(ctx context.Context, t sales.Table, opts Options) (sales.Table, error) {
	if err := t.RequirePromotion(); err != nil {
		return sales.Table{}, err
	}

	out := t.Clone()
	out.SortByKey()
	spans := out.Series()

	start := time.Now()
	if opts.Workers < 2 {
		for _, s := range spans {
			deriveSeries(out.Records[s[0]:s[1]])
		}
	} else {
		// Series are disjoint sub-slices, so workers never share a record.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for _, s := range spans {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				deriveSeries(out.Records[s[0]:s[1]])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return sales.Table{}, err
		}
	}

	logging.Info().
		Str("table", t.Name).
		Int("rows", out.Len()).
		Int("series", len(spans)).
		Dur("elapsed", time.Since(start)).
		Msg("Engineered features")

	return out.With(sales.ColFeatures), nil
}

// deriveSeries fills the feature columns of one date-ordered series.
func deriveSeries(series []sales.Record) {
	var (
		sum7, sum30   float64
		lastStart     time.Time
		haveStart     bool
		prevPromotion bool
	)

	for i := range series {
		r := &series[i]
		q := float64(r.Quantity)

		r.DayOfWeek = sales.Weekday(r.Date)
		r.IsWeekend = 0
		if r.DayOfWeek >= 5 {
			r.IsWeekend = 1
		}

		sum7 += q
		if i >= ShortWindow {
			sum7 -= float64(series[i-ShortWindow].Quantity)
		}
		sum30 += q
		if i >= LongWindow {
			sum30 -= float64(series[i-LongWindow].Quantity)
		}
		r.Last7Avg = sum7 / float64(min(i+1, ShortWindow))
		r.Last30Avg = sum30 / float64(min(i+1, LongWindow))

		r.LastSaleDayDiff = 0
		if i > 0 {
			r.LastSaleDayDiff = sales.DaysBetween(series[i-1].Date, r.Date)
		}

		if r.Promotion && !prevPromotion {
			lastStart = r.Date
			haveStart = true
		}
		prevPromotion = r.Promotion

		r.PromoStartLag = 0
		if haveStart {
			r.PromoStartLag = sales.DaysBetween(lastStart, r.Date)
		}
	}
}
