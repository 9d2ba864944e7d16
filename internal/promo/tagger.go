//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package promo

import (
	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// Tag returns a copy of t whose Promotion flag is true for records dated
// inside any of windows. An empty window list yields all-false flags.
func Tag(t sales.Table, windows []Window) sales.Table {
	out := t.Clone()
	tagged := 0
	for i := range out.Records {
		out.Records[i].Promotion = false
		for _, w := range windows {
			if w.Contains(out.Records[i].Date) {
				out.Records[i].Promotion = true
				tagged++
				break
			}
		}
	}

	logging.Debug().
		Str("table", t.Name).
		Int("windows", len(windows)).
		Int("rows", out.Len()).
		Int("promotion_rows", tagged).
		Msg("Tagged promotions")

	return out.With(sales.ColPromotion)
}

// MarkHeldOut returns a copy of t with the HeldOut flag set for records
// inside w, plus the subset of those records as a separate table.
func MarkHeldOut(t sales.Table, w Window) (marked, subset sales.Table) {
	marked = t.Clone()
	for i := range marked.Records {
		marked.Records[i].HeldOut = w.Contains(marked.Records[i].Date)
	}
	marked = marked.With(sales.ColHeldOut)
	return marked, HeldOutSubset(marked)
}

// HeldOutSubset materializes the held-out records of a marked table.
func HeldOutSubset(t sales.Table) sales.Table {
	subset := t.Filter(func(r *sales.Record) bool { return r.HeldOut })
	subset.Name = t.Name + "_heldout"
	return subset
}

// TagResult carries the tables produced by TagDatasets.
type TagResult struct {
	Train   sales.Table
	Test    sales.Table
	HeldOut sales.Table
}

// TagDatasets tags the training table against the training windows and the
// test table against the test windows, then isolates the held-out window
// within the test table.
func TagDatasets(train, test sales.Table, cal Calendar, trainNames []string, heldOut string) (TagResult, error) {
	trainWindows, testWindows, held, err := cal.Split(trainNames, heldOut)
	if err != nil {
		return TagResult{}, err
	}

	logging.Info().
		Int("train_windows", len(trainWindows)).
		Int("test_windows", len(testWindows)).
		Str("held_out", held.Name).
		Time("held_out_start", held.Start).
		Time("held_out_end", held.End).
		Msg("Tagging promotions")

	res := TagResult{Train: Tag(train, trainWindows)}
	res.Test, res.HeldOut = MarkHeldOut(Tag(test, testWindows), held)
	return res, nil
}
