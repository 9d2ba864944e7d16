//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package sales

import (
	"errors"
	"slices"
	"time"
)

// Columns is a set of derived columns a table carries.
type Columns uint8

const (
	ColPromotion Columns = 1 << iota
	ColHeldOut
	ColClusters
	ColFeatures
	ColExpected
	ColPredicted
)

// ErrNotTagged is returned when a stage needs the promotion flag on a table
// that was never tagged.
var ErrNotTagged = errors.New("table has no promotion column; tag promotions first")

// Key identifies one (Store, Item) series.
type Key struct {
	Store int
	Item  int
}

// Table is an ordered set of sales records. Stages never modify a table they
// received; they return a new one built from Clone.
type Table struct {
	// Name identifies the dataset, e.g. "train" or "test". It is part of
	// the feature cache key.
	Name    string
	Records []Record
	cols    Columns
}

// NewTable wraps records in a table carrying no derived columns.
func NewTable(name string, records []Record) Table {
	return Table{Name: name, Records: records}
}

// Len returns the number of records.
func (t Table) Len() int {
	return len(t.Records)
}

// Has reports whether every column in c is present.
func (t Table) Has(c Columns) bool {
	return t.cols&c == c
}

// Columns returns the set of derived columns present.
func (t Table) Columns() Columns {
	return t.cols
}

// With returns t with the given columns marked present.
func (t Table) With(c Columns) Table {
	t.cols |= c
	return t
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	t.Records = slices.Clone(t.Records)
	return t
}

// RequirePromotion fails fast when the promotion flag is absent.
func (t Table) RequirePromotion() error {
	if !t.Has(ColPromotion) {
		return ErrNotTagged
	}
	return nil
}

// Filter returns a new table with the records for which keep is true.
func (t Table) Filter(keep func(r *Record) bool) Table {
	out := Table{Name: t.Name, cols: t.cols}
	for i := range t.Records {
		if keep(&t.Records[i]) {
			out.Records = append(out.Records, t.Records[i])
		}
	}
	return out
}

// SortByKey sorts the table in place by (Store, Item, Date). The sort is
// stable so records sharing a key keep their relative order.
func (t Table) SortByKey() {
	slices.SortStableFunc(t.Records, compareKey)
}

// IsSortedByKey reports whether the table is in (Store, Item, Date) order.
func (t Table) IsSortedByKey() bool {
	return slices.IsSortedFunc(t.Records, compareKey)
}

// Series returns the [start, end) index ranges of each (Store, Item) run.
// The table must be sorted by key.
func (t Table) Series() [][2]int {
	if len(t.Records) == 0 {
		return nil
	}
	var spans [][2]int
	start := 0
	for i := 1; i <= len(t.Records); i++ {
		if i == len(t.Records) ||
			t.Records[i].Store != t.Records[start].Store ||
			t.Records[i].Item != t.Records[start].Item {
			spans = append(spans, [2]int{start, i})
			start = i
		}
	}
	return spans
}

// DateRange returns the earliest and latest dates in the table.
func (t Table) DateRange() (time.Time, time.Time, bool) {
	if len(t.Records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	lo, hi := t.Records[0].Date, t.Records[0].Date
	for _, r := range t.Records[1:] {
		if r.Date.Before(lo) {
			lo = r.Date
		}
		if r.Date.After(hi) {
			hi = r.Date
		}
	}
	return lo, hi, true
}

// Quantities returns the true quantity of every record as float64.
func (t Table) Quantities() []float64 {
	out := make([]float64, len(t.Records))
	for i, r := range t.Records {
		out[i] = float64(r.Quantity)
	}
	return out
}

func compareKey(a, b Record) int {
	if a.Store != b.Store {
		return a.Store - b.Store
	}
	if a.Item != b.Item {
		return a.Item - b.Item
	}
	return a.Date.Compare(b.Date)
}
