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
	"time"
)

// Densify returns a table holding one record per observed (Store, Item) pair
// and every date between the table's first and last date. Quantities of
// duplicate keys are summed and missing days are zero-filled. Derived
// columns are dropped since the grid is a new base table.
func Densify(t Table) Table {
	lo, hi, ok := t.DateRange()
	if !ok {
		return Table{Name: t.Name}
	}

	totals := make(map[Key]map[time.Time]int)
	var pairs []Key
	for _, r := range t.Records {
		k := Key{Store: r.Store, Item: r.Item}
		days, seen := totals[k]
		if !seen {
			days = make(map[time.Time]int)
			totals[k] = days
			pairs = append(pairs, k)
		}
		days[r.Date] += r.Quantity
	}

	span := DaysBetween(lo, hi) + 1
	out := Table{Name: t.Name, Records: make([]Record, 0, len(pairs)*span)}
	for _, k := range pairs {
		days := totals[k]
		for d := lo; !d.After(hi); d = d.AddDate(0, 0, 1) {
			out.Records = append(out.Records, NewRecord(d, k.Store, k.Item, days[d]))
		}
	}
	out.SortByKey()
	return out
}
