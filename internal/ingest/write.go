//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package ingest

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pgEdge/pgedge-promocast/internal/promo"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// WriteSales writes the base columns of t in the layout ReadSales expects.
func WriteSales(w io.Writer, t sales.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Store", "Item", "Quantity"}); err != nil {
		return err
	}
	for _, r := range t.Records {
		if err := cw.Write([]string{
			r.Date.Format("2006-01-02"),
			strconv.Itoa(r.Store),
			strconv.Itoa(r.Item),
			strconv.Itoa(r.Quantity),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCalendar writes cal in the layout ReadCalendar expects.
func WriteCalendar(w io.Writer, cal promo.Calendar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Period", "StartDate", "EndDate"}); err != nil {
		return err
	}
	for _, win := range cal.Windows() {
		if err := cw.Write([]string{
			win.Name,
			win.Start.Format("2006-01-02"),
			win.End.Format("2006-01-02"),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
