//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package export writes forecast tables and accuracy metrics to files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// BaselineFile is the file name of the held-out baseline forecast.
const BaselineFile = "promotion_forecast_baseline.csv"

// ModelFile returns the file name of a backend's forecast.
func ModelFile(backend string) string {
	return fmt.Sprintf("promotion_forecast_%s.csv", backend)
}

// forecastHeader returns the columns written for t. Derived columns only
// appear when t carries them.
func forecastHeader(t sales.Table) []string {
	h := []string{"Date", "Store", "Item", "Quantity"}
	if t.Has(sales.ColPromotion) {
		h = append(h, "Promotion")
	}
	if t.Has(sales.ColClusters) {
		h = append(h, "ItemCluster", "StoreCluster")
	}
	if t.Has(sales.ColExpected) {
		h = append(h, "ExpectedQuantity")
	}
	if t.Has(sales.ColPredicted) {
		h = append(h, "PredictedQuantity")
	}
	return h
}

// forecastRow renders r with the same shape as forecastHeader. Cells are
// returned as values so the XLSX writer can keep numbers numeric.
func forecastRow(t sales.Table, r *sales.Record) []any {
	row := []any{r.Date.Format("2006-01-02"), r.Store, r.Item, r.Quantity}
	if t.Has(sales.ColPromotion) {
		row = append(row, r.Promotion)
	}
	if t.Has(sales.ColClusters) {
		row = append(row, r.ItemCluster.String(), r.StoreCluster.String())
	}
	if t.Has(sales.ColExpected) {
		row = append(row, r.ExpectedQuantity)
	}
	if t.Has(sales.ColPredicted) {
		row = append(row, r.PredictedQuantity)
	}
	return row
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// WriteForecastCSV writes t with its forecast columns.
func WriteForecastCSV(w io.Writer, t sales.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(forecastHeader(t)); err != nil {
		return err
	}
	for i := range t.Records {
		cells := forecastRow(t, &t.Records[i])
		out := make([]string, len(cells))
		for j, c := range cells {
			out[j] = cellString(c)
		}
		if err := cw.Write(out); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveForecastCSV writes t to dir/name, creating dir if needed, and
// returns the written path.
func SaveForecastCSV(dir, name string, t sales.Table) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteForecastCSV(f, t); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	logging.Info().
		Str("file", path).
		Int("rows", t.Len()).
		Msg("Saved forecast")
	return path, nil
}
