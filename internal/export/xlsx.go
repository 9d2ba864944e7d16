//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// Sheet names used in workbook exports.
const (
	ForecastSheet = "Forecast"
	MetricsSheet  = "Metrics"
)

// SaveForecastXLSX writes t and the flat metrics map into a workbook at
// dir/name and returns the written path.
func SaveForecastXLSX(dir, name string, t sales.Table, metrics map[string]float64) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ForecastSheet); err != nil {
		return "", err
	}
	if err := writeRow(f, ForecastSheet, 1, toAny(forecastHeader(t))); err != nil {
		return "", err
	}
	for i := range t.Records {
		row := forecastRow(t, &t.Records[i])
		for j, v := range row {
			if x, ok := v.(float64); ok && math.IsNaN(x) {
				row[j] = nil
			}
		}
		if err := writeRow(f, ForecastSheet, i+2, row); err != nil {
			return "", err
		}
	}

	if _, err := f.NewSheet(MetricsSheet); err != nil {
		return "", err
	}
	if err := writeRow(f, MetricsSheet, 1, []any{"Metric", "Value"}); err != nil {
		return "", err
	}
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for i, k := range keys {
		if err := writeRow(f, MetricsSheet, i+2, []any{k, metrics[k]}); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	logging.Info().
		Str("file", path).
		Int("rows", t.Len()).
		Msg("Saved forecast workbook")
	return path, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
