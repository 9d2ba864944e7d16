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
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pgEdge/pgedge-promocast/internal/evaluate"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
)

// MetricsRegistry builds a registry holding one gauge per computed
// metric, labelled by prediction column and population.
func MetricsRegistry(runID string, reports ...evaluate.Report) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	errVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "promocast_forecast_error",
		Help:        "Forecast accuracy by metric, prediction column and population.",
		ConstLabels: prometheus.Labels{"run_id": runID},
	}, []string{"column", "population", "metric"})
	rowsVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "promocast_evaluated_rows",
		Help:        "Rows scored per prediction column and population.",
		ConstLabels: prometheus.Labels{"run_id": runID},
	}, []string{"column", "population"})

	for _, c := range []prometheus.Collector{errVec, rowsVec} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	for _, rep := range reports {
		col := rep.Column.String()
		for pop, m := range map[string]*evaluate.Metrics{"held_out": rep.HeldOut, "all": rep.All} {
			if m == nil {
				continue
			}
			rowsVec.WithLabelValues(col, pop).Set(float64(m.Count))
			errVec.WithLabelValues(col, pop, "mae").Set(m.MAE)
			errVec.WithLabelValues(col, pop, "rmse").Set(m.RMSE)
			errVec.WithLabelValues(col, pop, "mape").Set(m.MAPE)
			if v, err := m.NRMSE(); err == nil {
				errVec.WithLabelValues(col, pop, "nrmse").Set(v)
			}
		}
	}
	return reg, nil
}

// SavePrometheus writes the report gauges in the node exporter textfile
// format to path.
func SavePrometheus(path, runID string, reports ...evaluate.Report) error {
	reg, err := MetricsRegistry(runID, reports...)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	logging.Info().Str("file", path).Msg("Saved metrics textfile")
	return nil
}
