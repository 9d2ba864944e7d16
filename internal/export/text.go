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
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pgEdge/pgedge-promocast/internal/evaluate"
)

// WriteReport renders each report as a plain-text block. Numbers are
// formatted for lang; an undetermined tag falls back to English.
func WriteReport(w io.Writer, lang language.Tag, reports ...evaluate.Report) error {
	if lang == language.Und {
		lang = language.English
	}
	p := message.NewPrinter(lang)

	for i, rep := range reports {
		if i > 0 {
			if _, err := p.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := p.Fprintf(w, "Evaluation of %s\n", rep.Column); err != nil {
			return err
		}
		if err := writePopulation(w, p, "held-out window", rep.HeldOut); err != nil {
			return err
		}
		if err := writePopulation(w, p, "full test table", rep.All); err != nil {
			return err
		}
	}
	return nil
}

func writePopulation(w io.Writer, p *message.Printer, label string, m *evaluate.Metrics) error {
	if m == nil {
		_, err := p.Fprintf(w, "  %s: unavailable (no rows)\n", label)
		return err
	}
	nrmse := "undefined"
	if v, err := m.NRMSE(); err == nil {
		nrmse = p.Sprintf("%.4f", v)
	}
	_, err := p.Fprintf(w,
		"  %s (%d rows)\n"+
			"    MAE:   %.4f\n"+
			"    RMSE:  %.4f\n"+
			"    MAPE:  %.4f\n"+
			"    NRMSE: %s\n"+
			"    true quantity mean %.2f, std %.2f, min %.0f, max %.0f\n",
		label, m.Count, m.MAE, m.RMSE, m.MAPE, nrmse,
		m.Scale.Mean, m.Scale.Std, m.Scale.Min, m.Scale.Max)
	return err
}

// WriteValidation renders a backend's validation metrics on one line.
func WriteValidation(w io.Writer, lang language.Tag, backend string, m *evaluate.Metrics) error {
	if lang == language.Und {
		lang = language.English
	}
	p := message.NewPrinter(lang)
	if m == nil {
		_, err := p.Fprintf(w, "Validation (%s): unavailable\n", backend)
		return err
	}
	nrmse := "undefined"
	if v, err := m.NRMSE(); err == nil {
		nrmse = p.Sprintf("%.4f", v)
	}
	_, err := p.Fprintf(w, "Validation (%s, %d rows): MAE %.4f, RMSE %.4f, NRMSE %s\n",
		backend, m.Count, m.MAE, m.RMSE, nrmse)
	return err
}
