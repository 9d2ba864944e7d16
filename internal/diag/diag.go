//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package diag collects structured warnings raised by pipeline stages so
// that callers can inspect fallbacks instead of scraping log output.
package diag

import (
	"fmt"

	"github.com/pgEdge/pgedge-promocast/internal/logging"
)

// Severity grades a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "info"
}

// Diagnostic codes raised by the pipeline.
const (
	CodeUnseenEntity      = "unseen_entity"
	CodeMissingLift       = "missing_lift"
	CodeMissingBaseline   = "missing_baseline"
	CodeNRMSEUndefined    = "nrmse_undefined"
	CodeEmptyPopulation   = "empty_population"
	CodeCacheHit          = "cache_hit"
	CodeMissingPrediction = "missing_prediction"
	CodeUnknownClusterFit = "unknown_cluster_rows_dropped"
)

// Diagnostic describes one degraded-but-recoverable condition.
type Diagnostic struct {
	Severity Severity
	Stage    string
	Code     string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s/%s: %s", d.Severity, d.Stage, d.Code, d.Message)
}

// List is an ordered collection of diagnostics.
type List []Diagnostic

// Warnf appends a warning.
func (l *List) Warnf(stage, code, format string, args ...any) {
	*l = append(*l, Diagnostic{
		Severity: Warning,
		Stage:    stage,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Infof appends an informational entry.
func (l *List) Infof(stage, code, format string, args ...any) {
	*l = append(*l, Diagnostic{
		Severity: Info,
		Stage:    stage,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Merge appends every entry of other.
func (l *List) Merge(other List) {
	*l = append(*l, other...)
}

// HasCode reports whether any entry carries the given code.
func (l List) HasCode(code string) bool {
	for _, d := range l {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Warnings returns only the warning entries.
func (l List) Warnings() List {
	var out List
	for _, d := range l {
		if d.Severity == Warning {
			out = append(out, d)
		}
	}
	return out
}

// Log emits every entry through the global logger.
func (l List) Log() {
	for _, d := range l {
		ev := logging.Info()
		if d.Severity == Warning {
			ev = logging.Warn()
		}
		ev.Str("stage", d.Stage).
			Str("code", d.Code).
			Msg(d.Message)
	}
}
