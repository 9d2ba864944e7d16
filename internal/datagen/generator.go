//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package datagen generates seeded synthetic sales datasets with a
// promotion calendar, for demos and tests.
package datagen

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-promocast/internal/ingest"
	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/promo"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// Output file names written by WriteFiles.
const (
	TrainFile    = "sales_train.csv"
	TestFile     = "sales_test.csv"
	CalendarFile = "promotions.csv"
	CatalogFile  = "items.csv"
)

// Config controls the shape of a generated dataset.
type Config struct {
	Seed      uint64
	Stores    int
	Items     int
	Start     time.Time
	TrainDays int
	TestDays  int

	// Windows is the number of promotion windows. All but the last fall in
	// the training period; the last falls in the test period.
	Windows    int
	WindowDays int

	// Lift multiplies the daily rate inside a promotion window.
	Lift float64

	// SparseProb is the chance a store-item-day produces no record even
	// when units would have sold.
	SparseProb float64
}

// DefaultConfig returns a small dataset with six promotion windows.
func DefaultConfig() Config {
	return Config{
		Seed:       42,
		Stores:     10,
		Items:      50,
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		TrainDays:  300,
		TestDays:   60,
		Windows:    6,
		WindowDays: 7,
		Lift:       1.6,
		SparseProb: 0.1,
	}
}

// Validate checks that the configuration can produce a dataset.
func (c Config) Validate() error {
	if c.Stores < 1 || c.Items < 1 {
		return errors.New("stores and items must be at least 1")
	}
	if c.Windows < 2 {
		return errors.New("at least two promotion windows are required")
	}
	if c.WindowDays < 1 {
		return errors.New("window days must be at least 1")
	}
	if c.TestDays < c.WindowDays {
		return fmt.Errorf("test period (%d days) is shorter than a promotion window", c.TestDays)
	}
	if c.TrainDays < (c.Windows-1)*c.WindowDays {
		return fmt.Errorf("training period (%d days) cannot hold %d windows", c.TrainDays, c.Windows-1)
	}
	if c.Lift <= 0 {
		return errors.New("lift must be positive")
	}
	if c.SparseProb < 0 || c.SparseProb >= 1 {
		return errors.New("sparse probability must be in [0, 1)")
	}
	return nil
}

// Product is one catalog entry.
type Product struct {
	Item     int
	Name     string
	Category string
	Velocity sales.Cluster
}

// Dataset is a generated train/test pair with its calendar.
type Dataset struct {
	Train    sales.Table
	Test     sales.Table
	Calendar promo.Calendar
	Catalog  []Product
}

// HeldOut returns the name of the window that falls in the test period.
func (d Dataset) HeldOut() string {
	w := d.Calendar.Windows()
	return w[len(w)-1].Name
}

// velocityRates are the base daily means per velocity class.
var velocityRates = map[sales.Cluster][2]float64{
	sales.Slow:   {0.3, 1.5},
	sales.Medium: {2, 6},
	sales.Fast:   {8, 20},
}

// Generate builds a dataset from cfg. The same config always yields the
// same dataset.
func Generate(cfg Config) (Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return Dataset{}, err
	}
	f := NewFakerWithSeed(cfg.Seed)
	start := sales.Day(cfg.Start)

	cal := promo.NewCalendar(windows(cfg, start))

	catalog := make([]Product, cfg.Items)
	rates := make([]float64, cfg.Items)
	for i := range catalog {
		v := ChooseWeighted(f, sales.Clusters, []int{5, 3, 2})
		bounds := velocityRates[v]
		catalog[i] = Product{
			Item:     i + 1,
			Name:     f.ProductName(),
			Category: f.ProductCategory(),
			Velocity: v,
		}
		rates[i] = f.Float64(bounds[0], bounds[1])
	}
	storeScale := make([]float64, cfg.Stores)
	for s := range storeScale {
		storeScale[s] = Choose(f, []float64{0.5, 1, 1, 2})
	}

	gen := func(name string, from time.Time, days int) sales.Table {
		progress := NewProgressReporter(name, int64(days*cfg.Stores*cfg.Items), 50000)
		var records []sales.Record
		for d := 0; d < days; d++ {
			date := from.AddDate(0, 0, d)
			_, inPromo := cal.Active(date)
			boost := 1.0
			if sales.Weekday(date) >= 5 {
				boost = 1.25
			}
			if inPromo {
				boost *= cfg.Lift
			}
			for s := 0; s < cfg.Stores; s++ {
				for i := 0; i < cfg.Items; i++ {
					qty := f.Poisson(rates[i] * storeScale[s] * boost)
					if qty == 0 || f.Chance(cfg.SparseProb) {
						continue
					}
					records = append(records, sales.NewRecord(date, s+1, i+1, qty))
				}
			}
			progress.Update(int64(cfg.Stores * cfg.Items))
		}
		progress.Done(len(records))
		return sales.NewTable(name, records)
	}

	ds := Dataset{
		Train:    gen("train", start, cfg.TrainDays),
		Test:     gen("test", start.AddDate(0, 0, cfg.TrainDays), cfg.TestDays),
		Calendar: cal,
		Catalog:  catalog,
	}
	return ds, nil
}

// windows spaces Windows-1 windows evenly over the training period and
// centres the last one in the test period.
func windows(cfg Config, start time.Time) []promo.Window {
	out := make([]promo.Window, 0, cfg.Windows)
	n := cfg.Windows - 1
	gap := cfg.TrainDays / n
	for i := 0; i < n; i++ {
		offset := i*gap + (gap-cfg.WindowDays)/2
		ws := start.AddDate(0, 0, offset)
		out = append(out, promo.Window{Start: ws, End: ws.AddDate(0, 0, cfg.WindowDays-1)})
	}
	ws := start.AddDate(0, 0, cfg.TrainDays+(cfg.TestDays-cfg.WindowDays)/2)
	out = append(out, promo.Window{Start: ws, End: ws.AddDate(0, 0, cfg.WindowDays-1)})
	return out
}

// Paths lists the files written for a dataset.
type Paths struct {
	Train    string
	Test     string
	Calendar string
	Catalog  string
}

// WriteFiles writes ds as CSV files under dir.
func WriteFiles(dir string, ds Dataset) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	p := Paths{
		Train:    filepath.Join(dir, TrainFile),
		Test:     filepath.Join(dir, TestFile),
		Calendar: filepath.Join(dir, CalendarFile),
		Catalog:  filepath.Join(dir, CatalogFile),
	}

	writers := []struct {
		path  string
		write func(f *os.File) error
	}{
		{p.Train, func(f *os.File) error { return ingest.WriteSales(f, ds.Train) }},
		{p.Test, func(f *os.File) error { return ingest.WriteSales(f, ds.Test) }},
		{p.Calendar, func(f *os.File) error { return ingest.WriteCalendar(f, ds.Calendar) }},
		{p.Catalog, func(f *os.File) error { return writeCatalog(f, ds.Catalog) }},
	}
	for _, w := range writers {
		f, err := os.Create(w.path)
		if err != nil {
			return Paths{}, err
		}
		if err := w.write(f); err != nil {
			f.Close()
			return Paths{}, fmt.Errorf("failed to write %s: %w", w.path, err)
		}
		if err := f.Close(); err != nil {
			return Paths{}, err
		}
	}

	logging.Info().
		Str("dir", dir).
		Int("train_rows", ds.Train.Len()).
		Int("test_rows", ds.Test.Len()).
		Int("windows", ds.Calendar.Len()).
		Msg("Wrote synthetic dataset")
	return p, nil
}

func writeCatalog(f *os.File, catalog []Product) error {
	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"Item", "Name", "Category", "Velocity"}); err != nil {
		return err
	}
	for _, p := range catalog {
		if err := cw.Write([]string{strconv.Itoa(p.Item), p.Name, p.Category, p.Velocity.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ProgressReporter tracks and reports generation progress.
type ProgressReporter struct {
	tableName        string
	total            int64
	current          int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(tableName string, total int64, interval int64) *ProgressReporter {
	return &ProgressReporter{
		tableName:        tableName,
		total:            total,
		progressInterval: interval,
	}
}

// Update advances the reporter by n draws and logs when an interval is
// crossed.
func (p *ProgressReporter) Update(n int64) {
	old := p.current
	p.current += n

	if p.progressInterval > 0 && p.current/p.progressInterval > old/p.progressInterval {
		pct := float64(p.current) / float64(p.total) * 100
		logging.Debug().
			Str("table", p.tableName).
			Int64("draws", p.current).
			Int64("total", p.total).
			Float64("percent", pct).
			Msg("Generating sales")
	}
}

// Done logs completion.
func (p *ProgressReporter) Done(rows int) {
	logging.Info().
		Str("table", p.tableName).
		Int("rows", rows).
		Msg("Table complete")
}
