//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package ingest reads sales tables and promotion calendars from CSV files
// and writes them back out.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/pgEdge/pgedge-promocast/internal/logging"
	"github.com/pgEdge/pgedge-promocast/internal/promo"
	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// DayFirstLayout reads slash dates as day/month/year. It is not in
// DefaultDateLayouts because "3/4/2024" is ambiguous; configure it through
// Options.DateLayouts for calendars written day-first.
const DayFirstLayout = "2/1/2006"

// DefaultDateLayouts are tried in order when no layouts are configured.
// Slash dates are read month-first.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"2006/01/02",
}

// Options controls how input files are decoded.
type Options struct {
	// Charset is the source encoding: utf-8, shift_jis, windows-1252 or
	// iso-8859-1. Empty means utf-8.
	Charset string

	// DateLayouts are the time layouts tried in order.
	DateLayouts []string
}

// LoadSales reads a sales table named name from path. The first four
// columns are Date, Store, Item and Quantity; the header row is skipped.
func LoadSales(path, name string, opts Options) (sales.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return sales.Table{}, fmt.Errorf("failed to open sales file: %w", err)
	}
	defer f.Close()

	r, err := newReader(f, opts.Charset)
	if err != nil {
		return sales.Table{}, err
	}
	t, err := ReadSales(r, name, opts)
	if err != nil {
		return sales.Table{}, fmt.Errorf("%s: %w", path, err)
	}

	logging.Info().
		Str("file", path).
		Str("table", name).
		Int("rows", t.Len()).
		Msg("Loaded sales")
	return t, nil
}

// ReadSales parses sales rows from an already decoded reader.
func ReadSales(r io.Reader, name string, opts Options) (sales.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err == io.EOF {
		return sales.Table{}, fmt.Errorf("sales file is empty")
	} else if err != nil {
		return sales.Table{}, fmt.Errorf("failed to read sales header: %w", err)
	}

	layouts := layoutsOf(opts)
	var records []sales.Record
	line := 1
	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sales.Table{}, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) < 4 {
			return sales.Table{}, fmt.Errorf("line %d: want 4 columns, got %d", line, len(row))
		}

		date, err := parseDate(row[0], layouts)
		if err != nil {
			return sales.Table{}, fmt.Errorf("line %d: %w", line, err)
		}
		store, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return sales.Table{}, fmt.Errorf("line %d: invalid store %q", line, row[1])
		}
		item, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return sales.Table{}, fmt.Errorf("line %d: invalid item %q", line, row[2])
		}
		qty, err := parseQuantity(row[3])
		if err != nil {
			return sales.Table{}, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, sales.NewRecord(date, store, item, qty))
	}
	return sales.NewTable(name, records), nil
}

// LoadCalendar reads the promotion calendar at path. StartDate and EndDate
// columns are required; an optional Period or PeriodName column names the
// windows.
func LoadCalendar(path string, opts Options) (promo.Calendar, error) {
	f, err := os.Open(path)
	if err != nil {
		return promo.Calendar{}, fmt.Errorf("failed to open calendar file: %w", err)
	}
	defer f.Close()

	r, err := newReader(f, opts.Charset)
	if err != nil {
		return promo.Calendar{}, err
	}
	cal, err := ReadCalendar(r, opts)
	if err != nil {
		return promo.Calendar{}, fmt.Errorf("%s: %w", path, err)
	}
	logging.Info().
		Str("file", path).
		Int("windows", cal.Len()).
		Msg("Loaded promotion calendar")
	return cal, nil
}

// ReadCalendar parses calendar rows from an already decoded reader.
func ReadCalendar(r io.Reader, opts Options) (promo.Calendar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return promo.Calendar{}, fmt.Errorf("calendar file is empty")
	}
	if err != nil {
		return promo.Calendar{}, fmt.Errorf("failed to read calendar header: %w", err)
	}
	cols, err := colIndex(header, "StartDate", "EndDate")
	if err != nil {
		return promo.Calendar{}, err
	}
	nameCol := -1
	for _, candidate := range []string{"PeriodName", "Period"} {
		if i, ok := cols[candidate]; ok {
			nameCol = i
			break
		}
	}

	layouts := layoutsOf(opts)
	var windows []promo.Window
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return promo.Calendar{}, fmt.Errorf("line %d: %w", line, err)
		}
		start, err := parseDate(row[cols["StartDate"]], layouts)
		if err != nil {
			return promo.Calendar{}, fmt.Errorf("line %d: %w", line, err)
		}
		end, err := parseDate(row[cols["EndDate"]], layouts)
		if err != nil {
			return promo.Calendar{}, fmt.Errorf("line %d: %w", line, err)
		}
		if end.Before(start) {
			return promo.Calendar{}, fmt.Errorf("line %d: end date before start date", line)
		}
		w := promo.Window{Start: start, End: end}
		if nameCol >= 0 {
			w.Name = strings.TrimSpace(row[nameCol])
		}
		windows = append(windows, w)
	}
	return promo.NewCalendar(windows), nil
}

// newReader strips a UTF-8 byte order mark and decodes the given charset.
func newReader(r io.Reader, charset string) (io.Reader, error) {
	enc, err := lookupCharset(charset)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}
	return skipBOM(r), nil
}

func lookupCharset(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "shift_jis", "sjis":
		return japanese.ShiftJIS, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1, nil
	}
	return nil, fmt.Errorf("unsupported charset: %s", name)
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if peeked, err := br.Peek(3); err == nil && bytes.Equal(peeked, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	return br
}

func colIndex(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, req := range required {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("required column not found: %s", req)
		}
	}
	return cols, nil
}

func layoutsOf(opts Options) []string {
	if len(opts.DateLayouts) > 0 {
		return opts.DateLayouts
	}
	return DefaultDateLayouts
}

func parseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return sales.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// maxQuantity bounds a single day's units for one store and item.
const maxQuantity = math.MaxInt32

func parseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	q, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("invalid quantity %q", s)
		}
		f = math.Round(f)
		if f < 0 || f > maxQuantity {
			return 0, fmt.Errorf("quantity %q out of range [0, %d]", s, maxQuantity)
		}
		q = int(f)
	}
	if q < 0 || q > maxQuantity {
		return 0, fmt.Errorf("quantity %q out of range [0, %d]", s, maxQuantity)
	}
	return q, nil
}
