//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package sales defines the sales record and table types shared by every
// stage of the forecasting pipeline.
package sales

import (
	"fmt"
	"math"
	"time"
)

// Cluster is an ordinal velocity bucket assigned to a store or an item.
// The zero value is Unknown, which is what an unseen entity resolves to.
type Cluster int

const (
	Unknown Cluster = iota
	Slow
	Medium
	Fast
)

// Clusters lists the assignable buckets in ascending velocity order.
var Clusters = []Cluster{Slow, Medium, Fast}

// String returns the cluster label.
func (c Cluster) String() string {
	switch c {
	case Slow:
		return "Slow"
	case Medium:
		return "Medium"
	case Fast:
		return "Fast"
	default:
		return "Unknown"
	}
}

// ParseCluster converts a label back into a Cluster. Empty input and
// "Unknown" both map to Unknown.
func ParseCluster(s string) (Cluster, error) {
	switch s {
	case "Slow":
		return Slow, nil
	case "Medium":
		return Medium, nil
	case "Fast":
		return Fast, nil
	case "", "Unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unknown cluster label: %q", s)
}

// Features holds the temporal features derived per (Store, Item) series.
type Features struct {
	DayOfWeek       int     `json:"day_of_week"`
	IsWeekend       int     `json:"is_weekend"`
	Last7Avg        float64 `json:"last7_avg"`
	Last30Avg       float64 `json:"last30_avg"`
	LastSaleDayDiff int     `json:"last_sale_day_diff"`
	PromoStartLag   int     `json:"promo_start_lag"`
}

// Record is one day of sales for a (Store, Item) pair together with every
// column the pipeline attaches to it.
type Record struct {
	Date     time.Time `json:"date"`
	Store    int       `json:"store"`
	Item     int       `json:"item"`
	Quantity int       `json:"quantity"`

	// Promotion is true when Date falls inside one of the windows the
	// table was tagged against.
	Promotion bool `json:"promotion"`

	// HeldOut is true when Date falls inside the held-out evaluation window.
	HeldOut bool `json:"held_out"`

	ItemCluster  Cluster `json:"item_cluster"`
	StoreCluster Cluster `json:"store_cluster"`

	Features

	// ExpectedQuantity is the cluster-baseline forecast. NaN until forecast.
	ExpectedQuantity float64 `json:"expected_quantity"`

	// PredictedQuantity is filled by a regression backend. NaN until predicted.
	PredictedQuantity float64 `json:"predicted_quantity"`
}

// NewRecord returns a record with the forecast columns marked as absent.
func NewRecord(date time.Time, store, item, quantity int) Record {
	return Record{
		Date:              Day(date),
		Store:             store,
		Item:              item,
		Quantity:          quantity,
		ExpectedQuantity:  math.NaN(),
		PredictedQuantity: math.NaN(),
	}
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}

// Weekday returns the day index with Monday as 0 and Sunday as 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
