//-------------------------------------------------------------------------
//
// pgEdge Promotion Forecaster
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package promo holds the promotion calendar and tags sales tables with
// promotion membership.
package promo

import (
	"fmt"
	"slices"
	"time"

	"github.com/pgEdge/pgedge-promocast/internal/sales"
)

// Window is a named promotion period. Both ends are inclusive.
type Window struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls within the window.
func (w Window) Contains(d time.Time) bool {
	d = sales.Day(d)
	return !d.Before(sales.Day(w.Start)) && !d.After(sales.Day(w.End))
}

// Days returns the length of the window in days.
func (w Window) Days() int {
	return sales.DaysBetween(w.Start, w.End) + 1
}

// Calendar is an ordered list of promotion windows.
type Calendar struct {
	windows []Window
}

// NewCalendar builds a calendar preserving the given order. Windows without
// a name are named PromoN after their 1-based position.
func NewCalendar(windows []Window) Calendar {
	ws := slices.Clone(windows)
	for i := range ws {
		if ws[i].Name == "" {
			ws[i].Name = fmt.Sprintf("Promo%d", i+1)
		}
	}
	return Calendar{windows: ws}
}

// Windows returns the windows in calendar order.
func (c Calendar) Windows() []Window {
	return slices.Clone(c.windows)
}

// Len returns the number of windows.
func (c Calendar) Len() int {
	return len(c.windows)
}

// Lookup returns the window with the given name.
func (c Calendar) Lookup(name string) (Window, bool) {
	for _, w := range c.windows {
		if w.Name == name {
			return w, true
		}
	}
	return Window{}, false
}

// Active returns the first window containing d.
func (c Calendar) Active(d time.Time) (Window, bool) {
	for _, w := range c.windows {
		if w.Contains(d) {
			return w, true
		}
	}
	return Window{}, false
}

// Split divides the calendar into the windows used to tag the training table
// and the windows used to tag the test table, and returns the held-out
// window. When trainNames is empty every window before the held-out one is a
// training window. Test windows are all windows that are not training
// windows, in calendar order.
func (c Calendar) Split(trainNames []string, heldOut string) (train, test []Window, held Window, err error) {
	held, ok := c.Lookup(heldOut)
	if !ok {
		return nil, nil, Window{}, fmt.Errorf("held-out window %q not in calendar", heldOut)
	}

	isTrain := make(map[string]bool)
	if len(trainNames) == 0 {
		for _, w := range c.windows {
			if w.Name == heldOut {
				break
			}
			isTrain[w.Name] = true
		}
	} else {
		for _, name := range trainNames {
			if name == heldOut {
				return nil, nil, Window{}, fmt.Errorf("held-out window %q cannot also be a training window", name)
			}
			if _, ok := c.Lookup(name); !ok {
				return nil, nil, Window{}, fmt.Errorf("training window %q not in calendar", name)
			}
			isTrain[name] = true
		}
	}

	for _, w := range c.windows {
		if isTrain[w.Name] {
			train = append(train, w)
		} else {
			test = append(test, w)
		}
	}
	return train, test, held, nil
}
