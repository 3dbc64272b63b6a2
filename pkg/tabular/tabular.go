// Package tabular implements the pivot/aggregation engine that turns
// long-format visibility observations into wide tables.
//
// Input rows are one observation each: an entity's score on one date
// under one model label. [Pivot] regroups them by (date, model) into one
// [PivotRow] per pair with one cell per entity, and derives per-entity
// summary statistics over the populated cells. A cell an entity did not
// report is absent, never zero: absence and zero mean different things
// and the statistics depend on the distinction.
//
// Column and row ordering are fixed, derived properties of the input (see
// [Pivot]); renderers iterate them as-is and never re-sort.
package tabular

import (
	"errors"
	"math"
	"slices"
	"strings"
)

// ErrNoData is returned by [Pivot] when the input batch is empty. Pivot
// never produces a Result with zero rows, so callers branch on "nothing
// to show" through this error alone.
var ErrNoData = errors.New("tabular: no data")

// Row is one long-format observation fed to [Pivot].
type Row struct {
	// Date is a zero-padded ISO date (YYYY-MM-DD).
	Date string

	// Model is the model label the observation was computed against,
	// including the synthetic "GLOBAL" cross-model aggregate.
	Model string

	// Entity is the brand or competitor name; becomes a column.
	Entity string

	// Value is the visibility score.
	Value float64
}

// PivotRow is one wide-format output row: a (date, model) pair with one
// cell per entity that reported on that pair. Entities without an
// observation have no map entry.
type PivotRow struct {
	Date  string             `json:"date"`
	Model string             `json:"model"`
	Cells map[string]float64 `json:"cells"`
}

// EntityStats summarises one entity column across all pivot rows where
// the column is populated. Absent cells do not contribute.
type EntityStats struct {
	Entity      string  `json:"entity"`
	Average     float64 `json:"average"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	SampleCount int     `json:"sampleCount"`
}

// Result is a pivoted wide table plus its per-entity statistics.
type Result struct {
	// Columns is the fixed entity column order: the lead column first
	// when configured and present, then the remaining entities in
	// ascending lexicographic order.
	Columns []string `json:"columns"`

	// Rows are sorted ascending by the concatenation of date and model.
	// For zero-padded ISO dates this is a date-then-model sort; the
	// package assumes such dates and does not validate them.
	Rows []PivotRow `json:"rows"`

	// Stats holds one entry per column with at least one populated cell,
	// keyed by entity name.
	Stats map[string]EntityStats `json:"stats"`
}

// Option configures [Pivot].
type Option func(*pivotConfig)

type pivotConfig struct {
	lead string
}

// WithLeadColumn pins one entity's column first in the column order,
// typically the tracked brand. A lead entity that never appears in the
// input contributes no column.
func WithLeadColumn(entity string) Option {
	return func(c *pivotConfig) {
		c.lead = entity
	}
}

// Pivot regroups long-format rows into a wide table.
//
// Scores are rounded to 2 decimals as they enter the table. When the same
// (date, model, entity) triple appears more than once the last value wins.
// The output ordering is stable: identical input in any row order yields
// an identical Result.
func Pivot(rows []Row, opts ...Option) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	var cfg pivotConfig
	for _, o := range opts {
		o(&cfg)
	}

	type key struct {
		date  string
		model string
	}

	cells := make(map[key]map[string]float64)
	entities := make(map[string]struct{})

	for _, r := range rows {
		k := key{date: r.Date, model: r.Model}
		m, ok := cells[k]
		if !ok {
			m = make(map[string]float64)
			cells[k] = m
		}
		m[r.Entity] = Round2(r.Value)
		entities[r.Entity] = struct{}{}
	}

	// Column order: lead first when present, remainder ascending.
	columns := make([]string, 0, len(entities))
	for e := range entities {
		if e == cfg.lead {
			continue
		}
		columns = append(columns, e)
	}
	slices.Sort(columns)
	if cfg.lead != "" {
		if _, ok := entities[cfg.lead]; ok {
			columns = append([]string{cfg.lead}, columns...)
		}
	}

	// Row order: ascending by date+model concatenation.
	keys := make([]key, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b key) int {
		return strings.Compare(a.date+a.model, b.date+b.model)
	})

	out := make([]PivotRow, 0, len(keys))
	for _, k := range keys {
		out = append(out, PivotRow{Date: k.date, Model: k.model, Cells: cells[k]})
	}

	stats := make(map[string]EntityStats, len(columns))
	for _, col := range columns {
		var sum, minV, maxV float64
		n := 0
		for _, pr := range out {
			v, ok := pr.Cells[col]
			if !ok {
				continue
			}
			if n == 0 {
				minV, maxV = v, v
			} else {
				minV = math.Min(minV, v)
				maxV = math.Max(maxV, v)
			}
			sum += v
			n++
		}
		if n == 0 {
			continue
		}
		stats[col] = EntityStats{
			Entity:      col,
			Average:     Round2(sum / float64(n)),
			Min:         minV,
			Max:         maxV,
			SampleCount: n,
		}
	}

	return &Result{Columns: columns, Rows: out, Stats: stats}, nil
}

// Round2 rounds v to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
