// Package visibility turns raw Mint time series into the long-format
// dataset the analysis tools expose: one row per entity observed on one
// date under one model label, with period-over-period deltas.
//
// The tracked brand ("Primary") always contributes a row per time point,
// even at score 0. Competitors with a non-positive score are dropped
// entirely: zero scores carry no signal and would drown the dataset in
// noise.
package visibility

import (
	"maps"
	"slices"

	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
	"github.com/getmint-ai/visibility-mcp/pkg/tabular"
)

const (
	// PrimaryName is the display name used for the tracked brand's rows.
	PrimaryName = "Your Brand"

	// GlobalModel is the synthetic label of the cross-model aggregate
	// series, listed ahead of the real model labels everywhere.
	GlobalModel = "GLOBAL"
)

// Kind distinguishes the tracked brand from its competitors.
type Kind string

const (
	KindPrimary    Kind = "Primary"
	KindCompetitor Kind = "Competitor"
)

// Row is one normalized observation. JSON keys match the dataset column
// names in [Columns]; the variation fields are null on the first point of
// a series, where no prior period exists.
type Row struct {
	Date         string   `json:"Date"`
	EntityName   string   `json:"EntityName"`
	EntityType   Kind     `json:"EntityType"`
	Score        float64  `json:"Score"`
	Model        string   `json:"Model"`
	Variation    *float64 `json:"Variation_Points"`
	VariationPct *float64 `json:"Variation_Percent"`
}

// Columns lists the dataset column names in serialization order.
var Columns = []string{
	"Date", "EntityName", "EntityType", "Score", "Model",
	"Variation_Points", "Variation_Percent",
}

// Normalize flattens one aggregated series into long rows under the given
// model label.
//
// Every point emits exactly one Primary row. Competitor rows are emitted
// per positive competitor score, in name order so output is stable across
// runs. Variations compare against the same entity at the previous point;
// a competitor absent from the previous point counts as having scored 0
// there.
func Normalize(points []mintapi.ChartPoint, model string) []Row {
	rows := make([]Row, 0, len(points)*2)

	for i, p := range points {
		brand := float64(p.Brand)
		row := Row{
			Date:       p.Date,
			EntityName: PrimaryName,
			EntityType: KindPrimary,
			Score:      brand,
			Model:      model,
		}
		if i > 0 {
			v, pct := delta(brand, float64(points[i-1].Brand))
			row.Variation, row.VariationPct = &v, &pct
		}
		rows = append(rows, row)

		for _, name := range slices.Sorted(maps.Keys(p.Competitors)) {
			score := float64(p.Competitors[name])
			if score <= 0 {
				continue
			}
			crow := Row{
				Date:       p.Date,
				EntityName: name,
				EntityType: KindCompetitor,
				Score:      score,
				Model:      model,
			}
			if i > 0 {
				prev := float64(points[i-1].Competitors[name])
				v, pct := delta(score, prev)
				crow.Variation, crow.VariationPct = &v, &pct
			}
			rows = append(rows, crow)
		}
	}

	return rows
}

// delta computes the period-over-period variation. The percent term reads
// 0 whenever the previous score is not positive: the upstream formula
// leaves "growth from a zero base" undefined and reports 0 for it, which
// conflates it with true zero growth. Kept as-is for parity.
func delta(cur, prev float64) (points, pct float64) {
	points = tabular.Round2(cur - prev)
	if prev > 0 {
		pct = tabular.Round2(points / prev * 100)
	}
	return points, pct
}

// DateRange is the first and last date observed in a dataset's rows.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Metadata summarises a [Dataset].
type Metadata struct {
	TotalRows         int       `json:"totalRows"`
	PrimaryRows       int       `json:"primaryRows"`
	CompetitorRows    int       `json:"competitorRows"`
	UniqueCompetitors int       `json:"uniqueCompetitors"`
	ModelsAnalyzed    int       `json:"modelsAnalyzed"`
	Models            []string  `json:"models"`
	DateRange         DateRange `json:"dateRange"`
}

// Dataset is the long-format result of one visibility analysis: the
// GLOBAL series' rows first, then one block per model.
type Dataset struct {
	Rows     []Row    `json:"dataset"`
	Metadata Metadata `json:"metadata"`
	Columns  []string `json:"columns"`
}

// BuildDataset assembles a [Dataset] from the cross-model aggregate plus
// the per-model series. Models missing from byModel (failed fetches) get
// no rows but still count in the metadata's model list, which reflects
// what was requested rather than what succeeded.
func BuildDataset(global *mintapi.AggregatedVisibility, byModel map[string]*mintapi.AggregatedVisibility, models []string) *Dataset {
	rows := Normalize(global.ChartData, GlobalModel)
	for _, m := range models {
		agg := byModel[m]
		if agg == nil {
			continue
		}
		rows = append(rows, Normalize(agg.ChartData, m)...)
	}

	var primary, competitor int
	uniq := make(map[string]struct{})
	for _, r := range rows {
		switch r.EntityType {
		case KindPrimary:
			primary++
		case KindCompetitor:
			competitor++
			uniq[r.EntityName] = struct{}{}
		}
	}

	md := Metadata{
		TotalRows:         len(rows),
		PrimaryRows:       primary,
		CompetitorRows:    competitor,
		UniqueCompetitors: len(uniq),
		ModelsAnalyzed:    len(models) + 1,
		Models:            append([]string{GlobalModel}, models...),
	}
	if len(rows) > 0 {
		md.DateRange = DateRange{Start: rows[0].Date, End: rows[len(rows)-1].Date}
	}

	return &Dataset{Rows: rows, Metadata: md, Columns: Columns}
}

// PivotRows converts normalized rows into the pivot engine's input form.
// Variations do not survive the conversion; the wide table carries scores
// only.
func PivotRows(rows []Row) []tabular.Row {
	out := make([]tabular.Row, len(rows))
	for i, r := range rows {
		out[i] = tabular.Row{
			Date:   r.Date,
			Model:  r.Model,
			Entity: r.EntityName,
			Value:  r.Score,
		}
	}
	return out
}
