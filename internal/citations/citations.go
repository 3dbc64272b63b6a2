// Package citations extracts ranked citation lists from detail-enabled
// visibility responses: which source domains and URLs the models actually
// referenced, how often, and how that changed over time.
package citations

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/getmint-ai/visibility-mcp/internal/fanout"
	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
	"github.com/getmint-ai/visibility-mcp/internal/observe"
	"github.com/getmint-ai/visibility-mcp/internal/visibility"
)

const modelBatchPause = 250 * time.Millisecond

// Row is one ranked citation entry. Rank is 1-based by list position and
// restarts per model.
type Row struct {
	Model  string `json:"model"`
	Rank   int    `json:"rank"`
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// TimeRow is one dated citation observation for a source under a model.
type TimeRow struct {
	Model  string `json:"model"`
	Date   string `json:"date"`
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// MetricRow is one named aggregate metric reported for a model.
type MetricRow struct {
	Model  string  `json:"model"`
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// Report is the flattened citation view across models. Within every
// sequence the GLOBAL block comes first, then one block per model in
// request order; inside a block the upstream list order is preserved.
type Report struct {
	Models          []string    `json:"models"`
	TopDomains      []Row       `json:"topDomains"`
	TopURLs         []Row       `json:"topUrls"`
	DomainsOverTime []TimeRow   `json:"domainsOverTime"`
	URLsOverTime    []TimeRow   `json:"urlsOverTime"`
	GlobalMetrics   []MetricRow `json:"globalMetrics"`
}

// ModelDetails pairs a model label with its detail block. A nil Details
// contributes nothing but keeps the model listed.
type ModelDetails struct {
	Model   string
	Details *mintapi.DetailedResults
}

// Aggregate flattens detail blocks into a single report, in the order the
// blocks are given. Callers put the GLOBAL block first.
func Aggregate(blocks []ModelDetails) *Report {
	rep := &Report{Models: make([]string, 0, len(blocks))}
	for _, b := range blocks {
		rep.Models = append(rep.Models, b.Model)
		if b.Details == nil {
			continue
		}
		for i, s := range b.Details.TopDomains {
			rep.TopDomains = append(rep.TopDomains, Row{Model: b.Model, Rank: i + 1, Source: s.Source, Count: s.Count})
		}
		for i, s := range b.Details.TopURLs {
			rep.TopURLs = append(rep.TopURLs, Row{Model: b.Model, Rank: i + 1, Source: s.Source, Count: s.Count})
		}
		for _, p := range b.Details.DomainsOverTime {
			rep.DomainsOverTime = append(rep.DomainsOverTime, TimeRow{Model: b.Model, Date: p.Date, Source: p.Source, Count: p.Count})
		}
		for _, p := range b.Details.URLsOverTime {
			rep.URLsOverTime = append(rep.URLsOverTime, TimeRow{Model: b.Model, Date: p.Date, Source: p.Source, Count: p.Count})
		}
		for _, name := range slices.Sorted(maps.Keys(b.Details.GlobalMetrics)) {
			rep.GlobalMetrics = append(rep.GlobalMetrics, MetricRow{
				Model:  b.Model,
				Metric: name,
				Value:  float64(b.Details.GlobalMetrics[name]),
			})
		}
	}
	return rep
}

// API is the slice of the Mint client the service consumes.
type API interface {
	Aggregated(ctx context.Context, domainID, topicID string, q mintapi.AggregatedQuery) (*mintapi.AggregatedVisibility, error)
}

var _ API = (*mintapi.Client)(nil)

// Request selects one domain/topic and an optional window and model
// subset.
type Request struct {
	DomainID  string
	TopicID   string
	StartDate string
	EndDate   string
	Models    []string
}

// Service fetches detail-enabled responses and aggregates their citation
// blocks.
type Service struct {
	api API
}

// NewService returns a Service backed by the given API client.
func NewService(api API) *Service {
	return &Service{api: api}
}

// Fetch pulls the detail-enabled aggregate plus one detail-enabled
// response per model and flattens them. The aggregate call is fatal on
// failure; per-model calls fail softly with the model omitted from the
// report's blocks.
func (s *Service) Fetch(ctx context.Context, req Request) (*Report, []visibility.ModelFailure, error) {
	global, err := s.api.Aggregated(ctx, req.DomainID, req.TopicID, mintapi.AggregatedQuery{
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		IncludeDetails: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("citations: aggregated details: %w", err)
	}

	models := global.AvailableModels
	if len(req.Models) > 0 {
		models = slices.DeleteFunc(slices.Clone(models), func(m string) bool {
			return !slices.Contains(req.Models, m)
		})
	}

	results := fanout.Map(ctx, models, fanout.Options{
		BatchSize: fanout.DefaultBatchSize,
		Pause:     modelBatchPause,
	}, func(ctx context.Context, model string) (*mintapi.AggregatedVisibility, error) {
		return s.api.Aggregated(ctx, req.DomainID, req.TopicID, mintapi.AggregatedQuery{
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			Model:          model,
			IncludeDetails: true,
		})
	})

	blocks := []ModelDetails{{Model: visibility.GlobalModel, Details: global.DetailedResults}}
	var failures []visibility.ModelFailure
	for _, r := range results {
		if r.Err != nil {
			observe.Logger(ctx).Warn("model citation fetch failed",
				"model", r.Item, "error", r.Err)
			failures = append(failures, visibility.ModelFailure{Model: r.Item, Error: r.Err.Error()})
			continue
		}
		blocks = append(blocks, ModelDetails{Model: r.Item, Details: r.Value.DetailedResults})
	}

	return Aggregate(blocks), failures, nil
}
