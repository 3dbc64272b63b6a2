package visibility

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/getmint-ai/visibility-mcp/internal/fanout"
	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
	"github.com/getmint-ai/visibility-mcp/internal/observe"
)

const modelBatchPause = 250 * time.Millisecond

// API is the slice of the Mint client the service consumes.
type API interface {
	Aggregated(ctx context.Context, domainID, topicID string, q mintapi.AggregatedQuery) (*mintapi.AggregatedVisibility, error)
}

var _ API = (*mintapi.Client)(nil)

// Request selects one domain/topic series and an optional window.
type Request struct {
	DomainID  string
	TopicID   string
	StartDate string
	EndDate   string

	// Models restricts the per-model fetches to the named labels. Empty
	// means every model the aggregate reports as available.
	Models []string

	// IncludeDetails asks the aggregate call to carry citation data.
	IncludeDetails bool
}

// ModelFailure records a per-model fetch that did not succeed. The model's
// rows are simply absent from the dataset.
type ModelFailure struct {
	Model string `json:"model"`
	Error string `json:"error"`
}

// Service fetches and normalizes visibility series.
type Service struct {
	api API
}

// NewService returns a Service backed by the given API client.
func NewService(api API) *Service {
	return &Service{api: api}
}

// Fetch retrieves the cross-model aggregate plus one series per model and
// assembles the dataset. The aggregate call is load-bearing: if it fails,
// Fetch fails. Per-model calls fan out in capped batches and fail softly,
// each failure reported in the second return value with that model's rows
// omitted.
//
// The returned aggregate carries the detailed citation results when the
// request asked for them.
func (s *Service) Fetch(ctx context.Context, req Request) (*Dataset, *mintapi.AggregatedVisibility, []ModelFailure, error) {
	global, err := s.api.Aggregated(ctx, req.DomainID, req.TopicID, mintapi.AggregatedQuery{
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		IncludeDetails: req.IncludeDetails,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("visibility: aggregated series: %w", err)
	}

	models := selectModels(global.AvailableModels, req.Models)

	results := fanout.Map(ctx, models, fanout.Options{
		BatchSize: fanout.DefaultBatchSize,
		Pause:     modelBatchPause,
	}, func(ctx context.Context, model string) (*mintapi.AggregatedVisibility, error) {
		return s.api.Aggregated(ctx, req.DomainID, req.TopicID, mintapi.AggregatedQuery{
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			Model:     model,
		})
	})

	byModel := make(map[string]*mintapi.AggregatedVisibility, len(models))
	var failures []ModelFailure
	for _, r := range results {
		if r.Err != nil {
			observe.Logger(ctx).Warn("model series fetch failed",
				"model", r.Item, "error", r.Err)
			failures = append(failures, ModelFailure{Model: r.Item, Error: r.Err.Error()})
			continue
		}
		byModel[r.Item] = r.Value
	}

	return BuildDataset(global, byModel, models), global, failures, nil
}

// selectModels returns the available models, filtered to the requested
// subset when one was given. Requested models the aggregate never listed
// are ignored rather than fetched blind.
func selectModels(available, requested []string) []string {
	if len(requested) == 0 {
		return available
	}
	out := make([]string, 0, len(requested))
	for _, m := range available {
		if slices.Contains(requested, m) {
			out = append(out, m)
		}
	}
	return out
}
