// Package summary builds the cross-topic monthly visibility report: raw
// per-report scores for every catalog topic, bucketed by calendar month
// and model, averaged, and pivoted into one wide table with a column per
// "Domain > Topic" pair.
package summary

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/getmint-ai/visibility-mcp/internal/catalog"
	"github.com/getmint-ai/visibility-mcp/internal/fanout"
	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
	"github.com/getmint-ai/visibility-mcp/internal/observe"
	"github.com/getmint-ai/visibility-mcp/internal/visibility"
	"github.com/getmint-ai/visibility-mcp/pkg/tabular"
)

const (
	topicBatchPause   = 250 * time.Millisecond
	defaultWindowDays = 90
)

// ErrNoTopics means the brand/market filters matched nothing in the
// catalog, so there is nothing to report on.
var ErrNoTopics = errors.New("summary: no topics match the given filters")

// API is the slice of the Mint client the service consumes.
type API interface {
	Domains(ctx context.Context) ([]mintapi.Domain, error)
	Topics(ctx context.Context, domainID string) ([]mintapi.Topic, error)
	Reports(ctx context.Context, domainID, topicID, startDate, endDate string) ([]mintapi.Report, error)
}

var _ API = (*mintapi.Client)(nil)

// Request narrows the report window and scope. All fields are optional.
type Request struct {
	StartDate string
	EndDate   string

	// Models keeps only reports from the named model labels. The GLOBAL
	// aggregate is then computed over that subset.
	Models []string

	// BrandFilter and MarketFilter are case-insensitive substring matches
	// against domain and topic labels.
	BrandFilter  string
	MarketFilter string
}

// TopicFailure records a topic whose report fetch failed. Its column is
// absent from the table.
type TopicFailure struct {
	Topic string `json:"topic"`
	Error string `json:"error"`
}

// Result is the assembled monthly summary.
type Result struct {
	Window         visibility.DateRange `json:"window"`
	TopicsAnalyzed int                  `json:"topicsAnalyzed"`
	Models         []string             `json:"models"`
	Table          *tabular.Result      `json:"table"`
	Skipped        []TopicFailure       `json:"skippedTopics,omitempty"`
}

// Service assembles monthly summaries.
type Service struct {
	api API
	now func() time.Time
}

// NewService returns a Service backed by the given API client.
func NewService(api API) *Service {
	return &Service{api: api, now: time.Now}
}

// bucketKey addresses one cell's accumulator: a calendar month, a model
// label, and a "Domain > Topic" column.
type bucketKey struct {
	month  string
	model  string
	column string
}

type bucket struct {
	sum float64
	n   int
}

// Build resolves the catalog, fetches raw reports for every matching
// topic in capped batches, and pivots the monthly mean scores. Individual
// topic failures are skipped and listed in the result; if no reports at
// all land in the window the error wraps [tabular.ErrNoData].
func (s *Service) Build(ctx context.Context, req Request) (*Result, error) {
	start, end := s.window(req)

	cat, err := catalog.Resolve(ctx, s.api)
	if err != nil {
		return nil, fmt.Errorf("summary: resolve catalog: %w", err)
	}

	topics := filterTopics(cat.Topics, req.BrandFilter, req.MarketFilter)
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}

	results := fanout.Map(ctx, topics, fanout.Options{
		BatchSize: fanout.DefaultBatchSize,
		Pause:     topicBatchPause,
	}, func(ctx context.Context, tp catalog.Topic) ([]mintapi.Report, error) {
		return s.api.Reports(ctx, tp.DomainID, tp.ID, start, end)
	})

	buckets := make(map[bucketKey]*bucket)
	var skipped []TopicFailure
	for _, r := range results {
		column := catalog.Key(r.Item.DomainName, r.Item.Name)
		if r.Err != nil {
			observe.Logger(ctx).Warn("topic report fetch failed",
				"topic", column, "error", r.Err)
			skipped = append(skipped, TopicFailure{Topic: column, Error: r.Err.Error()})
			continue
		}
		for _, rep := range r.Value {
			if len(req.Models) > 0 && !slices.Contains(req.Models, rep.Model) {
				continue
			}
			accumulate(buckets, bucketKey{monthOf(rep.Date), rep.Model, column}, float64(rep.Score))
			accumulate(buckets, bucketKey{monthOf(rep.Date), visibility.GlobalModel, column}, float64(rep.Score))
		}
	}

	if len(buckets) == 0 {
		return nil, fmt.Errorf("summary: no reports between %s and %s (%d of %d topics failed): %w",
			start, end, len(skipped), len(topics), tabular.ErrNoData)
	}

	rows := make([]tabular.Row, 0, len(buckets))
	models := make(map[string]struct{})
	for k, b := range buckets {
		rows = append(rows, tabular.Row{Date: k.month, Model: k.model, Entity: k.column, Value: b.sum / float64(b.n)})
		models[k.model] = struct{}{}
	}

	table, err := tabular.Pivot(rows)
	if err != nil {
		return nil, fmt.Errorf("summary: pivot: %w", err)
	}

	return &Result{
		Window:         visibility.DateRange{Start: start, End: end},
		TopicsAnalyzed: len(topics) - len(skipped),
		Models:         modelList(models),
		Table:          table,
		Skipped:        skipped,
	}, nil
}

// window fills missing bounds: end defaults to today, start to the
// default span before the resolved end. An unparseable end leaves the
// start default anchored on today.
func (s *Service) window(req Request) (start, end string) {
	today := s.now()
	start, end = req.StartDate, req.EndDate
	if end == "" {
		end = today.Format(time.DateOnly)
	}
	if start == "" {
		ref := today
		if t, err := time.Parse(time.DateOnly, end); err == nil {
			ref = t
		}
		start = ref.AddDate(0, 0, -defaultWindowDays).Format(time.DateOnly)
	}
	return start, end
}

func accumulate(buckets map[bucketKey]*bucket, k bucketKey, score float64) {
	b := buckets[k]
	if b == nil {
		b = &bucket{}
		buckets[k] = b
	}
	b.sum += score
	b.n++
}

// monthOf truncates an ISO date to its YYYY-MM month. Shorter strings
// pass through as their own bucket rather than being dropped.
func monthOf(date string) string {
	if len(date) >= 7 {
		return date[:7]
	}
	return date
}

func filterTopics(topics []catalog.Topic, brand, market string) []catalog.Topic {
	brand, market = strings.ToLower(brand), strings.ToLower(market)
	out := make([]catalog.Topic, 0, len(topics))
	for _, t := range topics {
		if brand != "" && !strings.Contains(strings.ToLower(t.DomainName), brand) {
			continue
		}
		if market != "" && !strings.Contains(strings.ToLower(t.Name), market) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// modelList orders the observed labels with GLOBAL first, the rest
// sorted.
func modelList(models map[string]struct{}) []string {
	out := make([]string, 0, len(models))
	if _, ok := models[visibility.GlobalModel]; ok {
		out = append(out, visibility.GlobalModel)
		delete(models, visibility.GlobalModel)
	}
	return append(out, slices.Sorted(maps.Keys(models))...)
}
