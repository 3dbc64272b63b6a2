// Package tools implements the MCP tool surface of the visibility server.
//
// Four tools are registered via [Registry.Register]:
//   - "list_catalog"                    — resolves the domain/topic catalog.
//   - "get_visibility_scores"           — per-model visibility series with
//     period-over-period variations, pivoted and rendered.
//   - "get_citations"                   — ranked citation sources per model.
//   - "get_visibility_monthly_summary"  — monthly mean scores across every
//     tracked domain/topic pair.
//
// Every tool returns a single text content block. Success payloads are
// indented JSON unless the caller asked for a rendered table; failures are
// the JSON envelope {status, errorType, error, tool} with the result marked
// as an error, so an LLM always has something structured to read. Handlers
// never return a Go error to the SDK.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/getmint-ai/visibility-mcp/internal/citations"
	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
	"github.com/getmint-ai/visibility-mcp/internal/observe"
	"github.com/getmint-ai/visibility-mcp/internal/summary"
	"github.com/getmint-ai/visibility-mcp/internal/visibility"
)

// Tool wire names.
const (
	toolListCatalog    = "list_catalog"
	toolScores         = "get_visibility_scores"
	toolCitations      = "get_citations"
	toolMonthlySummary = "get_visibility_monthly_summary"
)

// scoresWindowDays is the default lookback of get_visibility_scores when
// the caller omits a date bound.
const scoresWindowDays = 30

// API is the full slice of the Mint client the tool surface needs.
type API interface {
	Domains(ctx context.Context) ([]mintapi.Domain, error)
	Topics(ctx context.Context, domainID string) ([]mintapi.Topic, error)
	Aggregated(ctx context.Context, domainID, topicID string, q mintapi.AggregatedQuery) (*mintapi.AggregatedVisibility, error)
	Reports(ctx context.Context, domainID, topicID, startDate, endDate string) ([]mintapi.Report, error)
}

var _ API = (*mintapi.Client)(nil)

// Registry wires the Mint services into an MCP server.
type Registry struct {
	api     API
	scores  *visibility.Service
	cites   *citations.Service
	monthly *summary.Service
	metrics *observe.Metrics
	now     func() time.Time
}

// Option configures a [Registry].
type Option func(*Registry)

// WithMetrics overrides the metrics sink, which defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithClock pins the reference time used for default date windows.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry returns a Registry serving tools backed by the given API
// client.
func NewRegistry(api API, opts ...Option) *Registry {
	r := &Registry{
		api:     api,
		scores:  visibility.NewService(api),
		cites:   citations.NewService(api),
		monthly: summary.NewService(api),
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Register adds every visibility tool to the MCP server.
func (r *Registry) Register(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: toolListCatalog,
		Description: "List ALL domains and topics tracked in Mint.ai, with a " +
			"\"Domain > Topic\" name-to-ID mapping. Use this tool FIRST whenever " +
			"the user mentions a domain or topic by name without providing IDs.",
	}, handle(r, toolListCatalog, r.listCatalog))

	mcp.AddTool(s, &mcp.Tool{
		Name: toolScores,
		Description: "Full visibility analysis with a per-LLM-model split. " +
			"Returns rows of Date | EntityName | EntityType | Score | Model " +
			"(GLOBAL or a model name) | Variation_Points | Variation_Percent, " +
			"plus a date-by-model pivot table with per-entity statistics. " +
			"Covers the tracked brand AND its competitors on every model.",
	}, handle(r, toolScores, r.visibilityScores))

	mcp.AddTool(s, &mcp.Tool{
		Name: toolCitations,
		Description: "Citation analysis for one domain/topic pair: the most " +
			"cited source domains and URLs, their evolution over time, and " +
			"global citation metrics, split by LLM model with a GLOBAL " +
			"aggregate first.",
	}, handle(r, toolCitations, r.citationReport))

	mcp.AddTool(s, &mcp.Tool{
		Name: toolMonthlySummary,
		Description: "Monthly visibility summary across ALL tracked domains " +
			"and topics: mean score per calendar month, per LLM model and per " +
			"\"Domain > Topic\" pair. Optional brand and market filters narrow " +
			"the catalog before fetching.",
	}, handle(r, toolMonthlySummary, r.monthlySummary))
}

// handle wraps a tool body with tracing, latency metrics, and the shared
// error envelope. Bodies report failures as Go errors; the wrapper turns
// them into error results and never propagates them to the SDK.
func handle[In any](r *Registry, tool string, body func(ctx context.Context, in In) (*mcp.CallToolResult, error)) mcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		ctx, span := observe.StartSpan(ctx, "tool "+tool,
			trace.WithAttributes(attribute.String("mcp.tool", tool)))
		defer span.End()

		start := time.Now()
		res, err := body(ctx, in)
		if err != nil {
			observe.FailSpan(span, err)
			return r.errorResult(ctx, tool, start, err), nil, nil
		}
		r.metrics.ObserveToolCall(ctx, tool, "ok", time.Since(start))
		return res, nil, nil
	}
}

// jsonResult wraps a payload as an indented JSON text block.
func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("tools: encode response: %w", err)
	}
	return textResult(string(data)), nil
}

// textResult wraps pre-rendered text as a tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// window fills missing date bounds: end defaults to today, start to
// scoresWindowDays before end. A provided bound is kept as-is; an
// unparseable end leaves the start default anchored on today.
func (r *Registry) window(start, end string) (string, string) {
	today := r.now()
	if end == "" {
		end = today.Format(time.DateOnly)
	}
	if start == "" {
		ref := today
		if t, err := time.Parse(time.DateOnly, end); err == nil {
			ref = t
		}
		start = ref.AddDate(0, 0, -scoresWindowDays).Format(time.DateOnly)
	}
	return start, end
}
