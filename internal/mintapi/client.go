// Package mintapi provides a typed HTTP client for the Mint.ai
// brand-visibility API.
//
// Every request carries the account credential in the X-API-Key header
// plus a generated X-Request-ID, and is bounded by a fixed timeout. The
// client never retries: callers decide per call site whether a failure is
// fatal or recoverable by omission.
//
// Errors follow a three-way taxonomy: [ErrNoAPIKey] when no credential is
// configured (checked before any request), [*APIError] for non-2xx
// responses, and [*TransportError] when no HTTP response was obtained at
// all.
package mintapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getmint-ai/visibility-mcp/internal/observe"
)

const (
	// DefaultBaseURL is the production Mint.ai API endpoint. Override via
	// [WithBaseURL] (typically fed from the MINT_BASE_URL environment
	// variable).
	DefaultBaseURL = "https://api.getmint.ai/api"

	// defaultTimeout bounds every request. The API can be slow on large
	// date ranges but anything beyond this indicates an upstream problem.
	defaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response body is retained in
	// an [APIError].
	maxErrorBody = 4 << 10
)

// Endpoint labels used as low-cardinality metric attributes. Request paths
// contain domain/topic IDs and must not be used as labels directly.
const (
	endpointDomains    = "domains"
	endpointTopics     = "topics"
	endpointAggregated = "visibility_aggregated"
	endpointReports    = "visibility_reports"
)

// Option is a functional option for configuring the [Client].
type Option func(*Client)

// WithBaseURL overrides the API endpoint. A trailing slash is trimmed so
// request paths can always start with "/".
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. The configured
// timeout is still applied on top via the request context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithMetrics attaches an [observe.Metrics] instance so the client records
// upstream request counters and latency histograms. When unset, nothing is
// recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client is a Mint.ai API client. It is safe for concurrent use.
//
// The zero value is not usable; construct with [New]. An empty API key is
// allowed at construction time (the server should boot without a
// credential) but every request will fail with [ErrNoAPIKey] until one is
// provided.
type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    *http.Client
	metrics *observe.Metrics
}

// New creates a Client for the given API key. An empty key is tolerated;
// see [Client].
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		timeout: defaultTimeout,
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured API endpoint.
func (c *Client) BaseURL() string { return c.baseURL }

// HasKey reports whether the client holds a non-empty credential. Used by
// readiness checks to fail fast before the first tool call does.
func (c *Client) HasKey() bool { return c.apiKey != "" }

// Domains lists all brand domains visible to the configured account.
func (c *Client) Domains(ctx context.Context) ([]Domain, error) {
	var out []Domain
	if err := c.get(ctx, endpointDomains, "/domains", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Topics lists the topics tracked under one domain.
func (c *Client) Topics(ctx context.Context, domainID string) ([]Topic, error) {
	var out []Topic
	path := fmt.Sprintf("/domains/%s/topics", url.PathEscape(domainID))
	if err := c.get(ctx, endpointTopics, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AggregatedQuery holds the query parameters for [Client.Aggregated].
type AggregatedQuery struct {
	// StartDate and EndDate bound the series, both inclusive, formatted
	// YYYY-MM-DD.
	StartDate string
	EndDate   string

	// Model restricts the series to a single LLM. Empty requests the
	// cross-model aggregate.
	Model string

	// IncludeDetails asks the API to attach the citation detail blocks
	// (top domains, top URLs, over-time series, global metrics).
	IncludeDetails bool
}

// Aggregated fetches the aggregated visibility series for one domain/topic
// pair: available model names, the day-by-day chart data, and optionally
// the citation details.
func (c *Client) Aggregated(ctx context.Context, domainID, topicID string, q AggregatedQuery) (*AggregatedVisibility, error) {
	params := url.Values{
		"startDate":  {q.StartDate},
		"endDate":    {q.EndDate},
		"latestOnly": {"false"},
		"page":       {"1"},
		"limit":      {"100"},
	}
	if q.Model != "" {
		params.Set("models", q.Model)
	}
	if q.IncludeDetails {
		params.Set("includeDetailedResults", "true")
	}

	path := fmt.Sprintf("/domains/%s/topics/%s/visibility/aggregated",
		url.PathEscape(domainID), url.PathEscape(topicID))

	var out AggregatedVisibility
	if err := c.get(ctx, endpointAggregated, path, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reports fetches the raw per-report visibility scores for one
// domain/topic pair: one entry per (date, model) measurement, without any
// aggregation. Used by the monthly summary.
func (c *Client) Reports(ctx context.Context, domainID, topicID, startDate, endDate string) ([]Report, error) {
	params := url.Values{
		"startDate": {startDate},
		"endDate":   {endDate},
	}
	path := fmt.Sprintf("/domains/%s/topics/%s/visibility",
		url.PathEscape(domainID), url.PathEscape(topicID))

	var out reportsEnvelope
	if err := c.get(ctx, endpointReports, path, params, &out); err != nil {
		return nil, err
	}
	return out.Reports, nil
}

// get performs one authenticated GET against base+path and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("mintapi: build request %s: %w", path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observeRequest(ctx, endpoint, "transport_error", start)
		observe.Logger(ctx).Warn("mint request failed",
			"endpoint", endpoint, "request_id", requestID, "err", err)
		return &TransportError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.observeRequest(ctx, endpoint, "upstream_error", start)
		observe.Logger(ctx).Warn("mint request rejected",
			"endpoint", endpoint, "request_id", requestID, "status", resp.StatusCode)
		return &APIError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.observeRequest(ctx, endpoint, "decode_error", start)
		return fmt.Errorf("mintapi: decode %s response: %w", path, err)
	}

	c.observeRequest(ctx, endpoint, "ok", start)
	return nil
}

func (c *Client) observeRequest(ctx context.Context, endpoint, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveUpstream(ctx, endpoint, status, time.Since(start))
}
