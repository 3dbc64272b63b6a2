// Package observe carries the observability kit for the Mint visibility
// server: OpenTelemetry metrics and traces, trace-aware logging, and the
// HTTP middleware that stitches the three together.
//
// Instruments are created through the OTel Metrics API and surface to
// Prometheus through the exporter bridge [InitProvider] installs, so the
// conventional /metrics endpoint keeps working. [DefaultMetrics] hands
// out a process-wide instance; tests construct their own via
// [NewMetrics] against a private [metric.MeterProvider] so runs stay
// isolated.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/getmint-ai/visibility-mcp"

// Metrics bundles the instruments the server records into. Every field is
// safe for concurrent use; OTel instruments synchronise internally.
type Metrics struct {
	// UpstreamDuration measures Mint API latency per endpoint and status.
	UpstreamDuration metric.Float64Histogram

	// UpstreamRequests counts Mint API calls per endpoint and status.
	UpstreamRequests metric.Int64Counter

	// UpstreamErrors counts the subset of Mint API calls that failed.
	UpstreamErrors metric.Int64Counter

	// ToolDuration measures MCP tool execution per tool and status.
	ToolDuration metric.Float64Histogram

	// ToolCalls counts tool invocations per tool and status.
	ToolCalls metric.Int64Counter

	// HTTPRequestDuration measures HTTP handling per method and path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are the histogram boundaries in seconds. The top end
// covers the 30s upstream timeout and tool runs that stack several
// batched upstream calls.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics builds every instrument on a meter from mp. It fails when
// any single instrument cannot be created.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	var (
		m   Metrics
		err error
	)

	if m.UpstreamDuration, err = meter.Float64Histogram("mintvis.upstream.request.duration",
		metric.WithDescription("Latency of Mint API requests by endpoint and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if m.UpstreamRequests, err = meter.Int64Counter("mintvis.upstream.requests",
		metric.WithDescription("Total Mint API requests by endpoint and status."),
	); err != nil {
		return nil, err
	}
	if m.UpstreamErrors, err = meter.Int64Counter("mintvis.upstream.errors",
		metric.WithDescription("Total failed Mint API requests by endpoint and status."),
	); err != nil {
		return nil, err
	}
	if m.ToolDuration, err = meter.Float64Histogram("mintvis.tool.duration",
		metric.WithDescription("Latency of MCP tool execution by tool name and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if m.ToolCalls, err = meter.Int64Counter("mintvis.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("mintvis.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the shared instance built on the global meter
// provider. Every call after the first returns the same pointer. A
// failure to build instruments here panics, which only happens when the
// global provider itself is broken.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// ObserveUpstream records one Mint API call: the request count, its
// latency, and an error count when status is anything but "ok".
func (m *Metrics) ObserveUpstream(ctx context.Context, endpoint, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	)
	m.UpstreamRequests.Add(ctx, 1, attrs)
	m.UpstreamDuration.Record(ctx, elapsed.Seconds(), attrs)
	if status != "ok" {
		m.UpstreamErrors.Add(ctx, 1, attrs)
	}
}

// ObserveToolCall records one MCP tool invocation with its latency.
func (m *Metrics) ObserveToolCall(ctx context.Context, tool, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	)
	m.ToolCalls.Add(ctx, 1, attrs)
	m.ToolDuration.Record(ctx, elapsed.Seconds(), attrs)
}
