package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetrics builds a Metrics instance on a private provider and returns
// it with a collect function that snapshots everything recorded so far.
func setupMetrics(t *testing.T) (*Metrics, func() metricdata.ResourceMetrics) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, func() metricdata.ResourceMetrics {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(context.Background(), &rm); err != nil {
			t.Fatalf("Collect: %v", err)
		}
		return rm
	}
}

// metricByName digs through all scopes for one named instrument.
func metricByName(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name == name {
				return met, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// sumValue returns the value of the int64 sum data point matching every
// given attribute, or -1 when no point matches.
func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string, want ...attribute.KeyValue) int64 {
	t.Helper()
	met, ok := metricByName(rm, name)
	if !ok {
		t.Fatalf("metric %q not collected", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q: data is %T, want Sum[int64]", name, met.Data)
	}
points:
	for _, dp := range sum.DataPoints {
		for _, kv := range want {
			v, ok := dp.Attributes.Value(kv.Key)
			if !ok || v.Emit() != kv.Value.Emit() {
				continue points
			}
		}
		return dp.Value
	}
	return -1
}

// histogramCount totals the sample counts across every data point of a
// float64 histogram.
func histogramCount(t *testing.T, rm metricdata.ResourceMetrics, name string) uint64 {
	t.Helper()
	met, ok := metricByName(rm, name)
	if !ok {
		t.Fatalf("metric %q not collected", name)
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric %q: data is %T, want Histogram[float64]", name, met.Data)
	}
	var n uint64
	for _, dp := range hist.DataPoints {
		n += dp.Count
	}
	return n
}

func TestObserveUpstream(t *testing.T) {
	m, collect := setupMetrics(t)
	ctx := context.Background()

	m.ObserveUpstream(ctx, "domains", "ok", 120*time.Millisecond)
	m.ObserveUpstream(ctx, "domains", "ok", 80*time.Millisecond)
	m.ObserveUpstream(ctx, "reports", "upstream_error", 40*time.Millisecond)

	rm := collect()

	if got := sumValue(t, rm, "mintvis.upstream.requests",
		attribute.String("endpoint", "domains"), attribute.String("status", "ok")); got != 2 {
		t.Errorf("ok requests to domains = %d, want 2", got)
	}
	if got := sumValue(t, rm, "mintvis.upstream.requests",
		attribute.String("endpoint", "reports")); got != 1 {
		t.Errorf("requests to reports = %d, want 1", got)
	}
	if got := sumValue(t, rm, "mintvis.upstream.errors",
		attribute.String("status", "upstream_error")); got != 1 {
		t.Errorf("error count = %d, want 1", got)
	}
	if got := sumValue(t, rm, "mintvis.upstream.errors",
		attribute.String("status", "ok")); got != -1 {
		t.Errorf("ok calls counted as errors: %d", got)
	}
	if got := histogramCount(t, rm, "mintvis.upstream.request.duration"); got != 3 {
		t.Errorf("latency samples = %d, want 3", got)
	}
}

func TestObserveToolCall(t *testing.T) {
	m, collect := setupMetrics(t)
	ctx := context.Background()

	m.ObserveToolCall(ctx, "get_visibility_scores", "ok", time.Second)
	m.ObserveToolCall(ctx, "get_visibility_scores", "invalid_request", 10*time.Millisecond)
	m.ObserveToolCall(ctx, "list_catalog", "ok", 300*time.Millisecond)

	rm := collect()

	if got := sumValue(t, rm, "mintvis.tool.calls",
		attribute.String("tool", "list_catalog")); got != 1 {
		t.Errorf("list_catalog calls = %d, want 1", got)
	}
	if got := sumValue(t, rm, "mintvis.tool.calls",
		attribute.String("tool", "get_visibility_scores"), attribute.String("status", "ok")); got != 1 {
		t.Errorf("ok get_visibility_scores calls = %d, want 1", got)
	}
	if got := sumValue(t, rm, "mintvis.tool.calls",
		attribute.String("status", "invalid_request")); got != 1 {
		t.Errorf("invalid_request calls = %d, want 1", got)
	}
	if got := histogramCount(t, rm, "mintvis.tool.duration"); got != 3 {
		t.Errorf("latency samples = %d, want 3", got)
	}
}

func TestHTTPRequestDurationInstrument(t *testing.T) {
	m, collect := setupMetrics(t)

	m.HTTPRequestDuration.Record(context.Background(), 0.05, metric.WithAttributes(
		attribute.String("method", "GET"),
		attribute.String("path", "/healthz"),
	))

	if got := histogramCount(t, collect(), "mintvis.http.request.duration"); got != 1 {
		t.Errorf("samples = %d, want 1", got)
	}
}

func TestInstrumentNames(t *testing.T) {
	m, collect := setupMetrics(t)
	ctx := context.Background()

	m.ObserveUpstream(ctx, "topics", "ok", time.Millisecond)
	m.ObserveToolCall(ctx, "get_citations", "ok", time.Millisecond)
	m.HTTPRequestDuration.Record(ctx, 0.01)

	rm := collect()
	for _, name := range []string{
		"mintvis.upstream.request.duration",
		"mintvis.upstream.requests",
		"mintvis.tool.duration",
		"mintvis.tool.calls",
		"mintvis.http.request.duration",
	} {
		if _, ok := metricByName(rm, name); !ok {
			t.Errorf("instrument %q not collected", name)
		}
	}
}

func TestDefaultMetrics_SharedInstance(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics handed out different pointers")
	}
}
