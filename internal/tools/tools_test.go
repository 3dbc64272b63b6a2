package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
	"github.com/getmint-ai/visibility-mcp/internal/summary"
	"github.com/getmint-ai/visibility-mcp/pkg/tabular"
)

// fakeAPI serves canned Mint responses. The aggregated series is keyed by
// the query's model name, with "" holding the cross-model aggregate;
// reports are keyed by "domainID/topicID".
type fakeAPI struct {
	mu sync.Mutex

	domains    []mintapi.Domain
	domainsErr error

	topics    map[string][]mintapi.Topic
	topicErrs map[string]error

	series    map[string]*mintapi.AggregatedVisibility
	seriesErr map[string]error

	reports    map[string][]mintapi.Report
	reportsErr map[string]error

	aggCalls []mintapi.AggregatedQuery
}

func (f *fakeAPI) Domains(context.Context) ([]mintapi.Domain, error) {
	if f.domainsErr != nil {
		return nil, f.domainsErr
	}
	return f.domains, nil
}

func (f *fakeAPI) Topics(_ context.Context, domainID string) ([]mintapi.Topic, error) {
	if err := f.topicErrs[domainID]; err != nil {
		return nil, err
	}
	return f.topics[domainID], nil
}

func (f *fakeAPI) Aggregated(_ context.Context, _, _ string, q mintapi.AggregatedQuery) (*mintapi.AggregatedVisibility, error) {
	f.mu.Lock()
	f.aggCalls = append(f.aggCalls, q)
	f.mu.Unlock()
	if err := f.seriesErr[q.Model]; err != nil {
		return nil, err
	}
	if s, ok := f.series[q.Model]; ok {
		return s, nil
	}
	return &mintapi.AggregatedVisibility{}, nil
}

func (f *fakeAPI) Reports(_ context.Context, domainID, topicID, _, _ string) ([]mintapi.Report, error) {
	k := domainID + "/" + topicID
	if err := f.reportsErr[k]; err != nil {
		return nil, err
	}
	return f.reports[k], nil
}

func (f *fakeAPI) aggregatedCalls() []mintapi.AggregatedQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mintapi.AggregatedQuery(nil), f.aggCalls...)
}

// fixedNow pins "today" to 2026-03-15 for default-window assertions.
func fixedNow() time.Time {
	return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func newTestRegistry(api API) *Registry {
	return NewRegistry(api, WithClock(fixedNow))
}

// callTool runs a tool body through the shared handler wrapper.
func callTool[In any](t *testing.T, r *Registry, name string, body func(context.Context, In) (*mcp.CallToolResult, error), in In) *mcp.CallToolResult {
	t.Helper()
	res, _, err := handle(r, name, body)(context.Background(), nil, in)
	if err != nil {
		t.Fatalf("handler returned a protocol error: %v", err)
	}
	if res == nil {
		t.Fatal("handler returned a nil result")
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, into any) {
	t.Helper()
	if res.IsError {
		t.Fatalf("result marked as error: %s", resultText(t, res))
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), into); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
}

func decodeError(t *testing.T, res *mcp.CallToolResult) errorPayload {
	t.Helper()
	if !res.IsError {
		t.Fatalf("result not marked as error: %s", resultText(t, res))
	}
	var p errorPayload
	if err := json.Unmarshal([]byte(resultText(t, res)), &p); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if p.Status != "error" {
		t.Errorf("status = %q, want %q", p.Status, "error")
	}
	return p
}

// ---- shared plumbing ----

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing key", mintapi.ErrNoAPIKey, errConfiguration},
		{"wrapped missing key", fmt.Errorf("visibility: %w", mintapi.ErrNoAPIKey), errConfiguration},
		{"api error", &mintapi.APIError{StatusCode: 404, Path: "/domains"}, errUpstream},
		{"wrapped api error", fmt.Errorf("citations: %w", &mintapi.APIError{StatusCode: 500}), errUpstream},
		{"transport error", &mintapi.TransportError{Path: "/domains", Err: errors.New("dial tcp: refused")}, errTransport},
		{"argument error", argErrorf("domainId is required"), errInvalid},
		{"no data", fmt.Errorf("no rows: %w", tabular.ErrNoData), errInvalid},
		{"no topics", summary.ErrNoTopics, errInvalid},
		{"anything else", errors.New("boom"), errInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := classify(tc.err); got != tc.want {
				t.Errorf("classify(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestHandle_WrapsErrorsInEnvelope(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(&fakeAPI{})
	body := func(context.Context, struct{}) (*mcp.CallToolResult, error) {
		return nil, argErrorf("name is required")
	}

	res := callTool(t, reg, "stub_tool", body, struct{}{})
	p := decodeError(t, res)

	if p.ErrorType != errInvalid {
		t.Errorf("errorType = %q, want %q", p.ErrorType, errInvalid)
	}
	if p.Tool != "stub_tool" {
		t.Errorf("tool = %q, want %q", p.Tool, "stub_tool")
	}
	if p.Error != "name is required" {
		t.Errorf("error = %q, want %q", p.Error, "name is required")
	}
}

func TestHandle_PassesResultsThrough(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(&fakeAPI{})
	body := func(context.Context, struct{}) (*mcp.CallToolResult, error) {
		return textResult("fine"), nil
	}

	res := callTool(t, reg, "stub_tool", body, struct{}{})
	if res.IsError {
		t.Error("result marked as error")
	}
	if got := resultText(t, res); got != "fine" {
		t.Errorf("text = %q, want %q", got, "fine")
	}
}

func TestWindow(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(&fakeAPI{})

	tests := []struct {
		name               string
		start, end         string
		wantStart, wantEnd string
	}{
		{"both omitted", "", "", "2026-02-13", "2026-03-15"},
		{"start kept", "2026-01-01", "", "2026-01-01", "2026-03-15"},
		{"start anchors on given end", "", "2026-02-01", "2026-01-02", "2026-02-01"},
		{"both kept", "2026-01-01", "2026-02-01", "2026-01-01", "2026-02-01"},
		{"garbage end anchors on today", "", "soon", "2026-02-13", "soon"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			start, end := reg.window(tc.start, tc.end)
			if start != tc.wantStart || end != tc.wantEnd {
				t.Errorf("window(%q, %q) = (%q, %q), want (%q, %q)",
					tc.start, tc.end, start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}
