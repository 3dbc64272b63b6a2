package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
	"github.com/getmint-ai/visibility-mcp/internal/observe"
	"github.com/getmint-ai/visibility-mcp/internal/summary"
	"github.com/getmint-ai/visibility-mcp/pkg/tabular"
)

// Error taxonomy reported in the errorType field of failed tool calls.
const (
	errConfiguration = "configuration"
	errUpstream      = "upstream"
	errTransport     = "transport"
	errInvalid       = "invalid_request"
	errInternal      = "internal"
)

// argError marks a caller mistake: a missing required argument or a value
// outside the accepted set.
type argError struct {
	msg string
}

func (e *argError) Error() string { return e.msg }

func argErrorf(format string, args ...any) error {
	return &argError{msg: fmt.Sprintf(format, args...)}
}

// classify maps an error onto the taxonomy. Wrapping is respected, so a
// service-level wrap around a client error still lands in the right
// bucket.
func classify(err error) string {
	var apiErr *mintapi.APIError
	var transportErr *mintapi.TransportError
	var badArg *argError

	switch {
	case errors.Is(err, mintapi.ErrNoAPIKey):
		return errConfiguration
	case errors.As(err, &badArg),
		errors.Is(err, tabular.ErrNoData),
		errors.Is(err, summary.ErrNoTopics):
		return errInvalid
	case errors.As(err, &apiErr):
		return errUpstream
	case errors.As(err, &transportErr):
		return errTransport
	default:
		return errInternal
	}
}

// errorPayload is the envelope rendered for every failed tool call.
type errorPayload struct {
	Status    string `json:"status"`
	ErrorType string `json:"errorType"`
	Error     string `json:"error"`
	Tool      string `json:"tool"`
}

// errorResult logs the failure, records the call metric under its error
// kind, and renders the error envelope as an error-flagged text result.
func (r *Registry) errorResult(ctx context.Context, tool string, start time.Time, err error) *mcp.CallToolResult {
	kind := classify(err)
	observe.Logger(ctx).Error("tool call failed",
		"tool", tool, "error_type", kind, "err", err)
	r.metrics.ObserveToolCall(ctx, tool, kind, time.Since(start))

	data, _ := json.MarshalIndent(errorPayload{
		Status:    "error",
		ErrorType: kind,
		Error:     err.Error(),
		Tool:      tool,
	}, "", "  ")

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
