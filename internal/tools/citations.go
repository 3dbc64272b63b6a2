package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/getmint-ai/visibility-mcp/internal/citations"
	"github.com/getmint-ai/visibility-mcp/internal/visibility"
)

type citationsArgs struct {
	DomainID  string   `json:"domainId" jsonschema:"domain ID (use list_catalog to find it)"`
	TopicID   string   `json:"topicId" jsonschema:"topic ID (use list_catalog to find it)"`
	StartDate string   `json:"startDate,omitempty" jsonschema:"start date in YYYY-MM-DD format (default: 30 days before the end date)"`
	EndDate   string   `json:"endDate,omitempty" jsonschema:"end date in YYYY-MM-DD format (default: today)"`
	Models    []string `json:"models,omitempty" jsonschema:"restrict the per-model blocks to these model names"`
}

type citationsPayload struct {
	Status string        `json:"status"`
	Data   citationsData `json:"data"`
}

type citationsData struct {
	citations.Report
	Failed []visibility.ModelFailure `json:"failedModels,omitempty"`
}

func (r *Registry) citationReport(ctx context.Context, args citationsArgs) (*mcp.CallToolResult, error) {
	if args.DomainID == "" || args.TopicID == "" {
		return nil, argErrorf("domainId and topicId are required")
	}

	start, end := r.window(args.StartDate, args.EndDate)

	rep, failures, err := r.cites.Fetch(ctx, citations.Request{
		DomainID:  args.DomainID,
		TopicID:   args.TopicID,
		StartDate: start,
		EndDate:   end,
		Models:    args.Models,
	})
	if err != nil {
		return nil, err
	}

	return jsonResult(citationsPayload{
		Status: "success",
		Data:   citationsData{Report: *rep, Failed: failures},
	})
}
