package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/getmint-ai/visibility-mcp/internal/summary"
)

type summaryArgs struct {
	StartDate    string   `json:"startDate,omitempty" jsonschema:"start date in YYYY-MM-DD format (default: 90 days before the end date)"`
	EndDate      string   `json:"endDate,omitempty" jsonschema:"end date in YYYY-MM-DD format (default: today)"`
	Models       []string `json:"models,omitempty" jsonschema:"restrict the summary to these model names"`
	BrandFilter  string   `json:"brandFilter,omitempty" jsonschema:"case-insensitive substring filter on domain names"`
	MarketFilter string   `json:"marketFilter,omitempty" jsonschema:"case-insensitive substring filter on topic names"`
}

type summaryPayload struct {
	Status string          `json:"status"`
	Data   *summary.Result `json:"data"`
}

func (r *Registry) monthlySummary(ctx context.Context, args summaryArgs) (*mcp.CallToolResult, error) {
	res, err := r.monthly.Build(ctx, summary.Request{
		StartDate:    args.StartDate,
		EndDate:      args.EndDate,
		Models:       args.Models,
		BrandFilter:  args.BrandFilter,
		MarketFilter: args.MarketFilter,
	})
	if err != nil {
		return nil, err
	}

	return jsonResult(summaryPayload{Status: "success", Data: res})
}
