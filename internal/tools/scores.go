package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/getmint-ai/visibility-mcp/internal/visibility"
	"github.com/getmint-ai/visibility-mcp/pkg/tabular"
)

type scoresArgs struct {
	DomainID     string   `json:"domainId" jsonschema:"domain ID (use list_catalog to find it)"`
	TopicID      string   `json:"topicId" jsonschema:"topic ID (use list_catalog to find it)"`
	StartDate    string   `json:"startDate,omitempty" jsonschema:"start date in YYYY-MM-DD format (default: 30 days before the end date)"`
	EndDate      string   `json:"endDate,omitempty" jsonschema:"end date in YYYY-MM-DD format (default: today)"`
	Models       []string `json:"models,omitempty" jsonschema:"restrict the per-model split to these model names"`
	OutputFormat string   `json:"outputFormat,omitempty" jsonschema:"json (default), markdown, csv, or tsv"`
}

type scoresPayload struct {
	Status string     `json:"status"`
	Data   scoresData `json:"data"`
}

type scoresData struct {
	visibility.Dataset
	Pivot  *tabular.Result           `json:"pivot,omitempty"`
	Failed []visibility.ModelFailure `json:"failedModels,omitempty"`
}

func (r *Registry) visibilityScores(ctx context.Context, args scoresArgs) (*mcp.CallToolResult, error) {
	if args.DomainID == "" || args.TopicID == "" {
		return nil, argErrorf("domainId and topicId are required")
	}

	// An empty renderAs selects the structured JSON payload.
	var renderAs tabular.Format
	switch strings.ToLower(strings.TrimSpace(args.OutputFormat)) {
	case "", "json", "structured":
	default:
		f, err := tabular.ParseFormat(args.OutputFormat)
		if err != nil {
			return nil, argErrorf("unknown outputFormat %q (want json, markdown, csv, or tsv)", args.OutputFormat)
		}
		renderAs = f
	}

	start, end := r.window(args.StartDate, args.EndDate)

	ds, _, failures, err := r.scores.Fetch(ctx, visibility.Request{
		DomainID:  args.DomainID,
		TopicID:   args.TopicID,
		StartDate: start,
		EndDate:   end,
		Models:    args.Models,
	})
	if err != nil {
		return nil, err
	}

	pivot, err := tabular.Pivot(visibility.PivotRows(ds.Rows),
		tabular.WithLeadColumn(visibility.PrimaryName))
	if err != nil {
		if !errors.Is(err, tabular.ErrNoData) {
			return nil, err
		}
		// An empty window still answers structured requests with the
		// zero-row dataset; there is no table to render otherwise.
		if renderAs != "" {
			return nil, fmt.Errorf("no visibility data between %s and %s: %w", start, end, tabular.ErrNoData)
		}
		pivot = nil
	}

	if renderAs == "" {
		return jsonResult(scoresPayload{
			Status: "success",
			Data:   scoresData{Dataset: *ds, Pivot: pivot, Failed: failures},
		})
	}

	table, err := tabular.Render(pivot, renderAs)
	if err != nil {
		return nil, err
	}
	if renderAs != tabular.FormatMarkdown {
		return textResult(table), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### Visibility scores %s to %s\n\n", start, end)
	b.WriteString(table)
	b.WriteString("\n### Entity statistics\n\n")
	b.WriteString(tabular.RenderStats(pivot))
	if len(failures) > 0 {
		b.WriteString("\n### Failed models\n\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "- %s: %s\n", f.Model, f.Error)
		}
	}
	return textResult(b.String()), nil
}
