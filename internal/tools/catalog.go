package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/getmint-ai/visibility-mcp/internal/catalog"
	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
)

// catalogArgs is empty: list_catalog takes no arguments.
type catalogArgs struct{}

type catalogPayload struct {
	Status string      `json:"status"`
	Data   catalogData `json:"data"`
}

type catalogData struct {
	Domains []mintapi.Domain        `json:"domains"`
	Topics  []catalog.Topic         `json:"topics"`
	Mapping map[string]catalog.Ref  `json:"mapping"`
	Summary catalogSummary          `json:"summary"`
	Failed  []catalog.DomainFailure `json:"failedDomains,omitempty"`
}

type catalogSummary struct {
	TotalDomains int `json:"totalDomains"`
	TotalTopics  int `json:"totalTopics"`
}

func (r *Registry) listCatalog(ctx context.Context, _ catalogArgs) (*mcp.CallToolResult, error) {
	cat, err := catalog.Resolve(ctx, r.api)
	if err != nil {
		return nil, err
	}

	domains := cat.Domains
	if domains == nil {
		domains = []mintapi.Domain{}
	}
	topics := cat.Topics
	if topics == nil {
		topics = []catalog.Topic{}
	}

	return jsonResult(catalogPayload{
		Status: "success",
		Data: catalogData{
			Domains: domains,
			Topics:  topics,
			Mapping: cat.NameIndex,
			Summary: catalogSummary{
				TotalDomains: len(domains),
				TotalTopics:  len(topics),
			},
			Failed: cat.Failed,
		},
	})
}
