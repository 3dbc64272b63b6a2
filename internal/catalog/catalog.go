// Package catalog resolves the Mint two-level hierarchy: brand domains
// and the topics tracked under each of them.
//
// Resolution is forgiving: a domain whose topic listing fails
// contributes zero topics and is recorded in [Catalog.Failed], but never
// fails the resolution as a whole. Only the initial domain listing is
// fatal.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/getmint-ai/visibility-mcp/internal/fanout"
	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
	"github.com/getmint-ai/visibility-mcp/internal/observe"
)

// topicBatchPause spaces the per-domain topic batches so a large account
// does not hammer the API.
const topicBatchPause = 250 * time.Millisecond

// API is the slice of the Mint client the resolver needs.
type API interface {
	Domains(ctx context.Context) ([]mintapi.Domain, error)
	Topics(ctx context.Context, domainID string) ([]mintapi.Topic, error)
}

var _ API = (*mintapi.Client)(nil)

// Topic is a topic tagged with its parent domain.
type Topic struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DomainID   string `json:"domainId"`
	DomainName string `json:"domainName"`
}

// Ref identifies one domain/topic pair by ID, the unit every visibility
// endpoint addresses. Name fields carry the human labels the IDs resolve
// from.
type Ref struct {
	DomainID   string `json:"domainId"`
	TopicID    string `json:"topicId"`
	DomainName string `json:"domainName"`
	TopicName  string `json:"topicName"`
}

// DomainFailure records a domain whose topic listing failed.
type DomainFailure struct {
	DomainID   string `json:"domainId"`
	DomainName string `json:"domainName"`
	Error      string `json:"error"`
}

// Catalog is the resolved hierarchy: the raw domain list, all topics
// flattened with their parent labels, and a "Domain > Topic" name index
// for resolving labels back to IDs.
type Catalog struct {
	Domains   []mintapi.Domain `json:"domains"`
	Topics    []Topic          `json:"topics"`
	NameIndex map[string]Ref   `json:"mapping"`
	Failed    []DomainFailure  `json:"failedDomains,omitempty"`
}

// Key builds the name-index key for a domain/topic label pair.
func Key(domainLabel, topicLabel string) string {
	return domainLabel + " > " + topicLabel
}

// Resolve fetches all domains, then every domain's topics in capped
// concurrent batches, and assembles the catalog. Topic ordering follows
// the API's domain order, then the API's topic order within a domain.
func Resolve(ctx context.Context, api API) (*Catalog, error) {
	domains, err := api.Domains(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list domains: %w", err)
	}

	cat := &Catalog{
		Domains:   domains,
		NameIndex: make(map[string]Ref),
	}

	opts := fanout.Options{BatchSize: fanout.DefaultBatchSize, Pause: topicBatchPause}
	results := fanout.Map(ctx, domains, opts, func(ctx context.Context, d mintapi.Domain) ([]mintapi.Topic, error) {
		return api.Topics(ctx, d.ID)
	})

	for _, r := range results {
		d := r.Item
		if r.Err != nil {
			observe.Logger(ctx).Warn("topic listing failed, domain skipped",
				"domain_id", d.ID, "domain", d.Label(), "err", r.Err)
			cat.Failed = append(cat.Failed, DomainFailure{
				DomainID:   d.ID,
				DomainName: d.Label(),
				Error:      r.Err.Error(),
			})
			continue
		}
		for _, t := range r.Value {
			cat.Topics = append(cat.Topics, Topic{
				ID:         t.ID,
				Name:       t.Label(),
				DomainID:   d.ID,
				DomainName: d.Label(),
			})
			cat.NameIndex[Key(d.Label(), t.Label())] = Ref{
				DomainID:   d.ID,
				TopicID:    t.ID,
				DomainName: d.Label(),
				TopicName:  t.Label(),
			}
		}
	}

	return cat, nil
}
