package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/getmint-ai/visibility-mcp/internal/mintapi"
)

// Credential reports ready only when the Mint client holds an API key.
// The server boots without one, but it cannot serve tool calls until the
// credential arrives, and orchestrators should see that.
func Credential(c *mintapi.Client) Checker {
	return Checker{
		Name: "credential",
		Check: func(context.Context) error {
			if !c.HasKey() {
				return errors.New("no Mint API key configured")
			}
			return nil
		},
	}
}

// domainLister is the one Mint call the readiness probe exercises.
type domainLister interface {
	Domains(ctx context.Context) ([]mintapi.Domain, error)
}

// Upstream reports ready when the Mint API answers the domain listing,
// the same call the catalog tool opens with.
func Upstream(api domainLister) Checker {
	return Checker{
		Name: "mint_api",
		Check: func(ctx context.Context) error {
			if _, err := api.Domains(ctx); err != nil {
				return fmt.Errorf("list domains: %w", err)
			}
			return nil
		},
	}
}
