/*
Package feed sources upcoming CSR opportunities from an external project
feed.

PURPOSE:
  Opportunities power the dashboard recommendation: when coverage of an SDG
  is weak, the engine surfaces a matching upcoming event. This package
  fetches candidate opportunities from a feed; the recommendation lookup
  itself always queries locally stored records, so the feed is used only
  for informational seeding.

  The production feed integration is simulated for now: the Simulated
  fetcher fabricates one plausible project per requested SDG, matching the
  shape a real project-feed response would have.
*/
package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/greenflow/impact-engine/csr"
)

// Fetcher retrieves opportunities for a set of SDG codes.
type Fetcher interface {
	FetchOpportunities(ctx context.Context, sdgCodes []csr.SDGCode) ([]csr.Opportunity, error)
}

// Simulated fabricates one opportunity per requested SDG. Stands in for the
// real project-feed API.
type Simulated struct{}

var _ Fetcher = Simulated{}

func (Simulated) FetchOpportunities(_ context.Context, sdgCodes []csr.SDGCode) ([]csr.Opportunity, error) {
	out := make([]csr.Opportunity, 0, len(sdgCodes))
	for _, code := range sdgCodes {
		upper := strings.ToUpper(string(code))
		out = append(out, csr.Opportunity{
			ID:        csr.OpportunityID(uuid.NewString()),
			Name:      fmt.Sprintf("Simulated Project for %s", upper),
			SourceOrg: "Global Charity Partner",
			Date:      csr.Today(),
			Location:  "Virtual/Global",
			SDG:       code,
			Description: fmt.Sprintf("A high-impact project targeting %s to help the organization meet its sustainability goals.",
				upper),
		})
	}
	return out, nil
}

// Seed fetches opportunities for the given SDGs and stores them locally.
func Seed(ctx context.Context, f Fetcher, store csr.OpportunityStore, sdgCodes []csr.SDGCode) (int, error) {
	opportunities, err := f.FetchOpportunities(ctx, sdgCodes)
	if err != nil {
		return 0, err
	}
	for _, o := range opportunities {
		if err := store.SaveOpportunity(ctx, o); err != nil {
			return 0, err
		}
	}
	return len(opportunities), nil
}
