/*
recommend.go - Weakest-SDG recommendation generator

PURPOSE:
  Reads the organization-wide SDG distribution, finds the goal with the
  fewest approved activities, and surfaces either a matching upcoming
  opportunity (promote it) or a generic partnership suggestion (none
  exists). "other" never competes: unclassified activities say nothing
  about goal coverage.

TIE-BREAK:
  On equal counts the first code in canonical SDG-number order wins, so the
  recommendation is deterministic from the same data.
*/
package metrics

import (
	"context"
	"fmt"

	"github.com/greenflow/impact-engine/csr"
)

// WeakestSDG returns the goal with the minimum approved-activity count.
// Goals with zero activities count as zero. First code in canonical order
// wins ties.
func WeakestSDG(counts map[csr.SDGCode]int) (csr.SDGCode, int) {
	weakest := csr.SDG1
	minCount := -1
	for _, code := range csr.AllSDGCodes() {
		c := counts[code]
		if minCount < 0 || c < minCount {
			weakest, minCount = code, c
		}
	}
	return weakest, minCount
}

// BuildRecommendation generates the dashboard insight for the current SDG
// distribution, looking up one open opportunity tagged with the weakest
// goal.
func BuildRecommendation(ctx context.Context, opportunities csr.OpportunityStore, counts map[csr.SDGCode]int) (csr.Recommendation, error) {
	weakest, count := WeakestSDG(counts)

	rec := csr.Recommendation{
		WeakestSDG:    weakest,
		ActivityCount: count,
		Insight: fmt.Sprintf("Our contributions for %s are currently the lowest, with only %d approved activit(y/ies).",
			weakest.Label(), count),
	}

	opp, err := opportunities.FindOpportunityBySDG(ctx, weakest)
	if err != nil {
		return rec, err
	}

	if opp != nil {
		rec.Opportunity = opp
		rec.Suggestion = fmt.Sprintf("Promote the upcoming '%s' event, which directly supports this goal. Consider offering 1.5x bonus points for participation.",
			opp.Name)
	} else {
		rec.Suggestion = "No upcoming opportunities match this SDG. We should partner with an NGO focused on this area."
	}
	return rec, nil
}
