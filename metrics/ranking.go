/*
ranking.go - Two-key dense ranking over the employee population

PURPOSE:
  Orders all employee rollups by two independent keys (total impact points
  and point improvement, both descending) and assigns 1-based ranks with no
  gaps. Ties keep first-seen order: profiles arrive in creation order from
  the store, and the sort is stable, so two profiles with equal points rank
  in the order their profiles were created.

NOT INCREMENTAL:
  Ranks are recomputed globally whenever requested. Any single employee's
  change can shift every other employee's rank, so there is nothing useful
  to maintain incrementally at this population size. O(N log N) per call;
  revisit with a sorted-index structure if employee counts grow large.
*/
package metrics

import (
	"fmt"
	"sort"

	"github.com/greenflow/impact-engine/csr"
)

// rankOrder returns the indices of profiles sorted descending by key,
// stable on the input (first-seen) order.
func rankOrder(profiles []csr.Profile, key func(csr.Profile) int) []int {
	idx := make([]int, len(profiles))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return key(profiles[idx[a]]) > key(profiles[idx[b]])
	})
	return idx
}

// RankProfiles assigns RankDisplay and ImprovementRankDisplay across the
// whole population. profiles must be in first-seen order; both rank sets
// are a permutation of 1..N.
func RankProfiles(profiles []csr.Profile) {
	byTotal := rankOrder(profiles, func(p csr.Profile) int { return p.TotalImpactPoints })
	for pos, i := range byTotal {
		profiles[i].RankDisplay = fmt.Sprintf("#%d", pos+1)
	}

	byImprovement := rankOrder(profiles, func(p csr.Profile) int { return p.PointImprovement })
	for pos, i := range byImprovement {
		profiles[i].ImprovementRankDisplay = fmt.Sprintf("#%d", pos+1)
	}
}
