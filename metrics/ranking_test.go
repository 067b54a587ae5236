package metrics_test

import (
	"fmt"
	"testing"

	"github.com/greenflow/impact-engine/csr"
	"github.com/greenflow/impact-engine/metrics"
)

func TestRankProfiles_OrdersByTotalDescending(t *testing.T) {
	// GIVEN: Three profiles with distinct totals
	// WHEN: Ranking
	// THEN: Highest total takes #1

	profiles := []csr.Profile{
		{ID: "a", TotalImpactPoints: 50},
		{ID: "b", TotalImpactPoints: 200},
		{ID: "c", TotalImpactPoints: 120},
	}

	metrics.RankProfiles(profiles)

	if profiles[1].RankDisplay != "#1" || profiles[2].RankDisplay != "#2" || profiles[0].RankDisplay != "#3" {
		t.Errorf("unexpected ranks: %s %s %s",
			profiles[0].RankDisplay, profiles[1].RankDisplay, profiles[2].RankDisplay)
	}
}

func TestRankProfiles_TiesKeepFirstSeenOrder(t *testing.T) {
	// GIVEN: Two profiles with equal totals, in creation order
	// WHEN: Ranking
	// THEN: The earlier-created profile ranks ahead

	profiles := []csr.Profile{
		{ID: "older", TotalImpactPoints: 100},
		{ID: "newer", TotalImpactPoints: 100},
	}

	metrics.RankProfiles(profiles)

	if profiles[0].RankDisplay != "#1" {
		t.Errorf("expected older profile at #1, got %s", profiles[0].RankDisplay)
	}
	if profiles[1].RankDisplay != "#2" {
		t.Errorf("expected newer profile at #2, got %s", profiles[1].RankDisplay)
	}
}

func TestRankProfiles_TwoIndependentKeys(t *testing.T) {
	// GIVEN: A profile leading on total but trailing on improvement
	// WHEN: Ranking
	// THEN: The two rank sets disagree

	profiles := []csr.Profile{
		{ID: "veteran", TotalImpactPoints: 500, PointImprovement: 10},
		{ID: "riser", TotalImpactPoints: 80, PointImprovement: 80},
	}

	metrics.RankProfiles(profiles)

	if profiles[0].RankDisplay != "#1" || profiles[0].ImprovementRankDisplay != "#2" {
		t.Errorf("veteran: got %s / %s", profiles[0].RankDisplay, profiles[0].ImprovementRankDisplay)
	}
	if profiles[1].RankDisplay != "#2" || profiles[1].ImprovementRankDisplay != "#1" {
		t.Errorf("riser: got %s / %s", profiles[1].RankDisplay, profiles[1].ImprovementRankDisplay)
	}
}

func TestRankProfiles_PermutationInvariant(t *testing.T) {
	// Both rank sets must be a permutation of #1..#N regardless of ties.
	profiles := make([]csr.Profile, 6)
	totals := []int{10, 10, 30, 0, 30, 10}
	for i := range profiles {
		profiles[i] = csr.Profile{
			ID:                csr.ProfileID(fmt.Sprintf("p%d", i)),
			TotalImpactPoints: totals[i],
			PointImprovement:  totals[i] % 3,
		}
	}

	metrics.RankProfiles(profiles)

	seenTotal := make(map[string]bool)
	seenImprovement := make(map[string]bool)
	for _, p := range profiles {
		seenTotal[p.RankDisplay] = true
		seenImprovement[p.ImprovementRankDisplay] = true
	}
	for i := 1; i <= len(profiles); i++ {
		want := fmt.Sprintf("#%d", i)
		if !seenTotal[want] {
			t.Errorf("total ranks missing %s", want)
		}
		if !seenImprovement[want] {
			t.Errorf("improvement ranks missing %s", want)
		}
	}
}
