package csr_test

import (
	"context"
	"errors"
	"testing"

	"github.com/greenflow/impact-engine/csr"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func hours(n float64) csr.Amount {
	return csr.NewAmount(n, csr.UnitHours)
}

func dollars(n float64) csr.Amount {
	return csr.NewAmount(n, csr.UnitUSD)
}

func approvedActivity(description string, h, donation float64) csr.Activity {
	return csr.Activity{
		ID:          "act-1",
		ProfileID:   "prof-1",
		Name:        "test",
		Description: description,
		Date:        csr.Today(),
		Hours:       hours(h),
		Donation:    dollars(donation),
		Status:      csr.StatusApproved,
	}
}

// =============================================================================
// OFFSET ESTIMATOR TESTS
// =============================================================================

func TestEstimateCarbonOffset_EligibleSDG(t *testing.T) {
	// GIVEN: 4 hours of forest work (SDG 15, offset eligible)
	// WHEN: Estimating the offset
	// THEN: 4 x 5 = 20 kg CO2

	cfg := csr.DefaultScoringConfig()
	got := csr.EstimateCarbonOffset(cfg, csr.SDG15, hours(4))

	if got.Float64() != 20 {
		t.Errorf("expected 20 kg offset, got %v", got)
	}
	if got.Unit != csr.UnitKgCO2 {
		t.Errorf("expected kg_co2 unit, got %s", got.Unit)
	}
}

func TestEstimateCarbonOffset_IneligibleSDG(t *testing.T) {
	// GIVEN: Tutoring hours (SDG 4, not offset eligible)
	// WHEN: Estimating the offset
	// THEN: Zero regardless of hours

	cfg := csr.DefaultScoringConfig()
	got := csr.EstimateCarbonOffset(cfg, csr.SDG4, hours(100))

	if !got.IsZero() {
		t.Errorf("expected zero offset for SDG 4, got %v", got)
	}
}

func TestEstimateCarbonOffset_ZeroHours(t *testing.T) {
	cfg := csr.DefaultScoringConfig()

	if got := csr.EstimateCarbonOffset(cfg, csr.SDG13, hours(0)); !got.IsZero() {
		t.Errorf("expected zero offset for zero hours, got %v", got)
	}
	if got := csr.EstimateCarbonOffset(cfg, csr.SDG13, hours(-2)); !got.IsZero() {
		t.Errorf("expected zero offset for negative hours, got %v", got)
	}
}

// =============================================================================
// IMPACT SCORER TESTS
// =============================================================================

func TestScoreImpactPoints_HoursAndDonation(t *testing.T) {
	// GIVEN: Approved activity with 5 hours and $50 donated
	// WHEN: Scoring
	// THEN: 5*10 + 50*0.5 = 75 points

	cfg := csr.DefaultScoringConfig()
	got := csr.ScoreImpactPoints(cfg, csr.SDG2, hours(5), dollars(50), csr.StatusApproved)

	if got != 75 {
		t.Errorf("expected 75 points, got %d", got)
	}
}

func TestScoreImpactPoints_LaggingSDGBonus(t *testing.T) {
	// GIVEN: Approved SDG 14 activity with 3 hours
	// WHEN: Scoring
	// THEN: base 30 plus 50% of base = 45 points; the bonus applies to
	//       the hours base only, not the donation component

	cfg := csr.DefaultScoringConfig()

	if got := csr.ScoreImpactPoints(cfg, csr.SDG14, hours(3), dollars(0), csr.StatusApproved); got != 45 {
		t.Errorf("expected 45 points with bonus, got %d", got)
	}
	if got := csr.ScoreImpactPoints(cfg, csr.SDG14, hours(3), dollars(10), csr.StatusApproved); got != 50 {
		t.Errorf("expected 50 points (30 + 5 donation + 15 bonus), got %d", got)
	}
}

func TestScoreImpactPoints_FractionFloored(t *testing.T) {
	// GIVEN: Values that produce a fractional total
	// WHEN: Scoring
	// THEN: Floored to an integer, never rounded up

	cfg := csr.DefaultScoringConfig()
	got := csr.ScoreImpactPoints(cfg, csr.SDGOther, hours(0.25), dollars(1), csr.StatusApproved)

	// 2.5 + 0.5 = 3.0 exactly; and 0.27 hours -> 2.7 + 0.5 = 3.2 -> 3
	if got != 3 {
		t.Errorf("expected 3 points, got %d", got)
	}
	got = csr.ScoreImpactPoints(cfg, csr.SDGOther, hours(0.27), dollars(1), csr.StatusApproved)
	if got != 3 {
		t.Errorf("expected floor to 3 points, got %d", got)
	}
}

func TestScoreImpactPoints_NonApprovedScoresZero(t *testing.T) {
	cfg := csr.DefaultScoringConfig()

	for _, status := range []csr.ActivityStatus{csr.StatusDraft, csr.StatusSubmitted, csr.StatusRejected} {
		if got := csr.ScoreImpactPoints(cfg, csr.SDG15, hours(10), dollars(100), status); got != 0 {
			t.Errorf("status %s: expected 0 points, got %d", status, got)
		}
	}
}

// =============================================================================
// DERIVER TESTS
// =============================================================================

func TestDerive_FullPipeline(t *testing.T) {
	// GIVEN: An approved tree-planting activity, 4 hours
	// WHEN: Deriving
	// THEN: SDG 15, 20 kg offset, 40 points

	d := csr.NewDeriver(csr.KeywordClassifier{})
	a := approvedActivity("Planted trees in the forest reserve", 4, 0)

	d.Derive(context.Background(), &a)

	if a.SDGCategory != csr.SDG15 {
		t.Errorf("expected sdg15, got %s", a.SDGCategory)
	}
	if a.CarbonOffset.Float64() != 20 {
		t.Errorf("expected 20 kg offset, got %v", a.CarbonOffset)
	}
	if a.ImpactPoints != 40 {
		t.Errorf("expected 40 points, got %d", a.ImpactPoints)
	}
}

func TestDerive_MarineActivityWithDonation(t *testing.T) {
	// GIVEN: An approved marine cleanup, 2 hours and $100 donated
	// WHEN: Deriving
	// THEN: SDG 14, 10 kg offset, floor(20 + 50 + 10) = 80 points;
	//       the lagging-goal bonus is half the hours base

	d := csr.NewDeriver(csr.KeywordClassifier{})
	a := approvedActivity("Beach cleanup and marine debris removal", 2, 100)

	d.Derive(context.Background(), &a)

	if a.SDGCategory != csr.SDG14 {
		t.Errorf("expected sdg14, got %s", a.SDGCategory)
	}
	if a.CarbonOffset.Float64() != 10 {
		t.Errorf("expected 10 kg offset, got %v", a.CarbonOffset)
	}
	if a.ImpactPoints != 80 {
		t.Errorf("expected 80 points, got %d", a.ImpactPoints)
	}
}

func TestDerive_Idempotent(t *testing.T) {
	// GIVEN: An already-derived activity
	// WHEN: Deriving again with unchanged inputs
	// THEN: Derived fields are unchanged

	d := csr.NewDeriver(csr.KeywordClassifier{})
	a := approvedActivity("Beach cleanup along the coast", 3, 0)

	d.Derive(context.Background(), &a)
	first := a
	d.Derive(context.Background(), &a)

	if a.SDGCategory != first.SDGCategory || a.ImpactPoints != first.ImpactPoints ||
		!a.CarbonOffset.Value.Equal(first.CarbonOffset.Value) {
		t.Errorf("derivation not idempotent: %+v vs %+v", first, a)
	}
}

func TestDerive_StatusChangeRescoresPoints(t *testing.T) {
	// GIVEN: A derived approved activity
	// WHEN: Re-deriving after rejection
	// THEN: Points drop to zero but classification and offset remain

	d := csr.NewDeriver(csr.KeywordClassifier{})
	a := approvedActivity("Mangrove forest restoration", 6, 0)

	d.Derive(context.Background(), &a)
	if a.ImpactPoints == 0 {
		t.Fatal("expected points while approved")
	}

	a.Status = csr.StatusRejected
	d.Derive(context.Background(), &a)

	if a.ImpactPoints != 0 {
		t.Errorf("expected 0 points after rejection, got %d", a.ImpactPoints)
	}
	if a.SDGCategory != csr.SDG15 {
		t.Errorf("classification should survive rejection, got %s", a.SDGCategory)
	}
	if a.CarbonOffset.IsZero() {
		t.Error("offset estimate should survive rejection")
	}
}

func TestDerive_BrokenClassifierFallsBackToOther(t *testing.T) {
	// GIVEN: A classifier that violates its contract
	// WHEN: Deriving
	// THEN: The activity still gets a valid category

	broken := csr.ClassifierFunc(func(context.Context, string) (csr.SDGCode, error) {
		return "sdg99", errors.New("boom")
	})
	d := csr.NewDeriver(broken)
	a := approvedActivity("whatever", 2, 0)

	d.Derive(context.Background(), &a)

	if a.SDGCategory != csr.SDGOther {
		t.Errorf("expected sdg_other fallback, got %s", a.SDGCategory)
	}
}
