/*
impact.go - Carbon offset estimation, impact scoring, and derivation

PURPOSE:
  The per-activity derivation pipeline. On every mutation of description,
  hours, donation or status the three derived fields are recomputed in
  order:

    1. SDGCategory   <- classifier (external + fallback)
    2. CarbonOffset  <- (SDGCategory, Hours)
    3. ImpactPoints  <- (Hours, Donation, SDGCategory, Status)

  Offset and scoring are pure functions. Derivation is idempotent: running
  it twice with unchanged inputs yields identical outputs.

SCORING MODEL:
  base           = hours * PointsPerHour          (default 10)
  donation_bonus = donation * DonationRate        (default 0.5)
  sdg_bonus      = base * LaggingBonus            when SDG == LaggingSDG
  points         = floor(base + donation_bonus + sdg_bonus)

  The lagging-goal bonus models the organization steering effort toward its
  weakest SDG. It defaults to SDG 14 at 0.5x base (i.e. 1.5x total), and is
  configurable through factory.ParseScoringConfig.

  Points exist only while approved: any status other than approved scores 0,
  and leaving approved re-zeroes the stored points.

SEE ALSO:
  - classify.go: Classification step
  - factory/scoring.go: Config-driven scoring parameters
  - metrics/engine.go: Triggers derivation on workflow transitions
*/
package csr

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCORING CONFIG
// =============================================================================

// ScoringConfig holds the tunable parameters of the estimation and scoring
// formulas. DefaultScoringConfig reproduces the production constants.
type ScoringConfig struct {
	// PointsPerHour is the base rate for volunteering hours.
	PointsPerHour decimal.Decimal

	// DonationRate converts donated currency into points.
	DonationRate decimal.Decimal

	// LaggingSDG receives a bonus multiplier on the hour base.
	// Empty disables the bonus.
	LaggingSDG SDGCode

	// LaggingBonus is the bonus as a fraction of base (0.5 = +50%).
	LaggingBonus decimal.Decimal

	// OffsetPerHour is the kg CO2 credited per hour for offset-eligible SDGs.
	OffsetPerHour decimal.Decimal

	// OffsetEligible lists the SDGs whose activities earn carbon offsets.
	OffsetEligible map[SDGCode]bool
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		PointsPerHour: decimal.NewFromInt(10),
		DonationRate:  decimal.NewFromFloat(0.5),
		LaggingSDG:    SDG14,
		LaggingBonus:  decimal.NewFromFloat(0.5),
		OffsetPerHour: decimal.NewFromInt(5),
		OffsetEligible: map[SDGCode]bool{
			SDG13: true,
			SDG14: true,
			SDG15: true,
		},
	}
}

// =============================================================================
// OFFSET ESTIMATOR
// =============================================================================

// EstimateCarbonOffset returns the estimated kg CO2 offset for an activity.
// Only environmental SDGs (13, 14, 15 by default) earn offsets. Negative
// hours are treated as zero; validation of non-negativity is the caller's
// job.
func EstimateCarbonOffset(cfg ScoringConfig, sdg SDGCode, hours Amount) Amount {
	if !cfg.OffsetEligible[sdg] || !hours.IsPositive() {
		return ZeroAmount(UnitKgCO2)
	}
	return Amount{Value: hours.Value.Mul(cfg.OffsetPerHour), Unit: UnitKgCO2}
}

// =============================================================================
// IMPACT SCORER
// =============================================================================

// ScoreImpactPoints returns the integer impact points for an activity.
// Non-approved activities always score 0.
func ScoreImpactPoints(cfg ScoringConfig, sdg SDGCode, hours, donation Amount, status ActivityStatus) int {
	if status != StatusApproved {
		return 0
	}

	h := hours.Value
	if h.IsNegative() {
		h = decimal.Zero
	}
	d := donation.Value
	if d.IsNegative() {
		d = decimal.Zero
	}

	base := h.Mul(cfg.PointsPerHour)
	total := base.Add(d.Mul(cfg.DonationRate))
	if cfg.LaggingSDG != "" && sdg == cfg.LaggingSDG {
		total = total.Add(base.Mul(cfg.LaggingBonus))
	}

	return int(total.Floor().IntPart())
}

// =============================================================================
// DERIVER - Orchestrates the three-step derivation
// =============================================================================

// Deriver recomputes an activity's derived fields in dependency order.
type Deriver struct {
	Classifier Classifier
	Scoring    ScoringConfig
}

// NewDeriver builds a deriver with the default scoring config. classifier
// must never fail; wrap external classifiers in a ResilientClassifier.
func NewDeriver(classifier Classifier) *Deriver {
	return &Deriver{
		Classifier: classifier,
		Scoring:    DefaultScoringConfig(),
	}
}

// Derive rewrites the derived fields on a from its current inputs.
// It never returns an error: classification failures are absorbed by the
// classifier contract, and estimation/scoring are pure.
func (d *Deriver) Derive(ctx context.Context, a *Activity) {
	code, err := d.Classifier.ClassifySDG(ctx, a.Description)
	if err != nil || !ValidSDGCode(code) {
		// Classifier contract violated; keep a valid code regardless.
		code = SDGOther
	}
	a.SDGCategory = code
	a.CarbonOffset = EstimateCarbonOffset(d.Scoring, a.SDGCategory, a.Hours)
	a.ImpactPoints = ScoreImpactPoints(d.Scoring, a.SDGCategory, a.Hours, a.Donation, a.Status)
}
