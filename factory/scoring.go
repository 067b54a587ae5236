/*
Package factory provides JSON to Go config conversion for the scoring and
estimation parameters.

PURPOSE:
  Converts JSON scoring definitions into csr.ScoringConfig. This enables
  tuning the impact model without code changes - the sustainability team
  can adjust rates, move the lagging-goal bonus to a different SDG, or
  change which goals earn carbon offsets, all in JSON.

JSON SCHEMA:
  {
    "points_per_hour": 10,
    "donation_rate": 0.5,
    "lagging_sdg": "sdg14",
    "lagging_bonus": 0.5,
    "offset_per_hour": 5.0,
    "offset_eligible": ["sdg13", "sdg14", "sdg15"]
  }

  Omitted fields keep their defaults, so "{}" parses to the production
  configuration.

USAGE:
  cfg, err := factory.ParseScoringConfig(jsonStr)
  deriver := &csr.Deriver{Classifier: classifier, Scoring: cfg}

SEE ALSO:
  - csr/impact.go: ScoringConfig and the formulas it feeds
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/greenflow/impact-engine/csr"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ScoringJSON is the JSON representation of the scoring parameters.
// Pointer fields distinguish "omitted" (keep default) from explicit zero.
type ScoringJSON struct {
	PointsPerHour  *float64 `json:"points_per_hour,omitempty"`
	DonationRate   *float64 `json:"donation_rate,omitempty"`
	LaggingSDG     *string  `json:"lagging_sdg,omitempty"`
	LaggingBonus   *float64 `json:"lagging_bonus,omitempty"`
	OffsetPerHour  *float64 `json:"offset_per_hour,omitempty"`
	OffsetEligible []string `json:"offset_eligible,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseScoringConfig parses a JSON string into a ScoringConfig, applying
// the production defaults for omitted fields.
func ParseScoringConfig(jsonStr string) (csr.ScoringConfig, error) {
	cfg := csr.DefaultScoringConfig()
	if jsonStr == "" {
		return cfg, nil
	}

	var sj ScoringJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return cfg, fmt.Errorf("failed to parse scoring JSON: %w", err)
	}

	if sj.PointsPerHour != nil {
		cfg.PointsPerHour = decimal.NewFromFloat(*sj.PointsPerHour)
	}
	if sj.DonationRate != nil {
		cfg.DonationRate = decimal.NewFromFloat(*sj.DonationRate)
	}
	if sj.LaggingSDG != nil {
		code := csr.SDGCode(*sj.LaggingSDG)
		if code != "" && !csr.ValidSDGCode(code) {
			return cfg, fmt.Errorf("unknown lagging_sdg: %q", *sj.LaggingSDG)
		}
		cfg.LaggingSDG = code
	}
	if sj.LaggingBonus != nil {
		cfg.LaggingBonus = decimal.NewFromFloat(*sj.LaggingBonus)
	}
	if sj.OffsetPerHour != nil {
		cfg.OffsetPerHour = decimal.NewFromFloat(*sj.OffsetPerHour)
	}
	if sj.OffsetEligible != nil {
		eligible := make(map[csr.SDGCode]bool, len(sj.OffsetEligible))
		for _, s := range sj.OffsetEligible {
			code := csr.SDGCode(s)
			if !csr.ValidSDGCode(code) {
				return cfg, fmt.Errorf("unknown offset_eligible code: %q", s)
			}
			eligible[code] = true
		}
		cfg.OffsetEligible = eligible
	}

	return cfg, nil
}
