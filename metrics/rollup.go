/*
Package metrics implements the CSR aggregation engine.

PURPOSE:
  Layered rollups over activity records:

    Activity -> EmployeeRollup -> Ranking
            \-> DepartmentRollup -> OrganizationDashboard -> Recommendation

  Every rollup is a derived aggregate with a stored cache: the compute
  functions in this package are pure, and the Engine (engine.go) persists
  their results when a triggering action fires (approve, reject, refresh,
  budget change). Reads never recompute.

KEY INVARIANTS:
  - Only approved activities contribute to any total
  - An employee's total points equal the sum of its approved activities'
    points at all times after a recompute
  - carbon_used may go negative (offsets exceeding the simulated 50% base
    usage); intentionally not clamped

ROLLUP FILES:
  rollup.go:    Employee and department computations (this file)
  ranking.go:   Two-key dense ranking over the population
  recommend.go: Weakest-SDG recommendation generator
  engine.go:    Workflow transitions and the recompute cascade

SEE ALSO:
  - csr/impact.go: Per-activity derivation feeding these rollups
*/
package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/greenflow/impact-engine/csr"
)

// =============================================================================
// EMPLOYEE ROLLUP
// =============================================================================

// RecomputeProfileTotals rewrites p's rollup fields from its activities.
// Only approved activities count. The historical window for
// LastQuarterPoints is [asOf-180d, asOf-90d); PointImprovement is
// total - lastQuarter and is not clamped.
//
// Rank displays are NOT touched here: ranks depend on the whole population
// and are assigned by RankProfiles.
func RecomputeProfileTotals(p *csr.Profile, activities []csr.Activity, asOf csr.TimePoint) {
	hours := csr.ZeroAmount(csr.UnitHours)
	donations := csr.ZeroAmount(csr.UnitUSD)
	total := 0
	lastQuarter := 0

	for _, a := range activities {
		if !a.IsApproved() {
			continue
		}
		hours = hours.Add(a.Hours)
		donations = donations.Add(a.Donation)
		total += a.ImpactPoints
		if csr.InQuarterWindow(a.Date, asOf) {
			lastQuarter += a.ImpactPoints
		}
	}

	p.VolunteeringHours = hours
	p.DonationAmount = donations
	p.TotalImpactPoints = total
	p.LastQuarterPoints = lastQuarter
	p.PointImprovement = total - lastQuarter
}

// =============================================================================
// DEPARTMENT ROLLUP
// =============================================================================

var half = decimal.NewFromFloat(0.5)
var hundred = decimal.NewFromInt(100)

// RecomputeDepartmentMetrics rewrites d's derived metrics from the approved
// activities of its employees.
//
// CarbonUsed simulates actual usage as 50% of budget minus offsets, pending
// real usage metering. It may go negative (offsets exceeding the simulated
// base usage) and is deliberately not clamped.
func RecomputeDepartmentMetrics(d *csr.Department, approved []csr.Activity) {
	offset := csr.ZeroAmount(csr.UnitKgCO2)
	for _, a := range approved {
		if a.IsApproved() && a.DepartmentID == d.ID {
			offset = offset.Add(a.CarbonOffset)
		}
	}

	d.TotalCarbonOffset = offset
	d.CarbonUsed = csr.Amount{
		Value: d.CarbonBudget.Value.Mul(half).Sub(offset.Value),
		Unit:  csr.UnitKgCO2,
	}

	if d.CarbonBudget.IsPositive() {
		d.BudgetUsagePercent = d.CarbonUsed.Value.Div(d.CarbonBudget.Value).Mul(hundred)
	} else {
		d.BudgetUsagePercent = decimal.Zero
	}
}

// =============================================================================
// ORGANIZATION ROLLUP
// =============================================================================

// OrganizationTotals aggregates across all approved activities and all
// department rollups. Departments must already be recomputed; the engine
// forces that before calling this.
func OrganizationTotals(approved []csr.Activity, departments []csr.Department) (activityCount int, offsetSum, budgetSum, usedSum csr.Amount, usagePct float64) {
	offsetSum = csr.ZeroAmount(csr.UnitKgCO2)
	for _, a := range approved {
		if !a.IsApproved() {
			continue
		}
		activityCount++
		offsetSum = offsetSum.Add(a.CarbonOffset)
	}

	budgetSum = csr.ZeroAmount(csr.UnitKgCO2)
	usedSum = csr.ZeroAmount(csr.UnitKgCO2)
	for _, d := range departments {
		budgetSum = budgetSum.Add(d.CarbonBudget)
		usedSum = usedSum.Add(d.CarbonUsed)
	}

	if budgetSum.IsPositive() {
		pct, _ := usedSum.Value.Div(budgetSum.Value).Mul(hundred).Float64()
		usagePct = pct
	}
	return activityCount, offsetSum, budgetSum, usedSum, usagePct
}

// CountBySDG tallies approved activities per SDG code.
func CountBySDG(approved []csr.Activity) map[csr.SDGCode]int {
	counts := make(map[csr.SDGCode]int)
	for _, a := range approved {
		if a.IsApproved() {
			counts[a.SDGCategory]++
		}
	}
	return counts
}
