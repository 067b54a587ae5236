/*
Package csr provides the core domain model for the CSR impact engine.

PURPOSE:
  This package contains the domain types and the per-activity derivation
  pipeline. An employee logs a CSR activity (volunteering hours, a donation,
  a free-text description); the engine classifies it against the UN
  Sustainable Development Goals, estimates its carbon offset, and scores it
  in impact points. Higher-level rollups (employee, department, organization)
  live in the metrics package and consume the derived fields produced here.

KEY CONCEPTS IN THIS FILE (types.go):
  - SDGCode: One of the 17 canonical SDG codes, or "other"
  - Amount: A quantity with a unit (hours, dollars, kg CO2)
  - Activity: The unit record; owns three derived fields that are a pure
    function of (description, hours, donation, status)
  - Opportunity: An upcoming external volunteering/donation opportunity

DESIGN PRINCIPLES:
  1. Derivability: sdg_category, carbon_offset_estimate and impact_points
     must always be recomputable from the activity's own inputs
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing profile/department IDs
  4. Points leave with approval: impact_points is zero for any status other
     than approved

SEE ALSO:
  - classify.go: SDG classification with keyword fallback
  - impact.go: Offset estimation, point scoring, derivation orchestration
  - store.go: Persistence interfaces
*/
package csr

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SDG TAXONOMY
// =============================================================================

// SDGCode identifies one UN Sustainable Development Goal, or "other" when an
// activity could not be classified.
type SDGCode string

const (
	SDG1  SDGCode = "sdg1"
	SDG2  SDGCode = "sdg2"
	SDG3  SDGCode = "sdg3"
	SDG4  SDGCode = "sdg4"
	SDG5  SDGCode = "sdg5"
	SDG6  SDGCode = "sdg6"
	SDG7  SDGCode = "sdg7"
	SDG8  SDGCode = "sdg8"
	SDG9  SDGCode = "sdg9"
	SDG10 SDGCode = "sdg10"
	SDG11 SDGCode = "sdg11"
	SDG12 SDGCode = "sdg12"
	SDG13 SDGCode = "sdg13"
	SDG14 SDGCode = "sdg14"
	SDG15 SDGCode = "sdg15"
	SDG16 SDGCode = "sdg16"
	SDG17 SDGCode = "sdg17"

	// SDGOther marks activities that match no goal.
	SDGOther SDGCode = "other"
)

// sdgCanonical lists the 17 goals in canonical numeric order.
// Tie-breaks in the recommendation generator depend on this order.
var sdgCanonical = []SDGCode{
	SDG1, SDG2, SDG3, SDG4, SDG5, SDG6, SDG7, SDG8, SDG9,
	SDG10, SDG11, SDG12, SDG13, SDG14, SDG15, SDG16, SDG17,
}

// SDGLabels maps each code to its full UN name.
var SDGLabels = map[SDGCode]string{
	SDG1:     "SDG 1: No Poverty",
	SDG2:     "SDG 2: Zero Hunger",
	SDG3:     "SDG 3: Good Health and Well-being",
	SDG4:     "SDG 4: Quality Education",
	SDG5:     "SDG 5: Gender Equality",
	SDG6:     "SDG 6: Clean Water and Sanitation",
	SDG7:     "SDG 7: Affordable and Clean Energy",
	SDG8:     "SDG 8: Decent Work and Economic Growth",
	SDG9:     "SDG 9: Industry, Innovation, and Infrastructure",
	SDG10:    "SDG 10: Reduced Inequality",
	SDG11:    "SDG 11: Sustainable Cities and Communities",
	SDG12:    "SDG 12: Responsible Consumption and Production",
	SDG13:    "SDG 13: Climate Action",
	SDG14:    "SDG 14: Life Below Water",
	SDG15:    "SDG 15: Life on Land",
	SDG16:    "SDG 16: Peace and Justice Strong Institutions",
	SDG17:    "SDG 17: Partnerships to achieve the Goal",
	SDGOther: "Other/Not Classified",
}

// AllSDGCodes returns the 17 goal codes in canonical numeric order.
// Does not include SDGOther.
func AllSDGCodes() []SDGCode {
	out := make([]SDGCode, len(sdgCanonical))
	copy(out, sdgCanonical)
	return out
}

// ValidSDGCode reports whether s is one of the 18 known codes
// (17 goals plus "other").
func ValidSDGCode(s SDGCode) bool {
	_, ok := SDGLabels[s]
	return ok
}

// Label returns the full UN name for a code, or the raw code if unknown.
func (c SDGCode) Label() string {
	if label, ok := SDGLabels[c]; ok {
		return label
	}
	return string(c)
}

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitHours Unit = "hours"
	UnitUSD   Unit = "usd"
	UnitKgCO2 Unit = "kg_co2"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func ZeroAmount(unit Unit) Amount {
	return Amount{Value: decimal.Zero, Unit: unit}
}

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount {
	return Amount{Value: a.Value.Mul(s), Unit: a.Unit}
}
func (a Amount) Neg() Amount         { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool    { return a.Value.IsNegative() }
func (a Amount) IsZero() bool        { return a.Value.IsZero() }
func (a Amount) IsPositive() bool    { return a.Value.IsPositive() }
func (a Amount) Float64() float64    { f, _ := a.Value.Float64(); return f }
func (a Amount) String() string      { return a.Value.String() + " " + string(a.Unit) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ActivityID string
type ProfileID string
type DepartmentID string
type RewardID string
type OpportunityID string

// =============================================================================
// ACTIVITY - Unit record of the aggregation pipeline
// =============================================================================

type ActivityStatus string

const (
	StatusDraft     ActivityStatus = "draft"
	StatusSubmitted ActivityStatus = "submitted"
	StatusApproved  ActivityStatus = "approved"
	StatusRejected  ActivityStatus = "rejected"
)

func ValidStatus(s ActivityStatus) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Activity is one logged CSR contribution by an employee.
//
// The three Derived* fields are a cache: they are a pure function of
// (Description, Hours, Donation, Status) and are rewritten by Deriver.Derive
// on every mutation of those inputs. They are persisted so that reads never
// recompute, but they must always be re-derivable.
type Activity struct {
	ID        ActivityID
	ProfileID ProfileID

	// DepartmentID is derived from the owning profile and cached on the
	// activity so department rollups do not join through profiles.
	DepartmentID DepartmentID

	Name        string
	Description string
	Date        TimePoint
	Hours       Amount // unit: hours, >= 0
	Donation    Amount // unit: usd, >= 0

	Status          ActivityStatus
	RejectionReason string // cleared on approval

	// Derived fields (see Deriver)
	SDGCategory    SDGCode
	CarbonOffset   Amount // unit: kg_co2, zero unless SDG in {13,14,15}
	ImpactPoints   int    // zero unless approved

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the caller-supplied inputs. Derived fields are not
// validated here; they are overwritten on derivation.
func (a *Activity) Validate() error {
	if a.ProfileID == "" {
		return &FieldError{Field: "profile_id", Message: "activity requires an owning profile"}
	}
	if a.Hours.IsNegative() {
		return &FieldError{Field: "hours", Message: "hours must be non-negative"}
	}
	if a.Donation.IsNegative() {
		return &FieldError{Field: "donation_amount", Message: "donation amount must be non-negative"}
	}
	if a.Status != "" && !ValidStatus(a.Status) {
		return &FieldError{Field: "status", Message: "unknown status: " + string(a.Status)}
	}
	return nil
}

// IsApproved reports whether the activity currently earns points and offsets.
func (a *Activity) IsApproved() bool { return a.Status == StatusApproved }

// =============================================================================
// EMPLOYEE PROFILE - One per employee, owns its activities
// =============================================================================

// Profile is the per-employee CSR record. The rollup totals on it are
// recomputed by metrics.Engine whenever an owned activity changes; they are
// persisted, never recomputed on read.
type Profile struct {
	ID           ProfileID
	EmployeeID   string // unique: one profile per employee
	Name         string
	DepartmentID DepartmentID
	ManagerID    string // employee ID of the manager, empty if none

	// Rollup totals over approved activities only.
	VolunteeringHours Amount // unit: hours
	DonationAmount    Amount // unit: usd
	TotalImpactPoints int

	// LastQuarterPoints sums approved activities dated within
	// [today-180d, today-90d). PointImprovement = total - lastQuarter and
	// may be negative.
	LastQuarterPoints int
	PointImprovement  int

	// 1-based dense ranks across the whole population, "#n" display form.
	RankDisplay            string
	ImprovementRankDisplay string

	// Version is an optimistic-concurrency token. Every persisted write of
	// the rollup or a redemption deduction bumps it; compare-and-swap writes
	// fail with ErrConcurrentModification on mismatch.
	Version int

	CreatedAt time.Time
}

// =============================================================================
// DEPARTMENT - Carbon budget holder
// =============================================================================

// DefaultCarbonBudgetKg is the annual carbon budget assigned to a department
// when none is configured.
const DefaultCarbonBudgetKg = 10000.0

// Department carries a configured carbon budget and rollup metrics computed
// from approved activities of employees in the department. The department
// does not own activities; it aggregates them by filter.
type Department struct {
	ID           DepartmentID
	DepartmentID string // HR department identifier, unique
	Name         string

	CarbonBudget Amount // unit: kg_co2, configured

	// Derived (see metrics.RecomputeDepartment):
	TotalCarbonOffset Amount // sum of approved activities' offsets
	// CarbonUsed = 0.5*budget - offset. May go negative; placeholder until
	// real usage metering exists.
	CarbonUsed         Amount
	BudgetUsagePercent decimal.Decimal // 0 when budget <= 0

	CreatedAt time.Time
}

// =============================================================================
// REWARD CATALOG
// =============================================================================

type Reward struct {
	ID          RewardID
	Name        string
	PointCost   int // > 0
	Description string
	Active      bool
	CreatedAt   time.Time
}

func (r *Reward) Validate() error {
	if r.Name == "" {
		return &FieldError{Field: "name", Message: "reward requires a name"}
	}
	if r.PointCost <= 0 {
		return &FieldError{Field: "point_cost", Message: "point cost must be positive"}
	}
	return nil
}

// =============================================================================
// OPPORTUNITY - Upcoming external event, referenced by recommendations
// =============================================================================

type Opportunity struct {
	ID          OpportunityID
	Name        string
	SourceOrg   string
	Date        TimePoint
	Location    string
	SDG         SDGCode
	Description string
	CreatedAt   time.Time
}
