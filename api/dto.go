/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/greenflow/impact-engine/csr"
	"github.com/greenflow/impact-engine/rewards"
)

// =============================================================================
// PROFILE TYPES
// =============================================================================

// ProfileDTO represents an employee profile with its rollup totals.
type ProfileDTO struct {
	ID                     string  `json:"id"`
	EmployeeID             string  `json:"employee_id"`
	Name                   string  `json:"name"`
	DepartmentID           string  `json:"department_id,omitempty"`
	ManagerID              string  `json:"manager_id,omitempty"`
	VolunteeringHours      float64 `json:"volunteering_hours"`
	DonationAmount         float64 `json:"donation_amount"`
	TotalImpactPoints      int     `json:"total_impact_points"`
	LastQuarterPoints      int     `json:"last_quarter_points"`
	PointImprovement       int     `json:"point_improvement"`
	RankDisplay            string  `json:"rank_display,omitempty"`
	ImprovementRankDisplay string  `json:"improvement_rank_display,omitempty"`
	CreatedAt              string  `json:"created_at,omitempty"`
}

// CreateProfileRequest is the request to create an employee profile.
type CreateProfileRequest struct {
	EmployeeID   string `json:"employee_id"`
	Name         string `json:"name"`
	DepartmentID string `json:"department_id,omitempty"`
	ManagerID    string `json:"manager_id,omitempty"`
}

func toProfileDTO(p csr.Profile) ProfileDTO {
	return ProfileDTO{
		ID:                     string(p.ID),
		EmployeeID:             p.EmployeeID,
		Name:                   p.Name,
		DepartmentID:           string(p.DepartmentID),
		ManagerID:              p.ManagerID,
		VolunteeringHours:      p.VolunteeringHours.Float64(),
		DonationAmount:         p.DonationAmount.Float64(),
		TotalImpactPoints:      p.TotalImpactPoints,
		LastQuarterPoints:      p.LastQuarterPoints,
		PointImprovement:       p.PointImprovement,
		RankDisplay:            p.RankDisplay,
		ImprovementRankDisplay: p.ImprovementRankDisplay,
		CreatedAt:              p.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// ACTIVITY TYPES
// =============================================================================

// ActivityDTO represents an activity with its derived fields.
type ActivityDTO struct {
	ID              string  `json:"id"`
	ProfileID       string  `json:"profile_id"`
	DepartmentID    string  `json:"department_id,omitempty"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Date            string  `json:"date"`
	Hours           float64 `json:"hours"`
	DonationAmount  float64 `json:"donation_amount"`
	Status          string  `json:"status"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	SDGCategory     string  `json:"sdg_category"`
	SDGLabel        string  `json:"sdg_label"`
	CarbonOffset    float64 `json:"carbon_offset_estimate"`
	ImpactPoints    int     `json:"impact_points"`
}

// SaveActivityRequest creates or updates an activity.
type SaveActivityRequest struct {
	ID             string  `json:"id,omitempty"`
	ProfileID      string  `json:"profile_id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Date           string  `json:"date,omitempty"` // YYYY-MM-DD
	Hours          float64 `json:"hours"`
	DonationAmount float64 `json:"donation_amount"`
}

// RejectRequest carries the required rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

func toActivityDTO(a csr.Activity) ActivityDTO {
	return ActivityDTO{
		ID:              string(a.ID),
		ProfileID:       string(a.ProfileID),
		DepartmentID:    string(a.DepartmentID),
		Name:            a.Name,
		Description:     a.Description,
		Date:            a.Date.String(),
		Hours:           a.Hours.Float64(),
		DonationAmount:  a.Donation.Float64(),
		Status:          string(a.Status),
		RejectionReason: a.RejectionReason,
		SDGCategory:     string(a.SDGCategory),
		SDGLabel:        a.SDGCategory.Label(),
		CarbonOffset:    a.CarbonOffset.Float64(),
		ImpactPoints:    a.ImpactPoints,
	}
}

// =============================================================================
// DEPARTMENT TYPES
// =============================================================================

// DepartmentDTO represents a department budget with its carbon metrics.
type DepartmentDTO struct {
	ID                 string  `json:"id"`
	DepartmentID       string  `json:"department_id"`
	Name               string  `json:"name"`
	CarbonBudget       float64 `json:"carbon_budget"`
	TotalCarbonOffset  float64 `json:"total_carbon_offset"`
	CarbonUsed         float64 `json:"carbon_used"`
	BudgetUsagePercent float64 `json:"budget_usage_percentage"`
}

// CreateDepartmentRequest creates a department budget record.
type CreateDepartmentRequest struct {
	DepartmentID string  `json:"department_id"`
	Name         string  `json:"name"`
	CarbonBudget float64 `json:"carbon_budget,omitempty"` // 0 = default
}

func toDepartmentDTO(d csr.Department) DepartmentDTO {
	pct, _ := d.BudgetUsagePercent.Float64()
	return DepartmentDTO{
		ID:                 string(d.ID),
		DepartmentID:       d.DepartmentID,
		Name:               d.Name,
		CarbonBudget:       d.CarbonBudget.Float64(),
		TotalCarbonOffset:  d.TotalCarbonOffset.Float64(),
		CarbonUsed:         d.CarbonUsed.Float64(),
		BudgetUsagePercent: pct,
	}
}

// =============================================================================
// DASHBOARD TYPES
// =============================================================================

// DashboardDTO is the organization-wide aggregate view.
type DashboardDTO struct {
	TotalApprovedActivities int     `json:"total_approved_activities"`
	TotalOffsetEstimate     float64 `json:"total_offset_estimate"`
	TotalCarbonBudget       float64 `json:"total_carbon_budget"`
	TotalCarbonUsed         float64 `json:"total_carbon_used"`
	BudgetUsagePercent      float64 `json:"budget_usage_percentage"`

	Recommendation RecommendationDTO `json:"recommendation"`
	RefreshedAt    string            `json:"refreshed_at"`
}

// RecommendationDTO names the weakest SDG and the suggested action.
type RecommendationDTO struct {
	WeakestSDG    string          `json:"weakest_sdg"`
	WeakestLabel  string          `json:"weakest_sdg_label"`
	ActivityCount int             `json:"activity_count"`
	Insight       string          `json:"insight"`
	Suggestion    string          `json:"suggestion"`
	Opportunity   *OpportunityDTO `json:"opportunity,omitempty"`
}

func toDashboardDTO(d csr.Dashboard) DashboardDTO {
	dto := DashboardDTO{
		TotalApprovedActivities: d.TotalApprovedActivities,
		TotalOffsetEstimate:     d.TotalOffsetEstimate.Float64(),
		TotalCarbonBudget:       d.TotalCarbonBudget.Float64(),
		TotalCarbonUsed:         d.TotalCarbonUsed.Float64(),
		BudgetUsagePercent:      d.BudgetUsagePercent,
		Recommendation: RecommendationDTO{
			WeakestSDG:    string(d.Recommendation.WeakestSDG),
			WeakestLabel:  d.Recommendation.WeakestSDG.Label(),
			ActivityCount: d.Recommendation.ActivityCount,
			Insight:       d.Recommendation.Insight,
			Suggestion:    d.Recommendation.Suggestion,
		},
		RefreshedAt: d.RefreshedAt.String(),
	}
	if o := d.Recommendation.Opportunity; o != nil {
		dto.Recommendation.Opportunity = toOpportunityDTOPtr(*o)
	}
	return dto
}

// =============================================================================
// REWARD TYPES
// =============================================================================

// RewardDTO represents a catalog item.
type RewardDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PointCost   int    `json:"point_cost"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// CreateRewardRequest adds a catalog item.
type CreateRewardRequest struct {
	Name        string `json:"name"`
	PointCost   int    `json:"point_cost"`
	Description string `json:"description,omitempty"`
}

// RedeemRequest spends points on a reward.
type RedeemRequest struct {
	EmployeeID string `json:"employee_id"`
}

// ReceiptDTO acknowledges a redemption.
type ReceiptDTO struct {
	Reward          RewardDTO `json:"reward"`
	PointsSpent     int       `json:"points_spent"`
	RemainingPoints int       `json:"remaining_points"`
	NotifiedID      string    `json:"notified_employee_id"`
	Message         string    `json:"message"`
}

func toRewardDTO(r csr.Reward) RewardDTO {
	return RewardDTO{
		ID:          string(r.ID),
		Name:        r.Name,
		PointCost:   r.PointCost,
		Description: r.Description,
		Active:      r.Active,
	}
}

func toReceiptDTO(rc rewards.Receipt) ReceiptDTO {
	return ReceiptDTO{
		Reward:          toRewardDTO(rc.Reward),
		PointsSpent:     rc.PointsSpent,
		RemainingPoints: rc.RemainingPoints,
		NotifiedID:      rc.NotifiedID,
		Message: "You have redeemed " + rc.Reward.Name +
			". Your manager has been notified for fulfillment.",
	}
}

// =============================================================================
// OPPORTUNITY TYPES
// =============================================================================

// OpportunityDTO represents an upcoming opportunity.
type OpportunityDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SourceOrg   string `json:"source_org"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	SDGCode     string `json:"sdg_code"`
	Description string `json:"description,omitempty"`
}

// SeedOpportunitiesRequest fetches and stores feed opportunities.
type SeedOpportunitiesRequest struct {
	SDGCodes []string `json:"sdg_codes"`
}

func toOpportunityDTO(o csr.Opportunity) OpportunityDTO {
	return *toOpportunityDTOPtr(o)
}

func toOpportunityDTOPtr(o csr.Opportunity) *OpportunityDTO {
	return &OpportunityDTO{
		ID:          string(o.ID),
		Name:        o.Name,
		SourceOrg:   o.SourceOrg,
		Date:        o.Date.String(),
		Location:    o.Location,
		SDGCode:     string(o.SDG),
		Description: o.Description,
	}
}

// =============================================================================
// SCENARIO AND ERROR TYPES
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// LoadScenarioRequest selects a scenario by ID.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
