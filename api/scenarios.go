/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates departments, profiles,
	activities, and rewards that demonstrate specific features.

AVAILABLE SCENARIOS:

	green-team:        One department, mixed activities across SDGs
	carbon-hotspot:    Climate-tagged activities driving offset metrics
	quarter-momentum:  Activities spread over time showing improvement ranks
	rewards-program:   Reward catalog plus profiles ready to redeem

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create departments with carbon budgets
 3. Create employee profiles
 4. Create activities through the engine (derivation runs)
 5. Approve a subset so rollups and ranks populate
 6. Optionally seed rewards and opportunities
 7. Refresh the dashboard

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "green-team"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Request handlers and error mapping
  - metrics/engine.go: Derivation and recompute cascade
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/greenflow/impact-engine/csr"
	"github.com/greenflow/impact-engine/feed"
)

func newID() string {
	return uuid.NewString()
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "green-team",
		Name:        "Green Team",
		Description: "One department, activities across several SDGs with approvals",
		Category:    "metrics",
	},
	{
		ID:          "carbon-hotspot",
		Name:        "Carbon Hotspot",
		Description: "Climate activities (SDG 13/14/15) driving carbon offset metrics",
		Category:    "metrics",
	},
	{
		ID:          "quarter-momentum",
		Name:        "Quarter Momentum",
		Description: "Activities spread over two quarters showing improvement ranking",
		Category:    "metrics",
	},
	{
		ID:          "rewards-program",
		Name:        "Rewards Program",
		Description: "Reward catalog with profiles holding enough points to redeem",
		Category:    "rewards",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.loadedScenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          current,
		Name:        current,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("") // Clear current scenario on reset

	var err error
	switch req.ScenarioID {
	case "green-team":
		err = h.loadGreenTeamScenario(ctx)
	case "carbon-hotspot":
		err = h.loadCarbonHotspotScenario(ctx)
	case "quarter-momentum":
		err = h.loadQuarterMomentumScenario(ctx)
	case "rewards-program":
		err = h.loadRewardsProgramScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.setCurrentScenario(req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// scenarioActivity is the shorthand loaders use to seed activities.
type scenarioActivity struct {
	profile     csr.ProfileID
	name        string
	description string
	daysAgo     int
	hours       float64
	donation    float64
	approve     bool
}

func (h *Handler) seedActivities(ctx context.Context, items []scenarioActivity) error {
	today := csr.Today()
	for _, item := range items {
		a := csr.Activity{
			ProfileID:   item.profile,
			Name:        item.name,
			Description: item.description,
			Date:        today.AddDays(-item.daysAgo),
			Hours:       csr.NewAmount(item.hours, csr.UnitHours),
			Donation:    csr.NewAmount(item.donation, csr.UnitUSD),
			Status:      csr.StatusSubmitted,
		}
		saved, err := h.Engine.SaveActivity(ctx, a)
		if err != nil {
			return fmt.Errorf("seed activity %q: %w", item.name, err)
		}
		if item.approve {
			if _, err := h.Engine.Approve(ctx, []csr.ActivityID{saved.ID}); err != nil {
				return fmt.Errorf("approve activity %q: %w", item.name, err)
			}
		}
	}
	return nil
}

func (h *Handler) loadGreenTeamScenario(ctx context.Context) error {
	dept, err := h.Engine.CreateDepartment(ctx, csr.Department{
		DepartmentID: "dept-eng",
		Name:         "Engineering",
	})
	if err != nil {
		return err
	}

	alice, err := h.Engine.CreateProfile(ctx, csr.Profile{
		EmployeeID:   "emp-001",
		Name:         "Alice Johnson",
		DepartmentID: dept.ID,
		ManagerID:    "emp-003",
	})
	if err != nil {
		return err
	}
	bob, err := h.Engine.CreateProfile(ctx, csr.Profile{
		EmployeeID:   "emp-002",
		Name:         "Bob Smith",
		DepartmentID: dept.ID,
		ManagerID:    "emp-003",
	})
	if err != nil {
		return err
	}
	if _, err := h.Engine.CreateProfile(ctx, csr.Profile{
		EmployeeID:   "emp-003",
		Name:         "Carol Diaz",
		DepartmentID: dept.ID,
	}); err != nil {
		return err
	}

	return h.seedActivities(ctx, []scenarioActivity{
		{alice.ID, "Community Tree Planting", "Planted trees in the city forest reserve", 10, 4, 0, true},
		{alice.ID, "Beach Cleanup Day", "Collected plastic waste along the beach", 24, 3, 0, true},
		{bob.ID, "Weekend Tutoring", "Tutored math at the local school", 5, 2, 0, true},
		{bob.ID, "Charity Kitchen Shift", "Served meals at the charity kitchen", 17, 5, 50, true},
		{bob.ID, "Unverified Donation Drive", "Clothing donation for families in poverty", 2, 1, 200, false},
	})
}

func (h *Handler) loadCarbonHotspotScenario(ctx context.Context) error {
	green, err := h.Engine.CreateDepartment(ctx, csr.Department{
		DepartmentID: "dept-ops",
		Name:         "Operations",
		CarbonBudget: csr.NewAmount(2000, csr.UnitKgCO2),
	})
	if err != nil {
		return err
	}
	sales, err := h.Engine.CreateDepartment(ctx, csr.Department{
		DepartmentID: "dept-sales",
		Name:         "Sales",
		CarbonBudget: csr.NewAmount(500, csr.UnitKgCO2),
	})
	if err != nil {
		return err
	}

	dana, err := h.Engine.CreateProfile(ctx, csr.Profile{
		EmployeeID:   "emp-101",
		Name:         "Dana Lee",
		DepartmentID: green.ID,
	})
	if err != nil {
		return err
	}
	evan, err := h.Engine.CreateProfile(ctx, csr.Profile{
		EmployeeID:   "emp-102",
		Name:         "Evan Wright",
		DepartmentID: sales.ID,
	})
	if err != nil {
		return err
	}

	if err := h.seedActivities(ctx, []scenarioActivity{
		{dana.ID, "Mangrove Restoration", "Replanted mangrove forest along the coast", 7, 8, 0, true},
		{dana.ID, "River Cleanup", "Removed debris from the river to protect marine life", 14, 6, 0, true},
		{evan.ID, "Tree Nursery Volunteering", "Raised tree seedlings for urban planting", 3, 5, 0, true},
		{evan.ID, "Office Recycling Drive", "Organized a recycling awareness week", 9, 2, 0, true},
	}); err != nil {
		return err
	}

	// Give the recommendation something to point at.
	if _, err := feed.Seed(ctx, h.Feed, h.Store, csr.AllSDGCodes()); err != nil {
		return err
	}
	_, err = h.Engine.RefreshDashboard(ctx)
	return err
}

func (h *Handler) loadQuarterMomentumScenario(ctx context.Context) error {
	dept, err := h.Engine.CreateDepartment(ctx, csr.Department{
		DepartmentID: "dept-hr",
		Name:         "People",
	})
	if err != nil {
		return err
	}

	fay, err := h.Engine.CreateProfile(ctx, csr.Profile{
		EmployeeID:   "emp-201",
		Name:         "Fay Chen",
		DepartmentID: dept.ID,
	})
	if err != nil {
		return err
	}
	gus, err := h.Engine.CreateProfile(ctx, csr.Profile{
		EmployeeID:   "emp-202",
		Name:         "Gus Patel",
		DepartmentID: dept.ID,
	})
	if err != nil {
		return err
	}

	// Fay was active last quarter and slowed down; Gus is ramping up.
	// Improvement ranking should favor Gus even if totals favor Fay.
	return h.seedActivities(ctx, []scenarioActivity{
		{fay.ID, "School Library Restock", "Organized books for the school library", 120, 10, 0, true},
		{fay.ID, "Food Bank Sorting", "Sorted food donations to fight hunger", 100, 8, 0, true},
		{fay.ID, "Health Fair Booth", "Staffed a community health screening booth", 15, 2, 0, true},
		{gus.ID, "Coastal Survey", "Surveyed beach pollution for a marine NGO", 20, 6, 0, true},
		{gus.ID, "Coding Class Mentor", "Taught an evening education program", 8, 5, 0, true},
	})
}

func (h *Handler) loadRewardsProgramScenario(ctx context.Context) error {
	dept, err := h.Engine.CreateDepartment(ctx, csr.Department{
		DepartmentID: "dept-fin",
		Name:         "Finance",
	})
	if err != nil {
		return err
	}

	hana, err := h.Engine.CreateProfile(ctx, csr.Profile{
		EmployeeID:   "emp-301",
		Name:         "Hana Mori",
		DepartmentID: dept.ID,
		ManagerID:    "emp-302",
	})
	if err != nil {
		return err
	}
	if _, err := h.Engine.CreateProfile(ctx, csr.Profile{
		EmployeeID:   "emp-302",
		Name:         "Ivan Petrov",
		DepartmentID: dept.ID,
	}); err != nil {
		return err
	}

	if err := h.seedActivities(ctx, []scenarioActivity{
		{hana.ID, "Marathon Fundraiser", "Ran a charity marathon and collected donations", 12, 6, 300, true},
		{hana.ID, "Hospital Visit Program", "Visited patients at the children's hospital", 20, 4, 0, true},
	}); err != nil {
		return err
	}

	now := time.Now().UTC()
	catalog := []csr.Reward{
		{ID: csr.RewardID(newID()), Name: "Extra Day Off", PointCost: 200, Description: "One additional paid day off", Active: true, CreatedAt: now},
		{ID: csr.RewardID(newID()), Name: "Charity Donation Match", PointCost: 100, Description: "Company matches a $100 donation", Active: true, CreatedAt: now},
		{ID: csr.RewardID(newID()), Name: "Eco Gift Box", PointCost: 50, Description: "Sustainable goodies box", Active: true, CreatedAt: now},
		{ID: csr.RewardID(newID()), Name: "Retired Hoodie", PointCost: 75, Description: "Old merch, no longer offered", Active: false, CreatedAt: now},
	}
	for _, item := range catalog {
		if err := h.Store.SaveReward(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
