/*
handlers.go - HTTP API handlers for the CSR impact engine

PURPOSE:
  Exposes the aggregation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Profiles:
    GET    /api/profiles                 List all profiles (ranked)
    POST   /api/profiles                 Create profile
    GET    /api/profiles/{id}            Get profile with rollup totals
    GET    /api/profiles/{id}/activities Activities owned by the profile
    DELETE /api/profiles/{id}            Delete profile (cascades)

  Activities:
    POST   /api/activities               Create activity (derives fields)
    PUT    /api/activities/{id}          Update activity (re-derives)
    GET    /api/activities/{id}          Get activity
    POST   /api/activities/{id}/submit   draft/rejected -> submitted
    POST   /api/activities/{id}/approve  -> approved + recompute cascade
    POST   /api/activities/{id}/reject   -> rejected + recompute cascade

  Departments:
    GET    /api/departments              List with carbon metrics
    POST   /api/departments              Create budget record
    PUT    /api/departments/{id}/budget  Reconfigure budget

  Dashboard:
    GET    /api/dashboard                Cached dashboard (lazy create)
    POST   /api/dashboard/refresh        Explicit refresh

  Rewards:
    GET    /api/rewards                  Catalog (active by default)
    POST   /api/rewards                  Create catalog item
    POST   /api/rewards/{id}/redeem      Spend points

  Opportunities:
    GET    /api/opportunities            List stored opportunities
    POST   /api/opportunities/seed       Fetch from feed and store

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, batch-size violations
  - 404: Record not found
  - 409: Uniqueness or optimistic-concurrency conflict
  - 422: Insufficient points
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/greenflow/impact-engine/csr"
	"github.com/greenflow/impact-engine/feed"
	"github.com/greenflow/impact-engine/metrics"
	"github.com/greenflow/impact-engine/rewards"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      csr.Store
	Engine     *metrics.Engine
	Redemption *rewards.Service
	Feed       feed.Fetcher
	Log        logrus.FieldLogger

	// Track currently loaded scenario
	scenarioMu      sync.Mutex
	currentScenario string
}

func (h *Handler) setCurrentScenario(id string) {
	h.scenarioMu.Lock()
	h.currentScenario = id
	h.scenarioMu.Unlock()
}

func (h *Handler) loadedScenario() string {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()
	return h.currentScenario
}

// NewHandler creates a new handler around the engine and its store.
func NewHandler(store csr.Store, engine *metrics.Engine, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:      store,
		Engine:     engine,
		Redemption: rewards.NewService(store, log),
		Feed:       feed.Simulated{},
		Log:        log,
	}
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// ListProfiles returns all profiles with their rollup totals and ranks.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Store.ListProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles", err)
		return
	}

	dtos := make([]ProfileDTO, len(profiles))
	for i, p := range profiles {
		dtos[i] = toProfileDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProfile creates a new employee profile.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Engine.CreateProfile(r.Context(), csr.Profile{
		EmployeeID:   req.EmployeeID,
		Name:         req.Name,
		DepartmentID: csr.DepartmentID(req.DepartmentID),
		ManagerID:    req.ManagerID,
	})
	if err != nil {
		writeDomainError(w, "Failed to create profile", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProfileDTO(*p))
}

// GetProfile returns a single profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := csr.ProfileID(chi.URLParam(r, "id"))

	p, err := h.Store.GetProfile(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(*p))
}

// ListProfileActivities returns the activities owned by a profile.
func (h *Handler) ListProfileActivities(w http.ResponseWriter, r *http.Request) {
	id := csr.ProfileID(chi.URLParam(r, "id"))

	activities, err := h.Store.ListActivitiesByProfile(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list activities", err)
		return
	}

	dtos := make([]ActivityDTO, len(activities))
	for i, a := range activities {
		dtos[i] = toActivityDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteProfile removes a profile and its activities.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := csr.ProfileID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteProfile(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete profile", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(id)})
}

// =============================================================================
// ACTIVITY HANDLERS
// =============================================================================

func (h *Handler) saveActivity(w http.ResponseWriter, r *http.Request, id csr.ActivityID) {
	var req SaveActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a := csr.Activity{
		ID:          id,
		ProfileID:   csr.ProfileID(req.ProfileID),
		Name:        req.Name,
		Description: req.Description,
		Hours:       csr.NewAmount(req.Hours, csr.UnitHours),
		Donation:    csr.NewAmount(req.DonationAmount, csr.UnitUSD),
	}
	if req.Date != "" {
		date, err := csr.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		a.Date = date
	}

	saved, err := h.Engine.SaveActivity(r.Context(), a)
	if err != nil {
		writeDomainError(w, "Failed to save activity", err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, toActivityDTO(*saved))
}

// CreateActivity creates an activity and derives its computed fields.
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	h.saveActivity(w, r, "")
}

// UpdateActivity updates an activity's inputs and re-derives.
func (h *Handler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	h.saveActivity(w, r, csr.ActivityID(chi.URLParam(r, "id")))
}

// GetActivity returns a single activity.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	id := csr.ActivityID(chi.URLParam(r, "id"))

	a, err := h.Store.GetActivity(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get activity", err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityDTO(*a))
}

// SubmitActivity moves a draft or rejected activity to submitted.
func (h *Handler) SubmitActivity(w http.ResponseWriter, r *http.Request) {
	id := csr.ActivityID(chi.URLParam(r, "id"))

	a, err := h.Engine.Submit(r.Context(), []csr.ActivityID{id})
	if err != nil {
		writeDomainError(w, "Failed to submit activity", err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityDTO(*a))
}

// ApproveActivity approves an activity and runs the recompute cascade.
func (h *Handler) ApproveActivity(w http.ResponseWriter, r *http.Request) {
	id := csr.ActivityID(chi.URLParam(r, "id"))

	a, err := h.Engine.Approve(r.Context(), []csr.ActivityID{id})
	if err != nil {
		writeDomainError(w, "Failed to approve activity", err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityDTO(*a))
}

// RejectActivity rejects an activity (reason required) and runs the
// recompute cascade so its points are zeroed everywhere.
func (h *Handler) RejectActivity(w http.ResponseWriter, r *http.Request) {
	id := csr.ActivityID(chi.URLParam(r, "id"))

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a, err := h.Engine.Reject(r.Context(), []csr.ActivityID{id}, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to reject activity", err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityDTO(*a))
}

// =============================================================================
// DEPARTMENT HANDLERS
// =============================================================================

// ListDepartments returns all department budgets with carbon metrics.
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Store.ListDepartments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list departments", err)
		return
	}

	dtos := make([]DepartmentDTO, len(departments))
	for i, d := range departments {
		dtos[i] = toDepartmentDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDepartment creates a carbon budget record for an HR department.
func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req CreateDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	d := csr.Department{
		DepartmentID: req.DepartmentID,
		Name:         req.Name,
	}
	if req.CarbonBudget > 0 {
		d.CarbonBudget = csr.NewAmount(req.CarbonBudget, csr.UnitKgCO2)
	}

	created, err := h.Engine.CreateDepartment(r.Context(), d)
	if err != nil {
		writeDomainError(w, "Failed to create department", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDepartmentDTO(*created))
}

// GetDepartment returns a single department.
func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id := csr.DepartmentID(chi.URLParam(r, "id"))

	d, err := h.Store.GetDepartment(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get department", err)
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentDTO(*d))
}

// UpdateDepartmentBudget reconfigures a department's carbon budget.
func (h *Handler) UpdateDepartmentBudget(w http.ResponseWriter, r *http.Request) {
	id := csr.DepartmentID(chi.URLParam(r, "id"))

	var req struct {
		CarbonBudget float64 `json:"carbon_budget"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	d, err := h.Engine.UpdateDepartmentBudget(r.Context(), id,
		csr.NewAmount(req.CarbonBudget, csr.UnitKgCO2))
	if err != nil {
		writeDomainError(w, "Failed to update budget", err)
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentDTO(*d))
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetDashboard returns the cached organization dashboard, creating it
// lazily on first access.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.Engine.Dashboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(*dash))
}

// RefreshDashboard explicitly recomputes the dashboard and all department
// metrics.
func (h *Handler) RefreshDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.Engine.RefreshDashboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to refresh dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(*dash))
}

// =============================================================================
// REWARD HANDLERS
// =============================================================================

// ListRewards returns the catalog. ?all=true includes inactive items.
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"

	items, err := h.Store.ListRewards(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rewards", err)
		return
	}

	dtos := make([]RewardDTO, len(items))
	for i, item := range items {
		dtos[i] = toRewardDTO(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateReward adds a catalog item.
func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var req CreateRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	item := csr.Reward{
		ID:          csr.RewardID(newID()),
		Name:        req.Name,
		PointCost:   req.PointCost,
		Description: req.Description,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reward", err)
		return
	}

	if err := h.Store.SaveReward(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create reward", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRewardDTO(item))
}

// RedeemReward spends the requester's points on a catalog item.
func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	id := csr.RewardID(chi.URLParam(r, "id"))

	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	receipt, err := h.Redemption.Redeem(r.Context(), id, req.EmployeeID)
	if err != nil {
		if errors.Is(err, csr.ErrInsufficientPoints) {
			writeError(w, http.StatusUnprocessableEntity, "Insufficient points", err)
			return
		}
		writeDomainError(w, "Failed to redeem reward", err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptDTO(*receipt))
}

// =============================================================================
// OPPORTUNITY HANDLERS
// =============================================================================

// ListOpportunities returns stored opportunities.
func (h *Handler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	opportunities, err := h.Store.ListOpportunities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list opportunities", err)
		return
	}

	dtos := make([]OpportunityDTO, len(opportunities))
	for i, o := range opportunities {
		dtos[i] = toOpportunityDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SeedOpportunities fetches opportunities from the feed for the requested
// SDGs (all 17 when omitted) and stores them locally.
func (h *Handler) SeedOpportunities(w http.ResponseWriter, r *http.Request) {
	var req SeedOpportunitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var codes []csr.SDGCode
	if len(req.SDGCodes) == 0 {
		codes = csr.AllSDGCodes()
	} else {
		for _, s := range req.SDGCodes {
			code := csr.SDGCode(s)
			if !csr.ValidSDGCode(code) {
				writeError(w, http.StatusBadRequest, "Unknown SDG code: "+s, nil)
				return
			}
			codes = append(codes, code)
		}
	}

	n, err := feed.Seed(r.Context(), h.Feed, h.Store, codes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed opportunities", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"seeded": n})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case csr.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, csr.ErrNoProfile):
		writeError(w, http.StatusNotFound, message, err)
	case csr.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case csr.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
