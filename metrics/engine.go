/*
engine.go - Workflow transitions and the recompute cascade

PURPOSE:
  The Engine is the single writer for all derived state. Every mutating
  action runs as one serialized unit of work:

    save/submit/approve/reject activity
      -> re-derive the activity (sdg -> offset -> points)
      -> recompute the owning employee's rollup
      -> recompute ranks over the whole population
      -> recompute the owning department's rollup
      -> refresh the organization dashboard (recommendation included)

  Recomputation is synchronous and eager: it happens inside the triggering
  action, never lazily on read. Readers get whatever was last persisted.

WORKFLOW ACTIONS:
  Submit:  draft/rejected -> submitted
  Approve: -> approved, clears the rejection reason
  Reject:  -> rejected, requires a reason

  Each action applies to exactly one activity. Batch invocation fails fast
  with ErrSingleRecordRequired before any mutation.

CONCURRENCY:
  Concurrent approvals racing to recompute ranks may each see a different
  consistent snapshot; the last writer's view persists. That is accepted at
  this scale (see ranking.go).
*/
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/greenflow/impact-engine/csr"
)

// Engine orchestrates derivation, workflow transitions, and rollup
// recomputation against a shared store.
type Engine struct {
	Store   csr.Store
	Deriver *csr.Deriver
	Log     logrus.FieldLogger

	// Now supplies "today" for the quarter window; overridable in tests.
	Now func() csr.TimePoint
}

func NewEngine(store csr.Store, deriver *csr.Deriver, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		Store:   store,
		Deriver: deriver,
		Log:     log,
		Now:     csr.Today,
	}
}

// =============================================================================
// RECORD CREATION
// =============================================================================

// CreateProfile registers a new employee profile. Uniqueness (one profile
// per employee) is enforced by the store.
func (e *Engine) CreateProfile(ctx context.Context, p csr.Profile) (*csr.Profile, error) {
	if p.EmployeeID == "" {
		return nil, &csr.FieldError{Field: "employee_id", Message: "profile requires an employee"}
	}
	if p.ID == "" {
		p.ID = csr.ProfileID(uuid.NewString())
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.VolunteeringHours = csr.ZeroAmount(csr.UnitHours)
	p.DonationAmount = csr.ZeroAmount(csr.UnitUSD)

	if err := e.Store.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateDepartment registers a carbon budget record for an HR department.
// A zero budget gets the default allocation.
func (e *Engine) CreateDepartment(ctx context.Context, d csr.Department) (*csr.Department, error) {
	if d.DepartmentID == "" {
		return nil, &csr.FieldError{Field: "department_id", Message: "budget record requires an HR department"}
	}
	if d.ID == "" {
		d.ID = csr.DepartmentID(uuid.NewString())
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.CarbonBudget.IsZero() {
		d.CarbonBudget = csr.NewAmount(csr.DefaultCarbonBudgetKg, csr.UnitKgCO2)
	}
	d.TotalCarbonOffset = csr.ZeroAmount(csr.UnitKgCO2)

	if err := e.Store.CreateDepartment(ctx, d); err != nil {
		return nil, err
	}

	// Budget changes are a recompute trigger for the department's metrics.
	return e.RecomputeDepartment(ctx, d.ID)
}

// UpdateDepartmentBudget reconfigures a department's carbon budget and
// recomputes its metrics.
func (e *Engine) UpdateDepartmentBudget(ctx context.Context, id csr.DepartmentID, budget csr.Amount) (*csr.Department, error) {
	d, err := e.Store.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	d.CarbonBudget = budget
	if err := e.Store.SaveDepartment(ctx, *d); err != nil {
		return nil, err
	}
	return e.RecomputeDepartment(ctx, id)
}

// =============================================================================
// ACTIVITY MUTATION
// =============================================================================

// SaveActivity creates or updates an activity and re-derives its computed
// fields. When the activity is (or was) approved, the rollup cascade runs
// so totals stay consistent with the edit.
func (e *Engine) SaveActivity(ctx context.Context, a csr.Activity) (*csr.Activity, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	profile, err := e.Store.GetProfile(ctx, a.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("resolve owning profile: %w", err)
	}

	now := time.Now().UTC()
	wasApproved := false
	if a.ID == "" {
		a.ID = csr.ActivityID(uuid.NewString())
		a.CreatedAt = now
		if a.Status == "" {
			a.Status = csr.StatusDraft
		}
	} else {
		existing, err := e.Store.GetActivity(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		wasApproved = existing.IsApproved()
		a.CreatedAt = existing.CreatedAt
		if a.Status == "" {
			a.Status = existing.Status
		}
	}
	a.UpdatedAt = now

	// Department is derived from the owner and cached on the activity.
	a.DepartmentID = profile.DepartmentID
	if a.Date.IsZero() {
		a.Date = e.Now()
	}

	e.Deriver.Derive(ctx, &a)

	if err := e.Store.SaveActivity(ctx, a); err != nil {
		return nil, err
	}

	if wasApproved || a.IsApproved() {
		if err := e.recomputeCascade(ctx, a.ProfileID, a.DepartmentID); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

// =============================================================================
// WORKFLOW TRANSITIONS
// =============================================================================

// singleTarget enforces the one-record rule for workflow actions.
func singleTarget(ids []csr.ActivityID) (csr.ActivityID, error) {
	if len(ids) != 1 {
		return "", csr.ErrSingleRecordRequired
	}
	return ids[0], nil
}

// Submit moves a draft or rejected activity to submitted.
func (e *Engine) Submit(ctx context.Context, ids []csr.ActivityID) (*csr.Activity, error) {
	id, err := singleTarget(ids)
	if err != nil {
		return nil, err
	}
	a, err := e.Store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != csr.StatusDraft && a.Status != csr.StatusRejected {
		return nil, &csr.TransitionError{ActivityID: a.ID, From: a.Status, To: csr.StatusSubmitted}
	}

	a.Status = csr.StatusSubmitted
	a.UpdatedAt = time.Now().UTC()
	e.Deriver.Derive(ctx, a)

	if err := e.Store.SaveActivity(ctx, *a); err != nil {
		return nil, err
	}
	return a, nil
}

// Approve moves an activity to approved, clears any rejection reason, and
// runs the full recompute cascade so the new points and offsets land in
// every rollup.
func (e *Engine) Approve(ctx context.Context, ids []csr.ActivityID) (*csr.Activity, error) {
	id, err := singleTarget(ids)
	if err != nil {
		return nil, err
	}
	a, err := e.Store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.IsApproved() {
		return nil, &csr.TransitionError{ActivityID: a.ID, From: a.Status, To: csr.StatusApproved}
	}

	a.Status = csr.StatusApproved
	a.RejectionReason = ""
	a.UpdatedAt = time.Now().UTC()
	e.Deriver.Derive(ctx, a)

	if err := e.Store.SaveActivity(ctx, *a); err != nil {
		return nil, err
	}

	e.Log.WithFields(logrus.Fields{
		"activity_id": a.ID,
		"profile_id":  a.ProfileID,
		"sdg":         a.SDGCategory,
		"points":      a.ImpactPoints,
	}).Info("activity approved")

	if err := e.recomputeCascade(ctx, a.ProfileID, a.DepartmentID); err != nil {
		return nil, err
	}
	return a, nil
}

// Reject moves an activity to rejected. A reason is required. The cascade
// runs so the activity's points are zeroed out of every rollup.
func (e *Engine) Reject(ctx context.Context, ids []csr.ActivityID, reason string) (*csr.Activity, error) {
	id, err := singleTarget(ids)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, csr.ErrReasonRequired
	}
	a, err := e.Store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == csr.StatusRejected {
		return nil, &csr.TransitionError{ActivityID: a.ID, From: a.Status, To: csr.StatusRejected}
	}

	a.Status = csr.StatusRejected
	a.RejectionReason = reason
	a.UpdatedAt = time.Now().UTC()
	e.Deriver.Derive(ctx, a) // non-approved status scores zero

	if err := e.Store.SaveActivity(ctx, *a); err != nil {
		return nil, err
	}

	e.Log.WithFields(logrus.Fields{
		"activity_id": a.ID,
		"profile_id":  a.ProfileID,
		"reason":      reason,
	}).Info("activity rejected")

	if err := e.recomputeCascade(ctx, a.ProfileID, a.DepartmentID); err != nil {
		return nil, err
	}
	return a, nil
}

// recomputeCascade runs employee -> ranks -> department -> dashboard, in
// dependency order.
func (e *Engine) recomputeCascade(ctx context.Context, profileID csr.ProfileID, departmentID csr.DepartmentID) error {
	if _, err := e.RecomputeProfile(ctx, profileID); err != nil {
		return fmt.Errorf("recompute profile: %w", err)
	}
	if err := e.RecomputeRanks(ctx); err != nil {
		return fmt.Errorf("recompute ranks: %w", err)
	}
	if departmentID != "" {
		if _, err := e.RecomputeDepartment(ctx, departmentID); err != nil {
			return fmt.Errorf("recompute department: %w", err)
		}
	}
	if _, err := e.RefreshDashboard(ctx); err != nil {
		return fmt.Errorf("refresh dashboard: %w", err)
	}
	return nil
}

// =============================================================================
// ROLLUP RECOMPUTATION
// =============================================================================

// RecomputeProfile scans the profile's activities and persists fresh
// totals.
func (e *Engine) RecomputeProfile(ctx context.Context, id csr.ProfileID) (*csr.Profile, error) {
	p, err := e.Store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	activities, err := e.Store.ListActivitiesByProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	RecomputeProfileTotals(p, activities, e.Now())

	if err := e.Store.SaveProfile(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

// RecomputeRanks reassigns both rank sets across the whole population and
// persists every profile. O(N log N); not incremental.
func (e *Engine) RecomputeRanks(ctx context.Context) error {
	profiles, err := e.Store.ListProfiles(ctx)
	if err != nil {
		return err
	}
	RankProfiles(profiles)
	for i := range profiles {
		if err := e.Store.SaveProfile(ctx, profiles[i]); err != nil {
			return err
		}
	}
	return nil
}

// RecomputeDepartment rewrites a department's carbon metrics from the
// approved activities of its employees.
func (e *Engine) RecomputeDepartment(ctx context.Context, id csr.DepartmentID) (*csr.Department, error) {
	d, err := e.Store.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	approved, err := e.Store.ListApprovedActivities(ctx, id)
	if err != nil {
		return nil, err
	}

	RecomputeDepartmentMetrics(d, approved)

	if err := e.Store.SaveDepartment(ctx, *d); err != nil {
		return nil, err
	}
	return d, nil
}

// =============================================================================
// ORGANIZATION DASHBOARD
// =============================================================================

// RefreshDashboard recomputes the singleton dashboard: every department is
// recomputed first so the budget sums are never stale, then the org totals
// and the recommendation are rebuilt and cached.
func (e *Engine) RefreshDashboard(ctx context.Context) (*csr.Dashboard, error) {
	departments, err := e.Store.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range departments {
		if _, err := e.RecomputeDepartment(ctx, d.ID); err != nil {
			return nil, err
		}
	}
	// Reload to pick up the fresh metrics.
	departments, err = e.Store.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}

	approved, err := e.Store.ListApprovedActivities(ctx, "")
	if err != nil {
		return nil, err
	}

	count, offsetSum, budgetSum, usedSum, usagePct := OrganizationTotals(approved, departments)

	rec, err := BuildRecommendation(ctx, e.Store, CountBySDG(approved))
	if err != nil {
		return nil, err
	}

	dash := csr.Dashboard{
		TotalApprovedActivities: count,
		TotalOffsetEstimate:     offsetSum,
		TotalCarbonBudget:       budgetSum,
		TotalCarbonUsed:         usedSum,
		BudgetUsagePercent:      usagePct,
		Recommendation:          rec,
		RefreshedAt:             e.Now(),
	}

	if err := e.Store.SaveDashboard(ctx, dash); err != nil {
		return nil, err
	}
	return &dash, nil
}

// Dashboard returns the cached dashboard, lazily creating it on first
// access. Reads never trigger recomputation after that; use
// RefreshDashboard for an explicit refresh.
func (e *Engine) Dashboard(ctx context.Context) (*csr.Dashboard, error) {
	dash, err := e.Store.GetDashboard(ctx)
	if err != nil {
		return nil, err
	}
	if dash == nil {
		return e.RefreshDashboard(ctx)
	}
	return dash, nil
}
