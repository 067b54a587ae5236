/*
store.go - Persistence interfaces for CSR records and cached aggregates

PURPOSE:
  Defines the interface between the aggregation engine and the database.
  All computed fields (SDG category, offsets, points, rollup totals, ranks,
  budget usage) are PERSISTED when written, never recomputed on read. The
  triggering actions in the metrics package are the only writers of derived
  state; reads return whatever was last persisted.

UNIQUENESS:
  The store enforces the two uniqueness invariants of the data model:
  - One profile per employee       -> ErrDuplicateProfile
  - One budget record per department -> ErrDuplicateDepartment

ITERATION ORDER:
  ListProfiles returns profiles in creation (first-seen) order. Ranking
  tie-breaks depend on this: two profiles with equal points keep their
  first-seen relative order.

OWNERSHIP:
  Activities are exclusively owned by their profile; deleting a profile
  deletes its activities. Departments and the dashboard reference activities
  by filter only and own nothing.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - csr/store/memory.go:    In-memory for testing
*/
package csr

import "context"

// =============================================================================
// RECORD STORES
// =============================================================================

// ActivityStore persists activities and their derived fields.
type ActivityStore interface {
	// SaveActivity inserts or updates an activity, derived fields included.
	SaveActivity(ctx context.Context, a Activity) error

	// GetActivity returns an activity or ErrNotFound.
	GetActivity(ctx context.Context, id ActivityID) (*Activity, error)

	// ListActivitiesByProfile returns all activities owned by a profile,
	// newest date first.
	ListActivitiesByProfile(ctx context.Context, profileID ProfileID) ([]Activity, error)

	// ListApprovedActivities returns all approved activities. When
	// departmentID is non-empty, only activities cached to that department.
	ListApprovedActivities(ctx context.Context, departmentID DepartmentID) ([]Activity, error)
}

// ProfileStore persists employee profiles and their rollup totals.
type ProfileStore interface {
	// CreateProfile inserts a new profile. Returns ErrDuplicateProfile if
	// the employee already has one.
	CreateProfile(ctx context.Context, p Profile) error

	// SaveProfile rewrites a profile's rollup fields unconditionally and
	// bumps its version.
	SaveProfile(ctx context.Context, p Profile) error

	// SaveProfileVersioned rewrites the profile only if its stored version
	// still equals expectedVersion; otherwise ErrConcurrentModification.
	// Used by reward redemption's read-modify-write.
	SaveProfileVersioned(ctx context.Context, p Profile, expectedVersion int) error

	// GetProfile returns a profile or ErrNotFound.
	GetProfile(ctx context.Context, id ProfileID) (*Profile, error)

	// GetProfileByEmployee resolves the unique profile for an employee, or
	// ErrNoProfile when none exists.
	GetProfileByEmployee(ctx context.Context, employeeID string) (*Profile, error)

	// ListProfiles returns all profiles in creation (first-seen) order.
	ListProfiles(ctx context.Context) ([]Profile, error)

	// DeleteProfile removes a profile and cascades to its activities.
	DeleteProfile(ctx context.Context, id ProfileID) error
}

// DepartmentStore persists department budgets and their rollup metrics.
type DepartmentStore interface {
	// CreateDepartment inserts a new record. Returns ErrDuplicateDepartment
	// if the HR department already has one.
	CreateDepartment(ctx context.Context, d Department) error

	// SaveDepartment rewrites a department's derived metrics.
	SaveDepartment(ctx context.Context, d Department) error

	// GetDepartment returns a department or ErrNotFound.
	GetDepartment(ctx context.Context, id DepartmentID) (*Department, error)

	// ListDepartments returns all departments in creation order.
	ListDepartments(ctx context.Context) ([]Department, error)
}

// RewardStore persists the reward catalog. Redemption never mutates rewards.
type RewardStore interface {
	SaveReward(ctx context.Context, r Reward) error
	GetReward(ctx context.Context, id RewardID) (*Reward, error)
	ListRewards(ctx context.Context, activeOnly bool) ([]Reward, error)
}

// OpportunityStore persists upcoming opportunities for recommendations.
type OpportunityStore interface {
	SaveOpportunity(ctx context.Context, o Opportunity) error
	ListOpportunities(ctx context.Context) ([]Opportunity, error)

	// FindOpportunityBySDG returns one opportunity tagged with the SDG
	// (earliest date first), or nil when none exists.
	FindOpportunityBySDG(ctx context.Context, sdg SDGCode) (*Opportunity, error)
}

// =============================================================================
// DASHBOARD STORE - Singleton read-through cache
// =============================================================================

// DashboardStore caches the organization dashboard under a well-known
// singleton key. Get returns (nil, nil) before the first refresh; callers
// lazily create via save-on-refresh.
type DashboardStore interface {
	SaveDashboard(ctx context.Context, d Dashboard) error
	GetDashboard(ctx context.Context) (*Dashboard, error)
}

// Dashboard is the organization-wide aggregate. A process-wide singleton,
// recomputed on demand (refresh) and after every approval/rejection.
type Dashboard struct {
	TotalApprovedActivities int
	TotalOffsetEstimate     Amount // unit: kg_co2

	TotalCarbonBudget  Amount
	TotalCarbonUsed    Amount
	BudgetUsagePercent float64

	Recommendation Recommendation

	RefreshedAt TimePoint
}

// Recommendation names the weakest SDG coverage and what to do about it.
type Recommendation struct {
	WeakestSDG    SDGCode
	ActivityCount int

	// Opportunity is the matching upcoming event, nil when none exists.
	Opportunity *Opportunity

	Insight    string
	Suggestion string
}

// =============================================================================
// COMPOSITE STORE
// =============================================================================

// Store is the full persistence surface used by the engine and API.
type Store interface {
	ActivityStore
	ProfileStore
	DepartmentStore
	RewardStore
	OpportunityStore
	DashboardStore
	TaskStore

	// Reset clears all data. Used by demo scenario loading.
	Reset(ctx context.Context) error
}
