/*
Package sqlite provides a SQLite-backed implementation of csr.Store.

PURPOSE:
  Persists every record type and every cached aggregate. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

PERSISTED AGGREGATES:
  All computed fields (SDG category, offsets, points, rollup totals, ranks,
  budget usage) are stored columns. They are rewritten by the metrics
  engine's triggering actions and never recomputed on read.

KEY TABLES:
  profiles:      Employee profiles + rollup cache. UNIQUE(employee_id)
                 enforces one profile per employee. version column is the
                 optimistic-concurrency token for redemption.
  activities:    Unit records + derived fields. FK to profiles with
                 ON DELETE CASCADE: the profile exclusively owns them.
  departments:   Carbon budgets + rollup cache. UNIQUE(department_id).
  dashboard:     Singleton row caching the organization rollup (JSON blob).
  rewards:       Catalog items. Never mutated by redemption.
  opportunities: Upcoming events for recommendations.
  tasks:         Fire-and-forget notification records.

DECIMALS:
  Quantities are stored as TEXT via decimal.String() to avoid float drift;
  the same convention PostgreSQL NUMERIC would give us.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety plus WAL mode. The version check in
  SaveProfileVersioned is a single conditional UPDATE, so it holds even
  without the process-level mutex.

USAGE:
  store, err := sqlite.New("./data/greenflow.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - csr/store.go: Interface definitions
  - csr/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/greenflow/impact-engine/csr"
)

// Store implements csr.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ csr.Store = (*Store)(nil)

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employee profiles + rollup cache
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		department_id TEXT,
		manager_id TEXT,
		volunteering_hours TEXT NOT NULL DEFAULT '0',
		donation_amount TEXT NOT NULL DEFAULT '0',
		total_impact_points INTEGER NOT NULL DEFAULT 0,
		last_quarter_points INTEGER NOT NULL DEFAULT 0,
		point_improvement INTEGER NOT NULL DEFAULT 0,
		rank_display TEXT NOT NULL DEFAULT '',
		improvement_rank_display TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_department
		ON profiles(department_id);
	CREATE INDEX IF NOT EXISTS idx_profiles_created
		ON profiles(created_at);

	-- Activities + derived fields (owned by profiles, cascade on delete)
	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		department_id TEXT,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		hours TEXT NOT NULL DEFAULT '0',
		donation TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'draft',
		rejection_reason TEXT NOT NULL DEFAULT '',
		sdg_category TEXT NOT NULL DEFAULT 'other',
		carbon_offset TEXT NOT NULL DEFAULT '0',
		impact_points INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_activities_profile
		ON activities(profile_id);
	-- Hot path: department rollups scan approved activities per department
	CREATE INDEX IF NOT EXISTS idx_activities_status_department
		ON activities(status, department_id);
	CREATE INDEX IF NOT EXISTS idx_activities_sdg
		ON activities(sdg_category) WHERE status = 'approved';

	-- Department budgets + rollup cache
	CREATE TABLE IF NOT EXISTS departments (
		id TEXT PRIMARY KEY,
		department_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		carbon_budget TEXT NOT NULL DEFAULT '10000',
		total_carbon_offset TEXT NOT NULL DEFAULT '0',
		carbon_used TEXT NOT NULL DEFAULT '0',
		budget_usage_pct TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	-- Reward catalog
	CREATE TABLE IF NOT EXISTS rewards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		point_cost INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Upcoming opportunities
	CREATE TABLE IF NOT EXISTS opportunities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		source_org TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		sdg_code TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_opportunities_sdg
		ON opportunities(sdg_code, date);

	-- Notification tasks
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		summary TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		target_record TEXT NOT NULL DEFAULT '',
		assignee_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_assignee
		ON tasks(assignee_id);

	-- Organization dashboard (singleton cache)
	CREATE TABLE IF NOT EXISTS dashboard (
		id TEXT PRIMARY KEY CHECK (id = 'singleton'),
		payload_json TEXT NOT NULL,
		refreshed_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACTIVITIES
// =============================================================================

// SaveActivity inserts or updates an activity with its derived fields.
func (s *Store) SaveActivity(ctx context.Context, a csr.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO activities
		(id, profile_id, department_id, name, description, date, hours, donation,
		 status, rejection_reason, sdg_category, carbon_offset, impact_points,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			department_id = excluded.department_id,
			name = excluded.name,
			description = excluded.description,
			date = excluded.date,
			hours = excluded.hours,
			donation = excluded.donation,
			status = excluded.status,
			rejection_reason = excluded.rejection_reason,
			sdg_category = excluded.sdg_category,
			carbon_offset = excluded.carbon_offset,
			impact_points = excluded.impact_points,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.ProfileID,
		a.DepartmentID,
		a.Name,
		a.Description,
		a.Date.String(),
		a.Hours.Value.String(),
		a.Donation.Value.String(),
		a.Status,
		a.RejectionReason,
		a.SDGCategory,
		a.CarbonOffset.Value.String(),
		a.ImpactPoints,
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}
	return nil
}

const activityColumns = `id, profile_id, department_id, name, description, date,
	hours, donation, status, rejection_reason, sdg_category, carbon_offset,
	impact_points, created_at, updated_at`

// GetActivity returns a single activity.
func (s *Store) GetActivity(ctx context.Context, id csr.ActivityID) (*csr.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, csr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// ListActivitiesByProfile returns a profile's activities, newest date first.
func (s *Store) ListActivitiesByProfile(ctx context.Context, profileID csr.ProfileID) ([]csr.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE profile_id = ? ORDER BY date DESC, id`,
		profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()
	return scanActivities(rows)
}

// ListApprovedActivities returns approved activities, optionally filtered
// by department.
func (s *Store) ListApprovedActivities(ctx context.Context, departmentID csr.DepartmentID) ([]csr.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + activityColumns + ` FROM activities WHERE status = 'approved'`
	args := []any{}
	if departmentID != "" {
		query += ` AND department_id = ?`
		args = append(args, departmentID)
	}
	query += ` ORDER BY date DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved activities: %w", err)
	}
	defer rows.Close()
	return scanActivities(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*csr.Activity, error) {
	var a csr.Activity
	var date, hours, donation, offset, createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.ProfileID, &a.DepartmentID, &a.Name, &a.Description,
		&date, &hours, &donation, &a.Status, &a.RejectionReason, &a.SDGCategory,
		&offset, &a.ImpactPoints, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if a.Date, err = csr.ParseDate(date); err != nil {
		return nil, fmt.Errorf("bad activity date %q: %w", date, err)
	}
	a.Hours = csr.Amount{Value: mustDecimal(hours), Unit: csr.UnitHours}
	a.Donation = csr.Amount{Value: mustDecimal(donation), Unit: csr.UnitUSD}
	a.CarbonOffset = csr.Amount{Value: mustDecimal(offset), Unit: csr.UnitKgCO2}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}

func scanActivities(rows *sql.Rows) ([]csr.Activity, error) {
	var out []csr.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// =============================================================================
// PROFILES
// =============================================================================

// CreateProfile inserts a new profile, enforcing employee uniqueness.
func (s *Store) CreateProfile(ctx context.Context, p csr.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO profiles
		(id, employee_id, name, department_id, manager_id, volunteering_hours,
		 donation_amount, total_impact_points, last_quarter_points,
		 point_improvement, rank_display, improvement_rank_display, version,
		 created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.EmployeeID, p.Name, p.DepartmentID, p.ManagerID,
		p.VolunteeringHours.Value.String(), p.DonationAmount.Value.String(),
		p.TotalImpactPoints, p.LastQuarterPoints, p.PointImprovement,
		p.RankDisplay, p.ImprovementRankDisplay, p.Version,
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return csr.ErrDuplicateProfile
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// SaveProfile rewrites the rollup fields and bumps the version.
func (s *Store) SaveProfile(ctx context.Context, p csr.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET
			name = ?, department_id = ?, manager_id = ?,
			volunteering_hours = ?, donation_amount = ?,
			total_impact_points = ?, last_quarter_points = ?,
			point_improvement = ?, rank_display = ?,
			improvement_rank_display = ?, version = version + 1
		WHERE id = ?`,
		p.Name, p.DepartmentID, p.ManagerID,
		p.VolunteeringHours.Value.String(), p.DonationAmount.Value.String(),
		p.TotalImpactPoints, p.LastQuarterPoints, p.PointImprovement,
		p.RankDisplay, p.ImprovementRankDisplay, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return requireRow(res)
}

// SaveProfileVersioned rewrites the profile only when the stored version
// matches. The conditional UPDATE is the optimistic-concurrency guard for
// reward redemption.
func (s *Store) SaveProfileVersioned(ctx context.Context, p csr.Profile, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET
			total_impact_points = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		p.TotalImpactPoints, p.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or version mismatch; disambiguate.
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM profiles WHERE id = ?`, p.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return csr.ErrNotFound
		}
		return csr.ErrConcurrentModification
	}
	return nil
}

const profileColumns = `id, employee_id, name, department_id, manager_id,
	volunteering_hours, donation_amount, total_impact_points,
	last_quarter_points, point_improvement, rank_display,
	improvement_rank_display, version, created_at`

// GetProfile returns a single profile.
func (s *Store) GetProfile(ctx context.Context, id csr.ProfileID) (*csr.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, csr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetProfileByEmployee resolves the unique profile for an employee.
func (s *Store) GetProfileByEmployee(ctx context.Context, employeeID string) (*csr.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE employee_id = ?`, employeeID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, csr.ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by employee: %w", err)
	}
	return p, nil
}

// ListProfiles returns all profiles in creation (first-seen) order.
// Ranking tie-breaks depend on this order.
func (s *Store) ListProfiles(ctx context.Context) ([]csr.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []csr.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// DeleteProfile removes a profile; the FK cascade removes its activities.
func (s *Store) DeleteProfile(ctx context.Context, id csr.ProfileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return requireRow(res)
}

func scanProfile(row rowScanner) (*csr.Profile, error) {
	var p csr.Profile
	var hours, donations, createdAt string

	err := row.Scan(&p.ID, &p.EmployeeID, &p.Name, &p.DepartmentID, &p.ManagerID,
		&hours, &donations, &p.TotalImpactPoints, &p.LastQuarterPoints,
		&p.PointImprovement, &p.RankDisplay, &p.ImprovementRankDisplay,
		&p.Version, &createdAt)
	if err != nil {
		return nil, err
	}

	p.VolunteeringHours = csr.Amount{Value: mustDecimal(hours), Unit: csr.UnitHours}
	p.DonationAmount = csr.Amount{Value: mustDecimal(donations), Unit: csr.UnitUSD}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &p, nil
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

// CreateDepartment inserts a new budget record, enforcing HR-department
// uniqueness.
func (s *Store) CreateDepartment(ctx context.Context, d csr.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO departments
		(id, department_id, name, carbon_budget, total_carbon_offset,
		 carbon_used, budget_usage_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.DepartmentID, d.Name,
		d.CarbonBudget.Value.String(), d.TotalCarbonOffset.Value.String(),
		d.CarbonUsed.Value.String(), d.BudgetUsagePercent.String(),
		d.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return csr.ErrDuplicateDepartment
		}
		return fmt.Errorf("failed to create department: %w", err)
	}
	return nil
}

// SaveDepartment rewrites a department's budget and derived metrics.
func (s *Store) SaveDepartment(ctx context.Context, d csr.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE departments SET
			name = ?, carbon_budget = ?, total_carbon_offset = ?,
			carbon_used = ?, budget_usage_pct = ?
		WHERE id = ?`,
		d.Name, d.CarbonBudget.Value.String(), d.TotalCarbonOffset.Value.String(),
		d.CarbonUsed.Value.String(), d.BudgetUsagePercent.String(), d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save department: %w", err)
	}
	return requireRow(res)
}

const departmentColumns = `id, department_id, name, carbon_budget,
	total_carbon_offset, carbon_used, budget_usage_pct, created_at`

// GetDepartment returns a single department.
func (s *Store) GetDepartment(ctx context.Context, id csr.DepartmentID) (*csr.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE id = ?`, id)
	d, err := scanDepartment(row)
	if err == sql.ErrNoRows {
		return nil, csr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return d, nil
}

// ListDepartments returns all departments in creation order.
func (s *Store) ListDepartments(ctx context.Context) ([]csr.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+departmentColumns+` FROM departments ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var out []csr.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDepartment(row rowScanner) (*csr.Department, error) {
	var d csr.Department
	var budget, offset, used, pct, createdAt string

	err := row.Scan(&d.ID, &d.DepartmentID, &d.Name, &budget, &offset, &used,
		&pct, &createdAt)
	if err != nil {
		return nil, err
	}

	d.CarbonBudget = csr.Amount{Value: mustDecimal(budget), Unit: csr.UnitKgCO2}
	d.TotalCarbonOffset = csr.Amount{Value: mustDecimal(offset), Unit: csr.UnitKgCO2}
	d.CarbonUsed = csr.Amount{Value: mustDecimal(used), Unit: csr.UnitKgCO2}
	d.BudgetUsagePercent = mustDecimal(pct)
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &d, nil
}

// =============================================================================
// REWARDS
// =============================================================================

func (s *Store) SaveReward(ctx context.Context, r csr.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rewards (id, name, point_cost, description, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			point_cost = excluded.point_cost,
			description = excluded.description,
			active = excluded.active`,
		r.ID, r.Name, r.PointCost, r.Description, r.Active,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save reward: %w", err)
	}
	return nil
}

func (s *Store) GetReward(ctx context.Context, id csr.RewardID) (*csr.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r csr.Reward
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, point_cost, description, active, created_at
		 FROM rewards WHERE id = ?`, id).
		Scan(&r.ID, &r.Name, &r.PointCost, &r.Description, &r.Active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, csr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

func (s *Store) ListRewards(ctx context.Context, activeOnly bool) ([]csr.Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, point_cost, description, active, created_at FROM rewards`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var out []csr.Reward
	for rows.Next() {
		var r csr.Reward
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Name, &r.PointCost, &r.Description,
			&r.Active, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// OPPORTUNITIES
// =============================================================================

func (s *Store) SaveOpportunity(ctx context.Context, o csr.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO opportunities
		(id, name, source_org, date, location, sdg_code, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, o.SourceOrg, o.Date.String(), o.Location, o.SDG,
		o.Description, o.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save opportunity: %w", err)
	}
	return nil
}

func (s *Store) ListOpportunities(ctx context.Context) ([]csr.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source_org, date, location, sdg_code, description, created_at
		FROM opportunities ORDER BY date, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	defer rows.Close()

	var out []csr.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// FindOpportunityBySDG returns the earliest-dated opportunity for an SDG,
// or nil when none exists.
func (s *Store) FindOpportunityBySDG(ctx context.Context, sdg csr.SDGCode) (*csr.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, source_org, date, location, sdg_code, description, created_at
		FROM opportunities WHERE sdg_code = ? ORDER BY date, rowid LIMIT 1`, sdg)
	o, err := scanOpportunity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find opportunity: %w", err)
	}
	return o, nil
}

func scanOpportunity(row rowScanner) (*csr.Opportunity, error) {
	var o csr.Opportunity
	var date, createdAt string
	err := row.Scan(&o.ID, &o.Name, &o.SourceOrg, &date, &o.Location, &o.SDG,
		&o.Description, &createdAt)
	if err != nil {
		return nil, err
	}
	if o.Date, err = csr.ParseDate(date); err != nil {
		return nil, fmt.Errorf("bad opportunity date %q: %w", date, err)
	}
	o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &o, nil
}

// =============================================================================
// TASKS
// =============================================================================

func (s *Store) CreateTask(ctx context.Context, t csr.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, summary, body, target_record, assignee_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Summary, t.Body, t.TargetRecord, t.AssigneeID,
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context, assigneeID string) ([]csr.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, summary, body, target_record, assignee_id, created_at FROM tasks`
	args := []any{}
	if assigneeID != "" {
		query += ` WHERE assignee_id = ?`
		args = append(args, assigneeID)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []csr.Task
	for rows.Next() {
		var t csr.Task
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Summary, &t.Body, &t.TargetRecord,
			&t.AssigneeID, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// DASHBOARD (singleton cache)
// =============================================================================

// SaveDashboard rewrites the singleton dashboard row.
func (s *Store) SaveDashboard(ctx context.Context, d csr.Dashboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(dashboardPayload(d))
	if err != nil {
		return fmt.Errorf("failed to encode dashboard: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dashboard (id, payload_json, refreshed_at)
		VALUES ('singleton', ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload_json = excluded.payload_json,
			refreshed_at = excluded.refreshed_at`,
		string(payload), d.RefreshedAt.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save dashboard: %w", err)
	}
	return nil
}

// GetDashboard returns the cached dashboard, or nil before the first
// refresh.
func (s *Store) GetDashboard(ctx context.Context) (*csr.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM dashboard WHERE id = 'singleton'`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}

	var dp dashboardJSON
	if err := json.Unmarshal([]byte(payload), &dp); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard: %w", err)
	}
	return dp.toDomain()
}

// dashboardJSON is the persisted form of the singleton dashboard.
type dashboardJSON struct {
	TotalApprovedActivities int     `json:"total_approved_activities"`
	TotalOffsetEstimate     string  `json:"total_offset_estimate"`
	TotalCarbonBudget       string  `json:"total_carbon_budget"`
	TotalCarbonUsed         string  `json:"total_carbon_used"`
	BudgetUsagePercent      float64 `json:"budget_usage_percentage"`

	WeakestSDG    string `json:"weakest_sdg"`
	ActivityCount int    `json:"weakest_sdg_count"`
	Insight       string `json:"insight"`
	Suggestion    string `json:"suggestion"`

	Opportunity *opportunityJSON `json:"opportunity,omitempty"`

	RefreshedAt string `json:"refreshed_at"`
}

type opportunityJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SourceOrg   string `json:"source_org"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	SDG         string `json:"sdg_code"`
	Description string `json:"description"`
}

func dashboardPayload(d csr.Dashboard) dashboardJSON {
	dp := dashboardJSON{
		TotalApprovedActivities: d.TotalApprovedActivities,
		TotalOffsetEstimate:     d.TotalOffsetEstimate.Value.String(),
		TotalCarbonBudget:       d.TotalCarbonBudget.Value.String(),
		TotalCarbonUsed:         d.TotalCarbonUsed.Value.String(),
		BudgetUsagePercent:      d.BudgetUsagePercent,
		WeakestSDG:              string(d.Recommendation.WeakestSDG),
		ActivityCount:           d.Recommendation.ActivityCount,
		Insight:                 d.Recommendation.Insight,
		Suggestion:              d.Recommendation.Suggestion,
		RefreshedAt:             d.RefreshedAt.String(),
	}
	if o := d.Recommendation.Opportunity; o != nil {
		dp.Opportunity = &opportunityJSON{
			ID:          string(o.ID),
			Name:        o.Name,
			SourceOrg:   o.SourceOrg,
			Date:        o.Date.String(),
			Location:    o.Location,
			SDG:         string(o.SDG),
			Description: o.Description,
		}
	}
	return dp
}

func (dp dashboardJSON) toDomain() (*csr.Dashboard, error) {
	d := csr.Dashboard{
		TotalApprovedActivities: dp.TotalApprovedActivities,
		TotalOffsetEstimate:     csr.Amount{Value: mustDecimal(dp.TotalOffsetEstimate), Unit: csr.UnitKgCO2},
		TotalCarbonBudget:       csr.Amount{Value: mustDecimal(dp.TotalCarbonBudget), Unit: csr.UnitKgCO2},
		TotalCarbonUsed:         csr.Amount{Value: mustDecimal(dp.TotalCarbonUsed), Unit: csr.UnitKgCO2},
		BudgetUsagePercent:      dp.BudgetUsagePercent,
		Recommendation: csr.Recommendation{
			WeakestSDG:    csr.SDGCode(dp.WeakestSDG),
			ActivityCount: dp.ActivityCount,
			Insight:       dp.Insight,
			Suggestion:    dp.Suggestion,
		},
	}
	if t, err := csr.ParseDate(dp.RefreshedAt); err == nil {
		d.RefreshedAt = t
	}
	if dp.Opportunity != nil {
		date, _ := csr.ParseDate(dp.Opportunity.Date)
		d.Recommendation.Opportunity = &csr.Opportunity{
			ID:          csr.OpportunityID(dp.Opportunity.ID),
			Name:        dp.Opportunity.Name,
			SourceOrg:   dp.Opportunity.SourceOrg,
			Date:        date,
			Location:    dp.Opportunity.Location,
			SDG:         csr.SDGCode(dp.Opportunity.SDG),
			Description: dp.Opportunity.Description,
		}
	}
	return &d, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return csr.ErrNotFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

// =============================================================================
// RESET
// =============================================================================

// Reset clears all data. Used by demo scenario loading.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{"tasks", "dashboard", "opportunities", "rewards", "activities", "profiles", "departments"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}
