// Package store provides an in-memory csr.Store implementation (for testing/dev).
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/greenflow/impact-engine/csr"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	activities map[csr.ActivityID]csr.Activity
	profiles   map[csr.ProfileID]csr.Profile
	// profileOrder preserves first-seen order for ranking tie-breaks.
	profileOrder []csr.ProfileID

	departments map[csr.DepartmentID]csr.Department
	deptOrder   []csr.DepartmentID
	// deptByHRID enforces one budget record per HR department.
	deptByHRID map[string]csr.DepartmentID

	rewards       map[csr.RewardID]csr.Reward
	rewardOrder   []csr.RewardID
	opportunities []csr.Opportunity
	tasks         []csr.Task

	dashboard *csr.Dashboard
}

func NewMemory() *Memory {
	return &Memory{
		activities:  make(map[csr.ActivityID]csr.Activity),
		profiles:    make(map[csr.ProfileID]csr.Profile),
		departments: make(map[csr.DepartmentID]csr.Department),
		deptByHRID:  make(map[string]csr.DepartmentID),
		rewards:     make(map[csr.RewardID]csr.Reward),
	}
}

var _ csr.Store = (*Memory)(nil)

// =============================================================================
// ACTIVITIES
// =============================================================================

func (m *Memory) SaveActivity(_ context.Context, a csr.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities[a.ID] = a
	return nil
}

func (m *Memory) GetActivity(_ context.Context, id csr.ActivityID) (*csr.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.activities[id]
	if !ok {
		return nil, csr.ErrNotFound
	}
	return &a, nil
}

func (m *Memory) ListActivitiesByProfile(_ context.Context, profileID csr.ProfileID) ([]csr.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []csr.Activity
	for _, a := range m.activities {
		if a.ProfileID == profileID {
			out = append(out, a)
		}
	}
	sortActivitiesByDateDesc(out)
	return out, nil
}

func (m *Memory) ListApprovedActivities(_ context.Context, departmentID csr.DepartmentID) ([]csr.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []csr.Activity
	for _, a := range m.activities {
		if a.Status != csr.StatusApproved {
			continue
		}
		if departmentID != "" && a.DepartmentID != departmentID {
			continue
		}
		out = append(out, a)
	}
	sortActivitiesByDateDesc(out)
	return out, nil
}

func sortActivitiesByDateDesc(as []csr.Activity) {
	sort.SliceStable(as, func(i, j int) bool {
		if as[i].Date.Equal(as[j].Date) {
			return as[i].ID < as[j].ID
		}
		return as[i].Date.After(as[j].Date)
	})
}

// =============================================================================
// PROFILES
// =============================================================================

func (m *Memory) CreateProfile(_ context.Context, p csr.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if existing.EmployeeID == p.EmployeeID {
			return csr.ErrDuplicateProfile
		}
	}
	m.profiles[p.ID] = p
	m.profileOrder = append(m.profileOrder, p.ID)
	return nil
}

func (m *Memory) SaveProfile(_ context.Context, p csr.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ID]; !ok {
		return csr.ErrNotFound
	}
	p.Version++
	m.profiles[p.ID] = p
	return nil
}

func (m *Memory) SaveProfileVersioned(_ context.Context, p csr.Profile, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.profiles[p.ID]
	if !ok {
		return csr.ErrNotFound
	}
	if existing.Version != expectedVersion {
		return csr.ErrConcurrentModification
	}
	p.Version = expectedVersion + 1
	m.profiles[p.ID] = p
	return nil
}

func (m *Memory) GetProfile(_ context.Context, id csr.ProfileID) (*csr.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, csr.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) GetProfileByEmployee(_ context.Context, employeeID string) (*csr.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.profileOrder {
		p := m.profiles[id]
		if p.EmployeeID == employeeID {
			return &p, nil
		}
	}
	return nil, csr.ErrNoProfile
}

func (m *Memory) ListProfiles(_ context.Context) ([]csr.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]csr.Profile, 0, len(m.profileOrder))
	for _, id := range m.profileOrder {
		out = append(out, m.profiles[id])
	}
	return out, nil
}

func (m *Memory) DeleteProfile(_ context.Context, id csr.ProfileID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id]; !ok {
		return csr.ErrNotFound
	}
	delete(m.profiles, id)
	for i, pid := range m.profileOrder {
		if pid == id {
			m.profileOrder = append(m.profileOrder[:i], m.profileOrder[i+1:]...)
			break
		}
	}
	// Cascade: the profile exclusively owns its activities.
	for aid, a := range m.activities {
		if a.ProfileID == id {
			delete(m.activities, aid)
		}
	}
	return nil
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

func (m *Memory) CreateDepartment(_ context.Context, d csr.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.deptByHRID[d.DepartmentID]; exists {
		return csr.ErrDuplicateDepartment
	}
	m.departments[d.ID] = d
	m.deptOrder = append(m.deptOrder, d.ID)
	m.deptByHRID[d.DepartmentID] = d.ID
	return nil
}

func (m *Memory) SaveDepartment(_ context.Context, d csr.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.departments[d.ID]; !ok {
		return csr.ErrNotFound
	}
	m.departments[d.ID] = d
	return nil
}

func (m *Memory) GetDepartment(_ context.Context, id csr.DepartmentID) (*csr.Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.departments[id]
	if !ok {
		return nil, csr.ErrNotFound
	}
	return &d, nil
}

func (m *Memory) ListDepartments(_ context.Context) ([]csr.Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]csr.Department, 0, len(m.deptOrder))
	for _, id := range m.deptOrder {
		out = append(out, m.departments[id])
	}
	return out, nil
}

// =============================================================================
// REWARDS
// =============================================================================

func (m *Memory) SaveReward(_ context.Context, r csr.Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rewards[r.ID]; !ok {
		m.rewardOrder = append(m.rewardOrder, r.ID)
	}
	m.rewards[r.ID] = r
	return nil
}

func (m *Memory) GetReward(_ context.Context, id csr.RewardID) (*csr.Reward, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rewards[id]
	if !ok {
		return nil, csr.ErrNotFound
	}
	return &r, nil
}

func (m *Memory) ListRewards(_ context.Context, activeOnly bool) ([]csr.Reward, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]csr.Reward, 0, len(m.rewardOrder))
	for _, id := range m.rewardOrder {
		r := m.rewards[id]
		if activeOnly && !r.Active {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// =============================================================================
// OPPORTUNITIES
// =============================================================================

func (m *Memory) SaveOpportunity(_ context.Context, o csr.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opportunities = append(m.opportunities, o)
	return nil
}

func (m *Memory) ListOpportunities(_ context.Context) ([]csr.Opportunity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]csr.Opportunity, len(m.opportunities))
	copy(out, m.opportunities)
	return out, nil
}

func (m *Memory) FindOpportunityBySDG(_ context.Context, sdg csr.SDGCode) (*csr.Opportunity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *csr.Opportunity
	for i := range m.opportunities {
		o := m.opportunities[i]
		if o.SDG != sdg {
			continue
		}
		if best == nil || o.Date.Before(best.Date) {
			best = &o
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

// =============================================================================
// TASKS
// =============================================================================

func (m *Memory) CreateTask(_ context.Context, t csr.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, t)
	return nil
}

func (m *Memory) ListTasks(_ context.Context, assigneeID string) ([]csr.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []csr.Task
	for _, t := range m.tasks {
		if assigneeID == "" || t.AssigneeID == assigneeID {
			out = append(out, t)
		}
	}
	return out, nil
}

// =============================================================================
// DASHBOARD
// =============================================================================

func (m *Memory) SaveDashboard(_ context.Context, d csr.Dashboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dashboard = &d
	return nil
}

func (m *Memory) GetDashboard(_ context.Context) (*csr.Dashboard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.dashboard == nil {
		return nil, nil
	}
	cp := *m.dashboard
	return &cp, nil
}

// =============================================================================
// RESET
// =============================================================================

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = make(map[csr.ActivityID]csr.Activity)
	m.profiles = make(map[csr.ProfileID]csr.Profile)
	m.profileOrder = nil
	m.departments = make(map[csr.DepartmentID]csr.Department)
	m.deptOrder = nil
	m.deptByHRID = make(map[string]csr.DepartmentID)
	m.rewards = make(map[csr.RewardID]csr.Reward)
	m.rewardOrder = nil
	m.opportunities = nil
	m.tasks = nil
	m.dashboard = nil
	return nil
}
