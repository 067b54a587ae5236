package rewards_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenflow/impact-engine/csr"
	"github.com/greenflow/impact-engine/csr/store"
	"github.com/greenflow/impact-engine/rewards"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*rewards.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return rewards.NewService(mem, nil), mem
}

func seedProfile(t *testing.T, mem *store.Memory, employeeID, managerID string, points int) csr.Profile {
	t.Helper()
	p := csr.Profile{
		ID:                csr.ProfileID("prof-" + employeeID),
		EmployeeID:        employeeID,
		Name:              employeeID,
		ManagerID:         managerID,
		TotalImpactPoints: points,
		VolunteeringHours: csr.ZeroAmount(csr.UnitHours),
		DonationAmount:    csr.ZeroAmount(csr.UnitUSD),
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, mem.CreateProfile(context.Background(), p))
	return p
}

func seedReward(t *testing.T, mem *store.Memory, name string, cost int, active bool) csr.Reward {
	t.Helper()
	r := csr.Reward{
		ID:        csr.RewardID("rw-" + name),
		Name:      name,
		PointCost: cost,
		Active:    active,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, mem.SaveReward(context.Background(), r))
	return r
}

// =============================================================================
// REDEMPTION TESTS
// =============================================================================

func TestRedeem_DeductsAndNotifiesManager(t *testing.T) {
	// GIVEN: An employee with 300 points and a manager
	// WHEN: Redeeming a 200-point reward
	// THEN: 100 points remain and the manager gets the fulfilment task

	svc, mem := newTestService(t)
	seedProfile(t, mem, "emp-1", "mgr-1", 300)
	rw := seedReward(t, mem, "Day Off", 200, true)

	receipt, err := svc.Redeem(context.Background(), rw.ID, "emp-1")
	require.NoError(t, err)

	assert.Equal(t, 200, receipt.PointsSpent)
	assert.Equal(t, 100, receipt.RemainingPoints)
	assert.Equal(t, "mgr-1", receipt.NotifiedID)

	fresh, err := mem.GetProfileByEmployee(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 100, fresh.TotalImpactPoints)

	tasks, err := mem.ListTasks(context.Background(), "mgr-1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Contains(t, tasks[0].Summary, "Day Off")
	assert.Contains(t, tasks[0].Body, "200 points")
}

func TestRedeem_NoManagerNotifiesRequester(t *testing.T) {
	svc, mem := newTestService(t)
	seedProfile(t, mem, "emp-1", "", 100)
	rw := seedReward(t, mem, "Gift Box", 50, true)

	receipt, err := svc.Redeem(context.Background(), rw.ID, "emp-1")
	require.NoError(t, err)

	assert.Equal(t, "emp-1", receipt.NotifiedID)
	tasks, _ := mem.ListTasks(context.Background(), "emp-1")
	assert.Len(t, tasks, 1)
}

func TestRedeem_InsufficientPointsReportsBothSides(t *testing.T) {
	// GIVEN: An employee holding 50 points
	// WHEN: Redeeming a 100-point reward
	// THEN: The error reports have 50 / need 100 and nothing is deducted

	svc, mem := newTestService(t)
	seedProfile(t, mem, "emp-1", "", 50)
	rw := seedReward(t, mem, "Hoodie", 100, true)

	_, err := svc.Redeem(context.Background(), rw.ID, "emp-1")

	var ipe *csr.InsufficientPointsError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, 50, ipe.Available)
	assert.Equal(t, 100, ipe.Required)
	assert.True(t, errors.Is(err, csr.ErrInsufficientPoints))

	fresh, _ := mem.GetProfileByEmployee(context.Background(), "emp-1")
	assert.Equal(t, 50, fresh.TotalImpactPoints, "failed redemption must not deduct")

	tasks, _ := mem.ListTasks(context.Background(), "")
	assert.Empty(t, tasks, "failed redemption must not notify")
}

func TestRedeem_ExactBalanceSucceeds(t *testing.T) {
	svc, mem := newTestService(t)
	seedProfile(t, mem, "emp-1", "", 100)
	rw := seedReward(t, mem, "Hoodie", 100, true)

	receipt, err := svc.Redeem(context.Background(), rw.ID, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 0, receipt.RemainingPoints)
}

func TestRedeem_InactiveReward(t *testing.T) {
	svc, mem := newTestService(t)
	seedProfile(t, mem, "emp-1", "", 500)
	rw := seedReward(t, mem, "Retired", 10, false)

	_, err := svc.Redeem(context.Background(), rw.ID, "emp-1")
	assert.True(t, errors.Is(err, csr.ErrRewardInactive))
}

func TestRedeem_NoLinkedProfile(t *testing.T) {
	svc, mem := newTestService(t)
	rw := seedReward(t, mem, "Gift", 10, true)

	_, err := svc.Redeem(context.Background(), rw.ID, "nobody")
	assert.True(t, errors.Is(err, csr.ErrNoProfile))
}

func TestRedeem_UnknownReward(t *testing.T) {
	svc, mem := newTestService(t)
	seedProfile(t, mem, "emp-1", "", 500)

	_, err := svc.Redeem(context.Background(), "ghost", "emp-1")
	assert.True(t, csr.IsNotFound(err))
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

// racingStore makes the first versioned save lose, simulating a concurrent
// writer bumping the profile between read and write.
type racingStore struct {
	*store.Memory
	raced bool
}

func (r *racingStore) SaveProfileVersioned(ctx context.Context, p csr.Profile, expected int) error {
	if !r.raced {
		r.raced = true
		// Concurrent writer got there first.
		fresh, err := r.Memory.GetProfile(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := r.Memory.SaveProfile(ctx, *fresh); err != nil {
			return err
		}
		return csr.ErrConcurrentModification
	}
	return r.Memory.SaveProfileVersioned(ctx, p, expected)
}

func TestRedeem_RetriesLostVersionRace(t *testing.T) {
	// GIVEN: A store whose first swap fails with a version conflict
	// WHEN: Redeeming
	// THEN: The service re-reads and succeeds on the retry, deducting once

	mem := store.NewMemory()
	racing := &racingStore{Memory: mem}
	svc := rewards.NewService(mem, nil)
	svc.Profiles = racing

	seedProfile(t, mem, "emp-1", "", 300)
	rw := seedReward(t, mem, "Day Off", 200, true)

	receipt, err := svc.Redeem(context.Background(), rw.ID, "emp-1")
	require.NoError(t, err)
	assert.True(t, racing.raced)
	assert.Equal(t, 100, receipt.RemainingPoints)

	fresh, _ := mem.GetProfileByEmployee(context.Background(), "emp-1")
	assert.Equal(t, 100, fresh.TotalImpactPoints, "points deducted exactly once")
}

// conflictStore always loses the version race.
type conflictStore struct {
	*store.Memory
	attempts int
}

func (c *conflictStore) SaveProfileVersioned(context.Context, csr.Profile, int) error {
	c.attempts++
	return csr.ErrConcurrentModification
}

func TestRedeem_GivesUpAfterBoundedRetries(t *testing.T) {
	mem := store.NewMemory()
	conflicting := &conflictStore{Memory: mem}
	svc := rewards.NewService(mem, nil)
	svc.Profiles = conflicting

	seedProfile(t, mem, "emp-1", "", 300)
	rw := seedReward(t, mem, "Day Off", 200, true)

	_, err := svc.Redeem(context.Background(), rw.ID, "emp-1")
	assert.True(t, errors.Is(err, csr.ErrConcurrentModification))
	assert.Equal(t, 3, conflicting.attempts)
}
