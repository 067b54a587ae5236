/*
Package rewards implements the reward catalog and point redemption.

PURPOSE:
  Impact points earned from approved activities are spent here. Redemption
  deducts points from the requester's profile and notifies their manager
  for fulfilment. The catalog item itself is never mutated by redemption.

REDEMPTION FLOW:
  1. Resolve the requester's profile (exactly one must exist)
  2. Check the reward is active and affordable
  3. Deduct points via compare-and-swap on the profile version
  4. Create a fulfilment task for the manager (or the requester when no
     manager exists)

CONCURRENCY:
  The deduction is a read-modify-write guarded by an optimistic version
  counter. A concurrent redemption by the same employee fails the swap; the
  service re-reads and retries a bounded number of times, re-checking the
  balance each attempt. Double-spend is not possible through this path.

  Profile rollup recomputes also bump the version, so a redemption racing
  an approval retries against the fresh totals.

NOTIFICATION:
  Task creation is fire-and-forget: a failed notification is logged and the
  redemption still succeeds.
*/
package rewards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/greenflow/impact-engine/csr"
)

// casRetries bounds how often a redemption retries a lost version race.
const casRetries = 3

// Service handles reward redemption against the shared store.
type Service struct {
	Profiles csr.ProfileStore
	Rewards  csr.RewardStore
	Tasks    csr.TaskStore
	Log      logrus.FieldLogger
}

func NewService(store csr.Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		Profiles: store,
		Rewards:  store,
		Tasks:    store,
		Log:      log,
	}
}

// Receipt acknowledges a successful redemption.
type Receipt struct {
	Reward          csr.Reward
	ProfileID       csr.ProfileID
	PointsSpent     int
	RemainingPoints int

	// NotifiedID is the employee who received the fulfilment task.
	NotifiedID string
}

// Redeem spends points from the requester's profile on a catalog reward.
//
// Errors:
//   - csr.ErrNoProfile when the requester has no linked profile
//   - csr.ErrRewardInactive for a deactivated reward
//   - *csr.InsufficientPointsError reporting available and required points
//   - csr.ErrConcurrentModification when retries are exhausted
func (s *Service) Redeem(ctx context.Context, rewardID csr.RewardID, employeeID string) (*Receipt, error) {
	reward, err := s.Rewards.GetReward(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if !reward.Active {
		return nil, csr.ErrRewardInactive
	}

	var profile *csr.Profile
	for attempt := 0; ; attempt++ {
		profile, err = s.Profiles.GetProfileByEmployee(ctx, employeeID)
		if err != nil {
			return nil, err
		}

		if profile.TotalImpactPoints < reward.PointCost {
			return nil, &csr.InsufficientPointsError{
				ProfileID: profile.ID,
				Available: profile.TotalImpactPoints,
				Required:  reward.PointCost,
			}
		}

		updated := *profile
		updated.TotalImpactPoints -= reward.PointCost
		err = s.Profiles.SaveProfileVersioned(ctx, updated, profile.Version)
		if err == nil {
			profile = &updated
			break
		}
		if !errors.Is(err, csr.ErrConcurrentModification) {
			return nil, err
		}
		if attempt+1 >= casRetries {
			return nil, err
		}
		// Lost the race; re-read and re-check the balance.
	}

	notified := s.notifyFulfilment(ctx, profile, reward)

	s.Log.WithFields(logrus.Fields{
		"profile_id": profile.ID,
		"reward":     reward.Name,
		"points":     reward.PointCost,
	}).Info("reward redeemed")

	return &Receipt{
		Reward:          *reward,
		ProfileID:       profile.ID,
		PointsSpent:     reward.PointCost,
		RemainingPoints: profile.TotalImpactPoints,
		NotifiedID:      notified,
	}, nil
}

// notifyFulfilment creates the manager's to-do. Failure never rolls back
// the redemption; it is logged for diagnostics only.
func (s *Service) notifyFulfilment(ctx context.Context, profile *csr.Profile, reward *csr.Reward) string {
	assignee := profile.ManagerID
	if assignee == "" {
		assignee = profile.EmployeeID
	}

	task := csr.Task{
		ID:      uuid.NewString(),
		Summary: fmt.Sprintf("Reward Redemption: %s", reward.Name),
		Body: fmt.Sprintf("Employee %s redeemed %d points for '%s'. Please arrange for fulfillment.",
			profile.Name, reward.PointCost, reward.Name),
		TargetRecord: "profile:" + string(profile.ID),
		AssigneeID:   assignee,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.Tasks.CreateTask(ctx, task); err != nil {
		s.Log.WithError(err).WithField("profile_id", profile.ID).
			Warn("failed to create fulfilment task")
	}
	return assignee
}
