/*
scheduler.go - Automated metrics refresh scheduler

PURPOSE:
  Periodically re-runs the rank computation and refreshes the cached
  organization dashboard. Quarter windows slide daily, so last-quarter
  points and improvement ranks drift stale without a periodic recompute
  even when no activity changes state.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Recomputes every profile's rollup totals against the current date
  - Reassigns ranks and refreshes the dashboard cache
  - Each tick is independent; a failed tick is logged and retried next tick

CONFIGURATION:
  - CheckInterval: How often to refresh (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRefreshScheduler(engine, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - metrics/engine.go: RecomputeProfile, RecomputeRanks, RefreshDashboard
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/greenflow/impact-engine/metrics"
)

// RefreshScheduler keeps time-dependent aggregates current.
type RefreshScheduler struct {
	Engine        *metrics.Engine
	Log           logrus.FieldLogger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRefreshScheduler creates a new scheduler.
func NewRefreshScheduler(engine *metrics.Engine, log logrus.FieldLogger) *RefreshScheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RefreshScheduler{
		Engine:        engine,
		Log:           log.WithField("component", "scheduler"),
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Log.Info("disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	rs.Log.WithField("interval", rs.CheckInterval).Info("started")
}

// Stop stops the scheduler.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.Log.Info("stopped")
	}
}

func (rs *RefreshScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.refresh()

	for {
		select {
		case <-rs.ticker.C:
			rs.refresh()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RefreshScheduler) refresh() {
	ctx := context.Background()

	profiles, err := rs.Engine.Store.ListProfiles(ctx)
	if err != nil {
		rs.Log.WithError(err).Error("failed to list profiles")
		return
	}

	refreshed := 0
	for _, p := range profiles {
		if _, err := rs.Engine.RecomputeProfile(ctx, p.ID); err != nil {
			rs.Log.WithError(err).WithField("profile_id", p.ID).Error("failed to recompute profile")
			continue
		}
		refreshed++
	}

	if err := rs.Engine.RecomputeRanks(ctx); err != nil {
		rs.Log.WithError(err).Error("failed to recompute ranks")
		return
	}
	if _, err := rs.Engine.RefreshDashboard(ctx); err != nil {
		rs.Log.WithError(err).Error("failed to refresh dashboard")
		return
	}

	rs.Log.WithField("profiles", refreshed).Debug("metrics refreshed")
}
