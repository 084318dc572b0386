// Package scheduler drives the periodic cycle (§4.K): a quarantine sweep,
// then watchers, then the orchestrator's three per-artifact passes, then
// an Updates/ drain,
// then a cross-zone sync. One artifact's failure never halts a cycle;
// only programming errors (a watcher or the orchestrator itself
// returning a non-per-item error) propagate and stop the process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalfte/fte/internal/orchestrator"
	"github.com/digitalfte/fte/internal/retry"
	"github.com/digitalfte/fte/internal/vault"
	"github.com/digitalfte/fte/internal/vcsync"
	"github.com/digitalfte/fte/internal/watcher"
	"github.com/digitalfte/fte/internal/zone"
)

// DefaultInterval is the daemon mode's between-cycle sleep.
const DefaultInterval = 60 * time.Second

// Report summarizes one cycle for logging/narration.
type Report struct {
	Reinstated   int
	WatcherItems int
	Processed    int
	Executed     int
	Reviewed     int
	Synced       bool
	ItemErrors   []error
}

// Scheduler owns one cycle's collaborators. VCS and ApplyUpdate are
// optional: a nil VCS skips step 7 (sync); a nil ApplyUpdate skips step
// 6 (the Updates/ drain, local zone only). QuarantineMinAge defaults to
// retry.DefaultMinAge when zero.
type Scheduler struct {
	Watchers         []watcher.Watcher
	Orchestrator     *orchestrator.Orchestrator
	Store            *vault.Store
	Zone             *zone.Policy
	VCS              *vcsync.Git
	ApplyUpdate      func(vcsync.Update) error
	QuarantineMinAge time.Duration
}

// New returns a Scheduler wired to the given collaborators.
func New(store *vault.Store, o *orchestrator.Orchestrator, z *zone.Policy, watchers ...watcher.Watcher) *Scheduler {
	return &Scheduler{Watchers: watchers, Orchestrator: o, Store: store, Zone: z}
}

// RunOnce executes the §4.K cycle once.
func (s *Scheduler) RunOnce(ctx context.Context) (*Report, error) {
	report := &Report{}

	reinstated, err := retry.ProcessQuarantine(s.Store, s.QuarantineMinAge)
	if err != nil {
		return report, fmt.Errorf("scheduler: processing quarantine: %w", err)
	}
	report.Reinstated = reinstated

	for _, w := range s.Watchers {
		n, err := w.RunOnce(ctx)
		if err != nil {
			return report, fmt.Errorf("scheduler: watcher run_once: %w", err)
		}
		report.WatcherItems += n
	}

	pending, err := s.Orchestrator.GetPending()
	if err != nil {
		return report, fmt.Errorf("scheduler: listing pending: %w", err)
	}
	for _, h := range pending {
		if err := s.Orchestrator.ProcessPending(ctx, h); err != nil {
			report.ItemErrors = append(report.ItemErrors, fmt.Errorf("process_pending %s: %w", h.Name, err))
			continue
		}
		report.Processed++
	}

	approved, err := s.Orchestrator.GetApproved()
	if err != nil {
		return report, fmt.Errorf("scheduler: listing approved: %w", err)
	}
	for _, h := range approved {
		if _, err := s.Orchestrator.ExecuteApproved(ctx, h); err != nil {
			report.ItemErrors = append(report.ItemErrors, fmt.Errorf("execute_approved %s: %w", h.Name, err))
			continue
		}
		report.Executed++
	}

	rejected, err := s.Orchestrator.GetRejected()
	if err != nil {
		return report, fmt.Errorf("scheduler: listing rejected: %w", err)
	}
	for _, h := range rejected {
		if err := s.Orchestrator.ReviewRejected(ctx, h); err != nil {
			report.ItemErrors = append(report.ItemErrors, fmt.Errorf("review_rejected %s: %w", h.Name, err))
			continue
		}
		report.Reviewed++
	}

	if s.Zone.Allows(zone.WriteDashboard) && s.ApplyUpdate != nil {
		if _, err := vcsync.DrainUpdates(s.Store, s.ApplyUpdate); err != nil {
			report.ItemErrors = append(report.ItemErrors, fmt.Errorf("draining updates: %w", err))
		}
	}

	if s.VCS != nil {
		if err := s.VCS.Sync(ctx, "cycle sync"); err != nil {
			report.ItemErrors = append(report.ItemErrors, fmt.Errorf("sync: %w", err))
		} else {
			report.Synced = true
		}
	}

	return report, nil
}

// RunDaemon runs cycles in a loop, sleeping interval between them, until
// ctx is cancelled. Each cycle runs to completion before checking for
// cancellation (§5: "cycles do not currently support mid-cycle
// cancellation").
func (s *Scheduler) RunDaemon(ctx context.Context, interval time.Duration, onCycle func(*Report)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	for {
		report, err := s.RunOnce(ctx)
		if onCycle != nil {
			onCycle(report)
		}
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}
