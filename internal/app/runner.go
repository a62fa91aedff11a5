package app

import (
	"context"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/jobscheduler"
	"github.com/riskibarqy/fixture-calendar-sync/internal/observability"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

// PassRunner is the part of the scheduler the in-process loop drives.
type PassRunner interface {
	RunPass(ctx context.Context, kind jobscheduler.PassKind, now time.Time) (usecase.PassResult, error)
	NextNightlyRun(now time.Time) time.Time
	LiveInterval() time.Duration
}

// Runner fires the nightly pass at its configured slot and a live refresh on
// every live interval. Passes run one at a time; ticks that arrive while a
// pass is running are dropped.
type Runner struct {
	scheduler PassRunner
	logger    *logging.Logger
	now       func() time.Time
}

func NewRunner(scheduler PassRunner, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		scheduler: scheduler,
		logger:    logger.Named("runner"),
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled. It refreshes schedules once on start so
// a fresh instance has fixtures before the first nightly slot.
func (r *Runner) Run(ctx context.Context) {
	r.runPass(ctx, jobscheduler.PassSchedule)

	next := r.scheduler.NextNightlyRun(r.now())
	nightly := time.NewTimer(time.Until(next))
	defer nightly.Stop()
	live := time.NewTicker(r.scheduler.LiveInterval())
	defer live.Stop()

	r.logger.InfoContext(ctx, "pass runner started", "next_nightly_at", next.Format(time.RFC3339), "live_interval", r.scheduler.LiveInterval().String())
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "pass runner stopped")
			return
		case <-nightly.C:
			r.runPass(ctx, jobscheduler.PassNightly)
			next = r.scheduler.NextNightlyRun(r.now())
			nightly.Reset(time.Until(next))
		case <-live.C:
			r.runPass(ctx, jobscheduler.PassLive)
		}
	}
}

func (r *Runner) runPass(ctx context.Context, kind jobscheduler.PassKind) {
	if ctx.Err() != nil {
		return
	}
	observability.ProfilePass(ctx, string(kind), func(ctx context.Context) {
		if _, err := r.scheduler.RunPass(ctx, kind, r.now()); err != nil {
			r.logger.WarnContext(ctx, "scheduled pass failed", "kind", kind, "error", err)
		}
	})
}
