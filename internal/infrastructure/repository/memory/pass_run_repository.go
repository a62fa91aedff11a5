package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/jobscheduler"
)

type PassRunRepository struct {
	mu   sync.RWMutex
	runs []jobscheduler.PassRun
}

func NewPassRunRepository() *PassRunRepository {
	return &PassRunRepository{}
}

func (r *PassRunRepository) SaveRun(_ context.Context, run jobscheduler.PassRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for idx := range r.runs {
		if r.runs[idx].ID == run.ID {
			r.runs[idx] = run
			return nil
		}
	}
	r.runs = append(r.runs, run)
	return nil
}

func (r *PassRunRepository) LatestRun(_ context.Context, kind jobscheduler.PassKind) (jobscheduler.PassRun, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		latest jobscheduler.PassRun
		found  bool
	)
	for _, run := range r.runs {
		if run.Kind != kind {
			continue
		}
		if !found || run.StartedAt.After(latest.StartedAt) {
			latest = run
			found = true
		}
	}
	return latest, found, nil
}
