package jobscheduler

import "context"

type Repository interface {
	// SaveRun inserts or replaces a run by id.
	SaveRun(ctx context.Context, run PassRun) error
	LatestRun(ctx context.Context, kind PassKind) (PassRun, bool, error)
}
