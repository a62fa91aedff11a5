package fixture

import (
	"context"
	"time"
)

// Repository persists canonical fixtures. Query returns value copies.
type Repository interface {
	GetByID(ctx context.Context, fixtureID string) (Fixture, bool, error)
	Query(ctx context.Context, filter Filter) ([]Fixture, error)
	Upsert(ctx context.Context, item Fixture) error
	// DeleteCompletedBefore purges completed fixtures whose kickoff is older
	// than cutoff and returns how many were removed.
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
