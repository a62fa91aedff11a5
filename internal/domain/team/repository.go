package team

import (
	"context"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
)

// Repository describes team persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, teamID string) (Team, bool, error)
	ListBySport(ctx context.Context, s sport.Sport) ([]Team, error)
	// Upsert stores a team. It is used for provisional teams only; curated
	// teams are seeded.
	Upsert(ctx context.Context, item Team) error
}
