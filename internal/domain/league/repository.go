package league

import (
	"context"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
)

// Repository describes league persistence needs from use cases.
type Repository interface {
	List(ctx context.Context) ([]League, error)
	ListBySport(ctx context.Context, s sport.Sport) ([]League, error)
	GetByID(ctx context.Context, leagueID string) (League, bool, error)
	// GetByProviderRef finds the league a provider's own reference points at.
	GetByProviderRef(ctx context.Context, provider, ref string) (League, bool, error)
}
