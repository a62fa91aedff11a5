package provider

import (
	"context"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
)

// Adapter is the capability every sports data provider exposes. An empty
// leagueRef asks for every league the provider covers for that sport.
type Adapter interface {
	Name() string
	FetchSchedule(ctx context.Context, s sport.Sport, leagueRef string, from, to time.Time) ([]Fixture, error)
	FetchLiveScores(ctx context.Context, s sport.Sport) ([]ScoreUpdate, error)
}
