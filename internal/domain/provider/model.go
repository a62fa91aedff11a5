package provider

import (
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
)

// Fixture is one match as a provider reports it, before normalization.
type Fixture struct {
	Provider     string
	ExternalID   string
	Sport        sport.Sport
	LeagueRef    string
	LeagueName   string
	HomeTeamName string
	AwayTeamName string
	KickoffAt    time.Time
	Venue        string
	Status       string
	HomeScore    *int
	AwayScore    *int
}

// ScoreUpdate is a live score report. It carries the team names and kickoff
// so it can be normalized onto the same canonical fixture.
type ScoreUpdate struct {
	Provider     string
	ExternalID   string
	Sport        sport.Sport
	LeagueRef    string
	HomeTeamName string
	AwayTeamName string
	KickoffAt    time.Time
	Status       string
	HomeScore    *int
	AwayScore    *int
}

func (u ScoreUpdate) AsFixture() Fixture {
	return Fixture{
		Provider:     u.Provider,
		ExternalID:   u.ExternalID,
		Sport:        u.Sport,
		LeagueRef:    u.LeagueRef,
		HomeTeamName: u.HomeTeamName,
		AwayTeamName: u.AwayTeamName,
		KickoffAt:    u.KickoffAt,
		Status:       u.Status,
		HomeScore:    u.HomeScore,
		AwayScore:    u.AwayScore,
	}
}
