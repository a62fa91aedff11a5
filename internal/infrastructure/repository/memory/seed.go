package memory

import (
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/league"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/team"
)

const (
	LeagueIDPremierLeague = "eng-premier-league"
	LeagueIDLaLiga        = "esp-la-liga"
	LeagueIDNBA           = "usa-nba"
)

// SeedLeagues is the curated league catalog with provider references.
func SeedLeagues() []league.League {
	return []league.League{
		{
			ID:    LeagueIDPremierLeague,
			Sport: sport.Football,
			Name:  "Premier League",
			TeamIDs: []string{
				"eng-ars", "eng-che", "eng-liv", "eng-mci", "eng-mun", "eng-tot", "eng-new", "eng-avl",
			},
			ProviderRefs: map[string]string{"sportmonks": "8", "espn": "soccer/eng.1"},
		},
		{
			ID:           LeagueIDLaLiga,
			Sport:        sport.Football,
			Name:         "La Liga",
			TeamIDs:      []string{"esp-rma", "esp-fcb", "esp-atm"},
			ProviderRefs: map[string]string{"sportmonks": "564", "espn": "soccer/esp.1"},
		},
		{
			ID:           LeagueIDNBA,
			Sport:        sport.Basketball,
			Name:         "NBA",
			TeamIDs:      []string{"nba-lal", "nba-lac", "nba-gsw", "nba-bos", "nba-nyk", "nba-mia"},
			ProviderRefs: map[string]string{"espn": "basketball/nba"},
		},
	}
}

// SeedTeams is the curated alias table. Aliases with a provider only apply to
// that provider's payloads.
func SeedTeams() []team.Team {
	return []team.Team{
		{ID: "eng-ars", Sport: sport.Football, Name: "Arsenal", Nickname: "Gunners", Aliases: []team.Alias{{Name: "Arsenal FC"}, {Provider: "espn", Name: "ARS"}}},
		{ID: "eng-che", Sport: sport.Football, Name: "Chelsea", Nickname: "Blues", Aliases: []team.Alias{{Provider: "espn", Name: "CHE"}}},
		{ID: "eng-liv", Sport: sport.Football, Name: "Liverpool", Nickname: "Reds", Aliases: []team.Alias{{Provider: "espn", Name: "LIV"}}},
		{ID: "eng-mci", Sport: sport.Football, Name: "Manchester City", Nickname: "Citizens", Aliases: []team.Alias{{Name: "Man City"}, {Provider: "espn", Name: "MNC"}}},
		{ID: "eng-mun", Sport: sport.Football, Name: "Manchester United", Nickname: "Red Devils", Aliases: []team.Alias{{Name: "Man United"}, {Name: "Man Utd"}, {Provider: "espn", Name: "MAN"}}},
		{ID: "eng-tot", Sport: sport.Football, Name: "Tottenham Hotspur", Nickname: "Spurs", Aliases: []team.Alias{{Name: "Tottenham"}}},
		{ID: "eng-new", Sport: sport.Football, Name: "Newcastle United", Nickname: "Magpies", Aliases: []team.Alias{{Name: "Newcastle"}}},
		{ID: "eng-avl", Sport: sport.Football, Name: "Aston Villa", Nickname: "Villans", Aliases: []team.Alias{{Name: "Villa"}}},
		{ID: "esp-rma", Sport: sport.Football, Name: "Real Madrid", Nickname: "Los Blancos", Aliases: []team.Alias{{Name: "Real Madrid CF"}}},
		{ID: "esp-fcb", Sport: sport.Football, Name: "Barcelona", Nickname: "Barca", Aliases: []team.Alias{{Name: "FC Barcelona"}}},
		{ID: "esp-atm", Sport: sport.Football, Name: "Atletico Madrid", Nickname: "Colchoneros", Aliases: []team.Alias{{Name: "Atlético de Madrid"}, {Name: "Atl. Madrid"}}},
		{ID: "nba-lal", Sport: sport.Basketball, Name: "Los Angeles Lakers", Nickname: "Lakers", Aliases: []team.Alias{{Name: "LA Lakers"}, {Provider: "espn", Name: "LAL"}}},
		{ID: "nba-lac", Sport: sport.Basketball, Name: "LA Clippers", Nickname: "Clippers", Aliases: []team.Alias{{Name: "Los Angeles Clippers"}, {Provider: "espn", Name: "LAC"}}},
		{ID: "nba-gsw", Sport: sport.Basketball, Name: "Golden State Warriors", Nickname: "Warriors", Aliases: []team.Alias{{Provider: "espn", Name: "GS"}}},
		{ID: "nba-bos", Sport: sport.Basketball, Name: "Boston Celtics", Nickname: "Celtics", Aliases: []team.Alias{{Provider: "espn", Name: "BOS"}}},
		{ID: "nba-nyk", Sport: sport.Basketball, Name: "New York Knicks", Nickname: "Knicks", Aliases: []team.Alias{{Provider: "espn", Name: "NY"}}},
		{ID: "nba-mia", Sport: sport.Basketball, Name: "Miami Heat", Nickname: "Heat", Aliases: []team.Alias{{Provider: "espn", Name: "MIA"}}},
	}
}

// SeedNicknames extends the nickname table with names that are not a team's
// primary nickname.
func SeedNicknames() map[string]string {
	return map[string]string{
		"Man U":        "eng-mun",
		"The Citizens": "eng-mci",
		"Dubs":         "nba-gsw",
		"Cs":           "nba-bos",
	}
}
