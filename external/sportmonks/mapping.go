package sportmonks

import (
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/provider"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
)

const (
	statusScheduled = "SCHEDULED"
	statusLive      = "LIVE"
	statusFinished  = "FINISHED"
	statusPostponed = "POSTPONED"
	statusCancelled = "CANCELLED"
)

// stateStatus maps SportMonks fixture state ids onto provider status codes.
var stateStatus = map[int64]string{
	1: statusScheduled,
	2: statusLive, 3: statusLive, 4: statusLive, 6: statusLive, 7: statusLive,
	8: statusLive, 9: statusLive, 22: statusLive, 25: statusLive,
	5: statusFinished, 13: statusFinished, 14: statusFinished, 23: statusFinished, 24: statusFinished,
	10: statusPostponed, 15: statusPostponed, 16: statusPostponed, 18: statusPostponed, 19: statusPostponed, 21: statusPostponed,
	11: statusCancelled, 12: statusCancelled, 17: statusCancelled, 20: statusCancelled,
}

// resultInfoStatus is consulted in order when the state id is unknown.
var resultInfoStatus = []struct {
	keywords []string
	status   string
}{
	{[]string{"postpon"}, statusPostponed},
	{[]string{"cancel", "abandon"}, statusCancelled},
	{[]string{"live", "in play", "half"}, statusLive},
	{[]string{"finish", "full time", "aet", "pen"}, statusFinished},
}

func fixtureStatus(stateID int64, resultInfo string) string {
	if status, ok := stateStatus[stateID]; ok {
		return status
	}
	info := strings.ToLower(resultInfo)
	for _, rule := range resultInfoStatus {
		for _, kw := range rule.keywords {
			if strings.Contains(info, kw) {
				return rule.status
			}
		}
	}
	return statusScheduled
}

var kickoffLayouts = []string{time.DateTime, time.RFC3339}

func parseKickoff(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range kickoffLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// toFixture drops items without an id, a kickoff or both sides named.
func (it fixtureItem) toFixture() (provider.Fixture, bool) {
	kickoff, ok := parseKickoff(it.StartingAt)
	if it.ID <= 0 || !ok {
		return provider.Fixture{}, false
	}
	home, away := sides(it.Participants)
	if home == nil || away == nil {
		return provider.Fixture{}, false
	}

	stateID := it.StateID
	if it.State.Set && it.State.Data.ID > 0 {
		stateID = it.State.Data.ID
	}

	f := provider.Fixture{
		Provider:     ProviderName,
		ExternalID:   strconv.FormatInt(it.ID, 10),
		Sport:        sport.Football,
		HomeTeamName: home.Name,
		AwayTeamName: away.Name,
		KickoffAt:    kickoff,
		Status:       fixtureStatus(stateID, it.ResultInfo),
	}
	f.HomeScore, f.AwayScore = bestScores(it.Scores, home.ID, away.ID)
	if it.LeagueID > 0 {
		f.LeagueRef = strconv.FormatInt(it.LeagueID, 10)
	}
	if it.League.Set {
		f.LeagueName = strings.TrimSpace(it.League.Data.Name)
	}
	if it.Venue.Set {
		f.Venue = strings.TrimSpace(it.Venue.Data.Name)
	}
	return f, true
}

func sides(participants []participant) (home, away *participant) {
	for i := range participants {
		p := &participants[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(p.Meta.Location)) {
		case "home":
			home = p
		case "away":
			away = p
		}
	}
	return home, away
}

// scorePeriodRank orders score descriptions; the highest ranked period seen
// for a fixture is the one reported.
func scorePeriodRank(description string) int {
	d := strings.ToLower(strings.TrimSpace(description))
	switch {
	case d == "current":
		return 6
	case strings.Contains(d, "normal_time"), strings.Contains(d, "90"):
		return 5
	case strings.Contains(d, "extra_time"):
		return 4
	case strings.Contains(d, "penalt"):
		return 3
	case d == "1st_half", d == "2nd_half":
		return 2
	}
	return 1
}

func bestScores(scores []scoreEntry, homeID, awayID int64) (home, away *int) {
	best := 0
	for _, s := range scores {
		goals, ok := s.goals()
		if !ok {
			continue
		}
		rank := scorePeriodRank(s.Description)
		if rank < best {
			continue
		}
		if rank > best {
			best, home, away = rank, nil, nil
		}
		switch {
		case homeID > 0 && s.ParticipantID == homeID:
			home = &goals
		case awayID > 0 && s.ParticipantID == awayID:
			away = &goals
		}
	}
	return home, away
}
