package fixture

import (
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusLive      Status = "LIVE"
	StatusPostponed Status = "POSTPONED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus maps provider status codes onto the canonical lifecycle.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "SCHEDULED", "NS", "TBA", "TBD", "PRE", "STATUS_SCHEDULED", "DELAYED":
		return StatusScheduled, true
	case "LIVE", "IN_PLAY", "INPLAY", "IN", "HT", "1H", "2H", "ET", "BREAK", "PEN_LIVE", "STATUS_IN_PROGRESS", "STATUS_HALFTIME", "STATUS_END_PERIOD",
		"STATUS_FIRST_HALF", "STATUS_SECOND_HALF", "STATUS_OVERTIME", "STATUS_SHOOTOUT":
		return StatusLive, true
	case "POSTPONED", "POSTP", "SUSPENDED", "INTERRUPTED", "STATUS_POSTPONED", "STATUS_DELAYED", "STATUS_SUSPENDED":
		return StatusPostponed, true
	case "COMPLETED", "FINISHED", "FT", "AET", "FT_PEN", "PEN", "POST", "STATUS_FINAL", "STATUS_FULL_TIME", "STATUS_FINAL_OT", "STATUS_FINAL_PEN":
		return StatusCompleted, true
	case "CANCELLED", "CANCELED", "CANCL", "ABANDONED", "AWARDED", "STATUS_CANCELED", "STATUS_ABANDONED":
		return StatusCancelled, true
	default:
		return "", false
	}
}

func (s Status) rank() int {
	switch s {
	case StatusScheduled, StatusPostponed:
		return 0
	case StatusLive:
		return 1
	case StatusCompleted:
		return 2
	default:
		return -1
	}
}

// IsTerminal reports statuses no provider update may leave.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition enforces Scheduled -> Live -> Completed, Scheduled <-> Postponed
// and Scheduled/Postponed -> Cancelled. Terminal statuses never change.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if from == "" {
		return to != ""
	}
	if from.IsTerminal() {
		return false
	}
	if to == StatusCancelled {
		return from == StatusScheduled || from == StatusPostponed
	}
	if from == StatusLive && to == StatusPostponed {
		return false
	}
	return to.rank() >= from.rank()
}

// Provenance records which source last wrote each field group, so that a
// later lower-priority poll cannot override it.
type Provenance struct {
	ScheduleProvider string
	SchedulePriority int
	ScoreProvider    string
	ScoreRank        int
}

// Fixture represents one canonical match.
type Fixture struct {
	ID           string
	Sport        sport.Sport
	LeagueID     string
	HomeTeamID   string
	AwayTeamID   string
	HomeTeamName string
	AwayTeamName string
	KickoffAt    time.Time
	Venue        string
	Status       Status
	HomeScore    *int
	AwayScore    *int
	Provisional  bool
	Sources      Provenance
	RefreshedAt  time.Time
	UpdatedAt    time.Time
}

func (f Fixture) HasTeam(teamID string) bool {
	return teamID != "" && (f.HomeTeamID == teamID || f.AwayTeamID == teamID)
}

func (f Fixture) Title() string {
	return strings.TrimSpace(f.HomeTeamName + " vs " + f.AwayTeamName)
}

// Clone returns a copy that shares no pointers with f.
func (f Fixture) Clone() Fixture {
	out := f
	out.HomeScore = cloneInt(f.HomeScore)
	out.AwayScore = cloneInt(f.AwayScore)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

// Filter narrows Repository.Query. Empty fields do not constrain.
type Filter struct {
	IDs                []string
	Sport              sport.Sport
	LeagueIDs          []string
	TeamIDs            []string
	Statuses           []Status
	KickoffFrom        time.Time
	KickoffTo          time.Time
	IncludeProvisional bool
	Limit              int
}

// Matches applies the filter to one fixture. Team and league constraints are
// OR-ed together when both are present.
func (flt Filter) Matches(f Fixture) bool {
	if f.Provisional && !flt.IncludeProvisional {
		return false
	}
	if len(flt.IDs) > 0 && !containsString(flt.IDs, f.ID) {
		return false
	}
	if flt.Sport != "" && f.Sport != flt.Sport {
		return false
	}
	if len(flt.Statuses) > 0 && !containsStatus(flt.Statuses, f.Status) {
		return false
	}
	if !flt.KickoffFrom.IsZero() && f.KickoffAt.Before(flt.KickoffFrom) {
		return false
	}
	if !flt.KickoffTo.IsZero() && f.KickoffAt.After(flt.KickoffTo) {
		return false
	}

	if len(flt.TeamIDs) == 0 && len(flt.LeagueIDs) == 0 {
		return true
	}
	if containsString(flt.LeagueIDs, f.LeagueID) {
		return true
	}
	return containsString(flt.TeamIDs, f.HomeTeamID) || containsString(flt.TeamIDs, f.AwayTeamID)
}

func containsString(values []string, v string) bool {
	if v == "" {
		return false
	}
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}

func containsStatus(values []Status, v Status) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
