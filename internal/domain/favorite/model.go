package favorite

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindTeam   Kind = "team"
	KindLeague Kind = "league"
)

func (k Kind) Valid() bool {
	return k == KindTeam || k == KindLeague
}

// Favorite links a user to a team or a league.
type Favorite struct {
	UserID    string
	Kind      Kind
	TargetID  string
	CreatedAt time.Time
}

func (f Favorite) Validate() error {
	if strings.TrimSpace(f.UserID) == "" {
		return fmt.Errorf("favorite user id is required")
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("favorite kind %q is not supported", f.Kind)
	}
	if strings.TrimSpace(f.TargetID) == "" {
		return fmt.Errorf("favorite target id is required")
	}
	return nil
}

// Set is a user's favorites split by kind.
type Set struct {
	TeamIDs   []string
	LeagueIDs []string
}

func NewSet(items []Favorite) Set {
	var out Set
	for _, item := range items {
		switch item.Kind {
		case KindTeam:
			out.TeamIDs = append(out.TeamIDs, item.TargetID)
		case KindLeague:
			out.LeagueIDs = append(out.LeagueIDs, item.TargetID)
		}
	}
	return out
}

func (s Set) Empty() bool {
	return len(s.TeamIDs) == 0 && len(s.LeagueIDs) == 0
}
