package sport

import (
	"strings"
	"time"
)

// Sport identifies the competition family a team or fixture belongs to.
type Sport string

const (
	Football         Sport = "football"
	Basketball       Sport = "basketball"
	AmericanFootball Sport = "american_football"
	Baseball         Sport = "baseball"
	IceHockey        Sport = "ice_hockey"
)

var known = map[Sport]time.Duration{
	Football:         2 * time.Hour,
	Basketball:       150 * time.Minute,
	AmericanFootball: 3*time.Hour + 30*time.Minute,
	Baseball:         3 * time.Hour,
	IceHockey:        150 * time.Minute,
}

// Parse maps user or provider input onto a known sport.
func Parse(value string) (Sport, bool) {
	raw := strings.ToLower(strings.TrimSpace(value))
	switch raw {
	case "soccer":
		return Football, true
	case "nba", "wnba":
		return Basketball, true
	case "nfl":
		return AmericanFootball, true
	case "hockey", "nhl":
		return IceHockey, true
	case "mlb":
		return Baseball, true
	}
	s := Sport(strings.ReplaceAll(raw, " ", "_"))
	if _, ok := known[s]; !ok {
		return "", false
	}
	return s, true
}

func (s Sport) Valid() bool {
	_, ok := known[s]
	return ok
}

// ExpectedDuration is the calendar block reserved for one match.
func (s Sport) ExpectedDuration() time.Duration {
	if d, ok := known[s]; ok {
		return d
	}
	return 3 * time.Hour
}

func (s Sport) String() string {
	return string(s)
}
