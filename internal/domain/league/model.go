package league

import (
	"fmt"
	"strings"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
)

// League is a canonical competition. ProviderRefs maps a provider name to the
// provider's own league reference.
type League struct {
	ID           string
	Sport        sport.Sport
	Name         string
	TeamIDs      []string
	ProviderRefs map[string]string
}

func (l League) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("league id is required")
	}
	if !l.Sport.Valid() {
		return fmt.Errorf("league sport %q is not supported", l.Sport)
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("league name is required")
	}

	return nil
}

func (l League) HasTeam(teamID string) bool {
	for _, id := range l.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// RefFor returns the league reference a provider uses, if any.
func (l League) RefFor(provider string) (string, bool) {
	ref, ok := l.ProviderRefs[strings.ToLower(provider)]
	return ref, ok && ref != ""
}
