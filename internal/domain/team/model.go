package team

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
)

// ProvisionalPrefix marks teams created for names the alias table could not resolve.
const ProvisionalPrefix = "tp_"

// Alias is a provider specific spelling of a team name. An empty Provider
// applies to every provider.
type Alias struct {
	Provider string
	Name     string
}

// Team is a canonical participant shared by every provider.
type Team struct {
	ID          string
	Sport       sport.Sport
	Name        string
	Nickname    string
	Aliases     []Alias
	Provisional bool
	CreatedAt   time.Time
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("team id is required")
	}
	if !t.Sport.Valid() {
		return fmt.Errorf("team sport %q is not supported", t.Sport)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}

// ProvisionalID derives the quarantine id for an unresolved raw name.
func ProvisionalID(s sport.Sport, rawName string) string {
	return ProvisionalPrefix + string(s) + "_" + NormalizeName(rawName)
}

func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}
