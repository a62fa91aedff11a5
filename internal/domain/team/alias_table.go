package team

import (
	"strings"

	"github.com/gosimple/slug"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
)

// Resolution methods reported by AliasTable.Resolve.
const (
	MatchExactAlias = "exact_alias"
	MatchNormalized = "normalized"
	MatchNickname   = "nickname"
	MatchNone       = "unresolved"
)

var droppedTokens = map[string]struct{}{
	"fc":  {},
	"cf":  {},
	"afc": {},
	"sc":  {},
	"the": {},
}

// NormalizeName folds a raw team name into a comparison key: lowercase ASCII,
// punctuation stripped, club suffixes like "FC" removed.
func NormalizeName(raw string) string {
	folded := slug.Make(strings.ReplaceAll(raw, ".", ""))
	if folded == "" {
		return ""
	}

	tokens := strings.Split(folded, "-")
	kept := tokens[:0]
	for _, token := range tokens {
		if _, drop := droppedTokens[token]; drop {
			continue
		}
		kept = append(kept, token)
	}
	if len(kept) == 0 {
		return strings.ReplaceAll(folded, "-", "")
	}
	return strings.Join(kept, "")
}

type aliasKey struct {
	sport sport.Sport
	name  string
}

// AliasTable resolves raw provider names onto canonical team ids. It is built
// once from the curated catalog and is safe for concurrent reads.
type AliasTable struct {
	exact      map[aliasKey]map[string]string
	normalized map[aliasKey][]string
	nicknames  map[aliasKey][]string
}

// NewAliasTable indexes curated teams. Provisional teams never become
// resolution targets. Extra nicknames map a normalized nickname to a team id.
func NewAliasTable(teams []Team, nicknames map[string]string) *AliasTable {
	table := &AliasTable{
		exact:      make(map[aliasKey]map[string]string),
		normalized: make(map[aliasKey][]string),
		nicknames:  make(map[aliasKey][]string),
	}

	bySport := make(map[string]sport.Sport, len(teams))
	for _, item := range teams {
		if item.Provisional {
			continue
		}
		bySport[item.ID] = item.Sport

		table.addExact(item.Sport, "", item.Name, item.ID)
		table.addNormalized(item.Sport, item.Name, item.ID)
		for _, alias := range item.Aliases {
			table.addExact(item.Sport, alias.Provider, alias.Name, item.ID)
			table.addNormalized(item.Sport, alias.Name, item.ID)
		}
		if item.Nickname != "" {
			table.addNickname(item.Sport, item.Nickname, item.ID)
		}
	}
	for nickname, teamID := range nicknames {
		if s, ok := bySport[teamID]; ok {
			table.addNickname(s, nickname, teamID)
		}
	}

	return table
}

// Resolve runs exact alias lookup, then normalized-string match, then the
// nickname table. Ambiguous normalized or nickname matches resolve to nothing.
func (t *AliasTable) Resolve(s sport.Sport, provider, rawName string) (string, string, bool) {
	if t == nil {
		return "", MatchNone, false
	}
	trimmed := strings.ToLower(strings.TrimSpace(rawName))
	if trimmed == "" {
		return "", MatchNone, false
	}

	if byProvider, ok := t.exact[aliasKey{sport: s, name: trimmed}]; ok {
		if id, ok := byProvider[strings.ToLower(provider)]; ok {
			return id, MatchExactAlias, true
		}
		if id, ok := byProvider[""]; ok {
			return id, MatchExactAlias, true
		}
	}

	key := aliasKey{sport: s, name: NormalizeName(rawName)}
	if key.name == "" {
		return "", MatchNone, false
	}
	if ids := t.normalized[key]; len(ids) == 1 {
		return ids[0], MatchNormalized, true
	} else if len(ids) > 1 {
		return "", MatchNone, false
	}
	if ids := t.nicknames[key]; len(ids) == 1 {
		return ids[0], MatchNickname, true
	}

	return "", MatchNone, false
}

func (t *AliasTable) addExact(s sport.Sport, provider, name, teamID string) {
	key := aliasKey{sport: s, name: strings.ToLower(strings.TrimSpace(name))}
	if key.name == "" {
		return
	}
	byProvider, ok := t.exact[key]
	if !ok {
		byProvider = make(map[string]string)
		t.exact[key] = byProvider
	}
	byProvider[strings.ToLower(provider)] = teamID
}

func (t *AliasTable) addNormalized(s sport.Sport, name, teamID string) {
	key := aliasKey{sport: s, name: NormalizeName(name)}
	if key.name == "" {
		return
	}
	t.normalized[key] = appendUnique(t.normalized[key], teamID)
}

func (t *AliasTable) addNickname(s sport.Sport, nickname, teamID string) {
	key := aliasKey{sport: s, name: NormalizeName(nickname)}
	if key.name == "" {
		return
	}
	t.nicknames[key] = appendUnique(t.nicknames[key], teamID)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
