package fixture

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/valyala/bytebufferpool"
)

const canonicalIDPrefix = "fx_"

// CanonicalID derives the provider independent fixture id from the sport, the
// sorted team pair and the UTC kickoff date.
func CanonicalID(s sport.Sport, homeTeamID, awayTeamID string, kickoffAt time.Time) string {
	first, second := homeTeamID, awayTeamID
	if second < first {
		first, second = second, first
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(string(s))
	_ = buf.WriteByte('|')
	_, _ = buf.WriteString(first)
	_ = buf.WriteByte('|')
	_, _ = buf.WriteString(second)
	_ = buf.WriteByte('|')
	buf.B = kickoffAt.UTC().AppendFormat(buf.B, time.DateOnly)

	sum := sha256.Sum256(buf.B)
	return canonicalIDPrefix + hex.EncodeToString(sum[:])[:16]
}
