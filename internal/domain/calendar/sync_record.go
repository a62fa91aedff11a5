package calendar

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"
)

// ErrRecordExists is returned when a second record for the same
// (user, fixture) pair is written.
var ErrRecordExists = errors.New("sync record already exists")

type SyncState string

const (
	StateNotSynced SyncState = "not_synced"
	StateSynced    SyncState = "synced"
	StateUpdated   SyncState = "updated"
	StateRemoved   SyncState = "removed"
)

// Snapshot is the subset of a fixture projected into a calendar event.
type Snapshot struct {
	KickoffAt    time.Time
	Venue        string
	HomeTeamName string
	AwayTeamName string
}

// Hash fingerprints the snapshot for cheap change detection.
func (s Snapshot) Hash() string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.B = s.KickoffAt.UTC().AppendFormat(buf.B, time.RFC3339)
	_ = buf.WriteByte('|')
	_, _ = buf.WriteString(normalizeVenue(s.Venue))
	_ = buf.WriteByte('|')
	_, _ = buf.WriteString(s.HomeTeamName)
	_ = buf.WriteByte('|')
	_, _ = buf.WriteString(s.AwayTeamName)

	sum := sha256.Sum256(buf.B)
	return hex.EncodeToString(sum[:])
}

// MaterialChange reports whether next differs enough from s to rewrite the
// remote event: a kickoff shift beyond threshold or a venue change.
func (s Snapshot) MaterialChange(next Snapshot, threshold time.Duration) bool {
	shift := next.KickoffAt.Sub(s.KickoffAt)
	if shift < 0 {
		shift = -shift
	}
	if shift > threshold {
		return true
	}
	return normalizeVenue(s.Venue) != normalizeVenue(next.Venue)
}

func normalizeVenue(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), " "))
}

// SyncRecord anchors one (user, fixture) pair to a remote calendar event.
type SyncRecord struct {
	UserID       string
	FixtureID    string
	EventID      string
	SnapshotHash string
	Snapshot     Snapshot
	State        SyncState
	SyncedAt     time.Time
}
