package notification

import "time"

type Kind string

const (
	KindMatchAdded        Kind = "match_added"
	KindMatchDigest       Kind = "match_digest"
	KindReconnectRequired Kind = "reconnect_required"
	KindSyncFailed        Kind = "sync_failed"
)

// Notification is a user facing message. DedupKey is unique per user; a
// second Create with the same key is a no-op.
type Notification struct {
	ID         string
	UserID     string
	Kind       Kind
	Title      string
	Body       string
	FixtureIDs []string
	DedupKey   string
	Read       bool
	CreatedAt  time.Time
}
