package calendar

import "time"

// Event is the provider neutral calendar entry for one fixture. Key is the
// canonical fixture id and doubles as the idempotency key.
type Event struct {
	Key         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}
