package jobscheduler

import "time"

type PassKind string

const (
	PassNightly  PassKind = "nightly"
	PassLive     PassKind = "live"
	PassSchedule PassKind = "schedule"
)

func (k PassKind) Valid() bool {
	switch k {
	case PassNightly, PassLive, PassSchedule:
		return true
	default:
		return false
	}
}

type PassStatus string

const (
	StatusRunning   PassStatus = "running"
	StatusCompleted PassStatus = "completed"
	StatusPartial   PassStatus = "partial"
	StatusSkipped   PassStatus = "skipped"
	StatusFailed    PassStatus = "failed"
)

// PassRun is the audit row of one scheduler pass.
type PassRun struct {
	ID            string
	Kind          PassKind
	Status        PassStatus
	StartedAt     time.Time
	FinishedAt    time.Time
	UsersTotal    int
	UsersSynced   int
	UsersFailed   int
	UsersDeferred int
	UsersSkipped  int
	Fixtures      int
	Purged        int
	Stale         bool
	ErrorMessage  string
	TraceID       string
}
