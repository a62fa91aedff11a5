package postgres

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type teamTableModel struct {
	ID          string    `db:"id"`
	Sport       string    `db:"sport"`
	Name        string    `db:"name"`
	Nickname    string    `db:"nickname"`
	Aliases     string    `db:"aliases"`
	Provisional bool      `db:"provisional"`
	CreatedAt   time.Time `db:"created_at"`
}

type teamAliasJSON struct {
	Provider string `json:"provider,omitempty"`
	Name     string `json:"name"`
}

type leagueTableModel struct {
	ID           string         `db:"id"`
	Sport        string         `db:"sport"`
	Name         string         `db:"name"`
	TeamIDs      pq.StringArray `db:"team_ids"`
	ProviderRefs string         `db:"provider_refs"`
}

type fixtureTableModel struct {
	ID               string        `db:"id"`
	Sport            string        `db:"sport"`
	LeagueID         string        `db:"league_id"`
	HomeTeamID       string        `db:"home_team_id"`
	AwayTeamID       string        `db:"away_team_id"`
	HomeTeamName     string        `db:"home_team_name"`
	AwayTeamName     string        `db:"away_team_name"`
	KickoffAt        time.Time     `db:"kickoff_at"`
	Venue            string        `db:"venue"`
	Status           string        `db:"status"`
	HomeScore        sql.NullInt64 `db:"home_score"`
	AwayScore        sql.NullInt64 `db:"away_score"`
	Provisional      bool          `db:"provisional"`
	ScheduleProvider string        `db:"schedule_provider"`
	SchedulePriority int           `db:"schedule_priority"`
	ScoreProvider    string        `db:"score_provider"`
	ScoreRank        int           `db:"score_rank"`
	RefreshedAt      time.Time     `db:"refreshed_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

type favoriteTableModel struct {
	UserID    string    `db:"user_id"`
	Kind      string    `db:"kind"`
	TargetID  string    `db:"target_id"`
	CreatedAt time.Time `db:"created_at"`
}

type connectionTableModel struct {
	UserID            string     `db:"user_id"`
	Provider          string     `db:"provider"`
	CalendarID        string     `db:"calendar_id"`
	AccessToken       string     `db:"access_token"`
	RefreshToken      string     `db:"refresh_token"`
	TokenExpiry       *time.Time `db:"token_expiry"`
	Status            string     `db:"status"`
	InvalidReason     string     `db:"invalid_reason"`
	InvalidatedAt     *time.Time `db:"invalidated_at"`
	ReconnectNotified bool       `db:"reconnect_notified"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

type syncRecordTableModel struct {
	UserID       string    `db:"user_id"`
	FixtureID    string    `db:"fixture_id"`
	EventID      string    `db:"event_id"`
	SnapshotHash string    `db:"snapshot_hash"`
	KickoffAt    time.Time `db:"kickoff_at"`
	Venue        string    `db:"venue"`
	HomeTeamName string    `db:"home_team_name"`
	AwayTeamName string    `db:"away_team_name"`
	State        string    `db:"state"`
	SyncedAt     time.Time `db:"synced_at"`
}

type notificationTableModel struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	Kind       string         `db:"kind"`
	Title      string         `db:"title"`
	Body       string         `db:"body"`
	FixtureIDs pq.StringArray `db:"fixture_ids"`
	DedupKey   string         `db:"dedup_key"`
	Read       bool           `db:"read"`
	CreatedAt  time.Time      `db:"created_at"`
}

type passRunTableModel struct {
	ID            string     `db:"id"`
	Kind          string     `db:"kind"`
	Status        string     `db:"status"`
	StartedAt     time.Time  `db:"started_at"`
	FinishedAt    *time.Time `db:"finished_at"`
	UsersTotal    int        `db:"users_total"`
	UsersSynced   int        `db:"users_synced"`
	UsersFailed   int        `db:"users_failed"`
	UsersDeferred int        `db:"users_deferred"`
	UsersSkipped  int        `db:"users_skipped"`
	Fixtures      int        `db:"fixtures"`
	Purged        int        `db:"purged"`
	Stale         bool       `db:"stale"`
	ErrorMessage  string     `db:"error_message"`
	TraceID       string     `db:"trace_id"`
}
