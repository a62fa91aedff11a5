package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
	qb "github.com/riskibarqy/fixture-calendar-sync/internal/platform/querybuilder"
)

const (
	connectionColumns = "user_id, provider, calendar_id, access_token, refresh_token, token_expiry, status, invalid_reason, invalidated_at, reconnect_notified, updated_at"
	syncRecordColumns = "user_id, fixture_id, event_id, snapshot_hash, kickoff_at, venue, home_team_name, away_team_name, state, synced_at"
)

type CalendarConnectionRepository struct {
	db *sqlx.DB
}

func NewCalendarConnectionRepository(db *sqlx.DB) *CalendarConnectionRepository {
	return &CalendarConnectionRepository{db: db}
}

func (r *CalendarConnectionRepository) GetByUser(ctx context.Context, userID string) (calendar.Connection, bool, error) {
	query, args, err := qb.Select(connectionColumns).From("calendar_connections").
		Where(qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return calendar.Connection{}, false, fmt.Errorf("build get calendar connection query: %w", err)
	}

	var row connectionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return calendar.Connection{}, false, nil
		}
		return calendar.Connection{}, false, fmt.Errorf("get calendar connection: %w", err)
	}

	out := calendar.Connection{
		UserID:     row.UserID,
		Provider:   row.Provider,
		CalendarID: row.CalendarID,
		Token: calendar.Token{
			AccessToken:  row.AccessToken,
			RefreshToken: row.RefreshToken,
			Expiry:       timeOrZero(row.TokenExpiry),
		},
		Status:            calendar.ConnectionStatus(row.Status),
		InvalidReason:     row.InvalidReason,
		ReconnectNotified: row.ReconnectNotified,
		UpdatedAt:         row.UpdatedAt.UTC(),
	}
	if row.InvalidatedAt != nil {
		at := row.InvalidatedAt.UTC()
		out.InvalidatedAt = &at
	}
	return out, true, nil
}

// Upsert replaces the whole connection. Reconnecting clears the invalid state.
func (r *CalendarConnectionRepository) Upsert(ctx context.Context, item calendar.Connection) error {
	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	var invalidatedAt *time.Time
	if item.InvalidatedAt != nil {
		invalidatedAt = optionalTime(*item.InvalidatedAt)
	}

	query, args, err := qb.UpsertModel("calendar_connections", connectionTableModel{
		UserID:            item.UserID,
		Provider:          item.Provider,
		CalendarID:        item.CalendarID,
		AccessToken:       item.Token.AccessToken,
		RefreshToken:      item.Token.RefreshToken,
		TokenExpiry:       optionalTime(item.Token.Expiry),
		Status:            string(item.Status),
		InvalidReason:     item.InvalidReason,
		InvalidatedAt:     invalidatedAt,
		ReconnectNotified: item.ReconnectNotified,
		UpdatedAt:         updatedAt.UTC(),
	}, []string{"user_id"})
	if err != nil {
		return fmt.Errorf("build upsert calendar connection query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert calendar connection user=%s: %w", item.UserID, err)
	}
	return nil
}

func (r *CalendarConnectionRepository) UpdateToken(ctx context.Context, userID string, token calendar.Token) error {
	query, args, err := qb.Update("calendar_connections").
		Set("access_token", token.AccessToken).
		Set("refresh_token", token.RefreshToken).
		Set("token_expiry", optionalTime(token.Expiry)).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update calendar token query: %w", err)
	}
	return r.execOne(ctx, query, args, "update calendar token", userID)
}

// MarkInvalid is a no-op for a connection that is already invalid so the
// original reason and timestamp survive.
func (r *CalendarConnectionRepository) MarkInvalid(ctx context.Context, userID, reason string, at time.Time) error {
	query, args, err := qb.Update("calendar_connections").
		Set("status", string(calendar.ConnectionInvalid)).
		Set("invalid_reason", reason).
		Set("invalidated_at", at.UTC()).
		Set("updated_at", at.UTC()).
		Where(
			qb.Eq("user_id", userID),
			qb.Expr("status <> ?", string(calendar.ConnectionInvalid)),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark calendar invalid query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark calendar invalid user=%s: %w", userID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	_, ok, err := r.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("calendar connection for user=%s not found", userID)
	}
	return nil
}

func (r *CalendarConnectionRepository) MarkReconnectNotified(ctx context.Context, userID string) (bool, error) {
	query, args, err := qb.Update("calendar_connections").
		Set("reconnect_notified", true).
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("reconnect_notified", false),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build mark reconnect notified query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("mark reconnect notified user=%s: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark reconnect notified rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *CalendarConnectionRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	var out []string
	if err := r.db.SelectContext(ctx, &out, `SELECT user_id FROM calendar_connections ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("list calendar connection user ids: %w", err)
	}
	return out, nil
}

func (r *CalendarConnectionRepository) execOne(ctx context.Context, query string, args []any, op, userID string) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s user=%s: %w", op, userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("calendar connection for user=%s not found", userID)
	}
	return nil
}

type SyncRecordRepository struct {
	db *sqlx.DB
}

func NewSyncRecordRepository(db *sqlx.DB) *SyncRecordRepository {
	return &SyncRecordRepository{db: db}
}

func (r *SyncRecordRepository) ListByUser(ctx context.Context, userID string) ([]calendar.SyncRecord, error) {
	query, args, err := qb.Select(syncRecordColumns).From("calendar_sync_records").
		Where(qb.Eq("user_id", userID)).
		OrderBy("fixture_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list sync records query: %w", err)
	}

	var rows []syncRecordTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sync records user=%s: %w", userID, err)
	}

	out := make([]calendar.SyncRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, syncRecordFromRow(row))
	}
	return out, nil
}

func (r *SyncRecordRepository) Get(ctx context.Context, userID, fixtureID string) (calendar.SyncRecord, bool, error) {
	query, args, err := qb.Select(syncRecordColumns).From("calendar_sync_records").
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("fixture_id", fixtureID),
		).
		ToSQL()
	if err != nil {
		return calendar.SyncRecord{}, false, fmt.Errorf("build get sync record query: %w", err)
	}

	var row syncRecordTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return calendar.SyncRecord{}, false, nil
		}
		return calendar.SyncRecord{}, false, fmt.Errorf("get sync record: %w", err)
	}
	return syncRecordFromRow(row), true, nil
}

func (r *SyncRecordRepository) Create(ctx context.Context, item calendar.SyncRecord) error {
	query, args, err := qb.InsertModel("calendar_sync_records", syncRecordToRow(item), "")
	if err != nil {
		return fmt.Errorf("build create sync record query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user=%s fixture=%s", calendar.ErrRecordExists, item.UserID, item.FixtureID)
		}
		return fmt.Errorf("create sync record: %w", err)
	}
	return nil
}

func (r *SyncRecordRepository) Update(ctx context.Context, item calendar.SyncRecord) error {
	row := syncRecordToRow(item)
	query, args, err := qb.Update("calendar_sync_records").
		Set("event_id", row.EventID).
		Set("snapshot_hash", row.SnapshotHash).
		Set("kickoff_at", row.KickoffAt).
		Set("venue", row.Venue).
		Set("home_team_name", row.HomeTeamName).
		Set("away_team_name", row.AwayTeamName).
		Set("state", row.State).
		Set("synced_at", row.SyncedAt).
		Where(
			qb.Eq("user_id", row.UserID),
			qb.Eq("fixture_id", row.FixtureID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update sync record query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update sync record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sync record rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sync record user=%s fixture=%s not found", item.UserID, item.FixtureID)
	}
	return nil
}

func (r *SyncRecordRepository) Delete(ctx context.Context, userID, fixtureID string) error {
	query, args, err := qb.DeleteFrom("calendar_sync_records").
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("fixture_id", fixtureID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete sync record query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete sync record: %w", err)
	}
	return nil
}

func syncRecordFromRow(row syncRecordTableModel) calendar.SyncRecord {
	return calendar.SyncRecord{
		UserID:       row.UserID,
		FixtureID:    row.FixtureID,
		EventID:      row.EventID,
		SnapshotHash: row.SnapshotHash,
		Snapshot: calendar.Snapshot{
			KickoffAt:    row.KickoffAt.UTC(),
			Venue:        row.Venue,
			HomeTeamName: row.HomeTeamName,
			AwayTeamName: row.AwayTeamName,
		},
		State:    calendar.SyncState(row.State),
		SyncedAt: row.SyncedAt.UTC(),
	}
}

func syncRecordToRow(item calendar.SyncRecord) syncRecordTableModel {
	syncedAt := item.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}
	return syncRecordTableModel{
		UserID:       item.UserID,
		FixtureID:    item.FixtureID,
		EventID:      item.EventID,
		SnapshotHash: item.SnapshotHash,
		KickoffAt:    item.Snapshot.KickoffAt.UTC(),
		Venue:        item.Snapshot.Venue,
		HomeTeamName: item.Snapshot.HomeTeamName,
		AwayTeamName: item.Snapshot.AwayTeamName,
		State:        string(item.State),
		SyncedAt:     syncedAt.UTC(),
	}
}
