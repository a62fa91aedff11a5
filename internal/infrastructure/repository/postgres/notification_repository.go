package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/jobscheduler"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/notification"
	qb "github.com/riskibarqy/fixture-calendar-sync/internal/platform/querybuilder"
)

const (
	notificationColumns = "id, user_id, kind, title, body, fixture_ids, dedup_key, read, created_at"
	passRunColumns      = "id, kind, status, started_at, finished_at, users_total, users_synced, users_failed, users_deferred, users_skipped, fixtures, purged, stale, error_message, trace_id"
)

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create reports false when the (user, dedup key) pair was already emitted.
// Notifications without a dedup key use their id so they never collide.
func (r *NotificationRepository) Create(ctx context.Context, item notification.Notification) (bool, error) {
	dedupKey := item.DedupKey
	if dedupKey == "" {
		dedupKey = "id:" + item.ID
	}
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	fixtureIDs := item.FixtureIDs
	if fixtureIDs == nil {
		fixtureIDs = []string{}
	}

	query, args, err := qb.InsertModel("notifications", notificationTableModel{
		ID:         item.ID,
		UserID:     item.UserID,
		Kind:       string(item.Kind),
		Title:      item.Title,
		Body:       item.Body,
		FixtureIDs: pq.StringArray(fixtureIDs),
		DedupKey:   dedupKey,
		Read:       item.Read,
		CreatedAt:  createdAt.UTC(),
	}, "ON CONFLICT (user_id, dedup_key) DO NOTHING")
	if err != nil {
		return false, fmt.Errorf("build create notification query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create notification rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	conditions := []qb.Condition{qb.Eq("user_id", userID)}
	if unreadOnly {
		conditions = append(conditions, qb.Eq("read", false))
	}
	builder := qb.Select(notificationColumns).From("notifications").
		Where(conditions...).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list notifications query: %w", err)
	}

	var rows []notificationTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		dedupKey := row.DedupKey
		if dedupKey == "id:"+row.ID {
			dedupKey = ""
		}
		out = append(out, notification.Notification{
			ID:         row.ID,
			UserID:     row.UserID,
			Kind:       notification.Kind(row.Kind),
			Title:      row.Title,
			Body:       row.Body,
			FixtureIDs: append([]string(nil), row.FixtureIDs...),
			DedupKey:   dedupKey,
			Read:       row.Read,
			CreatedAt:  row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := qb.Update("notifications").
		Set("read", true).
		Where(
			qb.Eq("user_id", userID),
			qb.InStrings("id", ids),
			qb.Eq("read", false),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build mark notifications read query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read rows affected: %w", err)
	}
	return int(affected), nil
}

type PassRunRepository struct {
	db *sqlx.DB
}

func NewPassRunRepository(db *sqlx.DB) *PassRunRepository {
	return &PassRunRepository{db: db}
}

func (r *PassRunRepository) SaveRun(ctx context.Context, run jobscheduler.PassRun) error {
	query, args, err := qb.UpsertModel("pass_runs", passRunTableModel{
		ID:            run.ID,
		Kind:          string(run.Kind),
		Status:        string(run.Status),
		StartedAt:     run.StartedAt.UTC(),
		FinishedAt:    optionalTime(run.FinishedAt),
		UsersTotal:    run.UsersTotal,
		UsersSynced:   run.UsersSynced,
		UsersFailed:   run.UsersFailed,
		UsersDeferred: run.UsersDeferred,
		UsersSkipped:  run.UsersSkipped,
		Fixtures:      run.Fixtures,
		Purged:        run.Purged,
		Stale:         run.Stale,
		ErrorMessage:  run.ErrorMessage,
		TraceID:       run.TraceID,
	}, []string{"id"}, "kind", "started_at")
	if err != nil {
		return fmt.Errorf("build save pass run query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save pass run %s: %w", run.ID, err)
	}
	return nil
}

func (r *PassRunRepository) LatestRun(ctx context.Context, kind jobscheduler.PassKind) (jobscheduler.PassRun, bool, error) {
	query, args, err := qb.Select(passRunColumns).From("pass_runs").
		Where(qb.Eq("kind", string(kind))).
		OrderBy("started_at DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return jobscheduler.PassRun{}, false, fmt.Errorf("build latest pass run query: %w", err)
	}

	var row passRunTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return jobscheduler.PassRun{}, false, nil
		}
		return jobscheduler.PassRun{}, false, fmt.Errorf("latest pass run: %w", err)
	}

	return jobscheduler.PassRun{
		ID:            row.ID,
		Kind:          jobscheduler.PassKind(row.Kind),
		Status:        jobscheduler.PassStatus(row.Status),
		StartedAt:     row.StartedAt.UTC(),
		FinishedAt:    timeOrZero(row.FinishedAt),
		UsersTotal:    row.UsersTotal,
		UsersSynced:   row.UsersSynced,
		UsersFailed:   row.UsersFailed,
		UsersDeferred: row.UsersDeferred,
		UsersSkipped:  row.UsersSkipped,
		Fixtures:      row.Fixtures,
		Purged:        row.Purged,
		Stale:         row.Stale,
		ErrorMessage:  row.ErrorMessage,
		TraceID:       row.TraceID,
	}, true, nil
}
