package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/notification"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/id"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

const defaultNotificationListLimit = 50

type NotificationEmitter struct {
	repo           notification.Repository
	ids            id.Generator
	burstThreshold int
	logger         *logging.Logger
	now            func() time.Time
}

func NewNotificationEmitter(repo notification.Repository, ids id.Generator, burstThreshold int, logger *logging.Logger) *NotificationEmitter {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator("ntf")
	}
	if burstThreshold <= 0 {
		burstThreshold = 5
	}
	return &NotificationEmitter{
		repo:           repo,
		ids:            ids,
		burstThreshold: burstThreshold,
		logger:         logger,
		now:            time.Now,
	}
}

// NotificationBatch collects the creates of one user within one pass.
type NotificationBatch struct {
	emitter *NotificationEmitter
	userID  string
	passID  string
	added   []fixture.Fixture
}

func (e *NotificationEmitter) NewBatch(userID, passID string) *NotificationBatch {
	return &NotificationBatch{emitter: e, userID: userID, passID: passID}
}

func (b *NotificationBatch) MatchAdded(item fixture.Fixture) {
	b.added = append(b.added, item)
}

func (b *NotificationBatch) Len() int {
	return len(b.added)
}

// Flush emits one notification per added fixture, or a single digest when the
// batch is larger than the burst threshold.
func (b *NotificationBatch) Flush(ctx context.Context) (int, error) {
	if len(b.added) == 0 {
		return 0, nil
	}
	e := b.emitter
	defer func() { b.added = nil }()

	if len(b.added) > e.burstThreshold {
		fixtureIDs := make([]string, 0, len(b.added))
		titles := make([]string, 0, 3)
		for idx, item := range b.added {
			fixtureIDs = append(fixtureIDs, item.ID)
			if idx < 3 {
				titles = append(titles, item.Title())
			}
		}
		body := strings.Join(titles, ", ")
		if rest := len(b.added) - len(titles); rest > 0 {
			body += fmt.Sprintf(" and %d more", rest)
		}
		created, err := e.emit(ctx, notification.Notification{
			UserID:     b.userID,
			Kind:       notification.KindMatchDigest,
			Title:      fmt.Sprintf("%d matches added to your calendar", len(b.added)),
			Body:       body,
			FixtureIDs: fixtureIDs,
			DedupKey:   "digest:" + b.passID,
		})
		if err != nil || !created {
			return 0, err
		}
		return 1, nil
	}

	sent := 0
	for _, item := range b.added {
		created, err := e.emit(ctx, notification.Notification{
			UserID:     b.userID,
			Kind:       notification.KindMatchAdded,
			Title:      item.Title() + " added to your calendar",
			Body:       "Kickoff " + item.KickoffAt.UTC().Format(time.RFC1123),
			FixtureIDs: []string{item.ID},
			DedupKey:   "added:" + item.ID + ":" + b.passID,
		})
		if err != nil {
			return sent, err
		}
		if created {
			sent++
		}
	}
	return sent, nil
}

// SyncFailed surfaces a failed user sync so it does not disappear silently.
func (e *NotificationEmitter) SyncFailed(ctx context.Context, userID, passID string, cause error) error {
	reason := "calendar sync failed"
	if cause != nil {
		reason = cause.Error()
	}
	_, err := e.emit(ctx, notification.Notification{
		UserID:   userID,
		Kind:     notification.KindSyncFailed,
		Title:    "Calendar sync failed",
		Body:     "We could not update your calendar and will retry on the next pass: " + reason,
		DedupKey: "sync-failed:" + passID,
	})
	return err
}

// ReconnectRequired is emitted once per invalidation of a calendar connection.
func (e *NotificationEmitter) ReconnectRequired(ctx context.Context, userID string, invalidatedAt time.Time) (bool, error) {
	return e.emit(ctx, notification.Notification{
		UserID:   userID,
		Kind:     notification.KindReconnectRequired,
		Title:    "Reconnect your calendar",
		Body:     "Your calendar authorization expired. Reconnect it to resume syncing matches.",
		DedupKey: "reconnect:" + strconv.FormatInt(invalidatedAt.Unix(), 10),
	})
}

func (e *NotificationEmitter) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationEmitter.List", attrUserID.String(userID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationListLimit
	}
	items, err := e.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications user=%s: %w", userID, err)
	}
	return items, nil
}

func (e *NotificationEmitter) MarkRead(ctx context.Context, userID string, ids []string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationEmitter.MarkRead", attrUserID.String(userID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	cleaned := make([]string, 0, len(ids))
	for _, value := range ids {
		if value = strings.TrimSpace(value); value != "" {
			cleaned = append(cleaned, value)
		}
	}
	if len(cleaned) == 0 {
		return 0, fmt.Errorf("%w: notification ids are required", ErrInvalidInput)
	}

	updated, err := e.repo.MarkRead(ctx, userID, cleaned)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read user=%s: %w", userID, err)
	}
	return updated, nil
}

func (e *NotificationEmitter) emit(ctx context.Context, item notification.Notification) (bool, error) {
	notificationID, err := e.ids.NewID()
	if err != nil {
		return false, fmt.Errorf("generate notification id: %w", err)
	}
	item.ID = notificationID
	item.CreatedAt = e.now().UTC()

	created, err := e.repo.Create(ctx, item)
	if err != nil {
		return false, fmt.Errorf("store notification kind=%s user=%s: %w", item.Kind, item.UserID, err)
	}
	if !created {
		e.logger.DebugContext(ctx, "notification deduplicated", "user_id", item.UserID, "dedup_key", item.DedupKey)
	}
	return created, nil
}
