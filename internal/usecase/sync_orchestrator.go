package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

type SyncOutcome string

const (
	SyncOutcomeSynced       SyncOutcome = "synced"
	SyncOutcomeUnchanged    SyncOutcome = "unchanged"
	SyncOutcomeDeferred     SyncOutcome = "deferred"
	SyncOutcomeFailed       SyncOutcome = "failed"
	SyncOutcomeAuthExpired  SyncOutcome = "auth_expired"
	SyncOutcomePaused       SyncOutcome = "paused"
	SyncOutcomeNotConnected SyncOutcome = "not_connected"
)

type UserSyncResult struct {
	UserID     string      `json:"user_id"`
	Outcome    SyncOutcome `json:"outcome"`
	Created    int         `json:"created"`
	Adopted    int         `json:"adopted"`
	Updated    int         `json:"updated"`
	Deleted    int         `json:"deleted"`
	Forgotten  int         `json:"forgotten"`
	Skipped    int         `json:"skipped"`
	Violations int         `json:"violations"`
	Notified   int         `json:"notified"`
	Error      string      `json:"error,omitempty"`
}

func (r UserSyncResult) Writes() int {
	return r.Created + r.Adopted + r.Updated + r.Deleted + r.Forgotten
}

type SyncOrchestratorConfig struct {
	KickoffShiftThreshold time.Duration
	UserMinBudget         time.Duration
}

// SyncOptions bound one user sync inside a pass. Clock is the clock the
// deadline was derived from; it defaults to the orchestrator's own.
type SyncOptions struct {
	PassID   string
	Deadline time.Time
	Clock    func() time.Time
}

func (opts SyncOptions) expired(clock func() time.Time) bool {
	return !opts.Deadline.IsZero() && !clock().Before(opts.Deadline)
}

type syncOpKind int

const (
	opDelete syncOpKind = iota
	opForget
	opUpdate
	opCreate
)

type syncOp struct {
	kind    syncOpKind
	fixture fixture.Fixture
	record  calendar.SyncRecord
}

// SyncOrchestrator projects a user's eligible fixtures into their calendar.
// The calendar is only written after its SyncRecord diff is computed, and
// every create is preceded by an existence check on the idempotency key.
type SyncOrchestrator struct {
	matcher  *FavoriteMatcher
	store    *FixtureStore
	records  calendar.SyncRecordRepository
	gateway  calendar.Gateway
	auth     *CalendarAuthService
	notifier *NotificationEmitter
	cfg      SyncOrchestratorConfig
	logger   *logging.Logger
	now      func() time.Time
}

func NewSyncOrchestrator(
	matcher *FavoriteMatcher,
	store *FixtureStore,
	records calendar.SyncRecordRepository,
	gateway calendar.Gateway,
	auth *CalendarAuthService,
	notifier *NotificationEmitter,
	cfg SyncOrchestratorConfig,
	logger *logging.Logger,
) *SyncOrchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.KickoffShiftThreshold <= 0 {
		cfg.KickoffShiftThreshold = 15 * time.Minute
	}
	if cfg.UserMinBudget <= 0 {
		cfg.UserMinBudget = 30 * time.Second
	}
	return &SyncOrchestrator{
		matcher:  matcher,
		store:    store,
		records:  records,
		gateway:  gateway,
		auth:     auth,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (o *SyncOrchestrator) SyncUser(ctx context.Context, userID string, now time.Time) (UserSyncResult, error) {
	return o.SyncUserWithin(ctx, userID, now, SyncOptions{})
}

// SyncUserWithin runs one user's diff. With a deadline set, a user whose
// change set cannot start with at least UserMinBudget left is deferred whole,
// and a started user stops before the first operation past the deadline.
// Applied operations keep their records, so the next pass resumes the rest.
func (o *SyncOrchestrator) SyncUserWithin(ctx context.Context, userID string, now time.Time, opts SyncOptions) (UserSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncOrchestrator.SyncUser", attrUserID.String(userID))
	defer span.End()

	result := UserSyncResult{UserID: userID}
	if opts.PassID == "" {
		opts.PassID = "adhoc-" + now.UTC().Format("20060102T150405Z")
	}

	conn, err := o.auth.Connection(ctx, userID)
	if errors.Is(err, ErrCalendarNotConnected) {
		result.Outcome = SyncOutcomeNotConnected
		return result, nil
	}
	if err != nil {
		return o.fail(result, err)
	}
	if !conn.Active() {
		result.Outcome = SyncOutcomePaused
		return result, nil
	}

	eligibility, err := o.matcher.Match(ctx, userID, now)
	if err != nil {
		return o.fail(result, err)
	}
	records, err := o.records.ListByUser(ctx, userID)
	if err != nil {
		return o.fail(result, fmt.Errorf("list sync records user=%s: %w", userID, err))
	}
	ops, err := o.diff(ctx, eligibility, records)
	if err != nil {
		return o.fail(result, err)
	}
	if len(ops) == 0 {
		result.Outcome = SyncOutcomeUnchanged
		return result, nil
	}

	clock := o.now
	if opts.Clock != nil {
		clock = opts.Clock
	}
	if !opts.Deadline.IsZero() && opts.Deadline.Sub(clock()) < o.cfg.UserMinBudget {
		result.Outcome = SyncOutcomeDeferred
		o.logger.InfoContext(ctx, "user sync deferred, pass budget exhausted", "user_id", userID, "operations", len(ops))
		return result, nil
	}

	creds, err := o.auth.AccessToken(ctx, userID)
	if err != nil {
		return o.handleStop(ctx, result, opts, err)
	}

	batch := o.notifier.NewBatch(userID, opts.PassID)
	var stopErr error
	remaining := 0
	for i, op := range ops {
		if i > 0 && opts.expired(clock) {
			remaining = len(ops) - i
			break
		}
		err := o.apply(ctx, userID, op, &creds, batch, &result)
		switch {
		case err == nil:
		case errors.Is(err, ErrCalendarRejected):
			result.Skipped++
			o.logger.WarnContext(ctx, "calendar rejected fixture, skipped", "user_id", userID, "fixture_id", op.fixture.ID, "error", err)
		case errors.Is(err, ErrIdempotencyViolation):
			result.Violations++
			o.logger.ErrorContext(ctx, "idempotency violation detected, record left for audit",
				"user_id", userID,
				"fixture_id", op.fixture.ID,
				"error", err,
			)
		default:
			stopErr = err
		}
		if stopErr != nil {
			break
		}
	}

	notified, flushErr := batch.Flush(ctx)
	result.Notified = notified
	if flushErr != nil {
		o.logger.WarnContext(ctx, "flush notifications failed", "user_id", userID, "error", flushErr)
	}

	if stopErr != nil {
		return o.handleStop(ctx, result, opts, stopErr)
	}
	if remaining > 0 {
		result.Outcome = SyncOutcomeDeferred
		o.logger.InfoContext(ctx, "user sync stopped at pass deadline",
			"user_id", userID,
			"applied", len(ops)-remaining,
			"remaining", remaining,
		)
		return result, nil
	}

	result.Outcome = SyncOutcomeSynced
	o.logger.InfoContext(ctx, "user calendar synced",
		"user_id", userID,
		"created", result.Created,
		"adopted", result.Adopted,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"skipped", result.Skipped,
	)
	return result, nil
}

// diff computes the full change set before any remote write.
func (o *SyncOrchestrator) diff(ctx context.Context, eligibility Eligibility, records []calendar.SyncRecord) ([]syncOp, error) {
	ops := make([]syncOp, 0)
	synced := make(map[string]struct{}, len(records))

	for _, record := range records {
		synced[record.FixtureID] = struct{}{}

		item, found, err := o.store.Get(ctx, record.FixtureID)
		if err != nil {
			return nil, err
		}
		switch {
		case !found:
			ops = append(ops, syncOp{kind: opForget, record: record, fixture: fixture.Fixture{ID: record.FixtureID}})
		case item.Status == fixture.StatusCancelled || !eligibility.Covers(item):
			ops = append(ops, syncOp{kind: opDelete, record: record, fixture: item})
		default:
			next := snapshotOf(item)
			if next.Hash() != record.SnapshotHash && record.Snapshot.MaterialChange(next, o.cfg.KickoffShiftThreshold) {
				ops = append(ops, syncOp{kind: opUpdate, record: record, fixture: item})
			}
		}
	}

	for _, item := range eligibility.Fixtures {
		if _, ok := synced[item.ID]; ok {
			continue
		}
		ops = append(ops, syncOp{kind: opCreate, fixture: item})
	}

	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].kind != ops[j].kind {
			return ops[i].kind < ops[j].kind
		}
		return ops[i].fixture.ID < ops[j].fixture.ID
	})
	return ops, nil
}

func (o *SyncOrchestrator) apply(ctx context.Context, userID string, op syncOp, creds *calendar.Credentials, batch *NotificationBatch, result *UserSyncResult) error {
	switch op.kind {
	case opCreate:
		adopted, err := o.create(ctx, userID, op.fixture, creds)
		if err != nil {
			return err
		}
		if adopted {
			result.Adopted++
		} else {
			result.Created++
		}
		batch.MatchAdded(op.fixture)
		return nil

	case opUpdate:
		err := o.withCredentials(ctx, userID, creds, func(c calendar.Credentials) error {
			return o.gateway.UpdateEvent(ctx, c, op.record.EventID, eventFor(op.fixture))
		})
		if errors.Is(err, calendar.ErrEventGone) {
			if err := o.records.Delete(ctx, userID, op.record.FixtureID); err != nil {
				return fmt.Errorf("drop stale sync record fixture=%s: %w", op.record.FixtureID, err)
			}
			if _, err := o.create(ctx, userID, op.fixture, creds); err != nil {
				return err
			}
			result.Created++
			return nil
		}
		if err != nil {
			return err
		}
		snapshot := snapshotOf(op.fixture)
		record := op.record
		record.Snapshot = snapshot
		record.SnapshotHash = snapshot.Hash()
		record.State = calendar.StateUpdated
		record.SyncedAt = o.now().UTC()
		if err := o.records.Update(ctx, record); err != nil {
			return fmt.Errorf("update sync record fixture=%s: %w", record.FixtureID, err)
		}
		result.Updated++
		return nil

	case opDelete:
		err := o.withCredentials(ctx, userID, creds, func(c calendar.Credentials) error {
			return o.gateway.DeleteEvent(ctx, c, op.record.EventID)
		})
		if err != nil {
			return err
		}
		if err := o.records.Delete(ctx, userID, op.record.FixtureID); err != nil {
			return fmt.Errorf("delete sync record fixture=%s: %w", op.record.FixtureID, err)
		}
		result.Deleted++
		o.logger.InfoContext(ctx, "calendar event removed",
			"user_id", userID,
			"fixture_id", op.record.FixtureID,
			"state", calendar.StateRemoved,
		)
		return nil

	case opForget:
		if err := o.records.Delete(ctx, userID, op.record.FixtureID); err != nil {
			return fmt.Errorf("forget sync record fixture=%s: %w", op.record.FixtureID, err)
		}
		result.Forgotten++
		return nil
	}
	return nil
}

// create adopts an existing remote event carrying the fixture key, otherwise
// inserts one, then anchors it with a SyncRecord.
func (o *SyncOrchestrator) create(ctx context.Context, userID string, item fixture.Fixture, creds *calendar.Credentials) (bool, error) {
	var existing []string
	err := o.withCredentials(ctx, userID, creds, func(c calendar.Credentials) error {
		var err error
		existing, err = o.gateway.FindEventsByKey(ctx, c, item.ID)
		return err
	})
	if err != nil {
		return false, err
	}
	if len(existing) > 1 {
		return false, fmt.Errorf("%w: %d remote events carry fixture=%s", ErrIdempotencyViolation, len(existing), item.ID)
	}

	adopted := len(existing) == 1
	eventID := ""
	if adopted {
		eventID = existing[0]
	} else {
		err = o.withCredentials(ctx, userID, creds, func(c calendar.Credentials) error {
			var err error
			eventID, err = o.gateway.CreateEvent(ctx, c, eventFor(item))
			return err
		})
		if err != nil {
			return false, err
		}
	}

	snapshot := snapshotOf(item)
	record := calendar.SyncRecord{
		UserID:       userID,
		FixtureID:    item.ID,
		EventID:      eventID,
		SnapshotHash: snapshot.Hash(),
		Snapshot:     snapshot,
		State:        calendar.StateSynced,
		SyncedAt:     o.now().UTC(),
	}
	if err := o.records.Create(ctx, record); err != nil {
		if errors.Is(err, calendar.ErrRecordExists) {
			return false, fmt.Errorf("%w: %v", ErrIdempotencyViolation, err)
		}
		return false, fmt.Errorf("create sync record fixture=%s: %w", item.ID, err)
	}
	return adopted, nil
}

// withCredentials retries fn once with a refreshed token after a 401.
func (o *SyncOrchestrator) withCredentials(ctx context.Context, userID string, creds *calendar.Credentials, fn func(calendar.Credentials) error) error {
	err := fn(*creds)
	if !errors.Is(err, ErrCalendarAuthExpired) {
		return err
	}

	fresh, refreshErr := o.auth.Refresh(ctx, userID, creds.AccessToken)
	if refreshErr != nil {
		return refreshErr
	}
	*creds = fresh

	err = fn(*creds)
	if errors.Is(err, ErrCalendarAuthExpired) {
		o.auth.Invalidate(ctx, userID, err)
	}
	return err
}

func (o *SyncOrchestrator) handleStop(ctx context.Context, result UserSyncResult, opts SyncOptions, err error) (UserSyncResult, error) {
	result.Error = err.Error()
	if errors.Is(err, ErrCalendarAuthExpired) {
		result.Outcome = SyncOutcomeAuthExpired
		o.logger.WarnContext(ctx, "user sync stopped, calendar authorization expired", "user_id", result.UserID, "error", err)
		return result, nil
	}

	result.Outcome = SyncOutcomeFailed
	o.logger.ErrorContext(ctx, "user sync failed, deferred to next pass", "user_id", result.UserID, "error", err)
	if notifyErr := o.notifier.SyncFailed(ctx, result.UserID, opts.PassID, err); notifyErr != nil {
		o.logger.WarnContext(ctx, "emit sync failed notification failed", "user_id", result.UserID, "error", notifyErr)
	}
	return result, err
}

func (o *SyncOrchestrator) fail(result UserSyncResult, err error) (UserSyncResult, error) {
	result.Outcome = SyncOutcomeFailed
	result.Error = err.Error()
	return result, err
}

func snapshotOf(item fixture.Fixture) calendar.Snapshot {
	return calendar.Snapshot{
		KickoffAt:    item.KickoffAt.UTC(),
		Venue:        item.Venue,
		HomeTeamName: item.HomeTeamName,
		AwayTeamName: item.AwayTeamName,
	}
}

func eventFor(item fixture.Fixture) calendar.Event {
	start := item.KickoffAt.UTC()
	return calendar.Event{
		Key:         item.ID,
		Summary:     item.Title(),
		Description: fmt.Sprintf("%s match synced automatically. Fixture %s.", item.Sport, item.ID),
		Location:    item.Venue,
		Start:       start,
		End:         start.Add(item.Sport.ExpectedDuration()),
	}
}
