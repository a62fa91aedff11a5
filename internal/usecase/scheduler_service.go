package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/jobscheduler"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/id"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"go.opentelemetry.io/otel/trace"
)

const (
	JobPathNightlyPass     = "/v1/internal/jobs/nightly-pass"
	JobPathLiveRefresh     = "/v1/internal/jobs/live-refresh"
	JobPathScheduleRefresh = "/v1/internal/jobs/schedule-refresh"
)

// PassJob is a follow-up pass handed to the external queue. The queue calls
// Path back at RunAt; DispatchID doubles as the queue's deduplication key.
type PassJob struct {
	Path       string
	Kind       jobscheduler.PassKind
	PreviousID string
	DispatchID string
	RunAt      time.Time
}

// JobQueue hands a follow-up pass to an external delayed queue.
type JobQueue interface {
	Enqueue(ctx context.Context, job PassJob) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(context.Context, PassJob) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

type SchedulerConfig struct {
	NightlyHour   int
	NightlyMinute int
	Location      *time.Location
	LiveInterval  time.Duration
	Workers       int
	PassDeadline  time.Duration
	// ChainJobs enqueues the next pass on the JobQueue after each run.
	ChainJobs bool
}

type PassResult struct {
	Run       jobscheduler.PassRun `json:"run"`
	Ingestion *IngestionResult     `json:"ingestion,omitempty"`
	Users     []UserSyncResult     `json:"users,omitempty"`
	NextRunAt *time.Time           `json:"next_run_at,omitempty"`
}

// SchedulerService drives nightly full passes and the live refresh loop.
type SchedulerService struct {
	ingestion    *IngestionService
	store        *FixtureStore
	orchestrator *SyncOrchestrator
	connections  calendar.ConnectionRepository
	locker       UserLocker
	runs         jobscheduler.Repository
	ids          id.Generator
	queue        JobQueue
	cfg          SchedulerConfig
	logger       *logging.Logger
	now          func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewSchedulerService(
	ingestion *IngestionService,
	store *FixtureStore,
	orchestrator *SyncOrchestrator,
	connections calendar.ConnectionRepository,
	locker UserLocker,
	runs jobscheduler.Repository,
	ids id.Generator,
	queue JobQueue,
	cfg SchedulerConfig,
	logger *logging.Logger,
) *SchedulerService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.NightlyHour < 0 || cfg.NightlyHour > 23 {
		cfg.NightlyHour = 3
	}
	if cfg.NightlyMinute < 0 || cfg.NightlyMinute > 59 {
		cfg.NightlyMinute = 0
	}
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = 90 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.PassDeadline <= 0 {
		cfg.PassDeadline = 20 * time.Minute
	}

	return &SchedulerService{
		ingestion:    ingestion,
		store:        store,
		orchestrator: orchestrator,
		connections:  connections,
		locker:       locker,
		runs:         runs,
		ids:          ids,
		queue:        queue,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *SchedulerService) LiveInterval() time.Duration {
	return s.cfg.LiveInterval
}

// NextNightlyRun returns the first nightly slot strictly after now, in the
// configured timezone.
func (s *SchedulerService) NextNightlyRun(now time.Time) time.Time {
	local := now.In(s.cfg.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.cfg.NightlyHour, s.cfg.NightlyMinute, 0, 0, s.cfg.Location)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.cfg.NightlyHour, s.cfg.NightlyMinute, 0, 0, s.cfg.Location)
	}
	return next
}

func (s *SchedulerService) LatestRun(ctx context.Context, kind jobscheduler.PassKind) (jobscheduler.PassRun, bool, error) {
	if !kind.Valid() {
		return jobscheduler.PassRun{}, false, fmt.Errorf("%w: unknown pass kind %q", ErrInvalidInput, kind)
	}
	return s.runs.LatestRun(ctx, kind)
}

func (s *SchedulerService) RunPass(ctx context.Context, kind jobscheduler.PassKind, now time.Time) (PassResult, error) {
	ctx, span := startPassSpan(ctx, string(kind))
	defer span.End()

	if !kind.Valid() {
		return PassResult{}, fmt.Errorf("%w: unknown pass kind %q", ErrInvalidInput, kind)
	}

	runID, err := s.ids.NewID()
	if err != nil {
		return PassResult{}, fmt.Errorf("generate pass id: %w", err)
	}
	traceID, _ := traceMetaFromContext(ctx)
	result := PassResult{Run: jobscheduler.PassRun{
		ID:        runID,
		Kind:      kind,
		Status:    jobscheduler.StatusRunning,
		StartedAt: now.UTC(),
		TraceID:   traceID,
	}}
	s.saveRun(ctx, result.Run)

	var runErr error
	switch kind {
	case jobscheduler.PassNightly:
		runErr = s.runNightly(ctx, now, &result)
	case jobscheduler.PassLive:
		runErr = s.runLive(ctx, &result)
	case jobscheduler.PassSchedule:
		runErr = s.runSchedule(ctx, &result)
	}

	result.Run.FinishedAt = s.now().UTC()
	if runErr != nil {
		result.Run.Status = jobscheduler.StatusFailed
		result.Run.ErrorMessage = runErr.Error()
	}
	s.saveRun(ctx, result.Run)
	s.chainNext(ctx, kind, &result)

	s.logger.InfoContext(ctx, "scheduler pass finished",
		"pass_id", result.Run.ID,
		"kind", kind,
		"status", result.Run.Status,
		"users_total", result.Run.UsersTotal,
		"users_synced", result.Run.UsersSynced,
		"users_failed", result.Run.UsersFailed,
		"users_deferred", result.Run.UsersDeferred,
		"duration", result.Run.FinishedAt.Sub(result.Run.StartedAt).String(),
	)
	return result, runErr
}

func (s *SchedulerService) runNightly(ctx context.Context, now time.Time, result *PassResult) error {
	// Every deadline check in the pass reads s.now.
	deadline := s.now().Add(s.cfg.PassDeadline)

	ingestion, err := s.ingestion.RefreshSchedules(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "nightly schedule refresh failed, syncing from cached fixtures", "error", err)
	}
	result.Ingestion = &ingestion
	result.Run.Fixtures = ingestion.FixturesSeen
	result.Run.Stale = ingestion.Stale

	purged, err := s.store.Purge(ctx, now)
	if err != nil {
		s.logger.WarnContext(ctx, "purge completed fixtures failed", "error", err)
	}
	result.Run.Purged = purged

	userIDs, err := s.connections.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users for nightly pass: %w", err)
	}
	result.Run.UsersTotal = len(userIDs)
	if len(userIDs) == 0 {
		result.Run.Status = jobscheduler.StatusCompleted
		return nil
	}

	users, err := s.syncUsers(ctx, userIDs, result.Run.ID, deadline)
	if err != nil {
		return err
	}
	result.Users = users

	for _, user := range users {
		switch user.Outcome {
		case SyncOutcomeSynced, SyncOutcomeUnchanged:
			result.Run.UsersSynced++
		case SyncOutcomeDeferred:
			result.Run.UsersDeferred++
		case SyncOutcomeFailed, SyncOutcomeAuthExpired:
			result.Run.UsersFailed++
		default:
			result.Run.UsersSkipped++
		}
	}

	result.Run.Status = jobscheduler.StatusCompleted
	if result.Run.UsersFailed > 0 || result.Run.UsersDeferred > 0 {
		result.Run.Status = jobscheduler.StatusPartial
	}
	return nil
}

// syncUsers runs every user sequentially within a user and concurrently
// across users. Users not started before the deadline are deferred.
func (s *SchedulerService) syncUsers(ctx context.Context, userIDs []string, passID string, deadline time.Time) ([]UserSyncResult, error) {
	pool, err := ants.NewPool(minInt(s.cfg.Workers, len(userIDs)))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan UserSyncResult, len(userIDs))
	var workers sync.WaitGroup
	for _, userID := range userIDs {
		userID := userID
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			results <- s.syncOneUser(ctx, userID, passID, deadline)
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit user sync to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	out := make([]UserSyncResult, 0, len(userIDs))
	for row := range results {
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (s *SchedulerService) syncOneUser(ctx context.Context, userID, passID string, deadline time.Time) UserSyncResult {
	if !s.now().Before(deadline) {
		return UserSyncResult{UserID: userID, Outcome: SyncOutcomeDeferred}
	}

	lockCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	unlock, err := s.locker.Lock(lockCtx, syncLockKey(userID))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return UserSyncResult{UserID: userID, Outcome: SyncOutcomeDeferred}
		}
		s.logger.WarnContext(ctx, "acquire user sync lock failed", "user_id", userID, "error", err)
		return UserSyncResult{UserID: userID, Outcome: SyncOutcomeFailed, Error: err.Error()}
	}
	defer unlock()

	result, err := s.orchestrator.SyncUserWithin(ctx, userID, s.now(), SyncOptions{PassID: passID, Deadline: deadline, Clock: s.now})
	if err != nil && result.Outcome == "" {
		result.UserID = userID
		result.Outcome = SyncOutcomeFailed
		result.Error = err.Error()
	}
	return result
}

func (s *SchedulerService) runLive(ctx context.Context, result *PassResult) error {
	hasLive, err := s.store.HasLive(ctx)
	if err != nil {
		return err
	}
	if !hasLive {
		result.Run.Status = jobscheduler.StatusSkipped
		return nil
	}

	ingestion, err := s.ingestion.RefreshLive(ctx, false)
	if err != nil {
		return err
	}
	result.Ingestion = &ingestion
	result.Run.Fixtures = ingestion.FixturesSeen
	result.Run.Stale = ingestion.Stale
	result.Run.Status = jobscheduler.StatusCompleted
	if ingestion.Skipped {
		result.Run.Status = jobscheduler.StatusSkipped
	}
	return nil
}

func (s *SchedulerService) runSchedule(ctx context.Context, result *PassResult) error {
	ingestion, err := s.ingestion.RefreshSchedules(ctx)
	if err != nil {
		return err
	}
	result.Ingestion = &ingestion
	result.Run.Fixtures = ingestion.FixturesSeen
	result.Run.Stale = ingestion.Stale
	result.Run.Status = jobscheduler.StatusCompleted
	return nil
}

// chainNext schedules the follow-up pass on the external queue: the next
// nightly slot, or another live refresh while live fixtures remain.
func (s *SchedulerService) chainNext(ctx context.Context, kind jobscheduler.PassKind, result *PassResult) {
	if !s.cfg.ChainJobs {
		return
	}
	now := s.now().UTC()

	var (
		path   string
		delay  time.Duration
		bucket time.Duration
	)
	switch kind {
	case jobscheduler.PassNightly:
		next := s.NextNightlyRun(now)
		path, delay, bucket = JobPathNightlyPass, next.Sub(now), time.Hour
	case jobscheduler.PassLive:
		hasLive, err := s.store.HasLive(ctx)
		if err != nil || !hasLive {
			return
		}
		path, delay, bucket = JobPathLiveRefresh, s.cfg.LiveInterval, s.cfg.LiveInterval
	default:
		return
	}

	at := now.Add(delay)
	job := PassJob{
		Path:       path,
		Kind:       kind,
		PreviousID: result.Run.ID,
		DispatchID: dedupKey(strings.TrimPrefix(path, "/v1/internal/jobs/"), string(kind), at, bucket),
		RunAt:      at,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.WarnContext(ctx, "enqueue next pass failed", "kind", kind, "dispatch_id", job.DispatchID, "error", err)
		return
	}
	result.NextRunAt = &at
}

func (s *SchedulerService) saveRun(ctx context.Context, run jobscheduler.PassRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		s.logger.WarnContext(ctx, "record pass run failed",
			"pass_id", run.ID,
			"status", run.Status,
			"error", err,
		)
	}
}

func dedupKey(prefix, scope string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	prefix = sanitizeDedupSegment(prefix)
	scope = sanitizeDedupSegment(scope)
	return prefix + "-" + scope + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
