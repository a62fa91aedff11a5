package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/plan"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/provider"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/id"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
)

var harnessNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

// fakeCalendar keeps remote events per calendar id and lets tests inject
// failures per calendar. With keyedIDs set it derives event ids from the key
// and keeps deleted events as tombstones, the way Google Calendar does.
type fakeCalendar struct {
	mu         sync.Mutex
	seq        int
	keyedIDs   bool
	events     map[string]map[string]calendar.Event
	tombstones map[string]map[string]calendar.Event
	revoked    map[string]bool
	fail       map[string]error
	creates    int
	updates    int
	deletes    int
	finds      int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		events:     make(map[string]map[string]calendar.Event),
		tombstones: make(map[string]map[string]calendar.Event),
		revoked:    make(map[string]bool),
		fail:       make(map[string]error),
	}
}

func (c *fakeCalendar) check(cred calendar.Credentials) error {
	if c.revoked[cred.AccessToken] {
		return fmt.Errorf("%w: status=401", ErrCalendarAuthExpired)
	}
	return c.fail[cred.CalendarID]
}

func (c *fakeCalendar) FindEventsByKey(_ context.Context, cred calendar.Credentials, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finds++
	if err := c.check(cred); err != nil {
		return nil, err
	}
	out := make([]string, 0)
	for eventID, event := range c.events[cred.CalendarID] {
		if event.Key == key {
			out = append(out, eventID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *fakeCalendar) CreateEvent(_ context.Context, cred calendar.Credentials, event calendar.Event) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(cred); err != nil {
		return "", err
	}
	c.seq++
	c.creates++
	eventID := fmt.Sprintf("evt-%03d", c.seq)
	if c.keyedIDs {
		eventID = "evt-" + event.Key
		delete(c.tombstones[cred.CalendarID], eventID)
	}
	if c.events[cred.CalendarID] == nil {
		c.events[cred.CalendarID] = make(map[string]calendar.Event)
	}
	c.events[cred.CalendarID][eventID] = event
	return eventID, nil
}

func (c *fakeCalendar) UpdateEvent(_ context.Context, cred calendar.Credentials, eventID string, event calendar.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(cred); err != nil {
		return err
	}
	if _, ok := c.events[cred.CalendarID][eventID]; !ok {
		return calendar.ErrEventGone
	}
	c.updates++
	c.events[cred.CalendarID][eventID] = event
	return nil
}

func (c *fakeCalendar) DeleteEvent(_ context.Context, cred calendar.Credentials, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(cred); err != nil {
		return err
	}
	c.deletes++
	if event, ok := c.events[cred.CalendarID][eventID]; ok && c.keyedIDs {
		if c.tombstones[cred.CalendarID] == nil {
			c.tombstones[cred.CalendarID] = make(map[string]calendar.Event)
		}
		c.tombstones[cred.CalendarID][eventID] = event
	}
	delete(c.events[cred.CalendarID], eventID)
	return nil
}

func (c *fakeCalendar) tombstonesFor(calendarID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tombstones[calendarID])
}

func (c *fakeCalendar) eventsFor(calendarID string) map[string]calendar.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]calendar.Event, len(c.events[calendarID]))
	for k, v := range c.events[calendarID] {
		out[k] = v
	}
	return out
}

func (c *fakeCalendar) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creates + c.updates + c.deletes
}

// staticAdapter serves canned provider payloads.
type staticAdapter struct {
	name     string
	mu       sync.Mutex
	fixtures map[sport.Sport][]provider.Fixture
	scores   map[sport.Sport][]provider.ScoreUpdate
	err      error
	calls    int
}

func (a *staticAdapter) Name() string { return a.name }

func (a *staticAdapter) FetchSchedule(_ context.Context, s sport.Sport, _ string, _, _ time.Time) ([]provider.Fixture, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return append([]provider.Fixture(nil), a.fixtures[s]...), nil
}

func (a *staticAdapter) FetchLiveScores(_ context.Context, s sport.Sport) ([]provider.ScoreUpdate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return append([]provider.ScoreUpdate(nil), a.scores[s]...), nil
}

type syncHarness struct {
	now func() time.Time

	teams         *memory.TeamRepository
	leagues       *memory.LeagueRepository
	fixtures      *memory.FixtureRepository
	favorites     *memory.FavoriteRepository
	plans         *memory.PlanRepository
	connections   *memory.CalendarConnectionRepository
	records       *memory.SyncRecordRepository
	notifications *memory.NotificationRepository
	runs          *memory.PassRunRepository
	calendar      *fakeCalendar
	locker        *resilience.KeyedMutex

	store        *FixtureStore
	normalizer   *Normalizer
	matcher      *FavoriteMatcher
	notifier     *NotificationEmitter
	auth         *CalendarAuthService
	quota        *QuotaEnforcer
	favoriteSvc  *FavoriteService
	orchestrator *SyncOrchestrator
}

func newSyncHarness(t *testing.T, refresher calendar.TokenRefresher, fixtures ...fixture.Fixture) *syncHarness {
	t.Helper()

	clock := func() time.Time { return harnessNow }
	logger := logging.NewNop()
	h := &syncHarness{
		now:           clock,
		teams:         memory.NewTeamRepository(memory.SeedTeams()),
		leagues:       memory.NewLeagueRepository(memory.SeedLeagues()),
		fixtures:      memory.NewFixtureRepository(fixtures),
		favorites:     memory.NewFavoriteRepository(),
		plans:         memory.NewPlanRepository(nil),
		connections:   memory.NewCalendarConnectionRepository(),
		records:       memory.NewSyncRecordRepository(),
		notifications: memory.NewNotificationRepository(),
		runs:          memory.NewPassRunRepository(),
		calendar:      newFakeCalendar(),
		locker:        &resilience.KeyedMutex{},
	}
	catalog := plan.DefaultCatalog()

	h.store = NewFixtureStore(h.fixtures, FixtureStoreConfig{}, logger)
	h.store.now = clock
	h.normalizer = NewNormalizer(h.teams, h.leagues, memory.SeedNicknames(), logger)
	h.normalizer.now = clock
	h.matcher = NewFavoriteMatcher(h.store, h.favorites, h.plans, catalog, 48*time.Hour)
	h.notifier = NewNotificationEmitter(h.notifications, id.NewUUIDGenerator("ntf"), 5, logger)
	h.notifier.now = clock
	h.auth = NewCalendarAuthService(h.connections, refresher, h.notifier, logger)
	h.auth.now = clock
	h.quota = NewQuotaEnforcer(h.favorites, h.plans, catalog, h.teams, h.leagues, h.locker, logger)
	h.favoriteSvc = NewFavoriteService(h.quota, h.favorites, h.plans, catalog, h.locker)
	h.orchestrator = NewSyncOrchestrator(h.matcher, h.store, h.records, h.calendar, h.auth, h.notifier, SyncOrchestratorConfig{}, logger)
	h.orchestrator.now = clock
	return h
}

func (h *syncHarness) connect(t *testing.T, userID string) {
	t.Helper()
	err := h.connections.Upsert(context.Background(), calendar.Connection{
		UserID:     userID,
		Provider:   calendar.ProviderGoogle,
		CalendarID: "cal-" + userID,
		Token: calendar.Token{
			AccessToken:  "access-" + userID,
			RefreshToken: "refresh-" + userID,
			Expiry:       harnessNow.Add(time.Hour),
		},
		Status: calendar.ConnectionActive,
	})
	if err != nil {
		t.Fatalf("connect calendar user=%s: %v", userID, err)
	}
}

func (h *syncHarness) favoriteTeam(t *testing.T, userID, teamID string) {
	t.Helper()
	if _, err := h.favoriteSvc.Add(context.Background(), userID, "team", teamID); err != nil {
		t.Fatalf("add favorite team=%s user=%s: %v", teamID, userID, err)
	}
}

func (h *syncHarness) recordsFor(t *testing.T, userID string) []calendar.SyncRecord {
	t.Helper()
	items, err := h.records.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("list sync records user=%s: %v", userID, err)
	}
	return items
}

func scheduledFixture(s sport.Sport, homeID, awayID, homeName, awayName string, kickoff time.Time) fixture.Fixture {
	return fixture.Fixture{
		ID:           fixture.CanonicalID(s, homeID, awayID, kickoff),
		Sport:        s,
		HomeTeamID:   homeID,
		AwayTeamID:   awayID,
		HomeTeamName: homeName,
		AwayTeamName: awayName,
		KickoffAt:    kickoff,
		Venue:        "Home Arena",
		Status:       fixture.StatusScheduled,
	}
}

func intPtr(v int) *int {
	return &v
}
