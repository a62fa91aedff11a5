package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

func TestFixtureStore_NeedsRefresh(t *testing.T) {
	store := NewFixtureStore(memory.NewFixtureRepository(nil), FixtureStoreConfig{LiveRefreshInterval: 90 * time.Second}, logging.NewNop())

	cases := map[string]struct {
		status fixture.Status
		age    time.Duration
		want   bool
	}{
		"live fresh":      {status: fixture.StatusLive, age: 30 * time.Second},
		"live stale":      {status: fixture.StatusLive, age: 2 * time.Minute, want: true},
		"scheduled fresh": {status: fixture.StatusScheduled, age: 23 * time.Hour},
		"scheduled stale": {status: fixture.StatusScheduled, age: 25 * time.Hour, want: true},
		"postponed stale": {status: fixture.StatusPostponed, age: 48 * time.Hour, want: true},
		"completed never": {status: fixture.StatusCompleted, age: 365 * 24 * time.Hour},
		"cancelled never": {status: fixture.StatusCancelled, age: 365 * 24 * time.Hour},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			item := fixture.Fixture{Status: tc.status, RefreshedAt: harnessNow.Add(-tc.age)}
			assert.Equal(t, tc.want, store.NeedsRefresh(item, harnessNow))
		})
	}
}

func TestFixtureStore_PurgeKeepsRecentAndUnfinished(t *testing.T) {
	old := harnessNow.Add(-40 * 24 * time.Hour)
	repo := memory.NewFixtureRepository([]fixture.Fixture{
		{ID: "fx_old_done", Sport: sport.Football, KickoffAt: old, Status: fixture.StatusCompleted},
		{ID: "fx_old_postponed", Sport: sport.Football, KickoffAt: old, Status: fixture.StatusPostponed},
		{ID: "fx_recent_done", Sport: sport.Football, KickoffAt: harnessNow.Add(-48 * time.Hour), Status: fixture.StatusCompleted},
	})
	store := NewFixtureStore(repo, FixtureStoreConfig{}, logging.NewNop())

	removed, err := store.Purge(context.Background(), harnessNow)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, found, err := store.Get(context.Background(), "fx_old_done")
	require.NoError(t, err)
	assert.False(t, found)
	for _, id := range []string{"fx_old_postponed", "fx_recent_done"} {
		_, found, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, found, id)
	}
}

func TestFixtureStore_RecordCycleTracksStaleness(t *testing.T) {
	store := NewFixtureStore(memory.NewFixtureRepository(nil), FixtureStoreConfig{}, logging.NewNop())
	down := errors.New("down")

	first := store.RecordCycle([]ProviderResult{
		{Provider: "sportmonks", Sport: sport.Football},
		{Provider: "espn", Sport: sport.Basketball, Err: down},
	}, harnessNow)
	assert.False(t, first.Stale)
	assert.Equal(t, harnessNow, first.LastSuccessfulRefresh)
	assert.Len(t, first.FailedProviders, 1)

	later := harnessNow.Add(time.Minute)
	second := store.RecordCycle([]ProviderResult{
		{Provider: "sportmonks", Sport: sport.Football, Err: down},
		{Provider: "espn", Sport: sport.Basketball, Skipped: true},
	}, later)
	assert.True(t, second.Stale)
	assert.Equal(t, harnessNow, second.LastSuccessfulRefresh)
	assert.Equal(t, later, second.LastAttempt)

	snapshot := store.Staleness()
	snapshot.FailedProviders[0] = "mutated"
	assert.NotEqual(t, "mutated", store.Staleness().FailedProviders[0])
}

func TestFixtureStore_LiveSourceUpdatesScoresButNotVenue(t *testing.T) {
	ctx := context.Background()
	kickoff := harnessNow.Add(-30 * time.Minute)
	base := scheduledFixture(sport.Football, "epl-mun", "epl-ars", "Manchester United", "Arsenal", kickoff)
	base.Venue = "Old Trafford"

	cases := map[string]FixtureSource{
		"lower schedule priority":  {Provider: "espn", SchedulePriority: 5, LiveCapable: true, Origin: ProviderCallLive},
		"higher schedule priority": {Provider: "espn", SchedulePriority: 50, LiveCapable: true, Origin: ProviderCallLive},
	}
	for name, live := range cases {
		t.Run(name, func(t *testing.T) {
			store := NewFixtureStore(memory.NewFixtureRepository(nil), FixtureStoreConfig{}, logging.NewNop())
			store.now = func() time.Time { return harnessNow }

			created, err := store.Upsert(ctx, FixtureSource{Provider: "sportmonks", SchedulePriority: 10, Origin: ProviderCallSchedule}, base)
			require.NoError(t, err)
			require.True(t, created.Created)

			update := base
			update.Venue = "Emirates Stadium"
			update.Status = fixture.StatusLive
			update.HomeScore = intPtr(1)
			update.AwayScore = intPtr(0)

			got, err := store.Upsert(ctx, live, update)
			require.NoError(t, err)
			assert.True(t, got.Changed)
			assert.Equal(t, "Old Trafford", got.Fixture.Venue)
			assert.Equal(t, fixture.StatusLive, got.Fixture.Status)
			require.NotNil(t, got.Fixture.HomeScore)
			require.NotNil(t, got.Fixture.AwayScore)
			assert.Equal(t, 1, *got.Fixture.HomeScore)
			assert.Equal(t, 0, *got.Fixture.AwayScore)
			assert.Equal(t, "sportmonks", got.Fixture.Sources.ScheduleProvider)
			assert.Equal(t, "espn", got.Fixture.Sources.ScoreProvider)

			stored, found, err := store.Get(ctx, base.ID)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, "Old Trafford", stored.Venue)
		})
	}
}
