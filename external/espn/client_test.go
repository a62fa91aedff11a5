package espn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nbaScoreboard = `{
  "leagues": [{"name": "National Basketball Association", "abbreviation": "NBA"}],
  "events": [
    {
      "id": "401585601",
      "date": "2026-03-14T23:30Z",
      "name": "Boston Celtics at Los Angeles Lakers",
      "status": {"period": 0, "type": {"name": "STATUS_SCHEDULED", "state": "pre", "completed": false}},
      "competitions": [{
        "venue": {"fullName": "Crypto.com Arena"},
        "competitors": [
          {"homeAway": "home", "score": "0", "team": {"id": "13", "displayName": "Los Angeles Lakers", "abbreviation": "LAL"}},
          {"homeAway": "away", "score": "0", "team": {"id": "2", "displayName": "Boston Celtics", "abbreviation": "BOS"}}
        ]
      }]
    },
    {
      "id": "401585602",
      "date": "2026-03-14T20:00Z",
      "status": {"period": 3, "type": {"name": "STATUS_IN_PROGRESS", "state": "in", "completed": false}},
      "competitions": [{
        "competitors": [
          {"homeAway": "home", "score": "77", "team": {"abbreviation": "NYK"}},
          {"homeAway": "away", "score": "81", "team": {"displayName": "Miami Heat"}}
        ]
      }]
    },
    {
      "id": "401585603",
      "date": "not-a-date",
      "competitions": []
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(ClientConfig{
		BaseURL:        server.URL,
		Timeout:        2 * time.Second,
		Logger:         logging.NewNop(),
		CircuitBreaker: breaker,
	})
	return client
}

func TestFetchSchedule_MapsScoreboardEvents(t *testing.T) {
	t.Parallel()

	var gotPath, gotDates string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDates = r.URL.Query().Get("dates")
		_, _ = w.Write([]byte(nbaScoreboard))
	}, resilience.CircuitBreakerConfig{})

	from := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	fixtures, err := client.FetchSchedule(context.Background(), sport.Basketball, "", from, from.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, fixtures, 2)

	assert.Equal(t, "/basketball/nba/scoreboard", gotPath)
	assert.Equal(t, "20260314-20260316", gotDates)

	first := fixtures[0]
	assert.Equal(t, ProviderName, first.Provider)
	assert.Equal(t, "401585601", first.ExternalID)
	assert.Equal(t, "Los Angeles Lakers", first.HomeTeamName)
	assert.Equal(t, "Boston Celtics", first.AwayTeamName)
	assert.Equal(t, "Crypto.com Arena", first.Venue)
	assert.Equal(t, "nba", first.LeagueRef)
	assert.Equal(t, "National Basketball Association", first.LeagueName)
	assert.Nil(t, first.HomeScore)
	assert.True(t, first.KickoffAt.Equal(time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)))

	status, ok := fixture.ParseStatus(first.Status)
	require.True(t, ok)
	assert.Equal(t, fixture.StatusScheduled, status)

	live := fixtures[1]
	assert.Equal(t, "NYK", live.HomeTeamName)
	require.NotNil(t, live.HomeScore)
	assert.Equal(t, 77, *live.HomeScore)
}

func TestFetchSchedule_UsesExplicitLeague(t *testing.T) {
	t.Parallel()

	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"events": []}`))
	}, resilience.CircuitBreakerConfig{})

	now := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	fixtures, err := client.FetchSchedule(context.Background(), sport.Football, "esp.1", now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, fixtures)
	assert.Equal(t, "/soccer/esp.1/scoreboard", gotPath)
}

func TestFetchLiveScores_KeepsInProgressOnly(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("dates") != "" {
			t.Errorf("live scoreboard must not pin dates")
		}
		_, _ = w.Write([]byte(nbaScoreboard))
	}, resilience.CircuitBreakerConfig{})

	updates, err := client.FetchLiveScores(context.Background(), sport.Basketball)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "401585602", updates[0].ExternalID)
	assert.Equal(t, "STATUS_IN_PROGRESS", updates[0].Status)
	require.NotNil(t, updates[0].AwayScore)
	assert.Equal(t, 81, *updates[0].AwayScore)
}

func TestFetchLiveScores_RateLimited(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "45")
		w.WriteHeader(http.StatusTooManyRequests)
	}, resilience.CircuitBreakerConfig{})

	_, err := client.FetchLiveScores(context.Background(), sport.Basketball)
	var limited *usecase.RateLimitedError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 45*time.Second, limited.RetryAfter)
	assert.Equal(t, ProviderName, limited.Provider)
}

func TestFetchLiveScores_CircuitOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute, HalfOpenMaxReq: 1})

	_, err := client.FetchLiveScores(context.Background(), sport.Basketball)
	require.Error(t, err)

	_, err = client.FetchLiveScores(context.Background(), sport.Basketball)
	require.ErrorIs(t, err, usecase.ErrProviderUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchLiveScores_UnsupportedSport(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{Logger: logging.NewNop()})
	updates, err := client.FetchLiveScores(context.Background(), sport.Sport("cricket"))
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestStatusCode_FallsBackToState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   statusType
		want string
	}{
		{in: statusType{Name: "status_final"}, want: "STATUS_FINAL"},
		{in: statusType{State: "in"}, want: "LIVE"},
		{in: statusType{State: "post", Completed: true}, want: "FINISHED"},
		{in: statusType{State: "post"}, want: "POSTPONED"},
		{in: statusType{}, want: "SCHEDULED"},
	}
	for _, tc := range tests {
		if got := statusCode(tc.in); got != tc.want {
			t.Fatalf("status %+v expected=%s got=%s", tc.in, tc.want, got)
		}
	}
}
