package sportmonks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schedulePage1 = `{
  "data": [
    {
      "id": 19135001,
      "league_id": 8,
      "starting_at": "2026-03-14 15:00:00",
      "state_id": 1,
      "league": {"id": 8, "name": "Premier League"},
      "venue": {"data": {"id": 206, "name": "Old Trafford"}},
      "participants": [
        {"id": 14, "name": "Manchester United", "meta": {"location": "home"}},
        {"id": 19, "name": "Arsenal", "meta": {"location": "away"}}
      ],
      "scores": []
    },
    {
      "id": 19135002,
      "league_id": 8,
      "starting_at": "",
      "state_id": 1,
      "participants": []
    }
  ],
  "pagination": {"count": 2, "per_page": 50, "current_page": 1, "has_more": true}
}`

const schedulePage2 = `{
  "data": [
    {
      "id": 19135003,
      "league_id": 8,
      "starting_at": "2026-03-15T16:30:00Z",
      "state_id": 10,
      "participants": [
        {"id": 8, "name": "Liverpool", "meta": {"location": "home"}},
        {"id": 9, "name": "Manchester City", "meta": {"location": "away"}}
      ]
    }
  ],
  "pagination": {"count": 1, "per_page": 50, "current_page": 2, "has_more": false}
}`

const livePayload = `{
  "data": [
    {
      "id": 19135001,
      "league_id": 8,
      "starting_at": "2026-03-14 15:00:00",
      "state_id": 3,
      "participants": [
        {"id": 14, "name": "Manchester United", "meta": {"location": "home"}},
        {"id": 19, "name": "Arsenal", "meta": {"location": "away"}}
      ],
      "scores": [
        {"participant_id": 14, "description": "1ST_HALF", "score": {"goals": 1}},
        {"participant_id": 19, "description": "1ST_HALF", "score": {"goals": 0}},
        {"participant_id": 14, "description": "CURRENT", "score": {"goals": 2}},
        {"participant_id": 19, "description": "CURRENT", "score": {"goals": 1}}
      ]
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{
		HTTPClient:     server.Client(),
		BaseURL:        server.URL,
		Token:          "secret-token",
		Logger:         logging.NewNop(),
		CircuitBreaker: breaker,
	})
}

func TestFetchSchedule_PagesAndMapsFixtures(t *testing.T) {
	t.Parallel()

	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if got := r.URL.Query().Get("api_token"); got != "secret-token" {
			t.Errorf("expected api token to be forwarded, got=%q", got)
		}
		if got := r.URL.Query().Get("filters"); got != "fixtureLeagues:8" {
			t.Errorf("expected league filter, got=%q", got)
		}
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(schedulePage1))
		default:
			_, _ = w.Write([]byte(schedulePage2))
		}
	}, resilience.CircuitBreakerConfig{})

	from := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)
	fixtures, err := client.FetchSchedule(context.Background(), sport.Football, "8", from, to)
	require.NoError(t, err)
	require.Len(t, fixtures, 2)

	first := fixtures[0]
	assert.Equal(t, ProviderName, first.Provider)
	assert.Equal(t, "19135001", first.ExternalID)
	assert.Equal(t, "Manchester United", first.HomeTeamName)
	assert.Equal(t, "Arsenal", first.AwayTeamName)
	assert.Equal(t, "Old Trafford", first.Venue)
	assert.Equal(t, "Premier League", first.LeagueName)
	assert.Equal(t, "8", first.LeagueRef)
	assert.Equal(t, "SCHEDULED", first.Status)
	assert.True(t, first.KickoffAt.Equal(time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)))

	assert.Equal(t, "POSTPONED", fixtures[1].Status)
	require.Len(t, paths, 2)
	assert.Equal(t, "/fixtures/between/2026-03-14/2026-03-16", paths[0])
}

func TestFetchSchedule_IgnoresOtherSports(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, resilience.CircuitBreakerConfig{})

	now := time.Now()
	fixtures, err := client.FetchSchedule(context.Background(), sport.Basketball, "", now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, fixtures)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestFetchLiveScores_UsesCurrentScore(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/livescores/inplay" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(livePayload))
	}, resilience.CircuitBreakerConfig{})

	updates, err := client.FetchLiveScores(context.Background(), sport.Football)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "LIVE", updates[0].Status)
	require.NotNil(t, updates[0].HomeScore)
	require.NotNil(t, updates[0].AwayScore)
	assert.Equal(t, 2, *updates[0].HomeScore)
	assert.Equal(t, 1, *updates[0].AwayScore)
}

func TestFetchLiveScores_RateLimitedReturnsRetryAfter(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}, resilience.CircuitBreakerConfig{})
	client.maxRetries = 2

	_, err := client.FetchLiveScores(context.Background(), sport.Football)
	require.Error(t, err)

	var limited *usecase.RateLimitedError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 30*time.Second, limited.RetryAfter)
	assert.True(t, errors.Is(err, usecase.ErrProviderRateLimited))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchLiveScores_CircuitOpensAfterServerErrors(t *testing.T) {
	t.Parallel()

	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}, resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, OpenTimeout: time.Minute, HalfOpenMaxReq: 1})

	for i := 0; i < 2; i++ {
		_, err := client.FetchLiveScores(context.Background(), sport.Football)
		require.Error(t, err)
		assert.True(t, isSportMonksCircuitFailure(err))
	}

	_, err := client.FetchLiveScores(context.Background(), sport.Football)
	require.Error(t, err)
	assert.True(t, errors.Is(err, usecase.ErrProviderUnavailable))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFixtureStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stateID    int64
		resultInfo string
		want       string
	}{
		{stateID: 1, want: statusScheduled},
		{stateID: 3, want: statusLive},
		{stateID: 5, want: statusFinished},
		{stateID: 10, want: statusPostponed},
		{stateID: 12, want: statusCancelled},
		{stateID: 0, resultInfo: "Match abandoned", want: statusCancelled},
		{stateID: 0, resultInfo: "Game ended in full time", want: statusFinished},
		{stateID: 99, resultInfo: "", want: statusScheduled},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, fixtureStatus(tc.stateID, tc.resultInfo), "state=%d info=%q", tc.stateID, tc.resultInfo)
	}
}

func TestBestScores_PrefersHighestRankedPeriod(t *testing.T) {
	t.Parallel()

	scores := []scoreEntry{
		{ParticipantID: 14, Description: "2ND_HALF", Score: map[string]any{"goals": float64(1)}},
		{ParticipantID: 14, Description: "NORMAL_TIME", Data: map[string]any{"value": "3"}},
		{ParticipantID: 19, Description: "NORMAL_TIME", Goals: float64(2)},
		{ParticipantID: 19, Description: "1ST_HALF", Goals: float64(0)},
		{ParticipantID: 19, Description: "CURRENT", Goals: "n/a"},
	}
	home, away := bestScores(scores, 14, 19)
	require.NotNil(t, home)
	require.NotNil(t, away)
	assert.Equal(t, 3, *home)
	assert.Equal(t, 2, *away)

	home, away = bestScores(nil, 14, 19)
	assert.Nil(t, home)
	assert.Nil(t, away)
}

func TestRedactText(t *testing.T) {
	t.Parallel()

	got := redactText(`Get "https://api.example/x?api_token=abc123&page=1": dial tcp`, "abc123")
	assert.NotContains(t, got, "abc123")
	assert.Contains(t, got, "api_token=REDACTED")
	assert.Equal(t, "https://api.example/x?api_token=REDACTED&page=1", redactURL("https://api.example/x?api_token=zzz&page=1"))
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, defaultRetryAfter, retryAfter("", now))
	assert.Equal(t, 12*time.Second, retryAfter("12", now))
	assert.Equal(t, 90*time.Second, retryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, defaultRetryAfter, retryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
}
