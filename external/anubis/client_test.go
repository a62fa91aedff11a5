package anubis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

const (
	testAdminKey = "admin-secret"
	testPath     = "/v1/auth/introspect"
)

// fakeAnubis answers introspection calls with a fixed status and body and
// counts how often it was hit.
type fakeAnubis struct {
	status int
	body   map[string]any
	calls  atomic.Int32
}

func (f *fakeAnubis) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	if r.Method != http.MethodPost || r.URL.Path != testPath {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Header.Get("x-admin-key") != testAdminKey {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	var req introspectRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	raw, _ := sonic.Marshal(f.body)
	_, _ = w.Write(raw)
}

func startAnubis(t *testing.T, fake *fakeAnubis, adminKey string, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL + "/",
		IntrospectPath: "v1/auth/introspect",
		AdminKey:       adminKey,
		CircuitBreaker: breaker,
		Logger:         logging.NewNop(),
	})
}

func TestVerifyAccessToken_ActiveToken(t *testing.T) {
	t.Parallel()

	fake := &fakeAnubis{body: map[string]any{"active": true, "user_id": "user-123", "roles": []string{"viewer"}}}
	client := startAnubis(t, fake, testAdminKey, resilience.CircuitBreakerConfig{})

	principal, err := client.VerifyAccessToken(context.Background(), " token-abc ")
	require.NoError(t, err)
	assert.Equal(t, "user-123", principal.UserID)
	assert.Empty(t, principal.Email)
}

func TestVerifyAccessToken_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		fake     *fakeAnubis
		adminKey string
		token    string
		want     error
		calls    int32
	}{
		"blank token": {
			fake: &fakeAnubis{}, adminKey: testAdminKey, token: "  ",
			want: usecase.ErrUnauthorized, calls: 0,
		},
		"inactive": {
			fake: &fakeAnubis{body: map[string]any{"active": false}}, adminKey: testAdminKey, token: "t",
			want: usecase.ErrUnauthorized, calls: 1,
		},
		"denied": {
			fake: &fakeAnubis{status: http.StatusUnauthorized}, adminKey: testAdminKey, token: "t",
			want: usecase.ErrUnauthorized, calls: 1,
		},
		"wrong admin key": {
			fake: &fakeAnubis{}, adminKey: "wrong-key", token: "t",
			want: usecase.ErrDependencyUnavailable, calls: 1,
		},
		"server error": {
			fake: &fakeAnubis{status: http.StatusBadGateway}, adminKey: testAdminKey, token: "t",
			want: usecase.ErrDependencyUnavailable, calls: 1,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			client := startAnubis(t, tc.fake, tc.adminKey, resilience.CircuitBreakerConfig{})
			_, err := client.VerifyAccessToken(context.Background(), tc.token)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.calls, tc.fake.calls.Load())
		})
	}
}

func TestVerifyAccessToken_MissingUserIDIsNotUnauthorized(t *testing.T) {
	t.Parallel()

	client := startAnubis(t, &fakeAnubis{body: map[string]any{"active": true}}, testAdminKey, resilience.CircuitBreakerConfig{})
	_, err := client.VerifyAccessToken(context.Background(), "t")
	require.Error(t, err)
	assert.NotErrorIs(t, err, usecase.ErrUnauthorized)
	assert.NotErrorIs(t, err, usecase.ErrDependencyUnavailable)
}

func TestVerifyAccessToken_CachesPrincipal(t *testing.T) {
	t.Parallel()

	fake := &fakeAnubis{body: map[string]any{"active": true, "user_id": "user-cache"}}
	client := startAnubis(t, fake, testAdminKey, resilience.CircuitBreakerConfig{})
	for range 2 {
		principal, err := client.VerifyAccessToken(context.Background(), "cached-token")
		require.NoError(t, err)
		assert.Equal(t, "user-cache", principal.UserID)
	}
	assert.EqualValues(t, 1, fake.calls.Load())
}

func TestVerifyAccessToken_CircuitOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	fake := &fakeAnubis{status: http.StatusBadGateway}
	client := startAnubis(t, fake, testAdminKey, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	for i := range 3 {
		_, err := client.VerifyAccessToken(context.Background(), "token-abc")
		assert.ErrorIs(t, err, usecase.ErrDependencyUnavailable, "attempt %d", i)
	}
	assert.EqualValues(t, 2, fake.calls.Load())
	assert.Equal(t, resilience.CircuitStateOpen, client.breaker.State())
}

func TestBuildURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://auth.example/v1/introspect", buildURL("https://auth.example/", "v1/introspect"))
	assert.Equal(t, "https://auth.example/v1/introspect", buildURL(" https://auth.example ", "/v1/introspect"))
	assert.Equal(t, "https://other.example/x", buildURL("https://auth.example", "https://other.example/x"))
	assert.Equal(t, "https://auth.example", buildURL("https://auth.example/", ""))
}
