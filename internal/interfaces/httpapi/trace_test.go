package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

func TestShouldCreateHTTPAPISpan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "handler span", in: "httpapi.Handler.ListFixtures", want: true},
		{name: "middleware span", in: "httpapi.RequireAuth", want: false},
		{name: "helper span", in: "httpapi.writeError", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldCreateHTTPAPISpan(tt.in))
		})
	}
}

func TestShouldTraceRequest(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz", " /HEALTHZ ", "/openapi.yaml", "/docs"} {
		assert.False(t, shouldTraceRequest(path), path)
	}
	for _, path := range []string{"/v1/favorites", "/v1/fixtures", "/v1/internal/jobs/live-refresh", "/"} {
		assert.True(t, shouldTraceRequest(path), path)
	}
}

func TestRequestLogging_NamesCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.LevelInfo, &buf)

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	verifier := stubVerifier{"token-pro": "user-pro"}

	userChain := RequestLogging(logger, RequireAuth(verifier, ok))
	req := httptest.NewRequest(http.MethodGet, "/v1/favorites", nil)
	req.Header.Set("Authorization", "Bearer token-pro")
	userChain.ServeHTTP(httptest.NewRecorder(), req)

	jobChain := RequestLogging(logger, RequireInternalJobToken(testJobToken, ok))
	req = httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/live-refresh", nil)
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	jobChain.ServeHTTP(httptest.NewRecorder(), req)

	anon := RequestLogging(logger, ok)
	anon.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), `"caller":"user"`)
	assert.Contains(t, string(lines[0]), `"user_id":"user-pro"`)
	assert.Contains(t, string(lines[1]), `"caller":"job"`)
	assert.Contains(t, string(lines[2]), `"caller":"anonymous"`)
}
