package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fixture-calendar-sync/internal/config"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

func TestUptraceDisabledReason(t *testing.T) {
	cases := map[string]struct {
		cfg  config.Config
		want string
	}{
		"off":       {cfg: config.Config{UptraceDSN: "https://token@api.uptrace.dev/1"}, want: "UPTRACE_ENABLED=false"},
		"blank dsn": {cfg: config.Config{UptraceEnabled: true, UptraceDSN: "  "}, want: "UPTRACE_DSN empty"},
		"enabled":   {cfg: config.Config{UptraceEnabled: true, UptraceDSN: "https://token@api.uptrace.dev/1"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, uptraceDisabledReason(tc.cfg))
		})
	}
}

func TestInitUptrace_DisabledClearsMirror(t *testing.T) {
	var mirrored int
	logging.SetMirror(func(context.Context, logging.Level, string, ...any) { mirrored++ })
	t.Cleanup(func() { logging.SetMirror(nil) })

	shutdown, err := InitUptrace(config.Config{UptraceEnabled: true, UptraceDSN: "  "}, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	logging.NewNop().Info("after init")
	assert.Zero(t, mirrored)
}

func TestInitUptrace_NilLogger(t *testing.T) {
	shutdown, err := InitUptrace(config.Config{AppEnv: config.EnvDev}, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
