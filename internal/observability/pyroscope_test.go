package observability

import (
	"context"
	"testing"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fixture-calendar-sync/internal/config"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

func TestPyroscopeConfig(t *testing.T) {
	got := pyroscopeConfig(config.Config{
		AppEnv:                 config.EnvProd,
		ServiceName:            "fixture-calendar-sync",
		PyroscopeAppName:       "fixture-calendar-sync",
		PyroscopeServerAddress: "http://pyroscope:4040",
		PyroscopeUploadRate:    15 * time.Second,
	})

	assert.Equal(t, "http://pyroscope:4040", got.ServerAddress)
	assert.Equal(t, 15*time.Second, got.UploadRate)
	assert.Equal(t, map[string]string{"env": config.EnvProd, "service": "fixture-calendar-sync"}, got.Tags)
	assert.Contains(t, got.ProfileTypes, pyroscope.ProfileCPU)
	assert.NotContains(t, got.ProfileTypes, pyroscope.ProfileMutexCount)
}

func TestInitPyroscope_Disabled(t *testing.T) {
	stop, err := InitPyroscope(config.Config{}, logging.NewNop())
	require.NoError(t, err)
	assert.NoError(t, stop())
}

func TestProfilePass_RunsWithContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "nightly")

	var seen any
	ProfilePass(ctx, "nightly", func(ctx context.Context) { seen = ctx.Value(key{}) })
	assert.Equal(t, "nightly", seen)
}
