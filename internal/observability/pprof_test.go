package observability

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fixture-calendar-sync/internal/config"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

func TestStartPprofServer_Disabled(t *testing.T) {
	srv, err := StartPprofServer(config.Config{}, logging.NewNop())
	require.NoError(t, err)
	assert.Nil(t, srv)
	assert.NoError(t, StopPprofServer(srv, logging.NewNop(), time.Second))
}

func TestStartPprofServer_ServesIndex(t *testing.T) {
	srv, err := StartPprofServer(config.Config{PprofEnabled: true, PprofAddr: "127.0.0.1:0"}, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = StopPprofServer(srv, logging.NewNop(), time.Second) })

	resp, err := http.Get("http://" + srv.Addr + "/debug/pprof/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartPprofServer_AddressInUse(t *testing.T) {
	first, err := StartPprofServer(config.Config{PprofEnabled: true, PprofAddr: "127.0.0.1:0"}, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = StopPprofServer(first, logging.NewNop(), time.Second) })

	_, err = StartPprofServer(config.Config{PprofEnabled: true, PprofAddr: first.Addr}, logging.NewNop())
	assert.Error(t, err)
}
