package observability

import (
	"context"

	"github.com/grafana/pyroscope-go"

	"github.com/riskibarqy/fixture-calendar-sync/internal/config"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

// Sync passes are mostly network wait with bursts of JSON decoding, so CPU,
// allocation and goroutine profiles are the useful ones. Block and mutex
// profiling stay off.
var pyroscopeProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// InitPyroscope starts continuous profiling when enabled. The returned stop
// func flushes the last upload.
func InitPyroscope(cfg config.Config, logger *logging.Logger) (func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.PyroscopeEnabled {
		logger.Info("pyroscope disabled", "reason", "PYROSCOPE_ENABLED=false")
		return func() error { return nil }, nil
	}

	pcfg := pyroscopeConfig(cfg)
	profiler, err := pyroscope.Start(pcfg)
	if err != nil {
		return nil, err
	}
	logger.Info("pyroscope enabled", "server_address", pcfg.ServerAddress, "application", pcfg.ApplicationName, "profiles", len(pcfg.ProfileTypes))
	return profiler.Stop, nil
}

func pyroscopeConfig(cfg config.Config) pyroscope.Config {
	tags := map[string]string{"env": cfg.AppEnv, "service": cfg.ServiceName}
	if cfg.ServiceVersion != "" {
		tags["version"] = cfg.ServiceVersion
	}
	return pyroscope.Config{
		ApplicationName:   cfg.PyroscopeAppName,
		ServerAddress:     cfg.PyroscopeServerAddress,
		AuthToken:         cfg.PyroscopeAuthToken,
		BasicAuthUser:     cfg.PyroscopeBasicAuthUser,
		BasicAuthPassword: cfg.PyroscopeBasicAuthPassword,
		UploadRate:        cfg.PyroscopeUploadRate,
		Tags:              tags,
		ProfileTypes:      pyroscopeProfileTypes,
	}
}

// ProfilePass runs fn with its samples labelled by pass kind, so nightly and
// live passes can be told apart in flame graphs. Labels are pprof labels and
// cost nothing when profiling is off.
func ProfilePass(ctx context.Context, kind string, fn func(context.Context)) {
	pyroscope.TagWrapper(ctx, pyroscope.Labels("pass_kind", kind), fn)
}
