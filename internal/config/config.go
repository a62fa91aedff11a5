package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	LogLevel                   logging.Level
	CORSAllowedOrigins         []string
	DBURL                      string
	DBDisablePreparedBinary    bool
	RedisURL                   string
	CacheEnabled               bool
	CacheTTL                   time.Duration
	PprofEnabled               bool
	PprofAddr                  string
	SwaggerEnabled             bool
	AnubisBaseURL              string
	AnubisIntrospectURL        string
	AnubisAdminKey             string
	AnubisTimeout              time.Duration
	AnubisCircuit              resilience.CircuitBreakerConfig
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	BetterStackEnabled         bool
	BetterStackEndpoint        string
	BetterStackToken           string
	BetterStackTimeout         time.Duration
	BetterStackMinLevel        logging.Level
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	ProviderTimeout          time.Duration
	ProviderCooldown         time.Duration
	ProviderMaxConcurrency   int
	SportMonksEnabled        bool
	SportMonksBaseURL        string
	SportMonksToken          string
	SportMonksTimeout        time.Duration
	SportMonksMaxRetries     int
	SportMonksCircuit        resilience.CircuitBreakerConfig
	SportMonksLeagueIDs      []string
	SportMonksPriority       int
	SportMonksRPM            int
	ESPNEnabled              bool
	ESPNBaseURL              string
	ESPNTimeout              time.Duration
	ESPNSports               []sport.Sport
	ESPNCircuit              resilience.CircuitBreakerConfig
	ESPNPriority             int
	ESPNRPM                  int
	GoogleCalendarClientID   string
	GoogleCalendarSecret     string
	GoogleCalendarTokenURL   string
	GoogleCalendarBaseURL    string
	GoogleCalendarTimeout    time.Duration
	GoogleCalendarCircuit    resilience.CircuitBreakerConfig
	SyncHorizon              time.Duration
	SyncKickoffShift         time.Duration
	SyncUserMinBudget        time.Duration
	NotifyBurstThreshold     int
	PlanFreeMaxTeams         int
	PlanFreeMaxLeagues       int
	PlanProMaxTeams          int
	PlanProMaxLeagues        int
	SchedulerEnabled         bool
	SchedulerNightlyHour     int
	SchedulerNightlyMinute   int
	SchedulerLocation        *time.Location
	SchedulerLiveInterval    time.Duration
	SchedulerWorkers         int
	SchedulerPassDeadline    time.Duration
	SchedulerScheduleWindow  time.Duration
	FixtureRetention         time.Duration
	InternalJobToken         string
	QStashEnabled            bool
	QStashBaseURL            string
	QStashToken              string
	QStashTargetBaseURL      string
	QStashRetries            int
	QStashCircuit            resilience.CircuitBreakerConfig
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}

	swaggerEnabled, err := strconv.ParseBool(getEnv("SWAGGER_ENABLED", swaggerDefault))
	if err != nil {
		return Config{}, fmt.Errorf("parse SWAGGER_ENABLED: %w", err)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}

	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	betterStackEnabled, err := strconv.ParseBool(getEnv("BETTERSTACK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_ENABLED: %w", err)
	}
	betterStackEndpoint := strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", ""))
	if betterStackEnabled && betterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	betterStackTimeout, err := getEnvAsPositiveDuration("BETTERSTACK_TIMEOUT", "3s")
	if err != nil {
		return Config{}, err
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := getEnvAsPositiveDuration("PYROSCOPE_UPLOAD_RATE", "15s")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "fixture-calendar-sync"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		DBURL:                      strings.TrimSpace(getEnv("DB_URL", "")),
		RedisURL:                   strings.TrimSpace(getEnv("REDIS_URL", "")),
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:                   parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		SwaggerEnabled:             swaggerEnabled,
		AnubisBaseURL:              getEnv("ANUBIS_BASE_URL", "http://localhost:8081"),
		AnubisIntrospectURL:        getEnv("ANUBIS_INTROSPECT_PATH", "/v1/auth/introspect"),
		AnubisAdminKey:             getEnv("ANUBIS_ADMIN_KEY", ""),
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		UptraceLogsEnabled:         uptraceLogsEnabled,
		BetterStackEnabled:         betterStackEnabled,
		BetterStackEndpoint:        betterStackEndpoint,
		BetterStackToken:           strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackTimeout:         betterStackTimeout,
		BetterStackMinLevel:        parseLogLevel(getEnv("BETTERSTACK_MIN_LEVEL", "error")),
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
		InternalJobToken:           strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	cfg.DBDisablePreparedBinary = dbDisablePreparedBinary

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := getEnvAsPositiveDuration("CACHE_TTL", "60s")
	if err != nil {
		return Config{}, err
	}
	cfg.CacheEnabled = cacheEnabled
	cfg.CacheTTL = cacheTTL

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}
	cfg.ReadTimeout = readTimeout
	cfg.WriteTimeout = writeTimeout

	if cfg.AnubisTimeout, err = getEnvAsPositiveDuration("ANUBIS_TIMEOUT", "3s"); err != nil {
		return Config{}, err
	}
	if cfg.AnubisCircuit, err = loadCircuitBreaker("ANUBIS", resilience.DefaultCircuitBreakerConfig()); err != nil {
		return Config{}, err
	}

	if err := loadProviders(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadCalendar(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadSync(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadScheduler(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadQStash(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadProviders(cfg *Config) error {
	var err error
	if cfg.ProviderTimeout, err = getEnvAsPositiveDuration("PROVIDER_TIMEOUT", "5s"); err != nil {
		return err
	}
	if cfg.ProviderCooldown, err = getEnvAsPositiveDuration("PROVIDER_COOLDOWN", "60s"); err != nil {
		return err
	}
	if cfg.ProviderMaxConcurrency, err = getEnvAsPositiveInt("PROVIDER_MAX_CONCURRENCY", 8); err != nil {
		return err
	}

	cfg.SportMonksEnabled, err = strconv.ParseBool(getEnv("SPORTMONKS_ENABLED", "false"))
	if err != nil {
		return fmt.Errorf("parse SPORTMONKS_ENABLED: %w", err)
	}
	cfg.SportMonksBaseURL = strings.TrimSpace(getEnv("SPORTMONKS_BASE_URL", "https://api.sportmonks.com/v3/football"))
	cfg.SportMonksToken = strings.TrimSpace(getEnv("SPORTMONKS_TOKEN", ""))
	if cfg.SportMonksTimeout, err = getEnvAsPositiveDuration("SPORTMONKS_TIMEOUT", "20s"); err != nil {
		return err
	}
	cfg.SportMonksMaxRetries, err = getEnvAsInt("SPORTMONKS_MAX_RETRIES", 1)
	if err != nil {
		return fmt.Errorf("parse SPORTMONKS_MAX_RETRIES: %w", err)
	}
	if cfg.SportMonksMaxRetries < 0 {
		return fmt.Errorf("SPORTMONKS_MAX_RETRIES must be >= 0")
	}
	if cfg.SportMonksCircuit, err = loadCircuitBreaker("SPORTMONKS", resilience.ProviderCircuitBreakerConfig()); err != nil {
		return err
	}
	cfg.SportMonksLeagueIDs = splitCSV(getEnv("SPORTMONKS_LEAGUE_IDS", "8,564"))
	if cfg.SportMonksPriority, err = getEnvAsInt("SPORTMONKS_PRIORITY", 20); err != nil {
		return fmt.Errorf("parse SPORTMONKS_PRIORITY: %w", err)
	}
	if cfg.SportMonksRPM, err = getEnvAsPositiveInt("SPORTMONKS_REQUESTS_PER_MINUTE", 50); err != nil {
		return err
	}
	if cfg.SportMonksEnabled && cfg.SportMonksToken == "" {
		return fmt.Errorf("SPORTMONKS_TOKEN is required when SPORTMONKS_ENABLED=true")
	}

	cfg.ESPNEnabled, err = strconv.ParseBool(getEnv("ESPN_ENABLED", "true"))
	if err != nil {
		return fmt.Errorf("parse ESPN_ENABLED: %w", err)
	}
	cfg.ESPNBaseURL = strings.TrimSpace(getEnv("ESPN_BASE_URL", "https://site.api.espn.com/apis/site/v2/sports"))
	if cfg.ESPNTimeout, err = getEnvAsPositiveDuration("ESPN_TIMEOUT", "5s"); err != nil {
		return err
	}
	if cfg.ESPNCircuit, err = loadCircuitBreaker("ESPN", resilience.ProviderCircuitBreakerConfig()); err != nil {
		return err
	}
	if cfg.ESPNPriority, err = getEnvAsInt("ESPN_PRIORITY", 10); err != nil {
		return fmt.Errorf("parse ESPN_PRIORITY: %w", err)
	}
	if cfg.ESPNRPM, err = getEnvAsPositiveInt("ESPN_REQUESTS_PER_MINUTE", 30); err != nil {
		return err
	}
	cfg.ESPNSports = make([]sport.Sport, 0)
	for _, raw := range splitCSV(getEnv("ESPN_SPORTS", "football,basketball")) {
		s, ok := sport.Parse(raw)
		if !ok {
			return fmt.Errorf("invalid sport %q in ESPN_SPORTS", raw)
		}
		cfg.ESPNSports = append(cfg.ESPNSports, s)
	}
	return nil
}

func loadCalendar(cfg *Config) error {
	var err error
	cfg.GoogleCalendarClientID = strings.TrimSpace(getEnv("GOOGLE_CALENDAR_CLIENT_ID", ""))
	cfg.GoogleCalendarSecret = strings.TrimSpace(getEnv("GOOGLE_CALENDAR_CLIENT_SECRET", ""))
	cfg.GoogleCalendarTokenURL = strings.TrimSpace(getEnv("GOOGLE_CALENDAR_TOKEN_URL", "https://oauth2.googleapis.com/token"))
	cfg.GoogleCalendarBaseURL = strings.TrimSpace(getEnv("GOOGLE_CALENDAR_BASE_URL", "https://www.googleapis.com/calendar/v3"))
	if cfg.GoogleCalendarTimeout, err = getEnvAsPositiveDuration("GOOGLE_CALENDAR_TIMEOUT", "10s"); err != nil {
		return err
	}
	if cfg.GoogleCalendarCircuit, err = loadCircuitBreaker("GOOGLE_CALENDAR", resilience.DefaultCircuitBreakerConfig()); err != nil {
		return err
	}
	return nil
}

func loadSync(cfg *Config) error {
	var err error
	if cfg.SyncHorizon, err = getEnvAsPositiveDuration("SYNC_HORIZON", "48h"); err != nil {
		return err
	}
	if cfg.SyncKickoffShift, err = getEnvAsPositiveDuration("SYNC_KICKOFF_SHIFT_THRESHOLD", "15m"); err != nil {
		return err
	}
	if cfg.SyncUserMinBudget, err = getEnvAsPositiveDuration("USER_MIN_BUDGET", "30s"); err != nil {
		return err
	}
	if cfg.NotifyBurstThreshold, err = getEnvAsPositiveInt("NOTIFY_BURST_THRESHOLD", 5); err != nil {
		return err
	}
	if cfg.FixtureRetention, err = getEnvAsPositiveDuration("FIXTURE_RETENTION", "720h"); err != nil {
		return err
	}

	limits := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"PLAN_FREE_MAX_TEAMS", 2, &cfg.PlanFreeMaxTeams},
		{"PLAN_FREE_MAX_LEAGUES", 0, &cfg.PlanFreeMaxLeagues},
		{"PLAN_PRO_MAX_TEAMS", 20, &cfg.PlanProMaxTeams},
		{"PLAN_PRO_MAX_LEAGUES", 5, &cfg.PlanProMaxLeagues},
	}
	for _, limit := range limits {
		value, err := getEnvAsInt(limit.key, limit.fallback)
		if err != nil {
			return fmt.Errorf("parse %s: %w", limit.key, err)
		}
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", limit.key)
		}
		*limit.dst = value
	}
	return nil
}

func loadScheduler(cfg *Config) error {
	var err error
	cfg.SchedulerEnabled, err = strconv.ParseBool(getEnv("SCHEDULER_ENABLED", "true"))
	if err != nil {
		return fmt.Errorf("parse SCHEDULER_ENABLED: %w", err)
	}
	cfg.SchedulerNightlyHour, cfg.SchedulerNightlyMinute, err = parseClock(getEnv("SCHEDULER_NIGHTLY_AT", "03:00"))
	if err != nil {
		return fmt.Errorf("parse SCHEDULER_NIGHTLY_AT: %w", err)
	}
	cfg.SchedulerLocation, err = time.LoadLocation(getEnv("SCHEDULER_TIMEZONE", "UTC"))
	if err != nil {
		return fmt.Errorf("parse SCHEDULER_TIMEZONE: %w", err)
	}
	if cfg.SchedulerLiveInterval, err = getEnvAsPositiveDuration("SCHEDULER_LIVE_INTERVAL", "90s"); err != nil {
		return err
	}
	if cfg.SchedulerLiveInterval < 60*time.Second || cfg.SchedulerLiveInterval > 120*time.Second {
		return fmt.Errorf("SCHEDULER_LIVE_INTERVAL must be between 60s and 120s")
	}
	if cfg.SchedulerWorkers, err = getEnvAsPositiveInt("SCHEDULER_WORKERS", 10); err != nil {
		return err
	}
	if cfg.SchedulerPassDeadline, err = getEnvAsPositiveDuration("SCHEDULER_PASS_DEADLINE", "20m"); err != nil {
		return err
	}
	if cfg.SchedulerScheduleWindow, err = getEnvAsPositiveDuration("SCHEDULER_SCHEDULE_WINDOW", "168h"); err != nil {
		return err
	}
	return nil
}

func loadQStash(cfg *Config) error {
	var err error
	cfg.QStashEnabled, err = strconv.ParseBool(getEnv("QSTASH_ENABLED", "false"))
	if err != nil {
		return fmt.Errorf("parse QSTASH_ENABLED: %w", err)
	}
	cfg.QStashRetries, err = getEnvAsInt("QSTASH_RETRIES", 3)
	if err != nil {
		return fmt.Errorf("parse QSTASH_RETRIES: %w", err)
	}
	if cfg.QStashRetries < 0 {
		return fmt.Errorf("QSTASH_RETRIES must be >= 0")
	}
	if cfg.QStashCircuit, err = loadCircuitBreaker("QSTASH", resilience.DefaultCircuitBreakerConfig()); err != nil {
		return err
	}
	cfg.QStashBaseURL = strings.TrimSpace(getEnv("QSTASH_BASE_URL", "https://qstash.upstash.io"))
	cfg.QStashToken = strings.TrimSpace(getEnv("QSTASH_TOKEN", ""))
	cfg.QStashTargetBaseURL = strings.TrimSpace(getEnv("QSTASH_TARGET_BASE_URL", ""))
	if cfg.QStashEnabled {
		if cfg.QStashToken == "" {
			return fmt.Errorf("QSTASH_TOKEN is required when QSTASH_ENABLED=true")
		}
		if cfg.QStashTargetBaseURL == "" {
			return fmt.Errorf("QSTASH_TARGET_BASE_URL is required when QSTASH_ENABLED=true")
		}
		if cfg.InternalJobToken == "" {
			return fmt.Errorf("INTERNAL_JOB_TOKEN is required when QSTASH_ENABLED=true")
		}
	}
	return nil
}

// loadCircuitBreaker reads <PREFIX>_CIRCUIT_{ENABLED,FAILURE_COUNT,OPEN_TIMEOUT,HALF_OPEN_MAX_REQ}.
func loadCircuitBreaker(prefix string, defaults resilience.CircuitBreakerConfig) (resilience.CircuitBreakerConfig, error) {

	enabled, err := strconv.ParseBool(getEnv(prefix+"_CIRCUIT_ENABLED", strconv.FormatBool(defaults.Enabled)))
	if err != nil {
		return resilience.CircuitBreakerConfig{}, fmt.Errorf("parse %s_CIRCUIT_ENABLED: %w", prefix, err)
	}
	failureCount, err := getEnvAsPositiveInt(prefix+"_CIRCUIT_FAILURE_COUNT", defaults.FailureThreshold)
	if err != nil {
		return resilience.CircuitBreakerConfig{}, err
	}
	openTimeout, err := getEnvAsPositiveDuration(prefix+"_CIRCUIT_OPEN_TIMEOUT", defaults.OpenTimeout.String())
	if err != nil {
		return resilience.CircuitBreakerConfig{}, err
	}
	halfOpenMaxReq, err := getEnvAsPositiveInt(prefix+"_CIRCUIT_HALF_OPEN_MAX_REQ", defaults.HalfOpenMaxReq)
	if err != nil {
		return resilience.CircuitBreakerConfig{}, err
	}

	return resilience.CircuitBreakerConfig{
		Enabled:          enabled,
		FailureThreshold: failureCount,
		OpenTimeout:      openTimeout,
		HalfOpenMaxReq:   halfOpenMaxReq,
	}, nil
}

// parseClock accepts HH:MM in 24h form.
func parseClock(raw string) (int, int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", raw)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsPositiveInt(key string, fallback int) (int, error) {
	out, err := getEnvAsInt(key, fallback)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out < 1 {
		return 0, fmt.Errorf("%s must be >= 1", key)
	}
	return out, nil
}

func getEnvAsPositiveDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
