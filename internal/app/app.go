package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/fixture-calendar-sync/external/anubis"
	"github.com/riskibarqy/fixture-calendar-sync/external/espn"
	"github.com/riskibarqy/fixture-calendar-sync/external/googlecalendar"
	"github.com/riskibarqy/fixture-calendar-sync/external/jobqueue"
	"github.com/riskibarqy/fixture-calendar-sync/external/sportmonks"
	"github.com/riskibarqy/fixture-calendar-sync/internal/config"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/calendar"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/favorite"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/jobscheduler"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/league"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/notification"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/plan"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/team"
	"github.com/riskibarqy/fixture-calendar-sync/internal/infrastructure/lock/redislock"
	"github.com/riskibarqy/fixture-calendar-sync/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/fixture-calendar-sync/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fixture-calendar-sync/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/fixture-calendar-sync/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/fixture-calendar-sync/internal/platform/cache"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/id"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

// App owns the HTTP server, the in-process pass runner and every resource
// that needs closing on shutdown.
type App struct {
	Server    *http.Server
	Scheduler *usecase.SchedulerService
	Runner    *Runner

	closers []func() error
	logger  *logging.Logger
}

type repositories struct {
	teams         team.Repository
	leagues       league.Repository
	fixtures      fixture.Repository
	favorites     favorite.Repository
	plans         plan.Repository
	connections   calendar.ConnectionRepository
	records       calendar.SyncRecordRepository
	notifications notification.Repository
	runs          jobscheduler.Repository
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{logger: logger.Named("app")}

	repos, err := a.buildRepositories(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	locker, err := a.buildLocker(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	catalog := plan.Catalog{
		plan.TierFree: {Tier: plan.TierFree, MaxFavoriteTeams: cfg.PlanFreeMaxTeams, MaxFavoriteLeagues: cfg.PlanFreeMaxLeagues},
		plan.TierPro:  {Tier: plan.TierPro, MaxFavoriteTeams: cfg.PlanProMaxTeams, MaxFavoriteLeagues: cfg.PlanProMaxLeagues},
	}

	store := usecase.NewFixtureStore(repos.fixtures, usecase.FixtureStoreConfig{
		LiveRefreshInterval: cfg.SchedulerLiveInterval,
		Retention:           cfg.FixtureRetention,
	}, logger.Named("fixture_store"))
	normalizer := usecase.NewNormalizer(repos.teams, repos.leagues, memory.SeedNicknames(), logger.Named("normalizer"))
	gateway := usecase.NewProviderGateway(providerRoutes(cfg, logger), usecase.ProviderGatewayConfig{
		Timeout:         cfg.ProviderTimeout,
		DefaultCooldown: cfg.ProviderCooldown,
		MaxConcurrency:  cfg.ProviderMaxConcurrency,
	}, logger.Named("provider_gateway"))
	ingestion := usecase.NewIngestionService(gateway, normalizer, store, usecase.IngestionConfig{
		ScheduleWindow: cfg.SchedulerScheduleWindow,
	}, logger.Named("ingestion"))

	notifier := usecase.NewNotificationEmitter(repos.notifications, id.NewUUIDGenerator("ntf"), cfg.NotifyBurstThreshold, logger.Named("notifications"))
	refresher := googlecalendar.NewTokenRefresher(googlecalendar.TokenRefresherConfig{
		ClientID:     cfg.GoogleCalendarClientID,
		ClientSecret: cfg.GoogleCalendarSecret,
		TokenURL:     cfg.GoogleCalendarTokenURL,
		Timeout:      cfg.GoogleCalendarTimeout,
		Logger:       logger,
	})
	calendarAuth := usecase.NewCalendarAuthService(repos.connections, refresher, notifier, logger.Named("calendar_auth"))
	calendarGateway := googlecalendar.NewClient(googlecalendar.ClientConfig{
		BaseURL:        cfg.GoogleCalendarBaseURL,
		Timeout:        cfg.GoogleCalendarTimeout,
		Logger:         logger,
		CircuitBreaker: cfg.GoogleCalendarCircuit,
	})

	quota := usecase.NewQuotaEnforcer(repos.favorites, repos.plans, catalog, repos.teams, repos.leagues, locker, logger.Named("quota"))
	favorites := usecase.NewFavoriteService(quota, repos.favorites, repos.plans, catalog, locker)
	matcher := usecase.NewFavoriteMatcher(store, repos.favorites, repos.plans, catalog, cfg.SyncHorizon)
	orchestrator := usecase.NewSyncOrchestrator(matcher, store, repos.records, calendarGateway, calendarAuth, notifier, usecase.SyncOrchestratorConfig{
		KickoffShiftThreshold: cfg.SyncKickoffShift,
		UserMinBudget:         cfg.SyncUserMinBudget,
	}, logger.Named("sync"))

	queue, err := buildJobQueue(cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build job queue: %w", err)
	}
	a.Scheduler = usecase.NewSchedulerService(
		ingestion,
		store,
		orchestrator,
		repos.connections,
		locker,
		repos.runs,
		id.NewUUIDGenerator("pass"),
		queue,
		usecase.SchedulerConfig{
			NightlyHour:   cfg.SchedulerNightlyHour,
			NightlyMinute: cfg.SchedulerNightlyMinute,
			Location:      cfg.SchedulerLocation,
			LiveInterval:  cfg.SchedulerLiveInterval,
			Workers:       cfg.SchedulerWorkers,
			PassDeadline:  cfg.SchedulerPassDeadline,
			ChainJobs:     cfg.QStashEnabled,
		},
		logger.Named("scheduler"),
	)
	if cfg.SchedulerEnabled {
		a.Runner = NewRunner(a.Scheduler, logger)
	}

	verifier := anubis.NewClient(anubis.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.AnubisTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		BaseURL:        cfg.AnubisBaseURL,
		IntrospectPath: cfg.AnubisIntrospectURL,
		AdminKey:       cfg.AnubisAdminKey,
		CacheTTL:       cfg.CacheTTL,
		CircuitBreaker: cfg.AnubisCircuit,
		Logger:         logger,
	})

	handler := httpapi.NewHandler(favorites, store, notifier, calendarAuth, a.Scheduler, logger)
	router := httpapi.NewRouter(handler, verifier, logger, httpapi.RouterOptions{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
	})

	a.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if a.Server.Addr == "" {
		a.Close()
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return a, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) buildRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	var repos repositories
	if cfg.DBURL == "" {
		a.logger.InfoContext(ctx, "DB_URL is empty, using in-memory repositories")
		repos = repositories{
			teams:         memory.NewTeamRepository(memory.SeedTeams()),
			leagues:       memory.NewLeagueRepository(memory.SeedLeagues()),
			fixtures:      memory.NewFixtureRepository(nil),
			favorites:     memory.NewFavoriteRepository(),
			plans:         memory.NewPlanRepository(nil),
			connections:   memory.NewCalendarConnectionRepository(),
			records:       memory.NewSyncRecordRepository(),
			notifications: memory.NewNotificationRepository(),
			runs:          memory.NewPassRunRepository(),
		}
	} else {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return repositories{}, err
		}
		a.closers = append(a.closers, db.Close)
		if err := postgres.BootstrapSeed(ctx, db); err != nil {
			return repositories{}, fmt.Errorf("bootstrap seed data: %w", err)
		}
		repos = postgresRepositories(db)
	}

	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		repos.teams = cache.NewTeamRepository(repos.teams, store)
		repos.leagues = cache.NewLeagueRepository(repos.leagues, store)
		repos.fixtures = cache.NewFixtureRepository(repos.fixtures, store)
	}
	return repos, nil
}

func postgresRepositories(db *sqlx.DB) repositories {
	return repositories{
		teams:         postgres.NewTeamRepository(db),
		leagues:       postgres.NewLeagueRepository(db),
		fixtures:      postgres.NewFixtureRepository(db),
		favorites:     postgres.NewFavoriteRepository(db),
		plans:         postgres.NewPlanRepository(db),
		connections:   postgres.NewCalendarConnectionRepository(db),
		records:       postgres.NewSyncRecordRepository(db),
		notifications: postgres.NewNotificationRepository(db),
		runs:          postgres.NewPassRunRepository(db),
	}
}

func (a *App) buildLocker(ctx context.Context, cfg config.Config, logger *logging.Logger) (usecase.UserLocker, error) {
	if cfg.RedisURL == "" {
		return &resilience.KeyedMutex{}, nil
	}
	locker, client, err := redislock.NewFromURL(ctx, cfg.RedisURL, redislock.Config{}, logger)
	if err != nil {
		return nil, fmt.Errorf("build redis locker: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	return locker, nil
}

func providerRoutes(cfg config.Config, logger *logging.Logger) []usecase.ProviderRoute {
	routes := make([]usecase.ProviderRoute, 0, 2)
	if cfg.SportMonksEnabled {
		routes = append(routes, usecase.ProviderRoute{
			Adapter: sportmonks.NewClient(sportmonks.ClientConfig{
				HTTPClient: &http.Client{
					Timeout:   cfg.SportMonksTimeout,
					Transport: otelhttp.NewTransport(http.DefaultTransport),
				},
				BaseURL:        cfg.SportMonksBaseURL,
				Token:          cfg.SportMonksToken,
				Timeout:        cfg.SportMonksTimeout,
				MaxRetries:     cfg.SportMonksMaxRetries,
				Logger:         logger,
				CircuitBreaker: cfg.SportMonksCircuit,
			}),
			Sports:            []sport.Sport{sport.Football},
			LeagueRefs:        map[sport.Sport][]string{sport.Football: cfg.SportMonksLeagueIDs},
			SchedulePriority:  cfg.SportMonksPriority,
			LiveCapable:       true,
			RequestsPerMinute: cfg.SportMonksRPM,
		})
		logger.Info("provider enabled", "provider", "sportmonks", "leagues", cfg.SportMonksLeagueIDs, "circuit", cfg.SportMonksCircuit.String())
	}
	if cfg.ESPNEnabled {
		routes = append(routes, usecase.ProviderRoute{
			Adapter: espn.NewClient(espn.ClientConfig{
				BaseURL:        cfg.ESPNBaseURL,
				Timeout:        cfg.ESPNTimeout,
				Logger:         logger,
				CircuitBreaker: cfg.ESPNCircuit,
			}),
			Sports:            cfg.ESPNSports,
			SchedulePriority:  cfg.ESPNPriority,
			LiveCapable:       true,
			RequestsPerMinute: cfg.ESPNRPM,
		})
		logger.Info("provider enabled", "provider", "espn", "sports", cfg.ESPNSports, "circuit", cfg.ESPNCircuit.String())
	}
	return routes
}

func buildJobQueue(cfg config.Config, logger *logging.Logger) (usecase.JobQueue, error) {
	if !cfg.QStashEnabled {
		return usecase.NewNoopJobQueue(), nil
	}
	publisher, err := jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
		BaseURL:          cfg.QStashBaseURL,
		Token:            cfg.QStashToken,
		TargetBaseURL:    cfg.QStashTargetBaseURL,
		Retries:          cfg.QStashRetries,
		InternalJobToken: cfg.InternalJobToken,
		CircuitBreaker:   cfg.QStashCircuit,
	}, logger)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}
