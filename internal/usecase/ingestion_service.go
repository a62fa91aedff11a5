package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

type IngestionConfig struct {
	ScheduleLookback time.Duration
	ScheduleWindow   time.Duration
}

// IngestionResult summarizes one provider -> normalizer -> store cycle.
type IngestionResult struct {
	Kind             ProviderCallKind `json:"kind"`
	Skipped          bool             `json:"skipped"`
	ProvidersOK      []string         `json:"providers_ok"`
	ProvidersFailed  []string         `json:"providers_failed"`
	ProvidersSkipped []string         `json:"providers_skipped"`
	FixturesSeen     int              `json:"fixtures_seen"`
	FixturesCreated  int              `json:"fixtures_created"`
	FixturesUpdated  int              `json:"fixtures_updated"`
	Provisional      int              `json:"provisional"`
	Invalid          int              `json:"invalid"`
	StatusRejected   int              `json:"status_rejected"`
	Stale            bool             `json:"stale"`
}

// IngestionService runs the continuous refresh path: provider adapters feed
// the normalizer, whose output is merged into the fixture store.
type IngestionService struct {
	gateway    *ProviderGateway
	normalizer *Normalizer
	store      *FixtureStore
	cfg        IngestionConfig
	logger     *logging.Logger
	now        func() time.Time
}

func NewIngestionService(gateway *ProviderGateway, normalizer *Normalizer, store *FixtureStore, cfg IngestionConfig, logger *logging.Logger) *IngestionService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ScheduleLookback <= 0 {
		cfg.ScheduleLookback = 24 * time.Hour
	}
	if cfg.ScheduleWindow <= 0 {
		cfg.ScheduleWindow = 7 * 24 * time.Hour
	}

	return &IngestionService{
		gateway:    gateway,
		normalizer: normalizer,
		store:      store,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *IngestionService) RefreshSchedules(ctx context.Context) (IngestionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.RefreshSchedules")
	defer span.End()

	now := s.now().UTC()
	results := s.gateway.FetchSchedules(ctx, now.Add(-s.cfg.ScheduleLookback), now.Add(s.cfg.ScheduleWindow))
	return s.apply(ctx, ProviderCallSchedule, results, now)
}

// RefreshLive polls live-capable providers unless every live fixture was
// refreshed within the live interval.
func (s *IngestionService) RefreshLive(ctx context.Context, force bool) (IngestionResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.RefreshLive", attrForce.Bool(force))
	defer span.End()

	now := s.now().UTC()
	if !force {
		due, err := s.store.LiveDueForRefresh(ctx, now)
		if err != nil {
			return IngestionResult{}, err
		}
		if !due {
			return IngestionResult{Kind: ProviderCallLive, Skipped: true}, nil
		}
	}

	results := s.gateway.FetchLive(ctx)
	return s.apply(ctx, ProviderCallLive, results, now)
}

func (s *IngestionService) apply(ctx context.Context, kind ProviderCallKind, results []ProviderResult, now time.Time) (IngestionResult, error) {
	out := IngestionResult{
		Kind:             kind,
		ProvidersOK:      make([]string, 0),
		ProvidersFailed:  make([]string, 0),
		ProvidersSkipped: make([]string, 0),
	}

	for _, result := range results {
		switch {
		case result.Skipped:
			out.ProvidersSkipped = append(out.ProvidersSkipped, result.Label())
			continue
		case result.Err != nil:
			out.ProvidersFailed = append(out.ProvidersFailed, result.Label())
			continue
		}
		out.ProvidersOK = append(out.ProvidersOK, result.Label())

		src := FixtureSource{
			Provider:         result.Provider,
			SchedulePriority: result.SchedulePriority,
			LiveCapable:      result.LiveCapable,
			Origin:           kind,
		}
		for _, raw := range result.Fixtures {
			out.FixturesSeen++

			item, err := s.normalizer.NormalizeFixture(ctx, raw)
			switch {
			case errors.Is(err, ErrNormalizationAmbiguous):
				out.Provisional++
			case err != nil:
				out.Invalid++
				s.logger.WarnContext(ctx, "skip provider fixture",
					"provider", raw.Provider,
					"external_id", raw.ExternalID,
					"error", err,
				)
				continue
			}

			upserted, err := s.store.Upsert(ctx, src, item)
			if err != nil {
				return out, err
			}
			if upserted.StatusRejected {
				out.StatusRejected++
			}
			if upserted.Created {
				out.FixturesCreated++
			} else if upserted.Changed {
				out.FixturesUpdated++
			}
		}
	}

	staleness := s.store.RecordCycle(results, now)
	out.Stale = staleness.Stale
	if out.Stale {
		s.logger.WarnContext(ctx, "every provider failed, serving cached fixtures",
			"kind", kind,
			"last_successful_refresh", staleness.LastSuccessfulRefresh,
		)
	}

	s.logger.InfoContext(ctx, "fixture refresh finished",
		"kind", kind,
		"providers_ok", len(out.ProvidersOK),
		"providers_failed", len(out.ProvidersFailed),
		"providers_skipped", len(out.ProvidersSkipped),
		"created", out.FixturesCreated,
		"updated", out.FixturesUpdated,
		"provisional", out.Provisional,
	)
	return out, nil
}
