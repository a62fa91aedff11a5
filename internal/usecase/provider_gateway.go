package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/provider"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/sport"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/ratelimit"
	"github.com/sourcegraph/conc/pool"
)

type ProviderCallKind string

const (
	ProviderCallSchedule ProviderCallKind = "schedule"
	ProviderCallLive     ProviderCallKind = "live"
)

// ProviderRoute registers one adapter in the sport routing table.
type ProviderRoute struct {
	Adapter           provider.Adapter
	Sports            []sport.Sport
	LeagueRefs        map[sport.Sport][]string
	SchedulePriority  int
	LiveCapable       bool
	RequestsPerMinute int
}

type ProviderGatewayConfig struct {
	Timeout         time.Duration
	DefaultCooldown time.Duration
	MaxConcurrency  int
}

// ProviderResult is the outcome of one adapter call. A failed or skipped call
// carries Err instead of aborting the cycle.
type ProviderResult struct {
	Provider         string
	Sport            sport.Sport
	LeagueRef        string
	Kind             ProviderCallKind
	SchedulePriority int
	LiveCapable      bool
	Fixtures         []provider.Fixture
	Skipped          bool
	Err              error
	Duration         time.Duration
}

func (r ProviderResult) OK() bool {
	return r.Err == nil && !r.Skipped
}

// Label identifies the call in logs and job responses.
func (r ProviderResult) Label() string {
	parts := []string{r.Provider, string(r.Sport)}
	if r.LeagueRef != "" {
		parts = append(parts, r.LeagueRef)
	}
	return strings.Join(parts, ":")
}

type routedProvider struct {
	route   ProviderRoute
	name    string
	limiter *ratelimit.Limiter
}

type providerCall struct {
	provider  *routedProvider
	sport     sport.Sport
	leagueRef string
}

// ProviderGateway fans provider calls out concurrently while throttling each
// provider independently.
type ProviderGateway struct {
	providers []*routedProvider
	cfg       ProviderGatewayConfig
	logger    *logging.Logger
	now       func() time.Time
}

func NewProviderGateway(routes []ProviderRoute, cfg ProviderGatewayConfig, logger *logging.Logger) *ProviderGateway {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.DefaultCooldown <= 0 {
		cfg.DefaultCooldown = time.Minute
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}

	providers := make([]*routedProvider, 0, len(routes))
	for _, route := range routes {
		if route.Adapter == nil {
			continue
		}
		providers = append(providers, &routedProvider{
			route:   route,
			name:    route.Adapter.Name(),
			limiter: ratelimit.NewPerMinute(route.RequestsPerMinute),
		})
	}

	return &ProviderGateway{
		providers: providers,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// ProvidersFor lists the providers routed for a sport.
func (g *ProviderGateway) ProvidersFor(s sport.Sport) []string {
	out := make([]string, 0)
	for _, p := range g.providers {
		for _, routed := range p.route.Sports {
			if routed == s {
				out = append(out, p.name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func (g *ProviderGateway) FetchSchedules(ctx context.Context, from, to time.Time) []ProviderResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProviderGateway.FetchSchedules")
	defer span.End()

	calls := make([]providerCall, 0)
	for _, p := range g.providers {
		for _, s := range p.route.Sports {
			refs := p.route.LeagueRefs[s]
			if len(refs) == 0 {
				refs = []string{""}
			}
			for _, ref := range refs {
				calls = append(calls, providerCall{provider: p, sport: s, leagueRef: ref})
			}
		}
	}

	return g.fanOut(ctx, calls, ProviderCallSchedule, func(ctx context.Context, call providerCall) ([]provider.Fixture, error) {
		return call.provider.route.Adapter.FetchSchedule(ctx, call.sport, call.leagueRef, from, to)
	})
}

func (g *ProviderGateway) FetchLive(ctx context.Context) []ProviderResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProviderGateway.FetchLive")
	defer span.End()

	calls := make([]providerCall, 0)
	for _, p := range g.providers {
		if !p.route.LiveCapable {
			continue
		}
		for _, s := range p.route.Sports {
			calls = append(calls, providerCall{provider: p, sport: s})
		}
	}

	return g.fanOut(ctx, calls, ProviderCallLive, func(ctx context.Context, call providerCall) ([]provider.Fixture, error) {
		updates, err := call.provider.route.Adapter.FetchLiveScores(ctx, call.sport)
		if err != nil {
			return nil, err
		}
		items := make([]provider.Fixture, 0, len(updates))
		for _, update := range updates {
			items = append(items, update.AsFixture())
		}
		return items, nil
	})
}

func (g *ProviderGateway) fanOut(
	ctx context.Context,
	calls []providerCall,
	kind ProviderCallKind,
	fetch func(context.Context, providerCall) ([]provider.Fixture, error),
) []ProviderResult {
	if len(calls) == 0 {
		return nil
	}

	p := pool.NewWithResults[ProviderResult]().WithMaxGoroutines(g.cfg.MaxConcurrency)
	for _, call := range calls {
		p.Go(func() ProviderResult {
			return g.invoke(ctx, call, kind, fetch)
		})
	}
	results := p.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Label() < results[j].Label() })
	return results
}

func (g *ProviderGateway) invoke(
	ctx context.Context,
	call providerCall,
	kind ProviderCallKind,
	fetch func(context.Context, providerCall) ([]provider.Fixture, error),
) ProviderResult {
	routed := call.provider
	result := ProviderResult{
		Provider:         routed.name,
		Sport:            call.sport,
		LeagueRef:        call.leagueRef,
		Kind:             kind,
		SchedulePriority: routed.route.SchedulePriority,
		LiveCapable:      routed.route.LiveCapable,
	}

	switch decision := routed.limiter.Allow(); decision {
	case ratelimit.DecisionThrottled, ratelimit.DecisionCooldown:
		result.Skipped = true
		result.Err = fmt.Errorf("%w: provider=%s %s", ErrProviderRateLimited, routed.name, decision)
		g.logger.WarnContext(ctx, "provider skipped for cycle",
			"provider", routed.name,
			"sport", call.sport,
			"kind", kind,
			"decision", decision,
			"cooldown_until", routed.limiter.CooldownUntil(),
		)
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	started := g.now()
	items, err := fetch(callCtx, call)
	result.Duration = g.now().Sub(started)
	if err != nil {
		var limited *RateLimitedError
		if errors.As(err, &limited) {
			wait := limited.RetryAfter
			if wait <= 0 {
				wait = g.cfg.DefaultCooldown
			}
			routed.limiter.Cooldown(wait)
			result.Skipped = true
			result.Err = err
			g.logger.WarnContext(ctx, "provider rate limited, cooling down",
				"provider", routed.name,
				"sport", call.sport,
				"cooldown", wait.String(),
			)
			return result
		}

		result.Err = fmt.Errorf("%w: provider=%s sport=%s: %w", ErrProviderUnavailable, routed.name, call.sport, err)
		g.logger.WarnContext(ctx, "provider call failed",
			"provider", routed.name,
			"sport", call.sport,
			"league_ref", call.leagueRef,
			"kind", kind,
			"duration", result.Duration.String(),
			"error", err,
		)
		return result
	}

	for idx := range items {
		if items[idx].Provider == "" {
			items[idx].Provider = routed.name
		}
		if items[idx].Sport == "" {
			items[idx].Sport = call.sport
		}
		if items[idx].LeagueRef == "" {
			items[idx].LeagueRef = call.leagueRef
		}
	}
	result.Fixtures = items
	return result
}
