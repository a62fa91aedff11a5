// Package jobqueue chains scheduler passes through Upstash QStash: each pass
// publishes its successor, and QStash calls the internal job route back at
// the requested time.
package jobqueue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

// Jobs due sooner than this are published without a schedule header.
const minScheduleLead = time.Second

var errQStashTransient = crerr.New("qstash transient failure")

// QStashPublisherConfig points the publisher at QStash and at this service's
// public base URL, which QStash calls back on the internal job routes.
type QStashPublisherConfig struct {
	HTTPClient       *http.Client
	BaseURL          string
	Token            string
	TargetBaseURL    string
	Retries          int
	InternalJobToken string
	Timeout          time.Duration
	CircuitBreaker   resilience.CircuitBreakerConfig
}

type QStashPublisher struct {
	client           *http.Client
	publishBase      string
	targetBase       string
	token            string
	retries          int
	internalJobToken string
	breaker          *resilience.CircuitBreaker
	logger           *logging.Logger
	now              func() time.Time
}

var _ usecase.JobQueue = (*QStashPublisher)(nil)

// passJobPayload is decoded by the internal job handlers.
type passJobPayload struct {
	PassKind   string `json:"pass_kind"`
	PreviousID string `json:"previous_id,omitempty"`
	DispatchID string `json:"dispatch_id,omitempty"`
}

// NewQStashPublisher validates both base URLs up front so a misconfigured
// deployment fails at startup rather than on the first chained pass.
func NewQStashPublisher(cfg QStashPublisherConfig, logger *logging.Logger) (*QStashPublisher, error) {
	publishBase, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid QSTASH_BASE_URL")
	}
	targetBase, err := parseBaseURL(cfg.TargetBaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid QSTASH_TARGET_BASE_URL")
	}

	if logger == nil {
		logger = logging.Default()
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	return &QStashPublisher{
		client:           client,
		publishBase:      publishBase,
		targetBase:       targetBase,
		token:            strings.TrimSpace(cfg.Token),
		retries:          cfg.Retries,
		internalJobToken: strings.TrimSpace(cfg.InternalJobToken),
		breaker:          resilience.NewCircuitBreaker("qstash", cfg.CircuitBreaker).LogStateChanges(logger),
		logger:           logger.Named("qstash"),
		now:              time.Now,
	}, nil
}

func (p *QStashPublisher) Enqueue(ctx context.Context, job usecase.PassJob) error {
	path := "/" + strings.TrimLeft(strings.TrimSpace(job.Path), "/")
	if path == "/" {
		return crerr.New("job path is required")
	}
	targetURL := p.targetBase + path

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("qstash.target_url", targetURL),
			attribute.String("qstash.pass_kind", string(job.Kind)),
			attribute.String("qstash.dispatch_id", job.DispatchID),
		)
	}

	err := p.breaker.Execute(func() error {
		return p.publish(ctx, targetURL, job)
	}, func(err error) bool {
		return crerr.Is(err, errQStashTransient)
	})
	switch {
	case crerr.Is(err, resilience.ErrCircuitOpen):
		p.logger.WarnContext(ctx, "qstash circuit breaker rejected request", "dispatch_id", job.DispatchID)
		return fmt.Errorf("%w: qstash is temporarily unavailable", usecase.ErrDependencyUnavailable)
	case err != nil:
		return err
	}

	p.logger.InfoContext(ctx, "pass job published",
		"kind", job.Kind,
		"path", path,
		"run_at", job.RunAt.UTC().Format(time.RFC3339),
		"dispatch_id", job.DispatchID,
	)
	return nil
}

func (p *QStashPublisher) publish(ctx context.Context, targetURL string, job usecase.PassJob) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	payload := passJobPayload{
		PassKind:   string(job.Kind),
		PreviousID: job.PreviousID,
		DispatchID: job.DispatchID,
	}
	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		return crerr.Wrap(err, "encode pass job payload")
	}

	endpoint := p.publishBase + "/v2/publish/" + targetURL
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf.B))
	if err != nil {
		return crerr.Wrap(err, "create qstash request")
	}
	req.Header = p.publishHeaders(job)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: publish to %s: %v", errQStashTransient, targetURL, err)
	}
	defer resp.Body.Close()
	return publishOutcome(resp, targetURL)
}

// publishOutcome drains a 2xx response and turns anything else into an
// error. Timeouts, throttling and 5xx are transient.
func publishOutcome(resp *http.Response, targetURL string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := fmt.Sprintf("status=%d target=%s body=%s", resp.StatusCode, targetURL, bytes.TrimSpace(raw))
	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", errQStashTransient, detail)
	}
	return fmt.Errorf("qstash rejected job: %s", detail)
}

func (p *QStashPublisher) publishHeaders(job usecase.PassJob) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Upstash-Method", http.MethodPost)
	if p.token != "" {
		h.Set("Authorization", "Bearer "+p.token)
	}
	if p.retries > 0 {
		h.Set("Upstash-Retries", strconv.Itoa(p.retries))
	}
	// Absolute time, so publish latency does not push the run later.
	if notBefore, ok := scheduleAt(job.RunAt, p.now()); ok {
		h.Set("Upstash-Not-Before", strconv.FormatInt(notBefore, 10))
	}
	if id := strings.TrimSpace(job.DispatchID); id != "" {
		h.Set("Upstash-Deduplication-Id", id)
	}
	if p.internalJobToken != "" {
		h.Set("Upstash-Forward-X-Internal-Job-Token", p.internalJobToken)
	}
	return h
}

// scheduleAt returns runAt as unix seconds, rounded up, when it is far enough
// ahead of now to be worth scheduling.
func scheduleAt(runAt, now time.Time) (int64, bool) {
	if runAt.IsZero() || runAt.Sub(now) < minScheduleLead {
		return 0, false
	}
	return runAt.Add(time.Second - 1).Unix(), true
}

// parseBaseURL accepts an absolute http(s) URL and returns it without a
// trailing slash.
func parseBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", crerr.New("value is empty")
	}
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return "", crerr.Wrapf(err, "parse %q", raw)
	case u.Scheme != "http" && u.Scheme != "https":
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", raw, u.Scheme)
	case u.Host == "":
		return "", crerr.Newf("%q has empty host", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}
