package anubis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/user"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/resilience"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

const (
	breakerName            = "anubis"
	defaultHTTPTimeout     = 3 * time.Second
	defaultCacheTTL        = 30 * time.Second
	defaultCacheMaxEntries = 10000
	maxResponseBytes       = 1 << 20
)

var errAnubisTransient = crerr.New("anubis transient failure")

type ClientConfig struct {
	HTTPClient      *http.Client
	BaseURL         string
	IntrospectPath  string
	AdminKey        string
	CacheTTL        time.Duration
	CacheMaxEntries int
	CircuitBreaker  resilience.CircuitBreakerConfig
	Logger          *logging.Logger
}

// Client verifies bearer tokens against the Anubis introspection endpoint.
// Verified principals are cached per token hash for CacheTTL.
type Client struct {
	httpClient    *http.Client
	introspectURL string
	adminKey      string
	cache         *principalCache
	breaker       *resilience.CircuitBreaker
	logger        *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	maxEntries := cfg.CacheMaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}

	return &Client{
		httpClient:    httpClient,
		introspectURL: buildURL(cfg.BaseURL, cfg.IntrospectPath),
		adminKey:      strings.TrimSpace(cfg.AdminKey),
		cache:         newPrincipalCache(ttl, maxEntries),
		breaker:       resilience.NewCircuitBreaker(breakerName, cfg.CircuitBreaker).LogStateChanges(logger),
		logger:        logger.Named(breakerName),
	}
}

// VerifyAccessToken returns the principal behind token. Inactive or rejected
// tokens yield usecase.ErrUnauthorized; an unreachable or misconfigured
// Anubis yields usecase.ErrDependencyUnavailable.
func (c *Client) VerifyAccessToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}
	return c.cache.Resolve(ctx, token, func(ctx context.Context) (user.Principal, error) {
		return c.verifyRemote(ctx, token)
	})
}

func (c *Client) verifyRemote(ctx context.Context, token string) (user.Principal, error) {
	var principal user.Principal
	err := c.breaker.Execute(func() (err error) {
		principal, err = c.introspect(ctx, token)
		return err
	}, isAnubisTransient)

	switch {
	case err == nil:
		return principal, nil
	case crerr.Is(err, resilience.ErrCircuitOpen):
		c.logger.WarnContext(ctx, "anubis circuit breaker rejected request")
		return user.Principal{}, fmt.Errorf("%w: auth service is temporarily unavailable", usecase.ErrDependencyUnavailable)
	case isAnubisTransient(err):
		return user.Principal{}, fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, err)
	}
	return user.Principal{}, err
}

// buildURL joins base and path; an absolute path wins.
func buildURL(baseURL, path string) string {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return baseURL
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	case !strings.HasPrefix(path, "/"):
		path = "/" + path
	}
	return baseURL + path
}

func (c *Client) newIntrospectRequest(ctx context.Context, token string) (*http.Request, error) {
	encoded, err := sonic.Marshal(introspectRequest{Token: token})
	if err != nil {
		return nil, crerr.Wrap(err, "marshal introspect request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.introspectURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, crerr.Wrap(err, "create introspect request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.adminKey != "" {
		req.Header.Set("x-admin-key", c.adminKey)
	}
	return req, nil
}

func (c *Client) introspect(ctx context.Context, token string) (user.Principal, error) {
	req, err := c.newIntrospectRequest(ctx, token)
	if err != nil {
		return user.Principal{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return user.Principal{}, crerr.Wrap(errAnubisTransient, "request introspection: "+err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return user.Principal{}, crerr.Wrap(errAnubisTransient, "read introspect response: "+err.Error())
	}
	if err := c.checkStatus(ctx, resp.StatusCode); err != nil {
		return user.Principal{}, err
	}

	var decoded introspectResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return user.Principal{}, crerr.Wrap(err, "unmarshal introspect response")
	}
	return decoded.principal()
}

// checkStatus maps the introspection status code to a domain error.
func (c *Client) checkStatus(ctx context.Context, status int) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: introspection denied", usecase.ErrUnauthorized)
	case status == http.StatusForbidden:
		// 403 means our admin key is wrong, not the caller's token.
		c.logger.ErrorContext(ctx, "anubis rejected admin key", "status_code", status)
		return fmt.Errorf("%w: anubis rejected introspection credentials", usecase.ErrDependencyUnavailable)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: anubis status=%d", errAnubisTransient, status)
	}
	c.logger.WarnContext(ctx, "anubis introspection non-200", "status_code", status)
	return fmt.Errorf("anubis introspection failed with status %d", status)
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active bool   `json:"active"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (r introspectResponse) principal() (user.Principal, error) {
	if !r.Active {
		return user.Principal{}, fmt.Errorf("%w: inactive token", usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(r.UserID) == "" {
		return user.Principal{}, crerr.New("invalid introspect response: user_id is empty")
	}
	return user.Principal{UserID: r.UserID, Email: r.Email}, nil
}

func isAnubisTransient(err error) bool {
	return crerr.Is(err, errAnubisTransient)
}
