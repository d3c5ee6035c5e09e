package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/ratelimit"
)

const (
	defaultRPS     = 5.0
	defaultBurst   = 5
	defaultTimeout = 30 * time.Second
	defaultBaseURL = "https://zillow56.p.rapidapi.com"
)

// Config carries connection settings for the listing provider.
type Config struct {
	APIKey     string
	BaseURL    string
	HostHeader string
	Timeout    time.Duration
	RPS        float64
	Burst      int
}

// Client is a rate-limited listing provider client. All requests in the
// process share one limiter so concurrent syncs cannot exceed the quota.
type Client struct {
	http    *http.Client
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	apiKey  string
	baseURL *url.URL
	host    string
}

// New creates a listing client. Zero-value Config fields fall back to
// provider defaults.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RPS <= 0 {
		cfg.RPS = defaultRPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	host := cfg.HostHeader
	if host == "" {
		host = base.Host
	}

	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: ratelimit.New(cfg.RPS, cfg.Burst),
		logger:  logger,
		apiKey:  cfg.APIKey,
		baseURL: base,
		host:    host,
	}, nil
}

// doRequest executes a rate-limited GET against the provider.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := *c.baseURL
	u.Path = path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)

	c.logger.Debug("listing request", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrAuth
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		c.logger.Warn("listing upstream error",
			"path", path,
			"status", resp.StatusCode,
			"body", truncate(string(body), 512),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
}

// IsRetryable reports whether the error is transient enough to retry the
// same request once.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrRateLimited)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
