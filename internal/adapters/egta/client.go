// Package egta is a client for the EGTA Online experiment service. It covers
// the structured JSON API under /api/v3 as well as the legacy HTML pages the
// service still requires for game creation and simulation listings.
package egta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/egta-tools/egta-cli/internal/ports"
)

// Granularity selects how much profile data a game or profile fetch
// returns.
type Granularity string

const (
	GranularityStructure    Granularity = "structure"
	GranularitySummary      Granularity = "summary"
	GranularityObservations Granularity = "observations"
	GranularityFull         Granularity = "full"
)

// ParseGranularity validates a user-supplied granularity name.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case GranularityStructure, GranularitySummary, GranularityObservations, GranularityFull:
		return g, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// RetryPolicy bounds the retry loop applied to every logical request.
// The delay before the n-th retry is Delay * Backoff^(n-1); it is not
// capped and carries no jitter.
type RetryPolicy struct {
	// RetryOn lists the retryable status codes. nil means the default set;
	// an explicitly empty slice retries on connection errors only.
	RetryOn  []int
	MaxTries int
	Delay    time.Duration
	Backoff  float64
}

// DefaultRetryPolicy matches the service's operational reality: gateway
// timeouts are routine and long waits are expected.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		RetryOn:  []int{http.StatusGatewayTimeout},
		MaxTries: 20,
		Delay:    60 * time.Second,
		Backoff:  1.2,
	}
}

// Config carries everything needed to open a session. The zero value of
// every field except Domain gets a sensible default.
type Config struct {
	// Domain is the EGTA Online host, either bare
	// ("egtaonline.eecs.umich.edu", https assumed) or a full URL.
	Domain string
	// AuthToken authenticates the session and is re-sent by the legacy
	// endpoints that require it in the request itself.
	AuthToken  string
	Retry      RetryPolicy
	HTTPClient *http.Client
	Clock      ports.Clock
	Logger     *slog.Logger
}

// Client is an authenticated EGTA Online session. It is safe for concurrent
// use; retry state lives on the stack of each call.
type Client struct {
	baseURL    string
	authToken  string
	retry      RetryPolicy
	httpClient *http.Client
	clock      ports.Clock
	logger     *slog.Logger
}

// Connect builds a client and authenticates it with a single request to the
// site root. The session cookie set by that request carries authentication
// for the client's lifetime.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Domain) == "" {
		return nil, errors.New("egta: domain is required")
	}
	baseURL := normalizeBaseURL(cfg.Domain)

	retry := cfg.Retry
	if retry.MaxTries < 1 {
		retry.MaxTries = 20
	}
	if retry.Delay <= 0 {
		retry.Delay = 60 * time.Second
	}
	if retry.Backoff <= 0 {
		retry.Backoff = 1.2
	}
	if retry.RetryOn == nil {
		retry.RetryOn = []int{http.StatusGatewayTimeout}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	} else {
		clone := *httpClient
		httpClient = &clone
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("egta: create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	clk := cfg.Clock
	if clk == nil {
		clk = ports.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    baseURL,
		authToken:  cfg.AuthToken,
		retry:      retry,
		httpClient: httpClient,
		clock:      clk,
		logger:     logger,
	}

	resp, err := c.do(ctx, http.MethodGet, c.baseURL, map[string]any{"auth_token": cfg.AuthToken})
	if err != nil {
		return nil, fmt.Errorf("authenticate session: %w", err)
	}
	// The response body is a login page either way; only the cookie matters.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return c, nil
}

// Close releases idle connections held by the session.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// BaseURL returns the resolved root URL of the site.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// normalizeBaseURL turns a bare host into an https URL and strips any
// trailing slash. Full URLs pass through so tests and local deployments can
// use plain http.
func normalizeBaseURL(domain string) string {
	baseURL := domain
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	return strings.TrimRight(baseURL, "/")
}

func (c *Client) apiURL(path string) string {
	return c.baseURL + "/api/v3/" + path
}

func (c *Client) siteURL(path string) string {
	return c.baseURL + "/" + path
}

// do executes one logical request, retrying per the configured policy. The
// params are flattened into a form-encoded body for every verb, which is the
// encoding the service expects even on GET. When the attempts are exhausted
// the last response is returned as-is; checking its status is the caller's
// job. A connection error on the final attempt is returned as an error.
func (c *Client) do(ctx context.Context, method, rawURL string, params map[string]any) (*http.Response, error) {
	form, err := encodeForm(params)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	body := form.Encode()

	delay := c.retry.Delay
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
		}
		if body != "" {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		c.logger.Debug("egta request",
			"method", method, "url", rawURL, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err == nil {
			if !c.retryableStatus(resp.StatusCode) {
				c.logger.Debug("egta response",
					"method", method, "url", rawURL, "status", resp.StatusCode)
				return resp, nil
			}
			if attempt == c.retry.MaxTries {
				return resp, nil
			}
			c.logger.Warn("egta request failed, retrying",
				"method", method, "url", rawURL,
				"status", resp.StatusCode, "attempt", attempt, "delay", delay)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		} else {
			if attempt == c.retry.MaxTries {
				return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
			}
			c.logger.Warn("egta request failed, retrying",
				"method", method, "url", rawURL,
				"error", err, "attempt", attempt, "delay", delay)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.clock.After(delay):
		}
		delay = time.Duration(float64(delay) * c.retry.Backoff)
	}
}

func (c *Client) retryableStatus(status int) bool {
	for _, s := range c.retry.RetryOn {
		if s == status {
			return true
		}
	}
	return false
}

// apiDo runs a structured API request and decodes the JSON response into out
// (which may be nil when the body does not matter).
func (c *Client) apiDo(ctx context.Context, method, path string, params map[string]any, out any) error {
	resp, err := c.do(ctx, method, c.apiURL(path), params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
