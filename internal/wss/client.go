// Package wss implements the client side of the Web Security Service
// sync log-download protocol: one authenticated GET per cycle, a zip body
// with a small appended trailer, and a resumption token threaded through
// every request.
package wss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ma-dusty/wssApiToSyslogRelay/internal/logging"
	"github.com/ma-dusty/wssApiToSyslogRelay/pkg/timeutil"
)

const (
	// DefaultEndpoint is the production sync endpoint.
	DefaultEndpoint = "https://portal.threatpulse.com/reportpod/logs/sync"

	// DefaultTimeout bounds a single download. Archives can run to
	// gigabytes, so this is deliberately long; exceeding it is a network
	// failure, not a protocol error.
	DefaultTimeout = 30 * time.Minute

	headerUsername = "X-APIUsername"
	headerPassword = "X-APIPassword"
)

// Client issues sync requests. It holds no cursor state; callers pass the
// start, end and token explicitly each cycle.
type Client struct {
	httpClient *http.Client
	endpoint   string
	log        logging.Logger

	credMu   sync.RWMutex
	username string
	password string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the download timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a sync client for the given endpoint and credentials.
func NewClient(endpoint, username, password string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid sync endpoint %q: %w", endpoint, err)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		endpoint:   endpoint,
		username:   username,
		password:   password,
		log:        logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetCredentials swaps the API credentials. Used by the config watcher so an
// operator can fix a 401/403 without restarting the retry loop.
func (c *Client) SetCredentials(username, password string) {
	c.credMu.Lock()
	c.username = username
	c.password = password
	c.credMu.Unlock()
}

func (c *Client) credentials() (string, string) {
	c.credMu.RLock()
	defer c.credMu.RUnlock()
	return c.username, c.password
}

// Fetch performs one sync request. The start time is floored to the hour
// here, immediately before it goes on the wire; callers never pre-align it.
// Transport failures come back wrapped as ErrNetwork and are never retried
// internally.
func (c *Client) Fetch(ctx context.Context, startMS, endMS int64, token string) (*Response, error) {
	start := timeutil.FloorToHourMS(startMS)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building sync request: %w", err)
	}

	q := url.Values{}
	q.Set("startDate", strconv.FormatInt(start, 10))
	q.Set("endDate", strconv.FormatInt(endMS, 10))
	q.Set("token", token)
	req.URL.RawQuery = q.Encode()

	username, password := c.credentials()
	req.Header.Set(headerUsername, username)
	req.Header.Set(headerPassword, password)

	c.log.Debug("sync request startDate=%d endDate=%d token=%s", start, endMS, abbreviateToken(token))

	began := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
	}

	c.log.Debug("sync response status=%d bytes=%s elapsed=%s",
		resp.StatusCode, timeutil.FormatBytes(int64(len(body))), time.Since(began).Round(time.Millisecond))

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// Response is one captured sync response. Immutable after capture; a fresh
// one is obtained every cycle, never retried in place.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RetryAfter returns the server-requested backoff on a 429 response.
func (r *Response) RetryAfter() (time.Duration, bool) {
	v := strings.TrimSpace(r.Header.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// abbreviateToken keeps debug logs readable; tokens run to 68 characters.
func abbreviateToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
