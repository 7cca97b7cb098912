package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

const (
	authPath = "/auth/v1"
	restPath = "/rest/v1"

	headerAPIKey     = "apikey"
	headerClientInfo = "X-Client-Info"
	headerPrefer     = "Prefer"

	mediaJSON   = "application/json"
	mediaObject = "application/vnd.pgrst.object+json"

	defaultTimeout       = 30 * time.Second
	defaultRetryInterval = 200 * time.Millisecond
	refreshLeeway        = 10 * time.Second
)

// SessionStore persists the auth session between process runs.
type SessionStore interface {
	// LoadSession returns (nil, nil) when nothing is stored.
	LoadSession(ctx context.Context) (*backend.Session, error)
	SaveSession(ctx context.Context, s *backend.Session) error
	ClearSession(ctx context.Context) error
}

// Config configures a Client. URL and AnonKey are required.
type Config struct {
	URL        string
	AnonKey    string
	ClientInfo string

	// Timeout bounds each HTTP exchange; zero means 30s.
	Timeout time.Duration
	// MaxRetries is the number of attempts for idempotent reads; values
	// below 2 disable retrying.
	MaxRetries    uint
	RetryInterval time.Duration

	HTTPClient *http.Client
	Store      SessionStore
	Logger     logging.Logger
}

// Client talks to the hosted backend over HTTP.
type Client struct {
	base          *url.URL
	anonKey       string
	clientInfo    string
	http          *http.Client
	store         SessionStore
	log           logging.Logger
	maxRetries    uint
	retryInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	session   *backend.Session
	loaded    bool
	listeners map[uint64]backend.AuthListener
	nextID    uint64
}

var _ backend.Backend = (*Client)(nil)

var (
	ErrMissingURL = errors.New("backend url is required")
	ErrMissingKey = errors.New("backend anon key is required")
)

// New validates cfg and builds a Client. The default HTTP client is
// instrumented with OpenTelemetry.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	if cfg.AnonKey == "" {
		return nil, ErrMissingKey
	}

	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("parse backend url: unsupported scheme %q", base.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}

	return &Client{
		base:          base,
		anonKey:       cfg.AnonKey,
		clientInfo:    cfg.ClientInfo,
		http:          httpClient,
		store:         cfg.Store,
		log:           log.With("component", "rest"),
		maxRetries:    cfg.MaxRetries,
		retryInterval: interval,
		now:           time.Now,
		listeners:     make(map[uint64]backend.AuthListener),
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

// newRequest builds a request carrying the API key. bearer defaults to the
// anon key when empty.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any, bearer string) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set(headerAPIKey, c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", mediaJSON)
	if body != nil {
		req.Header.Set("Content-Type", mediaJSON)
	}
	if c.clientInfo != "" {
		req.Header.Set(headerClientInfo, c.clientInfo)
	}
	return req, nil
}

// do executes req and decodes a successful body into out (when not nil).
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapError(req.Context(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.mapError(req.Context(), err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// mapError classifies transport failures. Caller cancellation is passed
// through untouched so timeouts stay distinguishable.
func (c *Client) mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %w", backend.ErrUnavailable, err)
}

// retry runs op, retrying with exponential backoff while it fails with
// backend.ErrUnavailable.
func (c *Client) retry(ctx context.Context, op func() error) error {
	if c.maxRetries < 2 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err != nil && !errors.Is(err, backend.ErrUnavailable) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxRetries))
	return err
}
