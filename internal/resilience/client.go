package resilience

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without contacting the upstream while its circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StatusError is a 5xx answer from the upstream.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "upstream returned " + http.StatusText(e.StatusCode)
}

// ClientConfig holds configuration for a Client.
type ClientConfig struct {
	// Name identifies the upstream in logs, breaker state and health output.
	Name string

	// Timeout bounds a single attempt, body included (default: 60s).
	Timeout time.Duration

	// MaxRetries after the first attempt (default: 3).
	MaxRetries uint64

	// InitialInterval is the first backoff wait (default: 500ms).
	InitialInterval time.Duration

	// MaxInterval caps the backoff wait (default: 10s).
	MaxInterval time.Duration

	// Breaker configures the circuit breaker. Nil means DefaultBreakerConfig.
	Breaker *BreakerConfig

	Logger zerolog.Logger
}

// Client performs HTTP requests through a circuit breaker, retrying network
// errors and 5xx answers with exponential backoff. 4xx answers are returned
// to the caller as-is.
type Client struct {
	name    string
	cfg     ClientConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  zerolog.Logger

	mu            sync.Mutex
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewClient creates a new resilient client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 10 * time.Second
	}

	breakerCfg := DefaultBreakerConfig()
	if cfg.Breaker != nil {
		breakerCfg = *cfg.Breaker
	}

	return &Client{
		name:    cfg.Name,
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: newBreaker(cfg.Name, breakerCfg), //nolint:bodyclose // type param, not a response
		logger:  cfg.Logger,
	}
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// Do executes req. The returned response body must be closed by the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var resp *http.Response
	attempt := func() error {
		r, err := c.breaker.Execute(func() (*http.Response, error) {
			r, err := c.http.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				_, _ = io.Copy(io.Discard, r.Body)
				r.Body.Close()
				return nil, &StatusError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("upstream", c.name).
			Dur("retry_in", wait).
			Msg("upstream request failed, retrying")
	}

	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		c.recordFailure(err)
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.recordFailure(errors.New(resp.Status))
	} else {
		c.recordSuccess()
	}
	return resp, nil
}

func (c *Client) recordSuccess() {
	now := time.Now()
	c.mu.Lock()
	c.lastSuccessAt = &now
	c.mu.Unlock()
}

func (c *Client) recordFailure(err error) {
	now := time.Now()
	c.mu.Lock()
	c.lastFailureAt = &now
	c.lastError = err.Error()
	c.mu.Unlock()
}

// Health describes an upstream's breaker state and recent outcomes.
type Health struct {
	Name          string
	State         gobreaker.State
	Requests      uint32
	Failures      uint32
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Healthy reports whether the circuit is closed.
func (h Health) Healthy() bool {
	return h.State == gobreaker.StateClosed
}

// Health returns a snapshot of the client's upstream health.
func (c *Client) Health() Health {
	counts := c.breaker.Counts()

	c.mu.Lock()
	defer c.mu.Unlock()

	return Health{
		Name:          c.name,
		State:         c.breaker.State(),
		Requests:      counts.Requests,
		Failures:      counts.TotalFailures,
		LastSuccessAt: c.lastSuccessAt,
		LastFailureAt: c.lastFailureAt,
		LastError:     c.lastError,
	}
}
