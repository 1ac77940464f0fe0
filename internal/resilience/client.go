package resilience

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the endpoint's breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StatusError is returned by Call when the endpoint answers with a non-2xx
// status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ClientConfig holds configuration for a component endpoint client.
type ClientConfig struct {
	// Name identifies the endpoint in the tracker and breaker.
	Name string

	// Timeout bounds each individual HTTP attempt.
	// Default: 5 seconds
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after the first. Zero
	// disables retries.
	MaxRetries uint64

	// InitialInterval is the first retry backoff.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff.
	// Default: 2 seconds
	MaxInterval time.Duration

	// Breaker configures the circuit breaker.
	// Default: DefaultBreakerConfig(Name)
	Breaker *BreakerConfig

	// Tracker records call outcomes. Optional.
	Tracker *Tracker

	// Transport overrides the HTTP transport. Optional.
	Transport http.RoundTripper
}

// DefaultClientConfig returns the settings used for component endpoints.
func DefaultClientConfig(name string) ClientConfig {
	breaker := DefaultBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Breaker:         &breaker,
	}
}

// Client calls a component's HTTP control endpoints through a circuit breaker
// with exponential-backoff retries.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	tracker    *Tracker
	cfg        ClientConfig
}

// NewClient creates a component endpoint client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	breakerCfg := DefaultBreakerConfig(cfg.Name)
	if cfg.Breaker != nil {
		breakerCfg = *cfg.Breaker
	}

	c := &Client{
		name: cfg.Name,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		breaker: NewBreaker[*http.Response](breakerCfg), //nolint:bodyclose // type param, not response
		tracker: cfg.Tracker,
		cfg:     cfg,
	}

	if c.tracker != nil {
		c.tracker.Register(cfg.Name, c.breaker)
	}

	return c
}

// Name returns the endpoint name.
func (c *Client) Name() string {
	return c.name
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Do sends req through the breaker, retrying network errors and retryable
// statuses. The caller owns the returned body.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()
		body = b
	}

	var resp *http.Response
	operation := func() error {
		r, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			attempt := req.Clone(ctx)
			if body != nil {
				attempt.Body = io.NopCloser(bytes.NewReader(body))
				attempt.ContentLength = int64(len(body))
			}

			r, err := c.httpClient.Do(attempt)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				drain(r)
				return nil, &StatusError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			return err
		}

		if r.StatusCode == http.StatusTooManyRequests {
			drain(r)
			return &StatusError{StatusCode: r.StatusCode}
		}

		resp = r
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		c.record(err)
		return nil, err
	}

	c.record(nil)
	return resp, nil
}

// Call sends a JSON request and discards the response body. Any non-2xx
// response is returned as a *StatusError.
func (c *Client) Call(ctx context.Context, method, url string, payload any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", c.name, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) record(err error) {
	if c.tracker == nil {
		return
	}
	if err != nil {
		c.tracker.RecordFailure(c.name, err)
		return
	}
	c.tracker.RecordSuccess(c.name)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
