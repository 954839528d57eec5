// Package apicloud is the HTTP client for the api-cloud.ru legal-data APIs.
//
// Every call goes through the same path: call budget and quota guard gate,
// token-bucket throttle, GET with a per-call timeout, Classify, balance
// check, typed decode. Retryable failures may be retried in-call with
// exponential backoff; permanent failures and a tripped guard stop at once.
package apicloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/utof/debtds/internal/collect/metrics"
	"github.com/utof/debtds/internal/core/quota"
)

// Endpoints of the api-cloud service.
const (
	EndpointCourts  = "kad_arbitr.php"
	EndpointBankrot = "bankrot.php"
	EndpointFSSP    = "fssp.php"
)

// DefaultBaseURL is the api-cloud API root.
const DefaultBaseURL = "https://api-cloud.ru/api"

// Config holds client settings.
type Config struct {
	BaseURL           string        `yaml:"base_url"`
	Token             string        `yaml:"token"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
}

// Client talks to api-cloud.
type Client struct {
	http           *resty.Client
	token          string
	guard          *quota.Guard
	tracker        *quota.Tracker
	maxAttempts    int
	initialBackoff time.Duration
}

// NewClient creates a client. A nil tracker means no call budget.
func NewClient(cfg Config, guard *quota.Guard, tracker *quota.Tracker) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	if guard == nil {
		guard = quota.NewGuard(quota.DefaultThreshold)
	}
	if tracker == nil {
		tracker = quota.NewTracker(0)
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(cfg.BaseURL)
	httpClient.SetTimeout(cfg.Timeout)
	httpClient.SetHeader("Accept", "application/json")

	if cfg.RequestsPerSecond > 0 {
		burst := max(cfg.Burst, 1)
		rateLimiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	return &Client{
		http:           httpClient,
		token:          cfg.Token,
		guard:          guard,
		tracker:        tracker,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
	}
}

// Guard returns the quota guard shared by all calls.
func (c *Client) Guard() *quota.Guard {
	return c.guard
}

// Tracker returns the call tracker.
func (c *Client) Tracker() *quota.Tracker {
	return c.tracker
}

// get performs one logical call and decodes the body into out. On a
// permanent failure out is still filled from the body and the
// *PermanentError is returned so callers can cache the negative result.
func (c *Client) get(ctx context.Context, endpoint string, q params, out any) error {
	method := q.get("type")
	// Passed in the URL rather than through resty's query map, which sorts
	// keys and would break participant/participantType pairing.
	query := append(params{{"token", c.token}}, q...).encode()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff

	op := func() (struct{}, error) {
		if err := c.guard.Allow(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if err := c.tracker.Allow(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		c.tracker.RecordCall(method)

		start := time.Now()
		resp, err := c.http.R().
			SetContext(ctx).
			Get(endpoint + "?" + query)
		metrics.APILatency.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())

		var (
			statusCode int
			body       []byte
		)
		if resp != nil {
			statusCode = resp.StatusCode()
			body = resp.Body()
		}

		env, outcome, cerr := Classify(endpoint, statusCode, body, err)
		metrics.APICallsTotal.WithLabelValues(endpoint, method, outcome.String()).Inc()
		slog.Debug("API call", "endpoint", endpoint, "type", method, "http_status", statusCode,
			"outcome", outcome.String(), "duration", time.Since(start))

		switch outcome {
		case OutcomeRetryable:
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(cerr)
			}
			return struct{}{}, cerr
		case OutcomePermanent:
			if gerr := c.guard.Check(env.Balance()); gerr != nil {
				return struct{}{}, backoff.Permanent(gerr)
			}
			_ = json.Unmarshal(body, out)
			return struct{}{}, backoff.Permanent(cerr)
		}

		if gerr := c.guard.Check(env.Balance()); gerr != nil {
			return struct{}{}, backoff.Permanent(gerr)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return struct{}{}, &RetryableError{
				Endpoint:   endpoint,
				StatusCode: statusCode,
				Err:        fmt.Errorf("%w: %v", ErrMalformedResponse, err),
			}
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithNotify(func(err error, d time.Duration) {
			slog.Warn("API call failed, retrying", "endpoint", endpoint, "type", method, "error", err, "delay", d)
		}),
	)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}
