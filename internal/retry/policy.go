// Package retry executes one logical send with bounded retries.
//
// Each network call is classified as success, rate limited, fatal or
// transient. Transient and rate-limited calls sleep and try again until the
// attempt budget runs out; the adaptive delay controller is updated along
// the way so pacing between sends reflects what happened inside them.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/pacerhq/pacer/internal/backoff"
	apperrors "github.com/pacerhq/pacer/internal/errors"
	"github.com/pacerhq/pacer/internal/metrics"
)

// Attempt classifies a single network call.
type Attempt string

const (
	AttemptSuccess     Attempt = "success"
	AttemptRateLimited Attempt = "rate_limited"
	AttemptFatal       Attempt = "fatal"
	AttemptTransient   Attempt = "transient"
)

// Outcome is the terminal state of a logical send.
type Outcome string

const (
	// OutcomeDelivered means the endpoint answered 200.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeRejected means the endpoint answered with a status that is not retried.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFatal means the endpoint answered 404; the caller should stop.
	OutcomeFatal Outcome = "fatal"
	// OutcomeExhausted means every attempt was used without a terminal answer.
	OutcomeExhausted Outcome = "exhausted"
)

// Response is what a Caller hands back when the endpoint answered.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Caller performs one network call. A non-nil error means no response.
type Caller interface {
	Call(ctx context.Context) (*Response, error)
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context) (*Response, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context) (*Response, error) {
	return f(ctx)
}

// Budget tracks attempts for one logical send.
type Budget struct {
	Made int
	Max  int
}

// Remaining reports whether another attempt is allowed.
func (b Budget) Remaining() bool {
	return b.Made < b.Max
}

// AttemptRecord describes one call inside a send.
type AttemptRecord struct {
	Attempt    Attempt
	StatusCode int
	Wait       time.Duration
	Err        error
}

// Result is the terminal answer of Send.
type Result struct {
	Outcome  Outcome
	Response *Response
	Attempts int
	History  []AttemptRecord
	// Err describes why the send did not deliver; nil when delivered.
	Err error
}

// Delivered reports whether the endpoint accepted the payload.
func (r *Result) Delivered() bool {
	return r != nil && r.Outcome == OutcomeDelivered
}

// Config tunes retry behaviour.
type Config struct {
	MaxAttempts        int           `mapstructure:"max_attempts"`
	TransportBackoff   time.Duration `mapstructure:"transport_backoff"`
	BlockedBackoff     time.Duration `mapstructure:"blocked_backoff"`
	RateLimitBase      time.Duration `mapstructure:"rate_limit_base"`
	RateLimitJitterMin time.Duration `mapstructure:"rate_limit_jitter_min"`
	RateLimitJitterMax time.Duration `mapstructure:"rate_limit_jitter_max"`
	// CountRateLimitAsError feeds 429 responses into the delay controller's
	// error count. Off by default: rate limiting already has its own wait.
	CountRateLimitAsError bool `mapstructure:"count_rate_limit_as_error"`
}

// DefaultConfig returns the stock retry settings.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:        3,
		TransportBackoff:   2 * time.Second,
		BlockedBackoff:     5 * time.Second,
		RateLimitBase:      20 * time.Second,
		RateLimitJitterMin: 5 * time.Second,
		RateLimitJitterMax: 15 * time.Second,
	}
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.TransportBackoff < 0 || c.BlockedBackoff < 0 || c.RateLimitBase < 0 {
		return fmt.Errorf("backoff durations must not be negative")
	}
	if c.RateLimitJitterMin < 0 || c.RateLimitJitterMin > c.RateLimitJitterMax {
		return fmt.Errorf("rate limit jitter range [%s, %s] is invalid", c.RateLimitJitterMin, c.RateLimitJitterMax)
	}
	return nil
}

// Policy runs logical sends against a shared delay controller.
type Policy struct {
	cfg    Config
	delay  *backoff.Controller
	rand   backoff.Rand
	sleep  backoff.Sleeper
	now    func() time.Time
	logger *logging.Logger
}

// Option customizes a Policy.
type Option func(*Policy)

// WithRand sets the source for rate-limit jitter.
func WithRand(r backoff.Rand) Option {
	return func(p *Policy) {
		if r != nil {
			p.rand = r
		}
	}
}

// WithSleeper sets the blocking primitive used between attempts.
func WithSleeper(s backoff.Sleeper) Option {
	return func(p *Policy) {
		if s != nil {
			p.sleep = s
		}
	}
}

// WithClock sets the clock used to resolve HTTP-date Retry-After values.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger for retry decisions.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// NewPolicy builds a Policy around delay.
func NewPolicy(cfg Config, delay *backoff.Controller, opts ...Option) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if delay == nil {
		return nil, fmt.Errorf("delay controller is required")
	}

	p := &Policy{
		cfg:   cfg,
		delay: delay,
		rand:  rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x2545f4914f6cdd1d)),
		sleep: backoff.SleepContext,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Send performs one logical send. Exhaustion and 404 are reported through
// Result.Outcome; the returned error is only ever a context error.
func (p *Policy) Send(ctx context.Context, caller Caller) (*Result, error) {
	budget := Budget{Max: p.cfg.MaxAttempts}
	result := &Result{}

	for budget.Remaining() {
		budget.Made++
		result.Attempts = budget.Made

		resp, err := caller.Call(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				result.Outcome = OutcomeExhausted
				return result, ctxErr
			}
			p.delay.RecordError()
			record := AttemptRecord{Attempt: AttemptTransient, Wait: p.cfg.TransportBackoff, Err: apperrors.WrapTransport(err, "request failed without a response")}
			p.warn("No response, retrying", budget, zap.Error(err), zap.Duration("wait", record.Wait))
			if err := p.pause(ctx, result, record, "transport"); err != nil {
				return result, err
			}
			continue
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			p.observe(result, AttemptRecord{Attempt: AttemptFatal, StatusCode: resp.StatusCode})
			result.Outcome = OutcomeFatal
			result.Response = resp
			result.Err = apperrors.ForStatus(resp.StatusCode, resp.Status)
			return result, nil

		case http.StatusForbidden:
			p.delay.RecordError()
			record := AttemptRecord{Attempt: AttemptTransient, StatusCode: resp.StatusCode, Wait: p.cfg.BlockedBackoff, Err: apperrors.ForStatus(resp.StatusCode, resp.Status)}
			p.warn("Request blocked, retrying", budget, zap.Duration("wait", record.Wait))
			if err := p.pause(ctx, result, record, "blocked"); err != nil {
				return result, err
			}

		case http.StatusTooManyRequests:
			if p.cfg.CountRateLimitAsError {
				p.delay.RecordError()
			}
			record := AttemptRecord{Attempt: AttemptRateLimited, StatusCode: resp.StatusCode, Wait: p.RateLimitWait(resp.Header), Err: apperrors.ForStatus(resp.StatusCode, resp.Status)}
			p.warn("Rate limited, retrying", budget, zap.Duration("wait", record.Wait))
			if err := p.pause(ctx, result, record, "rate_limited"); err != nil {
				return result, err
			}

		case http.StatusOK:
			p.delay.RecordSuccess()
			p.observe(result, AttemptRecord{Attempt: AttemptSuccess, StatusCode: resp.StatusCode})
			result.Outcome = OutcomeDelivered
			result.Response = resp
			return result, nil

		default:
			// Ends the loop like a success but still slows pacing.
			p.delay.RecordError()
			p.observe(result, AttemptRecord{Attempt: AttemptSuccess, StatusCode: resp.StatusCode})
			result.Outcome = OutcomeRejected
			result.Response = resp
			result.Err = apperrors.ForStatus(resp.StatusCode, resp.Status)
			return result, nil
		}
	}

	result.Outcome = OutcomeExhausted
	result.Response = nil
	result.Err = apperrors.NewExhaustedError(result.Attempts)
	return result, nil
}

// RateLimitWait is the server hint plus positive jitter.
func (p *Policy) RateLimitWait(header http.Header) time.Duration {
	base := RetryAfter(header, p.cfg.RateLimitBase, p.now())
	return base + backoff.Uniform(p.rand, p.cfg.RateLimitJitterMin, p.cfg.RateLimitJitterMax)
}

// Controller returns the delay controller shared with the caller.
func (p *Policy) Controller() *backoff.Controller {
	return p.delay
}

func (p *Policy) pause(ctx context.Context, result *Result, record AttemptRecord, reason string) error {
	p.observe(result, record)
	metrics.RecordWait(reason, record.Wait)
	if err := p.sleep(ctx, record.Wait); err != nil {
		result.Outcome = OutcomeExhausted
		return err
	}
	return nil
}

func (p *Policy) observe(result *Result, record AttemptRecord) {
	result.History = append(result.History, record)
	metrics.RecordAttempt(string(record.Attempt))
}

func (p *Policy) warn(msg string, budget Budget, fields ...zap.Field) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, append(fields, zap.Int("attempt", budget.Made), zap.Int("max_attempts", budget.Max))...)
}
