// Package backoff derives the wait between deliveries from recent outcomes.
//
// Errors double the delay immediately. Recovery is slow: the delay only
// shrinks by 10% once successes outnumber errors more than five to one.
package backoff

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Rand is the random source used for jitter.
type Rand interface {
	Float64() float64
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Config bounds the adaptive delay.
type Config struct {
	InitialDelay time.Duration `mapstructure:"initial"`
	MinDelay     time.Duration `mapstructure:"min"`
	MaxDelay     time.Duration `mapstructure:"max"`
	JitterMin    time.Duration `mapstructure:"jitter_min"`
	JitterMax    time.Duration `mapstructure:"jitter_max"`
}

// DefaultConfig returns the stock delay bounds.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 3 * time.Second,
		MinDelay:     time.Second,
		MaxDelay:     15 * time.Second,
		JitterMin:    -500 * time.Millisecond,
		JitterMax:    time.Second,
	}
}

// Validate checks the bounds are usable.
func (c Config) Validate() error {
	if c.MinDelay <= 0 {
		return fmt.Errorf("min delay must be positive, got %s", c.MinDelay)
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("max delay %s is below min delay %s", c.MaxDelay, c.MinDelay)
	}
	if c.JitterMin > c.JitterMax {
		return fmt.Errorf("jitter min %s exceeds jitter max %s", c.JitterMin, c.JitterMax)
	}
	return nil
}

// State is a point-in-time copy of the controller.
type State struct {
	Current  time.Duration
	Success  int
	Errors   int
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Controller tracks success/error counts and the current delay.
// It is not safe for concurrent use; one run owns one controller.
type Controller struct {
	cfg     Config
	current time.Duration
	success int
	errors  int
	rand    Rand
	sleep   Sleeper
}

// Option customizes a Controller.
type Option func(*Controller)

// WithRand sets the jitter source.
func WithRand(r Rand) Option {
	return func(c *Controller) {
		if r != nil {
			c.rand = r
		}
	}
}

// WithSleeper sets the blocking primitive used by Wait.
func WithSleeper(s Sleeper) Option {
	return func(c *Controller) {
		if s != nil {
			c.sleep = s
		}
	}
}

// New builds a controller. The initial delay is clamped into [min, max].
func New(cfg Config, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:   cfg,
		rand:  rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		sleep: SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current = c.clamp(cfg.InitialDelay)
	return c, nil
}

// RecordSuccess counts one successful delivery.
func (c *Controller) RecordSuccess() {
	c.success++
}

// RecordError counts one failed attempt.
func (c *Controller) RecordError() {
	c.errors++
}

// ResetCounters starts a new observation window.
func (c *Controller) ResetCounters() {
	c.success = 0
	c.errors = 0
}

// NextDelay recomputes and returns the current delay.
func (c *Controller) NextDelay() time.Duration {
	switch {
	case c.errors > 0:
		c.current = c.clamp(c.current * 2)
	case c.success > c.errors*5 && c.current > c.cfg.MinDelay:
		c.current = c.clamp(time.Duration(float64(c.current) * 0.9))
	}
	return c.current
}

// Wait computes the next delay, applies jitter and sleeps.
// The slept duration is never below MinDelay.
func (c *Controller) Wait(ctx context.Context) (time.Duration, error) {
	d := c.NextDelay() + c.jitter()
	if d < c.cfg.MinDelay {
		d = c.cfg.MinDelay
	}
	if err := c.sleep(ctx, d); err != nil {
		return d, err
	}
	return d, nil
}

// Current returns the delay without recomputing it.
func (c *Controller) Current() time.Duration {
	return c.current
}

// SetCurrent seeds the delay, clamped into [min, max].
func (c *Controller) SetCurrent(d time.Duration) {
	c.current = c.clamp(d)
}

// Snapshot returns a copy of the controller state.
func (c *Controller) Snapshot() State {
	return State{
		Current:  c.current,
		Success:  c.success,
		Errors:   c.errors,
		MinDelay: c.cfg.MinDelay,
		MaxDelay: c.cfg.MaxDelay,
	}
}

// Uniform draws a duration from [lo, hi) using r.
func Uniform(r Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.Float64()*float64(hi-lo))
}

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Controller) jitter() time.Duration {
	return Uniform(c.rand, c.cfg.JitterMin, c.cfg.JitterMax)
}

func (c *Controller) clamp(d time.Duration) time.Duration {
	if d < c.cfg.MinDelay {
		return c.cfg.MinDelay
	}
	if d > c.cfg.MaxDelay {
		return c.cfg.MaxDelay
	}
	return d
}
