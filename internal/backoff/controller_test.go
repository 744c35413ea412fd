package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

type recordingSleeper struct {
	slept []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return ctx.Err()
}

func newTestController(t *testing.T, cfg Config, opts ...Option) *Controller {
	t.Helper()
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClampsInitialDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Minute
	c := newTestController(t, cfg)
	require.Equal(t, cfg.MaxDelay, c.Current())

	cfg.InitialDelay = 0
	c = newTestController(t, cfg)
	require.Equal(t, cfg.MinDelay, c.Current())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.MinDelay = 0
	require.Error(t, bad.Validate())

	bad = cfg
	bad.MaxDelay = cfg.MinDelay / 2
	require.Error(t, bad.Validate())

	bad = cfg
	bad.JitterMin = 2 * time.Second
	require.Error(t, bad.Validate())

	_, err := New(bad)
	require.Error(t, err)
}

func TestNextDelayDoublesOnErrorsUpToMax(t *testing.T) {
	c := newTestController(t, DefaultConfig())

	prev := c.Current()
	for i := 0; i < 10; i++ {
		c.RecordError()
		next := c.NextDelay()
		assert.GreaterOrEqual(t, next, prev)
		assert.LessOrEqual(t, next, 15*time.Second)
		prev = next
	}
	require.Equal(t, 15*time.Second, c.Current())
}

func TestNextDelayFirstErrorDoubles(t *testing.T) {
	c := newTestController(t, DefaultConfig())
	c.RecordError()
	require.Equal(t, 6*time.Second, c.NextDelay())
}

func TestNextDelayDecaysUnderStrongSuccessRatio(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialDelay = 10 * time.Second
	c := newTestController(t, cfg)

	for i := 0; i < 6; i++ {
		c.RecordSuccess()
	}

	prev := c.Current()
	for i := 0; i < 50; i++ {
		next := c.NextDelay()
		if prev > cfg.MinDelay {
			assert.Less(t, next, prev)
		}
		assert.GreaterOrEqual(t, next, cfg.MinDelay)
		prev = next
	}
	require.Equal(t, cfg.MinDelay, c.Current())

	single := newTestController(t, cfg)
	single.RecordSuccess()
	require.Equal(t, 9*time.Second, single.NextDelay())
}

func TestNextDelayUnchangedWithWeakSuccessRatio(t *testing.T) {
	cfg := DefaultConfig()
	c := newTestController(t, cfg)

	require.Equal(t, cfg.InitialDelay, c.NextDelay())

	c.SetCurrent(cfg.MinDelay)
	c.RecordSuccess()
	require.Equal(t, cfg.MinDelay, c.NextDelay())
}

func TestResetCountersThenNextDelayIsIdempotent(t *testing.T) {
	c := newTestController(t, DefaultConfig())
	c.RecordError()
	c.RecordSuccess()
	c.NextDelay()

	before := c.Current()
	c.ResetCounters()
	require.Equal(t, before, c.NextDelay())

	state := c.Snapshot()
	require.Zero(t, state.Success)
	require.Zero(t, state.Errors)
}

func TestWaitNeverSleepsBelowMin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialDelay = cfg.MinDelay

	for _, r := range []float64{0, 0.1, 0.33, 0.5, 0.99} {
		sleeper := &recordingSleeper{}
		c := newTestController(t, cfg, WithRand(fixedRand(r)), WithSleeper(sleeper.Sleep))

		slept, err := c.Wait(context.Background())
		require.NoError(t, err)
		require.Len(t, sleeper.slept, 1)
		assert.Equal(t, slept, sleeper.slept[0])
		assert.GreaterOrEqual(t, slept, cfg.MinDelay)
	}
}

func TestWaitAppliesAsymmetricJitter(t *testing.T) {
	cfg := DefaultConfig()

	low := newTestController(t, cfg, WithRand(fixedRand(0)), WithSleeper((&recordingSleeper{}).Sleep))
	slept, err := low.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2500*time.Millisecond, slept)

	high := newTestController(t, cfg, WithRand(fixedRand(0.999999)), WithSleeper((&recordingSleeper{}).Sleep))
	slept, err = high.Wait(context.Background())
	require.NoError(t, err)
	require.InDelta(t, float64(4*time.Second), float64(slept), float64(time.Millisecond))
}

func TestWaitReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestController(t, DefaultConfig(), WithRand(fixedRand(0.5)))
	_, err := c.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestUniform(t *testing.T) {
	require.Equal(t, 5*time.Second, Uniform(fixedRand(0), 5*time.Second, 15*time.Second))
	require.Equal(t, 10*time.Second, Uniform(fixedRand(0.5), 5*time.Second, 15*time.Second))
	require.Equal(t, 5*time.Second, Uniform(fixedRand(0.5), 5*time.Second, 5*time.Second))
}
