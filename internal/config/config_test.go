package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pacerhq/pacer/internal/errors"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "POST", cfg.Method)
	assert.Equal(t, 10*time.Second, cfg.Timeout)

	assert.Equal(t, 3*time.Second, cfg.Delay.InitialDelay)
	assert.Equal(t, time.Second, cfg.Delay.MinDelay)
	assert.Equal(t, 15*time.Second, cfg.Delay.MaxDelay)
	assert.Equal(t, -500*time.Millisecond, cfg.Delay.JitterMin)
	assert.Equal(t, time.Second, cfg.Delay.JitterMax)

	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.TransportBackoff)
	assert.Equal(t, 5*time.Second, cfg.Retry.BlockedBackoff)
	assert.Equal(t, 20*time.Second, cfg.Retry.RateLimitBase)
	assert.Equal(t, 5*time.Second, cfg.Retry.RateLimitJitterMin)
	assert.Equal(t, 15*time.Second, cfg.Retry.RateLimitJitterMax)
	assert.False(t, cfg.Retry.CountRateLimitAsError)

	assert.Equal(t, 5, cfg.Run.AdjustEvery)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PACER_DELAY_MIN", "2s")
	t.Setenv("PACER_DELAY_MAX", "30s")
	t.Setenv("PACER_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("PACER_RETRY_COUNT_RATE_LIMIT_AS_ERROR", "true")
	t.Setenv("PACER_ENDPOINT", "https://hooks.example.com/in")

	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Delay.MinDelay)
	assert.Equal(t, 30*time.Second, cfg.Delay.MaxDelay)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.Retry.CountRateLimitAsError)
	assert.Equal(t, "https://hooks.example.com/in", cfg.Endpoint)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
endpoint: https://hooks.example.com/in
delay:
  initial: 4s
retry:
  rate_limit_base: 30s
run:
  adjust_every: 10
`), 0o600))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, cfg.Delay.InitialDelay)
	assert.Equal(t, 30*time.Second, cfg.Retry.RateLimitBase)
	assert.Equal(t, 10, cfg.Run.AdjustEvery)
	assert.Equal(t, time.Second, cfg.Delay.MinDelay)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]string{
		"PACER_DELAY_MIN":          "0s",
		"PACER_RETRY_MAX_ATTEMPTS": "0",
		"PACER_TIMEOUT":            "-1s",
		"PACER_RUN_ADJUST_EVERY":   "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load(newViper())
			require.Error(t, err)
			require.True(t, apperrors.HasCode(err, apperrors.CodeConfig))
		})
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("PACER_DELAY_MAX", "soon")
	_, err := Load(newViper())
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeConfig))
}
