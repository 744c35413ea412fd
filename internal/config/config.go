// Package config loads pacer settings from defaults, an optional YAML file,
// PACER_* environment variables and command flags, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/pacerhq/pacer/internal/backoff"
	apperrors "github.com/pacerhq/pacer/internal/errors"
	"github.com/pacerhq/pacer/internal/retry"
)

// EnvPrefix is prepended to every environment override, e.g. PACER_DELAY_MIN.
const EnvPrefix = "PACER"

// Config represents the complete application configuration
type Config struct {
	Endpoint    string         `mapstructure:"endpoint"`
	Method      string         `mapstructure:"method"`
	ContentType string         `mapstructure:"content_type"`
	Timeout     time.Duration  `mapstructure:"timeout"`
	Delay       backoff.Config `mapstructure:"delay"`
	Retry       retry.Config   `mapstructure:"retry"`
	Run         RunConfig      `mapstructure:"run"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
}

// RunConfig controls pacing across sends
type RunConfig struct {
	AdjustEvery int `mapstructure:"adjust_every"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus exporter configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// SetDefaults registers every key with its default so environment
// variables resolve through AutomaticEnv.
func SetDefaults(v *viper.Viper) {
	delay := backoff.DefaultConfig()
	attempts := retry.DefaultConfig()

	v.SetDefault("endpoint", "")
	v.SetDefault("method", "POST")
	v.SetDefault("content_type", "")
	v.SetDefault("timeout", "10s")

	v.SetDefault("delay.initial", delay.InitialDelay.String())
	v.SetDefault("delay.min", delay.MinDelay.String())
	v.SetDefault("delay.max", delay.MaxDelay.String())
	v.SetDefault("delay.jitter_min", delay.JitterMin.String())
	v.SetDefault("delay.jitter_max", delay.JitterMax.String())

	v.SetDefault("retry.max_attempts", attempts.MaxAttempts)
	v.SetDefault("retry.transport_backoff", attempts.TransportBackoff.String())
	v.SetDefault("retry.blocked_backoff", attempts.BlockedBackoff.String())
	v.SetDefault("retry.rate_limit_base", attempts.RateLimitBase.String())
	v.SetDefault("retry.rate_limit_jitter_min", attempts.RateLimitJitterMin.String())
	v.SetDefault("retry.rate_limit_jitter_max", attempts.RateLimitJitterMax.String())
	v.SetDefault("retry.count_rate_limit_as_error", attempts.CountRateLimitAsError)

	v.SetDefault("run.adjust_every", 5)

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
}

// BindEnv wires PACER_* variables onto nested keys (delay.min -> PACER_DELAY_MIN).
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the merged viper settings into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, apperrors.WrapConfigInvalid(err, "failed to decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Delay.Validate(); err != nil {
		return apperrors.WrapConfigInvalid(err, "invalid delay settings")
	}
	if err := c.Retry.Validate(); err != nil {
		return apperrors.WrapConfigInvalid(err, "invalid retry settings")
	}
	if c.Timeout <= 0 {
		return apperrors.NewConfigInvalidError("timeout must be positive")
	}
	if c.Run.AdjustEvery < 1 {
		return apperrors.NewConfigInvalidError("run.adjust_every must be at least 1")
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 0 || c.Metrics.Port > 65535) {
		return apperrors.NewConfigInvalidError(fmt.Sprintf("metrics.port %d is out of range", c.Metrics.Port))
	}
	return nil
}
