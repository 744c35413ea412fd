package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"go.uber.org/zap"

	"github.com/pacerhq/pacer/internal/observability"
)

func TestInitCLILogger(t *testing.T) {
	for _, level := range []string{"", "trace", "debug", "info", "warn", "error", "bogus"} {
		t.Run("level "+level, func(t *testing.T) {
			observability.InitCLILogger("pacer-test", level, false)
			if observability.CLILogger == nil {
				t.Fatal("CLI logger should not be nil after initialization")
			}
			observability.CLILogger.Info("delivery summary", zap.Int("total", 3))
		})
	}

	t.Run("verbose", func(t *testing.T) {
		observability.InitCLILogger("pacer-test", "error", true)
		observability.CLILogger.Debug("waiting before next send", zap.Duration("wait", 0))
	})
}

func TestMetricsDisabledByDefault(t *testing.T) {
	observability.DisableTelemetry()
	if observability.TelemetrySystem != nil {
		t.Fatal("TelemetrySystem should stay nil until InitMetrics")
	}
}

func TestCrucibleVersionAvailable(t *testing.T) {
	version := crucible.GetVersion()
	if version.Gofulmen == "" {
		t.Error("Gofulmen version should not be empty")
	}
}
