package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pacerhq/pacer/internal/observability"
)

func TestRecordersAreNoOpsWithoutTelemetry(t *testing.T) {
	saved := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = saved })

	assert.NotPanics(t, func() {
		RecordAttempt("success")
		RecordSend("delivered")
		RecordWait("pacing", 2*time.Second)
		SetCurrentDelay(3 * time.Second)
	})
}
