package metrics

import (
	"time"

	"github.com/pacerhq/pacer/internal/observability"
)

// Delivery metrics following Prometheus conventions
const (
	AttemptsTotalName = "delivery_attempts_total"
	SendsTotalName    = "delivery_sends_total"
	WaitDurationName  = "delivery_wait_duration_ms"
	CurrentDelayName  = "delivery_current_delay_seconds"
)

// RecordAttempt records one network call and how it was classified
func RecordAttempt(attempt string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AttemptsTotalName,
			1,
			map[string]string{
				"attempt": attempt,
			},
		)
	}
}

// RecordSend records the terminal outcome of one logical send
func RecordSend(outcome string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SendsTotalName,
			1,
			map[string]string{
				"outcome": outcome,
			},
		)
	}
}

// RecordWait records a sleep taken before the next attempt or send
func RecordWait(reason string, wait time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			WaitDurationName,
			wait,
			map[string]string{
				"reason": reason,
			},
		)
	}
}

// SetCurrentDelay publishes the adaptive delay
func SetCurrentDelay(delay time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			CurrentDelayName,
			delay.Seconds(),
			nil,
		)
	}
}
