package retry

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryAfter reads the Retry-After header as delta-seconds or an HTTP date.
// Missing, malformed or past values fall back to fallback.
func RetryAfter(header http.Header, fallback time.Duration, now time.Time) time.Duration {
	if header == nil {
		return fallback
	}

	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return fallback
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return fallback
		}
		return time.Duration(seconds) * time.Second
	}
	if parsed, err := http.ParseTime(value); err == nil {
		if wait := parsed.Sub(now); wait > 0 {
			return wait
		}
	}

	return fallback
}
