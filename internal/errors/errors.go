package errors

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
)

// Error codes for delivery outcomes and CLI failures.
const (
	CodeTransport    = "TRANSPORT_ERROR"
	CodeBlocked      = "CLIENT_BLOCKED"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimited  = "RATE_LIMITED"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeDecode       = "DECODE_ERROR"
	CodeExhausted    = "RETRIES_EXHAUSTED"
	CodeFatalTarget  = "FATAL_TARGET"
	CodeConfig       = "CONFIG_INVALID"
	CodeInvalidInput = "INVALID_INPUT"
)

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfig, message)
}

// WrapConfigInvalid records err as the cause of a config failure.
func WrapConfigInvalid(err error, message string) *errors.ErrorEnvelope {
	return withWrappedError(errors.NewErrorEnvelope(CodeConfig, message), err)
}

// WrapTransport describes an attempt that produced no response.
func WrapTransport(err error, message string) *errors.ErrorEnvelope {
	envelope := withWrappedError(errors.NewErrorEnvelope(CodeTransport, message), err)
	envelope, _ = envelope.WithSeverity(errors.SeverityMedium)
	return envelope
}

// WrapDecode describes a response body that is not valid JSON.
func WrapDecode(err error, message string) *errors.ErrorEnvelope {
	envelope := withWrappedError(errors.NewErrorEnvelope(CodeDecode, message), err)
	envelope, _ = envelope.WithSeverity(errors.SeverityMedium)
	return envelope
}

// NewFatalTargetError stops a run whose endpoint does not exist.
func NewFatalTargetError(runID string, endpoint string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(CodeFatalTarget, "delivery endpoint returned 404; stopping run")
	envelope = envelope.WithCorrelationID(correlationID(runID))
	envelope = withContext(envelope, map[string]interface{}{"endpoint": endpoint})
	envelope, _ = envelope.WithSeverity(errors.SeverityCritical)
	return envelope
}

// NewExhaustedError reports a send that ran out of attempts.
func NewExhaustedError(attempts int) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(CodeExhausted, "no response after all attempts")
	envelope = withContext(envelope, map[string]interface{}{"attempts": attempts})
	envelope, _ = envelope.WithSeverity(errors.SeverityMedium)
	return envelope
}

// ForStatus builds the envelope for a terminal non-200 status.
func ForStatus(statusCode int, status string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(CodeForStatus(statusCode), status)
	envelope = withContext(envelope, map[string]interface{}{"http_status": statusCode})
	if statusCode == http.StatusNotFound {
		envelope, _ = envelope.WithSeverity(errors.SeverityCritical)
		return envelope
	}
	envelope, _ = envelope.WithSeverity(errors.SeverityMedium)
	return envelope
}

// CodeForStatus maps an HTTP status to the delivery error taxonomy.
func CodeForStatus(statusCode int) string {
	switch statusCode {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusForbidden:
		return CodeBlocked
	case http.StatusTooManyRequests:
		return CodeRateLimited
	default:
		return CodeUpstream
	}
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env := errors.NewErrorEnvelope("INTERNAL_ERROR", "unexpected nil error")
		env, _ = env.WithSeverity(errors.SeverityCritical)
		return env
	}

	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	env := errors.NewErrorEnvelope("INTERNAL_ERROR", "unexpected error")
	env = withWrappedError(env, err)
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

// HasCode reports whether err is an envelope with the given code.
func HasCode(err error, code string) bool {
	envelope, ok := err.(*errors.ErrorEnvelope)
	return ok && envelope != nil && envelope.Code == code
}

func correlationID(runID string) string {
	if runID != "" {
		return runID
	}
	return uuid.New().String()
}

func withWrappedError(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}
	return withContext(envelope, map[string]interface{}{
		"wrapped_error": err.Error(),
	})
}

func withContext(envelope *errors.ErrorEnvelope, ctx map[string]interface{}) *errors.ErrorEnvelope {
	updated, err := envelope.WithContext(ctx)
	if err != nil {
		return envelope
	}
	return updated
}
