package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeForStatus(t *testing.T) {
	cases := map[int]string{
		http.StatusNotFound:            CodeNotFound,
		http.StatusForbidden:           CodeBlocked,
		http.StatusTooManyRequests:     CodeRateLimited,
		http.StatusInternalServerError: CodeUpstream,
		http.StatusBadRequest:          CodeUpstream,
	}
	for status, code := range cases {
		assert.Equal(t, code, CodeForStatus(status), "status %d", status)
	}
}

func TestForStatusCarriesHTTPStatus(t *testing.T) {
	envelope := ForStatus(http.StatusBadGateway, "502 Bad Gateway")
	require.NotNil(t, envelope)
	require.Equal(t, CodeUpstream, envelope.Code)
	require.Equal(t, http.StatusBadGateway, envelope.Context["http_status"])
}

func TestFatalTargetUsesRunID(t *testing.T) {
	envelope := NewFatalTargetError("run-1", "https://hooks.example/in")
	require.Equal(t, CodeFatalTarget, envelope.Code)
	require.Equal(t, "run-1", envelope.CorrelationID)
	require.Equal(t, "https://hooks.example/in", envelope.Context["endpoint"])

	generated := NewFatalTargetError("", "https://hooks.example/in")
	require.NotEmpty(t, generated.CorrelationID)
}

func TestEnsureEnvelope(t *testing.T) {
	original := NewInvalidInputError("bad payload")
	require.Same(t, original, EnsureEnvelope(original))

	wrapped := EnsureEnvelope(fmt.Errorf("boom"))
	require.Equal(t, "INTERNAL_ERROR", wrapped.Code)
	require.Equal(t, "boom", wrapped.Context["wrapped_error"])

	require.Equal(t, "INTERNAL_ERROR", EnsureEnvelope(nil).Code)
}

func TestHasCode(t *testing.T) {
	require.True(t, HasCode(NewExhaustedError(3), CodeExhausted))
	require.False(t, HasCode(NewExhaustedError(3), CodeTransport))
	require.False(t, HasCode(fmt.Errorf("plain"), CodeTransport))
	require.False(t, HasCode(nil, CodeTransport))
}

func TestWrapTransportRecordsCause(t *testing.T) {
	envelope := WrapTransport(fmt.Errorf("connection refused"), "no response")
	require.Equal(t, CodeTransport, envelope.Code)
	require.Equal(t, "connection refused", envelope.Context["wrapped_error"])
}
