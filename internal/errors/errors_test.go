package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelops/hubsync/internal/hubspot"
	"github.com/parcelops/hubsync/internal/ratelimit"
)

func statusError(status int, kind error) *hubspot.APIError {
	return &hubspot.APIError{
		Kind:       kind,
		Method:     http.MethodGet,
		Endpoint:   "/crm/v3/objects/deals/1",
		StatusCode: status,
		Attempts:   1,
		RequestID:  "req-1",
	}
}

func TestFromErrorCodes(t *testing.T) {
	exhausted := &ratelimit.ExhaustedError{Requested: 1, RetryIn: 2 * time.Hour, Threshold: time.Hour}

	cases := []struct {
		name string
		err  error
		code string
		exit foundry.ExitCode
	}{
		{"exhausted", &hubspot.APIError{Kind: hubspot.ErrRateLimitExhausted, Err: exhausted}, CodeRateLimitExhausted, foundry.ExitExternalServiceUnavailable},
		{"rate limited", statusError(http.StatusTooManyRequests, hubspot.ErrRateLimited), CodeRateLimited, foundry.ExitExternalServiceUnavailable},
		{"server", statusError(http.StatusBadGateway, hubspot.ErrServerError), CodeExternalService, foundry.ExitExternalServiceUnavailable},
		{"transport", &hubspot.APIError{Kind: hubspot.ErrTransport, Err: fmt.Errorf("connection refused")}, CodeExternalService, foundry.ExitExternalServiceUnavailable},
		{"timeout", &hubspot.APIError{Kind: hubspot.ErrTimeout}, CodeTimeout, foundry.ExitExternalServiceUnavailable},
		{"not found", statusError(http.StatusNotFound, hubspot.ErrClientError), CodeNotFound, foundry.ExitFailure},
		{"unauthorized", statusError(http.StatusUnauthorized, hubspot.ErrClientError), CodeUnauthorized, foundry.ExitConfigInvalid},
		{"forbidden", statusError(http.StatusForbidden, hubspot.ErrClientError), CodeForbidden, foundry.ExitFailure},
		{"conflict", statusError(http.StatusConflict, hubspot.ErrClientError), CodeConflict, foundry.ExitFailure},
		{"bad request", statusError(http.StatusBadRequest, hubspot.ErrClientError), CodeInvalidInput, foundry.ExitFailure},
		{"invalid input", fmt.Errorf("wrapped: %w", hubspot.ErrInvalidInput), CodeInvalidInput, foundry.ExitFailure},
		{"missing key", hubspot.ErrMissingAPIKey, CodeConfigInvalid, foundry.ExitConfigInvalid},
		{"cancelled", context.Canceled, CodeCancelled, foundry.ExitFailure},
		{"unknown", goerrors.New("boom"), CodeInternal, foundry.ExitFailure},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			envelope := FromError(tc.err)
			require.NotNil(t, envelope)
			assert.Equal(t, tc.code, envelope.Code)
			assert.Equal(t, tc.exit, ExitCodeFor(envelope))
			assert.NotEmpty(t, envelope.CorrelationID)
			assert.Equal(t, tc.err.Error(), envelope.Message)
		})
	}
}

func TestFromErrorContext(t *testing.T) {
	t.Run("APIError", func(t *testing.T) {
		apiErr := statusError(http.StatusBadRequest, hubspot.ErrClientError)
		apiErr.Category = "VALIDATION_ERROR"
		apiErr.CorrelationID = "hubspot-correlation"

		envelope := FromError(fmt.Errorf("create deal: %w", apiErr))
		require.NotNil(t, envelope)
		assert.Equal(t, "hubspot-correlation", envelope.CorrelationID)
		assert.Equal(t, "VALIDATION_ERROR", envelope.Context["category"])
		assert.EqualValues(t, http.StatusBadRequest, envelope.Context["status_code"])
		assert.Equal(t, "req-1", envelope.Context["request_id"])
	})

	t.Run("RequestIDFallback", func(t *testing.T) {
		envelope := FromError(statusError(http.StatusBadGateway, hubspot.ErrServerError))
		require.NotNil(t, envelope)
		assert.Equal(t, "req-1", envelope.CorrelationID)
	})

	t.Run("Exhausted", func(t *testing.T) {
		exhausted := &ratelimit.ExhaustedError{Requested: 3, RetryIn: 2 * time.Hour, Threshold: time.Hour}
		envelope := FromError(exhausted)
		require.NotNil(t, envelope)
		assert.Equal(t, CodeRateLimitExhausted, envelope.Code)
		assert.Equal(t, "2h0m0s", envelope.Context["retry_in"])
		assert.EqualValues(t, 3, envelope.Context["tokens_requested"])
		assert.Equal(t, errors.SeverityCritical, envelope.Severity)
	})
}

func TestEnsureEnvelope(t *testing.T) {
	envelope := EnsureEnvelope(nil)
	require.NotNil(t, envelope)
	assert.Equal(t, CodeInternal, envelope.Code)

	existing := NewNotFoundError("no such deal")
	assert.Same(t, existing, EnsureEnvelope(existing))
	assert.Same(t, existing, EnsureEnvelope(fmt.Errorf("lookup: %w", existing)))

	assert.Nil(t, FromError(nil))
}

func TestWrapConfigInvalid(t *testing.T) {
	cause := goerrors.New("rate_limit.burst_capacity must be positive")
	envelope := WrapConfigInvalid(cause, "failed to load configuration")

	assert.Equal(t, CodeConfigInvalid, envelope.Code)
	assert.Equal(t, "failed to load configuration", envelope.Message)
	assert.Equal(t, cause.Error(), envelope.Context["wrapped_error"])
	assert.Equal(t, foundry.ExitConfigInvalid, ExitCodeFor(envelope))
	assert.Equal(t, foundry.ExitFailure, ExitCodeFor(nil))
}
