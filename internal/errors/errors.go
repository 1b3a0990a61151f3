// Package errors translates hubsync failures into gofulmen error envelopes and semantic exit codes.
package errors

import (
	"context"
	goerrors "errors"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/parcelops/hubsync/internal/hubspot"
	"github.com/parcelops/hubsync/internal/ratelimit"
)

// Error codes carried by envelopes produced in this package.
const (
	CodeRateLimitExhausted = "RATE_LIMIT_EXHAUSTED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeCancelled          = "CANCELLED"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeInternal           = "INTERNAL_ERROR"
)

// User Errors
func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

// Service Errors
func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewExternalServiceError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeExternalService, message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}

// WrapInvalidInput marks err as a problem with what the operator typed.
func WrapInvalidInput(err error, message string) *errors.ErrorEnvelope {
	return wrap(CodeInvalidInput, err, message)
}

// WrapConfigInvalid marks err as a configuration problem.
func WrapConfigInvalid(err error, message string) *errors.ErrorEnvelope {
	envelope := wrap(CodeConfigInvalid, err, message)
	envelope, _ = envelope.WithSeverity(errors.SeverityHigh)
	return envelope
}

func wrap(code string, err error, message string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope(code, message)
	envelope = envelope.WithCorrelationID(errors.GenerateCorrelationID())
	envelope = withWrappedError(envelope, err)
	return envelope
}

// FromError classifies err and returns an envelope describing it. Envelopes pass through
// unchanged, HubSpot and limiter failures keep their request identifiers, and anything
// unrecognised becomes INTERNAL_ERROR.
func FromError(err error) *errors.ErrorEnvelope {
	if err == nil {
		return nil
	}

	var envelope *errors.ErrorEnvelope
	if goerrors.As(err, &envelope) && envelope != nil {
		return envelope
	}

	code := classify(err)
	envelope = errors.NewErrorEnvelope(code, err.Error())
	envelope.Original = err

	details := map[string]interface{}{}
	correlationID := ""

	var apiErr *hubspot.APIError
	if goerrors.As(err, &apiErr) {
		details["endpoint"] = apiErr.Method + " " + apiErr.Endpoint
		if apiErr.StatusCode > 0 {
			details["status_code"] = apiErr.StatusCode
		}
		if apiErr.Attempts > 0 {
			details["attempts"] = apiErr.Attempts
		}
		if apiErr.Category != "" {
			details["category"] = apiErr.Category
		}
		if apiErr.RequestID != "" {
			details["request_id"] = apiErr.RequestID
		}
		correlationID = apiErr.CorrelationID
		if correlationID == "" {
			correlationID = apiErr.RequestID
		}
	}

	var exhausted *ratelimit.ExhaustedError
	if goerrors.As(err, &exhausted) {
		details["retry_in"] = exhausted.RetryIn.String()
		details["max_daily_wait"] = exhausted.Threshold.String()
		details["tokens_requested"] = exhausted.Requested
	}

	if len(details) > 0 {
		if updated, updateErr := envelope.WithContext(details); updateErr == nil {
			envelope = updated
		}
	}

	if correlationID == "" {
		correlationID = errors.GenerateCorrelationID()
	}
	envelope = envelope.WithCorrelationID(correlationID)

	return withSeverity(envelope, code)
}

func classify(err error) string {
	switch {
	case goerrors.Is(err, ratelimit.ErrExhausted):
		return CodeRateLimitExhausted
	case goerrors.Is(err, hubspot.ErrMissingAPIKey), goerrors.Is(err, hubspot.ErrNotConfigured):
		return CodeConfigInvalid
	case goerrors.Is(err, context.Canceled):
		return CodeCancelled
	case goerrors.Is(err, hubspot.ErrTimeout), goerrors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case goerrors.Is(err, hubspot.ErrRateLimited):
		return CodeRateLimited
	case goerrors.Is(err, hubspot.ErrServerError), goerrors.Is(err, hubspot.ErrTransport):
		return CodeExternalService
	case hubspot.IsNotFound(err):
		return CodeNotFound
	case goerrors.Is(err, hubspot.ErrInvalidInput), goerrors.Is(err, ratelimit.ErrInvalidRequest):
		return CodeInvalidInput
	}

	switch hubspot.StatusCode(err) {
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusConflict:
		return CodeConflict
	}
	if goerrors.Is(err, hubspot.ErrClientError) {
		return CodeInvalidInput
	}
	return CodeInternal
}

// withSeverity grades the envelope: operator action needed is critical, upstream trouble is high.
func withSeverity(envelope *errors.ErrorEnvelope, code string) *errors.ErrorEnvelope {
	severity := errors.SeverityMedium
	switch code {
	case CodeRateLimitExhausted, CodeConfigInvalid, CodeUnauthorized, CodeForbidden:
		severity = errors.SeverityCritical
	case CodeExternalService, CodeTimeout, CodeInternal:
		severity = errors.SeverityHigh
	}
	updated, err := envelope.WithSeverity(severity)
	if err != nil {
		return envelope
	}
	return updated
}

// EnsureEnvelope normalizes any error into a gofulmen ErrorEnvelope.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env := errors.NewErrorEnvelope(CodeInternal, "unexpected nil error")
		env, _ = env.WithSeverity(errors.SeverityCritical)
		return env
	}
	return FromError(err)
}

// ExitCodeFor picks the semantic exit code for an envelope.
func ExitCodeFor(envelope *errors.ErrorEnvelope) foundry.ExitCode {
	if envelope == nil {
		return foundry.ExitFailure
	}
	switch envelope.Code {
	case CodeConfigInvalid, CodeUnauthorized:
		return foundry.ExitConfigInvalid
	case CodeRateLimitExhausted, CodeRateLimited, CodeExternalService, CodeTimeout:
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}

func withWrappedError(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}

	envelope.Original = err
	updated, updateErr := envelope.WithContext(map[string]interface{}{
		"wrapped_error": err.Error(),
	})
	if updateErr != nil {
		return envelope
	}
	return updated
}
