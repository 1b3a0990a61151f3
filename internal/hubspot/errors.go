package hubspot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/parcelops/hubsync/internal/ratelimit"
)

// Error kinds. Every *APIError unwraps to exactly one of these.
var (
	ErrRateLimited        = errors.New("hubspot rate limited the request")
	ErrServerError        = errors.New("hubspot server error")
	ErrClientError        = errors.New("hubspot rejected the request")
	ErrTimeout            = errors.New("hubspot request timed out")
	ErrTransport          = errors.New("hubspot transport failure")
	ErrRateLimitExhausted = ratelimit.ErrExhausted
)

var (
	ErrNotFound      = errors.New("hubspot object not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotConfigured = errors.New("hubspot client not configured")
)

// APIError describes a failed dispatch after retries were applied.
//
// Body holds the raw response body and must never include credentials.
type APIError struct {
	Kind       error
	Method     string
	Endpoint   string
	StatusCode int
	Body       []byte
	Attempts   int
	RetryAfter time.Duration
	RequestID  string

	// Parsed from the HubSpot error body when present.
	Category      string
	CorrelationID string
	Message       string

	Err error
}

func (e *APIError) Error() string {
	if e == nil {
		return "hubspot error"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.Endpoint)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Kind != nil {
		fmt.Fprintf(&b, ": %s", e.Kind)
	}
	switch {
	case e.Message != "":
		fmt.Fprintf(&b, ": %s", e.Message)
	case e.Err != nil:
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " (after %d attempts)", e.Attempts)
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsNotFound reports whether err means the requested object does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= http.StatusInternalServerError:
		return ErrServerError
	default:
		return ErrClientError
	}
}

// errorBody is the JSON shape HubSpot uses for non-2xx responses.
type errorBody struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Category      string `json:"category"`
	CorrelationID string `json:"correlationId"`
}

func newStatusError(att requestAttempt, resp *Response) *APIError {
	apiErr := &APIError{
		Kind:       kindForStatus(resp.StatusCode),
		Method:     att.method,
		Endpoint:   att.endpoint,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Attempts:   att.attempt + 1,
		RequestID:  att.id,
	}

	var parsed errorBody
	if err := json.Unmarshal(resp.Body, &parsed); err == nil {
		apiErr.Message = parsed.Message
		apiErr.Category = parsed.Category
		apiErr.CorrelationID = parsed.CorrelationID
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(truncate(string(resp.Body), 200))
	}
	return apiErr
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
