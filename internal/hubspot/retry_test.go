package hubspot

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := ExponentialBackoff(time.Second)

	require.Equal(t, time.Second, backoff(0))
	require.Equal(t, 2*time.Second, backoff(1))
	require.Equal(t, 4*time.Second, backoff(2))
	require.Equal(t, time.Second, backoff(-3))
	require.Equal(t, backoff(maxBackoffShift), backoff(maxBackoffShift+10))
}

func TestDefaultRetryable(t *testing.T) {
	require.True(t, DefaultRetryable(http.StatusTooManyRequests))
	require.True(t, DefaultRetryable(http.StatusInternalServerError))
	require.True(t, DefaultRetryable(http.StatusGatewayTimeout))
	require.False(t, DefaultRetryable(http.StatusBadRequest))
	require.False(t, DefaultRetryable(http.StatusNotFound))
	require.False(t, DefaultRetryable(http.StatusConflict))
}

func TestRetryPolicyDefaults(t *testing.T) {
	policy := RetryPolicy{}.withDefaults()

	require.Equal(t, 3, policy.MaxAttempts)
	require.Equal(t, 10*time.Second, policy.RetryAfterDefault)
	require.Equal(t, 2*time.Second, policy.Backoff(1))
	require.True(t, policy.Retryable(http.StatusBadGateway))

	custom := RetryPolicy{MaxAttempts: 5, Retryable: func(int) bool { return false }}.withDefaults()
	require.Equal(t, 5, custom.MaxAttempts)
	require.False(t, custom.Retryable(http.StatusBadGateway))
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fallback := 10 * time.Second

	header := func(value string) http.Header {
		h := http.Header{}
		if value != "" {
			h.Set("Retry-After", value)
		}
		return h
	}

	require.Equal(t, 3*time.Second, retryAfter(header("3"), now, fallback))
	require.Equal(t, 1500*time.Millisecond, retryAfter(header("1.5"), now, fallback))
	require.Equal(t, time.Duration(0), retryAfter(header("0"), now, fallback))
	require.Equal(t, 30*time.Second, retryAfter(header(now.Add(30*time.Second).Format(http.TimeFormat)), now, fallback))
	require.Equal(t, time.Duration(0), retryAfter(header(now.Add(-time.Minute).Format(http.TimeFormat)), now, fallback))
	require.Equal(t, fallback, retryAfter(header(""), now, fallback))
	require.Equal(t, fallback, retryAfter(header("-4"), now, fallback))
	require.Equal(t, fallback, retryAfter(header("soon"), now, fallback))
	require.Equal(t, fallback, retryAfter(nil, now, fallback))
	require.Equal(t, fallback, retryAfter(header("NaN"), now, fallback))

	require.Equal(t, maxRetryAfter, retryAfter(header("1e20"), now, fallback))
	require.Equal(t, maxRetryAfter, retryAfter(header("+Inf"), now, fallback))
	require.Equal(t, maxRetryAfter, retryAfter(header("86400"), now, fallback))
	require.Equal(t, maxRetryAfter, retryAfter(header(now.AddDate(1, 0, 0).Format(http.TimeFormat)), now, fallback))
}

func TestParseProviderLimitsIgnoresMissingHeaders(t *testing.T) {
	limits := parseProviderLimits(http.Header{})
	require.False(t, limits.Present)

	h := http.Header{}
	h.Set("X-HubSpot-RateLimit-Daily-Remaining", "12")
	h.Set("X-HubSpot-RateLimit-Max", "garbage")
	limits = parseProviderLimits(h)
	require.True(t, limits.Present)
	require.Equal(t, 12, limits.DailyRemaining)
	require.Zero(t, limits.Max)
}
