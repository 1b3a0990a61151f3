package hubspot

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMaxAttempts       = 3
	DefaultBaseBackoff       = time.Second
	DefaultRetryAfterDefault = 10 * time.Second

	maxBackoffShift = 20
	// maxRetryAfter bounds a single Retry-After wait.
	maxRetryAfter = time.Hour
)

// RetryPolicy decides how many attempts a request gets and how long to wait between them.
type RetryPolicy struct {
	// MaxAttempts counts every attempt including the first.
	MaxAttempts int
	// Backoff returns the wait after a failed attempt (0-based) for server errors and transport failures.
	Backoff func(attempt int) time.Duration
	// RetryAfterDefault applies to 429 responses without a usable Retry-After header.
	RetryAfterDefault time.Duration
	// Retryable reports whether a non-2xx status should be retried.
	Retryable func(status int) bool
}

// DefaultRetryPolicy retries 429 and 5xx responses up to three attempts with 1s, 2s, 4s... backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       DefaultMaxAttempts,
		Backoff:           ExponentialBackoff(DefaultBaseBackoff),
		RetryAfterDefault: DefaultRetryAfterDefault,
		Retryable:         DefaultRetryable,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Backoff == nil {
		p.Backoff = ExponentialBackoff(DefaultBaseBackoff)
	}
	if p.RetryAfterDefault <= 0 {
		p.RetryAfterDefault = DefaultRetryAfterDefault
	}
	if p.Retryable == nil {
		p.Retryable = DefaultRetryable
	}
	return p
}

// ExponentialBackoff returns base * 2^attempt.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		if attempt > maxBackoffShift {
			attempt = maxBackoffShift
		}
		return base * time.Duration(1<<attempt)
	}
}

// DefaultRetryable retries rate limiting and server errors.
func DefaultRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// retryAfter reads Retry-After as delta seconds or an HTTP date.
func retryAfter(header http.Header, now time.Time, fallback time.Duration) time.Duration {
	if header == nil {
		return fallback
	}
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return fallback
	}

	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		// NaN fails both comparisons.
		if !(seconds >= 0) {
			return fallback
		}
		if seconds > maxRetryAfter.Seconds() {
			return maxRetryAfter
		}
		return time.Duration(seconds * float64(time.Second))
	}
	if parsed, err := http.ParseTime(value); err == nil {
		wait := parsed.Sub(now)
		if wait <= 0 {
			return 0
		}
		return min(wait, maxRetryAfter)
	}
	return fallback
}
