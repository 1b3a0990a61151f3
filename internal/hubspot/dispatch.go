package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parcelops/hubsync/internal/ratelimit"
)

// Request is one logical API call. Body, when set, is encoded as JSON once and resent on every attempt.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Response is a successful (2xx) API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Limits     ProviderLimits
	Attempts   int
	RequestID  string
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ProviderLimits are the rate-limit headers HubSpot echoes on each response.
// They are informational; the local limiter never adjusts from them.
type ProviderLimits struct {
	Present        bool          `json:"present" yaml:"present"`
	Max            int           `json:"max,omitempty" yaml:"max,omitempty"`
	Remaining      int           `json:"remaining,omitempty" yaml:"remaining,omitempty"`
	Interval       time.Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	Daily          int           `json:"daily,omitempty" yaml:"daily,omitempty"`
	DailyRemaining int           `json:"daily_remaining,omitempty" yaml:"daily_remaining,omitempty"`
}

func parseProviderLimits(header http.Header) ProviderLimits {
	var limits ProviderLimits
	if header == nil {
		return limits
	}

	readInt := func(key string, dst *int) {
		value := strings.TrimSpace(header.Get(key))
		if value == "" {
			return
		}
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = parsed
			limits.Present = true
		}
	}

	var intervalMS int
	readInt("X-HubSpot-RateLimit-Max", &limits.Max)
	readInt("X-HubSpot-RateLimit-Remaining", &limits.Remaining)
	readInt("X-HubSpot-RateLimit-Interval-Milliseconds", &intervalMS)
	readInt("X-HubSpot-RateLimit-Daily", &limits.Daily)
	readInt("X-HubSpot-RateLimit-Daily-Remaining", &limits.DailyRemaining)
	limits.Interval = time.Duration(intervalMS) * time.Millisecond
	return limits
}

// Dispatcher sends requests through the shared limiter and applies the retry policy.
type Dispatcher struct {
	Client  *http.Client
	Limiter *ratelimit.Limiter
	BaseURL string
	APIKey  string
	Retry   RetryPolicy
	Clock   quartz.Clock
	Logger  *zap.Logger
	Metrics *Metrics
}

type requestAttempt struct {
	id        string
	method    string
	endpoint  string
	attempt   int
	startedAt time.Time
}

// Dispatch performs req, retrying 429, 5xx and transport failures per the retry policy.
//
// Every attempt acquires one limiter token first. Limiter failures, including daily exhaustion,
// are returned immediately and never retried. Other 4xx responses fail without retry.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Response, error) {
	if d == nil || d.Limiter == nil {
		return nil, ErrNotConfigured
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	endpoint, err := d.endpoint(req)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if req.Body != nil {
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	policy := d.Retry.withDefaults()
	clock := d.clock()
	requestID := uuid.New().String()

	var lastErr *APIError
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if _, err := d.Limiter.Acquire(ctx, 1); err != nil {
			if errors.Is(err, ratelimit.ErrExhausted) {
				return nil, &APIError{
					Kind:      ErrRateLimitExhausted,
					Method:    method,
					Endpoint:  req.Path,
					Attempts:  attempt,
					RequestID: requestID,
					Err:       err,
				}
			}
			return nil, err
		}

		att := requestAttempt{
			id:        requestID,
			method:    method,
			endpoint:  req.Path,
			attempt:   attempt,
			startedAt: clock.Now(),
		}
		resp, err := d.do(ctx, att, endpoint, payload)

		var (
			wait   time.Duration
			reason string
			tag    = "backoff"
		)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			kind := ErrTransport
			reason = "transport"
			if isTimeout(err) {
				kind = ErrTimeout
				reason = "timeout"
			}
			lastErr = &APIError{
				Kind:      kind,
				Method:    method,
				Endpoint:  req.Path,
				Attempts:  attempt + 1,
				RequestID: requestID,
				Err:       err,
			}
			wait = policy.Backoff(attempt)
		case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
			resp.Attempts = attempt + 1
			return resp, nil
		default:
			apiErr := newStatusError(att, resp)
			if !policy.Retryable(resp.StatusCode) {
				return nil, apiErr
			}
			lastErr = apiErr
			if resp.StatusCode == http.StatusTooManyRequests {
				wait = retryAfter(resp.Header, clock.Now(), policy.RetryAfterDefault)
				apiErr.RetryAfter = wait
				reason = "rate_limited"
				tag = "retry_after"
			} else {
				wait = policy.Backoff(attempt)
				reason = "server_error"
			}
		}

		if attempt+1 >= policy.MaxAttempts {
			break
		}

		d.Metrics.observeRetry(reason)
		d.logger().Debug("retrying hubspot request",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("endpoint", req.Path),
			zap.Int("attempt", attempt+1),
			zap.String("reason", reason),
			zap.Duration("wait", wait),
		)
		if err := d.sleep(ctx, wait, tag); err != nil {
			return nil, err
		}
	}

	d.logger().Warn("hubspot request failed",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", req.Path),
		zap.Int("attempts", lastErr.Attempts),
		zap.Error(lastErr),
	)
	return nil, lastErr
}

func (d *Dispatcher) do(ctx context.Context, att requestAttempt, endpoint string, payload []byte) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, att.method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+d.APIKey)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := client.Do(httpReq)
	elapsed := d.clock().Since(att.startedAt)
	if err != nil {
		d.Metrics.observeAttempt(att.method, 0, elapsed)
		d.logger().Debug("hubspot request error",
			zap.String("request_id", att.id),
			zap.String("method", att.method),
			zap.String("endpoint", att.endpoint),
			zap.Int("attempt", att.attempt+1),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		d.Metrics.observeAttempt(att.method, 0, elapsed)
		return nil, fmt.Errorf("read response: %w", err)
	}

	d.Metrics.observeAttempt(att.method, resp.StatusCode, elapsed)
	d.logger().Debug("hubspot request",
		zap.String("request_id", att.id),
		zap.String("method", att.method),
		zap.String("endpoint", att.endpoint),
		zap.Int("attempt", att.attempt+1),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		Limits:     parseProviderLimits(resp.Header),
		RequestID:  att.id,
	}, nil
}

func (d *Dispatcher) sleep(ctx context.Context, wait time.Duration, tag string) error {
	if wait <= 0 {
		return ctx.Err()
	}
	timer := d.clock().NewTimer(wait, "hubspot", tag)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (d *Dispatcher) endpoint(req Request) (string, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return "", fmt.Errorf("%w: request path is required", ErrInvalidInput)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	base := strings.TrimRight(d.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	endpoint := base + path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}
	return endpoint, nil
}

func (d *Dispatcher) clock() quartz.Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return quartz.NewReal()
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
