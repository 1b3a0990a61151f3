package hubspot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/parcelops/hubsync/internal/ratelimit"
)

const testToken = "test-token"

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newTestManager(t *testing.T, handler http.Handler, opts ...Option) (*SyncManager, *quartz.Mock) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	clock := quartz.NewMock(t)
	base := []Option{WithHTTPClient(server.Client()), WithClock(clock)}
	manager, err := NewSyncManager(ClientConfig{
		APIKey:            testToken,
		BaseURL:           server.URL,
		DefaultOwnerID:    "42",
		DefaultPipelineID: "default",
	}, append(base, opts...)...)
	require.NoError(t, err)
	return manager, clock
}

type dispatchResult struct {
	resp *Response
	err  error
}

func dispatchAsync(ctx context.Context, m *SyncManager, req Request) <-chan dispatchResult {
	done := make(chan dispatchResult, 1)
	go func() {
		resp, err := m.Dispatch(ctx, req)
		done <- dispatchResult{resp: resp, err: err}
	}()
	return done
}

func awaitResult(ctx context.Context, t *testing.T, done <-chan dispatchResult) dispatchResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		t.Fatal("dispatch did not finish")
		return dispatchResult{}
	}
}

func TestNewSyncManagerRequiresAPIKey(t *testing.T) {
	_, err := NewSyncManager(ClientConfig{})
	require.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewSyncManager(ClientConfig{APIKey: "x", BaseURL: "not a url"})
	require.Error(t, err)

	manager, err := NewSyncManager(ClientConfig{APIKey: " x "})
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, manager.Config().BaseURL)
	require.Equal(t, DefaultTimeout, manager.Config().Timeout)
	require.Equal(t, "x", manager.Config().APIKey)
}

func TestDispatchSendsHeadersAndParsesLimits(t *testing.T) {
	var got http.Header
	router := chi.NewRouter()
	router.Post("/crm/v3/objects/deals", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("X-HubSpot-RateLimit-Max", "100")
		w.Header().Set("X-HubSpot-RateLimit-Remaining", "97")
		w.Header().Set("X-HubSpot-RateLimit-Interval-Milliseconds", "10000")
		w.Header().Set("X-HubSpot-RateLimit-Daily", "250000")
		w.Header().Set("X-HubSpot-RateLimit-Daily-Remaining", "249000")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"7"}`))
	})
	manager, _ := newTestManager(t, router)

	resp, err := manager.Dispatch(testContext(t), Request{
		Method: http.MethodPost,
		Path:   "crm/v3/objects/deals",
		Body:   map[string]any{"properties": map[string]string{"dealname": "x"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer "+testToken, got.Get("Authorization"))
	require.Equal(t, "application/json", got.Get("Accept"))
	require.Equal(t, "application/json", got.Get("Content-Type"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, 1, resp.Attempts)
	require.NotEmpty(t, resp.RequestID)
	require.Equal(t, ProviderLimits{
		Present:        true,
		Max:            100,
		Remaining:      97,
		Interval:       10 * time.Second,
		Daily:          250000,
		DailyRemaining: 249000,
	}, resp.Limits)

	var obj Object
	require.NoError(t, resp.Decode(&obj))
	require.Equal(t, "7", obj.ID)
	require.Equal(t, int64(1), manager.Stats().TotalRequests)
}

func TestDispatchRetriesServerErrorsWithBackoff(t *testing.T) {
	var hits atomic.Int32
	router := chi.NewRouter()
	router.Get("/crm/v3/objects/deals/1", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"error","message":"try later"}`))
	})
	manager, clock := newTestManager(t, router)
	ctx := testContext(t)

	trap := clock.Trap().NewTimer("hubspot", "backoff")
	defer trap.Close()

	done := dispatchAsync(ctx, manager, Request{Method: http.MethodGet, Path: "/crm/v3/objects/deals/1"})

	for _, want := range []time.Duration{time.Second, 2 * time.Second} {
		call := trap.MustWait(ctx)
		require.Equal(t, want, call.Duration)
		call.MustRelease(ctx)
		clock.Advance(want).MustWait(ctx)
	}

	res := awaitResult(ctx, t, done)
	require.Nil(t, res.resp)
	require.ErrorIs(t, res.err, ErrServerError)

	var apiErr *APIError
	require.ErrorAs(t, res.err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	require.Equal(t, 3, apiErr.Attempts)
	require.Equal(t, "try later", apiErr.Message)
	require.Equal(t, int32(3), hits.Load())
	require.Equal(t, int64(3), manager.Stats().TotalRequests)
}

func TestDispatchDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	router := chi.NewRouter()
	router.Get("/crm/v3/objects/deals/{id}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":"error","message":"Object not found. objectId are usually numeric.","category":"OBJECT_NOT_FOUND","correlationId":"c0ffee"}`))
	})
	manager, _ := newTestManager(t, router)

	_, err := manager.GetDeal(testContext(t), "missing", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrClientError)
	require.True(t, IsNotFound(err))
	require.Equal(t, http.StatusNotFound, StatusCode(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "OBJECT_NOT_FOUND", apiErr.Category)
	require.Equal(t, "c0ffee", apiErr.CorrelationID)
	require.Equal(t, 1, apiErr.Attempts)
	require.Equal(t, "/crm/v3/objects/deals/missing", apiErr.Endpoint)
	require.Equal(t, int32(1), hits.Load())
}

func TestDispatchHonorsRetryAfter(t *testing.T) {
	var hits atomic.Int32
	router := chi.NewRouter()
	router.Get("/crm/v3/owners", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":"error","category":"RATE_LIMITS"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	registry := prometheus.NewRegistry()
	manager, clock := newTestManager(t, router, WithMetrics(registry))
	ctx := testContext(t)

	trap := clock.Trap().NewTimer("hubspot", "retry_after")
	defer trap.Close()

	done := dispatchAsync(ctx, manager, Request{Method: http.MethodGet, Path: "/crm/v3/owners"})

	call := trap.MustWait(ctx)
	require.Equal(t, 2*time.Second, call.Duration)
	call.MustRelease(ctx)
	clock.Advance(2 * time.Second).MustWait(ctx)

	res := awaitResult(ctx, t, done)
	require.NoError(t, res.err)
	require.Equal(t, 2, res.resp.Attempts)
	require.Equal(t, int32(2), hits.Load())

	metrics := manager.dispatcher.Metrics
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.retries.WithLabelValues("rate_limited")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "429")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "200")))

	count, err := testutil.GatherAndCount(registry, "hubsync_ratelimit_tokens_available")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestDispatchCapsOversizedRetryAfter(t *testing.T) {
	var hits atomic.Int32
	router := chi.NewRouter()
	router.Get("/crm/v3/owners", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1e20")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	manager, clock := newTestManager(t, router)
	ctx := testContext(t)

	trap := clock.Trap().NewTimer("hubspot", "retry_after")
	defer trap.Close()

	done := dispatchAsync(ctx, manager, Request{Method: http.MethodGet, Path: "/crm/v3/owners"})

	call := trap.MustWait(ctx)
	require.Equal(t, maxRetryAfter, call.Duration)
	call.MustRelease(ctx)
	clock.Advance(maxRetryAfter).MustWait(ctx)

	res := awaitResult(ctx, t, done)
	require.NoError(t, res.err)
	require.Equal(t, int32(2), hits.Load())
}

func TestManagersShareMetricsRegistry(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/crm/v3/owners", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	registry := prometheus.NewRegistry()
	first, _ := newTestManager(t, router, WithMetrics(registry))
	second, _ := newTestManager(t, router, WithMetrics(registry))
	ctx := testContext(t)

	for _, manager := range []*SyncManager{first, second} {
		_, err := manager.Dispatch(ctx, Request{Method: http.MethodGet, Path: "/crm/v3/owners"})
		require.NoError(t, err)
	}

	require.Same(t, first.dispatcher.Metrics.requests, second.dispatcher.Metrics.requests)
	require.Equal(t, 2.0, testutil.ToFloat64(first.dispatcher.Metrics.requests.WithLabelValues(http.MethodGet, "200")))

	count, err := testutil.GatherAndCount(registry, "hubsync_ratelimit_tokens_available")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestNewSyncManagerReportsMetricsConflict(t *testing.T) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hubsync_hubspot_requests_total",
		Help: "Conflicting labels.",
	}, []string{"path"}))

	_, err := NewSyncManager(ClientConfig{APIKey: testToken}, WithMetrics(registry))
	require.Error(t, err)
	require.Contains(t, err.Error(), "register metrics")
}

func TestDispatchRateLimitedExhaustsAttempts(t *testing.T) {
	var hits atomic.Int32
	router := chi.NewRouter()
	router.Get("/crm/v3/owners", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	manager, clock := newTestManager(t, router, WithRetryPolicy(RetryPolicy{MaxAttempts: 2}))
	ctx := testContext(t)

	trap := clock.Trap().NewTimer("hubspot", "retry_after")
	defer trap.Close()

	done := dispatchAsync(ctx, manager, Request{Method: http.MethodGet, Path: "/crm/v3/owners"})

	call := trap.MustWait(ctx)
	require.Equal(t, DefaultRetryAfterDefault, call.Duration)
	call.MustRelease(ctx)
	clock.Advance(DefaultRetryAfterDefault).MustWait(ctx)

	res := awaitResult(ctx, t, done)
	require.ErrorIs(t, res.err, ErrRateLimited)
	var apiErr *APIError
	require.ErrorAs(t, res.err, &apiErr)
	require.Equal(t, DefaultRetryAfterDefault, apiErr.RetryAfter)
	require.Equal(t, 2, apiErr.Attempts)
	require.Equal(t, int32(2), hits.Load())
}

func TestDispatchFailsFastWhenDailyQuotaExhausted(t *testing.T) {
	var hits atomic.Int32
	router := chi.NewRouter()
	router.Get("/crm/v3/owners", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	manager, _ := newTestManager(t, router, WithRateLimit(ratelimit.Config{
		BurstCapacity: 100,
		BurstWindow:   10 * time.Second,
		DailyCapacity: 1,
		DailyWindow:   24 * time.Hour,
	}))
	ctx := testContext(t)

	_, err := manager.Dispatch(ctx, Request{Method: http.MethodGet, Path: "/crm/v3/owners"})
	require.NoError(t, err)

	_, err = manager.Dispatch(ctx, Request{Method: http.MethodGet, Path: "/crm/v3/owners"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRateLimitExhausted)
	require.True(t, errors.Is(err, ratelimit.ErrExhausted))

	var exhausted *ratelimit.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, int32(1), hits.Load())
}

func TestDispatchRetriesTimeouts(t *testing.T) {
	var hits atomic.Int32
	router := chi.NewRouter()
	router.Get("/crm/v3/owners", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	manager, clock := newTestManager(t, router,
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 2}),
	)
	ctx := testContext(t)

	trap := clock.Trap().NewTimer("hubspot", "backoff")
	defer trap.Close()

	done := dispatchAsync(ctx, manager, Request{Method: http.MethodGet, Path: "/crm/v3/owners"})

	call := trap.MustWait(ctx)
	require.Equal(t, time.Second, call.Duration)
	call.MustRelease(ctx)
	clock.Advance(time.Second).MustWait(ctx)

	res := awaitResult(ctx, t, done)
	require.ErrorIs(t, res.err, ErrTimeout)
	require.Equal(t, int32(2), hits.Load())
}

func TestDispatchReportsTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	manager, err := NewSyncManager(ClientConfig{APIKey: testToken, BaseURL: baseURL},
		WithRetryPolicy(RetryPolicy{MaxAttempts: 1}),
		WithClock(quartz.NewMock(t)),
	)
	require.NoError(t, err)

	_, err = manager.Dispatch(testContext(t), Request{Method: http.MethodGet, Path: "/crm/v3/owners"})
	require.ErrorIs(t, err, ErrTransport)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Zero(t, apiErr.StatusCode)
	require.NotNil(t, apiErr.Err)
}

func TestDispatchStopsOnCancellationDuringBackoff(t *testing.T) {
	var hits atomic.Int32
	router := chi.NewRouter()
	router.Get("/crm/v3/owners", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	manager, clock := newTestManager(t, router)
	ctx := testContext(t)

	trap := clock.Trap().NewTimer("hubspot", "backoff")
	defer trap.Close()

	callCtx, cancel := context.WithCancel(ctx)
	done := dispatchAsync(callCtx, manager, Request{Method: http.MethodGet, Path: "/crm/v3/owners"})

	call := trap.MustWait(ctx)
	call.MustRelease(ctx)
	cancel()

	res := awaitResult(ctx, t, done)
	require.ErrorIs(t, res.err, context.Canceled)
	require.Equal(t, int32(1), hits.Load())
}

func TestDispatchRejectsEmptyPath(t *testing.T) {
	manager, _ := newTestManager(t, http.NotFoundHandler())

	_, err := manager.Dispatch(testContext(t), Request{Method: http.MethodGet})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Zero(t, manager.Stats().TotalRequests)
}
