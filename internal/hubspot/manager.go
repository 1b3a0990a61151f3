// Package hubspot is a rate-limited client for the HubSpot CRM API.
//
// A SyncManager owns one dual-tier limiter and one HTTP client. Every typed method builds a request
// envelope, sends it through the Dispatcher (which acquires a limiter token per attempt and applies the
// retry policy) and unwraps the response. Share one manager between goroutines to share its quota.
package hubspot

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/parcelops/hubsync/internal/ratelimit"
)

// Option customizes a SyncManager.
type Option func(*managerOptions)

type managerOptions struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	rateLimit  ratelimit.Config
	retry      *RetryPolicy
	logger     *zap.Logger
	clock      quartz.Clock
	registry   prometheus.Registerer
}

// WithHTTPClient replaces the HTTP client. Its Timeout is set from the config when zero.
func WithHTTPClient(client *http.Client) Option {
	return func(o *managerOptions) { o.httpClient = client }
}

// WithLimiter shares an existing limiter instead of building one.
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(o *managerOptions) { o.limiter = limiter }
}

// WithRateLimit sizes the limiter the manager builds. Ignored when WithLimiter is given.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(o *managerOptions) { o.rateLimit = cfg }
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(o *managerOptions) { o.retry = &policy }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *managerOptions) { o.logger = logger }
}

// WithClock drives limiter waits and retry sleeps from clock.
func WithClock(clock quartz.Clock) Option {
	return func(o *managerOptions) { o.clock = clock }
}

// WithMetrics registers dispatcher and limiter collectors with registry.
func WithMetrics(registry prometheus.Registerer) Option {
	return func(o *managerOptions) { o.registry = registry }
}

// SyncManager is the typed CRM surface over one dispatcher.
type SyncManager struct {
	config     ClientConfig
	limiter    *ratelimit.Limiter
	dispatcher *Dispatcher
	clock      quartz.Clock
	logger     *zap.Logger
}

// NewSyncManager validates cfg and wires the limiter, HTTP client and dispatcher.
func NewSyncManager(cfg ClientConfig, opts ...Option) (*SyncManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	options := managerOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.clock == nil {
		options.clock = quartz.NewReal()
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	limiter := options.limiter
	if limiter == nil {
		var err error
		limiter, err = ratelimit.New(options.rateLimit, ratelimit.WithClock(options.clock))
		if err != nil {
			return nil, err
		}
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if options.httpClient != nil {
		copied := *options.httpClient
		if copied.Timeout == 0 {
			copied.Timeout = cfg.Timeout
		}
		client = &copied
	}

	retry := DefaultRetryPolicy()
	if options.retry != nil {
		retry = options.retry.withDefaults()
	}

	var metrics *Metrics
	if options.registry != nil {
		var err error
		if metrics, err = NewMetrics(options.registry); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		if err := RegisterLimiterGauges(options.registry, limiter); err != nil {
			return nil, fmt.Errorf("register limiter metrics: %w", err)
		}
	}

	return &SyncManager{
		config:  cfg,
		limiter: limiter,
		dispatcher: &Dispatcher{
			Client:  client,
			Limiter: limiter,
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Retry:   retry,
			Clock:   options.clock,
			Logger:  options.logger.Named("hubspot"),
			Metrics: metrics,
		},
		clock:  options.clock,
		logger: options.logger,
	}, nil
}

// Config returns a copy of the manager configuration.
func (m *SyncManager) Config() ClientConfig {
	if m == nil {
		return ClientConfig{}
	}
	return m.config
}

// Stats returns a snapshot of the limiter.
func (m *SyncManager) Stats() ratelimit.Stats {
	if m == nil || m.limiter == nil {
		return ratelimit.Stats{}
	}
	return m.limiter.Stats()
}

// Dispatch sends a raw request for endpoints without a typed method.
func (m *SyncManager) Dispatch(ctx context.Context, req Request) (*Response, error) {
	if m == nil || m.dispatcher == nil {
		return nil, ErrNotConfigured
	}
	return m.dispatcher.Dispatch(ctx, req)
}
