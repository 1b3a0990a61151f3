package hubspot

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/parcelops/hubsync/internal/ratelimit"
)

// Metrics instruments dispatcher traffic. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the dispatcher collectors with registry. Managers sharing a registry share
// the collectors already registered there.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	requests, err := register(registry, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hubsync",
		Subsystem: "hubspot",
		Name:      "requests_total",
		Help:      "HubSpot API attempts by method and status code. 'code' is 0 when no response was received.",
	}, []string{"method", "code"}))
	if err != nil {
		return nil, err
	}
	retries, err := register(registry, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hubsync",
		Subsystem: "hubspot",
		Name:      "retries_total",
		Help:      "HubSpot API retries by reason.",
	}, []string{"reason"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(registry, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hubsync",
		Subsystem: "hubspot",
		Name:      "request_duration_seconds",
		Help:      "Latency of individual HubSpot API attempts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"}))
	if err != nil {
		return nil, err
	}

	return &Metrics{requests: requests, retries: retries, duration: duration}, nil
}

// register adds collector to registry, returning the collector registered earlier under the same
// descriptor when there is one.
func register[C prometheus.Collector](registry prometheus.Registerer, collector C) (C, error) {
	if err := registry.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return collector, nil
}

func (m *Metrics) observeAttempt(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (m *Metrics) observeRetry(reason string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(reason).Inc()
}

// RegisterLimiterGauges exposes the available tokens of both limiter tiers. When the registry already
// reports a limiter, the first registration keeps reporting and limiter is not added.
func RegisterLimiterGauges(registry prometheus.Registerer, limiter *ratelimit.Limiter) error {
	if registry == nil || limiter == nil {
		return nil
	}

	tiers := map[string]func(ratelimit.Stats) float64{
		"burst": func(s ratelimit.Stats) float64 { return s.BurstTokensAvailable },
		"daily": func(s ratelimit.Stats) float64 { return s.DailyTokensAvailable },
	}
	for tier, pick := range tiers {
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "hubsync",
			Subsystem:   "ratelimit",
			Name:        "tokens_available",
			Help:        "Tokens currently available in a rate limiter tier.",
			ConstLabels: prometheus.Labels{"tier": tier},
		}, func() float64 { return pick(limiter.Stats()) })
		if _, err := register[prometheus.Collector](registry, gauge); err != nil {
			return err
		}
	}
	return nil
}
