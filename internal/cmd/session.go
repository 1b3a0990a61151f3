package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parcelops/hubsync/internal/config"
	apperrors "github.com/parcelops/hubsync/internal/errors"
	"github.com/parcelops/hubsync/internal/hubspot"
	"github.com/parcelops/hubsync/internal/observability"
)

// session is everything a command needs to talk to HubSpot: one manager, so every request the
// command makes shares one limiter.
type session struct {
	cfg      *config.Config
	manager  *hubspot.SyncManager
	logger   *zap.Logger
	registry *prometheus.Registry
}

// managerOptions lets tests point the manager at a fake server or a mock clock.
var managerOptions []hubspot.Option

func openSession(cmd *cobra.Command) (*session, error) {
	overrides := map[string]any{}
	if verbose {
		overrides["logging.level"] = "debug"
	}

	cfg, err := config.Load(cfgFile, overrides)
	if err != nil {
		return nil, apperrors.WrapConfigInvalid(err, "failed to load configuration")
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, verbose)
	if err != nil {
		return nil, apperrors.WrapConfigInvalid(err, "failed to build logger")
	}

	registry := prometheus.NewRegistry()
	opts := []hubspot.Option{
		hubspot.WithRateLimit(cfg.LimiterConfig()),
		hubspot.WithRetryPolicy(cfg.RetryPolicy()),
		hubspot.WithLogger(logger),
		hubspot.WithMetrics(registry),
	}
	opts = append(opts, managerOptions...)

	manager, err := hubspot.NewSyncManager(cfg.ClientConfig(), opts...)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	logger.Debug("hubspot client ready",
		zap.String("command", cmd.CommandPath()),
		zap.String("base_url", manager.Config().BaseURL),
		zap.Int("burst_capacity", cfg.RateLimit.BurstCapacity),
		zap.Int("daily_capacity", cfg.RateLimit.DailyCapacity),
	)

	return &session{cfg: cfg, manager: manager, logger: logger, registry: registry}, nil
}

// close logs what the command cost in requests and retries, then flushes the logger.
func (s *session) close() {
	if s == nil {
		return
	}

	fields := []zap.Field{}
	if families, err := s.registry.Gather(); err == nil {
		for _, family := range families {
			total := 0.0
			for _, metric := range family.GetMetric() {
				if counter := metric.GetCounter(); counter != nil {
					total += counter.GetValue()
				}
			}
			if total > 0 {
				fields = append(fields, zap.Float64(family.GetName(), total))
			}
		}
	}

	stats := s.manager.Stats()
	fields = append(fields,
		zap.Int64("limiter_waits", stats.TotalWaits),
		zap.Duration("limiter_wait_time", stats.TotalWaitTime),
		zap.String("daily_tokens_available", fmt.Sprintf("%.0f", stats.DailyTokensAvailable)),
	)
	s.logger.Debug("session finished", fields...)
	_ = s.logger.Sync()
}
