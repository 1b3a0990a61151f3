package ratelimit

import "time"

// Stats is a read-only snapshot of limiter state.
type Stats struct {
	BurstTokensAvailable float64       `json:"burst_tokens_available" yaml:"burst_tokens_available"`
	BurstCapacity        int           `json:"burst_capacity" yaml:"burst_capacity"`
	BurstUtilization     float64       `json:"burst_utilization_pct" yaml:"burst_utilization_pct"`
	DailyTokensAvailable float64       `json:"daily_tokens_available" yaml:"daily_tokens_available"`
	DailyCapacity        int           `json:"daily_capacity" yaml:"daily_capacity"`
	DailyUtilization     float64       `json:"daily_utilization_pct" yaml:"daily_utilization_pct"`
	TotalRequests        int64         `json:"total_requests" yaml:"total_requests"`
	TotalWaits           int64         `json:"total_waits" yaml:"total_waits"`
	TotalWaitTime        time.Duration `json:"total_wait_time" yaml:"total_wait_time"`
	RequestsLastMinute   int           `json:"requests_last_minute" yaml:"requests_last_minute"`
	// RecentRequestRate is requests per second averaged over the last minute.
	RecentRequestRate float64 `json:"recent_request_rate" yaml:"recent_request_rate"`
}

// Stats computes a snapshot from refilled copies of both tiers without touching the limiter state.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	burst := l.burst
	daily := l.daily
	burst.refill(now)
	daily.refill(now)

	cutoff := now.Add(-recentWindow)
	recent := 0
	for _, ts := range l.recent {
		if !ts.Before(cutoff) {
			recent++
		}
	}

	return Stats{
		BurstTokensAvailable: burst.tokens,
		BurstCapacity:        burst.capacity,
		BurstUtilization:     utilization(burst),
		DailyTokensAvailable: daily.tokens,
		DailyCapacity:        daily.capacity,
		DailyUtilization:     utilization(daily),
		TotalRequests:        l.totalRequests,
		TotalWaits:           l.totalWaits,
		TotalWaitTime:        l.totalWaitTime,
		RequestsLastMinute:   recent,
		RecentRequestRate:    float64(recent) / recentWindow.Seconds(),
	}
}

func utilization(b bucket) float64 {
	if b.capacity == 0 {
		return 0
	}
	return (float64(b.capacity) - b.tokens) / float64(b.capacity) * 100
}
