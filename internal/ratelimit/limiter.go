// Package ratelimit provides a dual-tier token bucket shared by every caller of one API client.
//
// A Limiter enforces a short burst window and a long daily window at the same time. Both tiers refill
// lazily from wall-clock time, so the limiter never runs a background goroutine.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Defaults mirror HubSpot's published limits for private apps.
const (
	DefaultBurstCapacity = 100
	DefaultBurstWindow   = 10 * time.Second
	DefaultDailyCapacity = 150000
	DefaultDailyWindow   = 24 * time.Hour
	DefaultMaxDailyWait  = time.Hour

	recentWindow = time.Minute
)

// ErrInvalidRequest is returned when a token request can never be satisfied.
var ErrInvalidRequest = errors.New("invalid token request")

// Config sizes both tiers. Zero fields take the package defaults.
type Config struct {
	BurstCapacity int
	BurstWindow   time.Duration
	DailyCapacity int
	DailyWindow   time.Duration
	// MaxDailyWait is the longest the limiter blocks for the daily tier before failing fast.
	MaxDailyWait time.Duration
}

// DefaultConfig returns the provider defaults.
func DefaultConfig() Config {
	return Config{
		BurstCapacity: DefaultBurstCapacity,
		BurstWindow:   DefaultBurstWindow,
		DailyCapacity: DefaultDailyCapacity,
		DailyWindow:   DefaultDailyWindow,
		MaxDailyWait:  DefaultMaxDailyWait,
	}
}

func (c Config) withDefaults() Config {
	if c.BurstCapacity == 0 {
		c.BurstCapacity = DefaultBurstCapacity
	}
	if c.BurstWindow == 0 {
		c.BurstWindow = DefaultBurstWindow
	}
	if c.DailyCapacity == 0 {
		c.DailyCapacity = DefaultDailyCapacity
	}
	if c.DailyWindow == 0 {
		c.DailyWindow = DefaultDailyWindow
	}
	if c.MaxDailyWait == 0 {
		c.MaxDailyWait = DefaultMaxDailyWait
	}
	return c
}

// Validate reports configuration values that cannot produce a working limiter.
func (c Config) Validate() error {
	switch {
	case c.BurstCapacity < 0:
		return fmt.Errorf("burst capacity must be positive, got %d", c.BurstCapacity)
	case c.BurstWindow < 0:
		return fmt.Errorf("burst window must be positive, got %s", c.BurstWindow)
	case c.DailyCapacity < 0:
		return fmt.Errorf("daily capacity must be positive, got %d", c.DailyCapacity)
	case c.DailyWindow < 0:
		return fmt.Errorf("daily window must be positive, got %s", c.DailyWindow)
	case c.MaxDailyWait < 0:
		return fmt.Errorf("max daily wait must not be negative, got %s", c.MaxDailyWait)
	}
	return nil
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock quartz.Clock) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// Limiter is a dual-tier token bucket. It is safe for concurrent use; waiters are not served in FIFO order.
type Limiter struct {
	clock        quartz.Clock
	maxDailyWait time.Duration

	mu            sync.Mutex
	burst         bucket
	daily         bucket
	totalRequests int64
	totalWaits    int64
	totalWaitTime time.Duration
	recent        []time.Time
}

// New builds a limiter with both tiers full.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	l := &Limiter{
		clock:        quartz.NewReal(),
		maxDailyWait: cfg.MaxDailyWait,
	}
	for _, opt := range opts {
		opt(l)
	}

	now := l.clock.Now()
	l.burst = newBucket(cfg.BurstCapacity, cfg.BurstWindow, now)
	l.daily = newBucket(cfg.DailyCapacity, cfg.DailyWindow, now)
	return l, nil
}

// Acquire blocks until tokens are available in both tiers, debits them and returns how long the
// caller waited. The wait is exactly zero when the tokens were available on entry.
//
// When the daily tier cannot recover within the configured maximum wait, Acquire returns an
// *ExhaustedError immediately instead of blocking.
func (l *Limiter) Acquire(ctx context.Context, tokens int) (time.Duration, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tokens <= 0 {
		return 0, fmt.Errorf("%w: tokens must be positive, got %d", ErrInvalidRequest, tokens)
	}
	if tokens > l.burst.capacity || tokens > l.daily.capacity {
		return 0, fmt.Errorf("%w: %d tokens exceed bucket capacity", ErrInvalidRequest, tokens)
	}

	start := l.clock.Now()
	waited := false
	for {
		wait, waitedFor, err := l.reserve(tokens, start, waited)
		if err != nil {
			return 0, err
		}
		if wait == 0 {
			return waitedFor, nil
		}

		waited = true
		timer := l.clock.NewTimer(wait, "ratelimit", "acquire")
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve runs one refill/check/debit pass under the mutex. It returns the time to sleep before the
// next pass, or zero together with the total wait when the tokens were debited.
func (l *Limiter) reserve(tokens int, start time.Time, waited bool) (time.Duration, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.burst.refill(now)
	l.daily.refill(now)

	dailyWait := l.daily.deficitWait(tokens)
	if dailyWait > l.maxDailyWait {
		return 0, 0, &ExhaustedError{
			Requested: tokens,
			Available: l.daily.tokens,
			RetryIn:   dailyWait,
			Threshold: l.maxDailyWait,
		}
	}

	burstWait := l.burst.deficitWait(tokens)
	if dailyWait > 0 || burstWait > 0 {
		return max(dailyWait, burstWait), 0, nil
	}

	l.burst.take(tokens)
	l.daily.take(tokens)
	l.totalRequests++
	l.recent = append(pruneBefore(l.recent, now.Add(-recentWindow)), now)

	var waitedFor time.Duration
	if waited {
		waitedFor = now.Sub(start)
		l.totalWaits++
		l.totalWaitTime += waitedFor
	}
	return 0, waitedFor, nil
}

type bucket struct {
	tokens     float64
	capacity   int
	window     time.Duration
	lastRefill time.Time
}

func newBucket(capacity int, window time.Duration, now time.Time) bucket {
	return bucket{
		tokens:     float64(capacity),
		capacity:   capacity,
		window:     window,
		lastRefill: now,
	}
}

// refill adds tokens proportional to the time since the last refill and moves the refill mark to now.
func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	added := float64(elapsed) * float64(b.capacity) / float64(b.window)
	b.tokens = math.Min(float64(b.capacity), b.tokens+added)
	b.lastRefill = now
}

// deficitWait is the time needed for the bucket to hold n tokens at its refill rate.
func (b *bucket) deficitWait(n int) time.Duration {
	deficit := float64(n) - b.tokens
	if deficit <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(deficit * float64(b.window) / float64(b.capacity)))
}

func (b *bucket) take(n int) {
	b.tokens = math.Max(0, b.tokens-float64(n))
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(times) && times[idx].Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return times
	}
	return append(times[:0], times[idx:]...)
}
