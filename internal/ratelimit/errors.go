package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// ErrExhausted matches any *ExhaustedError.
var ErrExhausted = errors.New("daily rate limit exhausted")

// ExhaustedError reports a daily tier that cannot recover within the configured wait threshold.
// It is a capacity problem for an operator, so callers should not retry it automatically.
type ExhaustedError struct {
	Requested int
	Available float64
	RetryIn   time.Duration
	Threshold time.Duration
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("daily rate limit exhausted: %d token(s) requested, %.2f available, recovery in %s exceeds %s",
		e.Requested, e.Available, e.RetryIn.Round(time.Second), e.Threshold)
}

// Is lets errors.Is(err, ErrExhausted) match.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}
