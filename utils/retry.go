package utils

import (
	"context"
	"time"
)

// RetryPolicy is the single retry/backoff policy for network-facing
// operations. Delays follow min(BaseDelay * 2^(attempt-1), CapDelay).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	CapDelay    time.Duration

	// IsRetriable filters errors; nil means every error is retriable.
	IsRetriable func(error) bool

	// Sleep is overridable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// DefaultConnectPolicy matches the document store adapter defaults:
// 3 attempts, 2s initial backoff, 30s cap.
func DefaultConnectPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		CapDelay:    30 * time.Second,
	}
}

// Delay returns the backoff before retrying after the given 1-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.CapDelay > 0 && d >= p.CapDelay {
			return p.CapDelay
		}
	}
	if p.CapDelay > 0 && d > p.CapDelay {
		return p.CapDelay
	}
	return d
}

// Do runs op up to MaxAttempts times, sleeping Delay(attempt) between
// attempts. It returns nil on the first success, the last error once
// attempts are exhausted, or immediately when the error is not retriable
// or the context is done.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if p.IsRetriable != nil && !p.IsRetriable(lastErr) {
			return lastErr
		}
		if attempt < maxAttempts {
			sleep(p.Delay(attempt))
		}
	}
	return lastErr
}
