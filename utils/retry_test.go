package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy_DelayMonotonicUpToCap(t *testing.T) {
	p := DefaultConnectPolicy()

	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		d := p.Delay(attempt)
		if d < prev {
			t.Fatalf("delay decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		if d > p.CapDelay {
			t.Fatalf("delay exceeded cap at attempt %d: %v", attempt, d)
		}
		prev = d
	}

	if got := p.Delay(1); got != 2*time.Second {
		t.Fatalf("first delay: got %v, want 2s", got)
	}
	if got := p.Delay(2); got != 4*time.Second {
		t.Fatalf("second delay: got %v, want 4s", got)
	}
	// 2s << 5 = 64s, clamped.
	if got := p.Delay(6); got != 30*time.Second {
		t.Fatalf("capped delay: got %v, want 30s", got)
	}
}

func TestRetryPolicy_ExhaustsExactlyMaxAttempts(t *testing.T) {
	boom := errors.New("boom")
	var attempts int
	var slept []time.Duration

	p := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		CapDelay:    30 * time.Second,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", attempts)
	}
	// No sleep after the final attempt.
	if len(slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %v", slept)
	}
	if slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Fatalf("unexpected backoff sequence: %v", slept)
	}
}

func TestRetryPolicy_StopsOnSuccess(t *testing.T) {
	var attempts int
	p := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Sleep:       func(time.Duration) {},
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryPolicy_NonRetriableStopsImmediately(t *testing.T) {
	fatal := errors.New("bad credentials")
	var attempts int
	p := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		IsRetriable: func(err error) bool { return !errors.Is(err, fatal) },
		Sleep:       func(time.Duration) {},
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryPolicy_HonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var attempts int
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: func(time.Duration) {}}
	err := p.Do(ctx, func(ctx context.Context) error {
		attempts++
		return errors.New("never retried")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 0 {
		t.Fatalf("expected no attempts, got %d", attempts)
	}
}
