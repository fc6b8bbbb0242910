package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff describes how Retry spaces its attempts. The wait before attempt
// n+1 is drawn from [d/2, d] where d = Base * 2^(n-1), capped at Cap.
type Backoff struct {
	Name     string
	Attempts int
	Base     time.Duration
	Cap      time.Duration

	// Retryable reports whether an error is worth another attempt. Nil
	// retries every error.
	Retryable func(error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Base <= 0 {
		b.Base = 100 * time.Millisecond
	}
	if b.Cap <= 0 {
		b.Cap = 10 * time.Second
	}
	if b.Name == "" {
		b.Name = "operation"
	}
	return b
}

// wait returns the jittered delay after the given 1-based attempt.
func (b Backoff) wait(attempt int) time.Duration {
	d := b.Base
	for i := 1; i < attempt && d < b.Cap; i++ {
		d *= 2
	}
	d = min(d, b.Cap)
	half := d / 2
	return half + rand.N(d-half+1)
}

// Retry calls fn until it succeeds, returns an error Retryable rejects, runs
// out of attempts or ctx ends. A rejected error is returned unwrapped.
func Retry[T any](ctx context.Context, b Backoff, fn func(context.Context) (T, error)) (T, error) {
	b = b.withDefaults()
	log := slog.Default().With("component", "retry", "operation", b.Name)

	var zero T
	var lastErr error
	for attempt := 1; attempt <= b.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, fmt.Errorf("%s: %w (last error: %v)", b.Name, err, lastErr)
			}
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return v, nil
		}
		if b.Retryable != nil && !b.Retryable(err) {
			return zero, err
		}
		lastErr = err
		if attempt == b.Attempts {
			break
		}

		wait := b.wait(attempt)
		log.Warn("attempt failed", "attempt", attempt, "of", b.Attempts, "wait", wait, "error", err)
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return zero, fmt.Errorf("%s: %w (last error: %v)", b.Name, ctx.Err(), lastErr)
		}
	}
	return zero, fmt.Errorf("%s: giving up after %d attempts: %w", b.Name, b.Attempts, lastErr)
}
