package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
)

// Deadline runs fn under a context that expires after d and stops waiting
// for it once that happens; fn is expected to observe ctx and return soon
// after. A non-positive d runs fn directly. An expired deadline yields an
// error matching both apperrors.ErrTimeout and context.DeadlineExceeded.
func Deadline[T any](ctx context.Context, d time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if cause := context.Cause(ctx); cause != context.DeadlineExceeded {
			return zero, fmt.Errorf("%s: %w", name, cause)
		}
		return zero, fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, d, context.DeadlineExceeded)
	}
}
