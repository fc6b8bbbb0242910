package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/resilience"
)

// Guarded wraps a Store with one circuit breaker per collection, so a store
// that keeps failing is skipped quickly instead of stalling every request.
// Scoping errors are caller mistakes and do not count as failures.
type Guarded struct {
	next Store
	opts resilience.BreakerOptions

	mu       sync.Mutex
	breakers map[string]*resilience.Breaker
}

func NewGuarded(next Store, failureThreshold int, resetTimeout time.Duration, m *metrics.Metrics) *Guarded {
	opts := resilience.BreakerOptions{
		Threshold: failureThreshold,
		Cooldown:  resetTimeout,
		Ignore:    isCallerError,
	}
	if m != nil {
		opts.OnTransition = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &Guarded{
		next:     next,
		opts:     opts,
		breakers: make(map[string]*resilience.Breaker),
	}
}

func isCallerError(err error) bool {
	return errors.Is(err, apperrors.ErrUnscopedFilter) || errors.Is(err, apperrors.ErrInvalidInput)
}

func (g *Guarded) breaker(collection string) *resilience.Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.breakers[collection]
	if !ok {
		b = resilience.NewBreaker("vectorstore:"+collection, g.opts)
		g.breakers[collection] = b
	}
	return b
}

// State reports the breaker state of a collection.
func (g *Guarded) State(collection string) resilience.State {
	return g.breaker(collection).State()
}

// Breakers lists the stats of every collection touched so far.
func (g *Guarded) Breakers() []resilience.Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]resilience.Stats, 0, len(g.breakers))
	for _, b := range g.breakers {
		out = append(out, b.Stats())
	}
	slices.SortFunc(out, func(a, b resilience.Stats) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func guard[T any](g *Guarded, collection string, fn func() (T, error)) (T, error) {
	v, err := resilience.Call(g.breaker(collection), fn)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return v, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return v, err
}

func (g *Guarded) Upsert(ctx context.Context, collection string, records []Record) error {
	_, err := guard(g, collection, func() (struct{}, error) {
		return struct{}{}, g.next.Upsert(ctx, collection, records)
	})
	return err
}

func (g *Guarded) Delete(ctx context.Context, collection string, f Filter) (int, error) {
	return guard(g, collection, func() (int, error) { return g.next.Delete(ctx, collection, f) })
}

func (g *Guarded) Query(ctx context.Context, collection string, vector []float32, k int, f Filter) ([]Hit, error) {
	return guard(g, collection, func() ([]Hit, error) { return g.next.Query(ctx, collection, vector, k, f) })
}

func (g *Guarded) Count(ctx context.Context, collection string, f Filter) (int, error) {
	return guard(g, collection, func() (int, error) { return g.next.Count(ctx, collection, f) })
}

func (g *Guarded) Ping(ctx context.Context) error { return g.next.Ping(ctx) }

func (g *Guarded) Close() error { return g.next.Close() }
