package embedding

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/resilience"
)

type retrying struct {
	next    Provider
	backoff resilience.Backoff
}

// WithRetry retries transient embedding failures with jittered backoff.
// Errors that IsRetryable rejects, and ErrModelUnavailable, fail at once.
func WithRetry(p Provider, maxAttempts int, m *metrics.Metrics) Provider {
	b := resilience.Backoff{
		Name:     "embed " + p.Model(),
		Attempts: maxAttempts,
		Base:     200 * time.Millisecond,
		Cap:      5 * time.Second,
		Retryable: func(err error) bool {
			return !errors.Is(err, apperrors.ErrModelUnavailable) && IsRetryable(err)
		},
	}
	if m != nil {
		b.OnRetry = func(int, error, time.Duration) { m.EmbeddingRetriesTotal.Inc() }
	}
	return &retrying{next: p, backoff: b}
}

func (r *retrying) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return resilience.Retry(ctx, r.backoff, func(ctx context.Context) ([][]float32, error) {
		return r.next.Embed(ctx, texts)
	})
}

func (r *retrying) Dimension() int { return r.next.Dimension() }
func (r *retrying) Model() string  { return r.next.Model() }

type instrumented struct {
	next Provider
	m    *metrics.Metrics
}

// WithMetrics records call counts and latency. A nil m returns p unchanged.
func WithMetrics(p Provider, m *metrics.Metrics) Provider {
	if m == nil {
		return p
	}
	return &instrumented{next: p, m: m}
}

func (i *instrumented) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := i.next.Embed(ctx, texts)
	i.m.EmbeddingLatency.Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.m.EmbeddingRequestsTotal.WithLabelValues(status).Inc()
	return vecs, err
}

func (i *instrumented) Dimension() int { return i.next.Dimension() }
func (i *instrumented) Model() string  { return i.next.Model() }
