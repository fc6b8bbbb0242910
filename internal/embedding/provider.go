// Package embedding turns text into dense vectors. Providers are reached
// through a Handle that loads the model once per process and shares it.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
)

// Provider embeds a batch of texts. Embed returns exactly one vector per
// input, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// Loader constructs a Provider. It may be slow (model download, warm-up
// request) and is called by a Handle at most once per successful load.
type Loader func(ctx context.Context) (Provider, error)

// Handle is the process-wide, load-once embedding model. It is created by the
// composition root and passed by reference to the indexer and retriever.
// Concurrent first callers block on a single load; a failed load is not
// remembered, so the next call tries again.
type Handle struct {
	mu       sync.Mutex
	load     Loader
	provider Provider
	logger   *slog.Logger
}

func NewHandle(load Loader) *Handle {
	return &Handle{
		load:   load,
		logger: slog.Default().With("component", "embedding-handle"),
	}
}

// Static wraps an already constructed provider in a Handle.
func Static(p Provider) *Handle {
	return NewHandle(func(context.Context) (Provider, error) { return p, nil })
}

// Get returns the loaded provider, loading it on first use. Load failures
// wrap ErrModelUnavailable.
func (h *Handle) Get(ctx context.Context) (Provider, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.provider != nil {
		return h.provider, nil
	}
	p, err := h.load(ctx)
	if err != nil {
		h.logger.Error("embedding model load failed", "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrModelUnavailable, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: loader returned no provider", apperrors.ErrModelUnavailable)
	}
	h.provider = p
	h.logger.Info("embedding model loaded", "model", p.Model(), "dimension", p.Dimension())
	return p, nil
}

// Loaded reports whether a provider has been loaded.
func (h *Handle) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.provider != nil
}

func (h *Handle) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p, err := h.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, texts)
}

// Dimension is 0 until the model has been loaded.
func (h *Handle) Dimension() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.provider == nil {
		return 0
	}
	return h.provider.Dimension()
}

func (h *Handle) Model() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.provider == nil {
		return ""
	}
	return h.provider.Model()
}

// Ping loads the model if needed; it backs the health check.
func (h *Handle) Ping(ctx context.Context) error {
	_, err := h.Get(ctx)
	return err
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, p Provider, text string) ([]float32, error) {
	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding: got %d vectors for 1 input", len(vecs))
	}
	return vecs[0], nil
}
