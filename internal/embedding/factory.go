package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
)

// NewLoader builds the configured provider stack: the base model, retries,
// metrics and, when kv is non-nil and caching is enabled, the Redis cache.
func NewLoader(cfg config.EmbeddingConfig, kv KV, cacheTTL time.Duration, m *metrics.Metrics) (Loader, error) {
	var base Loader
	switch cfg.Provider {
	case "", "openai":
		base = NewOpenAILoader(cfg)
	case "hash":
		base = func(context.Context) (Provider, error) { return NewHashProvider(cfg.Dimension), nil }
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	return func(ctx context.Context) (Provider, error) {
		p, err := base(ctx)
		if err != nil {
			return nil, err
		}
		if cfg.MaxRetries > 1 {
			p = WithRetry(p, cfg.MaxRetries, m)
		}
		p = WithMetrics(p, m)
		if kv != nil && cfg.CacheEnabled {
			p = NewCachedProvider(p, kv, cacheTTL, m)
		}
		return p, nil
	}, nil
}
