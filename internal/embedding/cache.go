package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
)

const cacheKeyPrefix = "emb:"

// KV is the subset of the Redis client the cache needs. GetMany returns a
// nil entry for every missing key.
type KV interface {
	GetMany(ctx context.Context, keys []string) ([][]byte, error)
	SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
}

// CachedProvider memoises vectors per (model, text) in Redis. Cache errors
// are logged and treated as misses; concurrent requests for the same batch
// of missing texts share one upstream call.
type CachedProvider struct {
	next    Provider
	kv      KV
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewCachedProvider(next Provider, kv KV, ttl time.Duration, m *metrics.Metrics) *CachedProvider {
	return &CachedProvider{
		next:    next,
		kv:      kv,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "embedding-cache"),
	}
}

func (c *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}
	out := c.lookup(ctx, keys)

	var missIdx []int
	for i, vec := range out {
		if vec == nil {
			missIdx = append(missIdx, i)
		}
	}
	c.record(len(texts)-len(missIdx), len(missIdx))
	if len(missIdx) == 0 {
		return out, nil
	}

	missing := make([]string, len(missIdx))
	missKeys := make([]string, len(missIdx))
	for j, i := range missIdx {
		missing[j] = texts[i]
		missKeys[j] = keys[i]
	}
	val, err, _ := c.group.Do(strings.Join(missKeys, ","), func() (interface{}, error) {
		vecs, err := c.next.Embed(ctx, missing)
		if err != nil {
			return nil, err
		}
		if len(vecs) == len(missKeys) {
			c.store(ctx, missKeys, vecs)
		}
		return vecs, nil
	})
	if err != nil {
		return nil, err
	}
	vecs := val.([][]float32)
	if len(vecs) != len(missIdx) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d inputs", len(vecs), len(missIdx))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
	}
	return out, nil
}

func (c *CachedProvider) Dimension() int { return c.next.Dimension() }
func (c *CachedProvider) Model() string  { return c.next.Model() }

func (c *CachedProvider) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// lookup returns the cached vectors aligned with keys, nil for misses.
func (c *CachedProvider) lookup(ctx context.Context, keys []string) [][]float32 {
	out := make([][]float32, len(keys))
	raw, err := c.kv.GetMany(ctx, keys)
	if err != nil {
		c.logger.Error("cache read failed", "keys", len(keys), "error", err)
		return out
	}
	for i, data := range raw {
		if data == nil || i >= len(out) {
			continue
		}
		var vec []float32
		if err := json.Unmarshal(data, &vec); err != nil {
			c.logger.Error("cache entry corrupt", "key", keys[i], "error", err)
			continue
		}
		out[i] = vec
	}
	return out
}

func (c *CachedProvider) store(ctx context.Context, keys []string, vecs [][]float32) {
	entries := make(map[string][]byte, len(keys))
	for i, vec := range vecs {
		data, err := json.Marshal(vec)
		if err != nil {
			c.logger.Error("cache marshal failed", "key", keys[i], "error", err)
			continue
		}
		entries[keys[i]] = data
	}
	if err := c.kv.SetMany(ctx, entries, c.ttl); err != nil {
		c.logger.Error("cache write failed", "keys", len(entries), "error", err)
	}
}

func (c *CachedProvider) record(hits, misses int) {
	c.hits.Add(int64(hits))
	c.misses.Add(int64(misses))
	if c.metrics != nil {
		c.metrics.EmbeddingCacheHits.Add(float64(hits))
		c.metrics.EmbeddingCacheMisses.Add(float64(misses))
	}
}

func (c *CachedProvider) key(text string) string {
	hash := sha256.Sum256([]byte(c.next.Model() + "\x00" + text))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}

// Flusher is satisfied by the Redis client.
type Flusher interface {
	FlushPrefix(ctx context.Context, prefix string) (int64, error)
}

// FlushCache removes every cached vector, e.g. after switching models with
// the same name.
func FlushCache(ctx context.Context, f Flusher) (int64, error) {
	n, err := f.FlushPrefix(ctx, cacheKeyPrefix)
	if err != nil {
		return n, fmt.Errorf("flushing embedding cache: %w", err)
	}
	return n, nil
}
