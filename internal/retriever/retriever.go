// Package retriever is the read path: it embeds a query once and pulls the
// most relevant chunks of an owner's résumé, profile and repositories into a
// single prompt-ready context.
package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/vectorindex"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/resilience"
)

const DefaultTopK = 5

const (
	chunkSep   = "\n---\n"
	sectionSep = "\n\n"
)

// source describes how one collection is queried and rendered.
type source struct {
	kind       indexer.SourceKind
	collection string
	queryCap   int
	contextCap int
	header     string
	bySource   bool
}

// Result holds the matched chunk texts per source, best first, and the
// merged context built from them.
type Result struct {
	PerSource     map[indexer.SourceKind][]string `json:"per_source"`
	MergedContext string                          `json:"merged_context"`
}

type Retriever struct {
	embedder     embedding.Provider
	store        vectorindex.Store
	sources      []source
	defaultTopK  int
	queryTimeout time.Duration
	metrics      *metrics.Metrics
}

func New(embedder embedding.Provider, store vectorindex.Store, cfg config.RetrievalConfig, m *metrics.Metrics) *Retriever {
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		sources: []source{
			{kind: indexer.SourceResume, collection: cfg.Collections.Resume, queryCap: 10, contextCap: 3, header: "### Most Relevant Resume Sections:"},
			{kind: indexer.SourceLinkedIn, collection: cfg.Collections.Profile, queryCap: 5, contextCap: 2, header: "### Relevant LinkedIn Experience:", bySource: true},
			{kind: indexer.SourceGitHub, collection: cfg.Collections.Repository, queryCap: 5, contextCap: 2, header: "### Relevant GitHub Projects:"},
		},
		defaultTopK:  topK,
		queryTimeout: cfg.QueryTimeout,
		metrics:      m,
	}
}

// Retrieve embeds query once and searches every source collection in
// parallel, scoped to owner. A failing collection contributes an empty list;
// only a query embedding failure is returned.
func (r *Retriever) Retrieve(ctx context.Context, owner, query string, topK int) (*Result, error) {
	start := time.Now()
	if topK <= 0 {
		topK = r.defaultTopK
	}
	vector, err := embedding.EmbedOne(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	lists := make([][]string, len(r.sources))
	var g errgroup.Group
	for i, src := range r.sources {
		g.Go(func() error {
			lists[i] = r.search(ctx, owner, src, vector, min(topK, src.queryCap))
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{PerSource: make(map[indexer.SourceKind][]string, len(r.sources))}
	sections := make([]string, 0, len(r.sources))
	for i, src := range r.sources {
		result.PerSource[src.kind] = lists[i]
		if len(lists[i]) == 0 {
			continue
		}
		top := lists[i][:min(len(lists[i]), src.contextCap)]
		sections = append(sections, src.header+"\n"+strings.Join(top, chunkSep))
	}
	result.MergedContext = strings.Join(sections, sectionSep)

	if r.metrics != nil {
		r.metrics.RetrievalLatency.Observe(time.Since(start).Seconds())
	}
	return result, nil
}

func (r *Retriever) search(ctx context.Context, owner string, src source, vector []float32, k int) []string {
	filter := vectorindex.OwnerFilter(owner)
	if src.bySource {
		filter = filter.With(vectorindex.KeySource, string(src.kind))
	}
	hits, err := resilience.Deadline(ctx, r.queryTimeout, "query "+src.collection, func(ctx context.Context) ([]vectorindex.Hit, error) {
		return r.store.Query(ctx, src.collection, vector, k, filter)
	})
	if err != nil {
		logger.FromContext(ctx).Warn("collection query failed",
			"component", "retriever",
			"collection", src.collection,
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.CollectionQueryFailures.WithLabelValues(src.collection).Inc()
		}
		return []string{}
	}
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	return texts
}
