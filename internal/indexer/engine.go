package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/chunker"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/vectorindex"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
)

type SourceKind string

const (
	SourceResume   SourceKind = "resume"
	SourceLinkedIn SourceKind = "linkedin"
	SourceGitHub   SourceKind = "github"
)

func (s SourceKind) Valid() bool {
	switch s {
	case SourceResume, SourceLinkedIn, SourceGitHub:
		return true
	}
	return false
}

const (
	defaultRepoChunkSize = 600
	defaultReadmeLimit   = 1000
)

// Engine is the write path: it chunks a source text, embeds the chunks and
// replaces the owner's previous chunks for that source. Only the vector
// index is mutated.
type Engine struct {
	embedder    embedding.Provider
	store       vectorindex.Store
	chunker     *chunker.Chunker
	repoChunker *chunker.Chunker
	readmeLimit int
	collections config.CollectionsConfig
	metrics     *metrics.Metrics
}

func NewEngine(
	embedder embedding.Provider,
	store vectorindex.Store,
	chunking config.ChunkingConfig,
	collections config.CollectionsConfig,
	m *metrics.Metrics,
) *Engine {
	repoSize := chunking.RepoSize
	if repoSize <= 0 {
		repoSize = defaultRepoChunkSize
	}
	readmeLimit := chunking.ReadmeLimit
	if readmeLimit <= 0 {
		readmeLimit = defaultReadmeLimit
	}
	return &Engine{
		embedder:    embedder,
		store:       store,
		chunker:     chunker.New(chunker.WithSize(chunking.Size), chunker.WithOverlap(chunking.Overlap)),
		repoChunker: chunker.New(chunker.WithSize(repoSize), chunker.WithOverlap(chunking.Overlap)),
		readmeLimit: readmeLimit,
		collections: collections,
		metrics:     m,
	}
}

// Collection returns the vector collection a source is stored in.
func (e *Engine) Collection(source SourceKind) string {
	switch source {
	case SourceLinkedIn:
		return e.collections.Profile
	case SourceGitHub:
		return e.collections.Repository
	default:
		return e.collections.Resume
	}
}

// ChunkID is a deterministic identifier for a chunk, so re-inserting the
// same chunk is idempotent.
func ChunkID(owner, source string, seq int, text string) string {
	h := sha256.Sum256([]byte(owner + "\x00" + source + "\x00" + strconv.Itoa(seq) + "\x00" + text))
	return fmt.Sprintf("u%s_%s_%d_%s", owner, source, seq, hex.EncodeToString(h[:])[:12])
}

// IndexResume replaces the owner's résumé chunks.
func (e *Engine) IndexResume(ctx context.Context, owner, text string) (int, error) {
	return e.Index(ctx, owner, SourceResume, text)
}

// Index replaces the owner's chunks for a single-text source.
func (e *Engine) Index(ctx context.Context, owner string, source SourceKind, text string) (int, error) {
	chunks := e.chunker.Split(text)
	pieces := make([]piece, len(chunks))
	for i, c := range chunks {
		pieces[i] = piece{idSource: string(source), text: c}
	}
	return e.replace(ctx, owner, source, pieces)
}

type piece struct {
	idSource string
	text     string
	extra    map[string]string
}

// replace embeds the new pieces before touching the store, so a failed
// embedding leaves the owner's previous chunks in place.
func (e *Engine) replace(ctx context.Context, owner string, source SourceKind, pieces []piece) (int, error) {
	log := logger.FromContext(ctx).With("component", "indexer", "owner_id", owner, "source", source)
	collection := e.Collection(source)

	records, err := e.embed(ctx, owner, source, pieces)
	if err != nil {
		e.record(source, "error", 0)
		return 0, err
	}

	filter := vectorindex.OwnerFilter(owner).With(vectorindex.KeySource, string(source))
	if removed, err := e.store.Delete(ctx, collection, filter); err != nil {
		log.Warn("purging stale chunks failed, indexing anyway", "collection", collection, "error", err)
	} else if removed > 0 {
		log.Debug("stale chunks purged", "collection", collection, "removed", removed)
	}

	if len(records) == 0 {
		e.record(source, "ok", 0)
		return 0, nil
	}
	if err := e.store.Upsert(ctx, collection, records); err != nil {
		e.record(source, "error", 0)
		return 0, fmt.Errorf("writing %s chunks: %w", source, err)
	}

	e.record(source, "ok", len(records))
	log.Info("chunks indexed", "collection", collection, "chunks", len(records))
	return len(records), nil
}

func (e *Engine) embed(ctx context.Context, owner string, source SourceKind, pieces []piece) ([]vectorindex.Record, error) {
	if len(pieces) == 0 {
		return nil, nil
	}
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.text
	}
	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %s chunks: %w", source, err)
	}
	if len(vectors) != len(pieces) {
		return nil, fmt.Errorf("embedding %s chunks: got %d vectors for %d chunks", source, len(vectors), len(pieces))
	}

	records := make([]vectorindex.Record, len(pieces))
	for i, p := range pieces {
		md := map[string]string{
			vectorindex.KeyOwner:      owner,
			vectorindex.KeySource:     string(source),
			vectorindex.KeyChunkIndex: strconv.Itoa(i),
		}
		for k, v := range p.extra {
			md[k] = v
		}
		records[i] = vectorindex.Record{
			ID:       ChunkID(owner, p.idSource, i, p.text),
			Vector:   vectors[i],
			Text:     p.text,
			Metadata: md,
		}
	}
	return records, nil
}

func (e *Engine) record(source SourceKind, status string, chunks int) {
	if e.metrics == nil {
		return
	}
	e.metrics.IndexOperationsTotal.WithLabelValues(string(source), status).Inc()
	if chunks > 0 {
		e.metrics.ChunksIndexedTotal.WithLabelValues(string(source)).Add(float64(chunks))
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
