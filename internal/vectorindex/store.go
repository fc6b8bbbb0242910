// Package vectorindex stores embedded chunks in named collections and answers
// owner-scoped nearest-neighbour queries by cosine similarity.
package vectorindex

import (
	"context"
	"fmt"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
)

// Metadata keys written by the indexer.
const (
	KeyOwner      = "owner_id"
	KeySource     = "source"
	KeyChunkIndex = "chunk_index"
	KeyRepoName   = "repo_name"
)

type Record struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"-"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

type Hit struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// Filter is an exact-match conjunction over metadata. Every filter passed to
// a Store must name an owner.
type Filter map[string]string

func OwnerFilter(owner string) Filter {
	return Filter{KeyOwner: owner}
}

// With returns a copy of f with key set to value.
func (f Filter) With(key, value string) Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[key] = value
	return out
}

func (f Filter) Validate() error {
	if f[KeyOwner] == "" {
		return apperrors.ErrUnscopedFilter
	}
	return nil
}

func (f Filter) Matches(md map[string]string) bool {
	for k, v := range f {
		if md[k] != v {
			return false
		}
	}
	return true
}

// keys returns the filter keys in sorted order so generated SQL is stable.
func (f Filter) keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Store is the chunk persistence contract. Implementations must be safe for
// concurrent use. Writes and reads are not ordered against each other: a
// query racing an upsert may or may not see the new records.
type Store interface {
	Upsert(ctx context.Context, collection string, records []Record) error
	Delete(ctx context.Context, collection string, f Filter) (int, error)
	Query(ctx context.Context, collection string, vector []float32, k int, f Filter) ([]Hit, error)
	Count(ctx context.Context, collection string, f Filter) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

func validateRecords(records []Record) error {
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record without id", apperrors.ErrInvalidInput)
		}
		if r.Metadata[KeyOwner] == "" {
			return fmt.Errorf("%w: record %s has no owner", apperrors.ErrInvalidInput, r.ID)
		}
	}
	return nil
}

func cloneMetadata(md map[string]string) map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
