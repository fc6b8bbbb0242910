package vectorindex

import (
	"context"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
)

// MemoryStore keeps every collection in process memory. Queries are a linear
// scan, which is adequate for per-owner collections of a few hundred chunks.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Record),
	}
}

func (m *MemoryStore) Upsert(ctx context.Context, collection string, records []Record) error {
	if err := validateRecords(records); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]Record)
		m.collections[collection] = coll
	}
	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		coll[r.ID] = Record{ID: r.ID, Vector: vec, Text: r.Text, Metadata: cloneMetadata(r.Metadata)}
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection string, f Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, r := range m.collections[collection] {
		if f.Matches(r.Metadata) {
			delete(m.collections[collection], id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStore) Query(ctx context.Context, collection string, vector []float32, k int, f Filter) ([]Hit, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	top := newTopK(k)
	for _, r := range m.collections[collection] {
		if !f.Matches(r.Metadata) {
			continue
		}
		top.push(Hit{ID: r.ID, Text: r.Text, Metadata: cloneMetadata(r.Metadata), Score: embedding.Cosine(vector, r.Vector)})
	}
	return top.sorted(), nil
}

func (m *MemoryStore) Count(ctx context.Context, collection string, f Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.collections[collection] {
		if f.Matches(r.Metadata) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
