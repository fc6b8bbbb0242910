package vectorindex

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/resilience"
)

func rec(id, owner, source string, vec ...float32) Record {
	return Record{
		ID:       id,
		Vector:   vec,
		Text:     "text " + id,
		Metadata: map[string]string{KeyOwner: owner, KeySource: source},
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "chunks.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory":  NewMemoryStore(),
		"sqlite":  sqlite,
		"guarded": NewGuarded(NewMemoryStore(), 3, time.Minute, nil),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Upsert(ctx, "experiences", []Record{
				rec("a", "u1", "linkedin", 1, 0),
				rec("b", "u1", "linkedin", 0.8, 0.6),
				rec("c", "u1", "linkedin", 0, 1),
				rec("d", "u1", "notes", 1, 0),
				rec("e", "u2", "linkedin", 1, 0),
			})
			if err != nil {
				t.Fatalf("Upsert() error: %v", err)
			}

			f := OwnerFilter("u1").With(KeySource, "linkedin")
			hits, err := s.Query(ctx, "experiences", []float32{1, 0}, 2, f)
			if err != nil {
				t.Fatalf("Query() error: %v", err)
			}
			if len(hits) != 2 || hits[0].ID != "a" || hits[1].ID != "b" {
				t.Fatalf("Query() = %+v, want a then b", hits)
			}
			if hits[0].Score < hits[1].Score {
				t.Error("hits not ordered by score")
			}
			if hits[0].Text != "text a" || hits[0].Metadata[KeySource] != "linkedin" {
				t.Errorf("hit payload = %+v", hits[0])
			}

			if n, _ := s.Count(ctx, "experiences", OwnerFilter("u1")); n != 4 {
				t.Errorf("Count(u1) = %d, want 4", n)
			}
			deleted, err := s.Delete(ctx, "experiences", f)
			if err != nil || deleted != 3 {
				t.Errorf("Delete() = %d, %v; want 3", deleted, err)
			}
			if n, _ := s.Count(ctx, "experiences", OwnerFilter("u1")); n != 1 {
				t.Errorf("Count(u1) after delete = %d, want 1", n)
			}
			if n, _ := s.Count(ctx, "experiences", OwnerFilter("u2")); n != 1 {
				t.Errorf("other owner's chunks touched: Count(u2) = %d", n)
			}
		})
	}
}

func TestStoreUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				if err := s.Upsert(ctx, "resume_chunks", []Record{rec("x", "u1", "resume", 1, 0)}); err != nil {
					t.Fatal(err)
				}
			}
			if n, _ := s.Count(ctx, "resume_chunks", OwnerFilter("u1")); n != 1 {
				t.Errorf("Count() = %d, want 1", n)
			}
		})
	}
}

func TestStoreRequiresOwner(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Query(ctx, "c", []float32{1}, 3, Filter{KeySource: "resume"}); !errors.Is(err, apperrors.ErrUnscopedFilter) {
				t.Errorf("Query() error = %v, want ErrUnscopedFilter", err)
			}
			if _, err := s.Delete(ctx, "c", Filter{}); !errors.Is(err, apperrors.ErrUnscopedFilter) {
				t.Errorf("Delete() error = %v, want ErrUnscopedFilter", err)
			}
			bad := Record{ID: "z", Vector: []float32{1}, Metadata: map[string]string{}}
			if err := s.Upsert(ctx, "c", []Record{bad}); !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("Upsert() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			hits, err := s.Query(context.Background(), "github_repos", []float32{1, 0}, 5, OwnerFilter("nobody"))
			if err != nil || len(hits) != 0 {
				t.Errorf("Query() = %+v, %v; want empty", hits, err)
			}
		})
	}
}

func TestTopKTieBreak(t *testing.T) {
	top := newTopK(2)
	for _, id := range []string{"c", "a", "b"} {
		top.push(Hit{ID: id, Score: 0.5})
	}
	got := top.sorted()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("sorted() = %+v, want a, b", got)
	}
}

type failingStore struct {
	*MemoryStore
	calls int
}

func (f *failingStore) Query(context.Context, string, []float32, int, Filter) ([]Hit, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestGuardedOpensCircuit(t *testing.T) {
	inner := &failingStore{MemoryStore: NewMemoryStore()}
	g := NewGuarded(inner, 2, time.Minute, nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := g.Query(ctx, "resume_chunks", nil, 1, OwnerFilter("u1")); err == nil {
			t.Fatal("expected failure")
		}
	}
	if g.State("resume_chunks") != resilience.StateOpen {
		t.Fatalf("state = %v, want open", g.State("resume_chunks"))
	}
	_, err := g.Query(ctx, "resume_chunks", nil, 1, OwnerFilter("u1"))
	if !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Errorf("Query() on open circuit = %v, want ErrStoreUnavailable", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner store called %d times, want 2", inner.calls)
	}
	if g.State("experiences") != resilience.StateClosed {
		t.Error("breakers must be per collection")
	}
	stats := g.Breakers()
	if len(stats) != 2 || stats[0].Name != "vectorstore:experiences" || stats[1].Failures != 2 {
		t.Errorf("Breakers() = %+v", stats)
	}
}

func TestGuardedIgnoresCallerErrors(t *testing.T) {
	g := NewGuarded(NewMemoryStore(), 1, time.Minute, nil)
	for i := 0; i < 3; i++ {
		if _, err := g.Query(context.Background(), "c", nil, 1, Filter{}); !errors.Is(err, apperrors.ErrUnscopedFilter) {
			t.Fatalf("Query() = %v, want ErrUnscopedFilter", err)
		}
	}
	if g.State("c") != resilience.StateClosed {
		t.Error("unscoped filters must not trip the breaker")
	}
}
