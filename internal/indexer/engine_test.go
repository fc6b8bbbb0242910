package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/vectorindex"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
)

var testCollections = config.CollectionsConfig{
	Resume:     "resume_chunks",
	Profile:    "experiences",
	Repository: "github_repos",
}

func newTestEngine(store vectorindex.Store, p embedding.Provider) *Engine {
	return NewEngine(p, store, config.ChunkingConfig{Size: 20, Overlap: 0}, testCollections, nil)
}

func TestIndexResumeReplacesPreviousChunks(t *testing.T) {
	ctx := context.Background()
	store := vectorindex.NewMemoryStore()
	e := newTestEngine(store, embedding.NewHashProvider(32))

	n, err := e.IndexResume(ctx, "u1", "alpha one\n\nbeta two\n\ngamma three")
	if err != nil {
		t.Fatalf("IndexResume() error: %v", err)
	}
	if n != 2 {
		t.Fatalf("IndexResume() = %d chunks, want 2", n)
	}

	n, err = e.IndexResume(ctx, "u1", "single")
	if err != nil || n != 1 {
		t.Fatalf("second IndexResume() = %d, %v; want 1", n, err)
	}
	if got, _ := e.Count(ctx, "u1", SourceResume); got != 1 {
		t.Errorf("Count() after re-index = %d, want 1", got)
	}
}

func TestIndexEmptyTextPurges(t *testing.T) {
	ctx := context.Background()
	store := vectorindex.NewMemoryStore()
	e := newTestEngine(store, embedding.NewHashProvider(32))

	if _, err := e.IndexResume(ctx, "u1", "some resume text"); err != nil {
		t.Fatal(err)
	}
	n, err := e.IndexResume(ctx, "u1", "   \n\n  ")
	if err != nil || n != 0 {
		t.Fatalf("IndexResume(blank) = %d, %v; want 0, nil", n, err)
	}
	if got, _ := e.Count(ctx, "u1", SourceResume); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

func TestIndexProfileLeavesOtherSources(t *testing.T) {
	ctx := context.Background()
	store := vectorindex.NewMemoryStore()
	e := newTestEngine(store, embedding.NewHashProvider(32))

	other := vectorindex.Record{
		ID:       "note-1",
		Vector:   []float32{1, 0},
		Text:     "unrelated",
		Metadata: map[string]string{vectorindex.KeyOwner: "u1", vectorindex.KeySource: "notes"},
	}
	if err := store.Upsert(ctx, "experiences", []vectorindex.Record{other}); err != nil {
		t.Fatal(err)
	}

	profile := ProfileSections{About: "Backend engineer", Skills: "Go, Kafka"}
	if _, err := e.IndexProfile(ctx, "u1", profile); err != nil {
		t.Fatalf("IndexProfile() error: %v", err)
	}
	if _, err := e.IndexProfile(ctx, "u1", profile); err != nil {
		t.Fatalf("IndexProfile() error: %v", err)
	}
	if got, _ := store.Count(ctx, "experiences", vectorindex.OwnerFilter("u1").With(vectorindex.KeySource, "notes")); got != 1 {
		t.Errorf("notes chunks = %d, want 1", got)
	}
	if got, _ := e.Count(ctx, "u1", SourceLinkedIn); got != 2 {
		t.Errorf("profile chunks = %d, want 2", got)
	}
}

func TestIndexRepositoriesMetadata(t *testing.T) {
	ctx := context.Background()
	store := vectorindex.NewMemoryStore()
	e := NewEngine(embedding.NewHashProvider(32), store, config.ChunkingConfig{}, testCollections, nil)

	repos := []Repository{
		{Name: "search-engine", Description: "Inverted index", Language: "Go", Topics: []string{"search", "kafka"}},
		{Name: "dotfiles", Readme: "My shell setup"},
	}
	n, err := e.IndexRepositories(ctx, "u1", repos)
	if err != nil || n != 2 {
		t.Fatalf("IndexRepositories() = %d, %v; want 2", n, err)
	}

	hits, err := store.Query(ctx, "github_repos", make([]float32, 32), 10, vectorindex.OwnerFilter("u1"))
	if err != nil {
		t.Fatal(err)
	}
	byRepo := make(map[string]vectorindex.Hit)
	for _, h := range hits {
		byRepo[h.Metadata[vectorindex.KeyRepoName]] = h
	}
	first, ok := byRepo["search-engine"]
	if !ok {
		t.Fatalf("no chunk tagged with search-engine: %+v", hits)
	}
	if first.Metadata[vectorindex.KeyChunkIndex] != "0" || first.Metadata[vectorindex.KeySource] != "github" {
		t.Errorf("metadata = %v", first.Metadata)
	}
	if !strings.HasPrefix(first.ID, "uu1_github_search-engine_0_") {
		t.Errorf("ID = %q", first.ID)
	}
	want := "Repository: search-engine\nDescription: Inverted index\nPrimary language: Go\nTopics: search, kafka"
	if first.Text != want {
		t.Errorf("Text = %q, want %q", first.Text, want)
	}
	if second := byRepo["dotfiles"]; second.Metadata[vectorindex.KeyChunkIndex] != "1" {
		t.Errorf("chunk index should run across repositories, got %v", second.Metadata)
	}
}

func TestRepositoryTextTruncatesReadme(t *testing.T) {
	r := Repository{Name: "x", Readme: strings.Repeat("é", 50)}
	got := r.Text(10)
	if want := "Repository: x\nREADME:\n" + strings.Repeat("é", 10); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestChunkIDDeterministic(t *testing.T) {
	a := ChunkID("u1", "resume", 0, "hello")
	if a != ChunkID("u1", "resume", 0, "hello") {
		t.Error("ChunkID not deterministic")
	}
	if a == ChunkID("u1", "resume", 1, "hello") {
		t.Error("ChunkID ignores the sequence number")
	}
	if !strings.HasPrefix(a, "uu1_resume_0_") || len(a) != len("uu1_resume_0_")+12 {
		t.Errorf("ChunkID = %q", a)
	}
}

type deleteFailingStore struct {
	*vectorindex.MemoryStore
}

func (deleteFailingStore) Delete(context.Context, string, vectorindex.Filter) (int, error) {
	return 0, errors.New("delete rejected")
}

func TestIndexContinuesWhenPurgeFails(t *testing.T) {
	store := deleteFailingStore{vectorindex.NewMemoryStore()}
	e := newTestEngine(store, embedding.NewHashProvider(32))
	n, err := e.IndexResume(context.Background(), "u1", "golang developer")
	if err != nil || n != 1 {
		t.Errorf("IndexResume() = %d, %v; want 1, nil", n, err)
	}
}

func TestIndexModelUnavailable(t *testing.T) {
	h := embedding.NewHandle(func(context.Context) (embedding.Provider, error) {
		return nil, errors.New("weights missing")
	})
	e := newTestEngine(vectorindex.NewMemoryStore(), h)
	_, err := e.IndexResume(context.Background(), "u1", "golang developer")
	if !errors.Is(err, apperrors.ErrModelUnavailable) {
		t.Errorf("IndexResume() error = %v, want ErrModelUnavailable", err)
	}
}

// flakyProvider embeds normally for the first ok calls and fails after.
type flakyProvider struct {
	embedding.Provider
	ok    int
	calls int
}

func (p *flakyProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls++
	if p.calls > p.ok {
		return nil, fmt.Errorf("embedding backend down: %w", apperrors.ErrModelUnavailable)
	}
	return p.Provider.Embed(ctx, texts)
}

func TestFailedReindexKeepsPreviousChunks(t *testing.T) {
	ctx := context.Background()
	store := vectorindex.NewMemoryStore()
	e := newTestEngine(store, &flakyProvider{Provider: embedding.NewHashProvider(32), ok: 1})

	if n, err := e.IndexResume(ctx, "u1", "golang developer"); err != nil || n != 1 {
		t.Fatalf("IndexResume() = %d, %v; want 1, nil", n, err)
	}
	_, err := e.IndexResume(ctx, "u1", "kubernetes operator")
	if !errors.Is(err, apperrors.ErrModelUnavailable) {
		t.Fatalf("re-index error = %v, want ErrModelUnavailable", err)
	}
	if got, _ := e.Count(ctx, "u1", SourceResume); got != 1 {
		t.Errorf("Count() after failed re-index = %d, want 1", got)
	}
}

func TestSourceKindValid(t *testing.T) {
	tests := []struct {
		source SourceKind
		want   bool
	}{
		{SourceResume, true},
		{SourceLinkedIn, true},
		{SourceGitHub, true},
		{"twitter", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.source.Valid(); got != tt.want {
			t.Errorf("%q.Valid() = %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(vectorindex.NewMemoryStore(), embedding.NewHashProvider(32))
	n, err := e.Apply(ctx, ProfileUpdateEvent{OwnerID: "u1", Source: SourceLinkedIn, Text: "Staff engineer"})
	if err != nil || n != 1 {
		t.Fatalf("Apply(linkedin text) = %d, %v", n, err)
	}
	if _, err := e.Apply(ctx, ProfileUpdateEvent{OwnerID: "u1", Source: "fax"}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Apply(unknown source) error = %v", err)
	}
}
