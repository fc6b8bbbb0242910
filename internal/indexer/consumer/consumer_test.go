package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/vectorindex"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
)

var collections = config.CollectionsConfig{
	Resume:     "resume_chunks",
	Profile:    "experiences",
	Repository: "github_repos",
}

func TestHandleMessage(t *testing.T) {
	store := vectorindex.NewMemoryStore()
	engine := indexer.NewEngine(embedding.NewHashProvider(32), store, config.ChunkingConfig{}, collections, nil)
	handle := HandleMessage(engine, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		value  string
		source indexer.SourceKind
		want   int
	}{
		{"resume", `{"owner_id":"u1","source":"resume","text":"Go developer"}`, indexer.SourceResume, 1},
		{"profile", `{"owner_id":"u1","source":"linkedin","profile":{"about":"Platform engineer"}}`, indexer.SourceLinkedIn, 1},
		{"repositories", `{"owner_id":"u1","source":"github","repositories":[{"name":"a"},{"name":"b"}]}`, indexer.SourceGitHub, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := handle(ctx, []byte("u1"), []byte(tt.value)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if got, _ := engine.Count(ctx, "u1", tt.source); got != tt.want {
				t.Errorf("Count(%s) = %d, want %d", tt.source, got, tt.want)
			}
		})
	}
}

func TestHandleMessageDropsInvalid(t *testing.T) {
	engine := indexer.NewEngine(embedding.NewHashProvider(32), vectorindex.NewMemoryStore(), config.ChunkingConfig{}, collections, nil)
	handle := HandleMessage(engine, nil)
	for _, value := range []string{
		`not json`,
		`{"source":"resume","text":"x"}`,
		`{"owner_id":"u1","source":"myspace","text":"x"}`,
	} {
		if err := handle(context.Background(), nil, []byte(value)); err != nil {
			t.Errorf("handler(%s) = %v, want nil", value, err)
		}
	}
}

func TestHandleMessageReturnsIndexErrors(t *testing.T) {
	h := embedding.NewHandle(func(context.Context) (embedding.Provider, error) {
		return nil, errors.New("no model")
	})
	engine := indexer.NewEngine(h, vectorindex.NewMemoryStore(), config.ChunkingConfig{}, collections, nil)
	err := HandleMessage(engine, nil)(context.Background(), nil, []byte(`{"owner_id":"u1","source":"resume","text":"Go"}`))
	if !errors.Is(err, apperrors.ErrModelUnavailable) {
		t.Errorf("handler error = %v, want ErrModelUnavailable", err)
	}
}
