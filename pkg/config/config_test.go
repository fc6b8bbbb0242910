package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Chunking.Size != 400 || cfg.Chunking.Overlap != 80 {
		t.Errorf("chunking defaults = %d/%d, want 400/80", cfg.Chunking.Size, cfg.Chunking.Overlap)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.Retrieval.TopK)
	}
	sum := cfg.Scoring.KeywordWeight + cfg.Scoring.SemanticWeight + cfg.Scoring.SkillWeight + cfg.Scoring.FormatWeight
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("default weights sum to %v, want 1", sum)
	}
	if cfg.Retrieval.Collections.Resume != "resume_chunks" {
		t.Errorf("resume collection = %q", cfg.Retrieval.Collections.Resume)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
vectorStore:
  driver: sqlite
  sqlitePath: /tmp/chunks.db
chunking:
  size: 500
  overlap: 50
scoring:
  keywordWeight: 0.5
  semanticWeight: 0.2
  skillWeight: 0.2
  formatWeight: 0.1
  stemmer: porter
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CM_LOGGING_LEVEL", "debug")
	t.Setenv("CM_EMBEDDING_PROVIDER", "hash")
	t.Setenv("CM_SERVER_TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.VectorStore.Driver != "sqlite" || cfg.VectorStore.SQLitePath != "/tmp/chunks.db" {
		t.Errorf("vector store = %+v", cfg.VectorStore)
	}
	if cfg.Chunking.Size != 500 || cfg.Chunking.Overlap != 50 {
		t.Errorf("chunking = %+v", cfg.Chunking)
	}
	if cfg.Chunking.RepoSize != 600 {
		t.Errorf("unset field lost its default: RepoSize = %d", cfg.Chunking.RepoSize)
	}
	if cfg.Scoring.Stemmer != "porter" || cfg.Scoring.KeywordWeight != 0.5 {
		t.Errorf("scoring = %+v", cfg.Scoring)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("env override not applied: level = %q", cfg.Logging.Level)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("env override not applied: provider = %q", cfg.Embedding.Provider)
	}
	if len(cfg.Server.TrustedProxies) != 2 || cfg.Server.TrustedProxies[1] != "192.168.1.5" {
		t.Errorf("env override not applied: trusted proxies = %q", cfg.Server.TrustedProxies)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"driver", "vectorStore:\n  driver: faiss\n"},
		{"provider", "embedding:\n  provider: onnx\n"},
		{"stemmer", "scoring:\n  stemmer: lancaster\n"},
		{"overlap", "chunking:\n  size: 100\n  overlap: 100\n"},
		{"weights", "scoring:\n  keywordWeight: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
