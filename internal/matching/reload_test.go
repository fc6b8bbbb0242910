package matching

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
)

const (
	infraTaxonomy = "categories:\n  - name: Infra\n    skills: [terraform]\n"
	cloudTaxonomy = "categories:\n  - name: Infra\n    skills: [terraform, pulumi]\n"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func hasPulumi(a *Analyzers) bool {
	return len(a.Skills.Extract("we deploy with pulumi", "resume")) > 0
}

func TestReloaderReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	writeFile(t, path, infraTaxonomy)

	r, err := NewReloader(config.ScoringConfig{TaxonomyPath: path})
	if err != nil {
		t.Fatal(err)
	}
	before := r.Current()
	if hasPulumi(before) {
		t.Fatal("pulumi matched before it was added")
	}

	writeFile(t, path, cloudTaxonomy)
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if !hasPulumi(r.Current()) {
		t.Error("reloaded taxonomy not in use")
	}
	if hasPulumi(before) {
		t.Error("reload mutated analyzers already handed out")
	}

	writeFile(t, path, "categories: [")
	if err := r.Reload(); err == nil {
		t.Fatal("expected an error for a broken taxonomy")
	}
	if !hasPulumi(r.Current()) || r.Reloads() != 1 {
		t.Errorf("failed reload replaced the analyzers (reloads = %d)", r.Reloads())
	}
}

func TestReloaderWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	writeFile(t, path, infraTaxonomy)
	r, err := NewReloader(config.ScoringConfig{TaxonomyPath: path})
	if err != nil {
		t.Fatal(err)
	}
	r.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch() error: %v", err)
		}
	}()

	// The watcher is registered asynchronously; keep rewriting until it
	// notices.
	deadline := time.Now().Add(5 * time.Second)
	for !hasPulumi(r.Current()) {
		if time.Now().After(deadline) {
			t.Fatal("taxonomy change was not picked up")
		}
		writeFile(t, path, cloudTaxonomy)
		time.Sleep(50 * time.Millisecond)
	}
}

func TestReloaderWatchWithoutFiles(t *testing.T) {
	r, err := NewReloader(config.ScoringConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Watch(context.Background()); err != nil {
		t.Errorf("Watch() error: %v", err)
	}
}
