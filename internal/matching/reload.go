package matching

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
)

// Reloader rebuilds the analyzers when the lexicon or taxonomy file named in
// the scoring config changes on disk. Requests in flight keep the analyzers
// they started with. A file that fails to load leaves the previous
// analyzers in place.
type Reloader struct {
	cfg      config.ScoringConfig
	current  atomic.Pointer[Analyzers]
	reloads  atomic.Int64
	debounce time.Duration
	logger   *slog.Logger
}

func NewReloader(cfg config.ScoringConfig) (*Reloader, error) {
	a, err := NewAnalyzers(cfg)
	if err != nil {
		return nil, err
	}
	r := &Reloader{
		cfg:      cfg,
		debounce: 250 * time.Millisecond,
		logger:   slog.Default().With("component", "scoring-reload"),
	}
	r.current.Store(a)
	return r, nil
}

func (r *Reloader) Current() *Analyzers { return r.current.Load() }

// Reloads counts successful reloads since start.
func (r *Reloader) Reloads() int64 { return r.reloads.Load() }

func (r *Reloader) Reload() error {
	a, err := NewAnalyzers(r.cfg)
	if err != nil {
		return fmt.Errorf("reloading scoring data: %w", err)
	}
	r.current.Store(a)
	r.reloads.Add(1)
	return nil
}

func (r *Reloader) files() []string {
	var files []string
	for _, p := range []string{r.cfg.LexiconPath, r.cfg.TaxonomyPath} {
		if p != "" {
			files = append(files, filepath.Clean(p))
		}
	}
	return files
}

// Watch reloads after writes to the data files until ctx is done. It watches
// the parent directories so files replaced by rename are still seen. With no
// data files configured it returns immediately.
func (r *Reloader) Watch(ctx context.Context) error {
	files := r.files()
	if len(files) == 0 {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer w.Close()

	var dirs []string
	for _, f := range files {
		dir := filepath.Dir(f)
		if slices.Contains(dirs, dir) {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		dirs = append(dirs, dir)
	}
	r.logger.Info("watching scoring data", "files", files)

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !slices.Contains(files, filepath.Clean(ev.Name)) {
				continue
			}
			timer.Reset(r.debounce)
		case <-timer.C:
			if err := r.Reload(); err != nil {
				r.logger.Error("keeping previous scoring data", "error", err)
				continue
			}
			r.logger.Info("scoring data reloaded", "reloads", r.reloads.Load())
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("file watcher error", "error", err)
		}
	}
}
