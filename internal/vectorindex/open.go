package vectorindex

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/postgres"
)

// Open builds the configured backend wrapped in per-collection circuit
// breakers.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (Store, error) {
	var store Store
	switch cfg.VectorStore.Driver {
	case "", "memory":
		store = NewMemoryStore()
	case "sqlite":
		s, err := NewSQLiteStore(cfg.VectorStore.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = s
	case "postgres":
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		s, err := NewPostgresStore(ctx, client)
		if err != nil {
			client.Close()
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown vector store driver %q", cfg.VectorStore.Driver)
	}
	return NewGuarded(store, cfg.VectorStore.FailureThreshold, cfg.VectorStore.ResetTimeout, m), nil
}
