// Package aggregator persists periodic snapshots of the aggregated match
// analytics to PostgreSQL.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/postgres"
)

var snapshotSchema = []string{
	`CREATE TABLE IF NOT EXISTS match_analytics_snapshots (
    id          BIGSERIAL PRIMARY KEY,
    data        JSONB NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS match_analytics_snapshots_captured_idx
    ON match_analytics_snapshots (captured_at DESC)`,
}

// Store persists aggregated analytics snapshots in PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates the snapshot table if needed.
func NewStore(ctx context.Context, db *postgres.Client) (*Store, error) {
	if err := db.Migrate(ctx, "0002_match_analytics_snapshots", snapshotSchema...); err != nil {
		return nil, err
	}
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}, nil
}

// SaveSnapshot persists a stats snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO match_analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
		data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved",
		"total_matches", stats.TotalMatches,
		"total_index_operations", stats.TotalIndexOps,
	)
	return nil
}

// Latest loads the most recent snapshot. It returns nil, nil when none
// exists yet.
func (s *Store) Latest(ctx context.Context) (*analytics.Snapshot, error) {
	snaps, err := s.History(ctx, 1)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return &snaps[0], nil
}

// History returns up to limit snapshots, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]analytics.Snapshot, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data, captured_at FROM match_analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	snaps := make([]analytics.Snapshot, 0, limit)
	for rows.Next() {
		var (
			data []byte
			snap analytics.Snapshot
		)
		if err := rows.Scan(&data, &snap.CapturedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if err := json.Unmarshal(data, &snap.Stats); err != nil {
			return nil, fmt.Errorf("decoding snapshot from %s: %w", snap.CapturedAt.Format(time.RFC3339), err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snaps, nil
}

// Prune deletes snapshots older than retention and reports how many went.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM match_analytics_snapshots WHERE captured_at < $1`,
		time.Now().UTC().Add(-retention),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return res.RowsAffected()
}

// StartPeriodicSave snapshots agg every interval and once more on shutdown.
// With a positive retention, older snapshots are pruned after each save.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval, retention time.Duration) {
	save := func(ctx context.Context) {
		if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
			s.logger.Error("snapshot failed", "error", err)
			return
		}
		if retention <= 0 {
			return
		}
		if n, err := s.Prune(ctx, retention); err != nil {
			s.logger.Warn("snapshot pruning failed", "error", err)
		} else if n > 0 {
			s.logger.Debug("old snapshots pruned", "removed", n)
		}
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				save(ctx)
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				save(shutdownCtx)
				cancel()
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval, "retention", retention)
}
