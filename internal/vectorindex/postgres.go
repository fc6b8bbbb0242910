package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/postgres"
)

var chunkVectorsSchema = []string{
	`CREATE TABLE IF NOT EXISTS chunk_vectors (
	collection TEXT        NOT NULL,
	id         TEXT        NOT NULL,
	owner_id   TEXT        NOT NULL,
	text       TEXT        NOT NULL,
	embedding  REAL[]      NOT NULL,
	metadata   JSONB       NOT NULL DEFAULT '{}'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`,
	`CREATE INDEX IF NOT EXISTS chunk_vectors_owner_idx ON chunk_vectors (collection, owner_id)`,
	`CREATE INDEX IF NOT EXISTS chunk_vectors_metadata_idx ON chunk_vectors USING GIN (metadata)`,
}

// PostgresStore persists chunks in a single table keyed by (collection, id).
// Candidate rows are narrowed by the owner index and a JSONB containment
// filter; similarity is computed in the service.
type PostgresStore struct {
	client *postgres.Client
}

// NewPostgresStore wraps client and creates the schema if it is missing.
func NewPostgresStore(ctx context.Context, client *postgres.Client) (*PostgresStore, error) {
	if err := client.Migrate(ctx, "0001_chunk_vectors", chunkVectorsSchema...); err != nil {
		return nil, err
	}
	return &PostgresStore{client: client}, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, collection string, records []Record) error {
	if err := validateRecords(records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunk_vectors (collection, id, owner_id, text, embedding, metadata, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, now())
			ON CONFLICT (collection, id) DO UPDATE
			SET owner_id = EXCLUDED.owner_id,
			    text = EXCLUDED.text,
			    embedding = EXCLUDED.embedding,
			    metadata = EXCLUDED.metadata,
			    updated_at = now()`)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for _, r := range records {
			md, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, collection, r.ID, r.Metadata[KeyOwner], r.Text, pq.Array(toFloat64(r.Vector)), string(md)); err != nil {
				return fmt.Errorf("upserting chunk %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) Delete(ctx context.Context, collection string, f Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	md, err := json.Marshal(f)
	if err != nil {
		return 0, err
	}
	res, err := s.client.DB.ExecContext(ctx,
		`DELETE FROM chunk_vectors WHERE collection = $1 AND owner_id = $2 AND metadata @> $3::jsonb`,
		collection, f[KeyOwner], string(md))
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading deleted row count: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, vector []float32, k int, f Filter) ([]Hit, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	md, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT id, text, embedding, metadata FROM chunk_vectors
		 WHERE collection = $1 AND owner_id = $2 AND metadata @> $3::jsonb`,
		collection, f[KeyOwner], string(md))
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	top := newTopK(k)
	for rows.Next() {
		var (
			id, text string
			emb      pq.Float64Array
			rawMD    []byte
		)
		if err := rows.Scan(&id, &text, &emb, &rawMD); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		meta := make(map[string]string)
		if err := json.Unmarshal(rawMD, &meta); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", id, err)
		}
		top.push(Hit{ID: id, Text: text, Metadata: meta, Score: embedding.Cosine(vector, toFloat32(emb))})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return top.sorted(), nil
}

func (s *PostgresStore) Count(ctx context.Context, collection string, f Filter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	md, err := json.Marshal(f)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.client.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM chunk_vectors WHERE collection = $1 AND owner_id = $2 AND metadata @> $3::jsonb`,
		collection, f[KeyOwner], string(md)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	return s.client.Close()
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
