package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunk_vectors (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	owner_id   TEXT NOT NULL,
	text       TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS chunk_vectors_owner_idx ON chunk_vectors (collection, owner_id);
`

var metadataKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// SQLiteStore is the single-node, file-backed store used by the CLI and
// small deployments. Vectors are stored as little-endian float32 blobs.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunk_vectors schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Upsert(ctx context.Context, collection string, records []Record) error {
	if err := validateRecords(records); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()
	for _, r := range records {
		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunk_vectors (collection, id, owner_id, text, embedding, metadata)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (collection, id) DO UPDATE SET
				owner_id = excluded.owner_id,
				text = excluded.text,
				embedding = excluded.embedding,
				metadata = excluded.metadata`,
			collection, r.ID, r.Metadata[KeyOwner], r.Text, float32ToBytes(r.Vector), string(md))
		if err != nil {
			return fmt.Errorf("upserting chunk %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection string, f Filter) (int, error) {
	where, args, err := sqliteWhere(collection, f)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM chunk_vectors WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading deleted row count: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Query(ctx context.Context, collection string, vector []float32, k int, f Filter) ([]Hit, error) {
	where, args, err := sqliteWhere(collection, f)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, text, embedding, metadata FROM chunk_vectors WHERE "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	top := newTopK(k)
	for rows.Next() {
		var (
			id, text, rawMD string
			blob            []byte
		)
		if err := rows.Scan(&id, &text, &blob, &rawMD); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		meta := make(map[string]string)
		if err := json.Unmarshal([]byte(rawMD), &meta); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", id, err)
		}
		top.push(Hit{ID: id, Text: text, Metadata: meta, Score: embedding.Cosine(vector, bytesToFloat32(blob))})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return top.sorted(), nil
}

func (s *SQLiteStore) Count(ctx context.Context, collection string, f Filter) (int, error) {
	where, args, err := sqliteWhere(collection, f)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM chunk_vectors WHERE "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteWhere renders f as a parameterised WHERE clause. Metadata keys are
// interpolated into json_extract paths, so they are restricted to
// lowercase identifiers.
func sqliteWhere(collection string, f Filter) (string, []any, error) {
	if err := f.Validate(); err != nil {
		return "", nil, err
	}
	clauses := []string{"collection = ?", "owner_id = ?"}
	args := []any{collection, f[KeyOwner]}
	for _, k := range f.keys() {
		if k == KeyOwner {
			continue
		}
		if !metadataKeyPattern.MatchString(k) {
			return "", nil, fmt.Errorf("invalid metadata key %q", k)
		}
		clauses = append(clauses, fmt.Sprintf("json_extract(metadata, '$.%s') = ?", k))
		args = append(args, f[k])
	}
	return strings.Join(clauses, " AND "), args, nil
}

func float32ToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
