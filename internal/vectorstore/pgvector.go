package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"docdrift/internal/apperrors"
)

var pgMetaKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PgVectorStore implements VectorStore on PostgreSQL with the pgvector extension.
// All collections share one table; an unconstrained vector column lets each
// collection carry its own dimension.
type PgVectorStore struct {
	pool *pgxpool.Pool
}

// NewPgVectorStore connects to url and applies the schema.
func NewPgVectorStore(ctx context.Context, url string) (*PgVectorStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &PgVectorStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVectorStore) migrate(ctx context.Context) error {
	const q = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS docdrift_collections (
  name        TEXT PRIMARY KEY,
  vector_size INT NOT NULL,
  created_at  TIMESTAMP WITH TIME ZONE DEFAULT now()
);

CREATE TABLE IF NOT EXISTS docdrift_chunks (
  collection  TEXT NOT NULL REFERENCES docdrift_collections(name) ON DELETE CASCADE,
  id          TEXT NOT NULL,
  source_path TEXT NOT NULL DEFAULT '',
  text        TEXT NOT NULL,
  meta        JSONB NOT NULL DEFAULT '{}',
  embedding   vector NOT NULL,
  updated_at  TIMESTAMP WITH TIME ZONE DEFAULT now(),
  PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS docdrift_chunks_source_idx
  ON docdrift_chunks (collection, source_path);
`
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("failed to migrate pgvector schema: %w", err)
	}
	return nil
}

// EnsureCollection creates the collection if needed and checks its vector size.
func (s *PgVectorStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO docdrift_collections (name, vector_size) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING",
		collection, vectorSize)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	size, err := s.vectorSize(ctx, collection)
	if err != nil {
		return err
	}
	if size != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, size)
	}
	return nil
}

func (s *PgVectorStore) vectorSize(ctx context.Context, collection string) (int, error) {
	var size int
	err := s.pool.QueryRow(ctx, "SELECT vector_size FROM docdrift_collections WHERE name = $1", collection).Scan(&size)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("collection %s: %w", collection, apperrors.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query collection: %w", err)
	}
	return size, nil
}

// CollectionExists reports whether the collection has been created.
func (s *PgVectorStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM docdrift_collections WHERE name = $1)", collection).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// ListCollections returns all collections sorted by name.
func (s *PgVectorStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.name, c.vector_size, COUNT(ch.id)
		FROM docdrift_collections c
		LEFT JOIN docdrift_chunks ch ON ch.collection = c.name
		GROUP BY c.name, c.vector_size
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var infos []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		if err := rows.Scan(&info.Name, &info.VectorSize, &info.PointsCount); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteCollection drops a collection and its chunks.
func (s *PgVectorStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM docdrift_collections WHERE name = $1", collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Upsert inserts or updates points in one transaction.
func (s *PgVectorStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	size, err := s.vectorSize(ctx, collection)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO docdrift_chunks (collection, id, source_path, text, meta, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, now())
		ON CONFLICT (collection, id) DO UPDATE SET
			source_path = EXCLUDED.source_path,
			text        = EXCLUDED.text,
			meta        = EXCLUDED.meta,
			embedding   = EXCLUDED.embedding,
			updated_at  = now()`

	batch := &pgx.Batch{}
	for _, p := range points {
		if len(p.Vec) != size {
			return fmt.Errorf("vector dimension mismatch for point %s: got %d, expected %d", p.ID, len(p.Vec), size)
		}
		meta, err := json.Marshal(p.Meta)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for point %s: %w", p.ID, err)
		}
		batch.Queue(q, collection, p.ID, MetaString(p.Meta, "source_path"), p.Text, string(meta), pgvector.NewVector(p.Vec))
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to upsert points: %w", err)
		}
		return nil
	})
}

// Search orders the collection by cosine distance and returns the k nearest.
func (s *PgVectorStore) Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	size, err := s.vectorSize(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(query) != size {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), size)
	}

	where, args, err := pgWhere(collection, filter, 3)
	if err != nil {
		return nil, err
	}
	args = append([]any{nil, nil}, args...)
	args[0] = pgvector.NewVector(query)
	args[1] = k

	q := fmt.Sprintf(`
		SELECT id, text, meta, 1 - (embedding <=> $1) AS score
		FROM docdrift_chunks
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $2`, where)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var score float64
		if err := rows.Scan(&r.PointID, &r.Text, &r.Meta, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Score = float32(score)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Delete removes points by their IDs.
func (s *PgVectorStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, "DELETE FROM docdrift_chunks WHERE collection = $1 AND id = ANY($2)", collection, ids)
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// DeleteByFilter removes every point matching filter.
func (s *PgVectorStore) DeleteByFilter(ctx context.Context, collection string, filter Filter) error {
	if len(filter) == 0 {
		return apperrors.Invalid("filter", "must not be empty")
	}
	where, args, err := pgWhere(collection, filter, 1)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, "DELETE FROM docdrift_chunks WHERE "+where, args...); err != nil {
		return fmt.Errorf("failed to delete points by filter: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PgVectorStore) Close() error {
	s.pool.Close()
	return nil
}

// pgWhere builds "collection = $n AND meta->>'k' = $n+1 ..." starting at placeholder first.
func pgWhere(collection string, filter Filter, first int) (string, []any, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		if !pgMetaKey.MatchString(k) {
			return "", nil, fmt.Errorf("invalid metadata key %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{"collection = $" + strconv.Itoa(first)}
	args := []any{collection}
	for i, k := range keys {
		n := "$" + strconv.Itoa(first+i+1)
		if k == "source_path" {
			parts = append(parts, "source_path = "+n)
		} else {
			parts = append(parts, "meta->>'"+k+"' = "+n)
		}
		args = append(args, fmt.Sprint(filter[k]))
	}
	return strings.Join(parts, " AND "), args, nil
}
