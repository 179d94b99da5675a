package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// UpsertBatch inserts or replaces chunks in a single transaction.
	UpsertBatch(ctx context.Context, chunks []*ChunkRecord) error
	// DeleteByIDs deletes chunks by ID within a collection.
	DeleteByIDs(ctx context.Context, collection string, ids []string) error
	// DeleteWhere deletes chunks whose metadata equals every key/value in match.
	DeleteWhere(ctx context.Context, collection string, match map[string]any) error
	// ForEach streams every chunk of a collection, ordered by source_path and chunk_index.
	ForEach(ctx context.Context, collection string, fn func(*ChunkRecord) error) error
}

var metaKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// UpsertBatch inserts or replaces chunks in a single transaction.
func (r *ChunkRepo) UpsertBatch(ctx context.Context, chunks []*ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, id, source_path, chunk_index, text, meta, vector, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (collection, id) DO UPDATE SET
			source_path = excluded.source_path,
			chunk_index = excluded.chunk_index,
			text = excluded.text,
			meta = excluded.meta,
			vector = excluded.vector,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, c := range chunks {
		meta, err := json.Marshal(c.Meta)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for chunk %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.Collection, c.ID, c.SourcePath, c.ChunkIndex, c.Text, string(meta), c.Vector); err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// DeleteByIDs deletes chunks by ID within a collection.
func (r *ChunkRepo) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := r.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE collection = ? AND id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// DeleteWhere deletes chunks whose metadata equals every key/value in match.
// Used when re-indexing a document to remove its old chunks.
func (r *ChunkRepo) DeleteWhere(ctx context.Context, collection string, match map[string]any) error {
	if len(match) == 0 {
		return fmt.Errorf("refusing to delete with an empty match")
	}

	keys := make([]string, 0, len(match))
	for k := range match {
		if !metaKeyPattern.MatchString(k) {
			return fmt.Errorf("invalid metadata key %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var where strings.Builder
	where.WriteString("collection = ?")
	args := []any{collection}
	for _, k := range keys {
		if k == "source_path" {
			where.WriteString(" AND source_path = ?")
		} else {
			where.WriteString(" AND json_extract(meta, '$." + k + "') = ?")
		}
		args = append(args, match[k])
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE "+where.String(), args...); err != nil {
		return fmt.Errorf("failed to delete chunks by metadata: %w", err)
	}
	return nil
}

// ForEach streams every chunk of a collection, ordered by source_path and chunk_index.
func (r *ChunkRepo) ForEach(ctx context.Context, collection string, fn func(*ChunkRecord) error) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, source_path, chunk_index, text, meta, vector FROM chunks WHERE collection = ? ORDER BY source_path, chunk_index",
		collection,
	)
	if err != nil {
		return fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		rec := ChunkRecord{Collection: collection}
		var meta string
		if err := rows.Scan(&rec.ID, &rec.SourcePath, &rec.ChunkIndex, &rec.Text, &meta, &rec.Vector); err != nil {
			return fmt.Errorf("failed to scan chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &rec.Meta); err != nil {
			return fmt.Errorf("failed to decode metadata for chunk %s: %w", rec.ID, err)
		}
		if err := fn(&rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}
