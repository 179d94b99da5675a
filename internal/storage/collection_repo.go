package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CollectionRepo provides methods for collection operations.
type CollectionRepo struct {
	db *sql.DB
}

// NewCollectionRepo creates a new CollectionRepo.
func NewCollectionRepo(db *sql.DB) *CollectionRepo {
	return &CollectionRepo{db: db}
}

// GetOrCreate returns the named collection, creating it with vectorSize if it doesn't exist.
func (r *CollectionRepo) GetOrCreate(ctx context.Context, name string, vectorSize int) (*CollectionRecord, error) {
	rec, err := r.Get(ctx, name)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO collections (name, vector_size) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
		name, vectorSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return r.Get(ctx, name)
}

// Get returns the named collection. Returns ErrNotFound if it doesn't exist.
func (r *CollectionRepo) Get(ctx context.Context, name string) (*CollectionRecord, error) {
	var rec CollectionRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT name, vector_size, created_at FROM collections WHERE name = ?",
		name,
	).Scan(&rec.Name, &rec.VectorSize, &rec.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	return &rec, nil
}

// List returns all collections with their chunk counts, ordered by name.
func (r *CollectionRepo) List(ctx context.Context) ([]CollectionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name, c.vector_size, c.created_at, COUNT(ch.id)
		FROM collections c
		LEFT JOIN chunks ch ON ch.collection = c.name
		GROUP BY c.name
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var recs []CollectionRecord
	for rows.Next() {
		var rec CollectionRecord
		if err := rows.Scan(&rec.Name, &rec.VectorSize, &rec.CreatedAt, &rec.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return recs, nil
}

// Delete removes a collection and, by cascade, its chunks.
func (r *CollectionRepo) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}
