package vectorstore

import (
	"container/heap"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"docdrift/internal/apperrors"
	"docdrift/internal/storage"
)

// SQLiteStore implements VectorStore on a local SQLite file.
// Search is an exact brute-force cosine scan over the collection.
type SQLiteStore struct {
	db          *sql.DB
	collections *storage.CollectionRepo
	chunks      storage.ChunkStore
}

// NewSQLiteStore opens (creating if needed) the database at path and migrates it.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := storage.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{
		db:          db,
		collections: storage.NewCollectionRepo(db),
		chunks:      storage.NewChunkRepo(db),
	}, nil
}

// EnsureCollection creates the collection if needed and checks its vector size.
func (s *SQLiteStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	rec, err := s.collections.GetOrCreate(ctx, collection, vectorSize)
	if err != nil {
		return err
	}
	if rec.VectorSize != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, rec.VectorSize)
	}
	return nil
}

// CollectionExists reports whether the collection has been created.
func (s *SQLiteStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	_, err := s.collections.Get(ctx, collection)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListCollections returns all collections sorted by name.
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	recs, err := s.collections.List(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]CollectionInfo, 0, len(recs))
	for _, r := range recs {
		infos = append(infos, CollectionInfo{Name: r.Name, VectorSize: r.VectorSize, PointsCount: r.ChunkCount})
	}
	return infos, nil
}

// DeleteCollection drops a collection and its chunks.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, collection string) error {
	return s.collections.Delete(ctx, collection)
}

// Upsert inserts or updates points in the collection.
func (s *SQLiteStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	rec, err := s.collections.Get(ctx, collection)
	if err != nil {
		return fmt.Errorf("collection %s: %w", collection, err)
	}

	records := make([]*storage.ChunkRecord, 0, len(points))
	for _, p := range points {
		if len(p.Vec) != rec.VectorSize {
			return fmt.Errorf("vector dimension mismatch for point %s: got %d, expected %d", p.ID, len(p.Vec), rec.VectorSize)
		}
		records = append(records, &storage.ChunkRecord{
			Collection: collection,
			ID:         p.ID,
			SourcePath: MetaString(p.Meta, "source_path"),
			ChunkIndex: MetaInt(p.Meta, "chunk_index"),
			Text:       p.Text,
			Meta:       p.Meta,
			Vector:     float32SliceToBytes(p.Vec),
		})
	}
	return s.chunks.UpsertBatch(ctx, records)
}

// Search scans the collection and keeps the k most similar chunks.
func (s *SQLiteStore) Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	rec, err := s.collections.Get(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", collection, err)
	}
	if len(query) != rec.VectorSize {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), rec.VectorSize)
	}

	top := &resultHeap{}
	seq := 0
	err = s.chunks.ForEach(ctx, collection, func(c *storage.ChunkRecord) error {
		if !matchesFilter(c.Meta, filter) {
			return nil
		}
		r := scoredResult{
			SearchResult: SearchResult{
				PointID: c.ID,
				Score:   CosineSimilarity(query, bytesToFloat32Slice(c.Vector)),
				Text:    c.Text,
				Meta:    c.Meta,
			},
			seq: seq,
		}
		seq++
		if top.Len() < k {
			heap.Push(top, r)
		} else if r.Score > (*top)[0].Score {
			(*top)[0] = r
			heap.Fix(top, 0)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, top.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(top).(scoredResult).SearchResult
	}
	return results, nil
}

// Delete removes points by their IDs.
func (s *SQLiteStore) Delete(ctx context.Context, collection string, ids []string) error {
	return s.chunks.DeleteByIDs(ctx, collection, ids)
}

// DeleteByFilter removes every point matching filter.
func (s *SQLiteStore) DeleteByFilter(ctx context.Context, collection string, filter Filter) error {
	if len(filter) == 0 {
		return apperrors.Invalid("filter", "must not be empty")
	}
	return s.chunks.DeleteWhere(ctx, collection, filter)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scoredResult struct {
	SearchResult
	seq int
}

// resultHeap is a min-heap on score; on equal scores the later row is evicted first.
type resultHeap []scoredResult

func (h resultHeap) Len() int { return len(h) }
func (h resultHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].seq > h[j].seq
}
func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)   { *h = append(*h, x.(scoredResult)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
