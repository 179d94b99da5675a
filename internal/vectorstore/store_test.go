package vectorstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdrift/internal/apperrors"
)

// backends returns every store that can run without external services.
func backends(t *testing.T) map[string]VectorStore {
	t.Helper()
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]VectorStore{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func docPoint(id, path string, idx int, vec ...float32) Point {
	return Point{
		ID:   id,
		Vec:  vec,
		Text: path + " chunk",
		Meta: map[string]any{"source_path": path, "chunk_index": idx},
	}
}

func TestVectorStore_Lifecycle(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			exists, err := store.CollectionExists(ctx, "docs")
			require.NoError(t, err)
			assert.False(t, exists)

			require.NoError(t, store.EnsureCollection(ctx, "docs", 3))
			require.NoError(t, store.EnsureCollection(ctx, "docs", 3))
			assert.Error(t, store.EnsureCollection(ctx, "docs", 4), "size mismatch must fail")

			exists, err = store.CollectionExists(ctx, "docs")
			require.NoError(t, err)
			assert.True(t, exists)

			require.NoError(t, store.Upsert(ctx, "docs", []Point{
				docPoint("a0", "a.md", 0, 1, 0, 0),
				docPoint("a1", "a.md", 1, 0.9, 0.1, 0),
				docPoint("b0", "b.md", 0, 0, 1, 0),
			}))

			infos, err := store.ListCollections(ctx)
			require.NoError(t, err)
			require.Len(t, infos, 1)
			assert.Equal(t, CollectionInfo{Name: "docs", VectorSize: 3, PointsCount: 3}, infos[0])

			require.NoError(t, store.DeleteCollection(ctx, "docs"))
			exists, err = store.CollectionExists(ctx, "docs")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestVectorStore_Search(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.EnsureCollection(ctx, "docs", 3))
			require.NoError(t, store.Upsert(ctx, "docs", []Point{
				docPoint("b0", "b.md", 0, 0, 1, 0),
				docPoint("a0", "a.md", 0, 1, 0, 0),
				docPoint("a1", "a.md", 1, 0.9, 0.1, 0),
			}))

			results, err := store.Search(ctx, "docs", []float32{1, 0, 0}, 2, nil)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, "a0", results[0].PointID)
			assert.Equal(t, "a1", results[1].PointID)
			assert.InDelta(t, 1.0, results[0].Score, 1e-6)
			assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
			assert.Equal(t, "a.md chunk", results[0].Text)
			assert.Equal(t, "a.md", MetaString(results[0].Meta, "source_path"))

			filtered, err := store.Search(ctx, "docs", []float32{1, 0, 0}, 5, Filter{"source_path": "b.md"})
			require.NoError(t, err)
			require.Len(t, filtered, 1)
			assert.Equal(t, "b0", filtered[0].PointID)

			_, err = store.Search(ctx, "docs", []float32{1, 0}, 1, nil)
			assert.Error(t, err, "dimension mismatch must fail")

			_, err = store.Search(ctx, "missing", []float32{1, 0, 0}, 1, nil)
			assert.True(t, errors.Is(err, apperrors.ErrNotFound), "missing collection error = %v", err)
		})
	}
}

func TestVectorStore_DeleteByFilter_LeavesOtherPaths(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.EnsureCollection(ctx, "docs", 2))
			require.NoError(t, store.Upsert(ctx, "docs", []Point{
				docPoint("a0", "a.md", 0, 1, 0),
				docPoint("a1", "a.md", 1, 1, 0),
				docPoint("b0", "b.md", 0, 0, 1),
			}))

			require.NoError(t, store.DeleteByFilter(ctx, "docs", Filter{"source_path": "a.md"}))
			assert.Error(t, store.DeleteByFilter(ctx, "docs", Filter{}), "empty filter must be rejected")

			results, err := store.Search(ctx, "docs", []float32{1, 0}, 10, nil)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "b0", results[0].PointID)

			require.NoError(t, store.Delete(ctx, "docs", []string{"b0"}))
			results, err = store.Search(ctx, "docs", []float32{1, 0}, 10, nil)
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "redis"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 2}, b: []float32{2, 4}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}
