package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks docdrift/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with its text and metadata.
type Point struct {
	ID   string
	Vec  []float32
	Text string
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
// Score is cosine similarity; higher is closer.
type SearchResult struct {
	PointID string
	Score   float32
	Text    string
	Meta    map[string]any
}

// Filter matches points whose metadata equals every given key/value.
type Filter map[string]any

// CollectionInfo describes a collection.
type CollectionInfo struct {
	Name        string `json:"name"`
	VectorSize  int    `json:"vector_size"`
	PointsCount int    `json:"points_count"`
}

// VectorStore defines the interface for vector storage operations.
// Implementations are safe for concurrent use.
type VectorStore interface {
	// EnsureCollection creates the collection if needed and checks its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists reports whether the collection has been created.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// ListCollections returns all collections sorted by name.
	ListCollections(ctx context.Context) ([]CollectionInfo, error)

	// DeleteCollection drops a collection and all of its points.
	DeleteCollection(ctx context.Context, collection string) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to k points ordered by descending similarity.
	Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// DeleteByFilter removes every point matching filter.
	DeleteByFilter(ctx context.Context, collection string, filter Filter) error

	// Close releases connections held by the store.
	Close() error
}
