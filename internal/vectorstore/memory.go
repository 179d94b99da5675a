package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docdrift/internal/apperrors"
)

// MemoryStore is an in-process VectorStore using brute-force cosine search.
// Contents are lost on exit; it serves tests and single-process servers.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	vectorSize int
	order      []string
	points     map[string]Point
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

// EnsureCollection creates the collection if needed and checks its vector size.
func (m *MemoryStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return apperrors.Invalid("vector_size", "must be positive, got %d", vectorSize)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.collections[collection]; ok {
		if c.vectorSize != vectorSize {
			return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, c.vectorSize)
		}
		return nil
	}
	m.collections[collection] = &memCollection{vectorSize: vectorSize, points: make(map[string]Point)}
	return nil
}

// CollectionExists reports whether the collection has been created.
func (m *MemoryStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[collection]
	return ok, nil
}

// ListCollections returns all collections sorted by name.
func (m *MemoryStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]CollectionInfo, 0, len(m.collections))
	for name, c := range m.collections {
		infos = append(infos, CollectionInfo{Name: name, VectorSize: c.vectorSize, PointsCount: len(c.points)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// DeleteCollection drops a collection. Dropping a missing collection is not an error.
func (m *MemoryStore) DeleteCollection(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, collection)
	return nil
}

// Upsert inserts or updates points in the collection.
func (m *MemoryStore) Upsert(ctx context.Context, collection string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s: %w", collection, apperrors.ErrNotFound)
	}
	for _, p := range points {
		if len(p.Vec) != c.vectorSize {
			return fmt.Errorf("vector dimension mismatch for point %s: got %d, expected %d", p.ID, len(p.Vec), c.vectorSize)
		}
	}
	for _, p := range points {
		vec := make([]float32, len(p.Vec))
		copy(vec, p.Vec)
		meta := make(map[string]any, len(p.Meta))
		for k, v := range p.Meta {
			meta[k] = v
		}
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.points[p.ID] = Point{ID: p.ID, Vec: vec, Text: p.Text, Meta: meta}
	}
	return nil
}

// Search returns up to k points ordered by descending cosine similarity.
// Ties keep insertion order.
func (m *MemoryStore) Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", collection, apperrors.ErrNotFound)
	}
	if len(query) != c.vectorSize {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), c.vectorSize)
	}

	results := make([]SearchResult, 0, len(c.points))
	for _, id := range c.order {
		p, ok := c.points[id]
		if !ok || !matchesFilter(p.Meta, filter) {
			continue
		}
		results = append(results, SearchResult{
			PointID: p.ID,
			Score:   CosineSimilarity(query, p.Vec),
			Text:    p.Text,
			Meta:    p.Meta,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes points by their IDs.
func (m *MemoryStore) Delete(ctx context.Context, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(c.points, id)
	}
	c.compact()
	return nil
}

// DeleteByFilter removes every point matching filter.
func (m *MemoryStore) DeleteByFilter(ctx context.Context, collection string, filter Filter) error {
	if len(filter) == 0 {
		return apperrors.Invalid("filter", "must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	for id, p := range c.points {
		if matchesFilter(p.Meta, filter) {
			delete(c.points, id)
		}
	}
	c.compact()
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

func (c *memCollection) compact() {
	order := c.order[:0]
	for _, id := range c.order {
		if _, ok := c.points[id]; ok {
			order = append(order, id)
		}
	}
	c.order = order
}
