package storage

import (
	"time"

	"docdrift/internal/apperrors"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = apperrors.ErrNotFound

// CollectionRecord represents a named collection of chunks.
type CollectionRecord struct {
	Name       string
	VectorSize int
	CreatedAt  time.Time
	// ChunkCount is filled by List.
	ChunkCount int
}

// ChunkRecord is one stored chunk with its encoded vector.
type ChunkRecord struct {
	Collection string
	ID         string
	SourcePath string
	ChunkIndex int
	Text       string
	Meta       map[string]any
	Vector     []byte // little-endian float32s
}
