package indexer

import (
	"context"
	"time"

	"docdrift/internal/retry"
)

// Document is a documentation file found under the indexed folder.
type Document struct {
	Path       string // Relative to the folder, forward slashes (e.g., "guides/auth.md")
	AbsPath    string
	ModifiedAt time.Time
}

// IndexError records one file that could not be indexed.
type IndexError struct {
	Path      string `json:"path"`
	Op        string `json:"op"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// IndexReport summarizes an indexing run.
type IndexReport struct {
	Collection         string          `json:"collection"`
	DocumentsProcessed int             `json:"documents_processed"`
	ChunksWritten      int             `json:"chunks_written"`
	Errors             []IndexError    `json:"errors"`
	ChunkStats         ChunkTokenStats `json:"chunk_stats"`
	IndexVersion       string          `json:"index_version"`
	Duration           time.Duration   `json:"duration_ns"`
}

// Config carries the chunking and storage parameters of a Pipeline.
type Config struct {
	MaxChars       int
	Overlap        int
	Extensions     []string
	VectorSize     int
	EmbeddingModel string
	Retry          retry.Policy
}

// DocumentEmbedder embeds chunk texts, one vector per text, in order.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// FileReader reads document content.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}
