package vectorstore

import (
	"context"

	"docdrift/internal/apperrors"
)

// Backend names a VectorStore implementation.
type Backend string

const (
	// BackendMemory keeps collections in process memory.
	BackendMemory Backend = "memory"
	// BackendSQLite stores collections in a local SQLite file.
	BackendSQLite Backend = "sqlite"
	// BackendQdrant talks to a Qdrant server over gRPC.
	BackendQdrant Backend = "qdrant"
	// BackendPgVector stores collections in PostgreSQL with pgvector.
	BackendPgVector Backend = "pgvector"
)

// Config selects and configures a backend.
type Config struct {
	Backend      Backend
	SQLitePath   string
	QdrantURL    string
	QdrantAPIKey string
	PostgresURL  string
}

// New creates the configured VectorStore. Callers never branch on the
// backend after construction.
func New(ctx context.Context, cfg Config) (VectorStore, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, "":
		path := cfg.SQLitePath
		if path == "" {
			path = "docdrift.db"
		}
		return NewSQLiteStore(path)
	case BackendQdrant:
		return NewQdrantStore(cfg.QdrantURL, cfg.QdrantAPIKey)
	case BackendPgVector:
		return NewPgVectorStore(ctx, cfg.PostgresURL)
	default:
		return nil, apperrors.Invalid("vector_backend", "unknown backend %q (supported: memory, sqlite, qdrant, pgvector)", cfg.Backend)
	}
}
