// Package service composes indexing, diff analysis and correlation into the
// operations exposed by the CLI, REST and MCP surfaces.
package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_doc_service.go -package=mocks -mock_names=DocService=MockDocService docdrift/internal/service DocService

import (
	"context"
	"log/slog"

	"docdrift/internal/analyzer"
	"docdrift/internal/correlation"
	"docdrift/internal/gitdiff"
	"docdrift/internal/indexer"
	"docdrift/internal/metrics"
	"docdrift/internal/retry"
	"docdrift/internal/vectorstore"
)

// FolderIndexer populates a collection from a folder of documents.
type FolderIndexer interface {
	IndexFolder(ctx context.Context, folder, collection string) (*indexer.IndexReport, error)
}

// DiffSource extracts diff hunks from a repository.
type DiffSource interface {
	Diffs(ctx context.Context, repoPath string, r gitdiff.Range) ([]gitdiff.Hunk, error)
}

// SignalAnalyzer turns hunks into scored change signals.
type SignalAnalyzer interface {
	Analyze(ctx context.Context, hunks []gitdiff.Hunk) []analyzer.ChangeSignal
}

// Correlator matches change signals against a documentation collection.
type Correlator interface {
	Correlate(ctx context.Context, signals []analyzer.ChangeSignal, collection string, topK int) ([]correlation.Result, error)
}

// Embedder embeds documents and queries.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// DocService is the application boundary shared by every surface.
type DocService interface {
	// Index chunks, embeds and stores a folder of documentation.
	Index(ctx context.Context, req IndexRequest) (*indexer.IndexReport, error)
	// Check analyzes a diff and reports the documentation it probably made stale.
	Check(ctx context.Context, req CheckRequest) (*CheckReport, error)
	// Search returns the chunks most similar to a free-text query.
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	// IndexChanges stores significant change signals so change history is searchable.
	IndexChanges(ctx context.Context, req ChangesRequest) (*ChangesReport, error)
	// ListCollections returns every collection in the vector store.
	ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error)
	// DeleteCollection drops a collection.
	DeleteCollection(ctx context.Context, name string) error
}

// Config carries the defaults applied to requests that leave fields empty.
type Config struct {
	Collection        string
	ChangesCollection string
	TopK              int
	SinceDays         int
	VectorSize        int
	Retry             retry.Policy
}

// Deps are the collaborators a DocService is built from.
type Deps struct {
	Store      vectorstore.VectorStore
	Embedder   Embedder
	Indexer    FolderIndexer
	Diffs      DiffSource
	Analyzer   SignalAnalyzer
	Correlator Correlator
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
}

type docService struct {
	Deps
	cfg Config
}

// New creates a DocService.
func New(deps Deps, cfg Config) DocService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "service")
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return &docService{Deps: deps, cfg: cfg}
}
