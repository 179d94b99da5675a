package indexer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"docdrift/internal/apperrors"
	"docdrift/internal/contextutil"
	"docdrift/internal/metrics"
	"docdrift/internal/retry"
	"docdrift/internal/vectorstore"
)

// Payload keys written with every documentation chunk.
const (
	MetaSourcePath    = "source_path"
	MetaChunkIndex    = "chunk_index"
	MetaCharStart     = "char_start"
	MetaCharEnd       = "char_end"
	MetaDocModifiedAt = "doc_modified_at"
	MetaContentHash   = "content_hash"
	MetaHeadingPath   = "heading_path"
	MetaTitle         = "title"
	MetaContentType   = "content_type"

	ContentTypeDocumentation = "documentation"
)

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docdrift/chunk"))

// ChunkID is the deterministic id of chunk index idx of the document at path.
func ChunkID(path string, idx int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(path+"#"+strconv.Itoa(idx))).String()
}

// Pipeline indexes a folder of documentation into a vector collection.
type Pipeline struct {
	store    vectorstore.VectorStore
	embedder DocumentEmbedder
	reader   FileReader
	chunker  *GoldmarkChunker
	cfg      Config
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFileReader replaces the filesystem reader.
func WithFileReader(r FileReader) Option {
	return func(p *Pipeline) { p.reader = r }
}

// WithMetrics records indexing counters on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = rec }
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(store vectorstore.VectorStore, embedder DocumentEmbedder, cfg Config, opts ...Option) *Pipeline {
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	p := &Pipeline{
		store:    store,
		embedder: embedder,
		reader:   osReader{},
		chunker:  NewGoldmarkChunker(),
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) validate(collection string) error {
	var errs []error
	if collection == "" {
		errs = append(errs, apperrors.Invalid("collection", "must not be empty"))
	}
	if p.cfg.MaxChars <= 0 {
		errs = append(errs, apperrors.Invalid("max_chars", "must be positive, got %d", p.cfg.MaxChars))
	} else if p.cfg.Overlap < 0 || p.cfg.Overlap >= p.cfg.MaxChars {
		errs = append(errs, apperrors.Invalid("overlap_chars", "must be in [0, %d), got %d", p.cfg.MaxChars, p.cfg.Overlap))
	}
	if p.cfg.VectorSize <= 0 {
		errs = append(errs, apperrors.Invalid("vector_size", "must be positive, got %d", p.cfg.VectorSize))
	}
	return errors.Join(errs...)
}

// IndexFolder chunks, embeds and stores every documentation file under folder.
// Each file's chunks replace whatever the collection held for that path.
// Per-file failures are collected in the report; the run itself fails only
// for invalid parameters, an unreadable folder or an unreachable index.
func (p *Pipeline) IndexFolder(ctx context.Context, folder, collection string) (*IndexReport, error) {
	logger := contextutil.LoggerOr(ctx, p.logger)
	started := time.Now()

	if err := p.validate(collection); err != nil {
		return nil, err
	}

	root, err := p.checkFolder(folder)
	if err != nil {
		return nil, err
	}

	if err := p.ensureCollection(ctx, collection); err != nil {
		return nil, err
	}

	docs, err := ScanFolder(ctx, root, p.cfg.Extensions)
	if err != nil {
		return nil, apperrors.NewOpError("scan", folder, apperrors.ErrSourceUnavailable, err)
	}

	logger.InfoContext(ctx, "starting indexing", "folder", root, "collection", collection, "total_files", len(docs))

	report := p.newReport(collection)
	var tokenCounts []int
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tokens, err := p.indexDocument(ctx, doc, collection)
		if err != nil {
			p.recordError(ctx, report, doc.Path, err)
			continue
		}
		report.DocumentsProcessed++
		report.ChunksWritten += len(tokens)
		tokenCounts = append(tokenCounts, tokens...)
	}

	report.ChunkStats = computeTokenStats(tokenCounts)
	report.Duration = time.Since(started)

	logger.InfoContext(ctx, "indexing completed",
		"collection", collection,
		"documents", report.DocumentsProcessed,
		"chunks", report.ChunksWritten,
		"errors", len(report.Errors),
		"duration", report.Duration)
	return report, nil
}

// IndexFile re-indexes one file given relative to folder. A file that no
// longer exists has its chunks removed.
func (p *Pipeline) IndexFile(ctx context.Context, folder, relPath, collection string) (*IndexReport, error) {
	logger := contextutil.LoggerOr(ctx, p.logger)
	started := time.Now()

	if err := p.validate(collection); err != nil {
		return nil, err
	}
	root, err := p.checkFolder(folder)
	if err != nil {
		return nil, err
	}
	if err := p.ensureCollection(ctx, collection); err != nil {
		return nil, err
	}

	relPath = filepath.ToSlash(filepath.Clean(relPath))
	absPath := filepath.Join(root, filepath.FromSlash(relPath))
	report := p.newReport(collection)

	info, err := os.Stat(absPath)
	if errors.Is(err, os.ErrNotExist) {
		if err := p.RemoveFile(ctx, relPath, collection); err != nil {
			p.recordError(ctx, report, relPath, err)
		}
		report.Duration = time.Since(started)
		return report, nil
	}
	if err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is a directory", relPath)
		}
		p.recordError(ctx, report, relPath, apperrors.NewOpError("read", relPath, apperrors.ErrSourceUnavailable, err))
		report.Duration = time.Since(started)
		return report, nil
	}

	tokens, err := p.indexDocument(ctx, Document{Path: relPath, AbsPath: absPath, ModifiedAt: info.ModTime()}, collection)
	if err != nil {
		p.recordError(ctx, report, relPath, err)
	} else {
		report.DocumentsProcessed = 1
		report.ChunksWritten = len(tokens)
		report.ChunkStats = computeTokenStats(tokens)
	}
	report.Duration = time.Since(started)

	logger.DebugContext(ctx, "indexed file", "rel_path", relPath, "chunks", report.ChunksWritten)
	return report, nil
}

// RemoveFile deletes every chunk stored for relPath.
func (p *Pipeline) RemoveFile(ctx context.Context, relPath, collection string) error {
	err := retry.Do(ctx, p.cfg.Retry, func(ctx context.Context) error {
		return p.store.DeleteByFilter(ctx, collection, vectorstore.Filter{MetaSourcePath: relPath})
	})
	if err != nil {
		return apperrors.NewOpError("delete", relPath, apperrors.ErrIndexFailure, err)
	}
	return nil
}

func (p *Pipeline) checkFolder(folder string) (string, error) {
	if folder == "" {
		return "", apperrors.Invalid("folder", "must not be empty")
	}
	root, err := filepath.Abs(folder)
	if err != nil {
		return "", apperrors.NewOpError("index_folder", folder, apperrors.ErrSourceUnavailable, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", apperrors.NewOpError("index_folder", folder, apperrors.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return "", apperrors.NewOpError("index_folder", folder, apperrors.ErrSourceUnavailable, fmt.Errorf("not a directory"))
	}
	return root, nil
}

func (p *Pipeline) ensureCollection(ctx context.Context, collection string) error {
	err := retry.Do(ctx, p.cfg.Retry, func(ctx context.Context) error {
		return p.store.EnsureCollection(ctx, collection, p.cfg.VectorSize)
	})
	if err != nil {
		return apperrors.NewOpError("ensure_collection", collection, apperrors.ErrIndexFailure, err)
	}
	return nil
}

func (p *Pipeline) newReport(collection string) *IndexReport {
	return &IndexReport{
		Collection:   collection,
		Errors:       []IndexError{},
		IndexVersion: IndexVersion(p.cfg.EmbeddingModel, p.cfg.MaxChars, p.cfg.Overlap),
	}
}

func (p *Pipeline) recordError(ctx context.Context, report *IndexReport, path string, err error) {
	entry := IndexError{Path: path, Op: "index", Message: err.Error(), Retryable: apperrors.IsRetryable(err)}
	var opErr *apperrors.OpError
	if errors.As(err, &opErr) {
		entry.Op = opErr.Op
	}
	report.Errors = append(report.Errors, entry)
	p.metrics.IndexError(entry.Op)
	contextutil.LoggerOr(ctx, p.logger).ErrorContext(ctx, "failed to index file", "rel_path", path, "op", entry.Op, "error", err)
}

// indexDocument replaces the chunks of one document and returns the token
// estimate of each chunk written.
func (p *Pipeline) indexDocument(ctx context.Context, doc Document, collection string) ([]int, error) {
	content, err := p.reader.ReadFile(doc.AbsPath)
	if err != nil {
		return nil, apperrors.NewOpError("read", doc.Path, apperrors.ErrSourceUnavailable, err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	// Stored text and offsets refer to the normalised content.
	if !utf8.Valid(content) {
		contextutil.LoggerOr(ctx, p.logger).WarnContext(ctx, "replacing invalid UTF-8 in document", "path", doc.Path)
		content = bytes.ToValidUTF8(content, []byte(string(utf8.RuneError)))
	}

	spans, err := p.chunker.Chunk(string(content), p.cfg.MaxChars, p.cfg.Overlap)
	if err != nil {
		return nil, apperrors.NewOpError("chunk", doc.Path, apperrors.ErrInvalidConfig, err)
	}

	var vecs [][]float32
	if len(spans) > 0 {
		texts := make([]string, len(spans))
		for i, s := range spans {
			texts[i] = s.Text
		}
		vecs, err = p.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, apperrors.NewOpError("embed", doc.Path, apperrors.ErrEmbeddingFailure, err)
		}
		if len(vecs) != len(spans) {
			return nil, apperrors.NewOpError("embed", doc.Path, apperrors.ErrEmbeddingFailure,
				fmt.Errorf("embedding count mismatch: expected %d, got %d", len(spans), len(vecs)))
		}
	}

	title := p.chunker.Title(content, filepath.Base(doc.Path))
	modified := ""
	if !doc.ModifiedAt.IsZero() {
		modified = doc.ModifiedAt.UTC().Format(time.RFC3339)
	}

	points := make([]vectorstore.Point, len(spans))
	tokens := make([]int, len(spans))
	for i, s := range spans {
		meta := map[string]any{
			MetaSourcePath:  doc.Path,
			MetaChunkIndex:  s.Index,
			MetaCharStart:   s.Start,
			MetaCharEnd:     s.End,
			MetaContentHash: hash,
			MetaHeadingPath: s.HeadingPath,
			MetaTitle:       title,
			MetaContentType: ContentTypeDocumentation,
		}
		if modified != "" {
			meta[MetaDocModifiedAt] = modified
		}
		points[i] = vectorstore.Point{
			ID:   ChunkID(doc.Path, s.Index),
			Vec:  vecs[i],
			Text: s.Text,
			Meta: meta,
		}
		tokens[i] = estimateTokens(s.Text)
	}

	// Delete and upsert are retried together so a failure between them never
	// leaves the path half replaced.
	err = retry.Do(ctx, p.cfg.Retry, func(ctx context.Context) error {
		if err := p.store.DeleteByFilter(ctx, collection, vectorstore.Filter{MetaSourcePath: doc.Path}); err != nil {
			return fmt.Errorf("failed to delete old chunks: %w", err)
		}
		if len(points) == 0 {
			return nil
		}
		if err := p.store.Upsert(ctx, collection, points); err != nil {
			return fmt.Errorf("failed to upsert chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewOpError("upsert", doc.Path, apperrors.ErrIndexFailure, err)
	}

	p.metrics.DocumentIndexed(len(points))
	contextutil.LoggerOr(ctx, p.logger).DebugContext(ctx, "indexed document", "rel_path", doc.Path, "chunks", len(points), "title", title)
	return tokens, nil
}
