// Package correlation matches change signals against indexed documentation
// and flags the chunks that are likely stale.
package correlation

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"docdrift/internal/analyzer"
	"docdrift/internal/apperrors"
	"docdrift/internal/contextutil"
	"docdrift/internal/indexer"
	"docdrift/internal/metrics"
	"docdrift/internal/retry"
	"docdrift/internal/vectorstore"
)

// Engine correlates change signals with documentation chunks.
type Engine struct {
	embedder QueryEmbedder
	store    vectorstore.VectorStore
	cfg      Config
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// NewEngine creates a correlation engine. rec and logger may be nil.
func NewEngine(embedder QueryEmbedder, store vectorstore.VectorStore, cfg Config, rec *metrics.Recorder, logger *slog.Logger) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		metrics:  rec,
		logger:   logger.With("component", "correlation"),
	}
}

// Correlate finds up to topK documentation chunks per signal. A missing or
// empty collection yields gap results, not an error. Per-signal failures
// mark that result errored. Results are ordered by descending signal
// significance.
func (e *Engine) Correlate(ctx context.Context, signals []analyzer.ChangeSignal, collection string, topK int) ([]Result, error) {
	if topK < 1 || topK > MaxTopK {
		return nil, apperrors.Invalid("top_k", "must be between 1 and %d, got %d", MaxTopK, topK)
	}
	if strings.TrimSpace(collection) == "" {
		return nil, apperrors.Invalid("collection", "must not be empty")
	}

	logger := contextutil.LoggerOr(ctx, e.logger)

	var exists bool
	err := retry.Do(ctx, e.cfg.Retry, func(ctx context.Context) error {
		var err error
		exists, err = e.store.CollectionExists(ctx, collection)
		return err
	})
	if err != nil {
		return nil, apperrors.NewOpError("collection_exists", collection, apperrors.ErrIndexFailure, err)
	}

	results := make([]Result, len(signals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i := range signals {
		results[i].Signal = signals[i]
		results[i].Matches = []Match{}
		if !exists {
			results[i].Gap = true
			continue
		}
		g.Go(func() error {
			e.correlateOne(gctx, &results[i], collection, topK)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]int, 3)
	for i := range results {
		r := &results[i]
		r.Recommendation = recommend(r)
		outcome := r.Outcome()
		counts[outcome]++
		e.metrics.Correlation(outcome)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Signal.Significance > results[j].Signal.Significance
	})

	logger.InfoContext(ctx, "correlation completed",
		"collection", collection,
		"signals", len(signals),
		"collection_exists", exists,
		OutcomeMatched, counts[OutcomeMatched],
		OutcomeGap, counts[OutcomeGap],
		OutcomeErrored, counts[OutcomeErrored],
	)
	return results, nil
}

func (e *Engine) correlateOne(ctx context.Context, r *Result, collection string, topK int) {
	logger := contextutil.LoggerOr(ctx, e.logger)
	signal := &r.Signal

	vec, err := e.embedder.EmbedQuery(ctx, signal.SummaryText)
	if err != nil {
		e.fail(ctx, r, apperrors.NewOpError("embed_query", signal.FilePath(), apperrors.ErrEmbeddingFailure, err))
		return
	}

	var hits []vectorstore.SearchResult
	err = retry.Do(ctx, e.cfg.Retry, func(ctx context.Context) error {
		var err error
		hits, err = e.store.Search(ctx, collection, vec, topK, nil)
		return err
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		// Dropped after the existence check.
		err, hits = nil, nil
	}
	if err != nil {
		e.fail(ctx, r, apperrors.NewOpError("search", collection, apperrors.ErrIndexFailure, err))
		return
	}

	query := signal.SummaryText
	if len(signal.Terms) > 0 {
		query = strings.Join(signal.Terms, " ") + " " + query
	}

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		m := Match{
			ChunkID:     h.PointID,
			SourcePath:  vectorstore.MetaString(h.Meta, indexer.MetaSourcePath),
			ChunkIndex:  vectorstore.MetaInt(h.Meta, indexer.MetaChunkIndex),
			HeadingPath: vectorstore.MetaString(h.Meta, indexer.MetaHeadingPath),
			Text:        h.Text,
			Similarity:  float64(h.Score),
		}
		m.LexicalScore = lexicalScore(query, m.Text, m.HeadingPath)
		if ts := vectorstore.MetaString(h.Meta, indexer.MetaDocModifiedAt); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				m.DocModifiedAt = &t
			}
		}
		m.IsStale = isStale(signal, m.DocModifiedAt, e.cfg.StaleWhenUnknown)
		matches = append(matches, m)
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > topK {
		matches = matches[:topK]
	}

	r.Matches = matches
	r.Gap = len(matches) == 0

	logger.DebugContext(ctx, "correlated signal",
		"path", signal.FilePath(),
		"category", signal.Category,
		"significance", signal.Significance,
		"matches", len(matches),
	)
}

func (e *Engine) fail(ctx context.Context, r *Result, err error) {
	contextutil.LoggerOr(ctx, e.logger).WarnContext(ctx, "correlation failed for signal",
		"path", r.Signal.FilePath(), "error", err)
	r.Errored = true
	r.Err = err
	r.Error = err.Error()
}
