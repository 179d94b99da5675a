package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"docdrift/internal/apperrors"
	"docdrift/internal/metrics"
	"docdrift/internal/retry"
)

// GatewayConfig controls batching, concurrency, rate limiting and retries.
type GatewayConfig struct {
	BatchSize   int
	Concurrency int
	// RateLimit is batches per second. Zero disables limiting.
	RateLimit float64
	Retry     retry.Policy
	// Dimensions, when set, is checked against every returned vector.
	Dimensions     int
	DocumentPrefix string
	QueryPrefix    string
}

// Gateway is the embedding entry point used by the indexer and the
// correlation engine.
type Gateway struct {
	embedder Embedder
	cfg      GatewayConfig
	limiter  *rate.Limiter
	metrics  *metrics.Recorder
}

// NewGateway wraps embedder. rec may be nil.
func NewGateway(embedder Embedder, cfg GatewayConfig, rec *metrics.Recorder) *Gateway {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Concurrency)
	}
	return &Gateway{embedder: embedder, cfg: cfg, limiter: limiter, metrics: rec}
}

// EmbedDocuments embeds chunk texts with the document prefix.
func (g *Gateway) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return g.embed(ctx, "embed_documents", g.cfg.DocumentPrefix, texts)
}

// EmbedQuery embeds a single query with the query prefix.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.embed(ctx, "embed_query", g.cfg.QueryPrefix, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (g *Gateway) embed(ctx context.Context, op, prefix string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	inputs := texts
	if prefix != "" {
		inputs = make([]string, len(texts))
		for i, t := range texts {
			inputs[i] = prefix + t
		}
	}

	out := make([][]float32, len(inputs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Concurrency)

	for start := 0; start < len(inputs); start += g.cfg.BatchSize {
		end := min(start+g.cfg.BatchSize, len(inputs))
		eg.Go(func() error {
			vecs, err := g.embedBatch(egCtx, inputs[start:end])
			if err != nil {
				return apperrors.NewOpError(op, fmt.Sprintf("batch[%d:%d]", start, end), apperrors.ErrEmbeddingFailure, err)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var vecs [][]float32
	err := retry.Do(ctx, g.cfg.Retry, func(ctx context.Context) error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		start := time.Now()
		res, err := g.embedder.EmbedTexts(ctx, batch)
		g.metrics.ObserveEmbedding(start)
		if err != nil {
			return err
		}
		vecs = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("expected %d vectors, got %d", len(batch), len(vecs))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("vector %d is empty", i)
		}
		if g.cfg.Dimensions > 0 && len(v) != g.cfg.Dimensions {
			return nil, fmt.Errorf("vector %d has size %d, expected %d", i, len(v), g.cfg.Dimensions)
		}
	}
	return vecs, nil
}
