package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"docdrift/internal/analyzer"
	"docdrift/internal/config"
	"docdrift/internal/correlation"
	"docdrift/internal/gitdiff"
	"docdrift/internal/indexer"
	"docdrift/internal/llm"
	"docdrift/internal/metrics"
	"docdrift/internal/retry"
	"docdrift/internal/service"
	"docdrift/internal/vectorstore"
)

// App is the fully wired set of components behind every command.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    vectorstore.VectorStore
	Pipeline *indexer.Pipeline
	Service  service.DocService
	Metrics  *metrics.Recorder
}

// AppFactory builds an App from loaded configuration.
type AppFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error)

// NewApp connects to the configured vector backend and embedding provider and
// wires the indexing, analysis and correlation components around them.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.New(reg)

	policy := retry.Policy{
		MaxAttempts:     cfg.RetryMaxAttempts,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
	}
	embedPolicy := policy
	embedPolicy.Timeout = cfg.EmbedTimeout
	indexPolicy := policy
	indexPolicy.Timeout = cfg.IndexTimeout

	store, err := vectorstore.New(ctx, vectorstore.Config{
		Backend:      vectorstore.Backend(cfg.VectorBackend),
		SQLitePath:   cfg.SQLitePath,
		QdrantURL:    cfg.QdrantURL,
		QdrantAPIKey: cfg.QdrantAPIKey,
		PostgresURL:  cfg.PostgresURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	app, err := wire(ctx, cfg, logger, store, rec, embedPolicy, indexPolicy)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	logger.DebugContext(ctx, "application wired",
		"backend", cfg.VectorBackend,
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_model", cfg.EmbeddingModel,
		"dimensions", cfg.EmbeddingDimensions,
	)
	return app, nil
}

func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger, store vectorstore.VectorStore, rec *metrics.Recorder, embedPolicy, indexPolicy retry.Policy) (*App, error) {
	embedder, err := llm.NewEmbedder(ctx, llm.ProviderConfig{
		Provider:      cfg.EmbeddingProvider,
		BaseURL:       cfg.EmbeddingBaseURL,
		APIKey:        cfg.EmbeddingAPIKey,
		Model:         cfg.EmbeddingModel,
		Dimensions:    cfg.EmbeddingDimensions,
		GenAIBackend:  cfg.GenAIBackend,
		GenAIProject:  cfg.GenAIProject,
		GenAILocation: cfg.GenAILocation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	gateway := llm.NewGateway(embedder, llm.GatewayConfig{
		BatchSize:      cfg.EmbedBatchSize,
		Concurrency:    cfg.EmbedConcurrency,
		RateLimit:      cfg.EmbedRateLimit,
		Retry:          embedPolicy,
		Dimensions:     cfg.EmbeddingDimensions,
		DocumentPrefix: cfg.DocumentPrefix,
		QueryPrefix:    cfg.QueryPrefix,
	}, rec)

	pipeline := indexer.NewPipeline(store, gateway, indexer.Config{
		MaxChars:       cfg.ChunkMaxChars,
		Overlap:        cfg.ChunkOverlap,
		Extensions:     cfg.DocExtensions,
		VectorSize:     cfg.EmbeddingDimensions,
		EmbeddingModel: cfg.EmbeddingModel,
		Retry:          indexPolicy,
	}, indexer.WithMetrics(rec), indexer.WithLogger(logger))

	rules := analyzer.DefaultRules()
	if cfg.RulesFile != "" {
		rules, err = analyzer.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
	}
	changeAnalyzer, err := analyzer.New(analyzer.Config{
		Threshold: cfg.SignificanceThreshold,
		Rules:     rules,
	}, rec, logger)
	if err != nil {
		return nil, err
	}

	engine := correlation.NewEngine(gateway, store, correlation.Config{
		StaleWhenUnknown: cfg.StaleWhenUnknown,
		Concurrency:      cfg.CorrelateConcurrency,
		Retry:            indexPolicy,
	}, rec, logger)

	svc := service.New(service.Deps{
		Store:      store,
		Embedder:   gateway,
		Indexer:    pipeline,
		Diffs:      gitdiff.NewExtractor(logger),
		Analyzer:   changeAnalyzer,
		Correlator: engine,
		Metrics:    rec,
		Logger:     logger,
	}, service.Config{
		Collection:        cfg.Collection,
		ChangesCollection: cfg.ChangesCollection,
		TopK:              cfg.TopK,
		SinceDays:         cfg.SinceDays,
		VectorSize:        cfg.EmbeddingDimensions,
		Retry:             indexPolicy,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Pipeline: pipeline,
		Service:  svc,
		Metrics:  rec,
	}, nil
}

// Close releases the vector store connection.
func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
