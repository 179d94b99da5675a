package llm

import (
	"context"
	"fmt"

	"docdrift/internal/apperrors"
)

// ProviderConfig selects and configures the embedding backend.
type ProviderConfig struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int

	GenAIBackend  string
	GenAIProject  string
	GenAILocation string
}

// NewEmbedder constructs the Embedder named by cfg.Provider.
func NewEmbedder(ctx context.Context, cfg ProviderConfig) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewEmbeddingsClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimensions), nil
	case ProviderGenAI:
		return NewGenAIEmbedder(ctx, GenAIConfig{
			Backend:    cfg.GenAIBackend,
			APIKey:     cfg.APIKey,
			Project:    cfg.GenAIProject,
			Location:   cfg.GenAILocation,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case ProviderHash:
		return NewHashEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q: %w", cfg.Provider, apperrors.ErrInvalidConfig)
	}
}
