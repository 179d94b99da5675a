// Package llm maps text to embedding vectors through a pluggable provider.
package llm

import "context"

// Embedder maps texts to vectors. It returns exactly one vector per input,
// in input order.
//
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks docdrift/internal/llm Embedder
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider names accepted by NewEmbedder.
const (
	ProviderOpenAI = "openai"
	ProviderGenAI  = "genai"
	ProviderHash   = "hash"
)
