package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"docdrift/internal/apperrors"
)

// GenAIConfig selects the Gemini API (API key) or Vertex AI (project and location).
type GenAIConfig struct {
	Backend    string // "gemini" or "vertex"
	APIKey     string
	Project    string
	Location   string
	Model      string
	Dimensions int
	// TaskType is passed to the embedding model, e.g. SEMANTIC_SIMILARITY.
	TaskType string
}

// GenAIEmbedder embeds text through google.golang.org/genai.
type GenAIEmbedder struct {
	client *genai.Client
	cfg    GenAIConfig
}

// NewGenAIEmbedder creates a client for the configured backend.
func NewGenAIEmbedder(ctx context.Context, cfg GenAIConfig) (*GenAIEmbedder, error) {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	if cfg.TaskType == "" {
		cfg.TaskType = "SEMANTIC_SIMILARITY"
	}

	cc := genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if strings.EqualFold(cfg.Backend, "vertex") {
		cc.Backend = genai.BackendVertexAI
		if cfg.Location == "" && strings.TrimSpace(cfg.APIKey) == "" {
			cfg.Location = "us-central1"
		}
	}
	if strings.TrimSpace(cfg.APIKey) != "" {
		cc.APIKey = cfg.APIKey
	}
	if strings.TrimSpace(cfg.Project) != "" {
		cc.Project = cfg.Project
	}
	if strings.TrimSpace(cfg.Location) != "" {
		cc.Location = cfg.Location
	}

	client, err := genai.NewClient(ctx, &cc)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to create genai client")
	}
	return &GenAIEmbedder{client: client, cfg: cfg}, nil
}

// EmbedTexts embeds all texts in one EmbedContent call.
func (e *GenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if e.client == nil {
		return nil, errors.New("genai client not initialized")
	}
	if len(texts) == 0 {
		return nil, errors.New("empty input array")
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	cfg := &genai.EmbedContentConfig{TaskType: e.cfg.TaskType}
	if e.cfg.Dimensions > 0 {
		dim := int32(e.cfg.Dimensions)
		cfg.OutputDimensionality = &dim
	}

	res, err := e.client.Models.EmbedContent(ctx, e.cfg.Model, contents, cfg)
	if err != nil {
		return nil, apperrors.WrapError(err, "embedding failed")
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), got)
	}

	out := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}
