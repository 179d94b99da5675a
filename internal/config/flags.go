package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// RegisterFlags declares the command-line overrides on fs.
// Only flags the user sets take effect in Load.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log-format", d.LogFormat, "log format (text, json)")
	fs.StringP("collection", "c", d.Collection, "documentation collection name")
	fs.Int("top-k", d.TopK, "documentation matches per change")
	fs.Float64("threshold", d.SignificanceThreshold, "minimum change significance")
	fs.Int("chunk-size", d.ChunkMaxChars, "maximum characters per chunk")
	fs.Int("chunk-overlap", d.ChunkOverlap, "characters shared between consecutive chunks")
	fs.String("backend", d.VectorBackend, "vector backend (memory, sqlite, qdrant, pgvector)")
	fs.String("embedding-provider", d.EmbeddingProvider, "embedding provider (openai, genai, hash)")
	fs.String("embedding-model", d.EmbeddingModel, "embedding model name")
	fs.String("embedding-url", d.EmbeddingBaseURL, "base URL of an OpenAI-compatible embedding server")
	fs.String("rules", d.RulesFile, "YAML file replacing the classification rules")
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "log-level":
			c.LogLevel = f.Value.String()
		case "log-format":
			c.LogFormat = f.Value.String()
		case "collection":
			c.Collection = f.Value.String()
		case "top-k":
			c.TopK, err = fs.GetInt(f.Name)
		case "threshold":
			c.SignificanceThreshold, err = fs.GetFloat64(f.Name)
		case "chunk-size":
			c.ChunkMaxChars, err = fs.GetInt(f.Name)
		case "chunk-overlap":
			c.ChunkOverlap, err = fs.GetInt(f.Name)
		case "backend":
			c.VectorBackend = f.Value.String()
		case "embedding-provider":
			c.EmbeddingProvider = f.Value.String()
		case "embedding-model":
			c.EmbeddingModel = f.Value.String()
		case "embedding-url":
			c.EmbeddingBaseURL = f.Value.String()
		case "rules":
			c.RulesFile = f.Value.String()
		}
	})
	if err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}
	return nil
}
