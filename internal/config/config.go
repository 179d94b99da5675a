package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"docdrift/internal/apperrors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DOCDRIFT"

// Config holds all configuration for the application.
type Config struct {
	LogLevel  string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT"`

	Collection        string `yaml:"collection" envconfig:"COLLECTION"`
	ChangesCollection string `yaml:"changes_collection" envconfig:"CHANGES_COLLECTION"`

	ChunkMaxChars int      `yaml:"chunk_max_chars" envconfig:"CHUNK_MAX_CHARS"`
	ChunkOverlap  int      `yaml:"chunk_overlap" envconfig:"CHUNK_OVERLAP"`
	DocExtensions []string `yaml:"doc_extensions" envconfig:"DOC_EXTENSIONS"`

	EmbeddingProvider    string        `yaml:"embedding_provider" envconfig:"EMBEDDING_PROVIDER"`
	EmbeddingBaseURL     string        `yaml:"embedding_base_url" envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingModel       string        `yaml:"embedding_model" envconfig:"EMBEDDING_MODEL"`
	EmbeddingAPIKey      string        `yaml:"embedding_api_key" envconfig:"EMBEDDING_API_KEY"`
	EmbeddingDimensions  int           `yaml:"embedding_dimensions" envconfig:"EMBEDDING_DIMENSIONS"`
	GenAIBackend         string        `yaml:"genai_backend" envconfig:"GENAI_BACKEND"`
	GenAIProject         string        `yaml:"genai_project" envconfig:"GENAI_PROJECT"`
	GenAILocation        string        `yaml:"genai_location" envconfig:"GENAI_LOCATION"`
	DocumentPrefix       string        `yaml:"document_prefix" envconfig:"DOCUMENT_PREFIX"`
	QueryPrefix          string        `yaml:"query_prefix" envconfig:"QUERY_PREFIX"`
	EmbedBatchSize       int           `yaml:"embed_batch_size" envconfig:"EMBED_BATCH_SIZE"`
	EmbedConcurrency     int           `yaml:"embed_concurrency" envconfig:"EMBED_CONCURRENCY"`
	EmbedRateLimit       float64       `yaml:"embed_rate_limit" envconfig:"EMBED_RATE_LIMIT"`
	EmbedTimeout         time.Duration `yaml:"embed_timeout" envconfig:"EMBED_TIMEOUT"`
	RetryMaxAttempts     int           `yaml:"retry_max_attempts" envconfig:"RETRY_MAX_ATTEMPTS"`
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval" envconfig:"RETRY_INITIAL_INTERVAL"`
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval" envconfig:"RETRY_MAX_INTERVAL"`
	IndexTimeout         time.Duration `yaml:"index_timeout" envconfig:"INDEX_TIMEOUT"`

	VectorBackend string `yaml:"vector_backend" envconfig:"VECTOR_BACKEND"`
	SQLitePath    string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	QdrantURL     string `yaml:"qdrant_url" envconfig:"QDRANT_URL"`
	QdrantAPIKey  string `yaml:"qdrant_api_key" envconfig:"QDRANT_API_KEY"`
	PostgresURL   string `yaml:"postgres_url" envconfig:"POSTGRES_URL"`

	SignificanceThreshold float64 `yaml:"significance_threshold" envconfig:"SIGNIFICANCE_THRESHOLD"`
	RulesFile             string  `yaml:"rules_file" envconfig:"RULES_FILE"`
	TopK                  int     `yaml:"top_k" envconfig:"TOP_K"`
	StaleWhenUnknown      bool    `yaml:"stale_when_unknown" envconfig:"STALE_WHEN_UNKNOWN"`
	SinceDays             int     `yaml:"since_days" envconfig:"SINCE_DAYS"`
	CorrelateConcurrency  int     `yaml:"correlate_concurrency" envconfig:"CORRELATE_CONCURRENCY"`

	HTTPAddr string `yaml:"http_addr" envconfig:"HTTP_ADDR"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",

		Collection:        "documents",
		ChangesCollection: "git_changes",

		ChunkMaxChars: 2000,
		ChunkOverlap:  200,
		DocExtensions: []string{".md", ".markdown"},

		EmbeddingProvider:    "openai",
		EmbeddingBaseURL:     "http://localhost:11434",
		EmbeddingModel:       "nomic-embed-text",
		EmbeddingDimensions:  768,
		GenAIBackend:         "gemini",
		DocumentPrefix:       "search_document: ",
		QueryPrefix:          "search_query: ",
		EmbedBatchSize:       16,
		EmbedConcurrency:     4,
		EmbedTimeout:         30 * time.Second,
		RetryMaxAttempts:     4,
		RetryInitialInterval: 200 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		IndexTimeout:         30 * time.Second,

		VectorBackend: "sqlite",
		SQLitePath:    "docdrift.db",
		QdrantURL:     "http://localhost:6333",

		SignificanceThreshold: 0.35,
		TopK:                  5,
		StaleWhenUnknown:      true,
		SinceDays:             7,
		CorrelateConcurrency:  4,

		HTTPAddr: ":9000",
	}
}

// Load builds the configuration from, lowest precedence first: defaults,
// the YAML file at path (or $DOCDRIFT_CONFIG), a discovered .env file,
// DOCDRIFT_* environment variables, and flags explicitly set on flags.
// Either argument may be empty/nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	loadDotEnv()

	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if flags != nil {
		if err := cfg.applyFlags(flags); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads the first .env found walking up from the working directory.
// Variables already set in the environment take precedence.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	var errs []error

	if c.ChunkMaxChars <= 0 {
		errs = append(errs, apperrors.Invalid("chunk_max_chars", "must be positive, got %d", c.ChunkMaxChars))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkMaxChars {
		errs = append(errs, apperrors.Invalid("chunk_overlap", "must be in [0, %d), got %d", c.ChunkMaxChars, c.ChunkOverlap))
	}
	if c.TopK <= 0 {
		errs = append(errs, apperrors.Invalid("top_k", "must be positive, got %d", c.TopK))
	}
	if c.SignificanceThreshold < 0 || c.SignificanceThreshold > 1 {
		errs = append(errs, apperrors.Invalid("significance_threshold", "must be in [0, 1], got %v", c.SignificanceThreshold))
	}
	if c.EmbedBatchSize <= 0 {
		errs = append(errs, apperrors.Invalid("embed_batch_size", "must be positive, got %d", c.EmbedBatchSize))
	}
	if c.EmbedConcurrency <= 0 {
		errs = append(errs, apperrors.Invalid("embed_concurrency", "must be positive, got %d", c.EmbedConcurrency))
	}
	if c.CorrelateConcurrency <= 0 {
		errs = append(errs, apperrors.Invalid("correlate_concurrency", "must be positive, got %d", c.CorrelateConcurrency))
	}
	if c.EmbedRateLimit < 0 {
		errs = append(errs, apperrors.Invalid("embed_rate_limit", "must not be negative"))
	}
	if c.SinceDays < 0 {
		errs = append(errs, apperrors.Invalid("since_days", "must not be negative, got %d", c.SinceDays))
	}
	if strings.TrimSpace(c.Collection) == "" {
		errs = append(errs, apperrors.Invalid("collection", "is required"))
	}

	switch c.VectorBackend {
	case "memory", "sqlite", "qdrant", "pgvector":
	default:
		errs = append(errs, apperrors.Invalid("vector_backend", "unknown backend %q", c.VectorBackend))
	}
	if c.VectorBackend == "pgvector" && c.PostgresURL == "" {
		errs = append(errs, apperrors.Invalid("postgres_url", "is required for the pgvector backend"))
	}

	switch c.EmbeddingProvider {
	case "openai", "genai", "hash":
	default:
		errs = append(errs, apperrors.Invalid("embedding_provider", "unknown provider %q", c.EmbeddingProvider))
	}
	if c.EmbeddingDimensions <= 0 {
		errs = append(errs, apperrors.Invalid("embedding_dimensions", "must be positive, got %d", c.EmbeddingDimensions))
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, apperrors.Invalid("log_format", "must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}
