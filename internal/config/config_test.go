package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"docdrift/internal/apperrors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T) (string, *pflag.FlagSet)
		wantErr     bool
		checkConfig func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			setup: func(t *testing.T) (string, *pflag.FlagSet) {
				return "", nil
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.ChunkMaxChars != 2000 || cfg.ChunkOverlap != 200 {
					t.Errorf("chunk = %d/%d, want 2000/200", cfg.ChunkMaxChars, cfg.ChunkOverlap)
				}
				if cfg.TopK != 5 {
					t.Errorf("TopK = %d, want 5", cfg.TopK)
				}
				if cfg.VectorBackend != "sqlite" {
					t.Errorf("VectorBackend = %q, want sqlite", cfg.VectorBackend)
				}
			},
		},
		{
			name: "yaml file overrides defaults",
			setup: func(t *testing.T) (string, *pflag.FlagSet) {
				path := writeFile(t, t.TempDir(), "docdrift.yaml", "chunk_max_chars: 500\nchunk_overlap: 50\nembed_timeout: 5s\nvector_backend: memory\n")
				return path, nil
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.ChunkMaxChars != 500 || cfg.ChunkOverlap != 50 {
					t.Errorf("chunk = %d/%d, want 500/50", cfg.ChunkMaxChars, cfg.ChunkOverlap)
				}
				if cfg.EmbedTimeout != 5*time.Second {
					t.Errorf("EmbedTimeout = %v, want 5s", cfg.EmbedTimeout)
				}
				if cfg.VectorBackend != "memory" {
					t.Errorf("VectorBackend = %q, want memory", cfg.VectorBackend)
				}
			},
		},
		{
			name: "env overrides yaml",
			setup: func(t *testing.T) (string, *pflag.FlagSet) {
				path := writeFile(t, t.TempDir(), "docdrift.yaml", "top_k: 3\n")
				t.Setenv("DOCDRIFT_TOP_K", "9")
				t.Setenv("DOCDRIFT_DOC_EXTENSIONS", ".md,.rst")
				return path, nil
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.TopK != 9 {
					t.Errorf("TopK = %d, want 9", cfg.TopK)
				}
				if len(cfg.DocExtensions) != 2 || cfg.DocExtensions[1] != ".rst" {
					t.Errorf("DocExtensions = %v, want [.md .rst]", cfg.DocExtensions)
				}
			},
		},
		{
			name: "changed flags override env",
			setup: func(t *testing.T) (string, *pflag.FlagSet) {
				t.Setenv("DOCDRIFT_COLLECTION", "from-env")
				t.Setenv("DOCDRIFT_TOP_K", "9")
				fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
				RegisterFlags(fs)
				if err := fs.Parse([]string{"--collection", "from-flag"}); err != nil {
					t.Fatalf("Parse() error = %v", err)
				}
				return "", fs
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.Collection != "from-flag" {
					t.Errorf("Collection = %q, want from-flag", cfg.Collection)
				}
				if cfg.TopK != 9 {
					t.Errorf("TopK = %d, want 9 (unset flag must not override env)", cfg.TopK)
				}
			},
		},
		{
			name: "missing config file",
			setup: func(t *testing.T) (string, *pflag.FlagSet) {
				return filepath.Join(t.TempDir(), "missing.yaml"), nil
			},
			wantErr: true,
		},
		{
			name: "invalid overlap",
			setup: func(t *testing.T) (string, *pflag.FlagSet) {
				t.Setenv("DOCDRIFT_CHUNK_OVERLAP", "2000")
				return "", nil
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			path, fs := tt.setup(t)

			cfg, err := Load(path, fs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.checkConfig != nil {
				tt.checkConfig(t, cfg)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "DOCDRIFT_SINCE_DAYS=14\n")
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	t.Chdir(sub)
	t.Cleanup(func() { _ = os.Unsetenv("DOCDRIFT_SINCE_DAYS") })

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SinceDays != 14 {
		t.Errorf("SinceDays = %d, want 14", cfg.SinceDays)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{name: "zero chunk size", mutate: func(c *Config) { c.ChunkMaxChars = 0 }, field: "chunk_max_chars"},
		{name: "negative overlap", mutate: func(c *Config) { c.ChunkOverlap = -1 }, field: "chunk_overlap"},
		{name: "zero top_k", mutate: func(c *Config) { c.TopK = 0 }, field: "top_k"},
		{name: "threshold above one", mutate: func(c *Config) { c.SignificanceThreshold = 1.5 }, field: "significance_threshold"},
		{name: "unknown backend", mutate: func(c *Config) { c.VectorBackend = "redis" }, field: "vector_backend"},
		{name: "pgvector without url", mutate: func(c *Config) { c.VectorBackend = "pgvector" }, field: "postgres_url"},
		{name: "unknown provider", mutate: func(c *Config) { c.EmbeddingProvider = "bert" }, field: "embedding_provider"},
		{name: "zero batch", mutate: func(c *Config) { c.EmbedBatchSize = 0 }, field: "embed_batch_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, apperrors.ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			var vErr *apperrors.ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.field {
				t.Errorf("Validate() field = %v, want %s", vErr, tt.field)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}
