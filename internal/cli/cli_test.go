package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdrift/internal/apperrors"
	"docdrift/internal/config"
	"docdrift/internal/metrics"
	"docdrift/internal/retry"
	"docdrift/internal/service"
	"docdrift/internal/vectorstore"
)

var testFlags = []string{"--backend", "memory", "--embedding-provider", "hash", "--log-level", "error"}

// sharedStoreFactory builds apps over one in-memory store so state survives
// across command invocations.
func sharedStoreFactory(store *vectorstore.MemoryStore) AppFactory {
	return func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
		policy := retry.Policy{MaxAttempts: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
		return wire(ctx, cfg, logger, store, metrics.New(prometheus.NewRegistry()), policy, policy)
	}
}

func run(t *testing.T, factory AppFactory, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, testFlags...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	if !mtime.IsZero() {
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
}

func newDocs(t *testing.T, base time.Time) string {
	t.Helper()
	docs := t.TempDir()
	writeFile(t, filepath.Join(docs, "server.md"), "# Server\nCall Start with an address to listen on the server.", base.Add(-24*time.Hour))
	writeFile(t, filepath.Join(docs, "config.md"), "# Configuration\nSet the port in config.yaml.", time.Time{})
	return docs
}

func newRepo(t *testing.T, base time.Time) (dir, first, second string) {
	t.Helper()
	dir = t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	commit := func(msg string, when time.Time, files map[string]string) string {
		for rel, content := range files {
			writeFile(t, filepath.Join(dir, rel), content, time.Time{})
			_, err := wt.Add(rel)
			require.NoError(t, err)
		}
		h, err := wt.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: when},
		})
		require.NoError(t, err)
		return h.String()
	}

	first = commit("initial", base, map[string]string{
		"server/server.go": "package server\n\nfunc Start(addr string) error {\n\treturn listen(addr)\n}\n",
	})
	second = commit("options", base.Add(time.Hour), map[string]string{
		"server/server.go": "package server\n\nfunc Start(addr string, opts Options) error {\n\treturn listen(addr)\n}\n",
		"config.yaml":      "port: 8080\n",
	})
	return dir, first, second
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand(NewApp)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"index", "check", "search", "collections", "changes", "serve", "mcp"})

	for _, flag := range []string{"config", "collection", "top-k", "backend", "embedding-provider", "rules"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestIndexAndSearch(t *testing.T) {
	factory := sharedStoreFactory(vectorstore.NewMemoryStore())
	docs := newDocs(t, time.Now())

	out, err := run(t, factory, "index", docs, "--collection", "team-docs")
	require.NoError(t, err)
	assert.Contains(t, out, `Indexed 2 documents into "team-docs"`)

	out, err = run(t, factory, "search", "listen on the server address", "--collection", "team-docs", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] server.md")

	out, err = run(t, factory, "search", "port", "--collection", "team-docs", "--json")
	require.NoError(t, err)
	var resp service.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "team-docs", resp.Collection)
	assert.NotEmpty(t, resp.Results)
}

func TestCheck(t *testing.T) {
	base := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	factory := sharedStoreFactory(vectorstore.NewMemoryStore())
	repo, first, second := newRepo(t, base)

	_, err := run(t, factory, "index", newDocs(t, base))
	require.NoError(t, err)

	t.Run("text", func(t *testing.T) {
		out, err := run(t, factory, "check", repo, "--range", first+".."+second)
		require.NoError(t, err)
		assert.Contains(t, out, "Documentation likely affected:")
		assert.Contains(t, out, "STALE server.md")
		assert.Contains(t, out, "Recommendations:")
		assert.Contains(t, out, "Found 2 significant changes")
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, factory, "check", repo, "--range", first+".."+second, "--top-k", "1", "--json")
		require.NoError(t, err)
		var report service.CheckReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, first+".."+second, report.Range)
		assert.Equal(t, 2, report.Signals)
		require.Len(t, report.Results, 2)
		for _, r := range report.Results {
			assert.LessOrEqual(t, len(r.Matches), 1)
		}
	})

	t.Run("range and since-days are exclusive", func(t *testing.T) {
		_, err := run(t, factory, "check", repo, "--range", first+".."+second, "--since-days", "3")
		require.Error(t, err)
	})

	t.Run("missing repository", func(t *testing.T) {
		_, err := run(t, factory, "check", filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
		assert.Equal(t, ExitFailure, exitCode(err))
	})
}

func TestChangesIndex(t *testing.T) {
	base := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	store := vectorstore.NewMemoryStore()
	factory := sharedStoreFactory(store)
	repo, first, second := newRepo(t, base)

	out, err := run(t, factory, "changes", "index", repo, "--range", first+".."+second, "--into", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 significant changes")

	out, err = run(t, factory, "collections", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "history")
}

func TestCollections(t *testing.T) {
	factory := sharedStoreFactory(vectorstore.NewMemoryStore())

	out, err := run(t, factory, "collections", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No collections.")

	_, err = run(t, factory, "index", newDocs(t, time.Now()))
	require.NoError(t, err)

	out, err = run(t, factory, "collections", "delete", "documents")
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted collection "documents"`)

	_, err = run(t, factory, "collections", "delete", "documents")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInvalidConfigExitCode(t *testing.T) {
	called := false
	factory := func(context.Context, *config.Config, *slog.Logger) (*App, error) {
		called = true
		return nil, nil
	}

	_, err := run(t, factory, "collections", "list", "--top-k", "0")

	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, ExitInvalidArgs, exitCode(err))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.Config{LogLevel: "warn", LogFormat: "json"})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
