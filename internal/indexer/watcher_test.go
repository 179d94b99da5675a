package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdrift/internal/apperrors"
	"docdrift/internal/vectorstore"
)

func TestNewWatcher_MissingFolder(t *testing.T) {
	p := NewPipeline(vectorstore.NewMemoryStore(), testGateway(), testConfig())
	_, err := NewWatcher(p, filepath.Join(t.TempDir(), "nope"), "docs", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestWatcher_ReindexesAndRemoves(t *testing.T) {
	root := t.TempDir()
	store := vectorstore.NewMemoryStore()
	p := NewPipeline(store, testGateway(), testConfig())
	require.NoError(t, store.EnsureCollection(context.Background(), "docs", testDim))

	w, err := NewWatcher(p, root, "docs", 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	path := filepath.Join(root, "guide.md")
	// Rewritten on every tick since the watch may not be registered yet.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("# Guide\nUse token X."), 0o644)
		return len(pointsFor(t, store, "docs", "guide.md")) > 0
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0o644))

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		return len(pointsFor(t, store, "docs", "guide.md")) == 0
	}, 5*time.Second, 20*time.Millisecond)

	assert.Empty(t, pointsFor(t, store, "docs", "notes.txt"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
