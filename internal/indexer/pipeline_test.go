package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"docdrift/internal/apperrors"
	"docdrift/internal/llm"
	"docdrift/internal/retry"
	"docdrift/internal/vectorstore"
	vectorstore_mocks "docdrift/internal/vectorstore/mocks"
)

const testDim = 64

func testConfig() Config {
	return Config{
		MaxChars:       50,
		Overlap:        0,
		VectorSize:     testDim,
		EmbeddingModel: "hash",
		Retry:          retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	}
}

func testGateway() *llm.Gateway {
	return llm.NewGateway(llm.NewHashEmbedder(testDim), llm.GatewayConfig{BatchSize: 4, Concurrency: 2, Dimensions: testDim}, nil)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// allPoints returns every point in the collection sorted by id.
func allPoints(t *testing.T, store vectorstore.VectorStore, collection string) []vectorstore.SearchResult {
	t.Helper()
	res, err := store.Search(context.Background(), collection, make([]float32, testDim), 10000, nil)
	require.NoError(t, err)
	sort.Slice(res, func(i, j int) bool { return res[i].PointID < res[j].PointID })
	return res
}

func pointsFor(t *testing.T, store vectorstore.VectorStore, collection, path string) []vectorstore.SearchResult {
	t.Helper()
	res, err := store.Search(context.Background(), collection, make([]float32, testDim), 10000, vectorstore.Filter{MetaSourcePath: path})
	require.NoError(t, err)
	return res
}

type failingReader struct {
	fail map[string]bool
}

func (r failingReader) ReadFile(path string) ([]byte, error) {
	if r.fail[filepath.Base(path)] {
		return nil, os.ErrPermission
	}
	return os.ReadFile(path)
}

func TestPipeline_IndexFolder(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.md":                "# Auth\nUse token X.",
		"guides/setup.md":     "# Setup\n\nRun the installer.\n\nThen configure the server with a config file.",
		"node_modules/pkg.md": "# Ignored",
		".hidden/secret.md":   "# Ignored",
		"notes.txt":           "not documentation",
	})

	store := vectorstore.NewMemoryStore()
	p := NewPipeline(store, testGateway(), testConfig())

	report, err := p.IndexFolder(context.Background(), root, "docs")
	require.NoError(t, err)

	assert.Equal(t, 2, report.DocumentsProcessed)
	assert.Empty(t, report.Errors)
	assert.Equal(t, "docs", report.Collection)
	assert.NotEmpty(t, report.IndexVersion)

	points := allPoints(t, store, "docs")
	assert.Len(t, points, report.ChunksWritten)

	auth := pointsFor(t, store, "docs", "a.md")
	require.Len(t, auth, 1)
	assert.Equal(t, ChunkID("a.md", 0), auth[0].PointID)
	assert.Contains(t, auth[0].Text, "Auth")
	assert.Equal(t, "a.md", vectorstore.MetaString(auth[0].Meta, MetaSourcePath))
	assert.Equal(t, 0, vectorstore.MetaInt(auth[0].Meta, MetaChunkIndex))
	assert.Equal(t, ContentTypeDocumentation, vectorstore.MetaString(auth[0].Meta, MetaContentType))
	assert.Equal(t, "Auth", vectorstore.MetaString(auth[0].Meta, MetaTitle))
	_, err = time.Parse(time.RFC3339, vectorstore.MetaString(auth[0].Meta, MetaDocModifiedAt))
	assert.NoError(t, err)

	setup := pointsFor(t, store, "docs", "guides/setup.md")
	assert.Greater(t, len(setup), 1)
	assert.Empty(t, pointsFor(t, store, "docs", "node_modules/pkg.md"))
}

func TestPipeline_IndexFolderIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.md": "# Auth\nUse token X.",
		"b.md": "# Billing\n\nInvoices are generated monthly.\n\nRefunds take five days.",
	})

	store := vectorstore.NewMemoryStore()
	p := NewPipeline(store, testGateway(), testConfig())

	_, err := p.IndexFolder(context.Background(), root, "docs")
	require.NoError(t, err)
	first := allPoints(t, store, "docs")

	_, err = p.IndexFolder(context.Background(), root, "docs")
	require.NoError(t, err)
	second := allPoints(t, store, "docs")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].PointID, second[i].PointID)
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestPipeline_UnreadableFileIsReportedOnce(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.md":      "# Auth\nUse token X.",
		"broken.md": "# Broken",
		"c.md":      "# Cache\nEntries expire.",
	})

	store := vectorstore.NewMemoryStore()
	p := NewPipeline(store, testGateway(), testConfig(),
		WithFileReader(failingReader{fail: map[string]bool{"broken.md": true}}))

	report, err := p.IndexFolder(context.Background(), root, "docs")
	require.NoError(t, err)

	assert.Equal(t, 2, report.DocumentsProcessed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "broken.md", report.Errors[0].Path)
	assert.Equal(t, "read", report.Errors[0].Op)
	assert.False(t, report.Errors[0].Retryable)
	assert.NotEmpty(t, pointsFor(t, store, "docs", "a.md"))
	assert.NotEmpty(t, pointsFor(t, store, "docs", "c.md"))
}

func TestPipeline_ReplacementLeavesOtherPathsUntouched(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.md": "# Auth\n\nFirst paragraph about tokens.\n\nSecond paragraph about sessions.\n\nThird paragraph.",
		"b.md": "# Billing\nInvoices.",
	})

	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	p := NewPipeline(store, testGateway(), testConfig())

	require.NoError(t, store.EnsureCollection(ctx, "docs", testDim))
	foreign := vectorstore.Point{ID: "foreign", Vec: make([]float32, testDim), Text: "elsewhere", Meta: map[string]any{MetaSourcePath: "other/z.md"}}
	foreign.Vec[0] = 1
	require.NoError(t, store.Upsert(ctx, "docs", []vectorstore.Point{foreign}))

	_, err := p.IndexFolder(ctx, root, "docs")
	require.NoError(t, err)
	before := pointsFor(t, store, "docs", "a.md")
	billing := pointsFor(t, store, "docs", "b.md")
	require.Greater(t, len(before), 1)

	writeFiles(t, root, map[string]string{"a.md": "# Auth\nShort now."})
	report, err := p.IndexFile(ctx, root, "a.md", "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)

	after := pointsFor(t, store, "docs", "a.md")
	require.Len(t, after, 1)
	assert.Contains(t, after[0].Text, "Short now.")
	assert.Equal(t, billing, pointsFor(t, store, "docs", "b.md"))
	assert.Len(t, pointsFor(t, store, "docs", "other/z.md"), 1)
}

func TestPipeline_IndexFileRemovesDeletedFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.md": "# Auth\nUse token X.", "b.md": "# B"})

	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	p := NewPipeline(store, testGateway(), testConfig())

	_, err := p.IndexFolder(ctx, root, "docs")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, "a.md")))

	report, err := p.IndexFile(ctx, root, "a.md", "docs")
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Empty(t, pointsFor(t, store, "docs", "a.md"))
	assert.Len(t, pointsFor(t, store, "docs", "b.md"), 1)
}

func TestPipeline_EmptyDocumentClearsChunks(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.md": "# Auth\nUse token X."})

	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	p := NewPipeline(store, testGateway(), testConfig())

	_, err := p.IndexFolder(ctx, root, "docs")
	require.NoError(t, err)

	writeFiles(t, root, map[string]string{"a.md": ""})
	report, err := p.IndexFolder(ctx, root, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, 0, report.ChunksWritten)
	assert.Empty(t, pointsFor(t, store, "docs", "a.md"))
}

func TestPipeline_EmbeddingFailureIsPerFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.md": "# Auth\nUse token X.", "b.md": "# B\nbody"})

	store := vectorstore.NewMemoryStore()
	emb := &flakyEmbedder{failOn: "# B\nbody", dim: testDim}
	p := NewPipeline(store, emb, testConfig())

	report, err := p.IndexFolder(context.Background(), root, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsProcessed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "b.md", report.Errors[0].Path)
	assert.Equal(t, "embed", report.Errors[0].Op)
	assert.True(t, report.Errors[0].Retryable)
}

func TestPipeline_InvalidUTF8IsNormalised(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"bad.md": "# Latin\ncaf\xe9 \xff\xfe menu"})

	store := vectorstore.NewMemoryStore()
	p := NewPipeline(store, testGateway(), testConfig())

	report, err := p.IndexFolder(context.Background(), root, "docs")
	require.NoError(t, err)
	assert.Empty(t, report.Errors)

	points := pointsFor(t, store, "docs", "bad.md")
	require.Len(t, points, 1)
	text := points[0].Text
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, "# Latin\ncaf\uFFFD \uFFFD menu", text)
	assert.Equal(t, utf8.RuneCountInString(text), points[0].Meta[MetaCharEnd])
}

type flakyEmbedder struct {
	failOn string
	dim    int
}

func (e *flakyEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if t == e.failOn {
			return nil, &apperrors.StatusError{StatusCode: 503, Body: "overloaded"}
		}
		out[i] = make([]float32, e.dim)
		out[i][0] = 1
	}
	return out, nil
}

func TestPipeline_FatalErrors(t *testing.T) {
	ctrl := gomock.NewController(t)

	t.Run("invalid config is rejected before any I/O", func(t *testing.T) {
		store := vectorstore_mocks.NewMockVectorStore(ctrl)
		cfg := testConfig()
		cfg.Overlap = cfg.MaxChars
		p := NewPipeline(store, testGateway(), cfg)

		_, err := p.IndexFolder(context.Background(), "/does/not/matter", "docs")
		assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
	})

	t.Run("missing folder", func(t *testing.T) {
		store := vectorstore_mocks.NewMockVectorStore(ctrl)
		p := NewPipeline(store, testGateway(), testConfig())

		_, err := p.IndexFolder(context.Background(), filepath.Join(t.TempDir(), "missing"), "docs")
		assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
		var opErr *apperrors.OpError
		require.True(t, errors.As(err, &opErr))
		assert.Equal(t, "index_folder", opErr.Op)
	})

	t.Run("unreachable index", func(t *testing.T) {
		store := vectorstore_mocks.NewMockVectorStore(ctrl)
		store.EXPECT().EnsureCollection(gomock.Any(), "docs", testDim).Return(errors.New("connection refused")).Times(1)
		p := NewPipeline(store, testGateway(), testConfig())

		_, err := p.IndexFolder(context.Background(), t.TempDir(), "docs")
		assert.ErrorIs(t, err, apperrors.ErrIndexFailure)
	})
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, ChunkID("a.md", 0), ChunkID("a.md", 0))
	assert.NotEqual(t, ChunkID("a.md", 0), ChunkID("a.md", 1))
	assert.NotEqual(t, ChunkID("a.md", 1), ChunkID("b.md", 1))
	assert.Len(t, ChunkID("a.md", 0), 36)
}

func TestScanFolder(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"README.md":          "x",
		"docs/guide.MARKDOWN": "x",
		"vendor/lib.md":       "x",
		".git/notes.md":       "x",
		"main.go":             "x",
	})

	docs, err := ScanFolder(context.Background(), root, nil)
	require.NoError(t, err)

	var paths []string
	for _, d := range docs {
		paths = append(paths, d.Path)
		assert.False(t, d.ModifiedAt.IsZero())
	}
	assert.Equal(t, []string{"README.md", "docs/guide.MARKDOWN"}, paths)

	_, err = ScanFolder(context.Background(), filepath.Join(root, "missing"), nil)
	assert.Error(t, err)
}

func TestWatcher_ReindexesChangedFile(t *testing.T) {
	root := t.TempDir()
	store := vectorstore.NewMemoryStore()
	p := NewPipeline(store, testGateway(), testConfig())

	_, err := p.IndexFolder(context.Background(), root, "docs")
	require.NoError(t, err)

	w, err := NewWatcher(p, root, "docs", 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeFiles(t, root, map[string]string{"new.md": "# New\nFresh content."})

	require.Eventually(t, func() bool {
		return len(pointsFor(t, store, "docs", "new.md")) == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "new.md")))
	require.Eventually(t, func() bool {
		return len(pointsFor(t, store, "docs", "new.md")) == 0
	}, 5*time.Second, 20*time.Millisecond)
}
