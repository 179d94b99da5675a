package gitdiff

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docdrift/internal/apperrors"
)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return &testRepo{t: t, dir: dir, repo: repo}
}

// commit writes files (nil content deletes) and commits them at when.
func (r *testRepo) commit(msg string, when time.Time, files map[string][]byte) string {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	require.NoError(r.t, err)

	for rel, content := range files {
		path := filepath.Join(r.dir, rel)
		if content == nil {
			_, err := wt.Remove(rel)
			require.NoError(r.t, err)
			continue
		}
		require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(r.t, os.WriteFile(path, content, 0o644))
		_, err := wt.Add(rel)
		require.NoError(r.t, err)
	}

	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: when},
	})
	require.NoError(r.t, err)
	return hash.String()
}

const serverV1 = `package server

func Start(addr string) error {
	return listen(addr)
}
`

const serverV2 = `package server

func Start(addr string, opts Options) error {
	return listen(addr)
}
`

func TestExtractor_CommitRange(t *testing.T) {
	r := newTestRepo(t)
	base := time.Now().Add(-72 * time.Hour)
	first := r.commit("initial", base, map[string][]byte{
		"server/server.go": []byte(serverV1),
		"docs/readme.md":   []byte("# Server\n"),
	})
	second := r.commit("change signature", base.Add(time.Hour), map[string][]byte{
		"server/server.go": []byte(serverV2),
		"config.yaml":      []byte("port: 8080\n"),
	})

	e := NewExtractor(nil)
	hunks, err := e.Diffs(context.Background(), r.dir, Range{CommitRange: first + ".." + second})
	require.NoError(t, err)
	require.Len(t, hunks, 2)

	byPath := map[string]Hunk{}
	for _, h := range hunks {
		byPath[h.FilePath] = h
	}

	srv := byPath["server/server.go"]
	assert.Equal(t, ChangeModified, srv.ChangeType)
	assert.Equal(t, []string{"func Start(addr string, opts Options) error {"}, srv.AddedLines)
	assert.Equal(t, []string{"func Start(addr string) error {"}, srv.RemovedLines)
	assert.Contains(t, srv.HunkText, "+func Start(addr string, opts Options) error {")
	assert.Contains(t, srv.HunkText, " \treturn listen(addr)")
	assert.Equal(t, second, srv.CommitHash)
	assert.WithinDuration(t, base.Add(time.Hour), srv.CommitTime, time.Second)

	cfg := byPath["config.yaml"]
	assert.Equal(t, ChangeAdded, cfg.ChangeType)
	assert.Equal(t, []string{"port: 8080"}, cfg.AddedLines)
}

func TestExtractor_SingleRevisionMeansToHead(t *testing.T) {
	r := newTestRepo(t)
	base := time.Now().Add(-72 * time.Hour)
	first := r.commit("initial", base, map[string][]byte{"a.go": []byte("package a\n")})
	r.commit("second", base.Add(time.Hour), map[string][]byte{"b.go": []byte("package b\n")})
	r.commit("third", base.Add(2*time.Hour), map[string][]byte{"a.go": nil})

	hunks, err := NewExtractor(nil).Diffs(context.Background(), r.dir, Range{CommitRange: first})
	require.NoError(t, err)
	require.Len(t, hunks, 2)

	byPath := map[string]Hunk{}
	for _, h := range hunks {
		byPath[h.FilePath] = h
	}
	assert.Equal(t, ChangeDeleted, byPath["a.go"].ChangeType)
	assert.Equal(t, []string{"package a"}, byPath["a.go"].RemovedLines)
	assert.Equal(t, ChangeAdded, byPath["b.go"].ChangeType)
}

func TestExtractor_SinceDays(t *testing.T) {
	r := newTestRepo(t)
	now := time.Now()
	r.commit("old", now.Add(-30*24*time.Hour), map[string][]byte{"old.go": []byte("package old\n")})
	r.commit("recent", now.Add(-24*time.Hour), map[string][]byte{"new.go": []byte("package fresh\n")})

	e := NewExtractor(nil)
	hunks, err := e.Diffs(context.Background(), r.dir, Range{SinceDays: 7})
	require.NoError(t, err)
	require.Len(t, hunks, 1)
	assert.Equal(t, "new.go", hunks[0].FilePath)

	all, err := e.Diffs(context.Background(), r.dir, Range{SinceDays: 60})
	require.NoError(t, err)
	assert.Len(t, all, 2, "a window reaching the root commit diffs against the empty tree")
}

func TestExtractor_SinceDaysEmptyWindow(t *testing.T) {
	r := newTestRepo(t)
	r.commit("old", time.Now().Add(-30*24*time.Hour), map[string][]byte{"a.go": []byte("package a\n")})

	hunks, err := NewExtractor(nil).Diffs(context.Background(), r.dir, Range{SinceDays: 1})
	require.NoError(t, err)
	assert.Empty(t, hunks)
}

func TestExtractor_DetectsRename(t *testing.T) {
	r := newTestRepo(t)
	base := time.Now().Add(-72 * time.Hour)
	content := []byte("package api\n\nfunc Handler() {}\n\nfunc Other() {}\n")
	first := r.commit("initial", base, map[string][]byte{"api/old.go": content})
	r.commit("rename", base.Add(time.Hour), map[string][]byte{"api/old.go": nil, "api/new.go": content})

	hunks, err := NewExtractor(nil).Diffs(context.Background(), r.dir, Range{CommitRange: first + "..HEAD"})
	require.NoError(t, err)
	require.Len(t, hunks, 1)
	assert.Equal(t, ChangeRenamed, hunks[0].ChangeType)
	assert.Equal(t, "api/new.go", hunks[0].FilePath)
	assert.Equal(t, "api/old.go", hunks[0].OldPath)
	assert.Zero(t, hunks[0].ChangedLines())
}

func TestExtractor_SkipsBinaryFiles(t *testing.T) {
	r := newTestRepo(t)
	base := time.Now().Add(-72 * time.Hour)
	first := r.commit("initial", base, map[string][]byte{"a.go": []byte("package a\n")})
	r.commit("binary", base.Add(time.Hour), map[string][]byte{"logo.png": {0x89, 'P', 'N', 'G', 0, 0, 1, 2}})

	hunks, err := NewExtractor(nil).Diffs(context.Background(), r.dir, Range{CommitRange: first})
	require.NoError(t, err)
	assert.Empty(t, hunks)
}

func TestExtractor_Errors(t *testing.T) {
	r := newTestRepo(t)
	r.commit("initial", time.Now(), map[string][]byte{"a.go": []byte("package a\n")})

	tests := []struct {
		name    string
		path    string
		rng     Range
		wantErr error
	}{
		{name: "no range", path: r.dir, rng: Range{}, wantErr: apperrors.ErrInvalidConfig},
		{name: "both range kinds", path: r.dir, rng: Range{CommitRange: "HEAD", SinceDays: 3}, wantErr: apperrors.ErrInvalidConfig},
		{name: "missing repository", path: filepath.Join(t.TempDir(), "nope"), rng: Range{SinceDays: 3}, wantErr: apperrors.ErrSourceUnavailable},
		{name: "unknown revision", path: r.dir, rng: Range{CommitRange: "deadbeef..HEAD"}, wantErr: apperrors.ErrSourceUnavailable},
		{name: "empty start", path: r.dir, rng: Range{CommitRange: "..HEAD"}, wantErr: apperrors.ErrSourceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor(nil).Diffs(context.Background(), tt.path, tt.rng)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
