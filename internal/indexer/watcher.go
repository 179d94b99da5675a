package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docdrift/internal/contextutil"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher re-indexes documentation files under a folder as they change.
type Watcher struct {
	pipeline   *Pipeline
	root       string
	collection string
	debounce   time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher for folder. Events for one file within
// debounce of each other collapse into a single re-index.
func NewWatcher(p *Pipeline, folder, collection string, debounce time.Duration) (*Watcher, error) {
	root, err := p.checkFolder(folder)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		pipeline:   p,
		root:       root,
		collection: collection,
		debounce:   debounce,
		pending:    make(map[string]*time.Timer),
	}, nil
}

// Run watches until ctx is cancelled. Re-indexes still waiting out their
// debounce are dropped; ones already running finish before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}

	logger := contextutil.LoggerOr(ctx, w.pipeline.logger)
	logger.InfoContext(ctx, "watching folder", "folder", w.root, "collection", w.collection)

	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				w.stop()
				return nil
			}
			w.handleEvent(ctx, fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				w.stop()
				return nil
			}
			logger.WarnContext(ctx, "watcher error", "error", err)
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == "." {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !skipDir(info.Name()) {
				_ = w.addTree(fw, ev.Name)
			}
			return
		}
	}

	if !matchExtension(ev.Name, w.pipeline.cfg.Extensions) {
		return
	}
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.schedule(ctx, filepath.ToSlash(rel))
	}
}

// schedule debounces a re-index of relPath. IndexFile removes chunks for
// files that no longer exist, so removals take the same path.
func (w *Watcher) schedule(ctx context.Context, relPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if prev, ok := w.pending[relPath]; ok && prev.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[relPath] == t {
			delete(w.pending, relPath)
		}
		w.mu.Unlock()

		// Detached so a shutdown does not interrupt a half-written replacement.
		fileCtx := context.WithoutCancel(ctx)
		if _, err := w.pipeline.IndexFile(fileCtx, w.root, relPath, w.collection); err != nil {
			contextutil.LoggerOr(ctx, w.pipeline.logger).ErrorContext(ctx, "failed to re-index file", "rel_path", relPath, "error", err)
		}
	})
	w.pending[relPath] = t
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
