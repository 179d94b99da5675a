package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
)

// DefaultExtensions are the recognized documentation formats.
var DefaultExtensions = []string{".md", ".markdown"}

var skippedDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
}

// osReader reads from the local filesystem.
type osReader struct{}

func (osReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ScanFolder returns the documentation files under root, sorted by path.
// Hidden directories, node_modules and vendor are skipped. Entries that cannot
// be visited are skipped too; only a failure on root itself is returned.
func ScanFolder(ctx context.Context, root string, extensions []string) ([]Document, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	root = filepath.Clean(root)

	var docs []Document
	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if de.IsDir() {
				if path != root && skipDir(de.Name()) {
					return godirwalk.SkipThis
				}
				return nil
			}
			if !de.IsRegular() && !de.IsSymlink() {
				return nil
			}
			if !matchExtension(path, extensions) {
				return nil
			}

			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				return nil
			}

			relPath, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}

			docs = append(docs, Document{
				Path:       filepath.ToSlash(relPath),
				AbsPath:    path,
				ModifiedAt: info.ModTime(),
			})
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			if path == root {
				return godirwalk.Halt
			}
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, ok := skippedDirs[name]
	return ok
}

func matchExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
