package gitdiff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"docdrift/internal/apperrors"
	"docdrift/internal/contextutil"
)

// maxCommitsScanned bounds the history walk used to date each file.
const maxCommitsScanned = 1000

// Extractor reads diffs from local repositories with go-git.
type Extractor struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{now: time.Now, logger: logger}
}

// resolved is a diff range turned into commits.
type resolved struct {
	base  *object.Commit // nil means the empty tree
	head  *object.Commit
	label string
}

// Diffs returns the hunks between the two ends of r, in file path order.
func (e *Extractor) Diffs(ctx context.Context, repoPath string, r Range) ([]Hunk, error) {
	logger := contextutil.LoggerOr(ctx, e.logger)

	if (r.CommitRange == "") == (r.SinceDays <= 0) {
		return nil, apperrors.Invalid("range", "exactly one of commit_range or since_days must be set")
	}
	if r.SinceDays < 0 {
		return nil, apperrors.Invalid("since_days", "must be positive, got %d", r.SinceDays)
	}

	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, apperrors.NewOpError("open_repository", repoPath, apperrors.ErrSourceUnavailable, err)
	}

	rng, err := e.resolve(repo, r)
	if err != nil {
		return nil, apperrors.NewOpError("resolve_range", r.String(), apperrors.ErrSourceUnavailable, err)
	}
	if rng == nil {
		logger.InfoContext(ctx, "no commits in range", "repo", repoPath, "range", r.String())
		return nil, nil
	}

	var baseTree *object.Tree
	if rng.base != nil {
		if baseTree, err = rng.base.Tree(); err != nil {
			return nil, fmt.Errorf("failed to read tree of %s: %w", rng.base.Hash, err)
		}
	}
	headTree, err := rng.head.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read tree of %s: %w", rng.head.Hash, err)
	}

	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	touched, err := e.lastTouched(ctx, repo, rng)
	if err != nil {
		logger.WarnContext(ctx, "failed to date changed files, using head commit time", "error", err)
		touched = map[string]*object.Commit{}
	}

	var hunks []Hunk
	for _, change := range changes {
		fileHunks, err := e.changeHunks(ctx, change, rng, touched)
		if err != nil {
			return nil, err
		}
		hunks = append(hunks, fileHunks...)
	}
	sort.SliceStable(hunks, func(i, j int) bool { return hunks[i].FilePath < hunks[j].FilePath })

	logger.InfoContext(ctx, "extracted diff",
		"repo", repoPath,
		"range", rng.label,
		"files", len(changes),
		"hunks", len(hunks))
	return hunks, nil
}

func (e *Extractor) resolve(repo *git.Repository, r Range) (*resolved, error) {
	if r.SinceDays > 0 {
		return e.resolveSince(repo, r.SinceDays)
	}

	from, to, found := strings.Cut(r.CommitRange, "..")
	if !found || to == "" {
		to = "HEAD"
	}
	if from == "" {
		return nil, fmt.Errorf("invalid commit range %q", r.CommitRange)
	}

	base, err := commitFor(repo, from)
	if err != nil {
		return nil, err
	}
	head, err := commitFor(repo, to)
	if err != nil {
		return nil, err
	}
	return &resolved{base: base, head: head, label: r.CommitRange}, nil
}

// resolveSince diffs the parent of the oldest commit in the window against
// HEAD. It returns nil when nothing was committed in the window.
func (e *Extractor) resolveSince(repo *git.Repository, days int) (*resolved, error) {
	head, err := commitFor(repo, "HEAD")
	if err != nil {
		return nil, err
	}
	since := e.now().AddDate(0, 0, -days)

	iter, err := repo.Log(&git.LogOptions{From: head.Hash, Since: &since})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	var oldest *object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if oldest == nil || c.Committer.When.Before(oldest.Committer.When) {
			oldest = c
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk log: %w", err)
	}
	if oldest == nil {
		return nil, nil
	}

	rng := &resolved{head: head, label: fmt.Sprintf("since %s", since.Format(time.DateOnly))}
	if oldest.NumParents() > 0 {
		parent, err := oldest.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("failed to read parent of %s: %w", oldest.Hash, err)
		}
		rng.base = parent
	}
	return rng, nil
}

func commitFor(repo *git.Repository, rev string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("unknown revision %q: %w", rev, err)
	}
	c, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", hash, err)
	}
	return c, nil
}

// lastTouched maps each path to the newest commit in the range that changed it.
func (e *Extractor) lastTouched(ctx context.Context, repo *git.Repository, rng *resolved) (map[string]*object.Commit, error) {
	iter, err := repo.Log(&git.LogOptions{From: rng.head.Hash, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, err
	}

	touched := make(map[string]*object.Commit)
	scanned := 0
	err = iter.ForEach(func(c *object.Commit) error {
		if rng.base != nil && c.Hash == rng.base.Hash {
			return storer.ErrStop
		}
		if scanned >= maxCommitsScanned {
			return storer.ErrStop
		}
		scanned++

		tree, err := c.Tree()
		if err != nil {
			return err
		}
		var parentTree *object.Tree
		if c.NumParents() > 0 {
			parent, err := c.Parent(0)
			if err != nil {
				return err
			}
			if parentTree, err = parent.Tree(); err != nil {
				return err
			}
		}
		changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, nil)
		if err != nil {
			return err
		}
		for _, ch := range changes {
			for _, name := range []string{ch.To.Name, ch.From.Name} {
				if name == "" {
					continue
				}
				if _, ok := touched[name]; !ok {
					touched[name] = c
				}
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, err
	}
	return touched, nil
}

func (e *Extractor) changeHunks(ctx context.Context, change *object.Change, rng *resolved, touched map[string]*object.Commit) ([]Hunk, error) {
	action, err := change.Action()
	if err != nil {
		return nil, fmt.Errorf("failed to classify change: %w", err)
	}

	h := Hunk{FilePath: change.To.Name, CommitRange: rng.label}
	switch {
	case action == merkletrie.Insert:
		h.ChangeType = ChangeAdded
	case action == merkletrie.Delete:
		h.ChangeType = ChangeDeleted
		h.FilePath = change.From.Name
	case change.From.Name != change.To.Name:
		h.ChangeType = ChangeRenamed
		h.OldPath = change.From.Name
	default:
		h.ChangeType = ChangeModified
	}

	commit := rng.head
	if c, ok := touched[h.FilePath]; ok {
		commit = c
	}
	h.CommitHash = commit.Hash.String()
	h.CommitTime = commit.Committer.When

	patch, err := change.PatchContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build patch for %s: %w", h.FilePath, err)
	}

	var out []Hunk
	for _, fp := range patch.FilePatches() {
		if fp.IsBinary() {
			e.logger.DebugContext(ctx, "skipping binary file", "path", h.FilePath)
			continue
		}
		groups := splitHunks(flattenChunks(fp.Chunks()))
		if len(groups) == 0 && h.ChangeType == ChangeRenamed {
			// A pure rename still moves the old path away.
			out = append(out, h)
			continue
		}
		for _, g := range groups {
			hunk := h
			hunk.AddedLines = g.added
			hunk.RemovedLines = g.removed
			hunk.HunkText = g.text
			out = append(out, hunk)
		}
	}
	return out, nil
}
