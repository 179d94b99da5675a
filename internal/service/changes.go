package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docdrift/internal/analyzer"
	"docdrift/internal/apperrors"
	"docdrift/internal/contextutil"
	"docdrift/internal/indexer"
	"docdrift/internal/retry"
	"docdrift/internal/vectorstore"
)

// Payload keys written with every stored change.
const (
	MetaCommitRange  = "commit_range"
	MetaCommitHash   = "commit_hash"
	MetaChangeType   = "change_type"
	MetaCategory     = "change_category"
	MetaSignificance = "significance"
	MetaTerms        = "terms"
	MetaIndexedAt    = "indexed_at"

	ContentTypeGitDiff = "git_diff"
)

const maxChangeLines = 20

var changeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docdrift/change"))

func (s *docService) IndexChanges(ctx context.Context, req ChangesRequest) (*ChangesReport, error) {
	logger := contextutil.LoggerOr(ctx, s.Logger)

	if strings.TrimSpace(req.RepoPath) == "" {
		return nil, apperrors.Invalid("repo_path", "is required")
	}
	collection := orDefault(req.Collection, s.cfg.ChangesCollection)
	if collection == "" {
		return nil, apperrors.Invalid("collection", "is required")
	}
	rng, err := s.rangeFor(req.CommitRange, req.SinceDays)
	if err != nil {
		return nil, err
	}

	hunks, err := s.Diffs.Diffs(ctx, req.RepoPath, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to extract diffs: %w", err)
	}
	signals := s.Analyzer.Analyze(ctx, hunks)

	report := &ChangesReport{
		RepoPath:     req.RepoPath,
		Range:        rng.String(),
		Collection:   collection,
		HunksScanned: len(hunks),
	}
	if len(signals) > 0 {
		if err := s.storeChanges(ctx, collection, signals); err != nil {
			return nil, err
		}
		report.Indexed = len(signals)
	}
	report.Summary = fmt.Sprintf("Indexed %d significant changes from %d hunks into %s", report.Indexed, report.HunksScanned, collection)

	logger.InfoContext(ctx, "indexed changes", "repo", req.RepoPath, "range", report.Range, "collection", collection, "indexed", report.Indexed)
	return report, nil
}

func (s *docService) storeChanges(ctx context.Context, collection string, signals []analyzer.ChangeSignal) error {
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		return s.Store.EnsureCollection(ctx, collection, s.cfg.VectorSize)
	})
	if err != nil {
		return apperrors.NewOpError("ensure_collection", collection, apperrors.ErrIndexFailure, err)
	}

	texts := make([]string, len(signals))
	for i := range signals {
		texts[i] = changeDocument(&signals[i])
	}
	vecs, err := s.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}

	indexedAt := time.Now().UTC().Format(time.RFC3339)
	points := make([]vectorstore.Point, len(signals))
	for i := range signals {
		sig := &signals[i]
		meta := map[string]any{
			indexer.MetaSourcePath:  sig.FilePath(),
			indexer.MetaContentType: ContentTypeGitDiff,
			MetaCategory:            string(sig.Category),
			MetaSignificance:        sig.Significance,
			MetaTerms:               strings.Join(sig.Terms, ","),
			MetaIndexedAt:           indexedAt,
		}
		var key string
		if h := sig.Source; h != nil {
			meta[MetaCommitRange] = h.CommitRange
			meta[MetaCommitHash] = h.CommitHash
			meta[MetaChangeType] = string(h.ChangeType)
			key = h.FilePath + "\x00" + h.CommitRange + "\x00" + h.HunkText
		} else {
			key = sig.SummaryText
		}
		points[i] = vectorstore.Point{
			ID:   uuid.NewSHA1(changeNamespace, []byte(key)).String(),
			Vec:  vecs[i],
			Text: texts[i],
			Meta: meta,
		}
	}

	err = retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		return s.Store.Upsert(ctx, collection, points)
	})
	if err != nil {
		return apperrors.NewOpError("upsert", collection, apperrors.ErrIndexFailure, err)
	}
	return nil
}

// changeDocument renders a signal as searchable text: the summary followed
// by the first changed lines.
func changeDocument(sig *analyzer.ChangeSignal) string {
	var b strings.Builder
	b.WriteString(sig.SummaryText)
	if sig.Source == nil {
		return b.String()
	}

	b.WriteString("\n\nChanges:")
	n := 0
	write := func(label string, lines []string) {
		for _, l := range lines {
			if n >= maxChangeLines {
				return
			}
			l = strings.TrimSpace(l)
			if l == "" {
				continue
			}
			b.WriteString("\n" + label + ": " + l)
			n++
		}
	}
	write("Added", sig.Source.AddedLines)
	write("Removed", sig.Source.RemovedLines)
	return b.String()
}
