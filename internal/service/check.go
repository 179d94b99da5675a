package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"docdrift/internal/analyzer"
	"docdrift/internal/apperrors"
	"docdrift/internal/contextutil"
	"docdrift/internal/correlation"
	"docdrift/internal/gitdiff"
)

const defaultSinceDays = 7

func (s *docService) Check(ctx context.Context, req CheckRequest) (*CheckReport, error) {
	logger := contextutil.LoggerOr(ctx, s.Logger)

	collection := orDefault(req.Collection, s.cfg.Collection)
	topK := req.TopK
	if topK == 0 {
		topK = s.cfg.TopK
	}
	if topK < 1 || topK > correlation.MaxTopK {
		return nil, apperrors.Invalid("top_k", "must be between 1 and %d, got %d", correlation.MaxTopK, topK)
	}
	if strings.TrimSpace(req.RepoPath) == "" {
		return nil, apperrors.Invalid("repo_path", "is required")
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

	results, err := s.Correlator.Correlate(ctx, signals, collection, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to correlate changes: %w", err)
	}

	report := buildCheckReport(results)
	report.RepoPath = req.RepoPath
	report.Range = rng.String()
	report.Collection = collection
	report.HunksScanned = len(hunks)
	report.Signals = len(signals)
	report.Summary = summarizeCheck(report)

	logger.InfoContext(ctx, "check completed",
		"repo", req.RepoPath,
		"range", report.Range,
		"hunks", report.HunksScanned,
		"signals", report.Signals,
		"affected_docs", len(report.AffectedDocs),
		"gaps", len(report.Gaps),
	)
	return report, nil
}

func (s *docService) rangeFor(commitRange string, sinceDays int) (gitdiff.Range, error) {
	if commitRange != "" && sinceDays != 0 {
		return gitdiff.Range{}, apperrors.Invalid("range", "commit_range and since_days are mutually exclusive")
	}
	if sinceDays < 0 {
		return gitdiff.Range{}, apperrors.Invalid("since_days", "must not be negative, got %d", sinceDays)
	}
	if commitRange != "" {
		return gitdiff.Range{CommitRange: commitRange}, nil
	}
	if sinceDays == 0 {
		sinceDays = s.cfg.SinceDays
	}
	if sinceDays == 0 {
		sinceDays = defaultSinceDays
	}
	return gitdiff.Range{SinceDays: sinceDays}, nil
}

// buildCheckReport groups matches by documentation file in the order the
// results rank them.
func buildCheckReport(results []correlation.Result) *CheckReport {
	report := &CheckReport{
		Results:      results,
		AffectedDocs: []AffectedDoc{},
		Gaps:         []Gap{},
		Categories:   make(map[analyzer.Category]int),
	}
	byPath := make(map[string]int)

	for i := range results {
		r := &results[i]
		report.Categories[r.Signal.Category]++

		switch {
		case r.Errored:
			report.Errored++
			continue
		case r.Gap:
			report.Gaps = append(report.Gaps, Gap{
				Path:         r.Signal.FilePath(),
				Category:     r.Signal.Category,
				Significance: r.Signal.Significance,
				Summary:      r.Signal.SummaryText,
			})
			continue
		}

		for _, m := range r.Matches {
			idx, ok := byPath[m.SourcePath]
			if !ok {
				idx = len(report.AffectedDocs)
				byPath[m.SourcePath] = idx
				report.AffectedDocs = append(report.AffectedDocs, AffectedDoc{Path: m.SourcePath, Changes: []string{}})
			}
			doc := &report.AffectedDocs[idx]
			doc.Stale = doc.Stale || m.IsStale
			doc.Score = max(doc.Score, m.Similarity)
			if p := r.Signal.FilePath(); p != "" && !slices.Contains(doc.Changes, p) {
				doc.Changes = append(doc.Changes, p)
			}
		}
	}
	return report
}

func summarizeCheck(r *CheckReport) string {
	var stale int
	for _, d := range r.AffectedDocs {
		if d.Stale {
			stale++
		}
	}
	msg := fmt.Sprintf("Found %d significant changes in %d hunks; %d documentation files may need updates (%d likely stale); %d changes have no matching documentation",
		r.Signals, r.HunksScanned, len(r.AffectedDocs), stale, len(r.Gaps))
	if r.Errored > 0 {
		msg += fmt.Sprintf("; %d changes could not be checked", r.Errored)
	}
	return msg
}
