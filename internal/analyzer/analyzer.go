package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"docdrift/internal/apperrors"
	"docdrift/internal/contextutil"
	"docdrift/internal/gitdiff"
	"docdrift/internal/metrics"
)

const (
	// DefaultThreshold drops hunks whose significance is below it.
	DefaultThreshold = 0.35

	sizeCap       = 50
	baseFactor    = 0.6
	sizeFactor    = 0.25
	publicFactor  = 0.15
	maxExcerptLen = 160
)

// ChangeSignal is a classified, scored hunk.
type ChangeSignal struct {
	Category     Category `json:"category"`
	Significance float64  `json:"significance"`
	SummaryText  string   `json:"summary_text"`
	Terms        []string `json:"terms"`
	Rule         string   `json:"rule,omitempty"`
	Public       bool     `json:"public"`
	// Source points back into the slice passed to Analyze.
	Source *gitdiff.Hunk `json:"source_hunk,omitempty"`
}

// FilePath is the path of the source hunk, or "" when there is none.
func (s *ChangeSignal) FilePath() string {
	if s.Source == nil {
		return ""
	}
	return s.Source.FilePath
}

// Config holds the analyzer's tunables.
type Config struct {
	Threshold float64
	// Rules replaces the built-in rule table when set.
	Rules *RuleSet
}

// Analyzer turns diff hunks into change signals.
type Analyzer struct {
	rules     *compiledSet
	threshold float64
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

// New validates cfg and compiles the rule table. rec may be nil.
func New(cfg Config, rec *metrics.Recorder, logger *slog.Logger) (*Analyzer, error) {
	if cfg.Threshold < 0 || cfg.Threshold > 1 || math.IsNaN(cfg.Threshold) {
		return nil, apperrors.Invalid("significance_threshold", "must be in [0, 1], got %v", cfg.Threshold)
	}
	rs := cfg.Rules
	if rs == nil {
		rs = DefaultRules()
	}
	compiled, err := compileRules(rs)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{rules: compiled, threshold: cfg.Threshold, metrics: rec, logger: logger}, nil
}

// Classify returns the category of h and the name of the rule that decided it.
func (a *Analyzer) Classify(h *gitdiff.Hunk) (Category, string) {
	return a.rules.classify(h)
}

// Score combines category weight, hunk size and the public-surface bonus.
func Score(category Category, changedLines int, public bool) float64 {
	size := float64(min(changedLines, sizeCap)) / sizeCap
	bonus := 0.0
	if public {
		bonus = 1
	}
	s := category.Weight() * (baseFactor + sizeFactor*size + publicFactor*bonus)
	return math.Round(s*10000) / 10000
}

// Analyze classifies and scores every hunk, drops ignored paths and
// signals below the threshold, and orders the rest by descending
// significance.
func (a *Analyzer) Analyze(ctx context.Context, hunks []gitdiff.Hunk) []ChangeSignal {
	logger := contextutil.LoggerOr(ctx, a.logger)

	signals := make([]ChangeSignal, 0, len(hunks))
	var ignored, dropped int
	for i := range hunks {
		h := &hunks[i]
		if a.rules.ignored(h.FilePath) {
			ignored++
			continue
		}

		category, rule := a.Classify(h)
		public := isPublicSurface(h)
		significance := Score(category, h.ChangedLines(), public)
		if significance < a.threshold {
			dropped++
			logger.DebugContext(ctx, "dropping insignificant hunk",
				"path", h.FilePath, "category", category, "significance", significance)
			continue
		}

		terms := ExtractTerms(h)
		signals = append(signals, ChangeSignal{
			Category:     category,
			Significance: significance,
			SummaryText:  Summarize(h, category, terms),
			Terms:        terms,
			Rule:         rule,
			Public:       public,
			Source:       h,
		})
		a.metrics.ChangeSignal(string(category))
	}

	SortSignals(signals)

	logger.InfoContext(ctx, "analyzed diff",
		"hunks", len(hunks),
		"signals", len(signals),
		"ignored", ignored,
		"below_threshold", dropped)
	return signals
}

// Summarize builds the sentence used as the correlation query.
func Summarize(h *gitdiff.Hunk, category Category, terms []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s in %s (%s)", category.Phrase(), h.FilePath, h.ChangeType)
	if h.OldPath != "" {
		fmt.Fprintf(&b, " from %s", h.OldPath)
	}
	if ex := excerpt(h, maxExcerptLen); ex != "" {
		b.WriteString(": ")
		b.WriteString(ex)
	}
	if len(terms) > 0 {
		b.WriteString(". Related: ")
		b.WriteString(strings.Join(terms, ", "))
	}
	return b.String()
}

// SortSignals orders by significance, then category weight, then path.
func SortSignals(signals []ChangeSignal) {
	sort.SliceStable(signals, func(i, j int) bool {
		a, b := &signals[i], &signals[j]
		if a.Significance != b.Significance {
			return a.Significance > b.Significance
		}
		if wa, wb := a.Category.Weight(), b.Category.Weight(); wa != wb {
			return wa > wb
		}
		return a.FilePath() < b.FilePath()
	})
}
