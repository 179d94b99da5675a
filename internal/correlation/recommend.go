package correlation

import (
	"fmt"
	"time"

	"docdrift/internal/analyzer"
)

// isStale decides whether a matched chunk predates the change. When either
// timestamp is missing the answer falls back to policy for high-risk
// categories.
func isStale(signal *analyzer.ChangeSignal, docModified *time.Time, staleWhenUnknown bool) bool {
	var commitTime time.Time
	if signal.Source != nil {
		commitTime = signal.Source.CommitTime
	}
	if docModified != nil && !commitTime.IsZero() {
		return docModified.Before(commitTime)
	}
	return staleWhenUnknown && signal.Category.HighRisk()
}

func changedPath(signal *analyzer.ChangeSignal) string {
	if p := signal.FilePath(); p != "" {
		return p
	}
	return "the codebase"
}

func recommend(r *Result) string {
	code := changedPath(&r.Signal)
	switch {
	case r.Errored:
		return fmt.Sprintf("Could not check documentation for %s in %s; retry the check", r.Signal.Category, code)
	case r.Gap:
		return fmt.Sprintf("No matching documentation found for %s in %s; consider documenting it", r.Signal.Category, code)
	}

	best := r.BestMatch()
	if best.IsStale {
		return fmt.Sprintf("Update docs at %s to reflect %s in %s", best.SourcePath, r.Signal.Category, code)
	}
	return fmt.Sprintf("Review docs at %s for %s in %s; they appear current", best.SourcePath, r.Signal.Category, code)
}
