package correlation

import (
	"context"
	"time"

	"docdrift/internal/analyzer"
	"docdrift/internal/retry"
)

// MaxTopK bounds the number of matches returned per signal.
const MaxTopK = 100

// Outcomes reported per signal, also used as metric labels.
const (
	OutcomeMatched = "matched"
	OutcomeGap     = "gap"
	OutcomeErrored = "errored"
)

// QueryEmbedder embeds a single search query.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config holds the engine's tunables.
type Config struct {
	// StaleWhenUnknown flags high-risk matches as stale when either side
	// lacks a timestamp.
	StaleWhenUnknown bool
	// Concurrency bounds how many signals are processed at once.
	Concurrency int
	Retry       retry.Policy
}

// Match is one documentation chunk related to a change signal.
type Match struct {
	ChunkID       string     `json:"chunk_id"`
	SourcePath    string     `json:"source_path"`
	ChunkIndex    int        `json:"chunk_index"`
	HeadingPath   string     `json:"heading_path,omitempty"`
	Text          string     `json:"text"`
	Similarity    float64    `json:"similarity"`
	LexicalScore  float64    `json:"lexical_score"`
	IsStale       bool       `json:"is_stale"`
	DocModifiedAt *time.Time `json:"doc_modified_at,omitempty"`
}

// Result pairs a change signal with the documentation it probably affects.
type Result struct {
	Signal         analyzer.ChangeSignal `json:"signal"`
	Matches        []Match               `json:"matches"`
	Recommendation string                `json:"recommendation"`
	// Gap is set when no documentation matched at all.
	Gap     bool   `json:"gap"`
	Errored bool   `json:"errored"`
	Error   string `json:"error,omitempty"`
	// Err is the underlying cause when Errored is set.
	Err error `json:"-"`
}

// Outcome classifies the result for reporting.
func (r *Result) Outcome() string {
	switch {
	case r.Errored:
		return OutcomeErrored
	case r.Gap:
		return OutcomeGap
	default:
		return OutcomeMatched
	}
}

// BestMatch returns the highest-similarity match, or nil.
func (r *Result) BestMatch() *Match {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}
