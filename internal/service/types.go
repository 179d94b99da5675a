package service

import (
	"docdrift/internal/analyzer"
	"docdrift/internal/correlation"
)

// IndexRequest asks for a folder to be indexed.
type IndexRequest struct {
	Folder     string `json:"folder"`
	Collection string `json:"collection,omitempty"`
}

// CheckRequest selects a repository, a range and the collection to check against.
// CommitRange and SinceDays are mutually exclusive; with neither set the
// configured window applies.
type CheckRequest struct {
	RepoPath    string `json:"repo_path"`
	CommitRange string `json:"commit_range,omitempty"`
	SinceDays   int    `json:"since_days,omitempty"`
	Collection  string `json:"collection,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
}

// CheckReport is the outcome of a check.
type CheckReport struct {
	RepoPath     string                    `json:"repo_path"`
	Range        string                    `json:"range"`
	Collection   string                    `json:"collection"`
	HunksScanned int                       `json:"hunks_scanned"`
	Signals      int                       `json:"signals"`
	Results      []correlation.Result      `json:"results"`
	AffectedDocs []AffectedDoc             `json:"affected_docs"`
	Gaps         []Gap                     `json:"gaps"`
	Errored      int                       `json:"errored"`
	Categories   map[analyzer.Category]int `json:"categories"`
	Summary      string                    `json:"summary"`
}

// AffectedDoc groups the changes that matched one documentation file.
type AffectedDoc struct {
	Path    string   `json:"path"`
	Stale   bool     `json:"stale"`
	Changes []string `json:"changes"`
	// Score is the best similarity of any chunk of this file.
	Score float64 `json:"score"`
}

// Gap is a significant change no documentation matched.
type Gap struct {
	Path         string            `json:"path"`
	Category     analyzer.Category `json:"category"`
	Significance float64           `json:"significance"`
	Summary      string            `json:"summary"`
}

// SearchRequest is a free-text documentation query.
type SearchRequest struct {
	Query      string `json:"query"`
	Collection string `json:"collection,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// SearchHit is one ranked chunk.
type SearchHit struct {
	ChunkID     string         `json:"chunk_id"`
	SourcePath  string         `json:"source_path"`
	HeadingPath string         `json:"heading_path,omitempty"`
	ChunkIndex  int            `json:"chunk_index"`
	Score       float64        `json:"score"`
	Text        string         `json:"text"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SearchResponse lists hits in descending score order.
type SearchResponse struct {
	Query      string      `json:"query"`
	Collection string      `json:"collection"`
	Results    []SearchHit `json:"results"`
}

// ChangesRequest selects the diff whose significant changes are stored.
type ChangesRequest struct {
	RepoPath    string `json:"repo_path"`
	CommitRange string `json:"commit_range,omitempty"`
	SinceDays   int    `json:"since_days,omitempty"`
	Collection  string `json:"collection,omitempty"`
}

// ChangesReport summarizes an IndexChanges run.
type ChangesReport struct {
	RepoPath     string `json:"repo_path"`
	Range        string `json:"range"`
	Collection   string `json:"collection"`
	HunksScanned int    `json:"hunks_scanned"`
	Indexed      int    `json:"indexed"`
	Summary      string `json:"summary"`
}
