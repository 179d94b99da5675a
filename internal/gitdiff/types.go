// Package gitdiff reads per-hunk diffs from a local git repository.
package gitdiff

import "time"

// ChangeType describes what happened to a file across the range.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
)

// Range selects the commits to diff. Exactly one field must be set.
type Range struct {
	// CommitRange is "A..B" or a single revision, which means "A..HEAD".
	CommitRange string `json:"commit_range,omitempty"`
	// SinceDays diffs everything committed in the last N days.
	SinceDays int `json:"since_days,omitempty"`
}

// String renders the range for logs and reports.
func (r Range) String() string {
	if r.CommitRange != "" {
		return r.CommitRange
	}
	if r.SinceDays > 0 {
		return "last " + itoa(r.SinceDays) + " days"
	}
	return ""
}

// Hunk is one contiguous changed region of one file.
type Hunk struct {
	FilePath     string     `json:"file_path"`
	OldPath      string     `json:"old_path,omitempty"`
	ChangeType   ChangeType `json:"change_type"`
	AddedLines   []string   `json:"added_lines"`
	RemovedLines []string   `json:"removed_lines"`
	// HunkText holds the hunk with up to three lines of context, each line
	// prefixed with " ", "+" or "-".
	HunkText    string    `json:"hunk_text"`
	CommitHash  string    `json:"commit_hash"`
	CommitTime  time.Time `json:"commit_time"`
	CommitRange string    `json:"commit_range"`
}

// ChangedLines is the number of added plus removed lines.
func (h *Hunk) ChangedLines() int {
	return len(h.AddedLines) + len(h.RemovedLines)
}
