package handlers

import (
	"net/http"

	"docdrift/internal/contextutil"
	"docdrift/internal/service"
)

// CheckHandler handles documentation drift checks against a repository.
type CheckHandler struct {
	svc service.DocService
}

// NewCheckHandler creates a new CheckHandler.
func NewCheckHandler(svc service.DocService) *CheckHandler {
	return &CheckHandler{svc: svc}
}

// CheckRequest is the payload for POST /api/check.
//
// swagger:model CheckRequest
type CheckRequest struct {
	// Path to a local git repository
	RepoPath string `json:"repo_path"`

	// Commit range such as "v1.0..HEAD"; exclusive with since_days
	CommitRange string `json:"commit_range,omitempty"`

	// Look-back window in days; exclusive with commit_range
	SinceDays int `json:"since_days,omitempty"`

	Collection string `json:"collection,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

// ServeHTTP handles POST /api/check.
//
// swagger:route POST /api/check checkDocs
//
// Correlates significant code changes with indexed documentation.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Check report
//	'400':
//	  description: Invalid request
//	'404':
//	  description: Repository not found
//	'502':
//	  description: Embedding or vector index failure
func (h *CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req CheckRequest
	if err := decodeBody(r, &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.svc.Check(ctx, service.CheckRequest{
		RepoPath:    req.RepoPath,
		CommitRange: req.CommitRange,
		SinceDays:   req.SinceDays,
		Collection:  req.Collection,
		TopK:        req.TopK,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to check documentation")
		return
	}
	writeJSON(ctx, w, http.StatusOK, report)
}
