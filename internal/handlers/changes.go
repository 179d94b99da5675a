package handlers

import (
	"net/http"

	"docdrift/internal/contextutil"
	"docdrift/internal/service"
)

// ChangesHandler indexes analyzed git changes into a searchable collection.
type ChangesHandler struct {
	svc service.DocService
}

// NewChangesHandler creates a new ChangesHandler.
func NewChangesHandler(svc service.DocService) *ChangesHandler {
	return &ChangesHandler{svc: svc}
}

// ChangesRequest is the payload for POST /api/changes.
//
// swagger:model ChangesRequest
type ChangesRequest struct {
	RepoPath    string `json:"repo_path"`
	CommitRange string `json:"commit_range,omitempty"`
	SinceDays   int    `json:"since_days,omitempty"`
	Collection  string `json:"collection,omitempty"`
}

// ServeHTTP handles POST /api/changes.
func (h *ChangesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChangesRequest
	if err := decodeBody(r, &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.svc.IndexChanges(ctx, service.ChangesRequest{
		RepoPath:    req.RepoPath,
		CommitRange: req.CommitRange,
		SinceDays:   req.SinceDays,
		Collection:  req.Collection,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to index changes")
		return
	}
	writeJSON(ctx, w, http.StatusOK, report)
}
