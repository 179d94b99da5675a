package handlers

import (
	"net/http"

	"docdrift/internal/contextutil"
	"docdrift/internal/service"
)

// SearchHandler handles semantic search over a documentation collection.
type SearchHandler struct {
	svc service.DocService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc service.DocService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// SearchRequest is the payload for POST /api/search.
//
// swagger:model SearchRequest
type SearchRequest struct {
	Query      string `json:"query"`
	Collection string `json:"collection,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// ServeHTTP handles POST /api/search.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req SearchRequest
	if err := decodeBody(r, &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.svc.Search(ctx, service.SearchRequest{
		Query:      req.Query,
		Collection: req.Collection,
		Limit:      req.Limit,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to search documentation")
		return
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
