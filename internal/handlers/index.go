package handlers

import (
	"context"
	"net/http"

	"docdrift/internal/contextutil"
	"docdrift/internal/service"
)

// IndexHandler handles requests to index a documentation folder.
type IndexHandler struct {
	svc service.DocService
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(svc service.DocService) *IndexHandler {
	return &IndexHandler{svc: svc}
}

// IndexRequest is the payload for POST /api/index.
//
// swagger:model IndexRequest
type IndexRequest struct {
	// Folder to walk for documentation files
	Folder string `json:"folder"`

	// Target collection; the configured default when empty
	Collection string `json:"collection,omitempty"`
}

// IndexAccepted is returned when indexing runs in the background.
//
// swagger:model IndexAccepted
type IndexAccepted struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ServeHTTP handles POST /api/index.
//
// Indexes a folder synchronously and returns the index report. With
// ?async=true the request returns 202 immediately and indexing continues in
// the background.
//
// swagger:route POST /api/index indexDocumentation
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Index report
//	'202':
//	  description: Indexing started
//	'400':
//	  description: Invalid request
//	'404':
//	  description: Folder not found
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req IndexRequest
	if err := decodeBody(r, &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Folder == "" {
		writeError(w, http.StatusBadRequest, "folder is required")
		return
	}

	svcReq := service.IndexRequest{Folder: req.Folder, Collection: req.Collection}

	if r.URL.Query().Get("async") == "true" {
		// detach from the request so indexing outlives the response
		indexCtx := context.WithoutCancel(ctx)
		go func() {
			report, err := h.svc.Index(indexCtx, svcReq)
			if err != nil {
				logger.ErrorContext(indexCtx, "background indexing failed", "folder", req.Folder, "error", err)
				return
			}
			logger.InfoContext(indexCtx, "background indexing completed",
				"folder", req.Folder,
				"collection", report.Collection,
				"documents", report.DocumentsProcessed,
				"chunks", report.ChunksWritten,
			)
		}()
		writeJSON(ctx, w, http.StatusAccepted, IndexAccepted{
			Message: "Indexing started. Check server logs for progress.",
			Status:  "accepted",
		})
		return
	}

	report, err := h.svc.Index(ctx, svcReq)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to index documentation")
		return
	}
	writeJSON(ctx, w, http.StatusOK, report)
}
