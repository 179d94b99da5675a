package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"docdrift/internal/contextutil"
	"docdrift/internal/service"
	"docdrift/internal/vectorstore"
)

// CollectionsHandler lists and deletes vector collections.
type CollectionsHandler struct {
	svc service.DocService
}

// NewCollectionsHandler creates a new CollectionsHandler.
func NewCollectionsHandler(svc service.DocService) *CollectionsHandler {
	return &CollectionsHandler{svc: svc}
}

// CollectionsResponse is returned by GET /api/collections.
//
// swagger:model CollectionsResponse
type CollectionsResponse struct {
	Collections []vectorstore.CollectionInfo `json:"collections"`
}

// DeleteResponse is returned by DELETE /api/collections/{name}.
type DeleteResponse struct {
	Deleted string `json:"deleted"`
}

// List handles GET /api/collections.
func (h *CollectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	infos, err := h.svc.ListCollections(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list collections")
		return
	}
	writeJSON(ctx, w, http.StatusOK, CollectionsResponse{Collections: infos})
}

// Delete handles DELETE /api/collections/{name}.
func (h *CollectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	if err := h.svc.DeleteCollection(ctx, name); err != nil {
		handleServiceError(ctx, w, err, "Failed to delete collection")
		return
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "collection deleted", "collection", name)
	writeJSON(ctx, w, http.StatusOK, DeleteResponse{Deleted: name})
}
