// Package handlers exposes the documentation service over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"docdrift/internal/apperrors"
	"docdrift/internal/contextutil"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusForError maps a service error to the HTTP status reported to callers.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrSourceUnavailable), errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrEmbeddingFailure), errors.Is(err, apperrors.ErrIndexFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// handleServiceError logs err and writes the mapped status. Validation errors
// are echoed to the client; anything else gets a generic message.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, message string) {
	logger := contextutil.LoggerFromContext(ctx)
	status := StatusForError(err)
	switch status {
	case http.StatusBadRequest, http.StatusNotFound:
		logger.WarnContext(ctx, message, "error", err, "status", status)
		writeError(w, status, err.Error())
	default:
		logger.ErrorContext(ctx, message, "error", err, "status", status)
		writeError(w, status, message)
	}
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
