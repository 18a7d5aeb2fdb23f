// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/heri/userhook/internal/handler/dto"
	"github.com/heri/userhook/internal/query"
	"github.com/heri/userhook/internal/service"
)

const (
	contentTypeJSON = "application/json"
	contentTypeHTML = "text/html; charset=UTF-8"
)

// Handler serves the router-level fallbacks.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON serializes data completely before writing the status line, so a
// response is either whole or an error.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("encode_response_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ENCODING_ERROR", "Failed to encode response")
		return
	}
	writeBody(w, status, contentTypeJSON, body)
}

// writeHTML writes a fully rendered page.
func writeHTML(w http.ResponseWriter, status int, page string) {
	writeBody(w, status, contentTypeHTML, []byte(page))
}

func writeBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	body, _ := json.Marshal(dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
	writeBody(w, status, contentTypeJSON, body)
}

// handleServiceError maps service and database failures to responses.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var qErr *query.Error
	switch {
	case errors.Is(err, service.ErrNoUsers):
		writeError(w, http.StatusNotFound, "USERS_NOT_FOUND", "No users found")
	case errors.Is(err, service.ErrUserExists):
		writeError(w, http.StatusConflict, "USER_EXISTS", "User already exists")
	case errors.Is(err, service.ErrUpsertBusy):
		writeError(w, http.StatusServiceUnavailable, "UPSERT_BUSY", "Another update for this user is in progress")
	case errors.Is(err, service.ErrNoRowReturned):
		logger.Error("no_row_returned", "error", err)
		writeError(w, http.StatusInternalServerError, "NO_ROW_RETURNED", "Write returned no row")
	case errors.As(err, &qErr):
		logger.Error("database_error", "statement", qErr.Statement, "error", err)
		writeError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Database error")
	default:
		logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
