package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heri/userhook/internal/handler/dto"
	"github.com/heri/userhook/internal/query"
	"github.com/heri/userhook/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestHandler_NotFound(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()

	h.NotFound(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "NOT_FOUND" {
		t.Errorf("unexpected error code: %s", resp.Code)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	rec := httptest.NewRecorder()

	h.MethodNotAllowed(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "METHOD_NOT_ALLOWED" {
		t.Errorf("unexpected error code: %s", resp.Code)
	}
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()

	writeJSON(rec, http.StatusOK, math.Inf(1))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "ENCODING_ERROR" {
		t.Errorf("unexpected error code: %s", resp.Code)
	}
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"no_users", service.ErrNoUsers, http.StatusNotFound, "USERS_NOT_FOUND"},
		{"exists", service.ErrUserExists, http.StatusConflict, "USER_EXISTS"},
		{"busy", service.ErrUpsertBusy, http.StatusServiceUnavailable, "UPSERT_BUSY"},
		{"no_row", service.ErrNoRowReturned, http.StatusInternalServerError, "NO_ROW_RETURNED"},
		{"database", &query.Error{Statement: "get_user", Err: errors.New("timeout")}, http.StatusInternalServerError, "DATABASE_ERROR"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			handleServiceError(rec, discardLogger(), test.err)

			if rec.Code != test.wantStatus {
				t.Fatalf("expected status %d, got %d", test.wantStatus, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != contentTypeJSON {
				t.Fatalf("expected JSON content type, got %s", ct)
			}
			if resp := decodeError(t, rec); resp.Code != test.wantCode {
				t.Fatalf("expected code %s, got %s", test.wantCode, resp.Code)
			}
		})
	}
}
