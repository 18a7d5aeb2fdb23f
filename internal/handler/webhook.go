package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/heri/userhook/internal/handler/dto"
	"github.com/heri/userhook/internal/service"
)

// multipartMemory bounds the in-memory part of multipart webhook bodies.
const multipartMemory = 1 << 20

// WebhookHandler handles user upserts pushed by external systems.
type WebhookHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(svc *service.UserService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		svc:    svc,
		logger: logger.With("handler", "webhook"),
	}
}

// Upsert handles /webhook for any method. Parameters come from the query
// string or a form body. A new user is returned as an object, an updated
// user as a one-element array.
func (h *WebhookHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	if err := parseParams(r); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid request parameters")
		return
	}

	input := service.UpsertInput{
		ID:        param(r, "id"),
		FirstName: param(r, "firstName"),
		LastName:  param(r, "lastName"),
	}

	result, err := h.svc.Upsert(r.Context(), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	user := dto.ToUserResponse(result.User)
	if result.Created {
		h.logger.Info("user_created", "user_id", user.ID)
		writeJSON(w, http.StatusOK, user)
		return
	}

	h.logger.Info("user_updated", "user_id", user.ID)
	writeJSON(w, http.StatusOK, []dto.UserResponse{user})
}

// parseParams fills r.Form from the query string and any urlencoded or
// multipart body.
func parseParams(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

// param returns the first value of name, or nil when the request does not
// carry it at all. An empty value is kept as "".
func param(r *http.Request, name string) *string {
	values, ok := r.Form[name]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
