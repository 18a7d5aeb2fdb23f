package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/heri/userhook/internal/handler/dto"
	"github.com/heri/userhook/internal/metrics"
	"github.com/heri/userhook/internal/model"
	"github.com/heri/userhook/internal/render"
	"github.com/heri/userhook/internal/service"
)

// UserHandler serves the user listings.
type UserHandler struct {
	svc      *service.UserService
	renderer render.Renderer
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, renderer render.Renderer, recorder metrics.Recorder, logger *slog.Logger) *UserHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserHandler{
		svc:      svc,
		renderer: renderer,
		metrics:  recorder,
		logger:   logger,
	}
}

// usersPage is the data context of render.UsersTemplate.
type usersPage struct {
	Users []model.User
}

// ListJSON handles GET /users.
// Only the first listed user is returned, as a one-element array.
func (h *UserHandler) ListJSON(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserListResponse(users[:1]))
}

// ListHTML handles GET /.
func (h *UserHandler) ListHTML(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	start := time.Now()
	page, err := h.renderer.Render(r.Context(), render.UsersTemplate, usersPage{Users: users})
	h.metrics.ObserveRender(time.Since(start), err != nil)
	if err != nil {
		h.logger.Error("render_failed",
			"template", render.UsersTemplate,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "RENDER_ERROR", "Failed to render page")
		return
	}

	writeHTML(w, http.StatusOK, page)
}
