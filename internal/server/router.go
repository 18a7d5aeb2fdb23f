package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/heri/userhook/internal/handler"
	"github.com/heri/userhook/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Base    *handler.Handler
	Health  *handler.HealthHandler
	Users   *handler.UserHandler
	Webhook *handler.WebhookHandler
}

// RouterConfig configures the middleware chain.
type RouterConfig struct {
	Logger     *slog.Logger
	ServerName string
	Dates      middleware.DateSource
	Security   middleware.SecurityConfig
	CORS       middleware.CORSConfig
	RateLimit  middleware.RateLimitConfig
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(h Handlers, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.ServerHeaders(cfg.ServerName, cfg.Dates))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.MaxBodySize(cfg.Security.MaxRequestBodySize))

	// Health endpoints
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)

	// User listings
	r.Get("/users", h.Users.ListJSON)
	r.Get("/", h.Users.ListHTML)

	// Webhook accepts any method, with optional per-IP rate limiting
	r.With(middleware.RateLimitIP(cfg.RateLimit)).HandleFunc("/webhook", h.Webhook.Upsert)

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// 404 and 405 handlers
	r.NotFound(h.Base.NotFound)
	r.MethodNotAllowed(h.Base.MethodNotAllowed)

	return r
}
