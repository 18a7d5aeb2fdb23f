// Package main is the entrypoint for the userhook API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heri/userhook/internal/cache"
	"github.com/heri/userhook/internal/clock"
	"github.com/heri/userhook/internal/config"
	"github.com/heri/userhook/internal/handler"
	"github.com/heri/userhook/internal/metrics"
	"github.com/heri/userhook/internal/middleware"
	"github.com/heri/userhook/internal/render"
	"github.com/heri/userhook/internal/repository"
	"github.com/heri/userhook/internal/server"
	"github.com/heri/userhook/internal/service"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize metrics
	var recorder metrics.Recorder = metrics.NewNoop()
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom, err := metrics.NewPrometheus(reg)
		if err != nil {
			logger.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
		recorder = prom
		metricsHandler = promhttpHandler(reg)
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.Options{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
		Metrics:  recorder,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database", "max_conns", cfg.DBMaxConns)

	// Initialize cache (optional)
	var cacheClient *cache.Cache
	if cfg.HasRedis() {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			repo.Close()
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	}

	// Initialize the Date header clock
	clk := clock.New(cfg.ClockInterval, logger)

	// Initialize renderer
	renderer, err := render.New()
	if err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	// Initialize services
	svcOpts := []service.Option{service.WithUpsertMode(service.UpsertMode(cfg.WebhookUpsertMode))}
	if cfg.WebhookLockEnabled && cacheClient != nil {
		svcOpts = append(svcOpts, service.WithLocker(cache.NewUserLocker(cacheClient, cfg.WebhookLockTTL, cfg.WebhookLockWait)))
	}
	userService := service.NewUserService(repo, recorder, logger, svcOpts...)

	// Initialize handlers
	handlers := server.Handlers{
		Base:    handler.New(),
		Health:  newHealthHandler(repo, cacheClient),
		Users:   handler.NewUserHandler(userService, renderer, recorder, logger),
		Webhook: handler.NewWebhookHandler(userService, logger),
	}

	// Setup router
	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.IsDevelopment = cfg.IsDevelopment()
	securityCfg.MaxRequestBodySize = cfg.MaxRequestBodySize

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  logger,
		Enabled: cfg.RateLimitWebhookEnabled,
		RPS:     cfg.RateLimitWebhookRPS,
		Burst:   cfg.RateLimitWebhookBurst,
	}
	if cacheClient != nil {
		rateLimitCfg.Limiter = cacheClient
	}

	r := server.NewRouter(handlers, server.RouterConfig{
		Logger:     logger,
		ServerName: cfg.ServerName,
		Dates:      clk,
		Security:   securityCfg,
		CORS:       corsCfg,
		RateLimit:  rateLimitCfg,
		Metrics:    metricsHandler,
	})

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Registered first, stopped last
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", cacheClient.Shutdown)
	}
	srv.Go("clock", clk.Run)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"server_name", cfg.ServerName,
		"env", cfg.AppEnv,
		"upsert_mode", cfg.WebhookUpsertMode,
		"webhook_lock", cfg.WebhookLockEnabled,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newHealthHandler avoids handing a typed nil *cache.Cache to the handler.
func newHealthHandler(repo *repository.Repository, cacheClient *cache.Cache) *handler.HealthHandler {
	if cacheClient == nil {
		return handler.NewHealthHandler(repo, nil)
	}
	return handler.NewHealthHandler(repo, cacheClient)
}

// promhttpHandler serves reg, or nothing when metrics are disabled.
func promhttpHandler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
