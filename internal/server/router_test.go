package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heri/userhook/internal/clock"
	"github.com/heri/userhook/internal/handler"
	"github.com/heri/userhook/internal/metrics"
	"github.com/heri/userhook/internal/middleware"
	"github.com/heri/userhook/internal/model"
	"github.com/heri/userhook/internal/query"
	"github.com/heri/userhook/internal/render"
	"github.com/heri/userhook/internal/repository"
	"github.com/heri/userhook/internal/service"
	"github.com/heri/userhook/internal/testutil"
)

var fixedNow = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

const fixedDate = "Mon, 01 Jan 2024 12:00:00 GMT"

func newTestRouter(t *testing.T, exec *testutil.FakeExecutor, metricsHandler http.Handler) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := metrics.NewInMemory()

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	svc := service.NewUserService(exec, recorder, logger)
	clk := clock.New(time.Hour, logger, clock.WithNow(func() time.Time { return fixedNow }))

	return NewRouter(Handlers{
		Base:    handler.New(),
		Health:  handler.NewHealthHandler(nil, nil),
		Users:   handler.NewUserHandler(svc, renderer, recorder, logger),
		Webhook: handler.NewWebhookHandler(svc, logger),
	}, RouterConfig{
		Logger:     logger,
		ServerName: "userhook",
		Dates:      clk,
		Security:   middleware.DefaultSecurityConfig(),
		CORS:       middleware.DefaultCORSConfig(),
		Metrics:    metricsHandler,
	})
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRouter_ServerAndDateOnEveryResponse(t *testing.T) {
	ada := model.User{ID: "1", FirstName: "Ada", LastName: "Lovelace"}
	exec := testutil.NewFakeExecutor().
		On(repository.SelectUsers.Name, testutil.UserRows(ada), nil).
		On(repository.GetUser.Name, testutil.UserRows(ada), nil).
		On(repository.UpdateUser.Name, testutil.UserRows(ada), nil)
	router := newTestRouter(t, exec, nil)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{"json listing", http.MethodGet, "/users", http.StatusOK},
		{"html listing", http.MethodGet, "/", http.StatusOK},
		{"webhook", http.MethodPost, "/webhook?id=1&firstName=Ada&lastName=Lovelace", http.StatusOK},
		{"health", http.MethodGet, "/healthz", http.StatusOK},
		{"readiness", http.MethodGet, "/readyz", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound},
		{"wrong method", http.MethodPost, "/users", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.method, tt.target)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := rec.Header().Get("Server"); got != "userhook" {
				t.Errorf("Server = %q, want userhook", got)
			}
			if got := rec.Header().Get("Date"); got != fixedDate {
				t.Errorf("Date = %q, want %q", got, fixedDate)
			}
			if rec.Header().Get(middleware.RequestIDHeader) == "" {
				t.Errorf("missing %s", middleware.RequestIDHeader)
			}
		})
	}
}

func TestRouter_UsersTruncatesToFirstRow(t *testing.T) {
	users := make([]model.User, 0, repository.ListLimit)
	for i := 0; i < repository.ListLimit; i++ {
		users = append(users, model.User{ID: string(rune('a' + i)), FirstName: "F", LastName: "L"})
	}
	exec := testutil.NewFakeExecutor().
		On(repository.SelectUsers.Name, testutil.UserRows(users...), nil)
	router := newTestRouter(t, exec, nil)

	rec := serve(router, http.MethodGet, "/users")

	want := `[{"id":"a","firstName":"F","lastName":"L"}]`
	if got := rec.Body.String(); got != want {
		t.Fatalf("body = %s, want %s", got, want)
	}
}

func TestRouter_HTMLListsAllRows(t *testing.T) {
	users := []model.User{
		{ID: "1", FirstName: "Ada", LastName: "Lovelace"},
		{ID: "2", FirstName: "Alan", LastName: "Turing"},
		{ID: "3", FirstName: "Grace", LastName: "Hopper"},
	}
	exec := testutil.NewFakeExecutor().
		On(repository.SelectUsers.Name, testutil.UserRows(users...), nil)
	router := newTestRouter(t, exec, nil)

	rec := serve(router, http.MethodGet, "/")

	if got := strings.Count(rec.Body.String(), "<tr><td>"); got != len(users) {
		t.Fatalf("rendered %d rows, want %d", got, len(users))
	}
}

func TestRouter_EmptyTableIs404(t *testing.T) {
	exec := testutil.NewFakeExecutor().On(repository.SelectUsers.Name, nil, nil)
	router := newTestRouter(t, exec, nil)

	for _, target := range []string{"/users", "/"} {
		if rec := serve(router, http.MethodGet, target); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", target, rec.Code)
		}
	}
}

func TestRouter_MalformedRowRecovered(t *testing.T) {
	exec := testutil.NewFakeExecutor().
		On(repository.SelectUsers.Name, []query.Row{{"only-id"}}, nil)
	router := newTestRouter(t, exec, nil)

	rec := serve(router, http.MethodGet, "/users")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := rec.Header().Get("Date"); got != fixedDate {
		t.Errorf("Date = %q, want %q", got, fixedDate)
	}
}

func TestRouter_DatabaseErrorIs500(t *testing.T) {
	exec := testutil.NewFakeExecutor().On(repository.SelectUsers.Name, nil,
		&query.Error{Statement: repository.SelectUsers.Name, Err: errors.New("connection refused")})
	router := newTestRouter(t, exec, nil)

	rec := serve(router, http.MethodGet, "/users")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("driver error leaked to client: %s", rec.Body.String())
	}
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := metrics.NewPrometheus(reg); err != nil {
		t.Fatalf("NewPrometheus: %v", err)
	}
	router := newTestRouter(t, testutil.NewFakeExecutor(), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	if rec := serve(router, http.MethodGet, "/metrics"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	noMetrics := newTestRouter(t, testutil.NewFakeExecutor(), nil)
	if rec := serve(noMetrics, http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when metrics disabled", rec.Code)
	}
}

func TestServer_GracefulShutdownOrder(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(http.NotFoundHandler(), 0, time.Second, time.Second, time.Second, logger)

	var mu sync.Mutex
	var order []string
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, name)
	}

	srv.Go("ticker", func(ctx context.Context) error {
		<-ctx.Done()
		record("ticker")
		return nil
	})
	srv.OnShutdown("first", func(context.Context) error { record("first"); return nil })
	srv.OnShutdown("second", func(context.Context) error { record("second"); return errors.New("boom") })

	stop := srv.startBackground()
	err := srv.gracefulShutdown(stop)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected joined shutdown error, got %v", err)
	}

	want := []string{"ticker", "second", "first"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("shutdown order = %v, want %v", order, want)
	}
}
