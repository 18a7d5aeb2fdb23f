package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/heri/userhook/internal/middleware"
)

type pingStub struct {
	err   error
	calls int
}

func (p *pingStub) Ping(context.Context) error {
	p.calls++
	return p.err
}

type fixedDates string

func (d fixedDates) Now() string { return string(d) }

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health response: %v\nbody: %s", err, rec.Body.String())
	}
	return resp
}

func TestHealthHandler_Readyz(t *testing.T) {
	down := errors.New("connection refused")

	tests := []struct {
		name       string
		db         HealthChecker
		cache      HealthChecker
		wantStatus int
		wantState  string
		wantChecks map[string]string
	}{
		{
			name:       "database up, redis not set up",
			db:         &pingStub{},
			wantStatus: http.StatusOK,
			wantState:  "ok",
			wantChecks: map[string]string{"postgres": "ok", "redis": "not configured"},
		},
		{
			name:       "database and redis up",
			db:         &pingStub{},
			cache:      &pingStub{},
			wantStatus: http.StatusOK,
			wantState:  "ok",
			wantChecks: map[string]string{"postgres": "ok", "redis": "ok"},
		},
		{
			name:       "redis failing",
			db:         &pingStub{},
			cache:      &pingStub{err: down},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
			wantChecks: map[string]string{"postgres": "ok", "redis": "error: connection refused"},
		},
		{
			name:       "database failing, redis not set up",
			db:         &pingStub{err: down},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
			wantChecks: map[string]string{"postgres": "error: connection refused", "redis": "not configured"},
		},
		{
			name:       "nothing wired",
			wantStatus: http.StatusOK,
			wantState:  "ok",
			wantChecks: map[string]string{"postgres": "not configured", "redis": "not configured"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.cache)

			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected application/json, got %s", ct)
			}

			resp := decodeHealth(t, rec)
			if resp.Status != tt.wantState {
				t.Errorf("expected status %q, got %q", tt.wantState, resp.Status)
			}
			for name, want := range tt.wantChecks {
				if got := resp.Checks[name]; got != want {
					t.Errorf("check %s = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestHealthHandler_HealthzSkipsDependencies(t *testing.T) {
	db := &pingStub{err: errors.New("down")}
	h := NewHealthHandler(db, nil)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if resp := decodeHealth(t, rec); resp.Status != "ok" || resp.Checks != nil {
		t.Fatalf("unexpected liveness body %s", rec.Body.String())
	}
	if db.calls != 0 {
		t.Fatalf("liveness must not ping the database, got %d pings", db.calls)
	}
}

func TestHealthHandler_ProbesCarryServerHeaders(t *testing.T) {
	const date = "Tue, 05 Mar 2024 13:07:09 GMT"
	h := NewHealthHandler(&pingStub{}, nil)

	r := chi.NewRouter()
	r.Use(middleware.ServerHeaders("userhook", fixedDates(date)))
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Server"); got != "userhook" {
				t.Errorf("Server = %q, want userhook", got)
			}
			if got := rec.Header().Get("Date"); got != date {
				t.Errorf("Date = %q, want %q", got, date)
			}
		})
	}
}
