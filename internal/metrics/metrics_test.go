package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInMemoryRecorder(t *testing.T) {
	m := NewInMemory()

	m.ObserveQuery("select_users", 2*time.Millisecond, false)
	m.ObserveQuery("select_users", 3*time.Millisecond, true)
	m.ObserveQuery("get_user", time.Millisecond, false)
	m.IncUserCreated()
	m.IncUserUpdated()
	m.IncUserUpdated()
	m.IncUsersNotFound()
	m.ObserveRender(time.Millisecond, false)
	m.ObserveRender(time.Millisecond, true)

	s := m.Snapshot()
	if s.Queries["select_users"] != 2 || s.Queries["get_user"] != 1 {
		t.Fatalf("unexpected queries %v", s.Queries)
	}
	if s.QueryFailures["select_users"] != 1 || s.QueryFailures["get_user"] != 0 {
		t.Fatalf("unexpected failures %v", s.QueryFailures)
	}
	if s.QueryDurationTotal != 6*time.Millisecond {
		t.Fatalf("expected 6ms total, got %v", s.QueryDurationTotal)
	}
	if s.UsersCreated != 1 || s.UsersUpdated != 2 || s.UsersNotFound != 1 {
		t.Fatalf("unexpected user counters %+v", s)
	}
	if s.Renders != 2 || s.RenderFailures != 1 {
		t.Fatalf("unexpected render counters %+v", s)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	m := NewInMemory()
	m.ObserveQuery("get_user", time.Millisecond, false)

	s := m.Snapshot()
	s.Queries["get_user"] = 99

	if got := m.Snapshot().Queries["get_user"]; got != 1 {
		t.Fatalf("snapshot aliased recorder state: %d", got)
	}
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewPrometheus(reg)
	if err != nil {
		t.Fatalf("NewPrometheus: %v", err)
	}

	r.IncUserCreated()
	r.IncUserUpdated()
	r.IncUserUpdated()
	r.IncUsersNotFound()
	r.ObserveQuery("get_user", time.Millisecond, false)
	r.ObserveRender(time.Millisecond, false)

	if got := promtest.ToFloat64(r.usersTotal.WithLabelValues("created")); got != 1 {
		t.Fatalf("expected 1 created, got %v", got)
	}
	if got := promtest.ToFloat64(r.usersTotal.WithLabelValues("updated")); got != 2 {
		t.Fatalf("expected 2 updated, got %v", got)
	}
	if got := promtest.ToFloat64(r.usersNotFound); got != 1 {
		t.Fatalf("expected 1 not found, got %v", got)
	}
	if n := promtest.CollectAndCount(r.queryDuration, "userhook_query_duration_seconds"); n != 1 {
		t.Fatalf("expected 1 query series, got %d", n)
	}
}

func TestPrometheusDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheus(reg); err != nil {
		t.Fatalf("NewPrometheus: %v", err)
	}
	if _, err := NewPrometheus(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoop()
	r.ObserveQuery("x", time.Second, true)
	r.IncUserCreated()
	r.IncUserUpdated()
	r.IncUsersNotFound()
	r.ObserveRender(time.Second, true)
}
