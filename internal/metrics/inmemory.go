package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Queries            map[string]uint64
	QueryFailures      map[string]uint64
	QueryDurationTotal time.Duration
	UsersCreated       uint64
	UsersUpdated       uint64
	UsersNotFound      uint64
	Renders            uint64
	RenderFailures     uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu              sync.Mutex
	queries         map[string]uint64
	queryFailures   map[string]uint64
	queryDurationNs int64
	usersCreated    uint64
	usersUpdated    uint64
	usersNotFound   uint64
	renders         uint64
	renderFailures  uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		queries:       make(map[string]uint64),
		queryFailures: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	queries := make(map[string]uint64, len(m.queries))
	for k, v := range m.queries {
		queries[k] = v
	}
	failures := make(map[string]uint64, len(m.queryFailures))
	for k, v := range m.queryFailures {
		failures[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		Queries:            queries,
		QueryFailures:      failures,
		QueryDurationTotal: time.Duration(atomic.LoadInt64(&m.queryDurationNs)),
		UsersCreated:       atomic.LoadUint64(&m.usersCreated),
		UsersUpdated:       atomic.LoadUint64(&m.usersUpdated),
		UsersNotFound:      atomic.LoadUint64(&m.usersNotFound),
		Renders:            atomic.LoadUint64(&m.renders),
		RenderFailures:     atomic.LoadUint64(&m.renderFailures),
	}
}

// ObserveQuery counts a statement execution.
func (m *InMemoryRecorder) ObserveQuery(statement string, duration time.Duration, failed bool) {
	m.mu.Lock()
	m.queries[statement]++
	if failed {
		m.queryFailures[statement]++
	}
	m.mu.Unlock()
	atomic.AddInt64(&m.queryDurationNs, duration.Nanoseconds())
}

// IncUserCreated increments user created counter.
func (m *InMemoryRecorder) IncUserCreated() {
	atomic.AddUint64(&m.usersCreated, 1)
}

// IncUserUpdated increments user updated counter.
func (m *InMemoryRecorder) IncUserUpdated() {
	atomic.AddUint64(&m.usersUpdated, 1)
}

// IncUsersNotFound increments the empty-listing counter.
func (m *InMemoryRecorder) IncUsersNotFound() {
	atomic.AddUint64(&m.usersNotFound, 1)
}

// ObserveRender counts a template render.
func (m *InMemoryRecorder) ObserveRender(duration time.Duration, failed bool) {
	atomic.AddUint64(&m.renders, 1)
	if failed {
		atomic.AddUint64(&m.renderFailures, 1)
	}
}
