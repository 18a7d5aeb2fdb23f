// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
type Recorder interface {
	// Database metrics
	ObserveQuery(statement string, duration time.Duration, failed bool)

	// User workflow metrics
	IncUserCreated()
	IncUserUpdated()
	IncUsersNotFound()

	// Template rendering
	ObserveRender(duration time.Duration, failed bool)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
