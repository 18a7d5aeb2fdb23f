package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveQuery is a no-op.
func (n *NoopRecorder) ObserveQuery(statement string, duration time.Duration, failed bool) {}

// IncUserCreated is a no-op.
func (n *NoopRecorder) IncUserCreated() {}

// IncUserUpdated is a no-op.
func (n *NoopRecorder) IncUserUpdated() {}

// IncUsersNotFound is a no-op.
func (n *NoopRecorder) IncUsersNotFound() {}

// ObserveRender is a no-op.
func (n *NoopRecorder) ObserveRender(duration time.Duration, failed bool) {}
