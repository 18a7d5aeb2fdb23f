// Package clock keeps the HTTP Date header value shared by all responses.
// The value is recomputed on a fixed period and published with a single
// atomic pointer swap, so readers never lock.
package clock

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the refresh period of the cached date.
const DefaultInterval = time.Second

// Clock caches the formatted HTTP date.
type Clock struct {
	current  atomic.Pointer[string]
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Clock.
type Option func(*Clock)

// WithNow replaces the time source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		c.now = now
	}
}

// New creates a Clock and computes its initial value.
func New(interval time.Duration, logger *slog.Logger, opts ...Option) *Clock {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Clock{
		interval: interval,
		now:      time.Now,
		logger:   logger.With("component", "clock"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.refresh()
	return c
}

// Now returns the most recently computed HTTP date.
func (c *Clock) Now() string {
	return *c.current.Load()
}

// Interval returns the refresh period.
func (c *Clock) Interval() time.Duration {
	return c.interval
}

func (c *Clock) refresh() {
	s := c.now().UTC().Format(http.TimeFormat)
	c.current.Store(&s)
}

// Run refreshes the cached date every interval. Blocks until ctx is
// cancelled or Shutdown is called.
func (c *Clock) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("clock already started")
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Debug("clock started", "interval", c.interval)

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("clock stopped")
			return nil
		case <-ticker.C:
			c.refresh()
		}
	}
}

// Shutdown stops a running refresh loop and waits for it to exit.
// It implements server.ShutdownFunc.
func (c *Clock) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
