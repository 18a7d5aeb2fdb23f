// Package repository provides database access layer.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heri/userhook/internal/metrics"
	"github.com/heri/userhook/internal/query"
)

// Options controls the connection pool.
type Options struct {
	// MaxConns bounds concurrent physical connections. With 1, at most one
	// statement runs at a time and the rest queue in the pool.
	MaxConns int32
	MinConns int32
	Metrics  metrics.Recorder
}

// Repository provides database access methods.
type Repository struct {
	pool *pgxpool.Pool
	exec *query.Executor
}

// New creates a new Repository with a connection pool.
func New(ctx context.Context, databaseURL string, opts Options) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 1
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 && opts.MinConns <= config.MaxConns {
		config.MinConns = opts.MinConns
	}

	// Prepared statements are cached per connection.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{
		pool: pool,
		exec: query.NewExecutor(pool, opts.Metrics),
	}, nil
}

// Submit starts stmt on the pool and returns its pending result.
func (r *Repository) Submit(ctx context.Context, stmt query.Statement, args ...any) *query.Pending {
	return r.exec.Submit(ctx, stmt, args...)
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to Repository.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}
