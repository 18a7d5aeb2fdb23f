package query

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/heri/userhook/internal/metrics"
)

// Querier is the subset of *pgxpool.Pool used by the executor.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Executor submits statements to the pool. The pool enforces the connection
// bound; statements beyond it queue inside the pool.
type Executor struct {
	db      Querier
	metrics metrics.Recorder
}

// NewExecutor creates an Executor over db.
func NewExecutor(db Querier, recorder metrics.Recorder) *Executor {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Executor{
		db:      db,
		metrics: recorder,
	}
}

// Submit starts stmt with args and returns immediately.
// The statement is detached from ctx cancellation: once issued it runs to
// completion or failure.
func (e *Executor) Submit(ctx context.Context, stmt Statement, args ...any) *Pending {
	p := newPending()
	ctx = context.WithoutCancel(ctx)

	go func() {
		start := time.Now()
		defer func() {
			if rvr := recover(); rvr != nil {
				e.metrics.ObserveQuery(stmt.Name, time.Since(start), true)
				p.fail(rvr)
			}
		}()

		rows, err := e.run(ctx, stmt, args)
		e.metrics.ObserveQuery(stmt.Name, time.Since(start), err != nil)
		p.resolve(rows, err)
	}()

	return p
}

// run executes stmt and drains the result set.
func (e *Executor) run(ctx context.Context, stmt Statement, args []any) ([]Row, error) {
	rows, err := e.db.Query(ctx, stmt.SQL, args...)
	if err != nil {
		return nil, &Error{Statement: stmt.Name, Err: err}
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &Error{Statement: stmt.Name, Err: err}
		}
		result = append(result, Row(values))
	}

	// Constraint violations on INSERT ... RETURNING surface here.
	if err := rows.Err(); err != nil {
		return nil, &Error{Statement: stmt.Name, Err: err}
	}

	return result, nil
}
