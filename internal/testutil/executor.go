package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/heri/userhook/internal/model"
	"github.com/heri/userhook/internal/query"
)

// Call records one submitted statement.
type Call struct {
	Statement string
	Args      []any
}

type result struct {
	rows []query.Row
	err  error
}

// FakeExecutor answers statements from results scripted per statement name.
// Results for a name are consumed in order; the last one repeats.
type FakeExecutor struct {
	mu      sync.Mutex
	results map[string][]result
	calls   []Call
}

// NewFakeExecutor creates an executor with no scripted results.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{results: make(map[string][]result)}
}

// On scripts the next result for the statement called name.
func (f *FakeExecutor) On(name string, rows []query.Row, err error) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[name] = append(f.results[name], result{rows: rows, err: err})
	return f
}

// Submit records the call and resolves with the scripted result.
// Unscripted statements fail with a *query.Error.
func (f *FakeExecutor) Submit(_ context.Context, stmt query.Statement, args ...any) *query.Pending {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Statement: stmt.Name, Args: args})

	queue := f.results[stmt.Name]
	if len(queue) == 0 {
		return query.Completed(nil, &query.Error{
			Statement: stmt.Name,
			Err:       fmt.Errorf("no result scripted"),
		})
	}

	next := queue[0]
	if len(queue) > 1 {
		f.results[stmt.Name] = queue[1:]
	}
	return query.Completed(next.rows, next.err)
}

// Calls returns the submitted statements in order.
func (f *FakeExecutor) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Statements returns the names of the submitted statements in order.
func (f *FakeExecutor) Statements() []string {
	calls := f.Calls()
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Statement)
	}
	return names
}

// UserRow builds the (id, firstName, lastName) row for u.
func UserRow(u model.User) query.Row {
	return query.Row{u.ID, u.FirstName, u.LastName}
}

// UserRows builds one row per user.
func UserRows(users ...model.User) []query.Row {
	rows := make([]query.Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, UserRow(u))
	}
	return rows
}
