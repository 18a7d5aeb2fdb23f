// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heri/userhook/internal/cache"
	"github.com/heri/userhook/internal/metrics"
	"github.com/heri/userhook/internal/model"
	"github.com/heri/userhook/internal/query"
	"github.com/heri/userhook/internal/repository"
)

// Service errors.
var (
	ErrNoUsers       = errors.New("no users found")
	ErrUserExists    = errors.New("user already exists")
	ErrNoRowReturned = errors.New("statement returned no row")
	ErrUpsertBusy    = errors.New("another upsert for this user is in progress")
)

// UpsertMode selects how the webhook writes a user.
type UpsertMode string

const (
	// UpsertCheckThenAct looks the user up, then inserts or updates.
	UpsertCheckThenAct UpsertMode = "check"
	// UpsertAtomic writes with a single INSERT ... ON CONFLICT statement.
	UpsertAtomic UpsertMode = "atomic"
)

// IsValid reports whether m is a known mode.
func (m UpsertMode) IsValid() bool {
	return m == UpsertCheckThenAct || m == UpsertAtomic
}

// Executor submits statements without blocking the caller.
type Executor interface {
	Submit(ctx context.Context, stmt query.Statement, args ...any) *query.Pending
}

// Locker serializes upserts for one user id.
type Locker interface {
	Lock(ctx context.Context, id string) (func(), error)
}

// UserService handles user listing and webhook upserts.
type UserService struct {
	exec    Executor
	locker  Locker
	mode    UpsertMode
	metrics metrics.Recorder
	logger  *slog.Logger
}

// Option configures a UserService.
type Option func(*UserService)

// WithLocker guards check-then-act upserts with l.
func WithLocker(l Locker) Option {
	return func(s *UserService) {
		s.locker = l
	}
}

// WithUpsertMode sets the upsert strategy.
func WithUpsertMode(m UpsertMode) Option {
	return func(s *UserService) {
		if m.IsValid() {
			s.mode = m
		}
	}
}

// NewUserService creates a new UserService.
func NewUserService(exec Executor, recorder metrics.Recorder, logger *slog.Logger, opts ...Option) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &UserService{
		exec:    exec,
		mode:    UpsertCheckThenAct,
		metrics: recorder,
		logger:  logger.With("component", "service.user"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListUsers returns up to repository.ListLimit users in table order.
// An empty table is ErrNoUsers, never an empty slice.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.exec.Submit(ctx, repository.SelectUsers).Await()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	if len(rows) == 0 {
		s.metrics.IncUsersNotFound()
		return nil, ErrNoUsers
	}

	return repository.MapUsers(rows), nil
}

// UpsertInput carries the webhook parameters. A nil field is bound as NULL.
type UpsertInput struct {
	ID        *string
	FirstName *string
	LastName  *string
}

// UpsertResult is the written user and whether it was inserted.
type UpsertResult struct {
	User    model.User
	Created bool
}

// Upsert inserts the user if no row has its id, otherwise updates its names.
// Each step waits for the previous one; the first failure ends the workflow.
func (s *UserService) Upsert(ctx context.Context, in UpsertInput) (*UpsertResult, error) {
	if s.mode == UpsertAtomic {
		return s.upsertAtomic(ctx, in)
	}

	if s.locker != nil && in.ID != nil {
		unlock, err := s.locker.Lock(ctx, *in.ID)
		switch {
		case err == nil:
			defer unlock()
		case errors.Is(err, cache.ErrLockTimeout):
			return nil, ErrUpsertBusy
		case errors.Is(err, context.Canceled):
			return nil, err
		default:
			// Fail open: the lock only narrows the duplicate-insert race.
			s.logger.Warn("user lock unavailable, continuing unlocked",
				"user_id", *in.ID,
				"error", err,
			)
		}
	}

	rows, err := s.exec.Submit(ctx, repository.GetUser, in.ID).Await()
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if len(rows) == 0 {
		return s.insert(ctx, in)
	}
	return s.update(ctx, in)
}

func (s *UserService) insert(ctx context.Context, in UpsertInput) (*UpsertResult, error) {
	rows, err := s.exec.Submit(ctx, repository.InsertUser, in.ID, in.FirstName, in.LastName).Await()
	if err != nil {
		// Two webhooks for the same new id can both miss the lookup.
		if query.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", repository.InsertUser.Name, ErrNoRowReturned)
	}

	s.metrics.IncUserCreated()
	return &UpsertResult{User: repository.MapUser(rows[0]), Created: true}, nil
}

func (s *UserService) update(ctx context.Context, in UpsertInput) (*UpsertResult, error) {
	rows, err := s.exec.Submit(ctx, repository.UpdateUser, in.FirstName, in.LastName, in.ID).Await()
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	// The row was removed between lookup and update.
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", repository.UpdateUser.Name, ErrNoRowReturned)
	}

	s.metrics.IncUserUpdated()
	return &UpsertResult{User: repository.MapUser(rows[0]), Created: false}, nil
}

func (s *UserService) upsertAtomic(ctx context.Context, in UpsertInput) (*UpsertResult, error) {
	rows, err := s.exec.Submit(ctx, repository.UpsertUser, in.ID, in.FirstName, in.LastName).Await()
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", repository.UpsertUser.Name, ErrNoRowReturned)
	}

	row := rows[0]
	created := row.Bool(3)
	if created {
		s.metrics.IncUserCreated()
	} else {
		s.metrics.IncUserUpdated()
	}

	return &UpsertResult{User: repository.MapUser(row), Created: created}, nil
}
