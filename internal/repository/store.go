package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tasknest/tasknest-go/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrTaskNotFound   = errors.New("task not found")
)

// UserStore persists accounts. Email is unique and compared exactly.
type UserStore interface {
	// Create inserts user and sets its ID and CreatedAt. It returns
	// ErrDuplicateEmail if the email is taken; the existing record is untouched.
	Create(ctx context.Context, user *model.User) error
	// GetByEmail returns ErrUserNotFound when no account matches.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// TaskStore persists tasks. Every method except Insert is scoped by owner:
// an id that is malformed, absent, or owned by someone else yields
// ErrTaskNotFound, and the three cases are indistinguishable.
type TaskStore interface {
	// Insert sets ID and CreatedAt on task and persists it.
	Insert(ctx context.Context, task *model.Task) error
	ListByOwner(ctx context.Context, ownerID string) ([]model.Task, error)
	UpdateByOwnerAndID(ctx context.Context, ownerID, id string, patch model.TaskPatch) (*model.Task, error)
	DeleteByOwnerAndID(ctx context.Context, ownerID, id string) error
}

// Status describes the backing store for the health endpoint.
type Status struct {
	Driver      string
	Database    string
	Collections []string
}

type HealthChecker interface {
	Ping(ctx context.Context) error
	Describe(ctx context.Context) (Status, error)
}

// Store bundles one backend's repositories.
type Store struct {
	Users  UserStore
	Tasks  TaskStore
	Health HealthChecker

	close func(ctx context.Context) error
}

// Close releases the backend's connections.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Options selects and configures a backend.
type Options struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	MySQLDSN      string
}

// Open connects to the configured backend and prepares indexes or tables.
func Open(ctx context.Context, opts Options) (*Store, error) {
	switch opts.Driver {
	case "mongo":
		return openMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	case "mysql":
		return openMySQL(ctx, opts.MySQLDSN)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
