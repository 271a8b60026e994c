package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
)

var (
	// ErrNotFound is returned when a key does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a key already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyCompleted is returned when an execution already has an outcome
	ErrAlreadyCompleted = errors.New("execution already completed")
)

// PluginPersistence is implemented by every storage backend.
type PluginPersistence interface {
	TaskStorage() TaskStorage
	ExecutionStorage() ExecutionStorage

	// Stats feeds the storage gauges exported on /metrics.
	Stats(ctx context.Context) (Stats, error)

	Health(ctx context.Context) error
	Close() error
}

type Stats struct {
	Tasks                int64
	ExecutionsInProgress int64
}

type TaskStorage interface {
	// Save inserts or replaces a task.
	Save(ctx context.Context, task domain.Task) error

	Get(ctx context.Context, id uuid.UUID) (domain.Task, error)

	// List returns one page of tasks ordered by name, then id.
	List(ctx context.Context, page domain.PageRequest) ([]domain.Task, error)
}

type ExecutionStorage interface {
	// Create fails with ErrAlreadyExists when the id is taken.
	Create(ctx context.Context, exec domain.Execution, arguments any) error

	Get(ctx context.Context, id uuid.UUID) (domain.Execution, error)

	// Arguments returns the stored, default-augmented arguments.
	Arguments(ctx context.Context, id uuid.UUID) (any, error)

	// ListByTask returns one page of a task's executions, newest first.
	ListByTask(ctx context.Context, taskID uuid.UUID, page domain.PageRequest) ([]domain.Execution, error)

	// Complete records the outcome of an in-progress execution.
	Complete(ctx context.Context, id uuid.UUID, statusReason *string, results []domain.ResultAsset) (domain.Execution, error)
}
