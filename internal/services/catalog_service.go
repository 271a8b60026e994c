package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/internal/metrics"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/osvaldoandrade/taskdeck/pkg/persistence"
)

// CatalogService owns task definitions.
type CatalogService interface {
	// Register inserts or replaces a task. A nil id is replaced by a new one.
	Register(ctx context.Context, task domain.Task) (domain.Task, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Task, error)
	List(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Task], error)
}

type catalogService struct {
	tasks  persistence.TaskStorage
	logger *slog.Logger
}

func NewCatalogService(tasks persistence.TaskStorage, logger *slog.Logger) CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogService{tasks: tasks, logger: logger}
}

func (s *catalogService) Register(ctx context.Context, task domain.Task) (domain.Task, error) {
	task.Name = strings.TrimSpace(task.Name)
	if task.Name == "" {
		return domain.Task{}, invalid("task name is required")
	}
	if task.Validator == nil {
		return domain.Task{}, invalid("task validator schema is required")
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if err := s.tasks.Save(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("save task: %w", err)
	}
	metrics.TaskRegisteredTotal.Inc()
	s.logger.Info("task registered", "task_id", task.ID, "name", task.Name, "queue", task.JobQueue)
	return task, nil
}

func (s *catalogService) Get(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	t, err := s.tasks.Get(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return domain.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *catalogService) List(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Task], error) {
	page = page.Normalize()
	tasks, err := s.tasks.List(ctx, page)
	if err != nil {
		return domain.Page[domain.Task]{}, fmt.Errorf("list tasks: %w", err)
	}
	return domain.Page[domain.Task]{Page: page.Page, PageSize: page.PageSize, Results: tasks}, nil
}
