package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/internal/metrics"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/osvaldoandrade/taskdeck/pkg/persistence"
	"github.com/osvaldoandrade/taskdeck/pkg/schema"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ExecutionService interface {
	// Create validates the arguments against the task schema and stores them
	// with defaults applied.
	Create(ctx context.Context, req domain.ExecutionCreate) (domain.Execution, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Execution, error)
	Arguments(ctx context.Context, id uuid.UUID) (any, error)
	ListByTask(ctx context.Context, taskID uuid.UUID, page domain.PageRequest) (domain.Page[domain.Execution], error)
	// Complete records a status reason (failure) or result assets (success).
	Complete(ctx context.Context, id uuid.UUID, statusReason *string, results []domain.ResultAsset) (domain.Execution, error)
}

type executionService struct {
	tasks  persistence.TaskStorage
	execs  persistence.ExecutionStorage
	logger *slog.Logger
	now    func() time.Time
}

func NewExecutionService(tasks persistence.TaskStorage, execs persistence.ExecutionStorage, logger *slog.Logger, now func() time.Time) ExecutionService {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &executionService{tasks: tasks, execs: execs, logger: logger, now: now}
}

func (s *executionService) Create(ctx context.Context, req domain.ExecutionCreate) (domain.Execution, error) {
	ctx, span := otel.Tracer("taskdeck/executions").Start(ctx, "taskdeck.execution.create",
		trace.WithAttributes(attribute.String("taskdeck.task_id", req.TaskID.String())),
	)
	defer span.End()

	task, err := s.tasks.Get(ctx, req.TaskID)
	if errors.Is(err, persistence.ErrNotFound) {
		span.SetStatus(codes.Error, "task not found")
		return domain.Execution{}, ErrTaskNotFound
	}
	if err != nil {
		span.RecordError(err)
		return domain.Execution{}, fmt.Errorf("get task: %w", err)
	}

	res := schema.ValidateValue(task.Validator, req.Arguments)
	if !res.OK() {
		metrics.ArgumentsRejectedTotal.WithLabelValues(res.Errors[0].Kind.String()).Inc()
		span.SetStatus(codes.Error, "invalid arguments")
		span.SetAttributes(attribute.Int("taskdeck.validation_errors", len(res.Errors)))
		return domain.Execution{}, &ArgumentsError{Errors: res.Errors}
	}

	exec := domain.Execution{
		ID:        uuid.New(),
		TaskID:    task.ID,
		InvokedAt: s.now().UTC(),
		Results:   []domain.ResultAsset{},
	}
	if err := s.execs.Create(ctx, exec, res.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Execution{}, fmt.Errorf("create execution: %w", err)
	}
	span.SetAttributes(attribute.String("taskdeck.execution_id", exec.ID.String()))
	metrics.ExecutionCreatedTotal.WithLabelValues(task.JobQueue).Inc()
	s.logger.Info("execution created", "execution_id", exec.ID, "task_id", task.ID, "queue", task.JobQueue)
	return exec, nil
}

func (s *executionService) Get(ctx context.Context, id uuid.UUID) (domain.Execution, error) {
	e, err := s.execs.Get(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return domain.Execution{}, ErrExecutionNotFound
	}
	if err != nil {
		return domain.Execution{}, fmt.Errorf("get execution: %w", err)
	}
	return e, nil
}

func (s *executionService) Arguments(ctx context.Context, id uuid.UUID) (any, error) {
	args, err := s.execs.Arguments(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, ErrExecutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get arguments: %w", err)
	}
	return args, nil
}

// ListByTask does not check that the task exists; an unknown task simply
// has no executions.
func (s *executionService) ListByTask(ctx context.Context, taskID uuid.UUID, page domain.PageRequest) (domain.Page[domain.Execution], error) {
	page = page.Normalize()
	execs, err := s.execs.ListByTask(ctx, taskID, page)
	if err != nil {
		return domain.Page[domain.Execution]{}, fmt.Errorf("list executions: %w", err)
	}
	return domain.Page[domain.Execution]{Page: page.Page, PageSize: page.PageSize, Results: execs}, nil
}

func (s *executionService) Complete(ctx context.Context, id uuid.UUID, statusReason *string, results []domain.ResultAsset) (domain.Execution, error) {
	if statusReason != nil && strings.TrimSpace(*statusReason) == "" {
		return domain.Execution{}, invalid("statusReason must not be blank")
	}
	if statusReason == nil && len(results) == 0 {
		return domain.Execution{}, invalid("either statusReason or at least one result is required")
	}
	for i, a := range results {
		if strings.TrimSpace(a.Href) == "" {
			return domain.Execution{}, invalid(fmt.Sprintf("results[%d].href is required", i))
		}
	}

	ctx, span := otel.Tracer("taskdeck/executions").Start(ctx, "taskdeck.execution.complete",
		trace.WithAttributes(attribute.String("taskdeck.execution_id", id.String())),
	)
	defer span.End()

	done, err := s.execs.Complete(ctx, id, statusReason, results)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		span.SetStatus(codes.Error, "not found")
		return domain.Execution{}, ErrExecutionNotFound
	case errors.Is(err, persistence.ErrAlreadyCompleted):
		span.SetStatus(codes.Error, "already completed")
		return domain.Execution{}, ErrAlreadyCompleted
	case err != nil:
		span.RecordError(err)
		return domain.Execution{}, fmt.Errorf("complete execution: %w", err)
	}

	status := done.Status().String()
	span.SetAttributes(attribute.String("taskdeck.execution_status", status))
	metrics.ExecutionCompletedTotal.WithLabelValues(status).Inc()
	s.logger.Info("execution completed", "execution_id", id, "status", status, "results", len(done.Results))
	return done, nil
}
