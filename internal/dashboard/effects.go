package dashboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
)

// Effect is a request from Update to the outside world. Fetch effects carry
// the token to use and the generation their completion must echo.
type Effect interface{ isEffect() }

type FetchTasks struct {
	Gen   uint64
	Token domain.Token
	Page  domain.PageRequest
}

type FetchTask struct {
	Gen    uint64
	Token  domain.Token
	TaskID uuid.UUID
}

type FetchExecutions struct {
	Gen    uint64
	Token  domain.Token
	TaskID uuid.UUID
}

type CreateExecution struct {
	Gen     uint64
	Token   domain.Token
	Request domain.ExecutionCreate
}

// Navigate asks the runtime to change location; it comes back as RouteChanged.
type Navigate struct{ Path string }

func (FetchTasks) isEffect()      {}
func (FetchTask) isEffect()       {}
func (FetchExecutions) isEffect() {}
func (CreateExecution) isEffect() {}
func (Navigate) isEffect()        {}

// API is the slice of the HTTP client the dashboard needs.
type API interface {
	ListTasks(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Task], error)
	GetTask(ctx context.Context, id uuid.UUID) (domain.Task, error)
	ListExecutions(ctx context.Context, taskID uuid.UUID, req domain.PageRequest) (domain.Page[domain.Execution], error)
	CreateExecution(ctx context.Context, req domain.ExecutionCreate) (domain.Execution, error)
}

// APIFactory binds an API to the token carried by an effect.
type APIFactory func(domain.Token) API

// Perform runs one effect to completion and returns the event that reports
// its outcome.
func Perform(ctx context.Context, api APIFactory, pageSize int, eff Effect) Event {
	switch e := eff.(type) {
	case FetchTasks:
		req := e.Page
		if req.PageSize == 0 {
			req.PageSize = pageSize
		}
		page, err := api(e.Token).ListTasks(ctx, req)
		return TaskListFetched{Gen: e.Gen, Page: page, Err: err}
	case FetchTask:
		task, err := api(e.Token).GetTask(ctx, e.TaskID)
		return TaskFetched{Gen: e.Gen, Task: task, Err: err}
	case FetchExecutions:
		page, err := api(e.Token).ListExecutions(ctx, e.TaskID, domain.PageRequest{PageSize: pageSize})
		return ExecutionsFetched{Gen: e.Gen, TaskID: e.TaskID, Page: page, Err: err}
	case CreateExecution:
		exec, err := api(e.Token).CreateExecution(ctx, e.Request)
		return ExecutionCreated{Gen: e.Gen, Execution: exec, Err: err}
	case Navigate:
		return RouteChanged{Path: e.Path}
	}
	return nil
}
