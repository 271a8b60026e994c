package dashboard

import (
	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
)

// Event is anything Update consumes: navigation, user input and the
// completions of effects.
type Event interface{ isEvent() }

type RouteChanged struct{ Path string }

type TaskListFetched struct {
	Gen  uint64
	Page domain.Page[domain.Task]
	Err  error
}

type TaskFetched struct {
	Gen  uint64
	Task domain.Task
	Err  error
}

type ExecutionsFetched struct {
	Gen    uint64
	TaskID uuid.UUID
	Page   domain.Page[domain.Execution]
	Err    error
}

type StartComposing struct{}

type CancelComposing struct{}

type InputChanged struct{ Text string }

type TokenInputChanged struct{ Text string }

type TokenSubmitted struct{}

type SubmitExecution struct{}

type ExecutionCreated struct {
	Gen       uint64
	Execution domain.Execution
	Err       error
}

func (RouteChanged) isEvent()      {}
func (TaskListFetched) isEvent()   {}
func (TaskFetched) isEvent()       {}
func (ExecutionsFetched) isEvent() {}
func (StartComposing) isEvent()    {}
func (CancelComposing) isEvent()   {}
func (InputChanged) isEvent()      {}
func (TokenInputChanged) isEvent() {}
func (TokenSubmitted) isEvent()    {}
func (SubmitExecution) isEvent()   {}
func (ExecutionCreated) isEvent()  {}

// completionGen returns the generation a completion event was issued under.
func completionGen(ev Event) (uint64, bool) {
	switch e := ev.(type) {
	case TaskListFetched:
		return e.Gen, true
	case TaskFetched:
		return e.Gen, true
	case ExecutionsFetched:
		return e.Gen, true
	case ExecutionCreated:
		return e.Gen, true
	}
	return 0, false
}

// completionErr returns the error carried by a completion event, if any.
func completionErr(ev Event) error {
	switch e := ev.(type) {
	case TaskListFetched:
		return e.Err
	case TaskFetched:
		return e.Err
	case ExecutionsFetched:
		return e.Err
	case ExecutionCreated:
		return e.Err
	}
	return nil
}
