package dashboard

import (
	"github.com/osvaldoandrade/taskdeck/internal/router"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
)

// Update is the transition function. It does no I/O: everything that must
// happen outside is returned as effects.
func Update(s State, ev Event) (State, []Effect) {
	if gen, ok := completionGen(ev); ok && gen != s.Gen {
		return s, nil
	}

	switch e := ev.(type) {
	case RouteChanged:
		s.Route = router.Parse(e.Path)
		s.Gen++
		return load(s)

	case TaskListFetched:
		if e.Err != nil || s.Route.IsDetail() {
			return s, nil
		}
		s.TaskList = append([]domain.Task(nil), e.Page.Results...)
		return s, nil

	case TaskFetched:
		if e.Err != nil {
			return s, []Effect{Navigate{Path: router.Root.Path()}}
		}
		if !s.Route.IsDetail() || e.Task.ID != s.Route.TaskID {
			return s, nil
		}
		s.TaskList = nil
		s.TaskDetail = newTaskDetail(e.Task)
		return s, []Effect{FetchExecutions{Gen: s.Gen, Token: s.Token, TaskID: e.Task.ID}}

	case ExecutionsFetched:
		if e.Err != nil || s.TaskDetail == nil || s.TaskDetail.Task.ID != e.TaskID {
			return s, nil
		}
		d := s.TaskDetail.clone()
		d.Executions = append([]domain.Execution(nil), e.Page.Results...)
		s.TaskDetail = d
		return s, nil

	case StartComposing:
		if s.TaskDetail == nil {
			return s, nil
		}
		d := s.TaskDetail.clone()
		d.Composing = true
		s.TaskDetail = d
		return s, nil

	case CancelComposing:
		if s.TaskDetail == nil {
			return s, nil
		}
		d := s.TaskDetail.clone()
		d.Composing = false
		s.TaskDetail = d
		return s, nil

	case InputChanged:
		if s.TaskDetail == nil {
			return s, nil
		}
		d := s.TaskDetail.clone()
		d.RawInput = e.Text
		d.Validation = Validate(d.Task.Validator, e.Text)
		s.TaskDetail = d
		return s, nil

	case TokenInputChanged:
		text := e.Text
		s.PendingToken = &text
		return s, nil

	case TokenSubmitted:
		if s.PendingToken == nil || !domain.Token(*s.PendingToken).Present() {
			return s, nil
		}
		s.Token = domain.Token(*s.PendingToken)
		s.PendingToken = nil
		s.Gen++
		return load(s)

	case SubmitExecution:
		if !s.CanSubmit() {
			return s, nil
		}
		req := domain.ExecutionCreate{TaskID: s.TaskDetail.Task.ID, Arguments: s.TaskDetail.Validation.Value}
		return s, []Effect{CreateExecution{Gen: s.Gen, Token: s.Token, Request: req}}

	case ExecutionCreated:
		if e.Err != nil {
			return s, nil
		}
		return s, []Effect{Navigate{Path: router.TaskRoute(e.Execution.TaskID).Path()}}
	}
	return s, nil
}

// load resets the cached slices for the current route and requests its data.
// Without a token nothing is fetched.
func load(s State) (State, []Effect) {
	if s.Route.IsDetail() {
		s.TaskList = nil
		s.TaskDetail = nil
		if !s.Token.Present() {
			return s, nil
		}
		return s, []Effect{FetchTask{Gen: s.Gen, Token: s.Token, TaskID: s.Route.TaskID}}
	}
	s.TaskDetail = nil
	if !s.Token.Present() {
		return s, nil
	}
	return s, []Effect{FetchTasks{Gen: s.Gen, Token: s.Token}}
}
