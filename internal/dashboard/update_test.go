package dashboard

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/internal/router"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/osvaldoandrade/taskdeck/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	taskA = domain.Task{
		ID:        uuid.MustParse("123e4567-e89b-12d3-a456-426614174000"),
		Name:      "render",
		Validator: schema.MustParse(`{"type":"object","required":["x"],"properties":{"x":{"type":"integer"},"mode":{"type":"string","default":"fast"}}}`),
		JobQueue:  "gpu",
	}
	taskB = domain.Task{
		ID:        uuid.MustParse("9b2f6d0e-3c1a-4f5e-8a7b-1c2d3e4f5a6b"),
		Name:      "transcode",
		Validator: schema.MustParse(`true`),
	}
	errBoom = errors.New("boom")
)

func authed() State {
	return State{Route: router.Root, Token: "secret"}
}

// apply feeds events in order and returns the final state plus the effects
// of the last event.
func apply(t *testing.T, s State, events ...Event) (State, []Effect) {
	t.Helper()
	var effects []Effect
	for _, ev := range events {
		s, effects = Update(s, ev)
	}
	return s, effects
}

func onDetail(t *testing.T, task domain.Task) State {
	t.Helper()
	s, _ := apply(t, authed(), RouteChanged{Path: "/" + task.ID.String()})
	s, _ = Update(s, TaskFetched{Gen: s.Gen, Task: task})
	return s
}

func TestInitialStateAwaitsToken(t *testing.T) {
	assert.Equal(t, AwaitingToken, State{}.Mode())
	assert.Equal(t, ListView, authed().Mode())
}

func TestRouteChangedWithoutTokenFetchesNothing(t *testing.T) {
	for _, path := range []string{"/", "/" + taskA.ID.String()} {
		s, effects := Update(State{}, RouteChanged{Path: path})
		assert.Empty(t, effects, path)
		assert.Equal(t, AwaitingToken, s.Mode())
	}
}

func TestRouteChangedToDetailFetchesTask(t *testing.T) {
	s := authed()
	s.TaskList = []domain.Task{taskA, taskB}

	s, effects := Update(s, RouteChanged{Path: "/123e4567-e89b-12d3-a456-426614174000"})

	assert.Nil(t, s.TaskList)
	assert.Nil(t, s.TaskDetail)
	assert.Equal(t, router.TaskRoute(taskA.ID), s.Route)
	require.Len(t, effects, 1)
	assert.Equal(t, FetchTask{Gen: s.Gen, Token: "secret", TaskID: taskA.ID}, effects[0])
}

func TestRouteChangedToListFetchesTasks(t *testing.T) {
	for _, path := range []string{"/", "/not-a-uuid"} {
		t.Run(path, func(t *testing.T) {
			s := onDetail(t, taskA)

			s, effects := Update(s, RouteChanged{Path: path})

			assert.Nil(t, s.TaskDetail)
			assert.Equal(t, ListView, s.Mode())
			require.Len(t, effects, 1)
			assert.Equal(t, FetchTasks{Gen: s.Gen, Token: "secret"}, effects[0])
		})
	}
}

func TestTaskListFetchedReplacesList(t *testing.T) {
	s, _ := Update(authed(), RouteChanged{Path: "/"})
	page := domain.Page[domain.Task]{Page: 1, PageSize: 20, Results: []domain.Task{taskB, taskA}}

	next, effects := Update(s, TaskListFetched{Gen: s.Gen, Page: page})

	assert.Empty(t, effects)
	assert.Equal(t, []domain.Task{taskB, taskA}, next.TaskList)

	page.Results[0] = taskA
	assert.Equal(t, taskB, next.TaskList[0])
}

func TestTaskListFetchedErrorKeepsList(t *testing.T) {
	s, _ := Update(authed(), RouteChanged{Path: "/"})
	s.TaskList = []domain.Task{taskA}

	next, _ := Update(s, TaskListFetched{Gen: s.Gen, Err: errBoom})

	assert.Equal(t, []domain.Task{taskA}, next.TaskList)
}

func TestTaskFetchedPopulatesFreshDetail(t *testing.T) {
	s, _ := Update(authed(), RouteChanged{Path: "/" + taskA.ID.String()})

	s, effects := Update(s, TaskFetched{Gen: s.Gen, Task: taskA})

	assert.Empty(t, s.TaskList)
	require.NotNil(t, s.TaskDetail)
	assert.Equal(t, taskA, s.TaskDetail.Task)
	assert.Empty(t, s.TaskDetail.Executions)
	assert.False(t, s.TaskDetail.Composing)
	assert.Equal(t, "", s.TaskDetail.RawInput)
	assert.Equal(t, NeedsInput, s.TaskDetail.Validation.Outcome)
	assert.Equal(t, DetailView, s.Mode())
	assert.Equal(t, []Effect{FetchExecutions{Gen: s.Gen, Token: "secret", TaskID: taskA.ID}}, effects)
}

func TestTaskFetchedErrorNavigatesToList(t *testing.T) {
	s, _ := Update(authed(), RouteChanged{Path: "/" + taskA.ID.String()})

	next, effects := Update(s, TaskFetched{Gen: s.Gen, Err: errBoom})

	assert.Nil(t, next.TaskDetail)
	assert.Equal(t, []Effect{Navigate{Path: "/"}}, effects)
}

func TestExecutionsFetchedKeepsTask(t *testing.T) {
	s := onDetail(t, taskA)
	execs := []domain.Execution{{ID: uuid.New(), TaskID: taskA.ID, InvokedAt: time.Unix(0, 0)}}
	before := s.TaskDetail

	next, _ := Update(s, ExecutionsFetched{Gen: s.Gen, TaskID: taskA.ID, Page: domain.Page[domain.Execution]{Results: execs}})

	require.NotNil(t, next.TaskDetail)
	assert.Equal(t, taskA, next.TaskDetail.Task)
	assert.Equal(t, execs, next.TaskDetail.Executions)
	assert.Empty(t, before.Executions, "previous state must not be modified")
}

func TestExecutionsFetchedIgnoredWithoutDetail(t *testing.T) {
	s, _ := Update(authed(), RouteChanged{Path: "/"})

	next, effects := Update(s, ExecutionsFetched{Gen: s.Gen, TaskID: taskA.ID})

	assert.Nil(t, next.TaskDetail)
	assert.Empty(t, effects)
}

func TestStaleCompletionsAreDropped(t *testing.T) {
	s, _ := Update(authed(), RouteChanged{Path: "/" + taskA.ID.String()})
	staleGen := s.Gen
	s, _ = Update(s, RouteChanged{Path: "/" + taskB.ID.String()})

	next, effects := Update(s, TaskFetched{Gen: staleGen, Task: taskA})
	assert.Nil(t, next.TaskDetail)
	assert.Empty(t, effects)

	next, effects = Update(s, TaskFetched{Gen: staleGen, Err: errBoom})
	assert.Empty(t, effects, "a stale failure must not redirect")

	next, _ = Update(next, TaskFetched{Gen: next.Gen, Task: taskB})
	next, _ = Update(next, ExecutionsFetched{Gen: staleGen, TaskID: taskB.ID, Page: domain.Page[domain.Execution]{
		Results: []domain.Execution{{ID: uuid.New(), TaskID: taskB.ID}},
	}})
	assert.Equal(t, taskB, next.TaskDetail.Task)
	assert.Empty(t, next.TaskDetail.Executions)
}

func TestStaleListDoesNotFillDetailRoute(t *testing.T) {
	s, _ := Update(authed(), RouteChanged{Path: "/"})
	listGen := s.Gen
	s, _ = Update(s, RouteChanged{Path: "/" + taskA.ID.String()})

	next, _ := Update(s, TaskListFetched{Gen: listGen, Page: domain.Page[domain.Task]{Results: []domain.Task{taskA}}})

	assert.Empty(t, next.TaskList)
}

func TestComposingLifecycle(t *testing.T) {
	s := onDetail(t, taskA)

	s, _ = Update(s, StartComposing{})
	assert.Equal(t, Composing, s.Mode())

	s, _ = Update(s, InputChanged{Text: `{"x":1}`})
	s, _ = Update(s, CancelComposing{})
	assert.Equal(t, DetailView, s.Mode())
	assert.Equal(t, `{"x":1}`, s.TaskDetail.RawInput)

	s, _ = Update(s, RouteChanged{Path: "/"})
	assert.Nil(t, s.TaskDetail)
}

func TestComposeEventsIgnoredWithoutDetail(t *testing.T) {
	s := authed()
	for _, ev := range []Event{StartComposing{}, CancelComposing{}, InputChanged{Text: "{}"}, SubmitExecution{}} {
		next, effects := Update(s, ev)
		assert.Equal(t, s, next)
		assert.Empty(t, effects)
	}
}

func TestInputChangedValidatesSynchronously(t *testing.T) {
	s := onDetail(t, taskA)

	tests := []struct {
		input   string
		outcome Outcome
	}{
		{"", NeedsInput},
		{"   ", NeedsInput},
		{"{", Invalid},
		{"{}", Invalid},
		{`{"x":"one"}`, Invalid},
		{`{"x":1}`, Valid},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			next, effects := Update(s, InputChanged{Text: tt.input})
			assert.Empty(t, effects)
			assert.Equal(t, tt.input, next.TaskDetail.RawInput)
			assert.Equal(t, tt.outcome, next.TaskDetail.Validation.Outcome)
			assert.Equal(t, Validate(taskA.Validator, tt.input), next.TaskDetail.Validation)
		})
	}
}

func TestInputChangedReportsRequiredField(t *testing.T) {
	s := onDetail(t, taskA)

	s, _ = Update(s, InputChanged{Text: "{}"})

	assert.Contains(t, s.TaskDetail.Validation.Errors,
		schema.Error{Kind: schema.MissingRequiredField, Path: []string{}, Fields: []string{"x"}})
}

func TestSubmitExecutionSendsValidatedValue(t *testing.T) {
	s := onDetail(t, taskA)
	s, _ = apply(t, s, StartComposing{}, InputChanged{Text: `{"x":3}`})

	_, effects := Update(s, SubmitExecution{})

	require.Len(t, effects, 1)
	create, ok := effects[0].(CreateExecution)
	require.True(t, ok)
	assert.Equal(t, taskA.ID, create.Request.TaskID)
	assert.Equal(t, map[string]any{"x": json.Number("3"), "mode": "fast"}, create.Request.Arguments)
	assert.Equal(t, domain.Token("secret"), create.Token)
}

func TestSubmitExecutionRequiresValidInput(t *testing.T) {
	s := onDetail(t, taskA)
	for _, input := range []string{"", "{", "{}"} {
		next, _ := Update(s, InputChanged{Text: input})
		_, effects := Update(next, SubmitExecution{})
		assert.Empty(t, effects, input)
	}
}

func TestSubmitExecutionWithoutTokenIssuesNothing(t *testing.T) {
	s := onDetail(t, taskA)
	s, _ = Update(s, InputChanged{Text: `{"x":3}`})
	s.Token = ""

	_, effects := Update(s, SubmitExecution{})

	assert.Empty(t, effects)
}

func TestExecutionCreated(t *testing.T) {
	s := onDetail(t, taskA)
	exec := domain.Execution{ID: uuid.New(), TaskID: taskA.ID}

	next, effects := Update(s, ExecutionCreated{Gen: s.Gen, Execution: exec})
	assert.Equal(t, []Effect{Navigate{Path: "/" + taskA.ID.String()}}, effects)
	assert.Equal(t, s, next)

	next, effects = Update(s, ExecutionCreated{Gen: s.Gen, Err: errBoom})
	assert.Empty(t, effects)
	assert.Equal(t, s, next)
}

func TestTokenFlow(t *testing.T) {
	s, effects := Update(State{}, RouteChanged{Path: "/"})
	assert.Empty(t, effects)

	s, _ = Update(s, TokenInputChanged{Text: "abc"})
	require.NotNil(t, s.PendingToken)
	assert.Equal(t, "abc", *s.PendingToken)
	assert.Equal(t, AwaitingToken, s.Mode())

	gen := s.Gen
	s, effects = Update(s, TokenSubmitted{})
	assert.Equal(t, domain.Token("abc"), s.Token)
	assert.Nil(t, s.PendingToken)
	assert.Equal(t, gen+1, s.Gen)
	assert.Equal(t, []Effect{FetchTasks{Gen: s.Gen, Token: "abc"}}, effects)
}

func TestTokenSubmittedOnDetailRouteFetchesTask(t *testing.T) {
	s, _ := apply(t, State{}, RouteChanged{Path: "/" + taskA.ID.String()}, TokenInputChanged{Text: "abc"})

	_, effects := Update(s, TokenSubmitted{})

	require.Len(t, effects, 1)
	assert.IsType(t, FetchTask{}, effects[0])
}

func TestTokenSubmittedIgnoresBlankOrMissing(t *testing.T) {
	next, effects := Update(State{}, TokenSubmitted{})
	assert.Empty(t, effects)
	assert.Equal(t, State{}, next)

	s, _ := Update(State{}, TokenInputChanged{Text: "  "})
	next, effects = Update(s, TokenSubmitted{})
	assert.Empty(t, effects)
	assert.Equal(t, AwaitingToken, next.Mode())
}

func TestCanSubmit(t *testing.T) {
	s := onDetail(t, taskA)
	assert.False(t, s.CanSubmit())
	s, _ = Update(s, InputChanged{Text: `{"x":1}`})
	assert.True(t, s.CanSubmit())
}
