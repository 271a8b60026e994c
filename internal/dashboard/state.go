// Package dashboard holds the application state machine: a single State value,
// the events that change it and the effects it asks a runtime to perform.
package dashboard

import (
	"strings"

	"github.com/osvaldoandrade/taskdeck/internal/router"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/osvaldoandrade/taskdeck/pkg/schema"
)

type Mode int

const (
	AwaitingToken Mode = iota
	ListView
	DetailView
	Composing
)

func (m Mode) String() string {
	switch m {
	case AwaitingToken:
		return "awaiting token"
	case ListView:
		return "list"
	case DetailView:
		return "detail"
	case Composing:
		return "composing"
	}
	return "unknown"
}

// State is replaced on every event and never modified in place.
type State struct {
	Route        router.Route
	TaskList     []domain.Task
	TaskDetail   *TaskDetail
	Token        domain.Token
	PendingToken *string

	// Gen identifies the current navigation. Completions issued under an
	// older generation are dropped.
	Gen uint64
}

type TaskDetail struct {
	Task       domain.Task
	Executions []domain.Execution
	Composing  bool
	RawInput   string
	Validation Validation
}

func (s State) Mode() Mode {
	switch {
	case !s.Token.Present():
		return AwaitingToken
	case s.TaskDetail == nil:
		return ListView
	case s.TaskDetail.Composing:
		return Composing
	default:
		return DetailView
	}
}

// CanSubmit reports whether SubmitExecution would issue a request.
func (s State) CanSubmit() bool {
	return s.Token.Present() && s.TaskDetail != nil && s.TaskDetail.Validation.Outcome == Valid
}

type Outcome int

const (
	// NeedsInput is the state before anything has been typed. It is not a
	// failure and does not allow submission.
	NeedsInput Outcome = iota
	Valid
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	}
	return "needs input"
}

type Validation struct {
	Outcome Outcome
	// Value is the parsed input with schema defaults applied; set when Valid.
	Value  any
	Errors []schema.Error
}

// Validate classifies raw compose input against the task schema.
func Validate(s *schema.Schema, raw string) Validation {
	if strings.TrimSpace(raw) == "" {
		return Validation{Outcome: NeedsInput}
	}
	res := schema.Validate(s, raw)
	if !res.OK() {
		return Validation{Outcome: Invalid, Errors: res.Errors}
	}
	return Validation{Outcome: Valid, Value: res.Value}
}

func newTaskDetail(t domain.Task) *TaskDetail {
	return &TaskDetail{Task: t, Executions: []domain.Execution{}, Validation: Validation{Outcome: NeedsInput}}
}

func (d *TaskDetail) clone() *TaskDetail {
	cp := *d
	return &cp
}
