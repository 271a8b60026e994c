package domain

import (
	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/schema"
)

// Task is a registered unit of invocable work. Arguments of every execution
// must satisfy Validator.
type Task struct {
	ID            uuid.UUID
	Name          string
	Validator     *schema.Schema
	JobDefinition string
	JobQueue      string
}

type ExecutionCreate struct {
	TaskID    uuid.UUID
	Arguments any
}
