package services

import (
	"errors"

	"github.com/osvaldoandrade/taskdeck/pkg/schema"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrExecutionNotFound = errors.New("execution not found")
	ErrAlreadyCompleted  = errors.New("execution already completed")
)

// InvalidError is a request that can never succeed as sent.
type InvalidError struct{ Reason string }

func (e *InvalidError) Error() string { return e.Reason }

func invalid(reason string) error { return &InvalidError{Reason: reason} }

// ArgumentsError carries the schema violations of rejected arguments.
type ArgumentsError struct {
	Errors []schema.Error
}

func (e *ArgumentsError) Error() string {
	return "arguments do not match task schema: " + schema.ValidationErrors(e.Errors).Error()
}
