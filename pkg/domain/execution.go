package domain

import (
	"time"

	"github.com/google/uuid"
)

type ExecutionStatus string

const (
	StatusInProgress ExecutionStatus = "in progress"
	StatusFailed     ExecutionStatus = "failed"
	StatusSucceeded  ExecutionStatus = "succeeded"
)

type Execution struct {
	ID           uuid.UUID
	TaskID       uuid.UUID
	InvokedAt    time.Time
	StatusReason *string
	Results      []ResultAsset
	WebhookID    *uuid.UUID
}

type ResultAsset struct {
	Href        string
	Title       *string
	Description *string
	Roles       []string
	MediaType   string
}

// Status is derived, never stored. A status reason always means failure,
// even when results were attached.
func (e Execution) Status() ExecutionStatus {
	if e.StatusReason == nil {
		if len(e.Results) == 0 {
			return StatusInProgress
		}
		return StatusSucceeded
	}
	return StatusFailed
}

func (s ExecutionStatus) String() string { return string(s) }
