// Package codec converts between the API's JSON wire shapes and the domain
// model. Decoding failures are returned as *DecodeError, never panics.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/schema"
)

type TaskWire struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Validator     ValidatorWire `json:"validator"`
	JobDefinition string        `json:"jobDefinition"`
	JobQueue      string        `json:"jobQueue"`
}

// ValidatorWire wraps the schema one level deep, as the API does.
type ValidatorWire struct {
	Schema *schema.Schema `json:"schema"`
}

type ExecutionWire struct {
	ID           uuid.UUID         `json:"id"`
	TaskID       uuid.UUID         `json:"taskId"`
	InvokedAt    Timestamp         `json:"invokedAt"`
	StatusReason *string           `json:"statusReason,omitempty"`
	Results      []ResultAssetWire `json:"results"`
	WebhookID    *uuid.UUID        `json:"webhookId,omitempty"`
}

type ResultAssetWire struct {
	Href        string   `json:"href"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Roles       []string `json:"roles"`
	Type        string   `json:"type"`
}

type PageWire[T any] struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Results  []T `json:"results"`
}

type ExecutionCreateWire struct {
	TaskID    uuid.UUID `json:"taskId"`
	Arguments any       `json:"arguments"`
}

// ExecutionResultWire is the body used to record the outcome of an execution.
type ExecutionResultWire struct {
	StatusReason *string           `json:"statusReason,omitempty"`
	Results      []ResultAssetWire `json:"results"`
}

// Timestamp accepts RFC 3339 as well as ISO-8601 without a zone offset,
// which is read as UTC. It always encodes as RFC 3339 in UTC.
type Timestamp time.Time

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}
