package schema

import (
	"fmt"
	"strings"
)

type Kind int

const (
	// AlwaysFail is reported for text that is not JSON and for the false schema.
	AlwaysFail Kind = iota
	MissingRequiredField
	InvalidType
	RequiredPropertyUnsatisfied
	Other
)

var kindNames = map[Kind]string{
	AlwaysFail:                  "alwaysFail",
	MissingRequiredField:        "missingRequiredField",
	InvalidType:                 "invalidType",
	RequiredPropertyUnsatisfied: "requiredPropertyUnsatisfied",
	Other:                       "other",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown validation error kind %q", string(b))
}

// Error is one structured validation failure. Path names the offending value
// from the document root; object keys and array indexes are both strings.
type Error struct {
	Kind     Kind     `json:"kind"`
	Path     []string `json:"path"`
	Fields   []string `json:"fields,omitempty"`
	Expected string   `json:"expected,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

func (e Error) Error() string {
	return e.Pointer() + ": " + e.Message()
}

// Pointer renders Path as a JSON pointer ("" for the root becomes "/").
func (e Error) Pointer() string {
	if len(e.Path) == 0 {
		return "/"
	}
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		p = strings.ReplaceAll(p, "~", "~0")
		parts[i] = strings.ReplaceAll(p, "/", "~1")
	}
	return "/" + strings.Join(parts, "/")
}

// Message is the human readable part, without the location.
func (e Error) Message() string {
	switch e.Kind {
	case AlwaysFail:
		if e.Detail != "" {
			return "invalid JSON: " + e.Detail
		}
		return "value is never valid here"
	case MissingRequiredField:
		return "missing required field(s): " + strings.Join(e.Fields, ", ")
	case InvalidType:
		return "expected " + e.Expected
	case RequiredPropertyUnsatisfied:
		return "required property is missing"
	default:
		return e.Detail
	}
}

// Result is the outcome of validating raw input. Value is set only when
// Errors is empty and holds the input with schema defaults applied.
type Result struct {
	Value  any
	Errors []Error
}

func (r Result) OK() bool { return len(r.Errors) == 0 }

// Err folds the error list into a single error, nil on success.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return ValidationErrors(r.Errors)
}

type ValidationErrors []Error

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
