package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoToken is returned before any request is built when the client
	// has no bearer token.
	ErrNoToken  = errors.New("client: no auth token")
	ErrNotFound = errors.New("client: not found")
)

// TransportError covers network failures (StatusCode == 0) and non-2xx
// responses.
type TransportError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Method, e.URL, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: %s %s: status %d: %s", e.Op, e.Method, e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %s %s: status %d", e.Op, e.Method, e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Temporary reports whether the failure happened before a response arrived.
func (e *TransportError) Temporary() bool { return e.StatusCode == 0 }
