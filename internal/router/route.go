// Package router maps dashboard locations to routes. A location is either the
// task catalog ("/") or a single task ("/{taskId}").
package router

import (
	"strings"

	"github.com/google/uuid"
)

type Kind int

const (
	List Kind = iota
	Detail
)

func (k Kind) String() string {
	if k == Detail {
		return "detail"
	}
	return "list"
}

type Route struct {
	Kind   Kind
	TaskID uuid.UUID
}

var Root = Route{Kind: List}

// Parse never fails: anything that is not a task id resolves to the list.
func Parse(path string) Route {
	rest := strings.TrimPrefix(strings.TrimSpace(path), "/")
	rest = strings.TrimSuffix(rest, "/")
	// canonical hyphenated form only; Path must render what was parsed
	if len(rest) != 36 || strings.Contains(rest, "/") {
		return Root
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return Root
	}
	return Route{Kind: Detail, TaskID: id}
}

func TaskRoute(id uuid.UUID) Route {
	return Route{Kind: Detail, TaskID: id}
}

func (r Route) IsDetail() bool { return r.Kind == Detail }

func (r Route) Path() string {
	if r.Kind == Detail {
		return "/" + r.TaskID.String()
	}
	return "/"
}

func (r Route) String() string { return r.Path() }
