package domain

import "math"

// Page is the paginated envelope returned by list endpoints. Results keep the
// order chosen by the server.
type Page[T any] struct {
	Page     int
	PageSize int
	Results  []T
}

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps Offset plus one page within int range.
	MaxPage = math.MaxInt/MaxPageSize - 1
)

type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request into the accepted range.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 1 {
		r.Page = DefaultPage
	}
	if r.Page > MaxPage {
		r.Page = MaxPage
	}
	if r.PageSize < 1 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
	return r
}

// Offset is the zero-based index of the first item on the page.
func (r PageRequest) Offset() int {
	r = r.Normalize()
	return (r.Page - 1) * r.PageSize
}
