package router

import "sync"

// Listener receives the path of every location change.
type Listener func(path string)

// History is the in-app navigation stack. Changes are reported to the
// listener, which normally posts a RouteChanged event to the dashboard.
type History struct {
	mu       sync.Mutex
	entries  []Route
	listener Listener
}

func NewHistory(listener Listener) *History {
	return &History{entries: []Route{Root}, listener: listener}
}

func (h *History) Current() Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Push navigates to path. Pushing the current location again still notifies
// the listener so data is refetched, but does not grow the stack.
func (h *History) Push(path string) Route {
	r := Parse(path)
	h.mu.Lock()
	if h.entries[len(h.entries)-1] != r {
		h.entries = append(h.entries, r)
	}
	h.mu.Unlock()
	h.notify(r)
	return r
}

// Replace swaps the current entry without growing the stack.
func (h *History) Replace(path string) Route {
	r := Parse(path)
	h.mu.Lock()
	h.entries[len(h.entries)-1] = r
	h.mu.Unlock()
	h.notify(r)
	return r
}

// Back pops one entry. At the root it reports false and does nothing.
func (h *History) Back() (Route, bool) {
	h.mu.Lock()
	if len(h.entries) == 1 {
		r := h.entries[0]
		h.mu.Unlock()
		return r, false
	}
	h.entries = h.entries[:len(h.entries)-1]
	r := h.entries[len(h.entries)-1]
	h.mu.Unlock()
	h.notify(r)
	return r, true
}

func (h *History) notify(r Route) {
	if h.listener != nil {
		h.listener(r.Path())
	}
}
