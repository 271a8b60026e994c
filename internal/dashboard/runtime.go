package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/osvaldoandrade/taskdeck/internal/router"
)

// Runtime drives Update without a renderer. One goroutine owns the state and
// handles events in arrival order; effects run concurrently and post their
// completions back to the same queue.
type Runtime struct {
	api      APIFactory
	logger   *slog.Logger
	history  *router.History
	pageSize int

	events chan Event

	mu       sync.RWMutex
	state    State
	onChange func(State)

	effects sync.WaitGroup
}

type RuntimeOption func(*Runtime)

func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithPageSize(n int) RuntimeOption {
	return func(r *Runtime) { r.pageSize = n }
}

// WithObserver registers a callback invoked with every new state, from the
// runtime goroutine.
func WithObserver(fn func(State)) RuntimeOption {
	return func(r *Runtime) { r.onChange = fn }
}

func NewRuntime(api APIFactory, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		api:    api,
		logger: slog.Default(),
		events: make(chan Event, 64),
		state:  State{Route: router.Root},
	}
	r.history = router.NewHistory(nil)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatch queues an event. It blocks only when the queue is full.
func (r *Runtime) Dispatch(ev Event) {
	r.events <- ev
}

func (r *Runtime) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Navigate moves to path, the way an internal link would.
func (r *Runtime) Navigate(path string) {
	r.Dispatch(RouteChanged{Path: path})
}

// Back returns to the previous location, if there is one.
func (r *Runtime) Back() bool {
	prev, ok := r.history.Back()
	if ok {
		r.Dispatch(RouteChanged{Path: prev.Path()})
	}
	return ok
}

// Run processes events until ctx is cancelled, then waits for running effects.
func (r *Runtime) Run(ctx context.Context) error {
	var local []Event
	for {
		var ev Event
		if len(local) > 0 {
			ev, local = local[0], local[1:]
		} else {
			select {
			case <-ctx.Done():
				r.effects.Wait()
				return ctx.Err()
			case ev = <-r.events:
			}
		}

		if rc, ok := ev.(RouteChanged); ok {
			r.history.Push(rc.Path)
		}
		next, effects := r.step(ev)
		for _, eff := range effects {
			if nav, ok := eff.(Navigate); ok {
				local = append(local, RouteChanged{Path: nav.Path})
				continue
			}
			r.perform(ctx, eff)
		}
		if r.onChange != nil {
			r.onChange(next)
		}
	}
}

func (r *Runtime) step(ev Event) (State, []Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()

	Observe(r.logger, r.state, ev)
	next, effects := Update(r.state, ev)
	r.state = next
	return next, effects
}

func (r *Runtime) perform(ctx context.Context, eff Effect) {
	r.effects.Add(1)
	go func() {
		defer r.effects.Done()
		ev := Perform(ctx, r.api, r.pageSize, eff)
		if ev == nil {
			return
		}
		select {
		case r.events <- ev:
		case <-ctx.Done():
		}
	}()
}

// Observe logs what Update is about to drop about ev: stale completions and
// failed ones. Every runtime calls it before applying an event.
func Observe(logger *slog.Logger, s State, ev Event) {
	if gen, ok := completionGen(ev); ok && gen != s.Gen {
		logger.Debug("dropping stale completion", "event", eventName(ev), "gen", gen, "current", s.Gen)
		return
	}
	if err := completionErr(ev); err != nil {
		logCompletionError(logger, ev, err)
	}
}

// IsCompletion reports whether ev answers a fetch or create effect.
func IsCompletion(ev Event) bool {
	_, ok := completionGen(ev)
	return ok
}

func logCompletionError(logger *slog.Logger, ev Event, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if _, ok := ev.(ExecutionCreated); ok {
		logger.Warn("execution was not created", "err", err)
		return
	}
	logger.Debug("fetch failed", "event", eventName(ev), "err", err)
}

func eventName(ev Event) string {
	switch ev.(type) {
	case TaskListFetched:
		return "task_list_fetched"
	case TaskFetched:
		return "task_fetched"
	case ExecutionsFetched:
		return "executions_fetched"
	case ExecutionCreated:
		return "execution_created"
	}
	return "event"
}
