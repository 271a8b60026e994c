package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/osvaldoandrade/taskdeck/pkg/persistence"
)

// Plugin keeps everything in process memory. Used for local development and
// tests; data is lost on restart.
type Plugin struct {
	mu         sync.RWMutex
	tasks      map[uuid.UUID]domain.Task
	executions map[uuid.UUID]storedExecution
	byTask     map[uuid.UUID][]uuid.UUID
}

type storedExecution struct {
	exec      domain.Execution
	arguments any
}

func NewPlugin(config persistence.PluginConfig) (persistence.PluginPersistence, error) {
	return New(), nil
}

func New() *Plugin {
	return &Plugin{
		tasks:      make(map[uuid.UUID]domain.Task),
		executions: make(map[uuid.UUID]storedExecution),
		byTask:     make(map[uuid.UUID][]uuid.UUID),
	}
}

func (p *Plugin) TaskStorage() persistence.TaskStorage { return &taskStorage{p} }

func (p *Plugin) ExecutionStorage() persistence.ExecutionStorage { return &executionStorage{p} }

func (p *Plugin) Stats(ctx context.Context) (persistence.Stats, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := persistence.Stats{Tasks: int64(len(p.tasks))}
	for _, e := range p.executions {
		if e.exec.Status() == domain.StatusInProgress {
			st.ExecutionsInProgress++
		}
	}
	return st, nil
}

func (p *Plugin) Health(ctx context.Context) error { return nil }

func (p *Plugin) Close() error { return nil }

func init() {
	persistence.RegisterProvider("memory", NewPlugin)
}

type taskStorage struct{ p *Plugin }

func (s *taskStorage) Save(ctx context.Context, task domain.Task) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	s.p.tasks[task.ID] = task
	return nil
}

func (s *taskStorage) Get(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	s.p.mu.RLock()
	defer s.p.mu.RUnlock()
	t, ok := s.p.tasks[id]
	if !ok {
		return domain.Task{}, persistence.ErrNotFound
	}
	return t, nil
}

func (s *taskStorage) List(ctx context.Context, page domain.PageRequest) ([]domain.Task, error) {
	s.p.mu.RLock()
	all := make([]domain.Task, 0, len(s.p.tasks))
	for _, t := range s.p.tasks {
		all = append(all, t)
	}
	s.p.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID.String() < all[j].ID.String()
	})
	return window(all, page), nil
}

type executionStorage struct{ p *Plugin }

func (s *executionStorage) Create(ctx context.Context, exec domain.Execution, arguments any) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	if _, ok := s.p.executions[exec.ID]; ok {
		return persistence.ErrAlreadyExists
	}
	s.p.executions[exec.ID] = storedExecution{exec: exec, arguments: arguments}
	s.p.byTask[exec.TaskID] = append(s.p.byTask[exec.TaskID], exec.ID)
	return nil
}

func (s *executionStorage) Get(ctx context.Context, id uuid.UUID) (domain.Execution, error) {
	s.p.mu.RLock()
	defer s.p.mu.RUnlock()
	e, ok := s.p.executions[id]
	if !ok {
		return domain.Execution{}, persistence.ErrNotFound
	}
	return e.exec, nil
}

func (s *executionStorage) Arguments(ctx context.Context, id uuid.UUID) (any, error) {
	s.p.mu.RLock()
	defer s.p.mu.RUnlock()
	e, ok := s.p.executions[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return e.arguments, nil
}

func (s *executionStorage) ListByTask(ctx context.Context, taskID uuid.UUID, page domain.PageRequest) ([]domain.Execution, error) {
	s.p.mu.RLock()
	ids := s.p.byTask[taskID]
	all := make([]domain.Execution, 0, len(ids))
	for _, id := range ids {
		all = append(all, s.p.executions[id].exec)
	}
	s.p.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].InvokedAt.After(all[j].InvokedAt)
	})
	return window(all, page), nil
}

func (s *executionStorage) Complete(ctx context.Context, id uuid.UUID, statusReason *string, results []domain.ResultAsset) (domain.Execution, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	e, ok := s.p.executions[id]
	if !ok {
		return domain.Execution{}, persistence.ErrNotFound
	}
	if e.exec.Status() != domain.StatusInProgress {
		return domain.Execution{}, persistence.ErrAlreadyCompleted
	}
	e.exec.StatusReason = statusReason
	e.exec.Results = append([]domain.ResultAsset(nil), results...)
	s.p.executions[id] = e
	return e.exec, nil
}

func window[T any](all []T, page domain.PageRequest) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.PageSize
	if end > len(all) {
		end = len(all)
	}
	return append([]T(nil), all[start:end]...)
}
