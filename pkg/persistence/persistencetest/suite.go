// Package persistencetest holds the behaviour every persistence plugin must
// share. Plugin packages call Run from their own tests.
package persistencetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/osvaldoandrade/taskdeck/pkg/persistence"
	"github.com/osvaldoandrade/taskdeck/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty plugin for each subtest.
type Factory func(t *testing.T) persistence.PluginPersistence

func Run(t *testing.T, newPlugin Factory) {
	t.Run("TaskRoundTrip", func(t *testing.T) { testTaskRoundTrip(t, newPlugin(t)) })
	t.Run("TaskListOrderAndPaging", func(t *testing.T) { testTaskList(t, newPlugin(t)) })
	t.Run("TaskRename", func(t *testing.T) { testTaskRename(t, newPlugin(t)) })
	t.Run("ExecutionLifecycle", func(t *testing.T) { testExecutionLifecycle(t, newPlugin(t)) })
	t.Run("ExecutionsNewestFirst", func(t *testing.T) { testExecutionsNewestFirst(t, newPlugin(t)) })
	t.Run("Stats", func(t *testing.T) { testStats(t, newPlugin(t)) })
}

func NewTask(name string) domain.Task {
	return domain.Task{
		ID:            uuid.New(),
		Name:          name,
		Validator:     schema.MustParse(`{"type":"object","properties":{"n":{"type":"integer","default":1}}}`),
		JobDefinition: name + ":1",
		JobQueue:      "default",
	}
}

func testTaskRoundTrip(t *testing.T, p persistence.PluginPersistence) {
	ctx := context.Background()
	require.NoError(t, p.Health(ctx))
	tasks := p.TaskStorage()

	task := NewTask("render")
	require.NoError(t, tasks.Save(ctx, task))

	got, err := tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.Name, got.Name)
	assert.Equal(t, task.JobQueue, got.JobQueue)
	assert.Equal(t, task.Validator.String(), got.Validator.String())

	_, err = tasks.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func testTaskList(t *testing.T, p persistence.PluginPersistence) {
	ctx := context.Background()
	tasks := p.TaskStorage()
	for _, name := range []string{"delta", "alpha", "charlie", "bravo", "echo"} {
		require.NoError(t, tasks.Save(ctx, NewTask(name)))
	}

	first, err := tasks.List(ctx, domain.PageRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	second, err := tasks.List(ctx, domain.PageRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	beyond, err := tasks.List(ctx, domain.PageRequest{Page: 9, PageSize: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "bravo"}, names(first))
	assert.Equal(t, []string{"charlie", "delta"}, names(second))
	assert.NotNil(t, beyond)
	assert.Empty(t, beyond)
}

func testTaskRename(t *testing.T, p persistence.PluginPersistence) {
	ctx := context.Background()
	tasks := p.TaskStorage()
	task := NewTask("zulu")
	require.NoError(t, tasks.Save(ctx, task))
	require.NoError(t, tasks.Save(ctx, NewTask("mike")))

	task.Name = "alpha"
	require.NoError(t, tasks.Save(ctx, task))

	all, err := tasks.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mike"}, names(all))
}

func testExecutionLifecycle(t *testing.T, p persistence.PluginPersistence) {
	ctx := context.Background()
	execs := p.ExecutionStorage()
	exec := domain.Execution{
		ID:        uuid.New(),
		TaskID:    uuid.New(),
		InvokedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Results:   []domain.ResultAsset{},
	}
	args := map[string]any{"n": json.Number("3")}

	require.NoError(t, execs.Create(ctx, exec, args))
	assert.ErrorIs(t, execs.Create(ctx, exec, args), persistence.ErrAlreadyExists)

	got, err := execs.Get(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status())
	assert.True(t, exec.InvokedAt.Equal(got.InvokedAt))

	storedArgs, err := execs.Arguments(ctx, exec.ID)
	require.NoError(t, err)
	b, err := json.Marshal(storedArgs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":3}`, string(b))

	asset := domain.ResultAsset{Href: "s3://out/frame.png", Roles: []string{"data"}, MediaType: "image/png"}
	done, err := execs.Complete(ctx, exec.ID, nil, []domain.ResultAsset{asset})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, done.Status())

	_, err = execs.Complete(ctx, exec.ID, nil, nil)
	assert.ErrorIs(t, err, persistence.ErrAlreadyCompleted)

	reloaded, err := execs.Get(ctx, exec.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Results, 1)
	assert.Equal(t, "image/png", reloaded.Results[0].MediaType)

	_, err = execs.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	_, err = execs.Complete(ctx, uuid.New(), nil, nil)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func testExecutionsNewestFirst(t *testing.T, p persistence.PluginPersistence) {
	ctx := context.Background()
	execs := p.ExecutionStorage()
	taskID := uuid.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		e := domain.Execution{ID: uuid.New(), TaskID: taskID, InvokedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, execs.Create(ctx, e, nil))
		ids = append(ids, e.ID)
	}
	require.NoError(t, execs.Create(ctx, domain.Execution{ID: uuid.New(), TaskID: uuid.New(), InvokedAt: base}, nil))

	got, err := execs.ListByTask(ctx, taskID, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, []uuid.UUID{got[0].ID, got[1].ID, got[2].ID})

	none, err := execs.ListByTask(ctx, uuid.New(), domain.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testStats(t *testing.T, p persistence.PluginPersistence) {
	ctx := context.Background()
	require.NoError(t, p.TaskStorage().Save(ctx, NewTask("a")))
	require.NoError(t, p.TaskStorage().Save(ctx, NewTask("b")))
	running := domain.Execution{ID: uuid.New(), TaskID: uuid.New(), InvokedAt: time.Now()}
	finished := domain.Execution{ID: uuid.New(), TaskID: uuid.New(), InvokedAt: time.Now()}
	require.NoError(t, p.ExecutionStorage().Create(ctx, running, nil))
	require.NoError(t, p.ExecutionStorage().Create(ctx, finished, nil))
	reason := "oom"
	_, err := p.ExecutionStorage().Complete(ctx, finished.ID, &reason, nil)
	require.NoError(t, err)

	st, err := p.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, persistence.Stats{Tasks: 2, ExecutionsInProgress: 1}, st)
}

func names(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name
	}
	return out
}
