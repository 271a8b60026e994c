package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/internal/logging"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/osvaldoandrade/taskdeck/pkg/persistence/memory"
	"github.com/osvaldoandrade/taskdeck/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renderSchema = `{
  "type": "object",
  "required": ["scene"],
  "properties": {
    "scene":  {"type": "string"},
    "frames": {"type": "integer", "default": 1}
  }
}`

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (context.Context, CatalogService, ExecutionService) {
	t.Helper()
	store := memory.New()
	logger := logging.Discard()
	catalog := NewCatalogService(store.TaskStorage(), logger)
	execs := NewExecutionService(store.TaskStorage(), store.ExecutionStorage(), logger, func() time.Time { return fixedNow })
	return context.Background(), catalog, execs
}

func register(t *testing.T, ctx context.Context, catalog CatalogService) domain.Task {
	t.Helper()
	task, err := catalog.Register(ctx, domain.Task{Name: " render ", Validator: schema.MustParse(renderSchema), JobQueue: "gpu"})
	require.NoError(t, err)
	return task
}

func TestRegisterAssignsIDAndTrimsName(t *testing.T) {
	ctx, catalog, _ := setup(t)
	task := register(t, ctx, catalog)
	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, "render", task.Name)

	got, err := catalog.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "gpu", got.JobQueue)

	page, err := catalog.List(ctx, domain.PageRequest{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxPageSize, page.PageSize)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Results, 1)
}

func TestRegisterRejectsIncompleteTasks(t *testing.T) {
	ctx, catalog, _ := setup(t)
	var inv *InvalidError

	_, err := catalog.Register(ctx, domain.Task{Validator: schema.MustParse(`{}`)})
	assert.ErrorAs(t, err, &inv)

	_, err = catalog.Register(ctx, domain.Task{Name: "x"})
	assert.ErrorAs(t, err, &inv)
}

func TestGetUnknownTask(t *testing.T) {
	ctx, catalog, _ := setup(t)
	_, err := catalog.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCreateStoresArgumentsWithDefaults(t *testing.T) {
	ctx, catalog, execs := setup(t)
	task := register(t, ctx, catalog)

	exec, err := execs.Create(ctx, domain.ExecutionCreate{TaskID: task.ID, Arguments: map[string]any{"scene": "intro"}})
	require.NoError(t, err)
	assert.Equal(t, task.ID, exec.TaskID)
	assert.Equal(t, fixedNow, exec.InvokedAt)
	assert.Equal(t, domain.StatusInProgress, exec.Status())

	args, err := execs.Arguments(ctx, exec.ID)
	require.NoError(t, err)
	b, err := json.Marshal(args)
	require.NoError(t, err)
	assert.JSONEq(t, `{"scene":"intro","frames":1}`, string(b))
}

func TestCreateRejectsInvalidArguments(t *testing.T) {
	ctx, catalog, execs := setup(t)
	task := register(t, ctx, catalog)

	_, err := execs.Create(ctx, domain.ExecutionCreate{TaskID: task.ID, Arguments: map[string]any{"frames": "many"}})
	var argErr *ArgumentsError
	require.ErrorAs(t, err, &argErr)
	kinds := map[schema.Kind]bool{}
	for _, e := range argErr.Errors {
		kinds[e.Kind] = true
	}
	assert.True(t, kinds[schema.MissingRequiredField])
	assert.True(t, kinds[schema.InvalidType])

	page, err := execs.ListByTask(ctx, task.ID, domain.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Results)
}

func TestCreateForUnknownTask(t *testing.T) {
	ctx, _, execs := setup(t)
	_, err := execs.Create(ctx, domain.ExecutionCreate{TaskID: uuid.New(), Arguments: map[string]any{}})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCompleteLifecycle(t *testing.T) {
	ctx, catalog, execs := setup(t)
	task := register(t, ctx, catalog)
	exec, err := execs.Create(ctx, domain.ExecutionCreate{TaskID: task.ID, Arguments: map[string]any{"scene": "a"}})
	require.NoError(t, err)

	var inv *InvalidError
	_, err = execs.Complete(ctx, exec.ID, nil, nil)
	assert.ErrorAs(t, err, &inv)
	blank := "  "
	_, err = execs.Complete(ctx, exec.ID, &blank, nil)
	assert.ErrorAs(t, err, &inv)
	_, err = execs.Complete(ctx, exec.ID, nil, []domain.ResultAsset{{MediaType: "image/png"}})
	assert.ErrorAs(t, err, &inv)

	done, err := execs.Complete(ctx, exec.ID, nil, []domain.ResultAsset{{Href: "s3://out/1.png", MediaType: "image/png"}})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, done.Status())

	reason := "late"
	_, err = execs.Complete(ctx, exec.ID, &reason, nil)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	_, err = execs.Complete(ctx, uuid.New(), &reason, nil)
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestGetAndArgumentsNotFound(t *testing.T) {
	ctx, _, execs := setup(t)
	_, err := execs.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrExecutionNotFound)
	_, err = execs.Arguments(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}
