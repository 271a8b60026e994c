package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/codec"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskID = uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")

const taskBody = `{"id":"123e4567-e89b-12d3-a456-426614174000","name":"render","validator":{"schema":{"type":"object"}},"jobDefinition":"render:1","jobQueue":"gpu"}`

const execBody = `{"id":"9b2f6d0e-3c1a-4f5e-8a7b-1c2d3e4f5a6b","taskId":"123e4567-e89b-12d3-a456-426614174000","invokedAt":"2024-03-01T10:00:00Z","results":[]}`

func newServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestNoTokenIssuesNoRequests(t *testing.T) {
	srv, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.ListTasks(ctx, domain.PageRequest{})
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = c.GetTask(ctx, taskID)
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = c.ListExecutions(ctx, taskID, domain.PageRequest{})
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = c.CreateExecution(ctx, domain.ExecutionCreate{TaskID: taskID, Arguments: map[string]any{}})
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = c.WithToken("   ").ListTasks(ctx, domain.PageRequest{})
	assert.ErrorIs(t, err, ErrNoToken)

	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestListTasksSendsBearerAndPagination(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tasks", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("pageSize"))
		_, _ = io.WriteString(w, `{"page":2,"pageSize":5,"results":[`+taskBody+`]}`)
	})
	c := New(srv.URL+"/", WithToken("secret-token"))

	page, err := c.ListTasks(context.Background(), domain.PageRequest{Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Results, 1)
	assert.Equal(t, taskID, page.Results[0].ID)
}

func TestGetTask(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/"+taskID.String(), r.URL.Path)
		_, _ = io.WriteString(w, taskBody)
	})

	task, err := New(srv.URL, WithToken("t0ken")).GetTask(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, "render", task.Name)
	assert.Equal(t, "gpu", task.JobQueue)
}

func TestGetTaskNotFound(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
	})

	_, err := New(srv.URL, WithToken("t0ken")).GetTask(context.Background(), taskID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Equal(t, "get_task", te.Op)
	assert.Contains(t, te.Error(), `{"error":"not found"}`)
	assert.False(t, te.Temporary())
}

func TestServerErrorIsNotNotFound(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := New(srv.URL, WithToken("t0ken")).ListTasks(context.Background(), domain.PageRequest{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestDecodeFailureIsDecodeError(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"not-a-uuid"}`)
	})

	_, err := New(srv.URL, WithToken("t0ken")).GetTask(context.Background(), taskID)
	var de *codec.DecodeError
	require.ErrorAs(t, err, &de)
}

func TestNetworkFailureIsTransportError(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	url := srv.URL
	srv.Close()

	_, err := New(url, WithToken("t0ken")).ListTasks(context.Background(), domain.PageRequest{})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Temporary())
}

func TestListExecutionsFiltersByTask(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/executions", r.URL.Path)
		assert.Equal(t, taskID.String(), r.URL.Query().Get("taskId"))
		assert.Empty(t, r.URL.Query().Get("page"))
		_, _ = io.WriteString(w, `{"page":1,"pageSize":20,"results":[`+execBody+`]}`)
	})

	page, err := New(srv.URL, WithToken("t0ken")).ListExecutions(context.Background(), taskID, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, domain.StatusInProgress, page.Results[0].Status())
}

func TestCreateExecutionPostsBody(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, taskID.String(), body["taskId"])
		assert.Equal(t, map[string]any{"frames": float64(3)}, body["arguments"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, execBody)
	})

	exec, err := New(srv.URL, WithToken("t0ken")).CreateExecution(context.Background(), domain.ExecutionCreate{
		TaskID:    taskID,
		Arguments: map[string]any{"frames": json.Number("3")},
	})
	require.NoError(t, err)
	assert.Equal(t, taskID, exec.TaskID)
}

func TestWithTokenCopies(t *testing.T) {
	base := New("http://example.test")
	authed := base.WithToken("abc")

	assert.False(t, base.Token().Present())
	assert.Equal(t, domain.Token("abc"), authed.Token())
	assert.Equal(t, "http://example.test", authed.BaseURL())
}
