// Package client is the HTTP client for the task/execution API. Every call
// sends the configured bearer token; without one no request is made.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/internal/metrics"
	"github.com/osvaldoandrade/taskdeck/internal/tracing"
	"github.com/osvaldoandrade/taskdeck/pkg/codec"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 512

type Client struct {
	baseURL    string
	token      domain.Token
	httpClient *http.Client
	userAgent  string
	tracer     trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithToken(t domain.Token) Option {
	return func(c *Client) { c.token = t }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{},
		userAgent:  "taskdeck",
		tracer:     otel.Tracer("taskdeck/client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of c that authenticates with t.
func (c *Client) WithToken(t domain.Token) *Client {
	cp := *c
	cp.token = t
	return &cp
}

func (c *Client) Token() domain.Token { return c.token }

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) ListTasks(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Task], error) {
	body, err := c.do(ctx, "list_tasks", http.MethodGet, "/api/tasks", pageQuery(req), nil)
	if err != nil {
		return domain.Page[domain.Task]{}, err
	}
	return codec.DecodeTaskPage(body)
}

func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	body, err := c.do(ctx, "get_task", http.MethodGet, "/api/tasks/"+url.PathEscape(id.String()), nil, nil)
	if err != nil {
		return domain.Task{}, err
	}
	return codec.DecodeTask(body)
}

func (c *Client) ListExecutions(ctx context.Context, taskID uuid.UUID, req domain.PageRequest) (domain.Page[domain.Execution], error) {
	q := pageQuery(req)
	q.Set("taskId", taskID.String())
	body, err := c.do(ctx, "list_executions", http.MethodGet, "/api/executions", q, nil)
	if err != nil {
		return domain.Page[domain.Execution]{}, err
	}
	return codec.DecodeExecutionPage(body)
}

func (c *Client) CreateExecution(ctx context.Context, req domain.ExecutionCreate) (domain.Execution, error) {
	payload, err := codec.EncodeExecutionCreate(req)
	if err != nil {
		return domain.Execution{}, fmt.Errorf("encode execution request: %w", err)
	}
	body, err := c.do(ctx, "create_execution", http.MethodPost, "/api/executions", nil, payload)
	if err != nil {
		return domain.Execution{}, err
	}
	return codec.DecodeExecution(body)
}

func (c *Client) GetExecution(ctx context.Context, id uuid.UUID) (domain.Execution, error) {
	body, err := c.do(ctx, "get_execution", http.MethodGet, "/api/executions/"+url.PathEscape(id.String()), nil, nil)
	if err != nil {
		return domain.Execution{}, err
	}
	return codec.DecodeExecution(body)
}

// ExecutionArguments returns the arguments as stored by the server, with
// schema defaults applied.
func (c *Client) ExecutionArguments(ctx context.Context, id uuid.UUID) (any, error) {
	body, err := c.do(ctx, "get_arguments", http.MethodGet, "/api/executions/"+url.PathEscape(id.String())+"/arguments", nil, nil)
	if err != nil {
		return nil, err
	}
	return codec.DecodeArguments(body)
}

// CompleteExecution records an outcome. Requires an admin token.
func (c *Client) CompleteExecution(ctx context.Context, id uuid.UUID, statusReason *string, results []domain.ResultAsset) (domain.Execution, error) {
	payload, err := codec.EncodeExecutionResult(statusReason, results)
	if err != nil {
		return domain.Execution{}, fmt.Errorf("encode execution result: %w", err)
	}
	body, err := c.do(ctx, "complete_execution", http.MethodPut, "/api/executions/"+url.PathEscape(id.String())+"/result", nil, payload)
	if err != nil {
		return domain.Execution{}, err
	}
	return codec.DecodeExecution(body)
}

// RegisterTask is used by seeding tooling against the reference server.
func (c *Client) RegisterTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	payload, err := codec.EncodeTask(t)
	if err != nil {
		return domain.Task{}, fmt.Errorf("encode task: %w", err)
	}
	body, err := c.do(ctx, "register_task", http.MethodPost, "/api/tasks", nil, payload)
	if err != nil {
		return domain.Task{}, err
	}
	return codec.DecodeTask(body)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload []byte) ([]byte, error) {
	if !c.token.Present() {
		metrics.ClientRequestsTotal.WithLabelValues(op, "no_token").Inc()
		return nil, ErrNoToken
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	ctx, span := c.tracer.Start(ctx, "taskdeck.client."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", target),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ClientRequestDurationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, c.fail(span, op, &TransportError{Op: op, Method: method, URL: target, Err: err})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(string(c.token)))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	tracing.InjectHeaders(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.fail(span, op, &TransportError{Op: op, Method: method, URL: target, Err: err})
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(span, op, &TransportError{Op: op, Method: method, URL: target, StatusCode: resp.StatusCode, Err: err})
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(span, op, &TransportError{
			Op:         op,
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(out)), maxErrorBody),
		})
	}
	metrics.ClientRequestsTotal.WithLabelValues(op, "ok").Inc()
	return out, nil
}

func (c *Client) fail(span trace.Span, op string, err *TransportError) error {
	outcome := "network_error"
	if err.StatusCode != 0 {
		outcome = strconv.Itoa(err.StatusCode)
	}
	metrics.ClientRequestsTotal.WithLabelValues(op, outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func pageQuery(req domain.PageRequest) url.Values {
	q := url.Values{}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(req.PageSize))
	}
	return q
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
