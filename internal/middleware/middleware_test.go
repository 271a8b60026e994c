package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/osvaldoandrade/taskdeck/internal/logging"
	"github.com/osvaldoandrade/taskdeck/internal/ratelimit"
	"github.com/osvaldoandrade/taskdeck/pkg/auth"
	_ "github.com/osvaldoandrade/taskdeck/pkg/auth/static"
	"github.com/osvaldoandrade/taskdeck/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func staticChain(t *testing.T) auth.Validator {
	t.Helper()
	v, err := auth.NewChain([]auth.ProviderConfig{
		{Type: "static", Config: json.RawMessage(`{"token":"user-token","subject":"alice"}`)},
		{Type: "static", Config: json.RawMessage(`{"token":"admin-token","subject":"root","raw":{"role":"ADMIN"}}`)},
	})
	require.NoError(t, err)
	return v
}

// newEngine mounts the production chain in front of a handler that echoes
// the caller context.
func newEngine(t *testing.T, cfg *config.Config, extra ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	e := gin.New()
	e.Use(RequestIDMiddleware(), LoggerMiddleware(discardLogger()), MetricsMiddleware(), TracingMiddleware(""))
	handlers := append([]gin.HandlerFunc{AuthMiddleware(staticChain(t), cfg)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"subject":   c.GetString(SubjectKey),
			"role":      c.GetString(RoleKey),
			"requestId": RequestID(c.Request.Context()),
		})
	})
	e.GET("/api/things/:id", handlers...)
	return e
}

func do(e http.Handler, token string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/things/1", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func body(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	e := newEngine(t, &config.Config{Env: "prod"})

	rec := do(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing Authorization header", body(t, rec)["error"])

	rec = do(e, "", "Authorization", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid Authorization format", body(t, rec)["error"])

	rec = do(e, "nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", body(t, rec)["error"])
}

func TestAuthSetsCallerContext(t *testing.T) {
	e := newEngine(t, &config.Config{Env: "prod"})

	rec := do(e, "user-token", RequestIDHeader, "req-42")
	require.Equal(t, http.StatusOK, rec.Code)
	b := body(t, rec)
	assert.Equal(t, "alice", b["subject"])
	assert.Equal(t, "USER", b["role"])
	assert.Equal(t, "req-42", b["requestId"])
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	rec = do(e, "admin-token")
	assert.Equal(t, "ADMIN", body(t, rec)["role"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRoleHeaderOnlyInDev(t *testing.T) {
	prod := newEngine(t, &config.Config{Env: "prod"})
	assert.Equal(t, "USER", body(t, do(prod, "user-token", "X-Role", "admin"))["role"])

	dev := newEngine(t, &config.Config{Env: "dev"})
	assert.Equal(t, "ADMIN", body(t, do(dev, "user-token", "X-Role", "admin"))["role"])
}

func TestRequireAdmin(t *testing.T) {
	e := newEngine(t, &config.Config{Env: "prod"}, RequireAdmin())

	assert.Equal(t, http.StatusForbidden, do(e, "user-token").Code)
	assert.Equal(t, http.StatusOK, do(e, "admin-token").Code)
}

func TestNilValidatorIsServerError(t *testing.T) {
	e := gin.New()
	e.GET("/", AuthMiddleware(nil, &config.Config{}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type mockLimiter struct {
	decision ratelimit.Decision
	err      error
	calls    int
	subject  string
}

func (m *mockLimiter) Allow(ctx context.Context, scope string, subject string, bucket ratelimit.Bucket) (ratelimit.Decision, error) {
	m.calls++
	m.subject = subject
	return m.decision, m.err
}

func limitedConfig() *config.Config {
	return &config.Config{RateLimit: config.RateLimitConfig{
		CreateExecution: config.RateLimitBucketConfig{RequestsPerMinute: 100, BurstSize: 10},
	}}
}

func runLimiter(h gin.HandlerFunc, token string) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/api/executions", nil)
	if token != "" {
		ctx.Request.Header.Set("Authorization", "Bearer "+token)
	}
	h(ctx)
	return ctx, rec
}

func TestRateLimitDisabledBucketSkipsLimiter(t *testing.T) {
	lim := &mockLimiter{decision: ratelimit.Decision{Allowed: false}}
	ctx, _ := runLimiter(RateLimitCreateExecution(lim, &config.Config{}), "tok")
	assert.False(t, ctx.IsAborted())
	assert.Zero(t, lim.calls)
}

func TestRateLimitDenied(t *testing.T) {
	lim := &mockLimiter{decision: ratelimit.Decision{Allowed: false, RetryAfter: 5 * time.Second}}
	ctx, rec := runLimiter(RateLimitCreateExecution(lim, limitedConfig()), "tok")

	require.True(t, ctx.IsAborted())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Equal(t, "tok", lim.subject)

	b := body(t, rec)
	assert.Equal(t, "rate limit exceeded", b["error"])
	assert.Equal(t, "create_execution", b["operation"])
	assert.Equal(t, float64(5), b["retryAfterSeconds"])
}

func TestRateLimitFailsOpen(t *testing.T) {
	lim := &mockLimiter{err: errors.New("redis down")}
	ctx, _ := runLimiter(RateLimitCreateExecution(lim, limitedConfig()), "tok")
	assert.False(t, ctx.IsAborted())
	assert.Equal(t, 1, lim.calls)
}

func TestRateLimitIgnoresAnonymous(t *testing.T) {
	lim := &mockLimiter{decision: ratelimit.Decision{Allowed: false}}
	ctx, _ := runLimiter(RateLimitCreateExecution(lim, limitedConfig()), "")
	assert.False(t, ctx.IsAborted())
	assert.Zero(t, lim.calls)
}

func TestRateLimitNilLimiter(t *testing.T) {
	ctx, _ := runLimiter(RateLimitAdmin(nil, limitedConfig()), "tok")
	assert.False(t, ctx.IsAborted())
}

func discardLogger() *slog.Logger { return logging.Discard() }
