package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigOptionalEmptyPath(t *testing.T) {
	t.Setenv("PORT", "9999")

	cfg, err := LoadConfigOptional("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "memory", cfg.Persistence.Type)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "taskdeck-server", cfg.Tracing.ServiceName)
}

func TestLoadConfigOptionalMissingFile(t *testing.T) {
	cfg, err := LoadConfigOptional(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoadConfigOptionalInvalidYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "port: 8080\n  broken: [\n")
	_, err := LoadConfigOptional(path)
	assert.Error(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeFile(t, "server.yaml", `
port: 9000
env: prod
logFormat: text
persistence:
  type: redis
  config:
    addr: redis:6379
    keyPrefix: td
auth:
  - type: static
    config:
      token: ops
rateLimit:
  createExecution:
    requestsPerMinute: 60
    burstSize: 5
tracing:
  enabled: true
  otlpEndpoint: collector:4317
  sampleRatio: 0.5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "redis", cfg.Persistence.Type)
	raw, err := cfg.Persistence.Raw()
	require.NoError(t, err)
	assert.JSONEq(t, `{"addr":"redis:6379","keyPrefix":"td"}`, string(raw))
	require.Len(t, cfg.Auth, 1)
	assert.Equal(t, "static", cfg.Auth[0].Type)
	assert.Equal(t, 60, cfg.RateLimit.CreateExecution.RequestsPerMinute)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "collector:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, 0.5, cfg.Tracing.SampleRatio)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server.yaml", "port: 8080\nredisAddr: file:6379\n")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "env:6380")
	t.Setenv("PERSISTENCE_PROVIDER", "redis")
	t.Setenv("TASKDECK_STATIC_TOKEN", "dev-token")
	t.Setenv("TASKDECK_ADMIN_TOKEN", "admin-token")

	cfg, err := LoadConfigOptional(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "env:6380", cfg.RedisAddr)
	assert.Equal(t, "redis", cfg.Persistence.Type)
	require.Len(t, cfg.Auth, 2)
	assert.Equal(t, "dev-token", cfg.Auth[0].Config["token"])
	assert.Equal(t, map[string]any{"role": "ADMIN"}, cfg.Auth[1].Config["raw"])
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfigOptional("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(), "dev defaults are valid")

	cfg.Env = "prod"
	cfg.Port = 0
	cfg.LogFormat = "xml"
	cfg.RateLimit.Admin.BurstSize = -1
	cfg.Tracing.SampleRatio = 2

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"port", "logFormat", "auth provider", "rateLimit.admin", "sampleRatio"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestProfilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKDECK_CONFIG_DIR", dir)
	path := ProfilesPath()
	assert.Equal(t, filepath.Join(dir, "config.yaml"), path)

	empty, err := LoadProfiles(path)
	require.NoError(t, err)
	name, prof := empty.Active("")
	assert.Equal(t, "default", name)
	assert.Equal(t, DefaultBaseURL, prof.BaseURL)

	empty.Set("staging", Profile{BaseURL: "https://staging.example", PageSize: 50}, false)
	require.NoError(t, SaveProfiles(empty, path))

	loaded, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", loaded.CurrentProfile)
	name, prof = loaded.Active("")
	assert.Equal(t, "staging", name)
	assert.Equal(t, 50, prof.PageSize)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "token")
}

func TestProfilesResolveOrder(t *testing.T) {
	p := Profiles{CurrentProfile: "stored"}
	assert.Equal(t, "flag", p.Resolve("flag"))
	t.Setenv("TASKDECK_PROFILE", "env")
	assert.Equal(t, "env", p.Resolve(""))
}
