package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/osvaldoandrade/taskdeck/internal/tracing"
	"gopkg.in/yaml.v3"
)

// ProviderConfig selects a registered plugin and carries its settings.
type ProviderConfig struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

// Raw renders the plugin settings as JSON for the provider factories.
func (p ProviderConfig) Raw() (json.RawMessage, error) {
	if len(p.Config) == 0 {
		return json.RawMessage("{}"), nil
	}
	b, err := json.Marshal(p.Config)
	if err != nil {
		return nil, fmt.Errorf("%s provider config: %w", p.Type, err)
	}
	return b, nil
}

type RateLimitBucketConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	BurstSize         int `yaml:"burstSize"`
}

type RateLimitConfig struct {
	CreateExecution RateLimitBucketConfig `yaml:"createExecution"`
	Admin           RateLimitBucketConfig `yaml:"admin"`
}

// Config is the reference server configuration.
type Config struct {
	Port          int              `yaml:"port"`
	Env           string           `yaml:"env"`
	LogLevel      string           `yaml:"logLevel"`
	LogFormat     string           `yaml:"logFormat"`
	RedisAddr     string           `yaml:"redisAddr"`
	RedisPassword string           `yaml:"redisPassword"`
	Persistence   ProviderConfig   `yaml:"persistence"`
	Auth          []ProviderConfig `yaml:"auth"`
	RateLimit     RateLimitConfig  `yaml:"rateLimit"`
	Tracing       tracing.Config   `yaml:"tracing"`
}

// LoadConfig reads a YAML file and applies environment overrides and defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

// LoadConfigOptional behaves like LoadConfig but treats an empty path or a
// missing file as an empty document.
func LoadConfigOptional(filePath string) (*Config, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath != "" {
		cfg, err := LoadConfig(filePath)
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	}
	var c Config
	c.applyEnv()
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("TASKDECK_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("PERSISTENCE_PROVIDER"); v != "" {
		c.Persistence.Type = v
	}
	if v := os.Getenv("TASKDECK_STATIC_TOKEN"); v != "" {
		c.Auth = append(c.Auth, ProviderConfig{Type: "static", Config: map[string]any{"token": v, "subject": "operator"}})
	}
	if v := os.Getenv("TASKDECK_ADMIN_TOKEN"); v != "" {
		c.Auth = append(c.Auth, ProviderConfig{Type: "static", Config: map[string]any{
			"token": v, "subject": "admin", "raw": map[string]any{"role": "ADMIN"},
		}})
	}
	if v := os.Getenv("TASKDECK_JWT_SECRET"); v != "" {
		c.Auth = append(c.Auth, ProviderConfig{Type: "hmac", Config: map[string]any{"secret": v}})
	}
	if v := os.Getenv("RATE_LIMIT_EXECUTIONS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.CreateExecution.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_EXECUTIONS_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.CreateExecution.BurstSize = n
		}
	}
	if v := os.Getenv("OTEL_TRACING_ENABLED"); v != "" {
		c.Tracing.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		if r := tracing.ParseSampleRatio(v); r > 0 {
			c.Tracing.SampleRatio = r
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Env == "" {
		c.Env = "dev"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.Persistence.Type == "" {
		c.Persistence.Type = "memory"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "taskdeck-server"
	}
}

func (c *Config) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "dev")
}

func (c *Config) Validate() error {
	var errs []string
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, "logFormat must be json or text")
	}
	if strings.TrimSpace(c.Persistence.Type) == "" {
		errs = append(errs, "persistence.type is required")
	}
	if len(c.Auth) == 0 && !c.IsDev() {
		errs = append(errs, "at least one auth provider is required in non-dev")
	}
	for i, p := range c.Auth {
		if strings.TrimSpace(p.Type) == "" {
			errs = append(errs, fmt.Sprintf("auth[%d].type is required", i))
		}
	}
	buckets := []struct {
		name string
		b    RateLimitBucketConfig
	}{
		{"createExecution", c.RateLimit.CreateExecution},
		{"admin", c.RateLimit.Admin},
	}
	for _, rl := range buckets {
		if rl.b.RequestsPerMinute < 0 || rl.b.BurstSize < 0 {
			errs = append(errs, fmt.Sprintf("rateLimit.%s must not be negative", rl.name))
		}
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, "tracing.sampleRatio must be within [0,1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
