package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/osvaldoandrade/taskdeck/internal/repository"
	"github.com/osvaldoandrade/taskdeck/pkg/persistence"

	"github.com/go-redis/redis/v8"
)

// Config holds Redis-specific configuration. Empty fields fall back to the
// server-wide Redis settings.
type Config struct {
	Addr      string `json:"addr"`
	Password  string `json:"password,omitempty"`
	DB        int    `json:"db,omitempty"`
	KeyPrefix string `json:"keyPrefix,omitempty"`
}

// Plugin implements PluginPersistence for Redis/KVRocks
type Plugin struct {
	client   *redis.Client
	taskRepo repository.TaskRepository
	execRepo repository.ExecutionRepository
}

// NewPlugin creates a new Redis persistence plugin
func NewPlugin(config persistence.PluginConfig) (persistence.PluginPersistence, error) {
	var cfg Config
	if err := json.Unmarshal(config.Config, &cfg); err != nil {
		return nil, fmt.Errorf("redis plugin config: %w", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = config.RedisAddr
		if cfg.Password == "" {
			cfg.Password = config.RedisPassword
		}
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis plugin: addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if config.Logger != nil {
		config.Logger.Info("redis persistence", "addr", cfg.Addr, "db", cfg.DB)
	}
	return New(client, cfg.KeyPrefix), nil
}

// New wraps an existing client. The plugin owns it and closes it on Close.
func New(client *redis.Client, keyPrefix string) *Plugin {
	return &Plugin{
		client:   client,
		taskRepo: repository.NewTaskRepository(client, keyPrefix),
		execRepo: repository.NewExecutionRepository(client, keyPrefix),
	}
}

// Client exposes the connection so the rate limiter can share it.
func (p *Plugin) Client() *redis.Client { return p.client }

func (p *Plugin) TaskStorage() persistence.TaskStorage { return p.taskRepo }

func (p *Plugin) ExecutionStorage() persistence.ExecutionStorage { return p.execRepo }

func (p *Plugin) Stats(ctx context.Context) (persistence.Stats, error) {
	tasks, err := p.taskRepo.Count(ctx)
	if err != nil {
		return persistence.Stats{}, err
	}
	inprog, err := p.execRepo.CountInProgress(ctx)
	if err != nil {
		return persistence.Stats{}, err
	}
	return persistence.Stats{Tasks: tasks, ExecutionsInProgress: inprog}, nil
}

// Health checks if Redis is healthy
func (p *Plugin) Health(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases Redis connection
func (p *Plugin) Close() error {
	return p.client.Close()
}

func init() {
	persistence.RegisterProvider("redis", NewPlugin)
}
