package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// PluginConfig provides initialization parameters to persistence plugins
type PluginConfig struct {
	// Config contains plugin-specific configuration
	Config json.RawMessage

	// RedisAddr and RedisPassword are the server-wide defaults used when the
	// plugin config does not name its own Redis.
	RedisAddr     string
	RedisPassword string

	Logger *slog.Logger
}

// PluginFactory creates persistence plugins from configuration
type PluginFactory func(config PluginConfig) (PluginPersistence, error)

var (
	registry = make(map[string]PluginFactory)
	mu       sync.RWMutex
)

// RegisterProvider registers a persistence plugin factory for a provider type
func RegisterProvider(providerType string, factory PluginFactory) {
	mu.Lock()
	defer mu.Unlock()
	registry[providerType] = factory
}

// NewPersistence creates the plugin registered under providerType.
func NewPersistence(providerType string, config PluginConfig) (PluginPersistence, error) {
	mu.RLock()
	factory, ok := registry[providerType]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown persistence provider type: %s", providerType)
	}
	if len(config.Config) == 0 {
		config.Config = json.RawMessage("{}")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return factory(config)
}

// ListProviders returns registered provider types, sorted.
func ListProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	providers := make([]string, 0, len(registry))
	for name := range registry {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}
