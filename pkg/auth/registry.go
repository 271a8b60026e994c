package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ProviderConfig contains provider-specific configuration
type ProviderConfig struct {
	Type   string          `yaml:"type" json:"type"`
	Config json.RawMessage `yaml:"config" json:"config"`
}

// ValidatorFactory creates validators from configuration
type ValidatorFactory func(config json.RawMessage) (Validator, error)

var (
	registry = make(map[string]ValidatorFactory)
	mu       sync.RWMutex
)

// RegisterProvider registers a validator factory for a provider type
func RegisterProvider(providerType string, factory ValidatorFactory) {
	mu.Lock()
	defer mu.Unlock()
	registry[providerType] = factory
}

// NewValidator creates a validator from provider configuration
func NewValidator(providerConfig ProviderConfig) (Validator, error) {
	mu.RLock()
	factory, ok := registry[providerConfig.Type]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown auth provider type: %s", providerConfig.Type)
	}

	return factory(providerConfig.Config)
}

// NewChain builds every configured provider and returns them as one
// validator. At least one provider is required.
func NewChain(configs []ProviderConfig) (Validator, error) {
	if len(configs) == 0 {
		return nil, errors.New("no auth providers configured")
	}
	chain := make(Chain, 0, len(configs))
	for i, pc := range configs {
		v, err := NewValidator(pc)
		if err != nil {
			return nil, fmt.Errorf("auth provider %d (%s): %w", i, pc.Type, err)
		}
		chain = append(chain, v)
	}
	return chain, nil
}

// Chain tries each validator in order; the first acceptance wins.
type Chain []Validator

func (c Chain) Validate(token string) (*Claims, error) {
	for _, v := range c {
		if claims, err := v.Validate(token); err == nil {
			return claims, nil
		}
	}
	return nil, ErrInvalidToken
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
