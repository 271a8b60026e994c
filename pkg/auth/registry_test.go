package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockValidator struct{ token, subject string }

func (m *mockValidator) Validate(token string) (*Claims, error) {
	if token == m.token {
		return &Claims{Subject: m.subject}, nil
	}
	return nil, ErrInvalidToken
}

func init() {
	RegisterProvider("mock", func(config json.RawMessage) (Validator, error) {
		var cfg struct{ Token, Subject string }
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, err
		}
		return &mockValidator{token: cfg.Token, subject: cfg.Subject}, nil
	})
}

func TestRegistry(t *testing.T) {
	assert.Contains(t, ListProviders(), "mock")

	v, err := NewValidator(ProviderConfig{Type: "mock", Config: json.RawMessage(`{"Token":"valid","Subject":"test-user"}`)})
	require.NoError(t, err)

	claims, err := v.Validate("valid")
	require.NoError(t, err)
	assert.Equal(t, "test-user", claims.Subject)

	_, err = v.Validate("invalid")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegistryUnknownProvider(t *testing.T) {
	_, err := NewValidator(ProviderConfig{Type: "unknown", Config: json.RawMessage(`{}`)})
	assert.Error(t, err)
}

func TestChainFirstMatchWins(t *testing.T) {
	chain, err := NewChain([]ProviderConfig{
		{Type: "mock", Config: json.RawMessage(`{"Token":"a","Subject":"first"}`)},
		{Type: "mock", Config: json.RawMessage(`{"Token":"b","Subject":"second"}`)},
	})
	require.NoError(t, err)

	claims, err := chain.Validate("b")
	require.NoError(t, err)
	assert.Equal(t, "second", claims.Subject)

	_, err = chain.Validate("c")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChainRequiresProviders(t *testing.T) {
	_, err := NewChain(nil)
	assert.Error(t, err)

	_, err = NewChain([]ProviderConfig{{Type: "nope"}})
	assert.ErrorContains(t, err, "auth provider 0 (nope)")
}

func TestClaimsRole(t *testing.T) {
	var nilClaims *Claims
	assert.Equal(t, "", nilClaims.Role())
	assert.False(t, nilClaims.HasScope("x"))

	c := &Claims{Raw: map[string]any{"role": " admin "}, Scopes: []string{"tasks:read"}}
	assert.True(t, c.IsAdmin())
	assert.True(t, c.HasScope("tasks:read"))
	assert.False(t, (&Claims{Raw: map[string]any{"role": 7}}).IsAdmin())
}
