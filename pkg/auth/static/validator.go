// Package static accepts one fixed bearer token. Meant for local setups and
// tests; register several providers for several tokens.
package static

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/osvaldoandrade/taskdeck/pkg/auth"
)

type validatorConfig struct {
	// Token is the exact bearer token value expected by this validator.
	Token string `json:"token"`

	Subject string   `json:"subject,omitempty"`
	Scopes  []string `json:"scopes,omitempty"`

	// Raw is returned as claims.Raw; "role" drives admin checks.
	Raw map[string]any `json:"raw,omitempty"`
}

type validator struct {
	cfg validatorConfig
}

// NewValidatorFromJSON accepts either {"token":"..."} or a bare JSON string.
func NewValidatorFromJSON(raw json.RawMessage) (auth.Validator, error) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil, errors.New("static auth: missing config")
	}

	var cfg validatorConfig
	var err error
	if raw[0] == '"' {
		err = json.Unmarshal(raw, &cfg.Token)
	} else {
		err = json.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("static auth: invalid config: %w", err)
	}

	cfg.Token = strings.TrimSpace(cfg.Token)
	if cfg.Token == "" {
		return nil, errors.New("static auth: token is required")
	}
	cfg.Subject = strings.TrimSpace(cfg.Subject)
	if cfg.Subject == "" {
		cfg.Subject = "static"
	}
	if cfg.Raw == nil {
		cfg.Raw = map[string]any{}
	}

	return &validator{cfg: cfg}, nil
}

func (v *validator) Validate(token string) (*auth.Claims, error) {
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(v.cfg.Token)) != 1 {
		return nil, auth.ErrInvalidToken
	}
	raw := make(map[string]any, len(v.cfg.Raw))
	for k, val := range v.cfg.Raw {
		raw[k] = val
	}
	return &auth.Claims{
		Subject: v.cfg.Subject,
		Scopes:  append([]string(nil), v.cfg.Scopes...),
		Raw:     raw,
	}, nil
}

func init() {
	auth.RegisterProvider("static", NewValidatorFromJSON)
}
