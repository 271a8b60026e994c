// Package hmac validates HS256/384/512 signed JWTs against a shared secret.
package hmac

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/osvaldoandrade/taskdeck/pkg/auth"
)

type validatorConfig struct {
	Secret   string `json:"secret"`
	Issuer   string `json:"issuer,omitempty"`
	Audience string `json:"audience,omitempty"`

	// Leeway is a Go duration string applied to exp/nbf/iat checks.
	Leeway string `json:"leeway,omitempty"`
}

// Validator checks signature, expiry and the optional issuer and audience.
type Validator struct {
	secret []byte
	parser *jwt.Parser
}

func NewValidatorFromJSON(raw json.RawMessage) (auth.Validator, error) {
	var cfg validatorConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("hmac auth: invalid config: %w", err)
	}
	var leeway time.Duration
	if cfg.Leeway != "" {
		d, err := time.ParseDuration(cfg.Leeway)
		if err != nil {
			return nil, fmt.Errorf("hmac auth: leeway: %w", err)
		}
		leeway = d
	}
	return New(cfg.Secret, cfg.Issuer, cfg.Audience, leeway)
}

// New builds a validator. Extra parser options are appended last, which
// lets tests pin the clock with jwt.WithTimeFunc.
func New(secret, issuer, audience string, leeway time.Duration, extra ...jwt.ParserOption) (*Validator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("hmac auth: secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(leeway),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	opts = append(opts, extra...)
	return &Validator{secret: []byte(secret), parser: jwt.NewParser(opts...)}, nil
}

func (v *Validator) Validate(tokenString string) (*auth.Claims, error) {
	mc := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(strings.TrimSpace(tokenString), mc, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}

	claims := &auth.Claims{Raw: map[string]interface{}(mc)}
	claims.Subject, _ = mc.GetSubject()
	claims.Issuer, _ = mc.GetIssuer()
	if aud, err := mc.GetAudience(); err == nil {
		claims.Audience = []string(aud)
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	claims.Scopes = scopes(mc)
	return claims, nil
}

// scopes accepts the OAuth "scope" string form as well as a "scopes" array.
func scopes(mc jwt.MapClaims) []string {
	if s, ok := mc["scope"].(string); ok {
		return strings.Fields(s)
	}
	arr, ok := mc["scopes"].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, a := range arr {
		if s, ok := a.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func init() {
	auth.RegisterProvider("hmac", NewValidatorFromJSON)
}
