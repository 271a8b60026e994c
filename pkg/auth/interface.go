package auth

import (
	"errors"
	"strings"
	"time"
)

// RoleAdmin grants task registration and execution completion.
const RoleAdmin = "ADMIN"

// ErrInvalidToken is returned by validators for any token they do not accept.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents authentication token claims
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Scopes    []string
	Raw       map[string]interface{}
}

// HasScope checks if the claims contain a specific scope
func (c *Claims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Role reads the "role" claim, upper-cased. Empty when absent.
func (c *Claims) Role() string {
	if c == nil || c.Raw == nil {
		return ""
	}
	r, _ := c.Raw["role"].(string)
	return strings.ToUpper(strings.TrimSpace(r))
}

func (c *Claims) IsAdmin() bool { return c.Role() == RoleAdmin }

// Validator validates authentication tokens
type Validator interface {
	Validate(token string) (*Claims, error)
}
