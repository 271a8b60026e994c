package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/osvaldoandrade/taskdeck/pkg/auth"
	"github.com/osvaldoandrade/taskdeck/pkg/config"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ClaimsKey  = "claims"
	SubjectKey = "subject"
	RoleKey    = "userRole"
)

func AuthMiddleware(validator auth.Validator, cfg *config.Config) gin.HandlerFunc {
	if validator == nil {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "identity validator not configured"})
		}
	}
	return func(c *gin.Context) {
		claims, err := validateBearer(validator, c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		setCallerContext(c, cfg, claims)
		c.Next()
	}
}

func validateBearer(validator auth.Validator, authHeader string) (*auth.Claims, error) {
	token := bearerToken(authHeader)
	if strings.TrimSpace(authHeader) == "" {
		return nil, fmt.Errorf("missing Authorization header")
	}
	if token == "" {
		return nil, fmt.Errorf("invalid Authorization format")
	}
	claims, err := validator.Validate(token)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

// setCallerContext records who is calling. Outside production the X-Role
// header may stand in for a missing role claim.
func setCallerContext(c *gin.Context, cfg *config.Config, claims *auth.Claims) {
	c.Set(ClaimsKey, claims)
	c.Set(SubjectKey, strings.TrimSpace(claims.Subject))

	role := claims.Role()
	if role == "" && cfg != nil && cfg.IsDev() {
		role = strings.ToUpper(strings.TrimSpace(c.GetHeader("X-Role")))
	}
	if role == "" {
		role = "USER"
	}
	c.Set(RoleKey, role)
}

func bearerToken(authHeader string) string {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
