package middleware

import (
	"net/http"

	"github.com/osvaldoandrade/taskdeck/pkg/auth"

	"github.com/gin-gonic/gin"
)

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role := c.GetString(RoleKey); role != auth.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}
