package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/osvaldoandrade/taskdeck/internal/middleware"
)

// Pinger is the storage health check.
type Pinger interface {
	Health(ctx context.Context) error
}

type healthController struct{ store Pinger }

func NewHealthController(store Pinger) *healthController {
	return &healthController{store}
}

func (h *healthController) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Health(ctx); err != nil {
		middleware.Logger(c).Warn("health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
