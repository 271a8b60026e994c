package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/internal/middleware"
	"github.com/osvaldoandrade/taskdeck/internal/services"
	"github.com/osvaldoandrade/taskdeck/pkg/codec"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
)

// maxBodyBytes bounds request bodies; task schemas are the largest payload.
const maxBodyBytes = 1 << 20

func pageRequest(c *gin.Context) (domain.PageRequest, bool) {
	var req domain.PageRequest
	for _, q := range []struct {
		name string
		dst  *int
	}{{"page", &req.Page}, {"pageSize", &req.PageSize}} {
		v := c.Query(q.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid '" + q.name + "' (must be an integer)"})
			return req, false
		}
		*q.dst = n
	}
	return req.Normalize(), true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid '" + name + "' (must be a uuid)"})
		return uuid.Nil, false
	}
	return id, true
}

func readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return nil, false
	}
	return data, true
}

// writeError maps service errors onto status codes. Unknown errors are
// logged and reported as 500 without detail.
func writeError(c *gin.Context, err error) {
	var inv *services.InvalidError
	var argErr *services.ArgumentsError
	var decErr *codec.DecodeError
	switch {
	case errors.Is(err, services.ErrTaskNotFound), errors.Is(err, services.ErrExecutionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &argErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "arguments do not match task schema", "errors": argErr.Errors})
	case errors.As(err, &inv), errors.As(err, &decErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		middleware.Logger(c).Error("request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
