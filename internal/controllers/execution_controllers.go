package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/internal/services"
	"github.com/osvaldoandrade/taskdeck/pkg/codec"
)

type listExecutionsController struct{ svc services.ExecutionService }

func NewListExecutionsController(svc services.ExecutionService) *listExecutionsController {
	return &listExecutionsController{svc}
}

func (h *listExecutionsController) Handle(c *gin.Context) {
	taskID, err := uuid.Parse(c.Query("taskId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'taskId' (must be a uuid)"})
		return
	}
	req, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.svc.ListByTask(c.Request.Context(), taskID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	out := codec.PageWire[codec.ExecutionWire]{Page: page.Page, PageSize: page.PageSize, Results: make([]codec.ExecutionWire, 0, len(page.Results))}
	for _, e := range page.Results {
		out.Results = append(out.Results, codec.ExecutionToWire(e))
	}
	c.JSON(http.StatusOK, out)
}

type createExecutionController struct{ svc services.ExecutionService }

func NewCreateExecutionController(svc services.ExecutionService) *createExecutionController {
	return &createExecutionController{svc}
}

func (h *createExecutionController) Handle(c *gin.Context) {
	data, ok := readBody(c)
	if !ok {
		return
	}
	req, err := codec.DecodeExecutionCreate(data)
	if err != nil {
		writeError(c, err)
		return
	}
	exec, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, codec.ExecutionToWire(exec))
}

type getExecutionController struct{ svc services.ExecutionService }

func NewGetExecutionController(svc services.ExecutionService) *getExecutionController {
	return &getExecutionController{svc}
}

func (h *getExecutionController) Handle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	exec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, codec.ExecutionToWire(exec))
}

type getArgumentsController struct{ svc services.ExecutionService }

func NewGetArgumentsController(svc services.ExecutionService) *getArgumentsController {
	return &getArgumentsController{svc}
}

// Handle returns the stored arguments, defaults included, as the body.
func (h *getArgumentsController) Handle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	args, err := h.svc.Arguments(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, args)
}

type completeExecutionController struct{ svc services.ExecutionService }

func NewCompleteExecutionController(svc services.ExecutionService) *completeExecutionController {
	return &completeExecutionController{svc}
}

func (h *completeExecutionController) Handle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, ok := readBody(c)
	if !ok {
		return
	}
	reason, results, err := codec.DecodeExecutionResult(data)
	if err != nil {
		writeError(c, err)
		return
	}
	exec, err := h.svc.Complete(c.Request.Context(), id, reason, results)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, codec.ExecutionToWire(exec))
}
