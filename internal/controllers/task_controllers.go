package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/internal/services"
	"github.com/osvaldoandrade/taskdeck/pkg/codec"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
)

type listTasksController struct{ svc services.CatalogService }

func NewListTasksController(svc services.CatalogService) *listTasksController {
	return &listTasksController{svc}
}

func (h *listTasksController) Handle(c *gin.Context) {
	req, ok := pageRequest(c)
	if !ok {
		return
	}
	page, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	out := codec.PageWire[codec.TaskWire]{Page: page.Page, PageSize: page.PageSize, Results: make([]codec.TaskWire, 0, len(page.Results))}
	for _, t := range page.Results {
		out.Results = append(out.Results, codec.TaskToWire(t))
	}
	c.JSON(http.StatusOK, out)
}

type getTaskController struct{ svc services.CatalogService }

func NewGetTaskController(svc services.CatalogService) *getTaskController {
	return &getTaskController{svc}
}

func (h *getTaskController) Handle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, codec.TaskToWire(task))
}

type registerTaskController struct{ svc services.CatalogService }

func NewRegisterTaskController(svc services.CatalogService) *registerTaskController {
	return &registerTaskController{svc}
}

// Handle accepts the task wire shape; "id" is optional and assigned when
// missing.
func (h *registerTaskController) Handle(c *gin.Context) {
	data, ok := readBody(c)
	if !ok {
		return
	}
	var w codec.TaskWire
	if err := json.Unmarshal(data, &w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task: " + err.Error()})
		return
	}
	task := domain.Task{
		ID:            w.ID,
		Name:          w.Name,
		Validator:     w.Validator.Schema,
		JobDefinition: w.JobDefinition,
		JobQueue:      w.JobQueue,
	}
	status := http.StatusOK
	if task.ID == uuid.Nil {
		status = http.StatusCreated
	}
	saved, err := h.svc.Register(c.Request.Context(), task)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, codec.TaskToWire(saved))
}
