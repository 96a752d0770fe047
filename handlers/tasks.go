package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub-api/internal/tasks"
	"github.com/taskhub/taskhub-api/pkg/middleware"
)

type TaskHandler struct {
	svc *tasks.Service
}

func NewTaskHandler(svc *tasks.Service) *TaskHandler {
	return &TaskHandler{svc: svc}
}

func (h *TaskHandler) Register(g *gin.RouterGroup) {
	t := g.Group("/tasks")
	t.GET("", h.List)
	t.GET("/:id", h.Get)
	t.POST("", h.Create)
	t.PUT("/:id", h.Update)
	t.DELETE("/:id", h.Delete)
	t.GET("/project/:projectId", h.ByProject)
	t.GET("/user/:userId", h.ByAssignee)
}

func (h *TaskHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TaskHandler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Create stamps the caller as owner regardless of the body.
func (h *TaskHandler) Create(c *gin.Context) {
	var in tasks.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *TaskHandler) Update(c *gin.Context) {
	var in tasks.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.svc.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), in)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"task": t}})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) ByProject(c *gin.Context) {
	list, err := h.svc.ByProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TaskHandler) ByAssignee(c *gin.Context) {
	list, err := h.svc.ByAssignee(c.Request.Context(), c.Param("userId"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
