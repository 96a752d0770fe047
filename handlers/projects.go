package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub-api/internal/projects"
	"github.com/taskhub/taskhub-api/pkg/middleware"
)

type ProjectHandler struct {
	svc *projects.Service
}

func NewProjectHandler(svc *projects.Service) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

func (h *ProjectHandler) Register(g *gin.RouterGroup) {
	p := g.Group("/projects")
	p.GET("", h.List)
	p.GET("/:id", h.Get)
	p.POST("", h.Create)
	p.PUT("/:id", h.Update)
	p.DELETE("/:id", h.Delete)
	p.POST("/:id/members", h.AddMembers)
	p.DELETE("/:id/members/:userId", h.RemoveMember)
}

// List returns the projects the caller owns or is a member of.
func (h *ProjectHandler) List(c *gin.Context) {
	list, err := h.svc.ListForUser(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Create ignores any ownerId in the body; the caller becomes the owner.
func (h *ProjectHandler) Create(c *gin.Context) {
	var in projects.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	var patch projects.Patch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := h.svc.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), patch)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type membersRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

func (h *ProjectHandler) AddMembers(c *gin.Context) {
	var req membersRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.AddMembers(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req.UserIDs)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	p, err := h.svc.RemoveMember(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
