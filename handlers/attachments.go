package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub-api/internal/apperr"
	"github.com/taskhub/taskhub-api/internal/tasks"
	"github.com/taskhub/taskhub-api/pkg/middleware"
)

// multipart framing allowance on top of the file size limit
const multipartOverhead = 1 << 20

// RegisterAttachments mounts the attachment routes. Only call it when the
// task service has an object store.
func (h *TaskHandler) RegisterAttachments(g *gin.RouterGroup) {
	g.POST("/tasks/:id/attachments", h.UploadAttachment)
	g.GET("/tasks/:id/attachments/:attachmentId", h.DownloadAttachment)
}

// UploadAttachment stores the multipart field "file" and records it on the task.
func (h *TaskHandler) UploadAttachment(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, tasks.MaxAttachmentSize+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			abort(c, apperr.Validation("File exceeds the 10MB limit", err))
			return
		}
		abort(c, apperr.Validation(`A multipart "file" field is required`, err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		abort(c, apperr.Validation("Could not read uploaded file", err))
		return
	}
	defer f.Close()

	a, err := h.svc.AddAttachment(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), tasks.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// DownloadAttachment redirects to a short-lived presigned URL.
func (h *TaskHandler) DownloadAttachment(c *gin.Context) {
	u, err := h.svc.AttachmentURL(c.Request.Context(), c.Param("id"), c.Param("attachmentId"))
	if err != nil {
		abort(c, err)
		return
	}
	c.Redirect(http.StatusFound, u)
}
