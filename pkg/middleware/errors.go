package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub-api/internal/apperr"
	"github.com/taskhub/taskhub-api/pkg/logger"
)

func body(status int, msg string) gin.H {
	return gin.H{"status": apperr.Kind(status), "message": msg}
}

// ErrorHandler renders the last error a handler recorded with c.Error.
// Errors that are not *apperr.Error become a generic 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, msg := http.StatusInternalServerError, apperr.MsgInternal
		if ae, ok := apperr.As(err); ok {
			status, msg = ae.Status, ae.Message
		}
		if status >= http.StatusInternalServerError {
			logger.Errorf("request %s %s failed: %v (request_id=%s)", c.Request.Method, c.Request.URL.Path, err, RequestID(c))
		}
		c.JSON(status, body(status, msg))
	}
}

// Recovery turns panics into the standard 500 body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Errorf("panic recovered: %v method=%s path=%s\n%s", recovered, c.Request.Method, c.Request.URL.Path, debug.Stack())
		c.AbortWithStatusJSON(http.StatusInternalServerError, body(http.StatusInternalServerError, apperr.MsgInternal))
	})
}

// NoRoute answers unknown routes.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(apperr.New(http.StatusNotFound, fmt.Sprintf("Can't find %s on this server!", c.Request.URL.Path), nil))
	}
}
