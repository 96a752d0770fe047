package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	g := gin.New()
	g.Use(CORS([]string{"http://localhost:3000"}))
	g.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	assert.Equal(t, "http://localhost:3000", rw.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rw.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	assert.Empty(t, rw.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusNoContent, rw.Code)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	g := gin.New()
	g.Use(RequestIDMiddleware(), SecurityHeaders(), RequestLogger())
	g.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })

	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "nosniff", rw.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rw.Header().Get("X-Frame-Options"))
	id := rw.Header().Get("X-Request-ID")
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rw.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	assert.Equal(t, "abc-123", rw.Header().Get("X-Request-ID"))
}
