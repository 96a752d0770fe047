package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub-api/internal/models"
	"github.com/taskhub/taskhub-api/internal/tokens"
)

const (
	userKey      = "user"
	claimsKey    = "claims"
	requestIDKey = "requestID"
)

// CurrentUser returns the authenticated user, or nil on public routes.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// CurrentClaims returns the verified session token claims, or nil.
func CurrentClaims(c *gin.Context) *tokens.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if cl, ok := v.(*tokens.Claims); ok {
			return cl
		}
	}
	return nil
}

// RequestID returns the id assigned by the RequestID middleware.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// fail records err for ErrorHandler and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
