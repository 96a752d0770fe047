package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhub/taskhub-api/internal/apperr"
	"github.com/taskhub/taskhub-api/internal/models"
	"github.com/taskhub/taskhub-api/internal/sessions"
	"github.com/taskhub/taskhub-api/internal/tokens"
	"github.com/taskhub/taskhub-api/internal/users"
	"github.com/taskhub/taskhub-api/pkg/metrics"
)

// CookieName is the cookie carrying the session token for browser clients.
const CookieName = "jwt"

// UserLookup resolves the user a token belongs to; users.ErrNotFound when gone.
type UserLookup interface {
	Lookup(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Authenticator verifies session tokens and attaches the caller to the context.
type Authenticator struct {
	issuer   *tokens.Issuer
	users    UserLookup
	denylist sessions.Denylist
}

func NewAuthenticator(issuer *tokens.Issuer, users UserLookup, denylist sessions.Denylist) *Authenticator {
	if denylist == nil {
		denylist = sessions.NoopDenylist{}
	}
	return &Authenticator{issuer: issuer, users: users, denylist: denylist}
}

// tokenFrom prefers the Authorization header and falls back to the cookie.
func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); t != "" {
			return t
		}
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}

func reject(c *gin.Context, reason, msg string) {
	metrics.AuthFailures.WithLabelValues(reason).Inc()
	fail(c, apperr.Unauthenticated(msg))
}

// Protect returns the gin middleware guarding authenticated routes.
// It never refreshes or rewrites the presented token.
func (a *Authenticator) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFrom(c)
		if raw == "" {
			reject(c, "missing_token", apperr.MsgNotLoggedIn)
			return
		}
		claims, err := a.issuer.Parse(raw)
		if err != nil {
			reject(c, "invalid_token", apperr.MsgInvalidToken)
			return
		}
		revoked, err := a.denylist.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			fail(c, apperr.Internal(apperr.MsgInternal, err))
			return
		}
		if revoked {
			reject(c, "revoked_token", apperr.MsgInvalidToken)
			return
		}
		id, err := claims.ObjectID()
		if err != nil {
			reject(c, "invalid_token", apperr.MsgInvalidToken)
			return
		}
		u, err := a.users.Lookup(c.Request.Context(), id)
		if errors.Is(err, users.ErrNotFound) {
			reject(c, "user_gone", apperr.MsgUserGone)
			return
		}
		if err != nil {
			fail(c, apperr.Internal(apperr.MsgInternal, err))
			return
		}
		c.Set(userKey, u)
		c.Set(claimsKey, claims)
		c.Next()
	}
}
