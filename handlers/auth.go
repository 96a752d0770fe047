package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub-api/internal/auth"
	"github.com/taskhub/taskhub-api/pkg/middleware"
)

// AuthHandler serves login, refresh and logout.
type AuthHandler struct {
	svc          *auth.Service
	cookieSecure bool
}

func NewAuthHandler(svc *auth.Service, cookieSecure bool) *AuthHandler {
	return &AuthHandler{svc: svc, cookieSecure: cookieSecure}
}

type emailLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type idTokenLoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
	All          bool   `json:"all"`
}

// setSessionCookie mirrors the issued token into the httpOnly jwt cookie.
func (h *AuthHandler) setSessionCookie(c *gin.Context, iss *auth.Issued) {
	maxAge := int(time.Until(iss.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, iss.Token, maxAge, "/", "", h.cookieSecure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, "", -1, "/", "", h.cookieSecure, true)
}

func withRefresh(body gin.H, iss *auth.Issued) gin.H {
	if iss.RefreshToken != "" {
		body["refreshToken"] = iss.RefreshToken
	}
	return body
}

// LoginWithEmail handles POST /auth/login/email.
func (h *AuthHandler) LoginWithEmail(c *gin.Context) {
	var req emailLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	iss, err := h.svc.LoginWithEmail(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abort(c, err)
		return
	}
	h.setSessionCookie(c, iss)
	c.JSON(http.StatusOK, withRefresh(gin.H{
		"status": "success",
		"token":  iss.Token,
		"data":   gin.H{"user": iss.User},
	}, iss))
}

// LoginWithIDToken handles POST /auth/login (Google sign-in ID token).
func (h *AuthHandler) LoginWithIDToken(c *gin.Context) {
	var req idTokenLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	iss, err := h.svc.LoginWithIDToken(c.Request.Context(), req.IDToken)
	if err != nil {
		abort(c, err)
		return
	}
	h.setSessionCookie(c, iss)
	c.JSON(http.StatusOK, withRefresh(gin.H{
		"status": "success",
		"token":  iss.Token,
		"user":   iss.User,
	}, iss))
}

// Refresh exchanges a refresh token for a new access token and a rotated
// refresh token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	iss, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abort(c, err)
		return
	}
	h.setSessionCookie(c, iss)
	c.JSON(http.StatusOK, withRefresh(gin.H{"status": "success", "token": iss.Token}, iss))
}

// Logout revokes the caller's access token and refresh session(s).
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Logout(c.Request.Context(), middleware.CurrentClaims(c), req.RefreshToken, req.All); err != nil {
		abort(c, err)
		return
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Logged out"})
}
