package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-api/internal/models"
	"github.com/taskhub/taskhub-api/pkg/middleware"
)

func sessionCookie(r response) *http.Cookie {
	for _, c := range r.Result().Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	return nil
}

func TestLoginWithIDToken_CreatesUserOnce(t *testing.T) {
	f := newFixture(t)

	r := f.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"idToken": "good-new@example.com"})
	require.Equal(t, http.StatusOK, r.Code, r.Body.String())
	body := r.JSON(t)
	assert.Equal(t, "success", body["status"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refreshToken"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "new@example.com", user["email"])
	assert.Equal(t, string(models.RoleUser), user["role"])

	c := sessionCookie(r)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, body["token"], c.Value)

	// second login reuses the same account
	r = f.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"idToken": "good-new@example.com"})
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, user["id"], r.JSON(t)["user"].(map[string]interface{})["id"])

	all, err := f.users.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLoginWithIDToken_Rejected(t *testing.T) {
	f := newFixture(t)
	r := f.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"idToken": "forged"})
	require.Equal(t, http.StatusUnauthorized, r.Code)
	body := r.JSON(t)
	assert.Equal(t, "fail", body["status"])
	assert.True(t, strings.HasPrefix(body["message"].(string), "Google authentication failed: "), body["message"])
	assert.Nil(t, sessionCookie(r))
}

func TestLoginWithEmail(t *testing.T) {
	f := newFixture(t)

	r := f.do(http.MethodPost, "/api/v1/auth/login/email", "", map[string]string{"email": "Mail@Example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, r.Code, r.Body.String())
	body := r.JSON(t)
	assert.NotEmpty(t, body["token"])
	user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "mail@example.com", user["email"])

	r = f.do(http.MethodPost, "/api/v1/auth/login/email", "", map[string]string{"email": "mail@example.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, r.Code)
	assert.Contains(t, r.JSON(t)["message"], "Authentication failed: ")
}

func TestLogin_MalformedBody(t *testing.T) {
	f := newFixture(t)
	requireError(t, f.do(http.MethodPost, "/api/v1/auth/login", "", "{not json"), http.StatusBadRequest, "Invalid request body")
}

func TestLogin_RequiredFields(t *testing.T) {
	f := newFixture(t)
	requireError(t, f.do(http.MethodPost, "/api/v1/auth/login", "", nil), http.StatusBadRequest, "idToken is required")
	requireError(t, f.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"idToken": ""}), http.StatusBadRequest, "idToken is required")
	requireError(t, f.do(http.MethodPost, "/api/v1/auth/login/email", "", map[string]string{"password": "secret"}), http.StatusBadRequest, "email is required")
	requireError(t, f.do(http.MethodPost, "/api/v1/auth/login/email", "", map[string]string{"email": "not-an-email", "password": "secret"}), http.StatusBadRequest, "A valid email is required")
	requireError(t, f.do(http.MethodPost, "/api/v1/auth/login/email", "", map[string]string{"email": "mail@example.com"}), http.StatusBadRequest, "password is required")
}

func TestIssuedTokenOpensProtectedRoutes(t *testing.T) {
	f := newFixture(t)
	r := f.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"idToken": "good-me@example.com"})
	require.Equal(t, http.StatusOK, r.Code)
	tok := r.JSON(t)["token"].(string)

	me := f.do(http.MethodGet, "/api/v1/users/me", tok, nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "me@example.com", me.JSON(t)["email"])

	// the cookie alone is accepted as well
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(sessionCookie(r))
	assert.Equal(t, http.StatusOK, f.send(req).Code)
}

func TestRefreshRotates(t *testing.T) {
	f := newFixture(t)
	login := f.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"idToken": "good-rot@example.com"}).JSON(t)
	rt := login["refreshToken"].(string)

	r := f.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": rt})
	require.Equal(t, http.StatusOK, r.Code, r.Body.String())
	body := r.JSON(t)
	assert.NotEmpty(t, body["token"])
	assert.NotEqual(t, rt, body["refreshToken"])

	// the consumed token is dead
	requireError(t, f.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": rt}), http.StatusUnauthorized, "Invalid refresh token")
	requireError(t, f.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{}), http.StatusBadRequest, "refreshToken is required")
}

func TestLogoutRevokesTokens(t *testing.T) {
	f := newFixture(t)
	login := f.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"idToken": "good-out@example.com"}).JSON(t)
	tok, rt := login["token"].(string), login["refreshToken"].(string)

	r := f.do(http.MethodPost, "/api/v1/auth/logout", tok, map[string]string{"refreshToken": rt})
	require.Equal(t, http.StatusOK, r.Code, r.Body.String())
	assert.Equal(t, "success", r.JSON(t)["status"])
	c := sessionCookie(r)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)

	requireError(t, f.do(http.MethodGet, "/api/v1/users/me", tok, nil), http.StatusUnauthorized, "Invalid token")
	requireError(t, f.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": rt}), http.StatusUnauthorized, "Invalid refresh token")
}

func TestLogoutRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	requireError(t, f.do(http.MethodPost, "/api/v1/auth/logout", "", nil), http.StatusUnauthorized, "You are not logged in! Please log in to get access.")
}
