package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-api/internal/auth"
	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/identity"
	"github.com/taskhub/taskhub-api/internal/models"
	"github.com/taskhub/taskhub-api/internal/projects"
	"github.com/taskhub/taskhub-api/internal/sessions"
	"github.com/taskhub/taskhub-api/internal/storage"
	"github.com/taskhub/taskhub-api/internal/tasks"
	"github.com/taskhub/taskhub-api/internal/tokens"
	"github.com/taskhub/taskhub-api/internal/users"
	"github.com/taskhub/taskhub-api/pkg/middleware"
)

const testSecret = "handlers-test-secret-32-bytes-xxx"

// fakeVerifier accepts ID tokens of the form "good-<email>" and the password "secret".
type fakeVerifier struct{}

func (fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*identity.Identity, error) {
	if !strings.HasPrefix(idToken, "good-") {
		return nil, fmt.Errorf("%w: bad token", identity.ErrExternalAuth)
	}
	email := strings.TrimPrefix(idToken, "good-")
	return &identity.Identity{Email: email, DisplayName: email, EmailVerified: true}, nil
}

func (fakeVerifier) SignInWithPassword(ctx context.Context, email, password string) (*identity.Identity, error) {
	if password != "secret" {
		return nil, fmt.Errorf("%w: INVALID_PASSWORD", identity.ErrExternalAuth)
	}
	return &identity.Identity{Email: email, DisplayName: "Email User"}, nil
}

type fixture struct {
	engine   *gin.Engine
	issuer   *tokens.Issuer
	users    *users.Service
	projects *projects.Service
	tasks    *tasks.Service
	store    *storage.MemoryStorage
	redis    *mr.Miniredis
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newFixture(t *testing.T, opts ...func(*config.Config)) *fixture {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})

	cfg := &config.Config{}
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	for _, o := range opts {
		o(cfg)
	}

	f := &fixture{
		issuer: tokens.NewIssuer(testSecret, time.Hour),
		store:  storage.NewMemoryStorage(),
		redis:  m,
	}
	f.users = users.NewService(users.NewMemoryRepository())
	f.projects = projects.NewService(projects.NewMemoryRepository(), f.users)
	f.tasks = tasks.NewService(tasks.NewMemoryRepository(), f.users, f.projects).WithStore(f.store, time.Minute)

	deny := sessions.NewRedisDenylist(rdb)
	authSvc := auth.NewService(fakeVerifier{}, f.users, f.issuer,
		auth.WithSessions(sessions.NewService(sessions.NewRedisRepository(rdb, "session:"), time.Hour)),
		auth.WithDenylist(deny),
	)
	f.engine = NewRouter(Deps{
		Config:        cfg,
		Auth:          authSvc,
		Users:         f.users,
		Projects:      f.projects,
		Tasks:         f.tasks,
		Authenticator: middleware.NewAuthenticator(f.issuer, f.users, deny),
		Redis:         rdb,
		Checks: map[string]Check{
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})
	return f
}

// user creates a user with role and returns it with a valid session token.
func (f *fixture) user(t *testing.T, email string, role models.Role) (*models.User, string) {
	t.Helper()
	u, err := f.users.Create(context.Background(), users.CreateInput{Name: email, Email: email, Role: role})
	require.NoError(t, err)
	tok, _, err := f.issuer.Generate(u)
	require.NoError(t, err)
	return u, tok
}

func (f *fixture) project(t *testing.T, owner *models.User, name string) *models.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), owner, projects.CreateInput{Name: name})
	require.NoError(t, err)
	return p
}

func (f *fixture) task(t *testing.T, owner, assignee *models.User, p *models.Project) *models.Task {
	t.Helper()
	due := time.Now().Add(48 * time.Hour)
	tk, err := f.tasks.Create(context.Background(), owner, tasks.CreateInput{
		Description: "write docs",
		DueDate:     &due,
		ProjectID:   p.ID.Hex(),
		AssigneeID:  assignee.ID.Hex(),
	})
	require.NoError(t, err)
	return tk
}

type response struct {
	*httptest.ResponseRecorder
}

// JSON decodes the body into a generic map.
func (r response) JSON(t *testing.T) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &m), r.Body.String())
	return m
}

// List decodes an array body.
func (r response) List(t *testing.T) []map[string]interface{} {
	t.Helper()
	var l []map[string]interface{}
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &l), r.Body.String())
	return l
}

func (f *fixture) do(method, path, token string, body interface{}) response {
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				panic(err)
			}
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return f.send(req)
}

func (f *fixture) send(req *http.Request) response {
	rw := httptest.NewRecorder()
	f.engine.ServeHTTP(rw, req)
	return response{rw}
}

func requireError(t *testing.T, r response, status int, msg string) {
	t.Helper()
	require.Equal(t, status, r.Code, r.Body.String())
	body := r.JSON(t)
	want := "fail"
	if status >= 500 {
		want = "error"
	}
	require.Equal(t, want, body["status"])
	require.Equal(t, msg, body["message"])
}
