package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhub/taskhub-api/internal/apperr"
	"github.com/taskhub/taskhub-api/internal/identity"
	"github.com/taskhub/taskhub-api/internal/models"
	"github.com/taskhub/taskhub-api/internal/sessions"
	"github.com/taskhub/taskhub-api/internal/tokens"
	"github.com/taskhub/taskhub-api/internal/users"
)

// fakeVerifier accepts "good-<email>" id tokens and the password "secret".
type fakeVerifier struct{}

func (fakeVerifier) VerifyIDToken(ctx context.Context, raw string) (*identity.Identity, error) {
	if len(raw) > 5 && raw[:5] == "good-" {
		return &identity.Identity{Email: raw[5:], DisplayName: "Google User", EmailVerified: true}, nil
	}
	return nil, fmt.Errorf("%w: bad token", identity.ErrExternalAuth)
}

func (fakeVerifier) SignInWithPassword(ctx context.Context, email, password string) (*identity.Identity, error) {
	if password != "secret" {
		return nil, fmt.Errorf("%w: INVALID_PASSWORD", identity.ErrExternalAuth)
	}
	return &identity.Identity{Email: email, DisplayName: email}, nil
}

type brokenUsers struct{}

func (brokenUsers) FindOrCreate(context.Context, string, string, string, bool) (*models.User, error) {
	return nil, errors.New("db down")
}

func (brokenUsers) Lookup(context.Context, primitive.ObjectID) (*models.User, error) {
	return nil, errors.New("db down")
}

func newService(opts ...Option) (*Service, *users.Service, *tokens.Issuer) {
	us := users.NewService(users.NewMemoryRepository())
	iss := tokens.NewIssuer("auth-test-secret-32-bytes-long-xxxx", time.Hour)
	return NewService(fakeVerifier{}, us, iss, opts...), us, iss
}

func TestLoginWithIDToken_CreatesUserOnce(t *testing.T) {
	svc, us, iss := newService()
	ctx := context.Background()

	out, err := svc.LoginWithIDToken(ctx, "good-new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", out.User.Email)
	assert.Equal(t, models.RoleUser, out.User.Role)
	assert.Empty(t, out.RefreshToken, "no refresh token without a session store")

	claims, err := iss.Parse(out.Token)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID.Hex(), claims.UserID)
	assert.Equal(t, "new@example.com", claims.Email)

	_, err = svc.LoginWithIDToken(ctx, "good-new@example.com")
	require.NoError(t, err)
	all, _ := us.List(ctx)
	assert.Len(t, all, 1)
}

func TestLogin_Failures(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	_, err := svc.LoginWithIDToken(ctx, "forged")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Contains(t, ae.Message, "Google authentication failed: ")

	_, err = svc.LoginWithEmail(ctx, "a@example.com", "wrong")
	ae, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Contains(t, ae.Message, "Authentication failed: ")
	assert.Contains(t, ae.Message, "INVALID_PASSWORD")
}

func TestIssue_PersistenceFailure(t *testing.T) {
	svc := NewService(fakeVerifier{}, brokenUsers{}, tokens.NewIssuer("x-secret-32-bytes-long-xxxxxxxxxxx", time.Hour))
	_, err := svc.LoginWithEmail(context.Background(), "a@example.com", "secret")
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, ae.Status)
	assert.Equal(t, "Failed to generate user token: db down", ae.Message)
}

func TestRefreshAndLogout(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	deny := sessions.NewRedisDenylist(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	sess := sessions.NewService(sessions.NewMemoryRepository(), time.Hour)
	svc, _, iss := newService(WithSessions(sess), WithDenylist(deny))
	ctx := context.Background()

	out, err := svc.LoginWithEmail(ctx, "r@example.com", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, out.RefreshToken)
	assert.True(t, svc.RefreshEnabled())

	next, err := svc.Refresh(ctx, out.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, out.RefreshToken, next.RefreshToken)
	assert.Equal(t, out.User.ID, next.User.ID)

	_, err = svc.Refresh(ctx, out.RefreshToken)
	ae, _ := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "Invalid refresh token", ae.Message)

	claims, err := iss.Parse(next.Token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, claims, next.RefreshToken, false))

	revoked, err := deny.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, apperr.Status(err))
}

func TestRefresh_Disabled(t *testing.T) {
	svc, _, _ := newService()
	_, err := svc.Refresh(context.Background(), "anything")
	assert.Equal(t, http.StatusUnauthorized, apperr.Status(err))
	assert.NoError(t, svc.Logout(context.Background(), nil, "", false))
}

// flakyUsers fails Lookup while down is set.
type flakyUsers struct {
	*users.Service
	down bool
}

func (f *flakyUsers) Lookup(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if f.down {
		return nil, errors.New("db down")
	}
	return f.Service.Lookup(ctx, id)
}

func TestRefresh_LookupFailureKeepsSession(t *testing.T) {
	sess := sessions.NewService(sessions.NewMemoryRepository(), time.Hour)
	us := &flakyUsers{Service: users.NewService(users.NewMemoryRepository())}
	svc := NewService(fakeVerifier{}, us, tokens.NewIssuer("auth-test-secret-32-bytes-long-xxxx", time.Hour), WithSessions(sess))
	ctx := context.Background()

	out, err := svc.LoginWithEmail(ctx, "flaky@example.com", "secret")
	require.NoError(t, err)

	us.down = true
	_, err = svc.Refresh(ctx, out.RefreshToken)
	assert.Equal(t, http.StatusInternalServerError, apperr.Status(err))

	us.down = false
	next, err := svc.Refresh(ctx, out.RefreshToken)
	require.NoError(t, err, "a transient lookup failure must not consume the session")
	assert.NotEqual(t, out.RefreshToken, next.RefreshToken)
}

func TestRefresh_DeletedUserRevokesSession(t *testing.T) {
	sess := sessions.NewService(sessions.NewMemoryRepository(), time.Hour)
	svc, us, _ := newService(WithSessions(sess))
	ctx := context.Background()

	out, err := svc.LoginWithEmail(ctx, "gone@example.com", "secret")
	require.NoError(t, err)
	require.NoError(t, us.Delete(ctx, out.User.ID.Hex()))

	_, err = svc.Refresh(ctx, out.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, apperr.Status(err))
	_, err = sess.Validate(ctx, out.RefreshToken)
	assert.ErrorIs(t, err, sessions.ErrInvalidRefresh)
}
