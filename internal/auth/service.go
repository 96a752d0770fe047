// Package auth exchanges verified identities for session tokens.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhub/taskhub-api/internal/apperr"
	"github.com/taskhub/taskhub-api/internal/identity"
	"github.com/taskhub/taskhub-api/internal/models"
	"github.com/taskhub/taskhub-api/internal/sessions"
	"github.com/taskhub/taskhub-api/internal/tokens"
	"github.com/taskhub/taskhub-api/internal/users"
	"github.com/taskhub/taskhub-api/pkg/logger"
	"github.com/taskhub/taskhub-api/pkg/metrics"
)

// UserStore is the part of the user service the login path needs. Lookup
// reports users.ErrNotFound for deleted users.
type UserStore interface {
	FindOrCreate(ctx context.Context, email, name, picture string, verified bool) (*models.User, error)
	Lookup(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Issued is the result of a login or refresh.
type Issued struct {
	Token        string
	ExpiresAt    time.Time
	RefreshToken string
	User         *models.User
}

type Service struct {
	verifier identity.Verifier
	users    UserStore
	issuer   *tokens.Issuer
	sessions *sessions.Service
	denylist sessions.Denylist
}

type Option func(*Service)

// WithSessions enables refresh tokens.
func WithSessions(s *sessions.Service) Option { return func(a *Service) { a.sessions = s } }

// WithDenylist enables access-token revocation on logout.
func WithDenylist(d sessions.Denylist) Option { return func(a *Service) { a.denylist = d } }

func NewService(v identity.Verifier, users UserStore, issuer *tokens.Issuer, opts ...Option) *Service {
	s := &Service{verifier: v, users: users, issuer: issuer, denylist: sessions.NoopDenylist{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RefreshEnabled reports whether logins hand out refresh tokens.
func (s *Service) RefreshEnabled() bool { return s.sessions != nil }

// Issue finds or creates the user for id and signs a session token.
func (s *Service) Issue(ctx context.Context, id *identity.Identity) (*Issued, error) {
	u, err := s.users.FindOrCreate(ctx, id.Email, id.DisplayName, id.PhotoURL, id.EmailVerified)
	if err != nil {
		return nil, apperr.Internal(apperr.MsgFailedTokenIssue+": "+err.Error(), err)
	}
	return s.sign(ctx, u, true)
}

func (s *Service) sign(ctx context.Context, u *models.User, withRefresh bool) (*Issued, error) {
	tok, exp, err := s.issuer.Generate(u)
	if err != nil {
		return nil, apperr.Internal(apperr.MsgFailedTokenIssue+": "+err.Error(), err)
	}
	out := &Issued{Token: tok, ExpiresAt: exp, User: u}
	if withRefresh && s.sessions != nil {
		rt, _, err := s.sessions.Create(ctx, u.ID.Hex())
		if err != nil {
			return nil, apperr.Internal(apperr.MsgFailedTokenIssue+": "+err.Error(), err)
		}
		out.RefreshToken = rt
	}
	return out, nil
}

// LoginWithEmail signs in with provider-held email/password credentials.
func (s *Service) LoginWithEmail(ctx context.Context, email, password string) (*Issued, error) {
	id, err := s.verifier.SignInWithPassword(ctx, email, password)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("login_email").Inc()
		logger.Debugf("email login rejected: %v", err)
		return nil, apperr.New(http.StatusUnauthorized, apperr.MsgAuthFailed+": "+err.Error(), err)
	}
	out, err := s.Issue(ctx, id)
	if err == nil {
		metrics.Logins.WithLabelValues("email").Inc()
	}
	return out, err
}

// LoginWithIDToken signs in with a provider ID token (Google sign-in).
func (s *Service) LoginWithIDToken(ctx context.Context, idToken string) (*Issued, error) {
	id, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("login_id_token").Inc()
		logger.Debugf("id token login rejected: %v", err)
		return nil, apperr.New(http.StatusUnauthorized, apperr.MsgGoogleAuthFailed+": "+err.Error(), err)
	}
	out, err := s.Issue(ctx, id)
	if err == nil {
		metrics.Logins.WithLabelValues("id_token").Inc()
	}
	return out, err
}

// Refresh rotates a refresh token and mints a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Issued, error) {
	if s.sessions == nil {
		return nil, apperr.Unauthenticated(apperr.MsgInvalidRefresh)
	}
	invalid := func() error {
		metrics.AuthFailures.WithLabelValues("refresh").Inc()
		return apperr.Unauthenticated(apperr.MsgInvalidRefresh)
	}
	sess, err := s.sessions.Validate(ctx, refreshToken)
	if errors.Is(err, sessions.ErrInvalidRefresh) {
		return nil, invalid()
	}
	if err != nil {
		return nil, apperr.Internal(apperr.MsgInternal, err)
	}
	uid, err := primitive.ObjectIDFromHex(sess.UserID)
	if err != nil {
		return nil, invalid()
	}
	// resolve the user before rotating so a failed lookup leaves the session usable
	u, err := s.users.Lookup(ctx, uid)
	if errors.Is(err, users.ErrNotFound) {
		_ = s.sessions.Revoke(ctx, refreshToken)
		return nil, invalid()
	}
	if err != nil {
		return nil, apperr.Internal(apperr.MsgInternal, err)
	}
	rt, _, err := s.sessions.Rotate(ctx, refreshToken)
	if errors.Is(err, sessions.ErrInvalidRefresh) {
		return nil, invalid()
	}
	if err != nil {
		return nil, apperr.Internal(apperr.MsgInternal, err)
	}
	out, err := s.sign(ctx, u, false)
	if err != nil {
		return nil, err
	}
	out.RefreshToken = rt
	return out, nil
}

// Logout revokes the presented access token until it would have expired and
// deletes the given refresh session. With all set every session of the user goes.
func (s *Service) Logout(ctx context.Context, claims *tokens.Claims, refreshToken string, all bool) error {
	if claims != nil && claims.ExpiresAt != nil {
		if err := s.denylist.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			return apperr.Internal(apperr.MsgInternal, err)
		}
	}
	if s.sessions == nil {
		return nil
	}
	if all && claims != nil {
		if err := s.sessions.RevokeAll(ctx, claims.UserID); err != nil {
			return apperr.Internal(apperr.MsgInternal, err)
		}
		return nil
	}
	if err := s.sessions.Revoke(ctx, refreshToken); err != nil {
		return apperr.Internal(apperr.MsgInternal, err)
	}
	return nil
}
