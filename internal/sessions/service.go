package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Service wraps repository operations with issuance and rotation rules.
type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

func NewService(r Repository, ttl time.Duration) *Service {
	return &Service{repo: r, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// TTL is the lifetime of newly created sessions.
func (s *Service) TTL() time.Duration { return s.ttl }

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create stores a new refresh session for userID and returns the raw refresh token.
func (s *Service) Create(ctx context.Context, userID string) (string, *Session, error) {
	raw, err := newRefreshToken()
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		TokenHash: HashToken(raw),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", nil, err
	}
	return raw, sess, nil
}

// Validate returns the live session for raw or ErrInvalidRefresh.
func (s *Service) Validate(ctx context.Context, raw string) (*Session, error) {
	if raw == "" {
		return nil, ErrInvalidRefresh
	}
	hash := HashToken(raw)
	sess, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidRefresh
	}
	if sess.Expired(s.now()) {
		_, _ = s.repo.DeleteByHash(ctx, hash)
		return nil, ErrInvalidRefresh
	}
	return sess, nil
}

// Rotate consumes raw and issues a replacement session for the same user.
// A rotated token cannot be used again.
func (s *Service) Rotate(ctx context.Context, raw string) (string, *Session, error) {
	old, err := s.Validate(ctx, raw)
	if err != nil {
		return "", nil, err
	}
	deleted, err := s.repo.DeleteByHash(ctx, old.TokenHash)
	if err != nil {
		return "", nil, err
	}
	if !deleted {
		// consumed by a concurrent refresh
		return "", nil, ErrInvalidRefresh
	}
	return s.Create(ctx, old.UserID)
}

// Revoke deletes the session for raw. Unknown tokens are not an error.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	_, err := s.repo.DeleteByHash(ctx, HashToken(raw))
	return err
}

// RevokeAll deletes every session belonging to userID.
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	return s.repo.DeleteByUser(ctx, userID)
}
