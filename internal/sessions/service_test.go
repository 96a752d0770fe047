package sessions

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateAndValidateSession(t *testing.T) {
	svc := NewService(NewMemoryRepository(), time.Hour)
	ctx := context.Background()
	r, sess, err := svc.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if r == "" || sess.TokenHash == r {
		t.Fatalf("expected raw refresh token distinct from stored hash")
	}
	got, err := svc.Validate(ctx, r)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if got.UserID != "user-1" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if err := svc.Revoke(ctx, r); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := svc.Validate(ctx, r); !errors.Is(err, ErrInvalidRefresh) {
		t.Fatalf("expected session removed, got %v", err)
	}
}

func TestRotate_OldTokenUnusable(t *testing.T) {
	svc := NewService(NewMemoryRepository(), time.Hour)
	ctx := context.Background()
	r1, _, err := svc.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	r2, sess, err := svc.Rotate(ctx, r1)
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if r2 == r1 || sess.UserID != "user-1" {
		t.Fatalf("unexpected rotation result %q %+v", r2, sess)
	}
	if _, _, err := svc.Rotate(ctx, r1); !errors.Is(err, ErrInvalidRefresh) {
		t.Fatalf("expected reuse of rotated token to fail, got %v", err)
	}
	if _, err := svc.Validate(ctx, r2); err != nil {
		t.Fatalf("new token should be valid: %v", err)
	}
}

func TestValidate_Expired(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, time.Minute)
	base := time.Now().UTC()
	svc.now = func() time.Time { return base }
	r, _, err := svc.Create(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := svc.Validate(context.Background(), r); !errors.Is(err, ErrInvalidRefresh) {
		t.Fatalf("expected expired session rejected, got %v", err)
	}
	if s, _ := repo.GetByHash(context.Background(), HashToken(r)); s != nil {
		t.Fatalf("expected expired session cleaned up")
	}
}

func TestRevokeAll(t *testing.T) {
	svc := NewService(NewMemoryRepository(), time.Hour)
	ctx := context.Background()
	a, _, _ := svc.Create(ctx, "user-1")
	b, _, _ := svc.Create(ctx, "user-1")
	c, _, _ := svc.Create(ctx, "user-2")
	if err := svc.RevokeAll(ctx, "user-1"); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	for _, r := range []string{a, b} {
		if _, err := svc.Validate(ctx, r); !errors.Is(err, ErrInvalidRefresh) {
			t.Fatalf("expected user-1 session revoked")
		}
	}
	if _, err := svc.Validate(ctx, c); err != nil {
		t.Fatalf("user-2 session should survive: %v", err)
	}
}

// staleRepo keeps answering GetByHash for a session another caller already
// deleted, like a refresh that validated just before a concurrent rotation.
type staleRepo struct {
	*MemoryRepository
	seen map[string]Session
}

func (r *staleRepo) GetByHash(ctx context.Context, hash string) (*Session, error) {
	if s, ok := r.seen[hash]; ok {
		return &s, nil
	}
	s, err := r.MemoryRepository.GetByHash(ctx, hash)
	if s != nil {
		r.seen[hash] = *s
	}
	return s, err
}

func TestRotate_ConcurrentReuseRejected(t *testing.T) {
	repo := &staleRepo{MemoryRepository: NewMemoryRepository(), seen: map[string]Session{}}
	svc := NewService(repo, time.Hour)
	ctx := context.Background()
	r1, _, err := svc.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Rotate(ctx, r1); err != nil {
		t.Fatalf("first rotate failed: %v", err)
	}
	// Validate still passes on the stale read, the delete must not
	if _, _, err := svc.Rotate(ctx, r1); !errors.Is(err, ErrInvalidRefresh) {
		t.Fatalf("expected second rotate of the same token to fail, got %v", err)
	}
	if n := len(repo.store); n != 1 {
		t.Fatalf("expected exactly one live session, got %d", n)
	}
}
