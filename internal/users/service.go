package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhub/taskhub-api/internal/apperr"
	"github.com/taskhub/taskhub-api/internal/models"
	"github.com/taskhub/taskhub-api/internal/policy"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var validate = validator.New()

// validEmail applies the same rule as the `email` binding tag; the CLI
// reaches Create without going through request binding.
func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// ParseID converts a hex id; malformed ids are reported as a missing user.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("User")
	}
	return id, nil
}

// FindOrCreate returns the user for email, creating a USER on first sight.
func (s *Service) FindOrCreate(ctx context.Context, email, name, picture string, verified bool) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation("Email is required", nil)
	}
	if name == "" {
		name = email
	}
	return s.repo.FindOrCreateByEmail(ctx, &models.User{
		Name:           name,
		Email:          email,
		Role:           models.RoleUser,
		EmailVerified:  verified,
		ProfilePicture: picture,
	})
}

// Lookup returns the raw repository result; ErrNotFound when absent.
func (s *Service) Lookup(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, idHex string) (*models.User, error) {
	id, err := ParseID(idHex)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetMany resolves ids in one query; unknown ids are skipped.
func (s *Service) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	return s.repo.GetMany(ctx, ids)
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}

// CreateInput is the admin create-user payload.
type CreateInput struct {
	Name  string      `json:"name" binding:"required"`
	Email string      `json:"email" binding:"required,email"`
	Role  models.Role `json:"role"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.User, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Name is required", nil)
	}
	if !validEmail(email) {
		return nil, apperr.Validation("A valid email is required", nil)
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, apperr.Validation("Invalid role", nil)
	}
	now := time.Now().UTC()
	u := &models.User{Name: name, Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, apperr.Conflict("Email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Update applies p to the target user as actor.
func (s *Service) Update(ctx context.Context, actor *models.User, idHex string, p Patch) (*models.User, error) {
	id, err := ParseID(idHex)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeUserUpdate(actor, id, p.Role != nil, p.Email != nil || p.EmailVerified != nil); err != nil {
		return nil, err
	}
	if p.Role != nil && !p.Role.Valid() {
		return nil, apperr.Validation("Invalid role", nil)
	}
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			return nil, apperr.Validation("Name cannot be empty", nil)
		}
		p.Name = &n
	}
	if p.Email != nil {
		e := NormalizeEmail(*p.Email)
		if !validEmail(e) {
			return nil, apperr.Validation("A valid email is required", nil)
		}
		p.Email = &e
	}
	u, err := s.repo.Update(ctx, id, p)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, apperr.NotFound("User")
	case errors.Is(err, ErrDuplicateEmail):
		return nil, apperr.Conflict("Email already in use")
	case err != nil:
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, idHex string) error {
	id, err := ParseID(idHex)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("User")
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// SetRoleByEmail changes a user's role without an acting user (admin CLI).
func (s *Service) SetRoleByEmail(ctx context.Context, email string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperr.Validation("Invalid role", nil)
	}
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, u.ID, Patch{Role: &role})
}
