package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhub/taskhub-api/internal/apperr"
	"github.com/taskhub/taskhub-api/internal/models"
	"github.com/taskhub/taskhub-api/internal/policy"
)

// UserDirectory resolves user ids for joins and member validation.
type UserDirectory interface {
	GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

type Service struct {
	repo  Repository
	users UserDirectory
}

func NewService(r Repository, users UserDirectory) *Service {
	return &Service{repo: r, users: users}
}

func parseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("Project")
	}
	return id, nil
}

func mapErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("Project")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) views(ctx context.Context, list []models.Project) ([]models.ProjectView, error) {
	var ids []primitive.ObjectID
	for _, p := range list {
		ids = append(ids, p.OwnerID)
		ids = append(ids, p.Members...)
	}
	found, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve project users: %w", err)
	}
	byID := make(map[primitive.ObjectID]models.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	out := make([]models.ProjectView, 0, len(list))
	for i := range list {
		p := list[i]
		v := models.ProjectView{Project: &p, MemberUsers: []models.User{}}
		if o, ok := byID[p.OwnerID]; ok {
			v.Owner = &o
		}
		for _, m := range p.Members {
			if u, ok := byID[m]; ok {
				v.MemberUsers = append(v.MemberUsers, u)
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// ListForUser returns the projects u owns or is a member of.
func (s *Service) ListForUser(ctx context.Context, u *models.User) ([]models.ProjectView, error) {
	list, err := s.repo.ListForUser(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return s.views(ctx, list)
}

func (s *Service) Get(ctx context.Context, idHex string) (*models.ProjectView, error) {
	id, err := parseID(idHex)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr("get project", err)
	}
	vs, err := s.views(ctx, []models.Project{*p})
	if err != nil {
		return nil, err
	}
	return &vs[0], nil
}

// Lookup returns the stored project; ErrNotFound when absent.
func (s *Service) Lookup(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error) {
	return s.repo.GetMany(ctx, ids)
}

type CreateInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return apperr.Validation("endDate must not be before startDate", nil)
	}
	return nil
}

// Create stores a project owned by actor. Any owner in the payload is ignored.
func (s *Service) Create(ctx context.Context, actor *models.User, in CreateInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Project name is required", nil)
	}
	if err := checkDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p := &models.Project{
		Name:        name,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		OwnerID:     actor.ID,
		Members:     []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// authorized loads the project and checks actor may perform action on it.
func (s *Service) authorized(ctx context.Context, actor *models.User, idHex, action string) (*models.Project, error) {
	id, err := parseID(idHex)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr("get project", err)
	}
	if err := policy.AuthorizeProject(actor, p, action); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, actor *models.User, idHex string, patch Patch) (*models.Project, error) {
	cur, err := s.authorized(ctx, actor, idHex, policy.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		n := strings.TrimSpace(*patch.Name)
		if n == "" {
			return nil, apperr.Validation("Project name is required", nil)
		}
		patch.Name = &n
	}
	start, end := cur.StartDate, cur.EndDate
	if patch.StartDate != nil {
		start = patch.StartDate
	}
	if patch.EndDate != nil {
		end = patch.EndDate
	}
	if err := checkDates(start, end); err != nil {
		return nil, err
	}
	p, err := s.repo.Update(ctx, cur.ID, patch)
	if err != nil {
		return nil, mapErr("update project", err)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, actor *models.User, idHex string) error {
	p, err := s.authorized(ctx, actor, idHex, policy.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return mapErr("delete project", err)
	}
	return nil
}

// AddMembers adds existing users to the member set; duplicates are ignored.
func (s *Service) AddMembers(ctx context.Context, actor *models.User, idHex string, userIDs []string) (*models.Project, error) {
	p, err := s.authorized(ctx, actor, idHex, policy.ActionManageMembers)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, apperr.Validation("userIds must be a non-empty array", nil)
	}
	seen := map[primitive.ObjectID]bool{}
	ids := make([]primitive.ObjectID, 0, len(userIDs))
	for _, raw := range userIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, apperr.Validation("Invalid user id: "+raw, err)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	found, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve members: %w", err)
	}
	if len(found) != len(ids) {
		return nil, apperr.Validation("One or more users do not exist", nil)
	}
	updated, err := s.repo.AddMembers(ctx, p.ID, ids)
	if err != nil {
		return nil, mapErr("add members", err)
	}
	return updated, nil
}

func (s *Service) RemoveMember(ctx context.Context, actor *models.User, idHex, userIDHex string) (*models.Project, error) {
	p, err := s.authorized(ctx, actor, idHex, policy.ActionManageMembers)
	if err != nil {
		return nil, err
	}
	uid, err := primitive.ObjectIDFromHex(userIDHex)
	if err != nil || !p.HasMember(uid) {
		return p, nil
	}
	updated, err := s.repo.RemoveMember(ctx, p.ID, uid)
	if err != nil {
		return nil, mapErr("remove member", err)
	}
	return updated, nil
}
