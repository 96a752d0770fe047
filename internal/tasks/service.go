package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhub/taskhub-api/internal/apperr"
	"github.com/taskhub/taskhub-api/internal/models"
	"github.com/taskhub/taskhub-api/internal/policy"
	"github.com/taskhub/taskhub-api/internal/storage"
	"github.com/taskhub/taskhub-api/pkg/logger"
)

// MaxAttachmentSize caps a single uploaded file.
const MaxAttachmentSize = 10 << 20

type UserDirectory interface {
	GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

type ProjectDirectory interface {
	GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error)
}

type Service struct {
	repo       Repository
	users      UserDirectory
	projects   ProjectDirectory
	store      storage.ObjectStore
	presignTTL time.Duration
}

func NewService(r Repository, users UserDirectory, projects ProjectDirectory) *Service {
	return &Service{repo: r, users: users, projects: projects, presignTTL: 15 * time.Minute}
}

// WithStore enables attachments backed by store.
func (s *Service) WithStore(store storage.ObjectStore, presignTTL time.Duration) *Service {
	s.store = store
	if presignTTL > 0 {
		s.presignTTL = presignTTL
	}
	return s
}

// AttachmentsEnabled reports whether an object store is configured.
func (s *Service) AttachmentsEnabled() bool { return s.store != nil }

func parseID(hex, resource string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(resource)
	}
	return id, nil
}

func mapErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("Task")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) userExists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	found, err := s.users.GetMany(ctx, []primitive.ObjectID{id})
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return len(found) == 1, nil
}

func (s *Service) projectExists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	found, err := s.projects.GetMany(ctx, []primitive.ObjectID{id})
	if err != nil {
		return false, fmt.Errorf("lookup project: %w", err)
	}
	return len(found) == 1, nil
}

func (s *Service) views(ctx context.Context, list []models.Task) ([]models.TaskView, error) {
	var userIDs, projectIDs []primitive.ObjectID
	for _, t := range list {
		userIDs = append(userIDs, t.OwnerID, t.AssigneeID)
		projectIDs = append(projectIDs, t.ProjectID)
	}
	us, err := s.users.GetMany(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve task users: %w", err)
	}
	ps, err := s.projects.GetMany(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve task projects: %w", err)
	}
	usersByID := make(map[primitive.ObjectID]models.User, len(us))
	for _, u := range us {
		usersByID[u.ID] = u
	}
	projectsByID := make(map[primitive.ObjectID]models.Project, len(ps))
	for _, p := range ps {
		projectsByID[p.ID] = p
	}
	out := make([]models.TaskView, 0, len(list))
	for i := range list {
		t := list[i]
		v := models.TaskView{Task: &t}
		if u, ok := usersByID[t.OwnerID]; ok {
			v.Owner = &u
		}
		if u, ok := usersByID[t.AssigneeID]; ok {
			v.Assignee = &u
		}
		if p, ok := projectsByID[t.ProjectID]; ok {
			v.Project = &p
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) list(ctx context.Context, f Filter) ([]models.TaskView, error) {
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return s.views(ctx, list)
}

func (s *Service) List(ctx context.Context) ([]models.TaskView, error) {
	return s.list(ctx, Filter{})
}

func (s *Service) Get(ctx context.Context, idHex string) (*models.TaskView, error) {
	t, err := s.load(ctx, idHex)
	if err != nil {
		return nil, err
	}
	vs, err := s.views(ctx, []models.Task{*t})
	if err != nil {
		return nil, err
	}
	return &vs[0], nil
}

func (s *Service) load(ctx context.Context, idHex string) (*models.Task, error) {
	id, err := parseID(idHex, "Task")
	if err != nil {
		return nil, err
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr("get task", err)
	}
	return t, nil
}

// ByProject lists the tasks of a project. Unknown or malformed project ids
// match nothing and yield an empty list.
func (s *Service) ByProject(ctx context.Context, projectIDHex string) ([]models.TaskView, error) {
	id, err := primitive.ObjectIDFromHex(projectIDHex)
	if err != nil {
		return []models.TaskView{}, nil
	}
	return s.list(ctx, Filter{ProjectID: id})
}

// ByAssignee lists the tasks assigned to a user, empty for unknown ids.
func (s *Service) ByAssignee(ctx context.Context, userIDHex string) ([]models.TaskView, error) {
	id, err := primitive.ObjectIDFromHex(userIDHex)
	if err != nil {
		return []models.TaskView{}, nil
	}
	return s.list(ctx, Filter{AssigneeID: id})
}

type CreateInput struct {
	Description string            `json:"description"`
	DueDate     *time.Time        `json:"dueDate"`
	ProjectID   string            `json:"projectId"`
	AssigneeID  string            `json:"assigneeId"`
	Status      models.TaskStatus `json:"status"`
}

func (s *Service) checkProject(ctx context.Context, raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return id, apperr.Validation("A valid projectId is required", nil)
	}
	ok, err := s.projectExists(ctx, id)
	if err != nil {
		return id, err
	}
	if !ok {
		return id, apperr.Validation("Project does not exist", nil)
	}
	return id, nil
}

func (s *Service) checkAssignee(ctx context.Context, raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return id, apperr.Validation("A valid assigneeId is required", nil)
	}
	ok, err := s.userExists(ctx, id)
	if err != nil {
		return id, err
	}
	if !ok {
		return id, apperr.Validation("Assignee does not exist", nil)
	}
	return id, nil
}

// Create stores a task owned by actor. Any owner in the payload is ignored.
func (s *Service) Create(ctx context.Context, actor *models.User, in CreateInput) (*models.Task, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, apperr.Validation("Task description is required", nil)
	}
	if in.DueDate == nil || in.DueDate.IsZero() {
		return nil, apperr.Validation("Task due date is required", nil)
	}
	status := in.Status
	if status == "" {
		status = models.StatusNotStarted
	}
	if !status.Valid() {
		return nil, apperr.Validation("Invalid task status", nil)
	}
	projectID, err := s.checkProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	assigneeID, err := s.checkAssignee(ctx, in.AssigneeID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	t := &models.Task{
		Description: desc,
		DueDate:     in.DueDate.UTC(),
		Status:      status,
		OwnerID:     actor.ID,
		ProjectID:   projectID,
		AssigneeID:  assigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// UpdateInput is the accepted update payload; other fields are ignored.
type UpdateInput struct {
	Description *string            `json:"description"`
	DueDate     *time.Time         `json:"dueDate"`
	Status      *models.TaskStatus `json:"status"`
	AssigneeID  *string            `json:"assigneeId"`
	ProjectID   *string            `json:"projectId"`
}

func (s *Service) Update(ctx context.Context, actor *models.User, idHex string, in UpdateInput) (*models.Task, error) {
	t, err := s.load(ctx, idHex)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeTask(actor, t, policy.ActionUpdate); err != nil {
		return nil, err
	}
	var p Patch
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d == "" {
			return nil, apperr.Validation("Task description is required", nil)
		}
		p.Description = &d
	}
	if in.DueDate != nil {
		d := in.DueDate.UTC()
		p.DueDate = &d
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.Validation("Invalid task status", nil)
		}
		p.Status = in.Status
	}
	if in.ProjectID != nil {
		id, err := s.checkProject(ctx, *in.ProjectID)
		if err != nil {
			return nil, err
		}
		p.ProjectID = &id
	}
	if in.AssigneeID != nil {
		id, err := s.checkAssignee(ctx, *in.AssigneeID)
		if err != nil {
			return nil, err
		}
		p.AssigneeID = &id
	}
	updated, err := s.repo.Update(ctx, t.ID, p)
	if err != nil {
		return nil, mapErr("update task", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor *models.User, idHex string) error {
	t, err := s.load(ctx, idHex)
	if err != nil {
		return err
	}
	if err := policy.AuthorizeTask(actor, t, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return mapErr("delete task", err)
	}
	if s.store != nil {
		for _, a := range t.Attachments {
			if err := s.store.Delete(ctx, a.Key); err != nil {
				logger.Warnf("failed to delete attachment object %s: %v", a.Key, err)
			}
		}
	}
	return nil
}

// File is an upload to attach to a task.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AddAttachment uploads f and records it on the task.
func (s *Service) AddAttachment(ctx context.Context, actor *models.User, idHex string, f File) (*models.Attachment, error) {
	if s.store == nil {
		return nil, apperr.Internal(apperr.MsgInternal, errors.New("attachments are not configured"))
	}
	t, err := s.load(ctx, idHex)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeTask(actor, t, policy.ActionAttach); err != nil {
		return nil, err
	}
	if f.Size <= 0 {
		return nil, apperr.Validation("File is empty", nil)
	}
	if f.Size > MaxAttachmentSize {
		return nil, apperr.Validation("File exceeds the 10MB limit", nil)
	}
	name := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	a := models.Attachment{
		ID:          uuid.NewString(),
		Name:        name,
		ContentType: contentType,
		Size:        f.Size,
		UploadedBy:  actor.ID,
		UploadedAt:  time.Now().UTC(),
	}
	a.Key = path.Join("tasks", t.ID.Hex(), a.ID)
	if err := s.store.Upload(ctx, a.Key, f.Body, f.Size, contentType); err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}
	if _, err := s.repo.AddAttachment(ctx, t.ID, a); err != nil {
		_ = s.store.Delete(ctx, a.Key)
		return nil, mapErr("record attachment", err)
	}
	return &a, nil
}

// AttachmentURL returns a short-lived download URL for an attachment.
func (s *Service) AttachmentURL(ctx context.Context, idHex, attachmentID string) (string, error) {
	if s.store == nil {
		return "", apperr.Internal(apperr.MsgInternal, errors.New("attachments are not configured"))
	}
	t, err := s.load(ctx, idHex)
	if err != nil {
		return "", err
	}
	a := t.Attachment(attachmentID)
	if a == nil {
		return "", apperr.NotFound("Attachment")
	}
	u, err := s.store.PresignedURL(ctx, a.Key, a.Name, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("presign attachment: %w", err)
	}
	return u, nil
}
