package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhub/taskhub-api/internal/models"
)

// MemoryRepository is an in-process Repository for tests and dev runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks map[primitive.ObjectID]models.Task
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tasks: map[primitive.ObjectID]models.Task{}}
}

func clone(t models.Task) models.Task {
	if t.Attachments != nil {
		t.Attachments = append([]models.Attachment{}, t.Attachments...)
	}
	return t
}

func (m *MemoryRepository) Create(ctx context.Context, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	m.tasks[t.ID] = clone(*t)
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := clone(t)
	return &cp, nil
}

func (m *MemoryRepository) List(ctx context.Context, f Filter) ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Task{}
	for _, t := range m.tasks {
		if f.matches(&t) {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

func (m *MemoryRepository) mutate(id primitive.ObjectID, fn func(t *models.Task)) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	t = clone(t)
	fn(&t)
	t.UpdatedAt = time.Now().UTC()
	m.tasks[id] = t
	cp := clone(t)
	return &cp, nil
}

func (m *MemoryRepository) Update(ctx context.Context, id primitive.ObjectID, p Patch) (*models.Task, error) {
	return m.mutate(id, func(t *models.Task) {
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.DueDate != nil {
			t.DueDate = *p.DueDate
		}
		if p.Status != nil {
			t.Status = *p.Status
		}
		if p.AssigneeID != nil {
			t.AssigneeID = *p.AssigneeID
		}
		if p.ProjectID != nil {
			t.ProjectID = *p.ProjectID
		}
	})
}

func (m *MemoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *MemoryRepository) AddAttachment(ctx context.Context, id primitive.ObjectID, a models.Attachment) (*models.Task, error) {
	return m.mutate(id, func(t *models.Task) {
		t.Attachments = append(t.Attachments, a)
	})
}
