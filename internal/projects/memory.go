package projects

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
	mu       sync.RWMutex
	projects map[primitive.ObjectID]models.Project
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{projects: map[primitive.ObjectID]models.Project{}}
}

func clone(p models.Project) models.Project {
	p.Members = append([]primitive.ObjectID{}, p.Members...)
	return p
}

func (m *MemoryRepository) Create(ctx context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Members == nil {
		p.Members = []primitive.ObjectID{}
	}
	m.projects[p.ID] = clone(*p)
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := clone(p)
	return &cp, nil
}

func newestFirst(in []models.Project) []models.Project {
	sort.Slice(in, func(i, j int) bool {
		if in[i].CreatedAt.Equal(in[j].CreatedAt) {
			return in[i].ID.Hex() > in[j].ID.Hex()
		}
		return in[i].CreatedAt.After(in[j].CreatedAt)
	})
	return in
}

func (m *MemoryRepository) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Project{}
	seen := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		if p, ok := m.projects[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, clone(p))
		}
	}
	return newestFirst(out), nil
}

func (m *MemoryRepository) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Project{}
	for _, p := range m.projects {
		if p.OwnerID == userID || p.HasMember(userID) {
			out = append(out, clone(p))
		}
	}
	return newestFirst(out), nil
}

func (m *MemoryRepository) mutate(id primitive.ObjectID, fn func(p *models.Project)) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = clone(p)
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	m.projects[id] = p
	cp := clone(p)
	return &cp, nil
}

func (m *MemoryRepository) Update(ctx context.Context, id primitive.ObjectID, patch Patch) (*models.Project, error) {
	return m.mutate(id, func(p *models.Project) {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.StartDate != nil {
			p.StartDate = patch.StartDate
		}
		if patch.EndDate != nil {
			p.EndDate = patch.EndDate
		}
	})
}

func (m *MemoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *MemoryRepository) AddMembers(ctx context.Context, id primitive.ObjectID, userIDs []primitive.ObjectID) (*models.Project, error) {
	return m.mutate(id, func(p *models.Project) {
		for _, u := range userIDs {
			if !p.HasMember(u) {
				p.Members = append(p.Members, u)
			}
		}
	})
}

func (m *MemoryRepository) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Project, error) {
	return m.mutate(id, func(p *models.Project) {
		kept := p.Members[:0]
		for _, u := range p.Members {
			if u != userID {
				kept = append(kept, u)
			}
		}
		p.Members = kept
	})
}
