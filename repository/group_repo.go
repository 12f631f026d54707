package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-server/models"
)

type GroupRepository interface {
	Create(ctx context.Context, name, createdBy string) (*models.Group, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
	List(ctx context.Context) ([]models.Group, error)
	// AddMember is an idempotent set-add: adding an existing member is a
	// no-op and concurrent joins never duplicate membership.
	AddMember(ctx context.Context, groupID, username string) (*models.Group, error)
}

type InMemoryGroupRepo struct {
	mu     sync.RWMutex
	data   map[string]*models.Group
	byName map[string]string // name -> group id
}

func NewInMemoryGroupRepo() *InMemoryGroupRepo {
	return &InMemoryGroupRepo{
		data:   make(map[string]*models.Group),
		byName: make(map[string]string),
	}
}

func (r *InMemoryGroupRepo) Create(_ context.Context, name, createdBy string) (*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return nil, models.ErrConflict
	}
	g := &models.Group{
		ID:        uuid.NewString(),
		Name:      name,
		Members:   []string{createdBy},
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	r.data[g.ID] = g
	r.byName[g.Name] = g.ID
	return copyGroup(g), nil
}

func (r *InMemoryGroupRepo) FindByID(_ context.Context, id string) (*models.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyGroup(g), nil
}

func (r *InMemoryGroupRepo) List(_ context.Context) ([]models.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	groups := make([]models.Group, 0, len(r.data))
	for _, g := range r.data {
		groups = append(groups, *copyGroup(g))
	}
	return groups, nil
}

func (r *InMemoryGroupRepo) AddMember(_ context.Context, groupID, username string) (*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.data[groupID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !g.HasMember(username) {
		g.Members = append(g.Members, username)
	}
	return copyGroup(g), nil
}

func copyGroup(g *models.Group) *models.Group {
	cp := *g
	cp.Members = append([]string(nil), g.Members...)
	return &cp
}
