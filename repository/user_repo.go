package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-server/models"
)

type UserRepository interface {
	Create(ctx context.Context, username, hashedPwd string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, username string) error
}

type InMemoryUserRepo struct {
	mu  sync.RWMutex
	byU map[string]*models.User
}

func NewInMemoryUserRepo() *InMemoryUserRepo {
	return &InMemoryUserRepo{byU: make(map[string]*models.User)}
}

func (r *InMemoryUserRepo) Create(_ context.Context, username, hashedPwd string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byU[username]; ok {
		return nil, models.ErrConflict
	}
	u := &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Password:  hashedPwd,
		CreatedAt: time.Now(),
	}
	r.byU[u.Username] = u
	return u, nil
}

func (r *InMemoryUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byU[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *InMemoryUserRepo) List(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.User, 0, len(r.byU))
	for _, u := range r.byU {
		users = append(users, *u)
	}
	return users, nil
}

func (r *InMemoryUserRepo) Delete(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byU[username]; !ok {
		return models.ErrNotFound
	}
	delete(r.byU, username)
	return nil
}
