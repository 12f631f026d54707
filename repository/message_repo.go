package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-server/models"
)

type MessageRepository interface {
	Save(ctx context.Context, msg *models.Message) (*models.Message, error)
	FindByID(ctx context.Context, id string) (*models.Message, error)
	// ListByRoom returns the oldest-first message list for a room, capped
	// at limit. Ordering is createdAt ascending with id as tiebreak.
	ListByRoom(ctx context.Context, room string, limit int) ([]models.Message, error)
	Delete(ctx context.Context, id string) error
	DeleteByRoom(ctx context.Context, room string) (int, error)
}

type InMemoryMessageRepo struct {
	mu   sync.RWMutex
	data map[string]*models.Message
	byR  map[string][]string // room -> message ids in insert order
}

func NewInMemoryMessageRepo() *InMemoryMessageRepo {
	return &InMemoryMessageRepo{
		data: make(map[string]*models.Message),
		byR:  make(map[string][]string),
	}
}

func (r *InMemoryMessageRepo) Save(_ context.Context, msg *models.Message) (*models.Message, error) {
	if msg == nil {
		return nil, models.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	cp := *msg
	r.data[cp.ID] = &cp
	r.byR[cp.Room] = append(r.byR[cp.Room], cp.ID)
	return msg, nil
}

func (r *InMemoryMessageRepo) FindByID(_ context.Context, id string) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *InMemoryMessageRepo) ListByRoom(_ context.Context, room string, limit int) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byR[room]
	msgs := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := r.data[id]; ok {
			msgs = append(msgs, *m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (r *InMemoryMessageRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.data[id]
	if !ok {
		return models.ErrNotFound
	}
	delete(r.data, id)
	ids := r.byR[m.Room]
	for i, mid := range ids {
		if mid == id {
			r.byR[m.Room] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (r *InMemoryMessageRepo) DeleteByRoom(_ context.Context, room string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.byR[room]
	for _, id := range ids {
		delete(r.data, id)
	}
	delete(r.byR, room)
	return len(ids), nil
}
