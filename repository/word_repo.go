package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-server/models"
)

type WordRepository interface {
	Add(ctx context.Context, word, createdBy string) (*models.CensorWord, error)
	Remove(ctx context.Context, word string) error
	List(ctx context.Context) ([]models.CensorWord, error)
}

type InMemoryWordRepo struct {
	mu   sync.RWMutex
	data map[string]*models.CensorWord // keyed by lowercase word
}

func NewInMemoryWordRepo() *InMemoryWordRepo {
	return &InMemoryWordRepo{data: make(map[string]*models.CensorWord)}
}

func (r *InMemoryWordRepo) Add(_ context.Context, word, createdBy string) (*models.CensorWord, error) {
	word = strings.ToLower(word)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[word]; ok {
		return nil, models.ErrConflict
	}
	w := &models.CensorWord{
		ID:        uuid.NewString(),
		Word:      word,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	r.data[word] = w
	cp := *w
	return &cp, nil
}

func (r *InMemoryWordRepo) Remove(_ context.Context, word string) error {
	word = strings.ToLower(word)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[word]; !ok {
		return models.ErrNotFound
	}
	delete(r.data, word)
	return nil
}

func (r *InMemoryWordRepo) List(_ context.Context) ([]models.CensorWord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	words := make([]models.CensorWord, 0, len(r.data))
	for _, w := range r.data {
		words = append(words, *w)
	}
	sort.Slice(words, func(i, j int) bool { return words[i].Word < words[j].Word })
	return words, nil
}
