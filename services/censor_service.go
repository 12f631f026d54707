package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"chat-server/censor"
	"chat-server/models"
	"chat-server/repository"
)

// WordBroadcaster pushes the full censor word set to every connection.
type WordBroadcaster interface {
	BroadcastWords(words []string)
}

// CensorService keeps the active word set in memory, masks message
// content with it, and rebroadcasts the whole set on every change so
// consumers stay synchronized without polling. Reload doubles as the
// periodic resilience fallback.
type CensorService struct {
	repo repository.WordRepository
	hub  WordBroadcaster
	log  zerolog.Logger

	mu    sync.RWMutex
	words []string
}

func NewCensorService(wordRepo repository.WordRepository, hub WordBroadcaster, log zerolog.Logger) *CensorService {
	return &CensorService{
		repo: wordRepo,
		hub:  hub,
		log:  log.With().Str("component", "censor").Logger(),
	}
}

// Load refreshes the in-memory word set from the store without
// broadcasting. Call once at startup.
func (s *CensorService) Load(ctx context.Context) error {
	words, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.words = words
	s.mu.Unlock()
	return nil
}

// Reload refreshes the word set and rebroadcasts the snapshot. The sweep
// calls this on a slow timer so a consumer that missed an edit converges
// anyway.
func (s *CensorService) Reload(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return err
	}
	s.hub.BroadcastWords(s.Words())
	return nil
}

// Add stores a new censor word (lowercased) and rebroadcasts the set.
func (s *CensorService) Add(ctx context.Context, word, createdBy string) (*models.CensorWord, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil, errors.New("empty word")
	}
	if strings.IndexFunc(word, unicode.IsSpace) >= 0 {
		return nil, errors.New("censor entries must be single words")
	}

	w, err := s.repo.Add(ctx, word, createdBy)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("word %q: %w", word, models.ErrConflict)
		}
		return nil, err
	}
	s.log.Info().Str("word", word).Str("by", createdBy).Msg("censor word added")
	if err := s.Reload(ctx); err != nil {
		s.log.Warn().Err(err).Msg("word set reload failed after add")
	}
	return w, nil
}

// Remove deletes a censor word and rebroadcasts the set.
func (s *CensorService) Remove(ctx context.Context, word string) error {
	if err := s.repo.Remove(ctx, word); err != nil {
		return fmt.Errorf("word %q: %w", word, err)
	}
	s.log.Info().Str("word", word).Msg("censor word removed")
	if err := s.Reload(ctx); err != nil {
		s.log.Warn().Err(err).Msg("word set reload failed after remove")
	}
	return nil
}

// Words returns a copy of the active word set.
func (s *CensorService) Words() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.words...)
}

// MaskContent applies the active word set to text.
func (s *CensorService) MaskContent(text string) string {
	s.mu.RLock()
	words := s.words
	s.mu.RUnlock()
	return censor.Mask(text, words)
}

func (s *CensorService) fetch(ctx context.Context) ([]string, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(stored, func(w models.CensorWord, _ int) string { return w.Word }), nil
}
