// Package sweep runs the periodic reconciliation pass. The push path is
// best-effort; the sweep is what repairs state it missed: sessions held
// by identities that were deleted from the store out-of-band, and censor
// word edits a consumer never saw.
package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"chat-server/metrics"
	"chat-server/models"
	"chat-server/repository"
)

// Registry is the slice of the hub the sweeper needs. Evictions go
// through the hub's dispatch loop, so a sweep-triggered eviction can
// never interleave with a live claim for the same identity.
type Registry interface {
	BoundIdentities() []string
	EvictDeleted(username string) bool
	BroadcastUsers(usernames []string)
}

// WordReloader refreshes and rebroadcasts the censor word set.
type WordReloader interface {
	Reload(ctx context.Context) error
}

type Sweeper struct {
	registry     Registry
	users        repository.UserRepository
	words        WordReloader
	interval     time.Duration
	wordInterval time.Duration
	log          zerolog.Logger
}

func New(registry Registry, users repository.UserRepository, words WordReloader, interval, wordInterval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		registry:     registry,
		users:        users,
		words:        words,
		interval:     interval,
		wordInterval: wordInterval,
		log:          log.With().Str("component", "sweep").Logger(),
	}
}

// Run ticks until ctx is cancelled. Errors are logged and retried on the
// next tick without backoff; every sweep effect is idempotent.
func (s *Sweeper) Run(ctx context.Context) {
	sessionTicker := time.NewTicker(s.interval)
	wordTicker := time.NewTicker(s.wordInterval)
	defer sessionTicker.Stop()
	defer wordTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sessionTicker.C:
			if err := s.SweepSessions(ctx); err != nil {
				metrics.SweepRunsTotal.WithLabelValues("error").Inc()
				s.log.Warn().Err(err).Msg("session sweep failed")
				continue
			}
			metrics.SweepRunsTotal.WithLabelValues("ok").Inc()
		case <-wordTicker.C:
			if err := s.words.Reload(ctx); err != nil {
				s.log.Warn().Err(err).Msg("word refresh failed")
			}
		}
	}
}

// SweepSessions evicts every live session whose identity no longer exists
// in the user store, then pushes a fresh user directory so clients drop
// the deleted account from their lobby.
func (s *Sweeper) SweepSessions(ctx context.Context) error {
	evicted := false
	for _, username := range s.registry.BoundIdentities() {
		_, err := s.users.FindByUsername(ctx, username)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if s.registry.EvictDeleted(username) {
			evicted = true
			s.log.Info().Str("user", username).Msg("evicted session for deleted account")
		}
	}
	if !evicted {
		return nil
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	s.registry.BroadcastUsers(names)
	return nil
}
