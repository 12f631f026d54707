package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"

	"chat-server/config"
	"chat-server/models"
	"chat-server/repository"
	"chat-server/utils"
)

// UserBroadcaster pushes user-directory changes to every connection and
// evicts the live session of a deleted account.
type UserBroadcaster interface {
	BroadcastUsers(usernames []string)
	EvictDeleted(username string) bool
}

type AuthService struct {
	users  repository.UserRepository
	hub    UserBroadcaster
	config *config.Config
	log    zerolog.Logger
}

func NewAuthService(userRepo repository.UserRepository, hub UserBroadcaster, cfg *config.Config, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:  userRepo,
		hub:    hub,
		config: cfg,
		log:    log.With().Str("component", "auth").Logger(),
	}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < 6 || len(password) > 100 {
		return nil, errors.New("password must be between 6 and 100 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, username, string(hashed))
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("username taken: %w", models.ErrConflict)
		}
		return nil, err
	}
	s.broadcastDirectory(ctx)
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	if username == "" || password == "" {
		return "", nil, errors.New("username and password are required")
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
	}
	token, err := s.CreateToken(u.ID, u.Username)
	return token, u, err
}

// DeleteAccount removes a user from the store, force-closes any live
// session bound to the identity, and pushes the updated directory.
func (s *AuthService) DeleteAccount(ctx context.Context, username string) error {
	if err := s.users.Delete(ctx, username); err != nil {
		return fmt.Errorf("user %q: %w", username, err)
	}
	s.hub.EvictDeleted(username)
	s.log.Info().Str("user", username).Msg("account deleted")
	s.broadcastDirectory(ctx)
	return nil
}

func (s *AuthService) CreateToken(userID, username string) (string, error) {
	expiry := time.Duration(s.config.JWTExpiry) * time.Hour
	return utils.GenerateJWT(s.config.JWTSecret, userID, username, expiry)
}

func (s *AuthService) ParseToken(token string) (string, string, error) {
	return utils.ParseJWT(s.config.JWTSecret, token)
}

// ListUsernames returns every registered username, for the lobby
// directory.
func (s *AuthService) ListUsernames(ctx context.Context) ([]string, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u models.User, _ int) string { return u.Username }), nil
}

// broadcastDirectory pushes the full all-users snapshot after a directory
// change, so lobby clients converge without waiting for the sweep.
func (s *AuthService) broadcastDirectory(ctx context.Context) {
	names, err := s.ListUsernames(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("directory fetch failed, skipping broadcast")
		return
	}
	s.hub.BroadcastUsers(names)
}

// validateUsername restricts names to letters, digits, '_', '-' and '.'.
// The '|' separator in particular must never appear in a username, or two
// different direct rooms could share a key.
func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 20 {
		return errors.New("username must be between 3 and 20 characters")
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return errors.New("username may only contain letters, digits, '_', '-' and '.'")
		}
	}
	return nil
}
