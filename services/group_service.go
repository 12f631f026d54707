package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"chat-server/models"
	"chat-server/repository"
)

// GroupBroadcaster pushes the full group-list snapshot to every
// connection after a membership change.
type GroupBroadcaster interface {
	BroadcastGroups(groups []models.Group)
}

type GroupService struct {
	groups repository.GroupRepository
	hub    GroupBroadcaster
	log    zerolog.Logger
}

func NewGroupService(groupRepo repository.GroupRepository, hub GroupBroadcaster, log zerolog.Logger) *GroupService {
	return &GroupService{
		groups: groupRepo,
		hub:    hub,
		log:    log.With().Str("component", "groups").Logger(),
	}
}

func (s *GroupService) Create(ctx context.Context, name, createdBy string) (*models.Group, error) {
	if len(name) < 2 {
		return nil, errors.New("group name too short (minimum 2 characters)")
	}
	if len(name) > 50 {
		return nil, errors.New("group name too long (maximum 50 characters)")
	}

	g, err := s.groups.Create(ctx, name, createdBy)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("group name %q taken: %w", name, models.ErrConflict)
		}
		return nil, err
	}
	s.log.Info().Str("group", g.ID).Str("name", name).Str("by", createdBy).Msg("group created")
	s.broadcastAll(ctx)
	return g, nil
}

// Join adds username to the group. Joining a group you already belong to
// is a no-op, never an error.
func (s *GroupService) Join(ctx context.Context, groupID, username string) (*models.Group, error) {
	g, err := s.groups.AddMember(ctx, groupID, username)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", groupID, err)
	}
	s.broadcastAll(ctx)
	return g, nil
}

func (s *GroupService) Get(ctx context.Context, groupID string) (*models.Group, error) {
	return s.groups.FindByID(ctx, groupID)
}

func (s *GroupService) List(ctx context.Context) ([]models.Group, error) {
	return s.groups.List(ctx)
}

func (s *GroupService) broadcastAll(ctx context.Context) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("group snapshot fetch failed, skipping broadcast")
		return
	}
	s.hub.BroadcastGroups(groups)
}
