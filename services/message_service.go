package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"chat-server/chat"
	"chat-server/config"
	"chat-server/metrics"
	"chat-server/models"
	"chat-server/repository"
)

// Broadcaster fans room-scoped events out to subscribed connections.
// Implemented by the websocket hub; declared here to avoid an import
// cycle.
type Broadcaster interface {
	PublishNewMessage(room string, msg models.Message)
	PublishDeleted(room, id string)
	PublishCleared(room string)
}

// MessageService owns every message mutation: it authorizes the caller,
// persists through the store, and publishes the matching event. Both the
// websocket path and the REST reconciliation path go through it, so the
// two paths cannot disagree on semantics.
type MessageService struct {
	msgs   repository.MessageRepository
	users  repository.UserRepository
	groups repository.GroupRepository
	censor *CensorService
	hub    Broadcaster
	config *config.Config
	log    zerolog.Logger

	// Serializes mutating store calls per room across both paths.
	rooms *keyedMutex
}

func NewMessageService(
	msgs repository.MessageRepository,
	users repository.UserRepository,
	groups repository.GroupRepository,
	censorSvc *CensorService,
	hub Broadcaster,
	cfg *config.Config,
	log zerolog.Logger,
) *MessageService {
	return &MessageService{
		msgs:   msgs,
		users:  users,
		groups: groups,
		censor: censorSvc,
		hub:    hub,
		config: cfg,
		log:    log.With().Str("component", "messages").Logger(),
		rooms:  newKeyedMutex(),
	}
}

// SendDirect persists a one-on-one message and publishes new_message to
// the room's subscribers.
func (s *MessageService) SendDirect(ctx context.Context, sender, to, content string) (*models.Message, error) {
	if err := s.validateContent(content); err != nil {
		return nil, err
	}
	room, err := chat.DirectRoom(sender, to)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.FindByUsername(ctx, to); err != nil {
		return nil, fmt.Errorf("recipient %q: %w", to, err)
	}
	return s.persistAndPublish(ctx, room, sender, content, "direct")
}

// SendGroup persists a group message. Only members may post.
func (s *MessageService) SendGroup(ctx context.Context, sender, groupID, content string) (*models.Message, error) {
	if err := s.validateContent(content); err != nil {
		return nil, err
	}
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", groupID, err)
	}
	if !g.HasMember(sender) {
		return nil, fmt.Errorf("not a member of %q: %w", g.Name, models.ErrForbidden)
	}
	return s.persistAndPublish(ctx, chat.GroupRoom(groupID), sender, content, "group")
}

func (s *MessageService) persistAndPublish(ctx context.Context, room, sender, content, kind string) (*models.Message, error) {
	mu := s.rooms.get(room)
	mu.Lock()
	defer mu.Unlock()

	msg := &models.Message{
		Room:      room,
		Sender:    sender,
		Content:   s.censor.MaskContent(content),
		CreatedAt: time.Now(),
	}
	saved, err := s.msgs.Save(ctx, msg)
	if err != nil {
		return nil, err
	}
	s.hub.PublishNewMessage(room, *saved)
	metrics.MessagesSentTotal.WithLabelValues(kind).Inc()
	s.log.Debug().Str("room", room).Str("sender", sender).Str("id", saved.ID).Msg("message sent")
	return saved, nil
}

// DirectHistory returns the authoritative oldest-first message list for a
// direct room, capped at the configured history limit. Consumers replace
// their local view with this result whenever it diverges.
func (s *MessageService) DirectHistory(ctx context.Context, requester, other string) (string, []models.Message, error) {
	room, err := chat.DirectRoom(requester, other)
	if err != nil {
		return "", nil, err
	}
	if _, err := s.users.FindByUsername(ctx, other); err != nil {
		return "", nil, fmt.Errorf("peer %q: %w", other, err)
	}
	msgs, err := s.msgs.ListByRoom(ctx, room, s.config.HistoryLimit)
	if err != nil {
		return "", nil, err
	}
	return room, msgs, nil
}

// GroupHistory returns the authoritative message list for a group room.
// Membership-gated.
func (s *MessageService) GroupHistory(ctx context.Context, requester, groupID string) (string, []models.Message, error) {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return "", nil, fmt.Errorf("group %q: %w", groupID, err)
	}
	if !g.HasMember(requester) {
		return "", nil, fmt.Errorf("not a member of %q: %w", g.Name, models.ErrForbidden)
	}
	room := chat.GroupRoom(groupID)
	msgs, err := s.msgs.ListByRoom(ctx, room, s.config.HistoryLimit)
	if err != nil {
		return "", nil, err
	}
	return room, msgs, nil
}

// Delete removes a single message. Only the original sender may delete;
// subscribers are told through message_deleted.
func (s *MessageService) Delete(ctx context.Context, requester, id string) error {
	msg, err := s.msgs.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("message %q: %w", id, err)
	}
	if err := s.authorizeRoom(ctx, msg.Room, requester); err != nil {
		return err
	}
	if msg.Sender != requester {
		return fmt.Errorf("only the sender may delete: %w", models.ErrForbidden)
	}

	mu := s.rooms.get(msg.Room)
	mu.Lock()
	defer mu.Unlock()

	if err := s.msgs.Delete(ctx, id); err != nil {
		return err
	}
	s.hub.PublishDeleted(msg.Room, id)
	metrics.MessagesDeletedTotal.WithLabelValues("delete").Inc()
	s.log.Info().Str("room", msg.Room).Str("id", id).Str("by", requester).Msg("message deleted")
	return nil
}

// ClearDirect wipes a direct room. Either participant may clear.
func (s *MessageService) ClearDirect(ctx context.Context, requester, other string) (string, error) {
	room, err := chat.DirectRoom(requester, other)
	if err != nil {
		return "", err
	}
	if _, err := s.users.FindByUsername(ctx, other); err != nil {
		return "", fmt.Errorf("peer %q: %w", other, err)
	}
	return room, s.clearRoom(ctx, room, requester)
}

// ClearGroup wipes a group room. Any member may clear.
func (s *MessageService) ClearGroup(ctx context.Context, requester, groupID string) (string, error) {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("group %q: %w", groupID, err)
	}
	if !g.HasMember(requester) {
		return "", fmt.Errorf("not a member of %q: %w", g.Name, models.ErrForbidden)
	}
	room := chat.GroupRoom(groupID)
	return room, s.clearRoom(ctx, room, requester)
}

func (s *MessageService) clearRoom(ctx context.Context, room, requester string) error {
	mu := s.rooms.get(room)
	mu.Lock()
	defer mu.Unlock()

	n, err := s.msgs.DeleteByRoom(ctx, room)
	if err != nil {
		return err
	}
	s.hub.PublishCleared(room)
	metrics.MessagesDeletedTotal.WithLabelValues("clear").Inc()
	s.log.Info().Str("room", room).Str("by", requester).Int("removed", n).Msg("room cleared")
	return nil
}

// authorizeRoom hides a message from anyone outside its room: outsiders
// get not-found rather than forbidden, so a leaked id reveals nothing.
func (s *MessageService) authorizeRoom(ctx context.Context, room, requester string) error {
	if groupID, ok := chat.ParseGroupRoom(room); ok {
		g, err := s.groups.FindByID(ctx, groupID)
		if err != nil {
			return fmt.Errorf("group %q: %w", groupID, err)
		}
		if !g.HasMember(requester) {
			return fmt.Errorf("message: %w", models.ErrNotFound)
		}
		return nil
	}
	if !chat.IsParticipant(room, requester) {
		return fmt.Errorf("message: %w", models.ErrNotFound)
	}
	return nil
}

func (s *MessageService) validateContent(content string) error {
	if content == "" {
		return errors.New("empty content")
	}
	if len(content) > s.config.MaxMessageLength {
		return errors.New("message too long (max " + strconv.Itoa(s.config.MaxMessageLength) + " characters)")
	}
	return nil
}
