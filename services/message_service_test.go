package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-server/chat"
	"chat-server/config"
	"chat-server/logger"
	"chat-server/models"
	"chat-server/repository"
)

// stubHub records published events in order.
type stubHub struct {
	events []string
}

func (h *stubHub) PublishNewMessage(room string, msg models.Message) {
	h.events = append(h.events, fmt.Sprintf("new:%s:%s", room, msg.ID))
}
func (h *stubHub) PublishDeleted(room, id string) {
	h.events = append(h.events, fmt.Sprintf("deleted:%s:%s", room, id))
}
func (h *stubHub) PublishCleared(room string) {
	h.events = append(h.events, fmt.Sprintf("cleared:%s", room))
}
func (h *stubHub) BroadcastGroups(groups []models.Group) {
	h.events = append(h.events, fmt.Sprintf("groups:%d", len(groups)))
}
func (h *stubHub) BroadcastWords(words []string) {
	h.events = append(h.events, fmt.Sprintf("words:%d", len(words)))
}
func (h *stubHub) BroadcastUsers(usernames []string) {
	h.events = append(h.events, fmt.Sprintf("users:%d", len(usernames)))
}
func (h *stubHub) EvictDeleted(username string) bool {
	h.events = append(h.events, "evict:"+username)
	return true
}

type fixture struct {
	svc    *MessageService
	groups *GroupService
	censor *CensorService
	msgs   *repository.InMemoryMessageRepo
	users  *repository.InMemoryUserRepo
	grps   *repository.InMemoryGroupRepo
	hub    *stubHub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.Get()
	cfg := &config.Config{MaxMessageLength: 1000, HistoryLimit: 200}

	users := repository.NewInMemoryUserRepo()
	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := users.Create(ctx, name, "hash")
		require.NoError(t, err)
	}

	msgs := repository.NewInMemoryMessageRepo()
	grps := repository.NewInMemoryGroupRepo()
	words := repository.NewInMemoryWordRepo()
	hub := &stubHub{}

	censorSvc := NewCensorService(words, hub, log)
	require.NoError(t, censorSvc.Load(ctx))

	return &fixture{
		svc:    NewMessageService(msgs, users, grps, censorSvc, hub, cfg, log),
		groups: NewGroupService(grps, hub, log),
		censor: censorSvc,
		msgs:   msgs,
		users:  users,
		grps:   grps,
		hub:    hub,
	}
}

func TestSendDirectPersistsAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.svc.SendDirect(ctx, "alice", "bob", "hello bob")
	require.NoError(t, err)
	assert.Equal(t, "alice|bob", msg.Room)
	assert.Equal(t, "alice", msg.Sender)

	stored, err := f.msgs.ListByRoom(ctx, "alice|bob", 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	require.Len(t, f.hub.events, 1)
	assert.Equal(t, "new:alice|bob:"+msg.ID, f.hub.events[0])
}

func TestSendDirectUnknownRecipient(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SendDirect(context.Background(), "alice", "mallory", "hi")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSendDirectToSelf(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SendDirect(context.Background(), "alice", "alice", "hi me")
	assert.ErrorIs(t, err, models.ErrSelfChat)
}

func TestSendDirectEmptyContent(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SendDirect(context.Background(), "alice", "bob", "")
	assert.Error(t, err)
}

func TestSendMasksCensoredWords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.censor.Add(ctx, "badword", "alice")
	require.NoError(t, err)

	msg, err := f.svc.SendDirect(ctx, "alice", "bob", "this contains BADWORD here")
	require.NoError(t, err)
	assert.NotContains(t, msg.Content, "BADWORD")
	assert.Contains(t, msg.Content, "*")

	// The persisted copy is masked too, so push and pull views agree.
	_, history, err := f.svc.DirectHistory(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, msg.Content, history[0].Content)
}

func TestPublishOrderMatchesSendOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m1, err := f.svc.SendDirect(ctx, "alice", "bob", "first")
	require.NoError(t, err)
	m2, err := f.svc.SendDirect(ctx, "alice", "bob", "second")
	require.NoError(t, err)

	require.Len(t, f.hub.events, 2)
	assert.Equal(t, "new:alice|bob:"+m1.ID, f.hub.events[0])
	assert.Equal(t, "new:alice|bob:"+m2.ID, f.hub.events[1])
}

func TestDeleteOnlyBySender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	msg, err := f.svc.SendDirect(ctx, "alice", "bob", "delete me")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, "bob", msg.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, f.svc.Delete(ctx, "alice", msg.ID))
	assert.Equal(t, "deleted:alice|bob:"+msg.ID, f.hub.events[len(f.hub.events)-1])

	err = f.svc.Delete(ctx, "alice", msg.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteHiddenFromOutsiders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	direct, err := f.svc.SendDirect(ctx, "alice", "bob", "private")
	require.NoError(t, err)
	err = f.svc.Delete(ctx, "carol", direct.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	g, err := f.groups.Create(ctx, "devs", "alice")
	require.NoError(t, err)
	grouped, err := f.svc.SendGroup(ctx, "alice", g.ID, "members only")
	require.NoError(t, err)
	err = f.svc.Delete(ctx, "carol", grouped.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Both messages survive the refused attempts.
	require.NoError(t, f.svc.Delete(ctx, "alice", direct.ID))
	require.NoError(t, f.svc.Delete(ctx, "alice", grouped.ID))
}

func TestClearDirectByEitherParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SendDirect(ctx, "alice", "bob", "one")
	require.NoError(t, err)
	_, err = f.svc.SendDirect(ctx, "bob", "alice", "two")
	require.NoError(t, err)

	room, err := f.svc.ClearDirect(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice|bob", room)
	assert.Equal(t, "cleared:alice|bob", f.hub.events[len(f.hub.events)-1])

	_, history, err := f.svc.DirectHistory(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGroupSendRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, err := f.groups.Create(ctx, "devs", "alice")
	require.NoError(t, err)

	_, err = f.svc.SendGroup(ctx, "bob", g.ID, "let me in")
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.groups.Join(ctx, g.ID, "bob")
	require.NoError(t, err)

	msg, err := f.svc.SendGroup(ctx, "bob", g.ID, "hello group")
	require.NoError(t, err)
	assert.Equal(t, chat.GroupRoom(g.ID), msg.Room)
}

func TestGroupHistoryMembershipGated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, err := f.groups.Create(ctx, "devs", "alice")
	require.NoError(t, err)

	_, _, err = f.svc.GroupHistory(ctx, "bob", g.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, _, err = f.svc.GroupHistory(ctx, "alice", g.ID)
	assert.NoError(t, err)
}

func TestHistoryConvergesAfterMissedDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var sent []*models.Message
	for i := 0; i < 5; i++ {
		m, err := f.svc.SendDirect(ctx, "alice", "bob", fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
		sent = append(sent, m)
	}

	// Deletions applied directly against the store, as if the push events
	// were missed.
	require.NoError(t, f.msgs.Delete(ctx, sent[1].ID))
	require.NoError(t, f.msgs.Delete(ctx, sent[3].ID))

	_, history, err := f.svc.DirectHistory(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, sent[0].ID, history[0].ID)
	assert.Equal(t, sent[2].ID, history[1].ID)
	assert.Equal(t, sent[4].ID, history[2].ID)

	// Re-fetching an unchanged room yields an identical result.
	_, again, err := f.svc.DirectHistory(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, history, again)
}

func TestHistoryHonoursCap(t *testing.T) {
	f := newFixture(t)
	f.svc.config.HistoryLimit = 3
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := f.svc.SendDirect(ctx, "alice", "bob", fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	_, history, err := f.svc.DirectHistory(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Len(t, history, 3)
}
