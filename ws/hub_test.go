package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-server/logger"
	"chat-server/models"
)

func newTestHub() *Hub {
	h := NewHub(logger.Get())
	go h.Run()
	return h
}

// newTestClient builds a client without a real socket; hub tests read
// events straight off the send buffer.
func newTestClient(h *Hub, username string) *Client {
	c := &Client{
		hub:      h,
		send:     make(chan []byte, 64),
		closed:   make(chan struct{}),
		id:       uuid.NewString(),
		username: username,
	}
	h.register <- c
	return c
}

// barrier waits until the hub loop has processed everything queued before
// it, using a reply-carrying command.
func barrier(h *Hub) {
	h.BoundIdentities()
}

// settle waits for queued broadcasts to drain and the in-flight fan-out
// to finish before a test inspects client buffers.
func settle(t *testing.T, h *Hub) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for len(h.broadcast) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("broadcast queue never drained")
		}
		time.Sleep(time.Millisecond)
	}
	barrier(h)
}

func drainEvents(c *Client) []map[string]any {
	var events []map[string]any
	for {
		select {
		case b := <-c.send:
			var m map[string]any
			if err := json.Unmarshal(b, &m); err == nil {
				events = append(events, m)
			}
		default:
			return events
		}
	}
}

func eventsOfType(events []map[string]any, typ string) []map[string]any {
	var out []map[string]any
	for _, e := range events {
		if e["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

func isClosed(c *Client) bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func TestClaimBroadcastsOnlineSnapshot(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")

	h.Claim(alice)
	barrier(h)

	for _, c := range []*Client{alice, bob} {
		snaps := eventsOfType(drainEvents(c), "online_users")
		require.NotEmpty(t, snaps)
		users := snaps[len(snaps)-1]["users"].([]any)
		require.Len(t, users, 1)
		entry := users[0].(map[string]any)
		assert.Equal(t, "alice", entry["username"])
		assert.Equal(t, alice.id, entry["connection_id"])
	}
}

func TestClaimEvictsPreviousSession(t *testing.T) {
	h := newTestHub()
	c1 := newTestClient(h, "alice")
	c2 := newTestClient(h, "alice")
	watcher := newTestClient(h, "bob")

	h.Claim(c1)
	barrier(h)
	drainEvents(c1)
	drainEvents(watcher)

	h.Claim(c2)
	barrier(h)

	// The evicted connection gets exactly one force_logout, with a reason
	// distinguishing it from a voluntary disconnect.
	evictions := eventsOfType(drainEvents(c1), "force_logout")
	require.Len(t, evictions, 1)
	assert.Equal(t, ReasonSessionReplaced, evictions[0]["reason"])
	assert.True(t, isClosed(c1))

	// Every subsequent snapshot shows the new connection only.
	snaps := eventsOfType(drainEvents(watcher), "online_users")
	require.NotEmpty(t, snaps)
	users := snaps[len(snaps)-1]["users"].([]any)
	require.Len(t, users, 1)
	entry := users[0].(map[string]any)
	assert.Equal(t, c2.id, entry["connection_id"])

	assert.Equal(t, []string{"alice"}, h.BoundIdentities())
}

func TestClaimSameConnectionIsIdempotent(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, "alice")

	h.Claim(c)
	h.Claim(c)
	barrier(h)

	assert.False(t, isClosed(c))
	assert.Equal(t, []string{"alice"}, h.BoundIdentities())
}

func TestReleaseIsIdempotent(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, "alice")

	h.Claim(c)
	h.Release(c)
	h.Release(c)
	barrier(h)

	assert.Empty(t, h.BoundIdentities())
	assert.False(t, isClosed(c))
}

func TestDisconnectUnbindsAndExcludesFromSnapshot(t *testing.T) {
	h := newTestHub()
	alice := newTestClient(h, "alice")
	watcher := newTestClient(h, "bob")

	h.Claim(alice)
	barrier(h)
	drainEvents(watcher)

	h.unregister <- alice
	barrier(h)

	assert.Empty(t, h.BoundIdentities())
	snaps := eventsOfType(drainEvents(watcher), "online_users")
	require.NotEmpty(t, snaps)
	assert.Empty(t, snaps[len(snaps)-1]["users"])
}

func TestPublishOrderPerRoom(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "alice")
	b := newTestClient(h, "bob")
	room := "alice|bob"

	h.Subscribe(a, room)
	h.Subscribe(b, room)
	barrier(h)

	m1 := models.Message{ID: "m1", Room: room, Sender: "alice", Content: "first"}
	m2 := models.Message{ID: "m2", Room: room, Sender: "alice", Content: "second"}
	h.PublishNewMessage(room, m1)
	h.PublishNewMessage(room, m2)
	settle(t, h)

	for _, c := range []*Client{a, b} {
		msgs := eventsOfType(drainEvents(c), "new_message")
		require.Len(t, msgs, 2)
		first := msgs[0]["message"].(map[string]any)
		second := msgs[1]["message"].(map[string]any)
		assert.Equal(t, "m1", first["id"])
		assert.Equal(t, "m2", second["id"])
	}
}

func TestPublishScopedToRoom(t *testing.T) {
	h := newTestHub()
	member := newTestClient(h, "alice")
	outsider := newTestClient(h, "carol")

	h.Subscribe(member, "alice|bob")
	barrier(h)

	h.PublishNewMessage("alice|bob", models.Message{ID: "m1", Room: "alice|bob"})
	settle(t, h)

	assert.NotEmpty(t, eventsOfType(drainEvents(member), "new_message"))
	assert.Empty(t, eventsOfType(drainEvents(outsider), "new_message"))
}

func TestSubscribeBeforeClaim(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, "alice")

	// Subscription works without a presence claim.
	h.Subscribe(c, "alice|bob")
	barrier(h)

	h.PublishDeleted("alice|bob", "m9")
	h.PublishCleared("alice|bob")
	settle(t, h)

	events := drainEvents(c)
	require.Len(t, eventsOfType(events, "message_deleted"), 1)
	require.Len(t, eventsOfType(events, "chat_cleared"), 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, "alice")

	h.Subscribe(c, "alice|bob")
	h.Unsubscribe(c, "alice|bob")
	barrier(h)

	h.PublishNewMessage("alice|bob", models.Message{ID: "m1"})
	settle(t, h)

	assert.Empty(t, eventsOfType(drainEvents(c), "new_message"))
}

func TestEvictDeletedAccount(t *testing.T) {
	h := newTestHub()
	eve := newTestClient(h, "eve")
	watcher := newTestClient(h, "bob")

	h.Claim(eve)
	barrier(h)
	drainEvents(eve)
	drainEvents(watcher)

	assert.True(t, h.EvictDeleted("eve"))

	events := drainEvents(eve)
	require.Len(t, eventsOfType(events, "user_deleted"), 1)
	evictions := eventsOfType(events, "force_logout")
	require.Len(t, evictions, 1)
	assert.Equal(t, ReasonAccountDeleted, evictions[0]["reason"])
	assert.True(t, isClosed(eve))

	watched := drainEvents(watcher)
	require.Len(t, eventsOfType(watched, "user_deleted"), 1)
	snaps := eventsOfType(watched, "online_users")
	require.NotEmpty(t, snaps)
	assert.Empty(t, snaps[len(snaps)-1]["users"])

	// No connection bound any more: nothing to evict.
	assert.False(t, h.EvictDeleted("eve"))
}

func TestBroadcastSnapshots(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, "alice")
	barrier(h)

	h.BroadcastUsers([]string{"alice", "bob"})
	h.BroadcastGroups([]models.Group{{ID: "g1", Name: "devs"}})
	h.BroadcastWords([]string{"badword"})
	settle(t, h)

	events := drainEvents(c)
	assert.NotEmpty(t, eventsOfType(events, "all_users"))
	assert.NotEmpty(t, eventsOfType(events, "groups_updated"))
	assert.NotEmpty(t, eventsOfType(events, "censor_words"))
}
