package ws

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"chat-server/metrics"
	"chat-server/models"
)

// Eviction reasons carried in force_logout events.
const (
	ReasonSessionReplaced = "session_replaced"
	ReasonAccountDeleted  = "account_deleted"
)

// Hub owns every piece of connection state: the connection set, the
// identity claims, and the room subscriptions. All mutations run on the
// single Run goroutine, so a claim, an eviction, and a subscription change
// for the same identity can never interleave.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	commands   chan command
	broadcast  chan outbound

	// Loop-owned state. Touched only by Run.
	clients    map[*Client]bool
	byIdentity map[string]*Client
	rooms      map[string]map[*Client]bool

	log zerolog.Logger
}

type outbound struct {
	room string // empty means every connection
	data []byte
}

// command is the closed set of registry operations dispatched onto the
// hub loop.
type command interface{ isCommand() }

type claimCmd struct{ c *Client }
type releaseCmd struct{ c *Client }
type subscribeCmd struct {
	c    *Client
	room string
}
type unsubscribeCmd struct {
	c    *Client
	room string
}
type evictDeletedCmd struct {
	username string
	reply    chan bool
}
type boundIdentitiesCmd struct{ reply chan []string }

func (claimCmd) isCommand()           {}
func (releaseCmd) isCommand()         {}
func (subscribeCmd) isCommand()       {}
func (unsubscribeCmd) isCommand()     {}
func (evictDeletedCmd) isCommand()    {}
func (boundIdentitiesCmd) isCommand() {}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan command),
		broadcast:  make(chan outbound, 256),
		clients:    make(map[*Client]bool),
		byIdentity: make(map[string]*Client),
		rooms:      make(map[string]map[*Client]bool),
		log:        log.With().Str("component", "hub").Logger(),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			metrics.ConnectionsOpen.Inc()
			h.log.Debug().Str("conn", c.id).Str("user", c.username).Msg("connection registered")
		case c := <-h.unregister:
			if h.clients[c] {
				wasBound := h.removeClient(c)
				if wasBound {
					h.broadcastSnapshot()
				}
			}
		case cmd := <-h.commands:
			h.handleCommand(cmd)
		case out := <-h.broadcast:
			h.fanout(out)
		}
	}
}

func (h *Hub) handleCommand(cmd command) {
	switch c := cmd.(type) {
	case claimCmd:
		h.claim(c.c)
	case releaseCmd:
		if h.byIdentity[c.c.username] == c.c {
			delete(h.byIdentity, c.c.username)
			h.log.Info().Str("conn", c.c.id).Str("user", c.c.username).Msg("session released")
			h.broadcastSnapshot()
		}
	case subscribeCmd:
		if !h.clients[c.c] {
			return
		}
		if h.rooms[c.room] == nil {
			h.rooms[c.room] = make(map[*Client]bool)
		}
		h.rooms[c.room][c.c] = true
		h.log.Debug().Str("conn", c.c.id).Str("room", c.room).Msg("subscribed")
	case unsubscribeCmd:
		if clients, ok := h.rooms[c.room]; ok {
			delete(clients, c.c)
			if len(clients) == 0 {
				delete(h.rooms, c.room)
			}
		}
	case evictDeletedCmd:
		c.reply <- h.evictDeleted(c.username)
	case boundIdentitiesCmd:
		c.reply <- lo.Keys(h.byIdentity)
	}
}

// claim binds the connection to its identity. Any previous connection
// bound to the same identity is told why it is going away and then
// force-closed before the new claim commits, so at most one live
// connection per identity holds at every observable instant.
func (h *Hub) claim(c *Client) {
	if !h.clients[c] {
		return
	}
	prev := h.byIdentity[c.username]
	if prev == c {
		h.broadcastSnapshot()
		return
	}
	if prev != nil {
		h.trySend(prev, eventForceLogout(ReasonSessionReplaced))
		h.removeClient(prev)
		metrics.SessionsEvictedTotal.WithLabelValues(ReasonSessionReplaced).Inc()
		h.log.Info().Str("user", c.username).Str("evicted_conn", prev.id).Msg("session replaced")
	}
	h.byIdentity[c.username] = c
	h.log.Info().Str("conn", c.id).Str("user", c.username).Msg("presence claimed")
	h.broadcastSnapshot()
}

// evictDeleted handles an identity that vanished from the user store:
// everyone is told the account is gone, the bound connection (if any) is
// force-closed, and the online snapshot is rebroadcast.
func (h *Hub) evictDeleted(username string) bool {
	h.fanout(outbound{data: eventUserDeleted(username)})
	c := h.byIdentity[username]
	if c == nil {
		return false
	}
	h.trySend(c, eventForceLogout(ReasonAccountDeleted))
	h.removeClient(c)
	metrics.SessionsEvictedTotal.WithLabelValues(ReasonAccountDeleted).Inc()
	h.log.Info().Str("conn", c.id).Str("user", username).Msg("evicted deleted account")
	h.broadcastSnapshot()
	return true
}

// removeClient unbinds, unsubscribes, and closes a connection. The write
// pump flushes anything already queued (such as a force_logout notice)
// and then shuts the socket. Reports whether the connection held an
// identity claim.
func (h *Hub) removeClient(c *Client) bool {
	if !h.clients[c] {
		return false
	}
	delete(h.clients, c)
	metrics.ConnectionsOpen.Dec()

	wasBound := false
	if h.byIdentity[c.username] == c {
		delete(h.byIdentity, c.username)
		wasBound = true
	}
	for room, clients := range h.rooms {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.closed)
	return wasBound
}

// trySend queues data for one connection without blocking the loop. A
// client whose buffer is full is dropped; it will reconcile on reconnect.
// Returns false when the client was removed.
func (h *Hub) trySend(c *Client, data []byte) bool {
	if !h.clients[c] {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		h.log.Warn().Str("conn", c.id).Msg("send buffer full, dropping connection")
		wasBound := h.removeClient(c)
		if wasBound {
			h.broadcastSnapshot()
		}
		return false
	}
}

func (h *Hub) fanout(out outbound) {
	targets := h.clients
	if out.room != "" {
		targets = h.rooms[out.room]
	}
	// Collect first: trySend may remove slow clients from the map.
	for _, c := range lo.Keys(targets) {
		h.trySend(c, out.data)
	}
}

func (h *Hub) broadcastSnapshot() {
	snapshot := lo.MapToSlice(h.byIdentity, func(username string, c *Client) Presence {
		return Presence{ConnectionID: c.id, Username: username}
	})
	h.fanout(outbound{data: eventOnlineUsers(snapshot)})
}

// --- API for other goroutines. Everything below funnels into the loop. ---

// Claim requests the single-session binding for the client's identity.
func (h *Hub) Claim(c *Client) { h.commands <- claimCmd{c: c} }

// Release drops the client's identity claim (explicit logout). Idempotent.
func (h *Hub) Release(c *Client) { h.commands <- releaseCmd{c: c} }

// Subscribe adds the client to a room's fan-out set. A connection may
// subscribe before its identity claim completes.
func (h *Hub) Subscribe(c *Client, room string) { h.commands <- subscribeCmd{c: c, room: room} }

// Unsubscribe removes the client from a room's fan-out set.
func (h *Hub) Unsubscribe(c *Client, room string) { h.commands <- unsubscribeCmd{c: c, room: room} }

// BoundIdentities reports the identities currently holding a session.
func (h *Hub) BoundIdentities() []string {
	reply := make(chan []string, 1)
	h.commands <- boundIdentitiesCmd{reply: reply}
	return <-reply
}

// EvictDeleted force-closes the connection of an identity that no longer
// exists in the user store. Reports whether a connection was evicted.
func (h *Hub) EvictDeleted(username string) bool {
	reply := make(chan bool, 1)
	h.commands <- evictDeletedCmd{username: username, reply: reply}
	return <-reply
}

// PublishNewMessage fans a persisted message out to the room's
// subscribers. Events enter a single buffered channel, so subscribers in
// the same room observe messages in publish order.
func (h *Hub) PublishNewMessage(room string, msg models.Message) {
	h.broadcast <- outbound{room: room, data: eventNewMessage(room, msg)}
}

func (h *Hub) PublishDeleted(room, id string) {
	h.broadcast <- outbound{room: room, data: eventMessageDeleted(room, id)}
}

func (h *Hub) PublishCleared(room string) {
	h.broadcast <- outbound{room: room, data: eventChatCleared(room)}
}

// BroadcastUsers pushes the all-users directory snapshot to everyone.
func (h *Hub) BroadcastUsers(usernames []string) {
	h.broadcast <- outbound{data: eventAllUsers(usernames)}
}

// BroadcastGroups pushes the full group-list snapshot to everyone.
func (h *Hub) BroadcastGroups(groups []models.Group) {
	h.broadcast <- outbound{data: eventGroupsUpdated(groups)}
}

// BroadcastWords pushes the full censor word set to everyone.
func (h *Hub) BroadcastWords(words []string) {
	h.broadcast <- outbound{data: eventCensorWords(words)}
}
