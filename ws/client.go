package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-server/models"
	"chat-server/services"
)

const (
	readDeadline  = 300 * time.Second
	writeDeadline = 30 * time.Second
	pingInterval  = 240 * time.Second
	sendBuffer    = 256
)

// Client is one live transport link. The bound identity comes from the
// verified token at upgrade time; presence is claimed separately through
// the hub.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	closed   chan struct{} // closed by the hub when the connection is removed
	id       string
	username string

	msgSvc   *services.MessageService
	groupSvc *services.GroupService
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and starts the client's pumps. The caller
// has already verified the token; username is the verified identity.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, username string, msgSvc *services.MessageService, groupSvc *services.GroupService) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("user", username).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		closed:   make(chan struct{}),
		id:       uuid.NewString(),
		username: username,
		msgSvc:   msgSvc,
		groupSvc: groupSvc,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var ev inbound
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.enqueue(eventError("malformed event"))
			continue
		}
		c.dispatch(ev)
	}
}

// dispatch routes one inbound event. The switch is the complete set of
// request kinds a connection can issue.
func (c *Client) dispatch(ev inbound) {
	ctx := context.Background()

	switch ev.Type {
	case evtPing:
		c.enqueue(eventPong())

	case evtClaimPresence:
		c.hub.Claim(c)

	case evtLogout:
		c.hub.Release(c)

	case evtStartChat:
		room, history, err := c.msgSvc.DirectHistory(ctx, c.username, ev.With)
		if err != nil {
			c.enqueue(eventError(reasonFor(err)))
			return
		}
		c.hub.Subscribe(c, room)
		c.enqueue(eventChatJoined(room))
		c.enqueue(eventChatHistory(room, history))

	case evtJoinGroup:
		if _, err := c.groupSvc.Join(ctx, ev.GroupID, c.username); err != nil {
			c.enqueue(eventError(reasonFor(err)))
			return
		}
		room, history, err := c.msgSvc.GroupHistory(ctx, c.username, ev.GroupID)
		if err != nil {
			c.enqueue(eventError(reasonFor(err)))
			return
		}
		c.hub.Subscribe(c, room)
		c.enqueue(eventChatJoined(room))
		c.enqueue(eventChatHistory(room, history))

	case evtSendMessage:
		_, err := c.msgSvc.SendDirect(ctx, c.username, ev.To, ev.Content)
		c.ack(ev.Type, err)

	case evtSendGroupMessage:
		_, err := c.msgSvc.SendGroup(ctx, c.username, ev.GroupID, ev.Content)
		c.ack(ev.Type, err)

	case evtDeleteMessage:
		err := c.msgSvc.Delete(ctx, c.username, ev.ID)
		c.ack(ev.Type, err)

	case evtClearChat:
		_, err := c.msgSvc.ClearDirect(ctx, c.username, ev.With)
		c.ack(ev.Type, err)

	case evtClearGroupChat:
		_, err := c.msgSvc.ClearGroup(ctx, c.username, ev.GroupID)
		c.ack(ev.Type, err)

	default:
		c.enqueue(eventError("unknown event type"))
	}
}

// ack reports the outcome of a mutation back to the requester. Success is
// also observable through the room broadcast, but the caller always gets
// an explicit answer.
func (c *Client) ack(op string, err error) {
	if err != nil {
		c.enqueue(eventAck(op, false, reasonFor(err)))
		return
	}
	c.enqueue(eventAck(op, true, ""))
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	case errors.Is(err, models.ErrSelfChat):
		return "invalid_participants"
	case errors.Is(err, models.ErrConflict):
		return "already_exists"
	default:
		return "server_error"
	}
}

// enqueue hands data to the write pump, dropping it when the buffer is
// full or the connection is already being torn down. Delivery is
// at-most-once; a missed event is repaired by the reconciliation pull.
func (c *Client) enqueue(data []byte) {
	select {
	case <-c.closed:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			// Flush anything still queued (such as a force_logout notice)
			// before shutting the socket.
			for {
				select {
				case msg := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
					if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		}
	}
}
