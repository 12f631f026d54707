package ws

import (
	"encoding/json"

	"chat-server/models"
)

// Inbound request kinds. The set is closed: anything else is answered with
// an error event.
const (
	evtPing             = "ping"
	evtClaimPresence    = "claim_presence"
	evtLogout           = "logout"
	evtStartChat        = "start_chat"
	evtJoinGroup        = "join_group"
	evtSendMessage      = "send_message"
	evtSendGroupMessage = "send_group_message"
	evtDeleteMessage    = "delete_message"
	evtClearChat        = "clear_chat"
	evtClearGroupChat   = "clear_group_chat"
)

// inbound is the envelope every client request arrives in. Which fields
// are meaningful depends on Type.
type inbound struct {
	Type    string `json:"type"`
	With    string `json:"with,omitempty"`
	To      string `json:"to,omitempty"`
	GroupID string `json:"group_id,omitempty"`
	ID      string `json:"id,omitempty"`
	Content string `json:"content,omitempty"`
}

// Presence is one entry of the online-set snapshot.
type Presence struct {
	ConnectionID string `json:"connection_id"`
	Username     string `json:"username"`
}

func encode(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func eventPong() []byte {
	return encode(map[string]string{"type": "pong"})
}

// eventOnlineUsers is the full online-set snapshot, rebroadcast on every
// registry transition rather than as a delta, so a missed broadcast
// self-heals on the next one.
func eventOnlineUsers(users []Presence) []byte {
	return encode(map[string]any{"type": "online_users", "users": users})
}

func eventAllUsers(usernames []string) []byte {
	return encode(map[string]any{"type": "all_users", "users": usernames})
}

// eventForceLogout tells a connection it lost its session. The reason
// distinguishes a forced eviction from a voluntary disconnect.
func eventForceLogout(reason string) []byte {
	return encode(map[string]string{"type": "force_logout", "reason": reason})
}

func eventUserDeleted(username string) []byte {
	return encode(map[string]string{"type": "user_deleted", "username": username})
}

func eventChatJoined(room string) []byte {
	return encode(map[string]string{"type": "chat_joined", "room": room})
}

func eventChatHistory(room string, msgs []models.Message) []byte {
	return encode(map[string]any{"type": "chat_history", "room": room, "messages": msgs})
}

func eventNewMessage(room string, msg models.Message) []byte {
	return encode(map[string]any{"type": "new_message", "room": room, "message": msg})
}

func eventMessageDeleted(room, id string) []byte {
	return encode(map[string]string{"type": "message_deleted", "room": room, "id": id})
}

func eventChatCleared(room string) []byte {
	return encode(map[string]string{"type": "chat_cleared", "room": room})
}

func eventGroupsUpdated(groups []models.Group) []byte {
	return encode(map[string]any{"type": "groups_updated", "groups": groups})
}

func eventCensorWords(words []string) []byte {
	return encode(map[string]any{"type": "censor_words", "words": words})
}

func eventError(reason string) []byte {
	return encode(map[string]string{"type": "error", "reason": reason})
}

func eventAck(op string, ok bool, reason string) []byte {
	return encode(map[string]any{"type": "ack", "op": op, "ok": ok, "reason": reason})
}
