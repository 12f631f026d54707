package handlers

import (
	"net/http"

	"chat-server/services"
	"chat-server/ws"
)

// ChatHandler owns the websocket upgrade and the REST reconciliation pull
// for direct rooms. The pull endpoints go through the same MessageService
// as the push path, so both surfaces share one set of semantics.
type ChatHandler struct {
	hub      *ws.Hub
	authSvc  *services.AuthService
	msgSvc   *services.MessageService
	groupSvc *services.GroupService
}

func NewChatHandler(hub *ws.Hub, authSvc *services.AuthService, msgSvc *services.MessageService, groupSvc *services.GroupService) *ChatHandler {
	return &ChatHandler{hub: hub, authSvc: authSvc, msgSvc: msgSvc, groupSvc: groupSvc}
}

// WS upgrades /ws?token=... into a live connection. The token is verified
// here; the connection carries the verified identity for its lifetime.
func (h *ChatHandler) WS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, "Unauthorized", "token query parameter is required", http.StatusUnauthorized)
		return
	}
	_, username, err := h.authSvc.ParseToken(token)
	if err != nil {
		respondWithError(w, "Unauthorized", "Invalid token", http.StatusUnauthorized)
		return
	}
	h.hub.ServeWS(w, r, username, h.msgSvc, h.groupSvc)
}

// History is the authoritative fetch for a direct room: oldest first,
// capped. Consumers replace their local view with this result.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	requester := r.Header.Get("X-Username")
	other := r.PathValue("other")

	room, msgs, err := h.msgSvc.DirectHistory(r.Context(), requester, other)
	if err != nil {
		respondServiceError(w, "Failed to fetch history", err)
		return
	}
	respondWithSuccess(w, map[string]any{
		"room":     room,
		"messages": msgs,
	})
}

// DeleteMessage removes one message (direct or group). Sender-only; the
// room's subscribers learn about it through message_deleted.
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	requester := r.Header.Get("X-Username")
	id := r.PathValue("id")

	if err := h.msgSvc.Delete(r.Context(), requester, id); err != nil {
		respondServiceError(w, "Failed to delete message", err)
		return
	}
	respondWithSuccess(w, map[string]any{"deleted": id})
}

// ClearHistory wipes a direct room. Either participant may clear.
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	requester := r.Header.Get("X-Username")
	other := r.PathValue("other")

	room, err := h.msgSvc.ClearDirect(r.Context(), requester, other)
	if err != nil {
		respondServiceError(w, "Failed to clear history", err)
		return
	}
	respondWithSuccess(w, map[string]any{"room": room, "cleared": true})
}
