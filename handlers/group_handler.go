package handlers

import (
	"encoding/json"
	"net/http"

	"chat-server/services"
)

type GroupHandler struct {
	svc    *services.GroupService
	msgSvc *services.MessageService
}

func NewGroupHandler(s *services.GroupService, msgSvc *services.MessageService) *GroupHandler {
	return &GroupHandler{svc: s, msgSvc: msgSvc}
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.List(r.Context())
	if err != nil {
		respondServiceError(w, "Failed to list groups", err)
		return
	}
	respondWithSuccess(w, groups)
}

type createGroupRequest struct {
	Name string `json:"name" validate:"required,min=2,max=50"`
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", "Bad request format", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondWithError(w, "Validation failed", err.Error(), http.StatusBadRequest)
		return
	}

	g, err := h.svc.Create(r.Context(), req.Name, r.Header.Get("X-Username"))
	if err != nil {
		respondServiceError(w, "Failed to create group", err)
		return
	}
	respondWithSuccess(w, g)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Failed to fetch group", err)
		return
	}
	respondWithSuccess(w, g)
}

// Join adds the caller to the group. Joining twice is a no-op success.
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Join(r.Context(), r.PathValue("id"), r.Header.Get("X-Username"))
	if err != nil {
		respondServiceError(w, "Failed to join group", err)
		return
	}
	respondWithSuccess(w, g)
}

// Messages is the reconciliation pull for a group room. Membership-gated.
func (h *GroupHandler) Messages(w http.ResponseWriter, r *http.Request) {
	room, msgs, err := h.msgSvc.GroupHistory(r.Context(), r.Header.Get("X-Username"), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Failed to fetch group messages", err)
		return
	}
	respondWithSuccess(w, map[string]any{
		"room":     room,
		"messages": msgs,
	})
}

// ClearMessages wipes a group room. Any member may clear.
func (h *GroupHandler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	room, err := h.msgSvc.ClearGroup(r.Context(), r.Header.Get("X-Username"), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, "Failed to clear group messages", err)
		return
	}
	respondWithSuccess(w, map[string]any{"room": room, "cleared": true})
}
