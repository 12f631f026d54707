package handlers

import (
	"encoding/json"
	"net/http"

	"chat-server/services"
)

// WordHandler edits the live censor word list. Every successful change
// is rebroadcast to all connections by the service.
type WordHandler struct {
	svc *services.CensorService
}

func NewWordHandler(s *services.CensorService) *WordHandler { return &WordHandler{svc: s} }

func (h *WordHandler) List(w http.ResponseWriter, r *http.Request) {
	respondWithSuccess(w, h.svc.Words())
}

type addWordRequest struct {
	Word string `json:"word" validate:"required,min=1,max=64"`
}

func (h *WordHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", "Bad request format", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondWithError(w, "Validation failed", err.Error(), http.StatusBadRequest)
		return
	}

	word, err := h.svc.Add(r.Context(), req.Word, r.Header.Get("X-Username"))
	if err != nil {
		respondServiceError(w, "Failed to add word", err)
		return
	}
	respondWithSuccess(w, word)
}

func (h *WordHandler) Remove(w http.ResponseWriter, r *http.Request) {
	word := r.PathValue("word")
	if err := h.svc.Remove(r.Context(), word); err != nil {
		respondServiceError(w, "Failed to remove word", err)
		return
	}
	respondWithSuccess(w, map[string]any{"removed": word})
}
