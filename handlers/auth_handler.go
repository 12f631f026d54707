package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"chat-server/services"
)

var validate = validator.New()

type AuthHandler struct {
	svc *services.AuthService
}

func NewAuthHandler(s *services.AuthService) *AuthHandler { return &AuthHandler{svc: s} }

// WithAuth verifies the bearer token and stashes the verified username in
// the request headers for downstream handlers.
func (h *AuthHandler) WithAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			respondWithError(w, "Unauthorized", "Missing Authorization header (token only)", http.StatusUnauthorized)
			return
		}
		_, username, err := h.svc.ParseToken(token)
		if err != nil {
			respondWithError(w, "Unauthorized", "Invalid token", http.StatusUnauthorized)
			return
		}
		r.Header.Set("X-Username", username)
		next(w, r)
	}
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", "Bad request format", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondWithError(w, "Validation failed", err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.svc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, "Registration failed", err)
		return
	}

	token, err := h.svc.CreateToken(user.ID, user.Username)
	if err != nil {
		respondWithError(w, "Token creation failed", "Could not create authentication token", http.StatusInternalServerError)
		return
	}

	respondWithSuccess(w, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", "Bad request format", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		respondWithError(w, "Missing fields", "Username and password are required", http.StatusBadRequest)
		return
	}

	token, user, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, "Authentication failed", err)
		return
	}

	respondWithSuccess(w, map[string]any{
		"token": token,
		"user":  user,
	})
}

// Users returns the full user directory, the same list the all_users
// snapshot carries.
func (h *AuthHandler) Users(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.ListUsernames(r.Context())
	if err != nil {
		respondServiceError(w, "Failed to list users", err)
		return
	}
	respondWithSuccess(w, names)
}

// Delete removes an account. Any live session bound to it is force-closed
// and every connection learns of the change through user_deleted and the
// directory snapshot.
func (h *AuthHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if err := h.svc.DeleteAccount(r.Context(), username); err != nil {
		respondServiceError(w, "Failed to delete user", err)
		return
	}
	respondWithSuccess(w, map[string]any{"deleted": username})
}
