package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chat-server/services"
	"chat-server/ws"
)

// NewRouter wires every HTTP surface: auth, the websocket upgrade, the
// REST reconciliation pull, group and censor word management, health and
// metrics.
func NewRouter(
	hub *ws.Hub,
	authSvc *services.AuthService,
	msgSvc *services.MessageService,
	groupSvc *services.GroupService,
	censorSvc *services.CensorService,
	log zerolog.Logger,
) http.Handler {
	authH := NewAuthHandler(authSvc)
	chatH := NewChatHandler(hub, authSvc, msgSvc, groupSvc)
	groupH := NewGroupHandler(groupSvc, msgSvc)
	wordH := NewWordHandler(censorSvc)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/register", authH.Register)
	mux.HandleFunc("POST /api/login", authH.Login)
	mux.HandleFunc("GET /api/users", authH.WithAuth(authH.Users))
	mux.HandleFunc("DELETE /api/users/{username}", authH.WithAuth(authH.Delete))

	mux.HandleFunc("/ws", chatH.WS)
	mux.HandleFunc("GET /api/history/{other}", authH.WithAuth(chatH.History))
	mux.HandleFunc("DELETE /api/history/{other}", authH.WithAuth(chatH.ClearHistory))
	mux.HandleFunc("DELETE /api/messages/{id}", authH.WithAuth(chatH.DeleteMessage))

	mux.HandleFunc("GET /api/groups", authH.WithAuth(groupH.List))
	mux.HandleFunc("POST /api/groups", authH.WithAuth(groupH.Create))
	mux.HandleFunc("GET /api/groups/{id}", authH.WithAuth(groupH.Get))
	mux.HandleFunc("POST /api/groups/{id}/join", authH.WithAuth(groupH.Join))
	mux.HandleFunc("GET /api/groups/{id}/messages", authH.WithAuth(groupH.Messages))
	mux.HandleFunc("DELETE /api/groups/{id}/messages", authH.WithAuth(groupH.ClearMessages))

	mux.HandleFunc("GET /api/words", authH.WithAuth(wordH.List))
	mux.HandleFunc("POST /api/words", authH.WithAuth(wordH.Add))
	mux.HandleFunc("DELETE /api/words/{word}", authH.WithAuth(wordH.Remove))

	return withCORS(loggingMiddleware(log, mux))
}

func loggingMiddleware(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Sec-WebSocket-Protocol, Sec-WebSocket-Extensions, Sec-WebSocket-Key, Sec-WebSocket-Version, Upgrade, Connection")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
