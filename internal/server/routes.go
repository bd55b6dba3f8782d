package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carelink/signal-relay/internal/signaling"
)

// NewUpgrader returns the websocket upgrader for /ws.
func NewUpgrader(origins *OriginPolicy) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  64 * 1024, // 64 KB
		WriteBufferSize: 64 * 1024, // 64 KB
		CheckOrigin:     origins.Check,
	}
}

// ServeWs returns an http.HandlerFunc that upgrades the request and hands the
// connection to hub.
func ServeWs(hub *signaling.Hub, upgrader *websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			slog.Warn("failed to upgrade connection", "addr", r.RemoteAddr, "err", err)
			return
		}

		if err := hub.Serve(conn, r.RemoteAddr); err != nil {
			slog.Info("rejected connection", "addr", r.RemoteAddr, "err", err)
		}
	}
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

// Stats is the /stats response body.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// StatsHandler reports live room and connection counts as JSON.
func StatsHandler(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, conns := hub.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Stats{Rooms: rooms, Connections: conns})
	}
}

// NewMux registers the relay routes.
func NewMux(hub *signaling.Hub, origins *OriginPolicy) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ServeWs(hub, NewUpgrader(origins)))
	mux.HandleFunc("GET /health", HealthHandler)
	mux.HandleFunc("GET /stats", StatsHandler(hub))
	return mux
}

// New creates the HTTP server. WriteTimeout stays zero: hijacked websocket
// connections manage their own deadlines.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
