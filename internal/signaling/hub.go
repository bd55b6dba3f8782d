package signaling

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// ErrHubClosed is returned by Serve once Shutdown has started.
var ErrHubClosed = errors.New("hub is shutting down")

// HubOptions tunes per-connection limits.
type HubOptions struct {
	// MaxMessageSize is the largest inbound frame accepted, in bytes.
	MaxMessageSize int64

	// RateLimit is the sustained inbound frame rate per connection; zero
	// disables throttling. RateBurst is the bucket size.
	RateLimit rate.Limit
	RateBurst int
}

// DefaultMaxMessageSize is enough for WebRTC SDP messages.
const DefaultMaxMessageSize = 64 * 1024

// Hub is the connection gateway. It owns every live websocket connection and
// its session, and turns transport events into Router calls.
type Hub struct {
	registry *Registry
	router   *Router
	sessions *sessionTable
	opts     HubOptions

	mu      sync.Mutex
	clients map[*Client]struct{}
	closing bool
	wg      sync.WaitGroup
}

// NewHub creates a Hub that dispatches through router. registry must be the
// one router was built with.
func NewHub(registry *Registry, router *Router, opts HubOptions) *Hub {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	if opts.RateLimit > 0 && opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	return &Hub{
		registry: registry,
		router:   router,
		sessions: newSessionTable(),
		opts:     opts,
		clients:  make(map[*Client]struct{}),
	}
}

// Serve takes ownership of an upgraded connection and starts its pumps.
func (h *Hub) Serve(conn *websocket.Conn, remoteAddr string) error {
	c := newClient(h, conn, remoteAddr)

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		conn.Close()
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	h.sessions.open(c.id)
	slog.Info("client registered", "conn", c.id, "addr", remoteAddr)

	if err := c.Send(Notice{Type: TypeConnectionSuccess, Message: "Connected to signaling server"}.encode()); err != nil {
		slog.Warn("greeting failed", "conn", c.id, "err", err)
	}

	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
	return nil
}

func (h *Hub) dispatch(c *Client, data []byte) {
	s, ok := h.sessions.get(c.id)
	if !ok {
		return
	}
	h.router.Handle(c, s, data)
}

// unregister runs once per connection, on close or transport error.
func (h *Hub) unregister(c *Client) {
	if s, ok := h.sessions.close(c.id); ok {
		h.router.Disconnect(c, s)
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.closeSend()
	slog.Info("client unregistered", "conn", c.id, "addr", c.addr)
}

// Stats returns the number of live rooms and open connections.
func (h *Hub) Stats() (rooms, connections int) {
	rooms, _ = h.registry.Stats()
	return rooms, h.sessions.len()
}

// Shutdown stops accepting connections, closes every open one and waits for
// their goroutines until ctx is done.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	slog.Info("closing client connections", "count", len(clients))
	for _, c := range clients {
		c.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
