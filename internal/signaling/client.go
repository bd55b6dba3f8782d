package signaling

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Outbound frames buffered per connection before sends start failing.
	sendQueueSize = 256
)

var (
	// ErrConnClosed is returned by Send once the connection is shutting down.
	ErrConnClosed = errors.New("connection closed")

	// ErrSendQueueFull is returned by Send when the peer is not draining
	// its queue fast enough.
	ErrSendQueueFull = errors.New("send queue full")
)

// Client is a single websocket connection as owned by the Hub.
type Client struct {
	id   string
	addr string
	hub  *Hub
	conn *websocket.Conn

	// limiter throttles inbound frames; nil disables throttling.
	limiter *rate.Limiter

	// send is drained by writePump, which is the only writer on conn.
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, addr string) *Client {
	c := &Client{
		id:   uuid.NewString(),
		addr: addr,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
	if hub.opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(hub.opts.RateLimit, hub.opts.RateBurst)
	}
	return c
}

// ID returns the opaque connection handle.
func (c *Client) ID() string { return c.id }

// Send queues data for delivery. It never blocks: a closed connection or a
// full queue is reported as an error and the frame is dropped.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// closeSend stops writePump after it has flushed what is queued.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump pumps frames from the websocket connection to the hub.
//
// The hub runs readPump in a per-connection goroutine, so frames from one
// connection are always handled one at a time.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			slog.Warn("rate limit exceeded, dropping frame", "conn", c.id, "addr", c.addr)
			if err := c.Send(Notice{Type: TypeError, Message: "Rate limit exceeded"}.encode()); err != nil {
				slog.Debug("throttle reply failed", "conn", c.id, "err", err)
			}
			continue
		}

		c.hub.dispatch(c, data)
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		slog.Warn("frame exceeded size limit", "conn", c.id, "limit", c.hub.opts.MaxMessageSize)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		slog.Warn("read error", "conn", c.id, "err", err)
	default:
		slog.Debug("connection closed", "conn", c.id, "err", err)
	}
}

// writePump pumps queued frames to the websocket connection and keeps it
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the queue.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("write error", "conn", c.id, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
