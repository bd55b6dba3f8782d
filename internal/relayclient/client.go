// Package relayclient is a Go client for the signaling relay.
package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("relay connection closed")

	// ErrUnexpectedGreeting means the server did not open with
	// connection-success.
	ErrUnexpectedGreeting = errors.New("unexpected greeting from relay")
)

// Client is one websocket connection to the relay.
type Client struct {
	conn     *websocket.Conn
	incoming chan Message
	outgoing chan []byte
	done     chan struct{}
	once     sync.Once
}

// Dial connects to the relay at url and waits for its greeting. Hostnames
// are resolved with Lookup.
func Dial(ctx context.Context, url string, header http.Header) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ip, err := Lookup(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("dns lookup failed: %w", err)
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
		},
	}

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	conn.SetReadDeadline(time.Now().Add(writeWait))
	greeting, err := readMessage(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read greeting: %w", err)
	}
	if greeting.Type != TypeConnectionSuccess {
		conn.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedGreeting, greeting.Type)
	}

	c := &Client{
		conn:     conn,
		incoming: make(chan Message, 32),
		outgoing: make(chan []byte, 32),
		done:     make(chan struct{}),
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()
	return c, nil
}

func readMessage(conn *websocket.Conn) (Message, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	msg.Raw = data
	return msg, nil
}

// readPump reads frames until the connection fails. Frames that are not
// JSON objects are skipped.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		close(c.incoming)
	}()

	for {
		msg, err := readMessage(c.conn)
		if err != nil {
			var syntax *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntax) || errors.As(err, &typeErr) {
				slog.Debug("skipping undecodable frame", "err", err)
				continue
			}
			return
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes queued frames and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues msg for the relay.
func (c *Client) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

// SendRaw queues an already encoded frame.
func (c *Client) SendRaw(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.outgoing <- data:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Join asks the relay to place this connection in roomID. userID may be empty.
func (c *Client) Join(roomID, userID string) error {
	return c.Send(Message{Type: TypeJoinRoom, RoomID: roomID, UserID: userID})
}

// Leave asks the relay to take this connection out of its room.
func (c *Client) Leave() error {
	return c.Send(Message{Type: TypeLeaveRoom})
}

// Incoming returns decoded frames. It is closed when the connection ends.
func (c *Client) Incoming() <-chan Message {
	return c.incoming
}

// Done is closed once the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and tears the connection down. It is safe to
// call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}
