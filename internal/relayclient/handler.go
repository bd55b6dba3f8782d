package relayclient

import "sync"

// Handler routes frames from a Client onto typed channels.
type Handler struct {
	client *Client

	Joined     chan Message
	Full       chan Message
	Left       chan Message
	PeerJoined chan Message
	PeerLeft   chan Message
	Signal     chan Message
	Error      chan string

	// Other receives frames of any type the handler does not know.
	Other chan Message

	done chan struct{}
	once sync.Once
}

// NewHandler creates a handler for client. Call Start to begin routing.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:     client,
		Joined:     make(chan Message, 4),
		Full:       make(chan Message, 4),
		Left:       make(chan Message, 4),
		PeerJoined: make(chan Message, 8),
		PeerLeft:   make(chan Message, 8),
		Signal:     make(chan Message, 64),
		Error:      make(chan string, 4),
		Other:      make(chan Message, 8),
		done:       make(chan struct{}),
	}
}

// Start routes incoming frames until the client's connection ends or Close
// is called. It returns once routing has stopped.
func (h *Handler) Start() {
	defer h.Close()

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case TypeRoomJoined:
			h.emit(h.Joined, msg)
		case TypeRoomFull:
			h.emit(h.Full, msg)
		case TypeRoomLeft:
			h.emit(h.Left, msg)
		case TypeUserJoined:
			h.emit(h.PeerJoined, msg)
		case TypeUserLeft:
			h.emit(h.PeerLeft, msg)
		case TypeOffer, TypeAnswer, TypeCandidate:
			h.emit(h.Signal, msg)
		case TypeError:
			select {
			case h.Error <- msg.Message:
			case <-h.done:
				return
			}
		default:
			h.emit(h.Other, msg)
		}
	}
}

func (h *Handler) emit(ch chan Message, msg Message) {
	select {
	case ch <- msg:
	case <-h.done:
	}
}

// Done is closed when the handler stops routing.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Close stops routing. The typed channels are never closed; select on Done
// to notice shutdown.
func (h *Handler) Close() {
	h.once.Do(func() { close(h.done) })
}
