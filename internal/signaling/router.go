package signaling

import (
	"log/slog"
)

// Router is the signaling protocol state machine. It interprets each frame
// against the sender's session, updates the registry and decides who receives
// what. Router holds no per-connection state of its own.
type Router struct {
	registry *Registry
}

// NewRouter creates a Router backed by registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Handle processes one inbound frame from sender. Frames from the same
// connection must not be handled concurrently.
func (rt *Router) Handle(sender Conn, s *Session, data []byte) {
	env, err := decodeEnvelope(data)
	if err != nil {
		// No reply for malformed input; the connection stays open.
		slog.Warn("dropping malformed frame", "conn", sender.ID(), "err", err)
		return
	}

	switch {
	case env.Type == TypeJoinRoom:
		rt.join(sender, s, env)

	case env.Type == TypeLeaveRoom:
		rt.leave(sender, s)

	case isSignal(env.Type):
		rt.relay(sender, s, env.Type, data)

	default:
		slog.Debug("ignoring unknown message type", "conn", sender.ID(), "type", env.Type)
	}
}

// Disconnect detaches sender from its room, if any, and tells the members
// left behind. A room reduced to a single member is closed.
func (rt *Router) Disconnect(sender Conn, s *Session) {
	if s.RoomID == "" {
		return
	}

	roomID := s.RoomID
	s.RoomID = ""
	report := rt.registry.Hangup(roomID, sender)
	if !report.Left {
		return
	}

	slog.Info("peer left room", "conn", sender.ID(), "room", roomID, "remaining", len(report.Peers), "closed", report.Closed)
	rt.deliver(report.Peers, Notice{Type: TypeUserLeft, RoomID: roomID, UserID: userID(sender, s)}.encode())
}

func (rt *Router) join(sender Conn, s *Session, env Envelope) {
	roomID := env.Room()
	if roomID == "" {
		rt.reply(sender, Notice{Type: TypeError, Message: "roomId is required"})
		return
	}

	previousID := userID(sender, s)
	if id := env.User(); id != "" {
		s.DisplayID = id
	}

	report := rt.registry.Join(roomID, sender)
	if report.Vacated != "" {
		s.RoomID = ""
		slog.Info("peer moved out of room", "conn", sender.ID(), "room", report.Vacated)
		rt.deliver(report.VacatedPeers, Notice{Type: TypeUserLeft, RoomID: report.Vacated, UserID: previousID}.encode())
	}

	switch report.Result {
	case RoomFull:
		s.RoomID = ""
		slog.Info("room join rejected", "conn", sender.ID(), "room", roomID, "reason", "full")
		rt.reply(sender, Notice{
			Type:    TypeRoomFull,
			RoomID:  roomID,
			Message: "Room is full",
		})

	case Rejoined:
		s.RoomID = roomID
		rt.reply(sender, Notice{
			Type:    TypeRoomJoined,
			RoomID:  roomID,
			Message: "Already in room",
		})

	case Joined:
		s.RoomID = roomID
		slog.Info("peer joined room", "conn", sender.ID(), "room", roomID, "peers", len(report.Peers))
		rt.reply(sender, Notice{
			Type:    TypeRoomJoined,
			RoomID:  roomID,
			Message: "Joined room",
		})
		rt.deliver(report.Peers, Notice{Type: TypeUserJoined, RoomID: roomID, UserID: userID(sender, s)}.encode())
	}
}

func (rt *Router) leave(sender Conn, s *Session) {
	// A room closed by the other member's hangup leaves s.RoomID stale.
	if s.RoomID == "" || !rt.registry.Contains(s.RoomID, sender) {
		s.RoomID = ""
		rt.reply(sender, Notice{Type: TypeError, Message: "Not in a room"})
		return
	}

	roomID := s.RoomID
	rt.Disconnect(sender, s)
	rt.reply(sender, Notice{Type: TypeRoomLeft, RoomID: roomID, Message: "Left room"})
}

// relay forwards data unmodified to every other member of the sender's room.
// The room is taken from the session, never from the frame.
func (rt *Router) relay(sender Conn, s *Session, msgType string, data []byte) {
	if s.RoomID == "" || !rt.registry.Contains(s.RoomID, sender) {
		slog.Info("signal outside a room", "conn", sender.ID(), "type", msgType)
		rt.reply(sender, Notice{Type: TypeError, Message: "You must join a room first"})
		return
	}

	peers := rt.registry.Peers(s.RoomID, sender)
	slog.Debug("relaying signal", "conn", sender.ID(), "room", s.RoomID, "type", msgType, "targets", len(peers))
	rt.deliver(peers, data)
}

// deliver sends data to each target independently. Failures are logged and
// never reach the originating sender.
func (rt *Router) deliver(targets []Conn, data []byte) {
	for _, c := range targets {
		if err := c.Send(data); err != nil {
			slog.Warn("delivery failed", "conn", c.ID(), "err", err)
		}
	}
}

func (rt *Router) reply(c Conn, n Notice) {
	if err := c.Send(n.encode()); err != nil {
		slog.Warn("reply failed", "conn", c.ID(), "type", n.Type, "err", err)
	}
}

func userID(c Conn, s *Session) string {
	if s.DisplayID != "" {
		return s.DisplayID
	}
	return c.ID()
}
