package signaling

import (
	"log/slog"
	"sync"
)

// DefaultRoomCapacity caps a room at a strict two-party call.
const DefaultRoomCapacity = 2

// JoinResult is the outcome of Registry.Join.
type JoinResult int

const (
	// Joined means the connection was added to the room.
	Joined JoinResult = iota
	// Rejoined means the connection was already a member; nothing changed.
	Rejoined
	// RoomFull means the room is at capacity; its membership is unchanged.
	RoomFull
)

func (r JoinResult) String() string {
	switch r {
	case Joined:
		return "joined"
	case Rejoined:
		return "rejoined"
	case RoomFull:
		return "room-full"
	}
	return "unknown"
}

// Conn is a connection handle as seen by the registry and router.
type Conn interface {
	// ID identifies the connection for its whole lifetime.
	ID() string
	// Send queues a frame for delivery. It never blocks.
	Send(data []byte) error
}

// Room is a set of connections that may exchange signaling messages.
type Room struct {
	ID      string
	members map[string]Conn
}

// Registry is the authoritative map from room id to members.
//
// A room exists only while it has at least one member. All operations are
// serialized by a single mutex; callers must not perform I/O on the returned
// connections while holding any lock of their own that Registry could need.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	memberOf map[string]string // conn id -> room id
	capacity int
}

// NewRegistry creates an empty registry. A capacity below 1 selects
// DefaultRoomCapacity.
func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		capacity = DefaultRoomCapacity
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		memberOf: make(map[string]string),
		capacity: capacity,
	}
}

// Capacity returns the maximum number of members per room.
func (r *Registry) Capacity() int {
	return r.capacity
}

// JoinReport describes what Registry.Join did.
type JoinReport struct {
	Result JoinResult

	// Peers are the other members of the target room right after a
	// successful join.
	Peers []Conn

	// Vacated is the room the connection was moved out of ("" if none) and
	// VacatedPeers the members still in it.
	Vacated      string
	VacatedPeers []Conn
}

// Join adds conn to roomID. If conn belongs to a different room it is removed
// from that room first, even when the join itself ends in RoomFull.
func (r *Registry) Join(roomID string, conn Conn) JoinReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	var report JoinReport
	id := conn.ID()
	if current, ok := r.memberOf[id]; ok {
		if current == roomID {
			report.Result = Rejoined
			report.Peers = r.peersLocked(roomID, id)
			return report
		}
		r.removeLocked(current, id)
		report.Vacated = current
		report.VacatedPeers = r.peersLocked(current, id)
	}

	room, ok := r.rooms[roomID]
	if ok && len(room.members) >= r.capacity {
		report.Result = RoomFull
		return report
	}
	if !ok {
		room = &Room{ID: roomID, members: make(map[string]Conn, r.capacity)}
		r.rooms[roomID] = room
		slog.Debug("room created", "room", roomID)
	}

	room.members[id] = conn
	r.memberOf[id] = roomID
	report.Result = Joined
	report.Peers = r.peersLocked(roomID, id)
	return report
}

// Leave removes conn from roomID and reports whether it was a member.
func (r *Registry) Leave(roomID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	if current, ok := r.memberOf[id]; !ok || current != roomID {
		return false
	}
	r.removeLocked(roomID, id)
	return true
}

// HangupReport describes what Registry.Hangup did.
type HangupReport struct {
	// Left is false when conn was not a member of the room.
	Left bool

	// Peers are the members that were in the room with conn.
	Peers []Conn

	// Closed is set when the room was torn down because a single member
	// would have been left on its own. That member is no longer joined.
	Closed bool
}

// Hangup removes conn from roomID like Leave. A call needs two parties, so if
// only one member remains afterwards the room is closed and that member is
// detached as well.
func (r *Registry) Hangup(roomID string, conn Conn) HangupReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	if current, ok := r.memberOf[id]; !ok || current != roomID {
		return HangupReport{}
	}
	r.removeLocked(roomID, id)

	report := HangupReport{Left: true, Peers: r.peersLocked(roomID, id)}
	if len(report.Peers) == 1 {
		r.removeLocked(roomID, report.Peers[0].ID())
		report.Closed = true
	}
	return report
}

func (r *Registry) removeLocked(roomID, connID string) {
	delete(r.memberOf, connID)

	room, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(room.members, connID)
	if len(room.members) == 0 {
		delete(r.rooms, roomID)
		slog.Debug("room deleted", "room", roomID)
	}
}

// Peers returns a point-in-time copy of the members of roomID other than
// excluding. The copy is safe to iterate while membership keeps changing.
func (r *Registry) Peers(roomID string, excluding Conn) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	if excluding != nil {
		id = excluding.ID()
	}
	return r.peersLocked(roomID, id)
}

func (r *Registry) peersLocked(roomID, excludeID string) []Conn {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}

	peers := make([]Conn, 0, len(room.members))
	for id, c := range room.members {
		if id == excludeID {
			continue
		}
		peers = append(peers, c)
	}
	return peers
}

// Contains reports whether conn is currently a member of roomID.
func (r *Registry) Contains(roomID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.memberOf[conn.ID()]
	return ok && current == roomID
}

// Has reports whether roomID exists.
func (r *Registry) Has(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[roomID]
	return ok
}

// Size returns the number of members in roomID, 0 if it does not exist.
func (r *Registry) Size(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[roomID]; ok {
		return len(room.members)
	}
	return 0
}

// Stats returns the number of live rooms and joined connections.
func (r *Registry) Stats() (rooms, members int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms), len(r.memberOf)
}
