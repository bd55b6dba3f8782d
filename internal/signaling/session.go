package signaling

import "sync"

// Session is the mutable per-connection state. It is only touched from the
// goroutine that handles the connection's frames.
type Session struct {
	// RoomID is the room the connection currently belongs to, "" if none.
	RoomID string

	// DisplayID is an optional identity shown to peers in notifications.
	DisplayID string
}

// sessionTable maps connection ids to their Session.
type sessionTable struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[string]*Session)}
}

func (t *sessionTable) open(connID string) *Session {
	s := &Session{}
	t.mu.Lock()
	t.sessions[connID] = s
	t.mu.Unlock()
	return s
}

func (t *sessionTable) get(connID string) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[connID]
	return s, ok
}

// close removes the session and returns it so the caller can clean up.
func (t *sessionTable) close(connID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[connID]
	delete(t.sessions, connID)
	return s, ok
}

func (t *sessionTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
