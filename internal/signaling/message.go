package signaling

import "encoding/json"

// Message types understood by the relay.
const (
	// Client to server.
	TypeJoinRoom  = "join-room"
	TypeLeaveRoom = "leave-room"
	TypeOffer     = "offer"
	TypeAnswer    = "answer"
	TypeCandidate = "candidate"

	// Server to client.
	TypeConnectionSuccess = "connection-success"
	TypeRoomJoined        = "room-joined"
	TypeRoomFull          = "room-full"
	TypeRoomLeft          = "room-left"
	TypeUserJoined        = "user-joined"
	TypeUserLeft          = "user-left"
	TypeError             = "error"
)

// Envelope is the part of an inbound frame the router looks at. Any other
// fields (sdp, candidate, ...) stay in the raw frame and are relayed as-is.
// roomId and userId are kept raw and only interpreted for join-room, so a
// signal carrying them in some other shape is still relayed.
type Envelope struct {
	Type   string          `json:"type"`
	RoomID json.RawMessage `json:"roomId,omitempty"`
	UserID json.RawMessage `json:"userId,omitempty"`
}

// Room returns roomId when it is a non-empty JSON string, or "".
func (e Envelope) Room() string {
	var id string
	if err := json.Unmarshal(e.RoomID, &id); err != nil {
		return ""
	}
	return id
}

// User returns userId as a string. Numbers keep their literal text; any other
// shape is ignored.
func (e Envelope) User() string {
	var id string
	if err := json.Unmarshal(e.UserID, &id); err == nil {
		return id
	}
	var n json.Number
	if err := json.Unmarshal(e.UserID, &n); err == nil {
		return n.String()
	}
	return ""
}

// Notice is every server-generated message.
type Notice struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId,omitempty"`
	UserID  string `json:"userId,omitempty"`
	Message string `json:"message,omitempty"`
}

// decodeEnvelope parses a raw frame. Anything that is not a JSON object is
// reported as an error.
func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}

func (n Notice) encode() []byte {
	// Notice only holds strings, Marshal cannot fail.
	b, _ := json.Marshal(n)
	return b
}

// isSignal reports whether msgType is relayed verbatim to the rest of the room.
func isSignal(msgType string) bool {
	switch msgType {
	case TypeOffer, TypeAnswer, TypeCandidate:
		return true
	}
	return false
}
