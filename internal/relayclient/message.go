package relayclient

import "encoding/json"

// Message is any frame exchanged with the relay. Fields not used by a given
// type are left empty.
type Message struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId,omitempty"`
	UserID  string `json:"userId,omitempty"`
	Message string `json:"message,omitempty"`

	// WebRTC payloads, relayed untouched between peers.
	SDP       string          `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`

	// Raw holds the frame as received.
	Raw []byte `json:"-"`
}

// Message type constants.
const (
	TypeJoinRoom  = "join-room"
	TypeLeaveRoom = "leave-room"
	TypeOffer     = "offer"
	TypeAnswer    = "answer"
	TypeCandidate = "candidate"

	TypeConnectionSuccess = "connection-success"
	TypeRoomJoined        = "room-joined"
	TypeRoomFull          = "room-full"
	TypeRoomLeft          = "room-left"
	TypeUserJoined        = "user-joined"
	TypeUserLeft          = "user-left"
	TypeError             = "error"
)

// IsSignal reports whether t is one of the relayed WebRTC message types.
func IsSignal(t string) bool {
	return t == TypeOffer || t == TypeAnswer || t == TypeCandidate
}
