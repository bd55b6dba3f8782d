package probe

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Data channel message types.
const (
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
	MessageTypeHello = "hello"
)

// Message is every frame sent over the probe data channel.
type Message struct {
	Type    string             `msgpack:"type"`
	Seq     uint32             `msgpack:"seq,omitempty"`
	SentAt  int64              `msgpack:"sentAt,omitempty"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

// HelloPayload identifies the sending side once the channel opens.
type HelloPayload struct {
	Name    string `msgpack:"name"`
	Version string `msgpack:"version"`
}

// Encode marshals m with msgpack.
func Encode(m Message) ([]byte, error) {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return nil, NewError("marshal message", err)
	}
	return b, nil
}

// Decode parses a data channel frame.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return Message{}, NewError("parse message", err)
	}
	return m, nil
}

// NewPing builds a ping stamped with now.
func NewPing(seq uint32, now time.Time) Message {
	return Message{Type: MessageTypePing, Seq: seq, SentAt: now.UnixNano()}
}

// PongFor answers ping, echoing its sequence number and timestamp.
func PongFor(ping Message) Message {
	return Message{Type: MessageTypePong, Seq: ping.Seq, SentAt: ping.SentAt}
}

// NewHello builds a hello message.
func NewHello(name, version string) (Message, error) {
	b, err := msgpack.Marshal(HelloPayload{Name: name, Version: version})
	if err != nil {
		return Message{}, NewError("marshal hello", err)
	}
	return Message{Type: MessageTypeHello, Payload: b}, nil
}

// DecodePayload decodes the message payload into v.
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}
