package probe

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	pion "github.com/pion/webrtc/v4"
)

const inboxQueueSize = 64

// Channel is the part of a pion data channel used for sending.
type Channel interface {
	Send(data []byte) error
}

// Inbox sorts frames arriving on the data channel by type. Handle must be
// installed as the channel's OnMessage callback before the channel opens.
type Inbox struct {
	pings chan Message
	pongs chan Message

	mu    sync.Mutex
	hello *HelloPayload
}

func NewInbox() *Inbox {
	return &Inbox{
		pings: make(chan Message, inboxQueueSize),
		pongs: make(chan Message, inboxQueueSize),
	}
}

// Handle decodes one frame. Pings and pongs are dropped when their queue is
// full.
func (in *Inbox) Handle(m pion.DataChannelMessage) {
	msg, err := Decode(m.Data)
	if err != nil {
		slog.Debug("ignoring undecodable data channel frame", "err", err)
		return
	}

	switch msg.Type {
	case MessageTypePing:
		queue(in.pings, msg)
	case MessageTypePong:
		queue(in.pongs, msg)
	case MessageTypeHello:
		var hello HelloPayload
		if err := msg.DecodePayload(&hello); err != nil {
			slog.Debug("ignoring malformed hello", "err", err)
			return
		}
		in.mu.Lock()
		in.hello = &hello
		in.mu.Unlock()
		slog.Debug("peer hello", "name", hello.Name, "version", hello.Version)
	}
}

// Hello returns the remote side's hello, if one arrived.
func (in *Inbox) Hello() (HelloPayload, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.hello == nil {
		return HelloPayload{}, false
	}
	return *in.hello, true
}

func queue(ch chan Message, msg Message) {
	select {
	case ch <- msg:
	default:
	}
}

// SayHello announces name and version to the other side.
func SayHello(ch Channel, name, version string) error {
	hello, err := NewHello(name, version)
	if err != nil {
		return err
	}
	data, err := Encode(hello)
	if err != nil {
		return err
	}
	if err := ch.Send(data); err != nil {
		return NewError("send hello", err)
	}
	return nil
}

// Result summarises a probe run.
type Result struct {
	Role     string
	Sent     int
	Received int
	Echoed   int64
	RTTs     []time.Duration

	// Remote is the other side's hello; zero if none arrived.
	Remote HelloPayload
}

// Lost is the number of pings that got no pong in time.
func (r Result) Lost() int {
	return r.Sent - r.Received
}

// Min, Avg and Max return zero when no pong was received.
func (r Result) Min() time.Duration {
	var m time.Duration
	for i, d := range r.RTTs {
		if i == 0 || d < m {
			m = d
		}
	}
	return m
}

func (r Result) Max() time.Duration {
	var m time.Duration
	for _, d := range r.RTTs {
		if d > m {
			m = d
		}
	}
	return m
}

func (r Result) Avg() time.Duration {
	if len(r.RTTs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range r.RTTs {
		sum += d
	}
	return sum / time.Duration(len(r.RTTs))
}

// Echo answers every ping queued in in until ctx is done. The returned
// counter tracks how many pongs were sent.
func Echo(ctx context.Context, ch Channel, in *Inbox) *atomic.Int64 {
	var echoed atomic.Int64
	go func() {
		for {
			select {
			case ping := <-in.pings:
				data, err := Encode(PongFor(ping))
				if err != nil {
					continue
				}
				if err := ch.Send(data); err != nil {
					slog.Debug("failed to send pong", "seq", ping.Seq, "err", err)
					continue
				}
				echoed.Add(1)
			case <-ctx.Done():
				return
			}
		}
	}()
	return &echoed
}

// Ping sends count pings spaced by interval and waits up to timeout for
// each pong.
func Ping(ctx context.Context, ch Channel, in *Inbox, count int, interval, timeout time.Duration) (Result, error) {
	res := Result{Role: "offerer"}
	pongs := in.pongs

	for seq := uint32(1); int(seq) <= count; seq++ {
		if seq > 1 {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return res, ctx.Err()
			}
		}

		data, err := Encode(NewPing(seq, time.Now()))
		if err != nil {
			return res, err
		}
		if err := ch.Send(data); err != nil {
			return res, NewError("send ping", err)
		}
		res.Sent++

		if rtt, ok := awaitPong(ctx, pongs, seq, timeout); ok {
			res.Received++
			res.RTTs = append(res.RTTs, rtt)
		} else if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}
	return res, nil
}

// awaitPong discards stale pongs from earlier sequence numbers.
func awaitPong(ctx context.Context, pongs <-chan Message, seq uint32, timeout time.Duration) (time.Duration, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case pong := <-pongs:
			if pong.Seq != seq {
				continue
			}
			return time.Since(time.Unix(0, pong.SentAt)), true
		case <-deadline.C:
			return 0, false
		case <-ctx.Done():
			return 0, false
		}
	}
}
