package probe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/carelink/signal-relay/internal/config"
	"github.com/carelink/signal-relay/internal/relayclient"
)

func TestCodec(t *testing.T) {
	now := time.Unix(1700000000, 42)
	data, err := Encode(NewPing(7, now))
	require.NoError(t, err)

	msg, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, MessageTypePing, msg.Type)
	assert.Equal(t, uint32(7), msg.Seq)
	assert.Equal(t, now.UnixNano(), msg.SentAt)

	pong := PongFor(msg)
	assert.Equal(t, Message{Type: MessageTypePong, Seq: 7, SentAt: now.UnixNano()}, pong)

	_, err = Decode([]byte{0xc1})
	var perr *Error
	assert.ErrorAs(t, err, &perr)
	assert.Equal(t, "parse message", perr.Op)
}

func TestHelloPayload(t *testing.T) {
	hello, err := NewHello("relayctl", "v1.2.3")
	require.NoError(t, err)

	data, err := Encode(hello)
	require.NoError(t, err)
	msg, err := Decode(data)
	require.NoError(t, err)

	var p HelloPayload
	require.NoError(t, msg.DecodePayload(&p))
	assert.Equal(t, HelloPayload{Name: "relayctl", Version: "v1.2.3"}, p)
}

func TestResult_Stats(t *testing.T) {
	r := Result{Sent: 4, Received: 3, RTTs: []time.Duration{30 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}}

	assert.Equal(t, 1, r.Lost())
	assert.Equal(t, 10*time.Millisecond, r.Min())
	assert.Equal(t, 20*time.Millisecond, r.Avg())
	assert.Equal(t, 30*time.Millisecond, r.Max())

	var empty Result
	assert.Zero(t, empty.Min())
	assert.Zero(t, empty.Avg())
	assert.Zero(t, empty.Max())
}

func TestError(t *testing.T) {
	err := WrapError("join room", ErrRoomFull, "room-1")
	assert.Equal(t, "join room: room is full (room-1)", err.Error())
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, "send ping: boom", NewError("send ping", errors.New("boom")).Error())
}

// loopChannel delivers frames synchronously to the other side's inbox.
type loopChannel struct {
	mu    sync.Mutex
	inbox *Inbox
	peer  *loopChannel
	drop  bool
}

func newLoopPair() (*loopChannel, *loopChannel) {
	a, b := &loopChannel{inbox: NewInbox()}, &loopChannel{inbox: NewInbox()}
	a.peer, b.peer = b, a
	return a, b
}

func (l *loopChannel) Send(data []byte) error {
	l.mu.Lock()
	drop := l.drop
	l.mu.Unlock()
	if !drop {
		l.peer.inbox.Handle(pion.DataChannelMessage{Data: data})
	}
	return nil
}

func (l *loopChannel) setDrop(drop bool) {
	l.mu.Lock()
	l.drop = drop
	l.mu.Unlock()
}

func TestPingEcho(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := newLoopPair()
	echoed := Echo(ctx, b, b.inbox)

	res, err := Ping(ctx, a, a.inbox, 3, time.Millisecond, time.Second)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 3, res.Received)
	assert.Zero(t, res.Lost())
	assert.Len(t, res.RTTs, 3)
	assert.Equal(t, int64(3), echoed.Load())
}

func TestPing_LostPongs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := newLoopPair()
	Echo(ctx, b, b.inbox)
	b.setDrop(true)

	res, err := Ping(ctx, a, a.inbox, 2, time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 2, res.Lost())
}

func TestPing_ContextCancelled(t *testing.T) {
	a, _ := newLoopPair()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Ping(ctx, a, a.inbox, 3, time.Millisecond, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEcho_AnswersPingsQueuedBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := newLoopPair()

	data, err := Encode(NewPing(1, time.Now()))
	require.NoError(t, err)
	require.NoError(t, a.Send(data))

	echoed := Echo(ctx, b, b.inbox)

	select {
	case pong := <-a.inbox.pongs:
		assert.Equal(t, uint32(1), pong.Seq)
	case <-time.After(time.Second):
		t.Fatal("no pong for a ping that arrived before Echo started")
	}
	assert.Eventually(t, func() bool { return echoed.Load() == 1 }, time.Second, time.Millisecond)
}

func TestSayHello_ExchangesNameAndVersion(t *testing.T) {
	a, b := newLoopPair()

	_, ok := b.inbox.Hello()
	assert.False(t, ok)

	require.NoError(t, SayHello(a, "relayctl", "v1.2.3"))
	require.NoError(t, SayHello(b, "relayctl", "v2.0.0"))

	got, ok := b.inbox.Hello()
	require.True(t, ok)
	assert.Equal(t, HelloPayload{Name: "relayctl", Version: "v1.2.3"}, got)

	got, ok = a.inbox.Hello()
	require.True(t, ok)
	assert.Equal(t, HelloPayload{Name: "relayctl", Version: "v2.0.0"}, got)
}

func TestInbox_IgnoresMalformedFrames(t *testing.T) {
	in := NewInbox()

	in.Handle(pion.DataChannelMessage{Data: []byte{0xc1}})
	payload, err := msgpack.Marshal("not a hello")
	require.NoError(t, err)
	bad, err := Encode(Message{Type: MessageTypeHello, Payload: payload})
	require.NoError(t, err)
	in.Handle(pion.DataChannelMessage{Data: bad})

	_, ok := in.Hello()
	assert.False(t, ok)
	assert.Empty(t, in.pings)
	assert.Empty(t, in.pongs)
}

// pipeSignaler hands frames to the other peer's HandleSignal.
type pipeSignaler struct {
	mu     sync.Mutex
	target *Peer
	sent   []relayclient.Message
}

func (s *pipeSignaler) Send(msg relayclient.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	target := s.target
	s.mu.Unlock()
	if target != nil && msg.Type != relayclient.TypeCandidate {
		return target.HandleSignal(msg)
	}
	return nil
}

func TestPeer_OfferAnswer(t *testing.T) {
	cfg := &config.Client{}

	pcA, err := NewPeerConnection(cfg)
	require.NoError(t, err)
	pcB, err := NewPeerConnection(cfg)
	require.NoError(t, err)

	sigA, sigB := &pipeSignaler{}, &pipeSignaler{}
	a, b := NewPeer(pcA, sigA), NewPeer(pcB, sigB)
	defer a.Close()
	defer b.Close()
	sigA.target, sigB.target = b, a

	require.NoError(t, a.Offer())

	require.NotNil(t, pcB.RemoteDescription())
	assert.Equal(t, pion.SDPTypeOffer, pcB.RemoteDescription().Type)
	require.NotNil(t, pcA.RemoteDescription())
	assert.Equal(t, pion.SDPTypeAnswer, pcA.RemoteDescription().Type)
}

func TestPeer_BuffersEarlyCandidates(t *testing.T) {
	pc, err := NewPeerConnection(&config.Client{})
	require.NoError(t, err)
	p := NewPeer(pc, &pipeSignaler{})
	defer p.Close()

	err = p.HandleSignal(relayclient.Message{
		Type:      relayclient.TypeCandidate,
		Candidate: []byte(`{"candidate":"candidate:1 1 udp 2130706431 192.0.2.1 50000 typ host","sdpMid":"0","sdpMLineIndex":0}`),
	})
	require.NoError(t, err)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Len(t, p.pending, 1)
	assert.False(t, p.remoteSet)
}

func TestPeer_RejectsUnknownSignal(t *testing.T) {
	pc, err := NewPeerConnection(&config.Client{})
	require.NoError(t, err)
	p := NewPeer(pc, &pipeSignaler{})
	defer p.Close()

	err = p.HandleSignal(relayclient.Message{Type: "bye"})
	assert.ErrorIs(t, err, ErrUnexpectedSignal)
}

func TestFollowSignals_LogsFailuresAndContinues(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan relayclient.Message)
	var applied []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		followSignals(ctx, signals, func(msg relayclient.Message) error {
			applied = append(applied, msg.Type)
			if msg.Type == "bye" {
				return ErrUnexpectedSignal
			}
			return nil
		})
	}()

	// The unbuffered sends return only once the previous signal is handled.
	signals <- relayclient.Message{Type: "bye"}
	signals <- relayclient.Message{Type: relayclient.TypeCandidate}
	cancel()
	<-done

	assert.Equal(t, []string{"bye", relayclient.TypeCandidate}, applied)
	assert.Contains(t, buf.String(), "dropping late signal")
	assert.Contains(t, buf.String(), "type=bye")
}
