package relayclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/signal-relay/internal/server"
	"github.com/carelink/signal-relay/internal/signaling"
)

func newRelay(t *testing.T) string {
	t.Helper()

	registry := signaling.NewRegistry(2)
	hub := signaling.NewHub(registry, signaling.NewRouter(registry), signaling.HubOptions{})
	srv := httptest.NewServer(server.NewMux(hub, server.NewOriginPolicy([]string{"*"})))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		hub.Shutdown(ctx)
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func connect(t *testing.T, url string) (*Client, *Handler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url, nil)
	require.NoError(t, err)
	h := NewHandler(c)
	go h.Start()
	t.Cleanup(func() {
		h.Close()
		c.Close()
	})
	return c, h
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		var zero T
		return zero
	}
}

func TestClient_JoinAndRelay(t *testing.T) {
	url := newRelay(t)
	a, ah := connect(t, url)
	b, bh := connect(t, url)

	require.NoError(t, a.Join("room-1", "alice"))
	assert.Equal(t, "room-1", recv(t, ah.Joined).RoomID)

	require.NoError(t, b.Join("room-1", "bob"))
	recv(t, bh.Joined)
	assert.Equal(t, "bob", recv(t, ah.PeerJoined).UserID)

	require.NoError(t, a.Send(Message{Type: TypeOffer, SDP: "v=0"}))
	offer := recv(t, bh.Signal)
	assert.Equal(t, TypeOffer, offer.Type)
	assert.Equal(t, "v=0", offer.SDP)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(offer.Raw))

	require.NoError(t, b.Send(Message{Type: TypeCandidate, Candidate: []byte(`{"candidate":"c1","sdpMid":"0"}`)}))
	cand := recv(t, ah.Signal)
	assert.JSONEq(t, `{"candidate":"c1","sdpMid":"0"}`, string(cand.Candidate))

	require.NoError(t, b.Leave())
	assert.Equal(t, TypeRoomLeft, recv(t, bh.Left).Type)
	assert.Equal(t, "bob", recv(t, ah.PeerLeft).UserID)
}

func TestClient_RoomFullAndErrors(t *testing.T) {
	url := newRelay(t)
	a, ah := connect(t, url)
	b, bh := connect(t, url)
	c, ch := connect(t, url)

	require.NoError(t, c.Send(Message{Type: TypeAnswer, SDP: "x"}))
	assert.Equal(t, "You must join a room first", recv(t, ch.Error))

	require.NoError(t, a.Join("room-1", ""))
	recv(t, ah.Joined)
	require.NoError(t, b.Join("room-1", ""))
	recv(t, bh.Joined)

	require.NoError(t, c.Join("room-1", ""))
	assert.Equal(t, "Room is full", recv(t, ch.Full).Message)
}

func TestClient_CloseEndsHandler(t *testing.T) {
	url := newRelay(t)
	c, h := connect(t, url)

	c.Close()
	recv(t, h.Done())
	assert.ErrorIs(t, c.Send(Message{Type: TypeLeaveRoom}), ErrClosed)
}

func TestDial_UnexpectedGreeting(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello"}`))
		conn.ReadMessage()
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	assert.ErrorIs(t, err, ErrUnexpectedGreeting)
}

func TestLookup_IPLiteral(t *testing.T) {
	ip, err := Lookup(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)

	ip, err = Lookup(context.Background(), "::1")
	require.NoError(t, err)
	assert.Equal(t, "::1", ip)
}

func TestIsSignal(t *testing.T) {
	assert.True(t, IsSignal(TypeOffer))
	assert.True(t, IsSignal(TypeCandidate))
	assert.False(t, IsSignal(TypeJoinRoom))
}
