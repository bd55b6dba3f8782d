package probe

import (
	"context"
	"log/slog"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/carelink/signal-relay/internal/relayclient"
)

// Options controls a Call.
type Options struct {
	UserID   string
	Count    int
	Interval time.Duration
	Timeout  time.Duration

	// Name and Version are sent to the other side in a hello once the data
	// channel opens.
	Name    string
	Version string

	// OnStatus, if set, is told about progress.
	OnStatus func(string)
}

func (o Options) status(s string) {
	if o.OnStatus != nil {
		o.OnStatus(s)
	}
}

// Call joins roomID and negotiates a peer connection with whoever else is in
// it. The member that was there first makes the offer and pings; the other
// answers and echoes until the offerer leaves.
func Call(ctx context.Context, pc *pion.PeerConnection, client *relayclient.Client, handler *relayclient.Handler, roomID string, opts Options) (Result, error) {
	if opts.Count <= 0 {
		opts.Count = 5
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	peer := NewPeer(pc, client)
	defer peer.Close()

	if err := client.Join(roomID, opts.UserID); err != nil {
		return Result{}, NewError("join room", err)
	}
	select {
	case <-handler.Joined:
	case msg := <-handler.Full:
		return Result{}, WrapError("join room", ErrRoomFull, msg.RoomID)
	case errMsg := <-handler.Error:
		return Result{}, WrapError("join room", ErrSignaling, errMsg)
	case <-handler.Done():
		return Result{}, NewError("join room", relayclient.ErrClosed)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	opts.status("Joined " + roomID + ", waiting for peer...")

	role := "answerer"
	var dc *pion.DataChannel
	for dc == nil {
		select {
		case <-handler.PeerJoined:
			role = "offerer"
			opts.status("Peer joined, sending offer...")
			if err := peer.Offer(); err != nil {
				return Result{}, err
			}
		case msg := <-handler.Signal:
			if err := peer.HandleSignal(msg); err != nil {
				return Result{}, err
			}
		case errMsg := <-handler.Error:
			return Result{}, WrapError("negotiate", ErrSignaling, errMsg)
		case <-handler.PeerLeft:
			return Result{}, NewError("negotiate", ErrPeerLeft)
		case dc = <-peer.Channel():
		case <-peer.Failed():
			return Result{}, NewError("negotiate", ErrConnectionFailed)
		case <-handler.Done():
			return Result{}, NewError("negotiate", relayclient.ErrClosed)
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	// Late candidates keep trickling in after the channel opens.
	sigCtx, stop := context.WithCancel(ctx)
	defer stop()
	go followSignals(sigCtx, handler.Signal, peer.HandleSignal)

	if err := SayHello(dc, opts.Name, opts.Version); err != nil {
		slog.Debug("failed to send hello", "err", err)
	}
	inbox := peer.Inbox()

	if role == "offerer" {
		opts.status("Data channel open, measuring round trip...")
		res, err := Ping(ctx, dc, inbox, opts.Count, opts.Interval, opts.Timeout)
		res.Remote, _ = inbox.Hello()
		if err != nil {
			return res, err
		}
		client.Leave()
		return res, nil
	}

	opts.status("Data channel open, echoing pings...")
	echoed := Echo(sigCtx, dc, inbox)
	res := Result{Role: role}
	var err error
	select {
	case <-handler.PeerLeft:
	case <-peer.Failed():
	case <-handler.Done():
	case <-ctx.Done():
		err = ctx.Err()
	}
	res.Echoed = echoed.Load()
	res.Remote, _ = inbox.Hello()
	return res, err
}

// followSignals applies signals until ctx is done. A failure affects only
// that signal and is logged.
func followSignals(ctx context.Context, signals <-chan relayclient.Message, apply func(relayclient.Message) error) {
	for {
		select {
		case msg := <-signals:
			if err := apply(msg); err != nil {
				slog.Debug("dropping late signal", "type", msg.Type, "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
