package probe

import (
	"encoding/json"
	"log/slog"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/carelink/signal-relay/internal/config"
	"github.com/carelink/signal-relay/internal/relayclient"
)

// ChannelLabel is the data channel opened by the offering side.
const ChannelLabel = "relay-probe"

// Signaler carries signaling frames to the remote peer.
type Signaler interface {
	Send(msg relayclient.Message) error
}

// Peer is one side of a WebRTC connection negotiated through the relay.
type Peer struct {
	pc  *pion.PeerConnection
	sig Signaler

	mu        sync.Mutex
	remoteSet bool
	pending   []pion.ICECandidateInit

	channel chan *pion.DataChannel
	inbox   *Inbox
	failed  chan struct{}
	once    sync.Once
}

// NewPeerConnection builds a pion peer connection from the client's ICE
// settings.
func NewPeerConnection(cfg *config.Client) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	stun, turn := cfg.ICEServers()
	if stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}
	if turn != nil {
		username, password := cfg.TURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// NewPeer wraps pc. Local ICE candidates are trickled through sig.
func NewPeer(pc *pion.PeerConnection, sig Signaler) *Peer {
	p := &Peer{
		pc:      pc,
		sig:     sig,
		channel: make(chan *pion.DataChannel, 1),
		inbox:   NewInbox(),
		failed:  make(chan struct{}),
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		if err := sig.Send(relayclient.Message{Type: relayclient.TypeCandidate, Candidate: data}); err != nil {
			slog.Debug("failed to send candidate", "err", err)
		}
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		slog.Debug("peer connection state", "state", state.String())
		if state == pion.PeerConnectionStateFailed || state == pion.PeerConnectionStateClosed {
			p.once.Do(func() { close(p.failed) })
		}
	})

	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() != ChannelLabel {
			return
		}
		p.watch(dc)
	})

	return p
}

// watch routes dc's frames to the inbox and publishes dc on Channel once it
// opens.
func (p *Peer) watch(dc *pion.DataChannel) {
	dc.OnMessage(p.inbox.Handle)
	dc.OnOpen(func() {
		select {
		case p.channel <- dc:
		default:
		}
	})
}

// Offer opens the probe data channel and sends an SDP offer.
func (p *Peer) Offer() error {
	ordered := true
	dc, err := p.pc.CreateDataChannel(ChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return NewError("create data channel", err)
	}
	p.watch(dc)

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return NewError("create offer", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return NewError("set local description", err)
	}

	return p.sig.Send(relayclient.Message{Type: relayclient.TypeOffer, SDP: p.pc.LocalDescription().SDP})
}

// HandleSignal applies a relayed offer, answer or candidate. An offer is
// answered through the signaler. Candidates that arrive before the remote
// description are held back.
func (p *Peer) HandleSignal(msg relayclient.Message) error {
	switch msg.Type {
	case relayclient.TypeOffer:
		if err := p.setRemote(pion.SDPTypeOffer, msg.SDP); err != nil {
			return err
		}
		answer, err := p.pc.CreateAnswer(nil)
		if err != nil {
			return NewError("create answer", err)
		}
		if err := p.pc.SetLocalDescription(answer); err != nil {
			return NewError("set local description", err)
		}
		return p.sig.Send(relayclient.Message{Type: relayclient.TypeAnswer, SDP: p.pc.LocalDescription().SDP})

	case relayclient.TypeAnswer:
		return p.setRemote(pion.SDPTypeAnswer, msg.SDP)

	case relayclient.TypeCandidate:
		if len(msg.Candidate) == 0 {
			return nil
		}
		var ice pion.ICECandidateInit
		if err := json.Unmarshal(msg.Candidate, &ice); err != nil {
			return NewError("parse ICE candidate", err)
		}
		p.mu.Lock()
		if !p.remoteSet {
			p.pending = append(p.pending, ice)
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()
		if err := p.pc.AddICECandidate(ice); err != nil {
			return NewError("add ICE candidate", err)
		}
		return nil
	}

	return WrapError("handle signal", ErrUnexpectedSignal, msg.Type)
}

func (p *Peer) setRemote(t pion.SDPType, sdp string) error {
	if err := p.pc.SetRemoteDescription(pion.SessionDescription{Type: t, SDP: sdp}); err != nil {
		return NewError("set remote description", err)
	}

	p.mu.Lock()
	p.remoteSet = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, ice := range pending {
		if err := p.pc.AddICECandidate(ice); err != nil {
			slog.Debug("dropping buffered candidate", "err", err)
		}
	}
	return nil
}

// Inbox holds the frames received on the probe data channel.
func (p *Peer) Inbox() *Inbox {
	return p.inbox
}

// Channel delivers the probe data channel once it is open.
func (p *Peer) Channel() <-chan *pion.DataChannel {
	return p.channel
}

// Failed is closed when the peer connection fails or closes.
func (p *Peer) Failed() <-chan struct{} {
	return p.failed
}

// Close tears down the peer connection.
func (p *Peer) Close() error {
	return p.pc.Close()
}
