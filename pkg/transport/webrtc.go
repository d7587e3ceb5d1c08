package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/auth"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/signal"
)

// dataChannelLabel names the WebRTC data channel carrying commands.
const dataChannelLabel = "vaultlink"

// peerLink is a link over a WebRTC data channel.
type peerLink struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel
}

func (l *peerLink) Send(data []byte) error {
	return l.dc.SendText(string(data))
}

func (l *peerLink) Close() error {
	return l.pc.Close()
}

// dialPeerLink establishes a WebRTC data channel to the executor's
// peer via the signaling relay. The session ID is derived from the
// vault ID, so both sides meet without exchanging addresses.
func dialPeerLink(ctx context.Context, cfg RemoteConfig, onData func([]byte), onClose func(error)) (link, error) {
	sessionID, err := auth.DeriveSessionID(cfg.VaultID)
	if err != nil {
		return nil, err
	}

	sc, err := signal.Dial(ctx, cfg.SignalURL)
	if err != nil {
		return nil, err
	}
	sc.SetLogger(cfg.Logger)

	peers, events, err := sc.Register(ctx, sessionID)
	if err != nil {
		sc.Close()
		return nil, err
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: cfg.ICEServers}},
	})
	if err != nil {
		sc.Close()
		return nil, fmt.Errorf("%w: create peer connection: %w", ErrTransport, err)
	}

	cleanup := func() {
		pc.Close()
		sc.Close()
	}

	ordered := true
	dc, err := pc.CreateDataChannel(dataChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: create data channel: %w", ErrTransport, err)
	}

	opened := make(chan struct{})
	dc.OnOpen(func() { close(opened) })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) { onData(msg.Data) })
	dc.OnClose(func() { onClose(fmt.Errorf("%w: data channel closed", ErrTransport)) })

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
			onClose(fmt.Errorf("%w: peer connection %s", ErrTransport, s))
		}
	})

	// Candidates are trickled as they are gathered, from pion's own
	// goroutine; the target peer may still be unknown then, in which
	// case they are broadcast to the session.
	var targetMu sync.Mutex
	var target string
	setTarget := func(id string) {
		targetMu.Lock()
		target = id
		targetMu.Unlock()
	}
	getTarget := func() string {
		targetMu.Lock()
		defer targetMu.Unlock()
		return target
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		payload, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		_ = sc.SendCandidate(getTarget(), payload)
	})

	if len(peers) > 0 {
		setTarget(peers[0])
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: create offer: %w", ErrTransport, err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: set local description: %w", ErrTransport, err)
	}

	offerJSON, err := json.Marshal(pc.LocalDescription())
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if err := sc.SendOffer(getTarget(), offerJSON); err != nil {
		cleanup()
		return nil, err
	}

	// Negotiate until the data channel opens. Remote candidates that
	// arrive before the answer are buffered.
	var buffered []webrtc.ICECandidateInit
	haveAnswer := false

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil, fmt.Errorf("%w: negotiation: %w", ErrTimeout, ctx.Err())

		case <-opened:
			// Signaling is done; candidates still trickling are not
			// needed once the channel is up.
			sc.Close()
			return &peerLink{pc: pc, dc: dc}, nil

		case env, ok := <-events:
			if !ok {
				cleanup()
				if err := sc.Err(); err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("%w: signaling closed during negotiation", signal.ErrSignaling)
			}

			switch env.Type {
			case signal.TypePeerJoined:
				if getTarget() == "" {
					setTarget(env.From)
					// Re-send the offer now that it has an addressee.
					_ = sc.SendOffer(env.From, offerJSON)
				}

			case signal.TypeAnswer:
				var answer webrtc.SessionDescription
				if err := json.Unmarshal(env.Payload, &answer); err != nil {
					cleanup()
					return nil, fmt.Errorf("%w: bad answer: %w", signal.ErrSignaling, err)
				}
				if err := pc.SetRemoteDescription(answer); err != nil {
					cleanup()
					return nil, fmt.Errorf("%w: set remote description: %w", ErrTransport, err)
				}
				haveAnswer = true
				for _, cand := range buffered {
					_ = pc.AddICECandidate(cand)
				}
				buffered = nil

			case signal.TypeCandidate:
				var cand webrtc.ICECandidateInit
				if err := json.Unmarshal(env.Payload, &cand); err != nil {
					continue
				}
				if haveAnswer {
					_ = pc.AddICECandidate(cand)
				} else {
					buffered = append(buffered, cand)
				}

			case signal.TypePeerLeft:
				if env.From == getTarget() {
					cleanup()
					return nil, fmt.Errorf("%w: peer left during negotiation", signal.ErrSignaling)
				}

			case signal.TypeError:
				cleanup()
				return nil, fmt.Errorf("%w: relay: %s", signal.ErrSignaling, env.Reason)
			}
		}
	}
}
