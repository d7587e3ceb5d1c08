package signal

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// firstMessageTimeout bounds the wait for a client's register message.
const firstMessageTimeout = 10 * time.Second

// Relay is a signaling relay. It upgrades HTTP requests to WebSocket,
// groups peers by session ID, and routes envelopes between them
// without inspecting payloads.
type Relay struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]map[string]*relayPeer
}

type relayPeer struct {
	id   string
	conn *websocket.Conn

	// writeMu serializes writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

func (p *relayPeer) write(env Envelope) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(env)
}

// NewRelay creates a relay. A nil logger disables logging.
func NewRelay(logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Relay{
		logger: logger,
		upgrader: websocket.Upgrader{
			// Session membership is the access control; origins are
			// not restricted.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[string]map[string]*relayPeer),
	}
}

// ServeHTTP implements http.Handler.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// First message must register the peer.
	_ = conn.SetReadDeadline(time.Now().Add(firstMessageTimeout))
	var reg Envelope
	if err := conn.ReadJSON(&reg); err != nil {
		r.logger.Debug("register read failed", "error", err)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	peer := &relayPeer{conn: conn}
	if reg.Type != TypeRegister || reg.SessionID == "" || reg.From == "" {
		_ = peer.write(Envelope{Type: TypeError, Reason: "first message must register with sessionId and from"})
		return
	}
	peer.id = reg.From

	existing, err := r.join(reg.SessionID, peer)
	if err != nil {
		_ = peer.write(Envelope{Type: TypeError, Reason: err.Error()})
		return
	}
	defer r.leave(reg.SessionID, peer)

	if err := peer.write(Envelope{Type: TypeRegistered, SessionID: reg.SessionID, Peers: existing}); err != nil {
		return
	}

	r.broadcast(reg.SessionID, peer.id, Envelope{Type: TypePeerJoined, From: peer.id})
	r.logger.Info("peer registered", "session", reg.SessionID, "peer", peer.id, "peers", len(existing)+1)

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		env.From = peer.id

		if env.To != "" {
			r.route(reg.SessionID, env)
		} else {
			r.broadcast(reg.SessionID, peer.id, env)
		}
	}
}

// join adds a peer to a session and returns the IDs already present.
func (r *Relay) join(sessionID string, peer *relayPeer) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers := r.sessions[sessionID]
	if peers == nil {
		peers = make(map[string]*relayPeer)
		r.sessions[sessionID] = peers
	}
	if _, taken := peers[peer.id]; taken {
		return nil, errDuplicatePeer(peer.id)
	}

	existing := make([]string, 0, len(peers))
	for id := range peers {
		existing = append(existing, id)
	}
	peers[peer.id] = peer
	return existing, nil
}

type errDuplicatePeer string

func (e errDuplicatePeer) Error() string {
	return "peer ID already registered: " + string(e)
}

// leave removes a peer and notifies the remaining session members.
func (r *Relay) leave(sessionID string, peer *relayPeer) {
	r.mu.Lock()
	peers := r.sessions[sessionID]
	delete(peers, peer.id)
	if len(peers) == 0 {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	r.broadcast(sessionID, peer.id, Envelope{Type: TypePeerLeft, From: peer.id})
	r.logger.Info("peer left", "session", sessionID, "peer", peer.id)
}

// route delivers an envelope to its addressee, if present.
func (r *Relay) route(sessionID string, env Envelope) {
	r.mu.Lock()
	target := r.sessions[sessionID][env.To]
	r.mu.Unlock()

	if target == nil {
		r.logger.Debug("dropping envelope for unknown peer", "session", sessionID, "to", env.To)
		return
	}
	if err := target.write(env); err != nil {
		r.logger.Debug("route write failed", "peer", env.To, "error", err)
	}
}

// broadcast delivers an envelope to every session member except from.
func (r *Relay) broadcast(sessionID, from string, env Envelope) {
	r.mu.Lock()
	targets := make([]*relayPeer, 0, len(r.sessions[sessionID]))
	for id, p := range r.sessions[sessionID] {
		if id != from {
			targets = append(targets, p)
		}
	}
	r.mu.Unlock()

	for _, p := range targets {
		if err := p.write(env); err != nil {
			r.logger.Debug("broadcast write failed", "peer", p.id, "error", err)
		}
	}
}
