package signal

import "encoding/json"

// MessageType identifies a signaling envelope.
type MessageType string

// Signaling message types.
const (
	// TypeRegister joins a session. Sent by a client as its first message.
	TypeRegister MessageType = "register"

	// TypeRegistered acknowledges registration and lists existing peers.
	TypeRegistered MessageType = "registered"

	// TypeOffer carries an SDP offer.
	TypeOffer MessageType = "offer"

	// TypeAnswer carries an SDP answer.
	TypeAnswer MessageType = "answer"

	// TypeCandidate carries an ICE candidate.
	TypeCandidate MessageType = "candidate"

	// TypePeerJoined announces a new peer in the session.
	TypePeerJoined MessageType = "peer-joined"

	// TypePeerLeft announces a departed peer.
	TypePeerLeft MessageType = "peer-left"

	// TypeError reports a relay-side failure.
	TypeError MessageType = "error"
)

// Envelope is the unit of signaling exchange. Payload is opaque to the
// relay; it carries SDP or ICE material the peers interpret.
type Envelope struct {
	Type MessageType `json:"type"`

	// SessionID groups peers. Set on register only.
	SessionID string `json:"sessionId,omitempty"`

	// From is the sender's peer ID. Filled in by the relay on routed
	// messages.
	From string `json:"from,omitempty"`

	// To addresses a specific peer. Empty means broadcast to every
	// other peer in the session.
	To string `json:"to,omitempty"`

	// Payload is the opaque SDP or ICE body.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Peers lists existing session members. Set on registered only.
	Peers []string `json:"peers,omitempty"`

	// Reason describes an error. Set on error only.
	Reason string `json:"reason,omitempty"`
}
