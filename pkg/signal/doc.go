// Package signal implements the WebSocket signaling layer used to
// establish remote peer-to-peer channels.
//
// Peers register under a session ID derived from the vault ID and
// exchange opaque SDP offers, answers and ICE candidates through a
// relay. The relay (Relay, an http.Handler) never inspects payloads;
// it only routes envelopes between peers of the same session and
// announces membership changes.
//
// The Client side dials the relay, registers, and exposes incoming
// envelopes on a channel. Outgoing messages are addressed to a peer ID
// or broadcast to the whole session when no addressee is set.
package signal
