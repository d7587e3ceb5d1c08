package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/log"
)

func startRelay(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(NewRelay(nil))
	t.Cleanup(srv.Close)
	return srv.URL
}

func dialAndRegister(t *testing.T, url, session string) (*Client, []string, <-chan Envelope) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	peers, events, err := c.Register(ctx, session)
	require.NoError(t, err)
	return c, peers, events
}

func waitFor(t *testing.T, events <-chan Envelope, want MessageType) Envelope {
	t.Helper()
	for {
		select {
		case env, ok := <-events:
			if !ok {
				t.Fatalf("events channel closed while waiting for %q", want)
			}
			if env.Type == want {
				return env
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestRegister(t *testing.T) {
	url := startRelay(t)

	a, peers, eventsA := dialAndRegister(t, url, "session-1")
	assert.Empty(t, peers)

	b, peers, _ := dialAndRegister(t, url, "session-1")
	require.Len(t, peers, 1)
	assert.Equal(t, a.PeerID(), peers[0])

	joined := waitFor(t, eventsA, TypePeerJoined)
	assert.Equal(t, b.PeerID(), joined.From)
}

func TestOfferAnswerCandidate(t *testing.T) {
	url := startRelay(t)

	a, _, eventsA := dialAndRegister(t, url, "session-1")
	b, _, eventsB := dialAndRegister(t, url, "session-1")
	waitFor(t, eventsA, TypePeerJoined)

	// Broadcast offer from A reaches B with A's identity.
	require.NoError(t, a.SendOffer("", json.RawMessage(`{"sdp":"offer-sdp"}`)))
	offer := waitFor(t, eventsB, TypeOffer)
	assert.Equal(t, a.PeerID(), offer.From)
	assert.JSONEq(t, `{"sdp":"offer-sdp"}`, string(offer.Payload))

	// Directed answer from B reaches A.
	require.NoError(t, b.SendAnswer(a.PeerID(), json.RawMessage(`{"sdp":"answer-sdp"}`)))
	answer := waitFor(t, eventsA, TypeAnswer)
	assert.Equal(t, b.PeerID(), answer.From)

	require.NoError(t, b.SendCandidate(a.PeerID(), json.RawMessage(`{"candidate":"c1"}`)))
	cand := waitFor(t, eventsA, TypeCandidate)
	assert.JSONEq(t, `{"candidate":"c1"}`, string(cand.Payload))
}

func TestSessionIsolation(t *testing.T) {
	url := startRelay(t)

	_, _, eventsA := dialAndRegister(t, url, "session-1")
	_, peers, _ := dialAndRegister(t, url, "session-2")
	assert.Empty(t, peers)

	// A peer joining another session must not be announced to A.
	select {
	case env := <-eventsA:
		t.Fatalf("unexpected envelope across sessions: %+v", env)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPeerLeft(t *testing.T) {
	url := startRelay(t)

	_, _, eventsA := dialAndRegister(t, url, "session-1")
	b, _, _ := dialAndRegister(t, url, "session-1")
	waitFor(t, eventsA, TypePeerJoined)

	require.NoError(t, b.Close())
	left := waitFor(t, eventsA, TypePeerLeft)
	assert.Equal(t, b.PeerID(), left.From)
}

func TestDroppedEnvelopeForUnknownPeer(t *testing.T) {
	url := startRelay(t)

	a, _, eventsA := dialAndRegister(t, url, "session-1")

	// Routing to a nonexistent peer is silently dropped; the
	// connection stays healthy.
	require.NoError(t, a.SendAnswer("no-such-peer", json.RawMessage(`{}`)))
	require.NoError(t, a.SendOffer("", json.RawMessage(`{}`)))

	select {
	case env := <-eventsA:
		t.Fatalf("unexpected envelope: %+v", env)
	case <-time.After(200 * time.Millisecond):
	}
	assert.NoError(t, a.Err())
}

// captureLogger records trace events for inspection.
type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *captureLogger) Log(e log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *captureLogger) snapshot() []log.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]log.Event(nil), l.events...)
}

func (l *captureLogger) find(dir log.Direction, envType string) *log.Event {
	for _, e := range l.snapshot() {
		if e.Direction == dir && e.Signal != nil && e.Signal.Type == envType {
			return &e
		}
	}
	return nil
}

func TestClientTraceEvents(t *testing.T) {
	url := startRelay(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, err := Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	trace := &captureLogger{}
	a.SetLogger(trace)

	_, eventsA, err := a.Register(ctx, "session-1")
	require.NoError(t, err)

	b, _, eventsB := dialAndRegister(t, url, "session-1")
	waitFor(t, eventsA, TypePeerJoined)

	require.NoError(t, a.SendOffer(b.PeerID(), json.RawMessage(`{"sdp":"offer-sdp"}`)))
	waitFor(t, eventsB, TypeOffer)
	require.NoError(t, b.SendAnswer(a.PeerID(), json.RawMessage(`{"sdp":"answer-sdp"}`)))
	waitFor(t, eventsA, TypeAnswer)

	for _, e := range trace.snapshot() {
		assert.Equal(t, log.CategorySignal, e.Category)
		assert.Equal(t, log.TransportRemote, e.Transport)
		assert.Equal(t, a.PeerID(), e.ConnectionID)
		require.NotNil(t, e.Signal)
	}

	// Outbound envelopes carry the destination peer.
	register := trace.find(log.DirectionOut, string(TypeRegister))
	require.NotNil(t, register, "register not traced")

	offer := trace.find(log.DirectionOut, string(TypeOffer))
	require.NotNil(t, offer, "offer not traced")
	assert.Equal(t, b.PeerID(), offer.Signal.Peer)

	// Inbound envelopes carry the sender.
	require.NotNil(t, trace.find(log.DirectionIn, string(TypeRegistered)), "registered ack not traced")
	require.NotNil(t, trace.find(log.DirectionIn, string(TypePeerJoined)), "peer-joined not traced")

	answer := trace.find(log.DirectionIn, string(TypeAnswer))
	require.NotNil(t, answer, "answer not traced")
	assert.Equal(t, b.PeerID(), answer.Signal.Peer)
}

func TestDialSchemes(t *testing.T) {
	url := startRelay(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// httptest URLs are http; Dial must rewrite the scheme.
	c, err := Dial(ctx, url)
	require.NoError(t, err)
	_ = c.Close()

	_, err = Dial(ctx, "ftp://example.org")
	assert.ErrorIs(t, err, ErrSignaling)
}

func TestCloseIdempotent(t *testing.T) {
	url := startRelay(t)

	c, _, _ := dialAndRegister(t, url, "session-1")
	require.NoError(t, c.Close())
	assert.NoError(t, c.Err())

	// Second close and post-close send must not panic.
	_ = c.Close()
	assert.ErrorIs(t, c.SendOffer("", json.RawMessage(`{}`)), ErrClosed)
}
