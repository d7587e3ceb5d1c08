package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/log"
)

// Signaling errors.
var (
	ErrSignaling = errors.New("signaling error")
	ErrClosed    = errors.New("signaling client closed")
)

// registerTimeout bounds the wait for the relay's registration ack.
const registerTimeout = 10 * time.Second

// Client is a signaling relay client. Create with Dial, then call
// Register before sending. Incoming envelopes are delivered on the
// channel Register returns; when the read loop stops the channel is
// closed and Err reports the cause.
type Client struct {
	conn   *websocket.Conn
	peerID string
	logger log.Logger

	mu        sync.Mutex
	events    chan Envelope
	readErr   error
	closeOnce sync.Once
	closeCh   chan struct{}
}

// Dial connects to a signaling relay. Plain http/https schemes are
// rewritten to their WebSocket equivalents.
func Dial(ctx context.Context, rawURL string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid relay URL: %w", ErrSignaling, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrSignaling, u.Scheme)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrSignaling, u.String(), err)
	}

	return &Client{
		conn:    conn,
		peerID:  uuid.New().String(),
		logger:  log.NoopLogger{},
		closeCh: make(chan struct{}),
	}, nil
}

// PeerID returns this client's peer identifier.
func (c *Client) PeerID() string {
	return c.peerID
}

// SetLogger installs a trace logger for signaling envelopes. Set
// before Register; a nil logger disables capture.
func (c *Client) SetLogger(logger log.Logger) {
	c.logger = log.OrNoop(logger)
}

// Register joins the given session. It returns the peers already
// present and the channel on which subsequent envelopes arrive.
func (c *Client) Register(ctx context.Context, sessionID string) ([]string, <-chan Envelope, error) {
	err := c.write(Envelope{
		Type:      TypeRegister,
		SessionID: sessionID,
		From:      c.peerID,
	})
	if err != nil {
		return nil, nil, err
	}

	deadline := time.Now().Add(registerTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetReadDeadline(deadline)

	var ack Envelope
	if err := c.conn.ReadJSON(&ack); err != nil {
		return nil, nil, fmt.Errorf("%w: waiting for registration: %w", ErrSignaling, err)
	}
	_ = c.conn.SetReadDeadline(time.Time{})

	switch ack.Type {
	case TypeRegistered:
		c.logger.Log(log.NewSignalEvent(c.peerID, log.DirectionIn, string(ack.Type), ""))
	case TypeError:
		return nil, nil, fmt.Errorf("%w: registration rejected: %s", ErrSignaling, ack.Reason)
	default:
		return nil, nil, fmt.Errorf("%w: unexpected reply %q to register", ErrSignaling, ack.Type)
	}

	events := make(chan Envelope, 16)
	c.mu.Lock()
	c.events = events
	c.mu.Unlock()

	go c.readLoop(events)

	return ack.Peers, events, nil
}

// SendOffer sends an SDP offer. Empty to broadcasts to the session.
func (c *Client) SendOffer(to string, sdp []byte) error {
	return c.send(TypeOffer, to, sdp)
}

// SendAnswer sends an SDP answer to a specific peer.
func (c *Client) SendAnswer(to string, sdp []byte) error {
	return c.send(TypeAnswer, to, sdp)
}

// SendCandidate sends an ICE candidate to a specific peer.
func (c *Client) SendCandidate(to string, candidate []byte) error {
	return c.send(TypeCandidate, to, candidate)
}

func (c *Client) send(t MessageType, to string, payload []byte) error {
	return c.write(Envelope{
		Type:    t,
		From:    c.peerID,
		To:      to,
		Payload: json.RawMessage(payload),
	})
}

func (c *Client) write(env Envelope) error {
	select {
	case <-c.closeCh:
		return ErrClosed
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("%w: write: %w", ErrSignaling, err)
	}
	c.logger.Log(log.NewSignalEvent(c.peerID, log.DirectionOut, string(env.Type), env.To))
	return nil
}

// readLoop delivers envelopes until the connection fails or the
// client closes. The events channel is closed on exit.
func (c *Client) readLoop(events chan<- Envelope) {
	defer close(events)

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.mu.Lock()
			select {
			case <-c.closeCh:
				c.readErr = ErrClosed
			default:
				c.readErr = fmt.Errorf("%w: read: %w", ErrSignaling, err)
			}
			c.mu.Unlock()
			return
		}

		c.logger.Log(log.NewSignalEvent(c.peerID, log.DirectionIn, string(env.Type), env.From))

		select {
		case events <- env:
		case <-c.closeCh:
			return
		}
	}
}

// Err returns the reason the read loop stopped, or nil while running.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr == ErrClosed {
		return nil
	}
	return c.readErr
}

// Close shuts the client down. Safe to call multiple times.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}
