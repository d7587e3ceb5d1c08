package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/connection"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/log"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/protocol"
)

// Remote channel states.
type RemoteState int

const (
	// RemoteIdle indicates the channel has not been used.
	RemoteIdle RemoteState = iota

	// RemoteSignaling indicates peer negotiation in progress.
	RemoteSignaling

	// RemoteChannelOpen indicates the data channel is open but the
	// authentication probe has not completed.
	RemoteChannelOpen

	// RemoteActive indicates an authenticated, usable channel.
	RemoteActive

	// RemoteReconnecting indicates the link was lost and recovery
	// attempts are running.
	RemoteReconnecting

	// RemoteClosed indicates a permanently closed channel.
	RemoteClosed
)

// String returns the remote channel state name.
func (s RemoteState) String() string {
	switch s {
	case RemoteIdle:
		return "IDLE"
	case RemoteSignaling:
		return "SIGNALING"
	case RemoteChannelOpen:
		return "CHANNEL_OPEN"
	case RemoteActive:
		return "ACTIVE"
	case RemoteReconnecting:
		return "RECONNECTING"
	case RemoteClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// link is an established peer-to-peer data channel.
type link interface {
	Send(data []byte) error
	Close() error
}

// linkDialer establishes a link. Inbound frames arrive on onData;
// onClose fires once when the link is lost.
type linkDialer func(ctx context.Context, cfg RemoteConfig, onData func([]byte), onClose func(error)) (link, error)

// RemoteConfig configures a remote channel.
type RemoteConfig struct {
	// SignalURL is the WebSocket URL of the signaling relay.
	SignalURL string

	// VaultID identifies the vault; the signaling session ID is
	// derived from it.
	VaultID string

	// ICEServers lists STUN/TURN server URLs.
	ICEServers []string

	// SendTimeout bounds a command round-trip, including any wait
	// for an in-progress reconnection (default: 10s).
	SendTimeout time.Duration

	// HandshakeTimeout bounds one establishment attempt (default: 30s).
	HandshakeTimeout time.Duration

	// MaxReconnects is the attempt budget after link loss (default: 5).
	MaxReconnects int

	// Backoff tunes reconnection delays. Zero values select the
	// package defaults.
	Backoff connection.BackoffConfig

	// Logger captures protocol trace events. Nil disables capture.
	Logger log.Logger

	// Dialer overrides link establishment, for tests. Nil selects
	// the WebRTC dialer.
	Dialer linkDialer
}

// RemoteChannel reaches an executor on another machine through a
// peer-to-peer data channel. Commands carry correlation IDs; every
// response is delivered to the message handler and, when it answers
// an in-flight command, to the waiting Send call as well.
type RemoteChannel struct {
	config RemoteConfig
	dialer linkDialer
	logger log.Logger
	connID string

	authHash string

	// Lifetime context, cancelled on Disconnect.
	ctx    context.Context
	cancel context.CancelFunc

	state     atomic.Int32
	closeOnce sync.Once

	mu         sync.Mutex
	link       link
	gen        int
	activeGate chan struct{} // closed while ACTIVE
	pending    map[string]chan *protocol.Response

	handlerMu    sync.RWMutex
	msgHandler   MessageHandler
	closeHandler CloseHandler
}

// NewRemoteChannel creates a remote channel (not yet connected).
func NewRemoteChannel(config RemoteConfig) *RemoteChannel {
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 30 * time.Second
	}
	if config.MaxReconnects <= 0 {
		config.MaxReconnects = connection.DefaultMaxAttempts
	}

	dialer := config.Dialer
	if dialer == nil {
		dialer = dialPeerLink
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &RemoteChannel{
		config:     config,
		dialer:     dialer,
		logger:     log.OrNoop(config.Logger),
		connID:     uuid.New().String(),
		ctx:        ctx,
		cancel:     cancel,
		activeGate: make(chan struct{}),
		pending:    make(map[string]chan *protocol.Response),
	}
	r.state.Store(int32(RemoteIdle))
	return r
}

// State returns the current channel state.
func (r *RemoteChannel) State() RemoteState {
	return RemoteState(r.state.Load())
}

// SetMessageHandler implements Channel.
func (r *RemoteChannel) SetMessageHandler(h MessageHandler) {
	r.handlerMu.Lock()
	defer r.handlerMu.Unlock()
	r.msgHandler = h
}

// SetCloseHandler implements Channel.
func (r *RemoteChannel) SetCloseHandler(h CloseHandler) {
	r.handlerMu.Lock()
	defer r.handlerMu.Unlock()
	r.closeHandler = h
}

// Connect implements Channel. A failed initial establishment closes
// the channel; reconnection only covers loss of a link that was
// already active.
func (r *RemoteChannel) Connect(ctx context.Context, authHash string, status StatusFunc) error {
	if !r.state.CompareAndSwap(int32(RemoteIdle), int32(RemoteSignaling)) {
		if r.State() == RemoteClosed {
			return ErrClosed
		}
		return ErrAlreadyConnected
	}
	r.logState(RemoteIdle, RemoteSignaling, "")

	r.authHash = authHash
	notify(status, "Connecting...")

	if err := r.establish(ctx, status); err != nil {
		r.shutdown(err)
		return err
	}

	if !r.activate(RemoteChannelOpen) {
		return ErrClosed
	}
	notify(status, "Connected.")
	return nil
}

// establish runs one full establishment attempt: dial, probe,
// bootstrap. The channel is left in CHANNEL_OPEN on success.
func (r *RemoteChannel) establish(ctx context.Context, status StatusFunc) error {
	hctx, cancel := context.WithTimeout(ctx, r.config.HandshakeTimeout)
	defer cancel()

	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	lk, err := r.dialer(hctx, r.config, r.handleData, func(cause error) {
		r.linkClosed(gen, cause)
	})
	if err != nil {
		r.logger.Log(log.NewErrorEvent(r.connID, log.TransportRemote, "dial", err))
		return err
	}

	r.mu.Lock()
	if RemoteState(r.state.Load()) == RemoteClosed {
		// A Disconnect raced the dial; the freshly dialed link must
		// not outlive the channel.
		r.mu.Unlock()
		lk.Close()
		return ErrClosed
	}
	r.link = lk
	r.mu.Unlock()

	// Only the initial establishment surfaces CHANNEL_OPEN; during
	// reconnection the channel stays RECONNECTING until active, so
	// waiting senders keep holding on the gate.
	if r.state.CompareAndSwap(int32(RemoteSignaling), int32(RemoteChannelOpen)) {
		r.logState(RemoteSignaling, RemoteChannelOpen, "")
	}

	// Authentication probe. The reply must be the CONNECTED push;
	// anything else means the far side rejected the token or is not
	// a vault executor.
	resp, err := r.roundTrip(hctx, protocol.CmdPing, nil)
	if err != nil {
		lk.Close()
		return err
	}
	if resp.Type != protocol.TypeConnected {
		lk.Close()
		return fmt.Errorf("%w: probe reply %q is not CONNECTED", ErrAuthentication, resp.Type)
	}

	notify(status, "Authenticated. Loading vault...")

	if err := runBootstrap(hctx, r.roundTrip); err != nil {
		lk.Close()
		return err
	}
	return nil
}

// activate transitions to ACTIVE and releases waiting senders. It
// reports false when a concurrent shutdown already closed the channel;
// CLOSED is terminal and must not be overwritten.
func (r *RemoteChannel) activate(from RemoteState) bool {
	r.mu.Lock()
	if RemoteState(r.state.Load()) == RemoteClosed {
		r.mu.Unlock()
		return false
	}
	r.state.Store(int32(RemoteActive))
	close(r.activeGate)
	r.mu.Unlock()
	r.logState(from, RemoteActive, "")
	return true
}

// Send implements Channel. During reconnection, Send waits for the
// channel to become active again for at most SendTimeout; nothing is
// queued.
func (r *RemoteChannel) Send(ctx context.Context, cmd protocol.CommandName, payload map[string]any) (*protocol.Response, error) {
	// One deadline covers the whole call: any wait for reconnection
	// eats into the round-trip budget, never doubles it.
	deadline := time.Now().Add(r.config.SendTimeout)

	for {
		switch r.State() {
		case RemoteActive:
			sctx, cancel := context.WithDeadline(ctx, deadline)
			resp, err := r.roundTrip(sctx, cmd, payload)
			cancel()
			return resp, err
		case RemoteReconnecting:
			r.mu.Lock()
			gate := r.activeGate
			r.mu.Unlock()

			select {
			case <-gate:
				// Re-check state; the gate also opens on activation
				// after we read it.
			case <-time.After(time.Until(deadline)):
				return nil, fmt.Errorf("%w: channel reconnecting", ErrTimeout)
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-r.ctx.Done():
				return nil, ErrClosed
			}
		case RemoteClosed:
			return nil, ErrClosed
		default:
			return nil, ErrNotConnected
		}
	}
}

// Refresh implements Channel.
func (r *RemoteChannel) Refresh(ctx context.Context) error {
	_, err := r.Send(ctx, protocol.CmdGetTree, nil)
	return err
}

// Disconnect implements Channel.
func (r *RemoteChannel) Disconnect() error {
	r.shutdown(nil)
	return nil
}

// roundTrip sends one command over the current link and waits for the
// correlated reply. Used both for regular sends and during
// establishment, so it does not require ACTIVE state.
func (r *RemoteChannel) roundTrip(ctx context.Context, cmd protocol.CommandName, payload map[string]any) (*protocol.Response, error) {
	id := uuid.New().String()

	body, err := protocol.EncodeRequest(id, cmd, r.authHash, payload)
	if err != nil {
		return nil, err
	}

	respCh := make(chan *protocol.Response, 1)

	r.mu.Lock()
	lk := r.link
	if lk == nil {
		r.mu.Unlock()
		return nil, ErrNotConnected
	}
	r.pending[id] = respCh
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}()

	r.logSend(cmd, id, len(body))
	if err := lk.Send(body); err != nil {
		err = fmt.Errorf("%w: %w", ErrTransport, err)
		r.logger.Log(log.NewErrorEvent(r.connID, log.TransportRemote, string(cmd), err))
		return nil, err
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
		return nil, ctx.Err()
	case <-time.After(r.config.SendTimeout):
		return nil, fmt.Errorf("%w: no reply to %s", ErrTimeout, cmd)
	case resp, ok := <-respCh:
		if !ok {
			return nil, fmt.Errorf("%w: link lost while awaiting reply", ErrTransport)
		}
		return resp, nil
	}
}

func (r *RemoteChannel) logSend(cmd protocol.CommandName, id string, size int) {
	r.logger.Log(log.NewCommandEvent(r.connID, log.TransportRemote, string(cmd), id, size))
}

// handleData decodes an inbound frame, delivers it to the message
// handler, and resolves a pending send when the ID matches one.
func (r *RemoteChannel) handleData(data []byte) {
	resp, err := protocol.DecodeResponse(data)
	if err != nil {
		r.logger.Log(log.NewErrorEvent(r.connID, log.TransportRemote, "decode", err))
		return
	}
	r.logger.Log(log.NewResponseEvent(r.connID, log.TransportRemote, resp.Type, resp.ID, len(data)))

	r.handlerMu.RLock()
	handler := r.msgHandler
	r.handlerMu.RUnlock()
	if handler != nil {
		handler(resp)
	}

	if resp.ID == "" {
		return
	}

	r.mu.Lock()
	ch := r.pending[resp.ID]
	delete(r.pending, resp.ID)
	r.mu.Unlock()

	if ch != nil {
		select {
		case ch <- resp:
		default:
		}
	}
}

// linkClosed handles loss of the current link. Only an ACTIVE link
// triggers reconnection; during establishment the dialing path owns
// the link and handles its failures itself. Stale notifications from
// links already replaced by reconnection are ignored.
func (r *RemoteChannel) linkClosed(gen int, cause error) {
	r.mu.Lock()
	if gen != r.gen || r.State() != RemoteActive {
		r.mu.Unlock()
		return
	}
	r.link = nil
	r.state.Store(int32(RemoteReconnecting))
	r.activeGate = make(chan struct{})
	r.failPendingLocked()
	r.mu.Unlock()

	reason := "link lost"
	if cause != nil {
		reason = cause.Error()
	}
	r.logState(RemoteActive, RemoteReconnecting, reason)

	go r.reconnectLoop(cause)
}

// failPendingLocked aborts every in-flight send. Callers hold r.mu.
func (r *RemoteChannel) failPendingLocked() {
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
}

// reconnectLoop re-establishes the link with bounded, backed-off
// attempts. An authentication failure aborts immediately; the token
// will not become valid by retrying.
func (r *RemoteChannel) reconnectLoop(cause error) {
	retrier := connection.NewRetrier(connection.NewBackoffWithConfig(r.config.Backoff), r.config.MaxReconnects)
	retrier.OnAttempt(func(attempt int, delay time.Duration) {
		r.logger.Log(log.NewStateChangeEvent(r.connID, log.TransportRemote,
			RemoteReconnecting.String(), RemoteReconnecting.String(),
			fmt.Sprintf("reconnect attempt %d/%d", attempt, r.config.MaxReconnects)))
	})

	epCtx, epCancel := context.WithCancel(r.ctx)
	defer epCancel()

	var terminal error
	err := retrier.Do(epCtx, func(ctx context.Context) error {
		err := r.establish(ctx, nil)
		if errors.Is(err, ErrAuthentication) {
			terminal = err
			epCancel()
		}
		return err
	})

	switch {
	case terminal != nil:
		r.shutdown(terminal)
	case err == nil:
		r.activate(RemoteReconnecting)
	case errors.Is(err, context.Canceled) && r.ctx.Err() != nil:
		// Disconnected while reconnecting; shutdown already ran.
	default:
		if cause != nil {
			err = fmt.Errorf("%w (link lost: %w)", err, cause)
		}
		r.shutdown(err)
	}
}

// shutdown closes the channel for good. The close handler fires once
// with the cause, nil for a deliberate Disconnect.
func (r *RemoteChannel) shutdown(cause error) {
	r.closeOnce.Do(func() {
		old := r.State()
		r.cancel()

		r.mu.Lock()
		lk := r.link
		r.link = nil
		r.state.Store(int32(RemoteClosed))
		r.failPendingLocked()
		r.mu.Unlock()

		if lk != nil {
			lk.Close()
		}

		reason := "disconnect"
		if cause != nil {
			reason = cause.Error()
		}
		r.logState(old, RemoteClosed, reason)

		r.handlerMu.RLock()
		handler := r.closeHandler
		r.handlerMu.RUnlock()
		if handler != nil {
			handler(cause)
		}
	})
}

func (r *RemoteChannel) logState(oldState, newState RemoteState, reason string) {
	r.logger.Log(log.NewStateChangeEvent(r.connID, log.TransportRemote, oldState.String(), newState.String(), reason))
}
