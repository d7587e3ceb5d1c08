package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/auth"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/config"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/protocol"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/transport"
)

// Session states.
type State int

const (
	// StateDisconnected indicates no active channel.
	StateDisconnected State = iota

	// StateAuthenticating indicates connection setup in progress.
	StateAuthenticating

	// StateConnected indicates an active, authenticated channel.
	StateConnected

	// StateFailed indicates the channel was lost without a disconnect.
	StateFailed
)

// String returns the session state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateConnected:
		return "CONNECTED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Session errors.
var (
	// ErrRemoteDisabled indicates remote mode without the entitlement
	// flag set.
	ErrRemoteDisabled = errors.New("remote mode is not enabled")

	// ErrConnectInProgress indicates Connect while already
	// authenticating or connected.
	ErrConnectInProgress = errors.New("connect already in progress or done")
)

// ChannelFactory builds the channel a Connect call will use. The
// default factory follows the configuration; tests substitute fakes.
type ChannelFactory func(cfg *config.Config) (transport.Channel, error)

// Controller owns at most one active channel and mediates
// authentication, sending, and teardown for it.
//
// A Controller is reusable: after Disconnect (or a channel failure) a
// new Connect builds a fresh channel.
type Controller struct {
	cfg        *config.Config
	newChannel ChannelFactory

	state atomic.Int32

	mu      sync.RWMutex
	channel transport.Channel

	handlerMu    sync.RWMutex
	msgHandler   transport.MessageHandler
	closeHandler transport.CloseHandler
}

// NewController creates a session controller. A nil factory selects
// the configuration-driven default.
func NewController(cfg *config.Config, factory ChannelFactory) *Controller {
	if factory == nil {
		factory = DefaultChannelFactory
	}
	c := &Controller{
		cfg:        cfg,
		newChannel: factory,
	}
	c.state.Store(int32(StateDisconnected))
	return c
}

// State returns the current session state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// SetMessageHandler installs the handler every response is delivered
// to. Set before Connect.
func (c *Controller) SetMessageHandler(h transport.MessageHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.msgHandler = h
}

// SetCloseHandler installs the handler invoked when the channel
// closes, with the cause or nil for a deliberate disconnect.
func (c *Controller) SetCloseHandler(h transport.CloseHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.closeHandler = h
}

// Connect hashes the secret, builds the configured channel, and
// establishes it. The plaintext secret never leaves this call; only
// its hash is retained by the channel. Transport errors pass through
// unwrapped.
func (c *Controller) Connect(ctx context.Context, secret string, status transport.StatusFunc) error {
	allowed := c.state.CompareAndSwap(int32(StateDisconnected), int32(StateAuthenticating)) ||
		c.state.CompareAndSwap(int32(StateFailed), int32(StateAuthenticating))
	if !allowed {
		return ErrConnectInProgress
	}

	authHash, err := auth.HashSecret(secret)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return err
	}

	channel, err := c.newChannel(c.cfg)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return err
	}

	channel.SetMessageHandler(c.dispatch)
	channel.SetCloseHandler(c.channelClosed)

	if err := channel.Connect(ctx, authHash, status); err != nil {
		c.state.Store(int32(StateDisconnected))
		return err
	}

	c.mu.Lock()
	c.channel = channel
	c.mu.Unlock()
	c.state.Store(int32(StateConnected))
	return nil
}

// Send issues a command over the active channel. A disconnected
// session fails without any I/O.
func (c *Controller) Send(ctx context.Context, cmd protocol.CommandName, payload map[string]any) (*protocol.Response, error) {
	if c.State() != StateConnected {
		return nil, transport.ErrNotConnected
	}

	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()
	if channel == nil {
		return nil, transport.ErrNotConnected
	}
	return channel.Send(ctx, cmd, payload)
}

// Refresh re-issues GET_TREE so the handler receives a fresh tree.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.State() != StateConnected {
		return transport.ErrNotConnected
	}

	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()
	if channel == nil {
		return transport.ErrNotConnected
	}
	return channel.Refresh(ctx)
}

// Disconnect tears down the active channel unconditionally and
// resets to DISCONNECTED. Idempotent.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	channel := c.channel
	c.channel = nil
	c.mu.Unlock()

	c.state.Store(int32(StateDisconnected))

	if channel != nil {
		return channel.Disconnect()
	}
	return nil
}

// dispatch forwards a response to the application handler.
func (c *Controller) dispatch(resp *protocol.Response) {
	c.handlerMu.RLock()
	handler := c.msgHandler
	c.handlerMu.RUnlock()
	if handler != nil {
		handler(resp)
	}
}

// channelClosed reacts to the channel closing underneath the session.
// A close with a cause while connected marks the session FAILED; the
// nil close after our own Disconnect is already handled there.
func (c *Controller) channelClosed(err error) {
	if err != nil {
		c.state.CompareAndSwap(int32(StateConnected), int32(StateFailed))
	}

	c.handlerMu.RLock()
	handler := c.closeHandler
	c.handlerMu.RUnlock()
	if handler != nil {
		handler(err)
	}
}
