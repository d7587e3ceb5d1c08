package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/log"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/protocol"
)

// Local channel states.
type LocalState int

const (
	// LocalDisconnected indicates no connection.
	LocalDisconnected LocalState = iota

	// LocalConnecting indicates establishment in progress.
	LocalConnecting

	// LocalConnected indicates an active channel.
	LocalConnected

	// LocalClosed indicates a permanently closed channel.
	LocalClosed
)

// String returns the local channel state name.
func (s LocalState) String() string {
	switch s {
	case LocalDisconnected:
		return "DISCONNECTED"
	case LocalConnecting:
		return "CONNECTING"
	case LocalConnected:
		return "CONNECTED"
	case LocalClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// maxResponseSize caps a single executor reply (16 MB). Rendered
// files with embedded resources can get large; anything beyond this
// is a protocol violation.
const maxResponseSize = 16 << 20

// LocalConfig configures a local channel.
type LocalConfig struct {
	// Address is the executor host:port.
	Address string

	// SendTimeout bounds a single command round-trip (default: 10s).
	SendTimeout time.Duration

	// Logger captures protocol trace events. Nil disables capture.
	Logger log.Logger

	// ThemeFunc, when set, receives the probe reply's data so the
	// hosting application can apply executor-provided theming.
	ThemeFunc func(data map[string]any)

	// HTTPClient overrides the default client, for tests.
	HTTPClient *http.Client
}

// LocalChannel is a loopback channel speaking HTTP to an executor on
// the same machine. Every command is one POST round-trip; there is no
// connection to lose, so no reconnection machinery exists.
type LocalChannel struct {
	config LocalConfig
	client *http.Client
	logger log.Logger
	connID string

	authHash string

	// Lifetime context, cancelled on Disconnect so in-flight requests
	// abort immediately.
	ctx    context.Context
	cancel context.CancelFunc

	state     atomic.Int32
	closeOnce sync.Once

	mu           sync.RWMutex
	msgHandler   MessageHandler
	closeHandler CloseHandler
}

// NewLocalChannel creates a local channel (not yet connected).
func NewLocalChannel(config LocalConfig) *LocalChannel {
	if config.SendTimeout <= 0 {
		config.SendTimeout = 10 * time.Second
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &LocalChannel{
		config: config,
		client: client,
		logger: log.OrNoop(config.Logger),
		connID: uuid.New().String(),
		ctx:    ctx,
		cancel: cancel,
	}
	c.state.Store(int32(LocalDisconnected))
	return c
}

// State returns the current channel state.
func (c *LocalChannel) State() LocalState {
	return LocalState(c.state.Load())
}

// SetMessageHandler implements Channel.
func (c *LocalChannel) SetMessageHandler(h MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgHandler = h
}

// SetCloseHandler implements Channel.
func (c *LocalChannel) SetCloseHandler(h CloseHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeHandler = h
}

// Connect implements Channel.
func (c *LocalChannel) Connect(ctx context.Context, authHash string, status StatusFunc) error {
	if !c.state.CompareAndSwap(int32(LocalDisconnected), int32(LocalConnecting)) {
		if c.State() == LocalClosed {
			return ErrClosed
		}
		return ErrAlreadyConnected
	}
	c.logState(LocalDisconnected, LocalConnecting, "")

	c.authHash = authHash
	notify(status, "Connecting...")

	// Authentication probe. The reply must be the CONNECTED push; an
	// HTTP server that answers anything else is not a vault executor.
	resp, err := c.roundTrip(ctx, protocol.CmdPing, nil)
	if err != nil {
		c.failConnect(err)
		return err
	}
	if resp.Type != protocol.TypeConnected {
		err := fmt.Errorf("%w: probe reply %q is not CONNECTED", ErrAuthentication, resp.Type)
		c.failConnect(err)
		return err
	}
	if c.config.ThemeFunc != nil && resp.Data != nil {
		c.config.ThemeFunc(resp.Data)
	}

	notify(status, "Authenticated. Loading vault...")

	if err := runBootstrap(ctx, c.roundTrip); err != nil {
		c.failConnect(err)
		return err
	}

	// A Disconnect that landed during the probe or bootstrap wins;
	// the channel must not come back from CLOSED.
	if !c.state.CompareAndSwap(int32(LocalConnecting), int32(LocalConnected)) {
		return ErrClosed
	}
	c.logState(LocalConnecting, LocalConnected, "")
	notify(status, "Connected.")
	return nil
}

func (c *LocalChannel) failConnect(err error) {
	if c.state.CompareAndSwap(int32(LocalConnecting), int32(LocalDisconnected)) {
		c.logState(LocalConnecting, LocalDisconnected, err.Error())
	}
	c.logger.Log(log.NewErrorEvent(c.connID, log.TransportLocal, "connect", err))
}

// Send implements Channel.
func (c *LocalChannel) Send(ctx context.Context, cmd protocol.CommandName, payload map[string]any) (*protocol.Response, error) {
	switch c.State() {
	case LocalConnected:
	case LocalClosed:
		return nil, ErrClosed
	default:
		return nil, ErrNotConnected
	}
	return c.roundTrip(ctx, cmd, payload)
}

// Refresh implements Channel.
func (c *LocalChannel) Refresh(ctx context.Context) error {
	_, err := c.Send(ctx, protocol.CmdGetTree, nil)
	return err
}

// Disconnect implements Channel.
func (c *LocalChannel) Disconnect() error {
	c.closeOnce.Do(func() {
		old := c.State()
		c.state.Store(int32(LocalClosed))
		c.logState(old, LocalClosed, "disconnect")
		c.cancel()
		c.client.CloseIdleConnections()

		c.mu.RLock()
		handler := c.closeHandler
		c.mu.RUnlock()
		if handler != nil {
			handler(nil)
		}
	})
	return nil
}

// roundTrip posts one command and decodes the reply. The reply is
// delivered to the message handler before being returned.
func (c *LocalChannel) roundTrip(ctx context.Context, cmd protocol.CommandName, payload map[string]any) (*protocol.Response, error) {
	id := uuid.New().String()

	body, err := protocol.EncodeRequest(id, cmd, c.authHash, payload)
	if err != nil {
		return nil, err
	}
	c.logger.Log(log.NewCommandEvent(c.connID, log.TransportLocal, string(cmd), id, len(body)))

	ctx, cancel := context.WithTimeout(ctx, c.config.SendTimeout)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+c.config.Address+"/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		if c.ctx.Err() != nil {
			err = ErrClosed
		} else {
			err = classifyTransportErr(err)
		}
		c.logger.Log(log.NewErrorEvent(c.connID, log.TransportLocal, string(cmd), err))
		return nil, err
	}
	defer httpResp.Body.Close()

	switch httpResp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		err := fmt.Errorf("%w: executor returned %s", ErrAuthentication, httpResp.Status)
		c.logger.Log(log.NewErrorEvent(c.connID, log.TransportLocal, string(cmd), err))
		return nil, err
	default:
		err := fmt.Errorf("%w: executor returned %s", ErrTransport, httpResp.Status)
		c.logger.Log(log.NewErrorEvent(c.connID, log.TransportLocal, string(cmd), err))
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		if c.ctx.Err() != nil {
			return nil, ErrClosed
		}
		return nil, classifyTransportErr(err)
	}

	resp, err := protocol.DecodeResponse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	c.logger.Log(log.NewResponseEvent(c.connID, log.TransportLocal, resp.Type, resp.ID, len(data)))

	c.mu.RLock()
	handler := c.msgHandler
	c.mu.RUnlock()
	if handler != nil {
		handler(resp)
	}

	return resp, nil
}

func (c *LocalChannel) logState(oldState, newState LocalState, reason string) {
	c.logger.Log(log.NewStateChangeEvent(c.connID, log.TransportLocal, oldState.String(), newState.String(), reason))
}

// classifyTransportErr maps low-level failures onto channel errors.
func classifyTransportErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
}

func notify(status StatusFunc, text string) {
	if status != nil {
		status(text)
	}
}
