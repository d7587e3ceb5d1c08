package transport

import (
	"context"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/protocol"
)

// StatusFunc receives human-readable progress text during channel
// establishment ("Connecting...", "Connected.").
type StatusFunc func(text string)

// MessageHandler receives every response the executor delivers,
// including pushes and replies that a Send call is also waiting on.
type MessageHandler func(resp *protocol.Response)

// CloseHandler is invoked once when a channel closes for good, with
// the cause, or nil after a deliberate Disconnect.
type CloseHandler func(err error)

// Channel is a command channel to a vault executor.
//
// A channel is single-use: after Disconnect, or after a remote
// channel exhausts its reconnection budget, it cannot be reconnected.
type Channel interface {
	// Connect establishes the channel: authentication probe, then the
	// bootstrap batch. The status callback may be nil.
	Connect(ctx context.Context, authHash string, status StatusFunc) error

	// Send issues a command and waits for its reply. The reply is
	// also delivered to the message handler.
	Send(ctx context.Context, cmd protocol.CommandName, payload map[string]any) (*protocol.Response, error)

	// Refresh re-issues GET_TREE so the handler receives a fresh
	// vault tree.
	Refresh(ctx context.Context) error

	// SetMessageHandler installs the response handler. Set before
	// Connect; pushes can arrive from establishment onward.
	SetMessageHandler(h MessageHandler)

	// SetCloseHandler installs the terminal close handler.
	SetCloseHandler(h CloseHandler)

	// Disconnect closes the channel. Idempotent.
	Disconnect() error
}

// Compile-time interface checks.
var (
	_ Channel = (*LocalChannel)(nil)
	_ Channel = (*RemoteChannel)(nil)
)
