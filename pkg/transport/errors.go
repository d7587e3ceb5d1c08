package transport

import "errors"

// Channel errors.
var (
	// ErrAuthentication indicates the executor rejected the access
	// token, or the probe reply came from something that is not a
	// vault executor.
	ErrAuthentication = errors.New("authentication failed")

	// ErrNetwork indicates the executor could not be reached.
	ErrNetwork = errors.New("network unreachable")

	// ErrTransport indicates an established channel failed mid-exchange.
	ErrTransport = errors.New("transport failure")

	// ErrTimeout indicates a command round-trip exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrNotConnected indicates a send on a channel that is not active.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates Connect on an already used channel.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrClosed indicates the channel is permanently closed.
	ErrClosed = errors.New("channel closed")
)
