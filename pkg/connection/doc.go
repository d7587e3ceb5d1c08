// Package connection provides reconnection primitives for VaultLink
// channels: exponential backoff with jitter, and a bounded retrier.
//
// The remote transport drives its Reconnecting state with a Retrier:
// each attempt waits out the current backoff delay, then re-runs the
// signaling handshake. The attempt budget is bounded; once exhausted
// the channel closes for good and a new instance is required.
package connection
