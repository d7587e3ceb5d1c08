// Package transport implements the VaultLink channels that carry
// commands to a vault executor.
//
// Two channel kinds exist. The local channel speaks HTTP to an
// executor on the loopback interface; every command is a single POST
// round-trip. The remote channel reaches an executor on another
// machine through a WebRTC data channel, established via a signaling
// relay, with correlation IDs matching responses to in-flight
// commands and automatic reconnection after link loss.
//
// Both kinds implement Channel and follow the same establishment
// sequence: a PING authentication probe whose reply must be the
// CONNECTED push, then the bootstrap batch (GET_TREE, LOAD_TAGS,
// LOAD_GRAPH) that primes the caller's vault model. Only the SHA-256
// token derived by pkg/auth ever crosses the channel.
package transport
