// Package auth implements credential hashing and identifier derivation
// for VaultLink sessions.
//
// A vault secret never crosses a process boundary in cleartext. It is
// hashed once when entered and only the hex digest travels with
// requests; the executor compares digests, never secrets. The signaling
// session identifier is likewise derived from the vault's public
// identifier so the relay never learns the identifier itself.
package auth
