package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// TokenLength is the length of a credential token in hex characters.
const TokenLength = sha256.Size * 2

// SessionIDLength is the length of a derived session identifier in hex
// characters.
const SessionIDLength = 32

// ErrCryptoUnavailable indicates the digest primitive failed. It is
// fatal: connection setup must abort before any network activity.
var ErrCryptoUnavailable = errors.New("crypto unavailable")

// HashSecret derives the opaque authentication token from a vault
// secret. The transform is deterministic and one-way: the same secret
// always yields the same 64-character lowercase hex token, and the
// secret cannot be recovered from it.
func HashSecret(secret string) (string, error) {
	h := sha256.New()
	if _, err := h.Write([]byte(secret)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sessionIDPrefix domain-separates session identifiers from other
// digests of the same vault identifier.
const sessionIDPrefix = "vaultlink-session:"

// DeriveSessionID maps a vault's public identifier to the identifier
// used to register with the signaling relay. Both peers derive the same
// value independently; the relay only ever sees the derived form.
func DeriveSessionID(vaultID string) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	h.Write([]byte(sessionIDPrefix))
	h.Write([]byte(vaultID))
	return hex.EncodeToString(h.Sum(nil))[:SessionIDLength], nil
}
