package utils

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for single-use tokens
	"encoding/hex"  // hex encoding for token strings
)

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.  It produces the password-reset and
// email-verification link tokens (48 bytes -> 96 hex chars).
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the SHA-256 hash of a raw link token as a hex string.
// Only the hash is stored, so a leaked database row cannot be replayed as a
// working reset link.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
