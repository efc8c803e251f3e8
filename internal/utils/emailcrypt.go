package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Email addresses are confidentiality-sensitive, so the accounts table never
// stores them in the clear.  Each address is kept twice: an AES-256-GCM
// ciphertext for display after decryption, and a deterministic HMAC-SHA256
// digest (separate key) that supports equality lookups without revealing the
// address.

// deriveKey always produces a 32-byte key so the configured key string does
// not have to be exactly 32 characters.
func deriveKey(keyStr string) []byte {
	sum := sha256.Sum256([]byte(keyStr))
	return sum[:]
}

// NormalizeEmail lower-cases and trims an address before hashing or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EncryptEmail encrypts a normalized address with AES-256-GCM and returns
// base64(nonce || ciphertext).
func EncryptEmail(keyStr, email string) (string, error) {
	key := deriveKey(keyStr)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}
	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	ct := aesgcm.Seal(nil, nonce, []byte(NormalizeEmail(email)), nil)
	return base64.RawStdEncoding.EncodeToString(append(nonce, ct...)), nil
}

// DecryptEmail reverses EncryptEmail.  Input must be base64(nonce||ciphertext).
func DecryptEmail(keyStr, enc string) (string, error) {
	data, err := base64.RawStdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	key := deriveKey(keyStr)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}
	ns := aesgcm.NonceSize()
	if len(data) < ns {
		return "", fmt.Errorf("cipher too short")
	}
	plain, err := aesgcm.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}

// EmailLookupHash returns the deterministic HMAC-SHA256 hex digest of the
// normalized address.  The hash key must differ from the encryption key.
func EmailLookupHash(keyStr, email string) string {
	mac := hmac.New(sha256.New, []byte(keyStr))
	mac.Write([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(mac.Sum(nil))
}
