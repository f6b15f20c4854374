// Package cryptoutil implements the at-rest secret encryption, HMAC
// signing, and peppered hashing primitives spec.md §9 and §6 call for.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// encPrefixV1 is the versioned prefix spec.md §9 requires so that a
// re-encryption job can detect ciphertext version without guessing.
const encPrefixV1 = "enc:v1:"

// Encryptor wraps an AES-256-GCM key for at-rest encryption of secrets
// such as MFA TOTP seeds and mTLS private keys in transit storage.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor builds an Encryptor from a 32-byte key. Keys shorter
// than 32 bytes are rejected rather than silently padded.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// Encrypt returns ciphertext prefixed with "enc:v1:" and base64-encoded.
func (e *Encryptor) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	return encPrefixV1 + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It rejects values that don't carry the
// expected version prefix so that a key-rotation job can find
// unmigrated rows instead of silently misinterpreting them.
func (e *Encryptor) Decrypt(encoded string) ([]byte, error) {
	rest, ok := strings.CutPrefix(encoded, encPrefixV1)
	if !ok {
		return nil, errors.New("unrecognized ciphertext version")
	}
	sealed, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	nonceSize := e.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ct := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return plaintext, nil
}

// IsEncoded reports whether s carries the current versioned prefix.
func IsEncoded(s string) bool {
	return strings.HasPrefix(s, encPrefixV1)
}

// HMACSignHex computes hex(HMAC-SHA256(secret, body)), the webhook
// signature format spec.md §4.3 mandates verbatim.
func HMACSignHex(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HMACEqual compares a computed and presented hex signature in
// constant time.
func HMACEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// PepperedHash computes a SHA-256 HMAC of value keyed by pepper. Used
// for enrollment keys and MFA recovery codes (spec.md §6): a single
// compromised row never discloses the plaintext, and rotating the
// pepper invalidates every prior hash at once.
func PepperedHash(pepper, value string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// PepperedHashEqual compares a stored peppered hash against a
// freshly-computed one in constant time.
func PepperedHashEqual(pepper, value, stored string) bool {
	return HMACEqual(PepperedHash(pepper, value), stored)
}

// RandomToken returns a URL-safe random token of the given byte length,
// used for session refresh tokens, API keys and enrollment keys.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SHA256Hex returns the hex-encoded SHA-256 digest of s, used to store
// only a hash of bearer tokens and API keys (never the plaintext).
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
