// Package sensitive encrypts PII fields (username, email) for storage and
// derives the deterministic keyed lookup hash used for equality search
// without decrypting rows.
package sensitive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"
)

// marker prefixes every ciphertext so Encrypt stays idempotent and read
// paths can tell encrypted values from legacy plaintext rows.
const marker = "enc::"

const nonceBytes = 12

// Codec defines a public type used by authcore APIs.
//
// Codec instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Codec struct {
	aead      cipher.AEAD
	lookupKey []byte
}

// New builds a Codec from a 32-byte AES key and a lookup-hash key.
func New(encryptionKey, lookupKey []byte) (*Codec, error) {
	if len(encryptionKey) != 32 {
		return nil, errors.New("encryption key must be 32 bytes")
	}
	if len(lookupKey) == 0 {
		return nil, errors.New("lookup key is required")
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Codec{
		aead:      aead,
		lookupKey: append([]byte(nil), lookupKey...),
	}, nil
}

// Encrypt returns the marked AES-GCM ciphertext of plaintext. Empty input and
// already-encrypted input are returned unchanged.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	if strings.HasPrefix(plaintext, marker) {
		return plaintext, nil
	}

	nonce := make([]byte, nonceBytes)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return marker + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It never fails: corrupted or foreign-key
// ciphertext degrades to an empty string, and values without the marker are
// returned as-is (legacy plaintext rows). Read paths call this pervasively,
// so failures must not propagate.
func (c *Codec) Decrypt(value string) string {
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, marker) {
		return value
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, marker))
	if err != nil || len(raw) <= nonceBytes {
		return ""
	}

	plain, err := c.aead.Open(nil, raw[:nonceBytes], raw[nonceBytes:], nil)
	if err != nil {
		return ""
	}
	return string(plain)
}

// LookupHash returns the deterministic keyed hash of the normalized value.
// Equal inputs up to case and surrounding whitespace always hash identically,
// and the hash is stable across process restarts. Not reversible.
func (c *Codec) LookupHash(value string) string {
	normalized := Normalize(value)
	if normalized == "" {
		return ""
	}

	mac := hmac.New(sha256.New, c.lookupKey)
	_, _ = mac.Write([]byte(normalized))
	return hex.EncodeToString(mac.Sum(nil))
}

// Normalize is the canonical form used for lookup hashing: trimmed and
// lowercased.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
