package authcore

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"strings"
)

// SecretMaterial holds the derived symmetric keys for every signing and
// encryption operation in the engine. It is constructed once at startup and
// injected into each component; the raw configured secret strings are hashed
// away in the constructor and never exposed.
//
// SecretMaterial instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecretMaterial struct {
	signingKey   [32]byte
	sensitiveKey [32]byte
	lookupKey    [32]byte
}

// NewSecretMaterial derives key material from the configured secrets. The
// primary signing secret is required; the sensitive-data secret defaults to
// the primary when blank. A missing primary secret is a fatal configuration
// error for the caller.
func NewSecretMaterial(signingSecret, sensitiveSecret string) (*SecretMaterial, error) {
	if strings.TrimSpace(signingSecret) == "" {
		return nil, errors.New("signing secret is required")
	}
	if strings.TrimSpace(sensitiveSecret) == "" {
		sensitiveSecret = signingSecret
	}

	s := &SecretMaterial{
		signingKey:   sha256.Sum256([]byte(signingSecret)),
		sensitiveKey: sha256.Sum256([]byte(sensitiveSecret)),
	}

	// The lookup key is separated from the encryption key so that equality
	// hashes and ciphertexts never share key material.
	mac := hmac.New(sha256.New, s.sensitiveKey[:])
	_, _ = mac.Write([]byte("lookup-hash"))
	copy(s.lookupKey[:], mac.Sum(nil))

	return s, nil
}

// SigningKey returns the 32-byte key used for session cookies and challenge
// tokens.
func (s *SecretMaterial) SigningKey() []byte {
	out := make([]byte, len(s.signingKey))
	copy(out, s.signingKey[:])
	return out
}

// SensitiveKey returns the 32-byte AES key used for reversible PII encryption.
func (s *SecretMaterial) SensitiveKey() []byte {
	out := make([]byte, len(s.sensitiveKey))
	copy(out, s.sensitiveKey[:])
	return out
}

// LookupKey returns the 32-byte key used for deterministic equality hashes.
func (s *SecretMaterial) LookupKey() []byte {
	out := make([]byte, len(s.lookupKey))
	copy(out, s.lookupKey[:])
	return out
}
