// Package session implements the self-contained signed session cookie.
// Sessions are never stored server-side: a cookie is valid exactly when its
// HMAC verifies over the canonical payload encoding.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

// DefaultTenant is assigned when the tenant identifier normalizes to empty.
const DefaultTenant = "default"

// ErrInvalidToken covers every decode failure: bad shape, bad signature,
// bad payload. Callers treat it uniformly as "unauthenticated".
var ErrInvalidToken = errors.New("invalid session token")

// Payload is the decoded content of a session cookie.
type Payload struct {
	Username string
	Role     string
	TenantID string
}

type wirePayload struct {
	U string `json:"u"`
	R string `json:"r"`
	T string `json:"t"`
}

// CookieCodec builds and reads signed session tokens of the form
// base64url(payload) + "." + hex(hmac-sha256(payload)).
//
// CookieCodec instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CookieCodec struct {
	key []byte
}

// NewCookieCodec returns a codec signing with the given key.
func NewCookieCodec(key []byte) (*CookieCodec, error) {
	if len(key) == 0 {
		return nil, errors.New("signing key is required")
	}
	return &CookieCodec{key: append([]byte(nil), key...)}, nil
}

// Build serializes {username, role, tenant} and signs the encoded payload.
// Role is lowercased and the tenant is normalized before encoding.
func (c *CookieCodec) Build(username, role, tenantID string) (string, error) {
	wire := wirePayload{
		U: strings.TrimSpace(username),
		R: strings.ToLower(strings.TrimSpace(role)),
		T: NormalizeTenant(tenantID),
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}

	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + c.sign(payload), nil
}

// Read validates and decodes a session token. Every malformed input — wrong
// separator count, signature mismatch, undecodable payload, missing username
// or role — collapses to [ErrInvalidToken]; Read never reports which check
// failed.
func (c *CookieCodec) Read(token string) (*Payload, error) {
	if token == "" || strings.Count(token, ".") != 1 {
		return nil, ErrInvalidToken
	}

	dot := strings.LastIndex(token, ".")
	payload, signature := token[:dot], token[dot+1:]

	if !hmac.Equal([]byte(signature), []byte(c.sign(payload))) {
		return nil, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var wire wirePayload
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, ErrInvalidToken
	}

	username := strings.TrimSpace(wire.U)
	role := strings.ToLower(strings.TrimSpace(wire.R))
	if username == "" || role == "" {
		return nil, ErrInvalidToken
	}

	return &Payload{
		Username: username,
		Role:     role,
		TenantID: NormalizeTenant(wire.T),
	}, nil
}

func (c *CookieCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.key)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// NormalizeTenant lowercases the tenant identifier, replaces characters
// outside [a-z0-9-] with "-", strips leading/trailing separators, and falls
// back to [DefaultTenant] when nothing remains.
func NormalizeTenant(tenantID string) string {
	lowered := strings.ToLower(strings.TrimSpace(tenantID))

	var b strings.Builder
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	normalized := strings.Trim(b.String(), "-")
	if normalized == "" {
		return DefaultTenant
	}
	return normalized
}
