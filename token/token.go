// Package token mints and validates the short-lived signed tokens that bridge
// ceremony steps: passkey registration/authentication challenges and the MFA
// gate issued between password success and the passkey assertion.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Action identifies what a token was minted for. A token is only valid for
// the action it carries.
type Action string

const (
	// ActionPasskeyRegister is an exported constant or variable used by the authentication engine.
	ActionPasskeyRegister Action = "passkey_register"
	// ActionPasskeyAuth is an exported constant or variable used by the authentication engine.
	ActionPasskeyAuth Action = "passkey_auth"
	// ActionMFAGate is an exported constant or variable used by the authentication engine.
	ActionMFAGate Action = "mfa_gate"
)

var (
	// ErrInvalid is an exported constant or variable used by the authentication engine.
	ErrInvalid = errors.New("challenge token invalid")
	// ErrExpired is an exported constant or variable used by the authentication engine.
	ErrExpired = errors.New("challenge token expired")
)

// Claims is the signed content of a challenge or gate token. Challenge, RPID
// and Origin are empty for MFA gate tokens.
type Claims struct {
	Action    string `json:"act"`
	UserID    string `json:"uid"`
	Challenge string `json:"chl,omitempty"`
	RPID      string `json:"rpid,omitempty"`
	Origin    string `json:"org,omitempty"`
	jwt.RegisteredClaims
}

// Manager defines a public type used by authcore APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	key []byte
	now func() time.Time
}

// NewManager returns a Manager signing HS256 tokens with key. The clock is
// injectable for tests; nil defaults to time.Now.
func NewManager(key []byte, now func() time.Time) (*Manager, error) {
	if len(key) == 0 {
		return nil, errors.New("signing key is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{key: append([]byte(nil), key...), now: now}, nil
}

// Mint issues a signed token for action expiring after ttl.
func (m *Manager) Mint(action Action, userID, challenge, rpID, origin string, ttl time.Duration) (string, error) {
	issued := m.now()
	claims := Claims{
		Action:    string(action),
		UserID:    userID,
		Challenge: challenge,
		RPID:      rpID,
		Origin:    origin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
}

// Parse validates raw and returns its claims. The signing algorithm is pinned
// to HS256, the expiry claim is mandatory, and the action must match; every
// failure is reported as [ErrInvalid] except a pure expiry, which is
// [ErrExpired].
func (m *Manager) Parse(raw string, action Action) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	if claims.Action != string(action) || claims.UserID == "" {
		return nil, ErrInvalid
	}

	return &claims, nil
}
