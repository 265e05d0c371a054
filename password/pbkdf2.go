package password

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	algorithmID   = "pbkdf2_sha256"
	minIterations = 100_000
	saltBytes     = 16
	keyBytes      = 32
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Iterations int

	// AllowLegacyPlaintext falls back to a constant-time direct comparison
	// when the stored value does not parse as a pbkdf2 hash. Off by default.
	AllowLegacyPlaintext bool
}

// Hasher defines a public type used by authcore APIs.
//
// Hasher instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Hasher struct {
	config Config
}

// New validates the configuration and returns a ready Hasher.
func New(cfg Config) (*Hasher, error) {
	if cfg.Iterations < minIterations {
		return nil, errors.New("password iterations must be >= 100000")
	}
	return &Hasher{config: cfg}, nil
}

// Hash derives a salted digest of password and returns the self-describing
// pbkdf2_sha256$iterations$salthex$digesthex encoding. The salt input to the
// KDF is the UTF-8 bytes of the hex string, matching every hash already in
// the account store.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	saltHex := hex.EncodeToString(salt)

	digest := pbkdf2.Key([]byte(password), []byte(saltHex), h.config.Iterations, keyBytes, sha256.New)

	return fmt.Sprintf("%s$%d$%s$%s", algorithmID, h.config.Iterations, saltHex, hex.EncodeToString(digest)), nil
}

// Verify reports whether password matches the stored encoding. Parse failures
// and unrecognized algorithm tags never surface as errors: they verify as
// false, or fall through to the legacy plaintext comparison when that is
// enabled. The digest comparison is constant time.
func (h *Hasher) Verify(password, stored string) bool {
	parts := strings.SplitN(stored, "$", 4)
	if len(parts) != 4 || parts[0] != algorithmID {
		return h.legacyCompare(password, stored)
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return h.legacyCompare(password, stored)
	}
	saltHex := parts[2]
	wantHex := parts[3]
	if saltHex == "" || wantHex == "" {
		return h.legacyCompare(password, stored)
	}

	digest := pbkdf2.Key([]byte(password), []byte(saltHex), iterations, len(wantHex)/2, sha256.New)

	return hmac.Equal([]byte(hex.EncodeToString(digest)), []byte(wantHex))
}

func (h *Hasher) legacyCompare(password, stored string) bool {
	if !h.config.AllowLegacyPlaintext {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1
}

// Policy holds the password-complexity rules enforced on credential changes.
type Policy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// Check returns the list of policy violations for password, empty when the
// password is acceptable.
func (p Policy) Check(password string) []string {
	var violations []string

	if p.MinLength > 0 && len(password) < p.MinLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters", p.MinLength))
	}

	var upper, lower, number, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			number = true
		default:
			special = true
		}
	}

	if p.RequireUppercase && !upper {
		violations = append(violations, "password must contain an uppercase letter")
	}
	if p.RequireLowercase && !lower {
		violations = append(violations, "password must contain a lowercase letter")
	}
	if p.RequireNumber && !number {
		violations = append(violations, "password must contain a number")
	}
	if p.RequireSpecial && !special {
		violations = append(violations, "password must contain a special character")
	}

	return violations
}
