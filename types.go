package authcore

import "context"

// UserRecord is the credential view of a user account returned by
// [UserProvider]. Username and Email are stored encrypted by the owning
// store; the engine decrypts them only where a display value is needed.
type UserRecord struct {
	UserID       string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	TenantID     string

	CredentialID        []byte
	CredentialPublicKey []byte
	SignCounter         uint32

	TOTPSecret  string
	TOTPEnabled bool
}

// HasPasskey reports whether a WebAuthn credential is registered on the record.
func (u *UserRecord) HasPasskey() bool {
	return u != nil && len(u.CredentialID) > 0 && len(u.CredentialPublicKey) > 0
}

// UserProvider is the interface callers implement to integrate authcore with
// their user database. FindByLogin should try the keyed lookup hash first and
// fall back to a case-insensitive plaintext match for rows that predate
// encrypted identity fields; it returns [ErrUserNotFound] when no row matches.
// Any other error is treated as a transient store failure.
type UserProvider interface {
	FindByLogin(ctx context.Context, lookupHash, normalizedLogin string) (*UserRecord, error)
	FindByID(ctx context.Context, userID string) (*UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
	SavePasskeyCredential(ctx context.Context, userID string, credentialID, publicKey []byte) error
	UpdateSignCounter(ctx context.Context, userID string, counter uint32) error
	EnableTOTP(ctx context.Context, userID, secretBase32 string) error
	DisableTOTP(ctx context.Context, userID string) error
}

// LoginRequest carries one credential-login attempt. ClientKey is the derived
// client identity used for rate limiting (see rate.ClientKey); TOTPCode is
// optional and only consulted for roles that require a second factor.
type LoginRequest struct {
	Username  string
	Password  string
	TOTPCode  string
	ClientKey string
}

// LoginResult is returned by [Engine.Login] and [Engine.FinishPasskeyAssertion].
// When SessionToken is set the login is fully granted. When MFARequired is set
// the password was verified but a passkey assertion must follow, authorized by
// GateToken.
type LoginResult struct {
	SessionToken string
	Username     string
	Role         string
	TenantID     string

	MFARequired bool
	GateToken   string
}

// Granted reports whether the result carries a full session.
func (r *LoginResult) Granted() bool {
	return r != nil && r.SessionToken != ""
}

// TOTPProvision holds the base32 secret and otpauth:// URI returned by
// [Engine.ProvisionTOTP].
type TOTPProvision struct {
	SecretBase32 string
	URI          string
}

// SecurityReport is a read-only snapshot of the engine's security posture.
type SecurityReport struct {
	PasswordIterations     int
	LegacyPasswordsAllowed bool
	RateLimitWindowSeconds int
	RateLimitMaxAttempts   int
	TOTPPeriodSeconds      int
	TOTPSkewSteps          int
	MFARequiredRoles       []string
	PasskeyRPID            string
}
