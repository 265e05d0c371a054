package authcore

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrStoreUnavailable = errors.New("user store unavailable")
	// ErrMalformedRequest is an exported constant or variable used by the authentication engine.
	ErrMalformedRequest = errors.New("malformed request payload")
	// ErrTOTPInvalid is an exported constant or variable used by the authentication engine.
	ErrTOTPInvalid = errors.New("invalid totp code")
	// ErrTOTPNotConfigured is an exported constant or variable used by the authentication engine.
	ErrTOTPNotConfigured = errors.New("totp not configured")
	// ErrSecondFactorUnavailable is an exported constant or variable used by the authentication engine.
	ErrSecondFactorUnavailable = errors.New("second factor required but not available")
	// ErrGateRequired is an exported constant or variable used by the authentication engine.
	ErrGateRequired = errors.New("mfa gate token required")
	// ErrChallengeInvalid is an exported constant or variable used by the authentication engine.
	ErrChallengeInvalid = errors.New("ceremony challenge invalid")
	// ErrChallengeExpired is an exported constant or variable used by the authentication engine.
	ErrChallengeExpired = errors.New("ceremony challenge expired")
	// ErrCredentialUnknown is an exported constant or variable used by the authentication engine.
	ErrCredentialUnknown = errors.New("unknown credential")
	// ErrSignatureInvalid is an exported constant or variable used by the authentication engine.
	ErrSignatureInvalid = errors.New("invalid signature")
	// ErrCounterReplayed is an exported constant or variable used by the authentication engine.
	ErrCounterReplayed = errors.New("sign counter replayed")
	// ErrSessionInvalid is an exported constant or variable used by the authentication engine.
	ErrSessionInvalid = errors.New("invalid session")
)
