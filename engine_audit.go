package authcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventSecondFactorRequired  = "second_factor_required"
	auditEventTOTPSuccess           = "totp_success"
	auditEventTOTPFailure           = "totp_failure"
	auditEventTOTPEnabled           = "totp_enabled"
	auditEventTOTPDisabled          = "totp_disabled"
	auditEventPasskeyRegistered     = "passkey_registered"
	auditEventPasskeyAuthSuccess    = "passkey_auth_success"
	auditEventPasskeyAuthFailure    = "passkey_auth_failure"
	auditEventCounterReplayDetected = "counter_replay_detected"
	auditEventLegacyPasswordMode    = "legacy_password_mode_enabled"
	auditEventLogout                = "logout"
)

// AuditErrorCode defines a public type used by authcore APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrUserNotFound        AuditErrorCode = "user_not_found"
	auditErrTOTPInvalid         AuditErrorCode = "totp_invalid"
	auditErrSecondFactorMissing AuditErrorCode = "second_factor_unavailable"
	auditErrGateRequired        AuditErrorCode = "mfa_gate_required"
	auditErrChallengeInvalid    AuditErrorCode = "challenge_invalid"
	auditErrChallengeExpired    AuditErrorCode = "challenge_expired"
	auditErrCredentialUnknown   AuditErrorCode = "credential_unknown"
	auditErrSignatureInvalid    AuditErrorCode = "signature_invalid"
	auditErrCounterReplay       AuditErrorCode = "counter_replayed"
	auditErrSessionInvalid      AuditErrorCode = "session_invalid"
	auditErrMalformedRequest    AuditErrorCode = "malformed_request"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tenantID string,
	clientKey string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		TenantID:  tenantID,
		ClientKey: clientKey,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrTOTPInvalid),
		errors.Is(err, ErrTOTPNotConfigured):
		return auditErrTOTPInvalid
	case errors.Is(err, ErrSecondFactorUnavailable):
		return auditErrSecondFactorMissing
	case errors.Is(err, ErrGateRequired):
		return auditErrGateRequired
	case errors.Is(err, ErrChallengeInvalid):
		return auditErrChallengeInvalid
	case errors.Is(err, ErrChallengeExpired):
		return auditErrChallengeExpired
	case errors.Is(err, ErrCredentialUnknown):
		return auditErrCredentialUnknown
	case errors.Is(err, ErrSignatureInvalid):
		return auditErrSignatureInvalid
	case errors.Is(err, ErrCounterReplayed):
		return auditErrCounterReplay
	case errors.Is(err, ErrSessionInvalid):
		return auditErrSessionInvalid
	case errors.Is(err, ErrMalformedRequest):
		return auditErrMalformedRequest
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
