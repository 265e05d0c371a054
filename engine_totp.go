package authcore

import (
	"context"
	"strings"

	"github.com/planora/authcore/password"
)

// ProvisionTOTP enrolls a per-user authenticator secret. The caller's
// password is re-verified first; the secret is stored encrypted and returned
// once, with the otpauth:// URI, for QR display.
//
// ProvisionTOTP may return an error when input validation, dependency calls, or security checks fail.
// ProvisionTOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ProvisionTOTP(ctx context.Context, username, pass string) (*TOTPProvision, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.verifyAccountPassword(ctx, username, pass)
	if err != nil {
		return nil, err
	}

	secret, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	stored, err := e.codec.Encrypt(secret)
	if err != nil {
		return nil, err
	}
	if err := e.users.EnableTOTP(ctx, user.UserID, stored); err != nil {
		return nil, ErrStoreUnavailable
	}

	account := e.codec.Decrypt(user.Username)
	if account == "" {
		account = user.UserID
	}

	e.emitAudit(ctx, auditEventTOTPEnabled, true, user.UserID, user.TenantID, "", nil, nil)

	return &TOTPProvision{
		SecretBase32: secret,
		URI:          e.totp.ProvisionURI(secret, account),
	}, nil
}

// DisableTOTP removes the per-user authenticator secret after re-verifying
// the caller's password. Roles under the shared-secret fallback revert to it.
//
// DisableTOTP may return an error when input validation, dependency calls, or security checks fail.
// DisableTOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DisableTOTP(ctx context.Context, username, pass string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	user, err := e.verifyAccountPassword(ctx, username, pass)
	if err != nil {
		return err
	}

	if err := e.users.DisableTOTP(ctx, user.UserID); err != nil {
		return ErrStoreUnavailable
	}

	e.emitAudit(ctx, auditEventTOTPDisabled, true, user.UserID, user.TenantID, "", nil, nil)
	return nil
}

// ChangePassword re-verifies the current password, checks the new one
// against the complexity policy and stores its pbkdf2 hash.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.verifyAccountPassword(ctx, username, currentPassword)
	if err != nil {
		return nil, err
	}

	policy := e.passwordPolicy()
	if violations := policy.Check(newPassword); len(violations) > 0 {
		return violations, ErrMalformedRequest
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	if err := e.users.UpdatePasswordHash(ctx, user.UserID, hash); err != nil {
		return nil, ErrStoreUnavailable
	}

	return nil, nil
}

func (e *Engine) passwordPolicy() password.Policy {
	return password.Policy{
		MinLength:        e.config.Password.MinLength,
		RequireUppercase: e.config.Password.RequireUppercase,
		RequireLowercase: e.config.Password.RequireLowercase,
		RequireNumber:    e.config.Password.RequireNumber,
		RequireSpecial:   e.config.Password.RequireSpecial,
	}
}

func (e *Engine) verifyAccountPassword(ctx context.Context, username, pass string) (*UserRecord, error) {
	if strings.TrimSpace(username) == "" || pass == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := e.findUser(ctx, username)
	if err != nil {
		if err == ErrStoreUnavailable {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}
	if !e.passwordHash.Verify(pass, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
