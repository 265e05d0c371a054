package authcore

import (
	"context"
	"strings"
	"time"

	"github.com/planora/authcore/internal/rate"
	"github.com/planora/authcore/password"
	"github.com/planora/authcore/sensitive"
	"github.com/planora/authcore/session"
	"github.com/planora/authcore/token"
)

// Engine defines a public type used by authcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	secrets      *SecretMaterial
	users        UserProvider
	passwordHash *password.Hasher
	codec        *sensitive.Codec
	sessions     *session.CookieCodec
	tokens       *token.Manager
	rateLimiter  *rate.Limiter
	totp         *totpManager
	audit        *auditDispatcher
	metrics      *Metrics
	now          func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Login runs one credential login attempt through the full gate sequence:
// rate limit, credential verification, and for roles that require a second
// factor either TOTP verification or handoff to the passkey ceremony.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	clientKey := req.ClientKey

	// A blocked client is answered before any credential work; the blocked
	// attempt itself is not recorded.
	if e.rateLimiter.IsBlocked(ctx, clientKey) {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", clientKey, ErrLoginRateLimited, nil)
		return nil, ErrLoginRateLimited
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, e.failLogin(ctx, clientKey, "", ErrInvalidCredentials)
	}

	user, err := e.findUser(ctx, username)
	if err != nil {
		if err == ErrStoreUnavailable {
			return nil, err
		}
		// Unknown user and wrong password are indistinguishable to the caller.
		return nil, e.failLogin(ctx, clientKey, "", ErrInvalidCredentials)
	}

	if !e.passwordHash.Verify(req.Password, user.PasswordHash) {
		return nil, e.failLogin(ctx, clientKey, user.UserID, ErrInvalidCredentials)
	}

	role := strings.ToLower(strings.TrimSpace(user.Role))
	if !e.roleRequiresMFA(role) {
		return e.grantLogin(ctx, user, role, clientKey)
	}

	if code := strings.TrimSpace(req.TOTPCode); code != "" {
		secret, err := e.totpSecretFor(user, role)
		if err != nil {
			e.emitAudit(ctx, auditEventTOTPFailure, false, user.UserID, user.TenantID, clientKey, err, nil)
			return nil, err
		}
		if !e.totp.VerifyCode(secret, code, e.now()) {
			e.metricInc(MetricTOTPFailure)
			return nil, e.failLogin(ctx, clientKey, user.UserID, ErrTOTPInvalid)
		}
		e.metricInc(MetricTOTPSuccess)
		e.emitAudit(ctx, auditEventTOTPSuccess, true, user.UserID, user.TenantID, clientKey, nil, nil)
		return e.grantLogin(ctx, user, role, clientKey)
	}

	if user.HasPasskey() {
		gate, err := e.tokens.Mint(token.ActionMFAGate, user.UserID, "", "", "", e.config.MFA.GateTTL)
		if err != nil {
			return nil, err
		}
		e.metricInc(MetricSecondFactorRequired)
		e.emitAudit(ctx, auditEventSecondFactorRequired, true, user.UserID, user.TenantID, clientKey, nil, nil)
		return &LoginResult{MFARequired: true, GateToken: gate}, nil
	}

	e.metricInc(MetricSecondFactorUnavailable)
	e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, user.TenantID, clientKey, ErrSecondFactorUnavailable, nil)
	return nil, ErrSecondFactorUnavailable
}

// VerifySession validates a session cookie value and returns its payload.
//
// VerifySession may return an error when input validation, dependency calls, or security checks fail.
// VerifySession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifySession(tokenValue string) (*session.Payload, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	payload, err := e.sessions.Read(tokenValue)
	if err != nil {
		e.metricInc(MetricSessionRejected)
		return nil, ErrSessionInvalid
	}
	return payload, nil
}

// Logout records the logout in audit and metrics. Sessions are stateless, so
// there is nothing to revoke server-side; the caller deletes the cookies.
func (e *Engine) Logout(ctx context.Context, username string) {
	if e == nil {
		return
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", "", "", nil, func() map[string]string {
		if username == "" {
			return nil
		}
		return map[string]string{"username": username}
	})
}

// SecurityReport returns the effective security posture for operator
// inspection.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	return SecurityReport{
		PasswordIterations:     e.config.Password.Iterations,
		LegacyPasswordsAllowed: e.config.Password.AllowLegacyPlaintext,
		RateLimitWindowSeconds: int(e.config.RateLimit.Window / time.Second),
		RateLimitMaxAttempts:   e.config.RateLimit.MaxAttempts,
		TOTPPeriodSeconds:      e.config.TOTP.Period,
		TOTPSkewSteps:          e.config.TOTP.Skew,
		MFARequiredRoles:       append([]string(nil), e.config.MFA.RequiredRoles...),
		PasskeyRPID:            e.config.Passkey.RPID,
	}
}

func (e *Engine) roleRequiresMFA(role string) bool {
	for _, required := range e.config.MFA.RequiredRoles {
		if strings.EqualFold(required, role) {
			return true
		}
	}
	return false
}

// totpSecretFor selects the verification secret: the per-user secret when
// enrolled, else the legacy shared secret for the one role allowed to use it.
func (e *Engine) totpSecretFor(user *UserRecord, role string) (string, error) {
	if user.TOTPEnabled && user.TOTPSecret != "" {
		return e.codec.Decrypt(user.TOTPSecret), nil
	}
	if role == strings.ToLower(e.config.TOTP.SharedSecretRole) && e.config.TOTP.SharedSecret != "" {
		return e.config.TOTP.SharedSecret, nil
	}
	return "", ErrTOTPNotConfigured
}

// findUser resolves a login identifier to a user record via the keyed lookup
// hash, with the normalized plaintext as the provider's legacy fallback.
func (e *Engine) findUser(ctx context.Context, username string) (*UserRecord, error) {
	lookupHash := e.codec.LookupHash(username)
	normalized := sensitive.Normalize(username)

	user, err := e.users.FindByLogin(ctx, lookupHash, normalized)
	if err != nil {
		if err == ErrUserNotFound {
			return nil, ErrUserNotFound
		}
		return nil, ErrStoreUnavailable
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (e *Engine) failLogin(ctx context.Context, clientKey, userID string, cause error) error {
	e.rateLimiter.RecordFailure(ctx, clientKey)
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", clientKey, cause, nil)
	return cause
}

func (e *Engine) grantLogin(ctx context.Context, user *UserRecord, role, clientKey string) (*LoginResult, error) {
	e.rateLimiter.Clear(ctx, clientKey)
	return e.issueSession(ctx, user, role, clientKey)
}

func (e *Engine) issueSession(ctx context.Context, user *UserRecord, role, clientKey string) (*LoginResult, error) {
	displayName := e.codec.Decrypt(user.Username)
	if displayName == "" {
		displayName = user.UserID
	}

	tokenValue, err := e.sessions.Build(displayName, role, user.TenantID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionIssued)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, user.TenantID, clientKey, nil, nil)

	return &LoginResult{
		SessionToken: tokenValue,
		Username:     displayName,
		Role:         role,
		TenantID:     session.NormalizeTenant(user.TenantID),
	}, nil
}
