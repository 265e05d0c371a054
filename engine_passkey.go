package authcore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/planora/authcore/token"
	"github.com/planora/authcore/webauthn"
)

// PasskeyChallenge pairs browser-facing ceremony options with the signed
// challenge token the server expects back on the finish call.
type PasskeyChallenge struct {
	RegistrationOptions *webauthn.RegistrationOptions
	AssertionOptions    *webauthn.AssertionOptions
	ChallengeToken      string
}

// RegistrationInput carries the artifacts of a finished create ceremony.
type RegistrationInput struct {
	ChallengeToken string
	ClientDataJSON []byte
	CredentialID   []byte
	PublicKeyCOSE  []byte
}

// AssertionFinishInput carries the artifacts of a finished get ceremony.
type AssertionFinishInput struct {
	ChallengeToken    string
	CredentialID      []byte
	ClientDataJSON    []byte
	AuthenticatorData []byte
	Signature         []byte
	ClientKey         string
}

// BeginPasskeyRegistration re-verifies the caller's password and issues a
// create ceremony: browser options plus the signed challenge token binding
// challenge, relying party and origin.
//
// BeginPasskeyRegistration may return an error when input validation, dependency calls, or security checks fail.
// BeginPasskeyRegistration does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) BeginPasskeyRegistration(ctx context.Context, username, pass string) (*PasskeyChallenge, error) {
	if e == nil {
		return nil, ErrEngineNotReady
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

	challenge, err := webauthn.NewChallenge()
	if err != nil {
		return nil, err
	}
	challengeToken, err := e.tokens.Mint(
		token.ActionPasskeyRegister, user.UserID, challenge,
		e.config.Passkey.RPID, e.config.Passkey.Origin, e.config.Passkey.ChallengeTTL,
	)
	if err != nil {
		return nil, err
	}

	displayName := e.codec.Decrypt(user.Username)
	if displayName == "" {
		displayName = user.UserID
	}

	// An already-registered credential is excluded so the authenticator
	// refuses to mint a duplicate instead of silently replacing it.
	var exclude []webauthn.CredentialDescriptor
	if user.HasPasskey() {
		exclude = []webauthn.CredentialDescriptor{
			{Type: "public-key", ID: base64.RawURLEncoding.EncodeToString(user.CredentialID)},
		}
	}

	return &PasskeyChallenge{
		RegistrationOptions: &webauthn.RegistrationOptions{
			Challenge: challenge,
			RP: webauthn.RelyingParty{
				ID:   e.config.Passkey.RPID,
				Name: e.config.Passkey.RPName,
			},
			User: webauthn.UserEntity{
				ID:          base64.RawURLEncoding.EncodeToString([]byte(user.UserID)),
				Name:        displayName,
				DisplayName: displayName,
			},
			PubKeyCredParams:   webauthn.DefaultCredParams(),
			ExcludeCredentials: exclude,
			Attestation:        "none",
		},
		ChallengeToken: challengeToken,
	}, nil
}

// FinishPasskeyRegistration validates the create ceremony response against
// the challenge token and persists the credential with a zeroed sign counter.
//
// FinishPasskeyRegistration may return an error when input validation, dependency calls, or security checks fail.
// FinishPasskeyRegistration does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) FinishPasskeyRegistration(ctx context.Context, in RegistrationInput) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if len(in.CredentialID) == 0 || len(in.PublicKeyCOSE) == 0 {
		return ErrMalformedRequest
	}

	claims, err := e.parseChallenge(in.ChallengeToken, token.ActionPasskeyRegister)
	if err != nil {
		return err
	}

	if err := webauthn.VerifyRegistration(in.ClientDataJSON, claims.Challenge, claims.Origin, in.PublicKeyCOSE); err != nil {
		return mapCeremonyError(err)
	}

	if err := e.users.SavePasskeyCredential(ctx, claims.UserID, in.CredentialID, in.PublicKeyCOSE); err != nil {
		return ErrStoreUnavailable
	}

	e.metricInc(MetricPasskeyRegistered)
	e.emitAudit(ctx, auditEventPasskeyRegistered, true, claims.UserID, "", "", nil, nil)
	return nil
}

// BeginPasskeyAssertion starts a get ceremony for username. Roles subject to
// mandatory MFA must present a valid gate token minted by a fresh password
// login; the gate must belong to the same user.
//
// BeginPasskeyAssertion may return an error when input validation, dependency calls, or security checks fail.
// BeginPasskeyAssertion does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) BeginPasskeyAssertion(ctx context.Context, username, gateToken string) (*PasskeyChallenge, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.findUser(ctx, username)
	if err != nil {
		if err == ErrStoreUnavailable {
			return nil, err
		}
		return nil, ErrCredentialUnknown
	}

	role := strings.ToLower(strings.TrimSpace(user.Role))
	if e.roleRequiresMFA(role) {
		claims, err := e.tokens.Parse(gateToken, token.ActionMFAGate)
		if err != nil || claims.UserID != user.UserID {
			e.emitAudit(ctx, auditEventPasskeyAuthFailure, false, user.UserID, user.TenantID, "", ErrGateRequired, nil)
			return nil, ErrGateRequired
		}
	}

	if !user.HasPasskey() {
		return nil, ErrCredentialUnknown
	}

	challenge, err := webauthn.NewChallenge()
	if err != nil {
		return nil, err
	}
	challengeToken, err := e.tokens.Mint(
		token.ActionPasskeyAuth, user.UserID, challenge,
		e.config.Passkey.RPID, e.config.Passkey.Origin, e.config.Passkey.ChallengeTTL,
	)
	if err != nil {
		return nil, err
	}

	return &PasskeyChallenge{
		AssertionOptions: &webauthn.AssertionOptions{
			Challenge: challenge,
			RPID:      e.config.Passkey.RPID,
			AllowCredentials: []webauthn.CredentialDescriptor{
				{Type: "public-key", ID: base64.RawURLEncoding.EncodeToString(user.CredentialID)},
			},
			UserVerification: "preferred",
		},
		ChallengeToken: challengeToken,
	}, nil
}

// FinishPasskeyAssertion verifies the assertion, advances the stored sign
// counter when the authenticator's counter moved, clears the login rate
// limiter and issues a full session.
//
// FinishPasskeyAssertion may return an error when input validation, dependency calls, or security checks fail.
// FinishPasskeyAssertion does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) FinishPasskeyAssertion(ctx context.Context, in AssertionFinishInput) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.parseChallenge(in.ChallengeToken, token.ActionPasskeyAuth)
	if err != nil {
		return nil, err
	}

	user, err := e.users.FindByID(ctx, claims.UserID)
	if err != nil || user == nil {
		if err != nil && err != ErrUserNotFound {
			return nil, ErrStoreUnavailable
		}
		return nil, ErrCredentialUnknown
	}
	if !user.HasPasskey() || !bytes.Equal(in.CredentialID, user.CredentialID) {
		e.metricInc(MetricPasskeyAuthFailure)
		e.emitAudit(ctx, auditEventPasskeyAuthFailure, false, user.UserID, user.TenantID, in.ClientKey, ErrCredentialUnknown, nil)
		return nil, ErrCredentialUnknown
	}

	newCounter, err := webauthn.VerifyAssertion(
		webauthn.AssertionInput{
			ClientDataJSON:    in.ClientDataJSON,
			AuthenticatorData: in.AuthenticatorData,
			Signature:         in.Signature,
		},
		webauthn.AssertionParams{
			Challenge: claims.Challenge,
			Origin:    claims.Origin,
			RPID:      claims.RPID,
		},
		user.CredentialPublicKey,
		user.SignCounter,
	)
	if err != nil {
		mapped := mapCeremonyError(err)
		if mapped == ErrCounterReplayed {
			e.metricInc(MetricCounterReplayDetected)
			e.emitAudit(ctx, auditEventCounterReplayDetected, false, user.UserID, user.TenantID, in.ClientKey, mapped, nil)
		} else {
			e.metricInc(MetricPasskeyAuthFailure)
			e.emitAudit(ctx, auditEventPasskeyAuthFailure, false, user.UserID, user.TenantID, in.ClientKey, mapped, nil)
		}
		return nil, mapped
	}

	if newCounter > user.SignCounter {
		if err := e.users.UpdateSignCounter(ctx, user.UserID, newCounter); err != nil {
			return nil, ErrStoreUnavailable
		}
	}

	e.metricInc(MetricPasskeyAuthSuccess)
	e.emitAudit(ctx, auditEventPasskeyAuthSuccess, true, user.UserID, user.TenantID, in.ClientKey, nil, nil)

	role := strings.ToLower(strings.TrimSpace(user.Role))
	e.rateLimiter.Clear(ctx, in.ClientKey)
	return e.issueSession(ctx, user, role, in.ClientKey)
}

func (e *Engine) parseChallenge(raw string, action token.Action) (*token.Claims, error) {
	claims, err := e.tokens.Parse(raw, action)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrChallengeExpired
		}
		return nil, ErrChallengeInvalid
	}
	return claims, nil
}

func mapCeremonyError(err error) error {
	switch {
	case errors.Is(err, webauthn.ErrChallengeMismatch),
		errors.Is(err, webauthn.ErrCeremonyTypeMismatch),
		errors.Is(err, webauthn.ErrOriginMismatch):
		return ErrChallengeInvalid
	case errors.Is(err, webauthn.ErrMalformedClientData),
		errors.Is(err, webauthn.ErrUnsupportedKey):
		return ErrMalformedRequest
	case errors.Is(err, webauthn.ErrCounterReplayed):
		return ErrCounterReplayed
	case errors.Is(err, webauthn.ErrSignatureInvalid),
		errors.Is(err, webauthn.ErrRPIDMismatch),
		errors.Is(err, webauthn.ErrUserPresenceRequired):
		return ErrSignatureInvalid
	default:
		return ErrSignatureInvalid
	}
}
