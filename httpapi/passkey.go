package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	authcore "github.com/planora/authcore"
)

type registerOptionsRequest struct {
	Username string `json:"usuario"`
	Password string `json:"contrasena"`
}

type registerVerifyRequest struct {
	CredentialID   string `json:"credentialId"`
	ClientDataJSON string `json:"clientDataJSON"`
	PublicKey      string `json:"publicKey"`
}

type authOptionsRequest struct {
	Username string `json:"usuario"`
}

type authVerifyRequest struct {
	CredentialID      string `json:"credentialId"`
	ClientDataJSON    string `json:"clientDataJSON"`
	AuthenticatorData string `json:"authenticatorData"`
	Signature         string `json:"signature"`
}

// PasskeyRegisterOptions re-verifies the caller's password and returns the
// create ceremony options. The challenge token travels in an httponly cookie.
func (h *Handler) PasskeyRegisterOptions(w http.ResponseWriter, r *http.Request) {
	var req registerOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, authcore.ErrMalformedRequest)
		return
	}

	challenge, err := h.engine.BeginPasskeyRegistration(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setCookie(w, cookieRegisterChallenge, challenge.ChallengeToken, true, h.challengeTTL)
	writeJSON(w, http.StatusOK, challenge.RegistrationOptions)
}

// PasskeyRegisterVerify completes the create ceremony and stores the
// credential.
func (h *Handler) PasskeyRegisterVerify(w http.ResponseWriter, r *http.Request) {
	var req registerVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, authcore.ErrMalformedRequest)
		return
	}

	challengeToken, err := cookieValue(r, cookieRegisterChallenge)
	if err != nil {
		writeError(w, authcore.ErrChallengeInvalid)
		return
	}

	credentialID, err1 := decodeField(req.CredentialID)
	clientDataJSON, err2 := decodeField(req.ClientDataJSON)
	publicKey, err3 := decodeField(req.PublicKey)
	if err1 != nil || err2 != nil || err3 != nil {
		writeError(w, authcore.ErrMalformedRequest)
		return
	}

	err = h.engine.FinishPasskeyRegistration(r.Context(), authcore.RegistrationInput{
		ChallengeToken: challengeToken,
		ClientDataJSON: clientDataJSON,
		CredentialID:   credentialID,
		PublicKeyCOSE:  publicKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.clearCookie(w, cookieRegisterChallenge)
	w.WriteHeader(http.StatusNoContent)
}

// PasskeyAuthOptions starts the get ceremony. For roles under mandatory MFA
// the gate cookie minted at password login authorizes the attempt.
func (h *Handler) PasskeyAuthOptions(w http.ResponseWriter, r *http.Request) {
	var req authOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, authcore.ErrMalformedRequest)
		return
	}

	gateToken, _ := cookieValue(r, cookieMFAGate)

	challenge, err := h.engine.BeginPasskeyAssertion(r.Context(), req.Username, gateToken)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setCookie(w, cookieAuthChallenge, challenge.ChallengeToken, true, h.challengeTTL)
	writeJSON(w, http.StatusOK, challenge.AssertionOptions)
}

// PasskeyAuthVerify completes the assertion and, on success, issues the full
// session and clears the ceremony cookies.
func (h *Handler) PasskeyAuthVerify(w http.ResponseWriter, r *http.Request) {
	var req authVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, authcore.ErrMalformedRequest)
		return
	}

	challengeToken, err := cookieValue(r, cookieAuthChallenge)
	if err != nil {
		writeError(w, authcore.ErrChallengeInvalid)
		return
	}

	credentialID, err1 := decodeField(req.CredentialID)
	clientDataJSON, err2 := decodeField(req.ClientDataJSON)
	authenticatorData, err3 := decodeField(req.AuthenticatorData)
	signature, err4 := decodeField(req.Signature)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		writeError(w, authcore.ErrMalformedRequest)
		return
	}

	result, err := h.engine.FinishPasskeyAssertion(r.Context(), authcore.AssertionFinishInput{
		ChallengeToken:    challengeToken,
		CredentialID:      credentialID,
		ClientDataJSON:    clientDataJSON,
		AuthenticatorData: authenticatorData,
		Signature:         signature,
		ClientKey:         clientKey(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.clearCookie(w, cookieAuthChallenge)
	h.clearCookie(w, cookieMFAGate)
	h.setSessionCookies(w, result)

	writeJSON(w, http.StatusOK, map[string]string{"redirect": h.config.SuccessPath})
}

func cookieValue(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", http.ErrNoCookie
	}
	return cookie.Value, nil
}

// decodeField accepts base64url without padding (what browser-side JS
// produces from ArrayBuffers) and standard base64 as a fallback.
func decodeField(value string) ([]byte, error) {
	if raw, err := base64.RawURLEncoding.DecodeString(value); err == nil {
		return raw, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
