package httpapi

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/planora/authcore/webauthn"
)

type wireDevice struct {
	priv         *ecdsa.PrivateKey
	credentialID []byte
	coseKey      []byte
}

func newWireDevice(t *testing.T) *wireDevice {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	coseKey, err := cbor.Marshal(map[int64]interface{}{
		1:  2,
		3:  -7,
		-1: 1,
		-2: priv.PublicKey.X.FillBytes(make([]byte, 32)),
		-3: priv.PublicKey.Y.FillBytes(make([]byte, 32)),
	})
	if err != nil {
		t.Fatalf("cbor.Marshal: %v", err)
	}
	return &wireDevice{priv: priv, credentialID: []byte("wire-cred-1"), coseKey: coseKey}
}

func (s *testServer) postJSON(t *testing.T, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:50000"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func b64(raw []byte) string { return base64.RawURLEncoding.EncodeToString(raw) }

func TestPasskeyCeremonyOverHTTP(t *testing.T) {
	s := newTestServer(t)
	device := newWireDevice(t)

	// 1. Registration options: password re-verification plus challenge cookie.
	rec := s.postJSON(t, "/auth/passkey/register/options", map[string]string{
		"usuario": "root", "contrasena": "adm1n!pass",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register options: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	regChallengeCookie := cookieByName(rec, "passkey_register")
	if regChallengeCookie == nil || regChallengeCookie.Value == "" {
		t.Fatal("register challenge cookie not set")
	}

	var regOptions webauthn.RegistrationOptions
	if err := json.Unmarshal(rec.Body.Bytes(), &regOptions); err != nil {
		t.Fatalf("decode options: %v", err)
	}
	if regOptions.RP.ID != "planora.example" || regOptions.Challenge == "" {
		t.Fatalf("options = %+v", regOptions)
	}

	// 2. Registration verify.
	createCDJ, err := json.Marshal(webauthn.ClientData{
		Type:      webauthn.CeremonyCreate,
		Challenge: regOptions.Challenge,
		Origin:    "https://planora.example",
	})
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	rec = s.postJSON(t, "/auth/passkey/register/verify", map[string]string{
		"credentialId":   b64(device.credentialID),
		"clientDataJSON": b64(createCDJ),
		"publicKey":      b64(device.coseKey),
	}, []*http.Cookie{regChallengeCookie})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("register verify: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Stub provider discards the credential, so wire the record directly for
	// the assertion half.
	s.setCredential(t, "root", device.credentialID, device.coseKey)

	// 3. Password login yields the gate cookie.
	login := s.postForm("/auth/login", url.Values{
		"usuario": {"root"}, "contrasena": {"adm1n!pass"},
	}, nil)
	gate := cookieByName(login, "passkey_mfa_gate")
	if gate == nil {
		t.Fatal("gate cookie not set")
	}

	// 4. Assertion options under the gate.
	rec = s.postJSON(t, "/auth/passkey/auth/options", map[string]string{"usuario": "root"}, []*http.Cookie{gate})
	if rec.Code != http.StatusOK {
		t.Fatalf("auth options: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	authChallengeCookie := cookieByName(rec, "passkey_auth")
	if authChallengeCookie == nil {
		t.Fatal("auth challenge cookie not set")
	}

	var assertOptions webauthn.AssertionOptions
	if err := json.Unmarshal(rec.Body.Bytes(), &assertOptions); err != nil {
		t.Fatalf("decode options: %v", err)
	}
	if len(assertOptions.AllowCredentials) != 1 || assertOptions.AllowCredentials[0].ID != b64(device.credentialID) {
		t.Fatalf("allowCredentials = %+v", assertOptions.AllowCredentials)
	}

	// 5. Assertion verify issues the session.
	getCDJ, err := json.Marshal(webauthn.ClientData{
		Type:      webauthn.CeremonyGet,
		Challenge: assertOptions.Challenge,
		Origin:    "https://planora.example",
	})
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	rpIDHash := sha256.Sum256([]byte("planora.example"))
	authData := make([]byte, 37)
	copy(authData, rpIDHash[:])
	authData[32] = 0x01
	binary.BigEndian.PutUint32(authData[33:37], 1)

	cdh := sha256.Sum256(getCDJ)
	digest := sha256.Sum256(append(append([]byte(nil), authData...), cdh[:]...))
	sig, err := ecdsa.SignASN1(rand.Reader, device.priv, digest[:])
	if err != nil {
		t.Fatalf("SignASN1: %v", err)
	}

	rec = s.postJSON(t, "/auth/passkey/auth/verify", map[string]string{
		"credentialId":      b64(device.credentialID),
		"clientDataJSON":    b64(getCDJ),
		"authenticatorData": b64(authData),
		"signature":         b64(sig),
	}, []*http.Cookie{authChallengeCookie, gate})
	if rec.Code != http.StatusOK {
		t.Fatalf("auth verify: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	session := cookieByName(rec, "auth_session")
	if session == nil || session.Value == "" {
		t.Fatal("session cookie not set")
	}
	payload, err := s.engine.VerifySession(session.Value)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}
	if payload.Role != "superadmin" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestPasskeyAuthOptionsWithoutGateIs403(t *testing.T) {
	s := newTestServer(t)

	rec := s.postJSON(t, "/auth/passkey/auth/options", map[string]string{"usuario": "root"}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestPasskeyVerifyWithoutChallengeCookieIs400(t *testing.T) {
	s := newTestServer(t)

	rec := s.postJSON(t, "/auth/passkey/auth/verify", map[string]string{
		"credentialId":      b64([]byte("x")),
		"clientDataJSON":    b64([]byte("{}")),
		"authenticatorData": b64([]byte("y")),
		"signature":         b64([]byte("z")),
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func (s *testServer) setCredential(t *testing.T, login string, credentialID, publicKey []byte) {
	t.Helper()
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	u, ok := s.users.byLogin[login]
	if !ok {
		t.Fatalf("no user %q", login)
	}
	u.CredentialID = append([]byte(nil), credentialID...)
	u.CredentialPublicKey = append([]byte(nil), publicKey...)
	u.SignCounter = 0
}
