package webauthn

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

var (
	// ErrMalformedClientData is an exported constant or variable used by the authentication engine.
	ErrMalformedClientData = errors.New("malformed client data")
	// ErrCeremonyTypeMismatch is an exported constant or variable used by the authentication engine.
	ErrCeremonyTypeMismatch = errors.New("ceremony type mismatch")
	// ErrChallengeMismatch is an exported constant or variable used by the authentication engine.
	ErrChallengeMismatch = errors.New("challenge mismatch")
	// ErrOriginMismatch is an exported constant or variable used by the authentication engine.
	ErrOriginMismatch = errors.New("origin mismatch")
	// ErrRPIDMismatch is an exported constant or variable used by the authentication engine.
	ErrRPIDMismatch = errors.New("relying party id mismatch")
	// ErrUserPresenceRequired is an exported constant or variable used by the authentication engine.
	ErrUserPresenceRequired = errors.New("user presence flag not set")
	// ErrUnsupportedKey is an exported constant or variable used by the authentication engine.
	ErrUnsupportedKey = errors.New("unsupported credential key type")
	// ErrSignatureInvalid is an exported constant or variable used by the authentication engine.
	ErrSignatureInvalid = errors.New("assertion signature invalid")
	// ErrCounterReplayed is an exported constant or variable used by the authentication engine.
	ErrCounterReplayed = errors.New("sign counter replayed")
)

const (
	// CeremonyCreate is an exported constant or variable used by the authentication engine.
	CeremonyCreate = "webauthn.create"
	// CeremonyGet is an exported constant or variable used by the authentication engine.
	CeremonyGet = "webauthn.get"
)

const (
	challengeBytes = 32

	authDataMinLen  = 37
	flagUserPresent = 0x01
)

// ClientData is the subset of clientDataJSON the server validates.
type ClientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// NewChallenge returns a fresh random challenge, base64url-encoded without
// padding, matching the encoding browsers put into clientDataJSON.
func NewChallenge() (string, error) {
	raw := make([]byte, challengeBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// AssertionInput carries the raw artifacts of a passkey assertion.
type AssertionInput struct {
	ClientDataJSON    []byte
	AuthenticatorData []byte
	Signature         []byte
}

// AssertionParams are the server-side expectations an assertion must meet.
type AssertionParams struct {
	Challenge string
	Origin    string
	RPID      string
}

// VerifyRegistration validates the registration ceremony: clientDataJSON must
// carry the webauthn.create type, the expected challenge and origin, and the
// presented COSE key must be an ECDSA or RSA credential key.
func VerifyRegistration(clientDataJSON []byte, challenge, origin string, publicKeyCOSE []byte) error {
	if err := verifyClientData(clientDataJSON, CeremonyCreate, challenge, origin); err != nil {
		return err
	}
	_, err := parseCredentialKey(publicKeyCOSE)
	return err
}

// VerifyAssertion validates an authentication assertion end to end and
// returns the presented sign counter on success. The caller persists the new
// counter when it increased.
func VerifyAssertion(in AssertionInput, p AssertionParams, publicKeyCOSE []byte, storedCounter uint32) (uint32, error) {
	if err := verifyClientData(in.ClientDataJSON, CeremonyGet, p.Challenge, p.Origin); err != nil {
		return 0, err
	}

	if len(in.AuthenticatorData) < authDataMinLen {
		return 0, ErrMalformedClientData
	}

	rpIDHash := sha256.Sum256([]byte(p.RPID))
	if subtle.ConstantTimeCompare(in.AuthenticatorData[:32], rpIDHash[:]) != 1 {
		return 0, ErrRPIDMismatch
	}
	if in.AuthenticatorData[32]&flagUserPresent == 0 {
		return 0, ErrUserPresenceRequired
	}
	counter := binary.BigEndian.Uint32(in.AuthenticatorData[33:37])

	key, err := parseCredentialKey(publicKeyCOSE)
	if err != nil {
		return 0, err
	}

	clientDataHash := sha256.Sum256(in.ClientDataJSON)
	message := append(append([]byte(nil), in.AuthenticatorData...), clientDataHash[:]...)

	valid, err := webauthncose.VerifySignature(key, message, in.Signature)
	if err != nil || !valid {
		return 0, ErrSignatureInvalid
	}

	// A zero counter on either side means the authenticator does not
	// implement counters; replay detection only applies when both are live.
	if storedCounter > 0 && counter > 0 && counter <= storedCounter {
		return 0, ErrCounterReplayed
	}

	return counter, nil
}

func verifyClientData(clientDataJSON []byte, ceremony, challenge, origin string) error {
	var cd ClientData
	if err := json.Unmarshal(clientDataJSON, &cd); err != nil {
		return ErrMalformedClientData
	}
	if cd.Type != ceremony {
		return ErrCeremonyTypeMismatch
	}
	if challenge == "" || subtle.ConstantTimeCompare([]byte(cd.Challenge), []byte(challenge)) != 1 {
		return ErrChallengeMismatch
	}
	if !originEqual(cd.Origin, origin) {
		return ErrOriginMismatch
	}
	return nil
}

func parseCredentialKey(publicKeyCOSE []byte) (interface{}, error) {
	key, err := webauthncose.ParsePublicKey(publicKeyCOSE)
	if err != nil {
		return nil, ErrUnsupportedKey
	}
	switch key.(type) {
	case webauthncose.EC2PublicKeyData, webauthncose.RSAPublicKeyData:
		return key, nil
	default:
		return nil, ErrUnsupportedKey
	}
}

// originEqual compares origins ignoring a single trailing slash, which some
// clients include and some do not.
func originEqual(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}
