// Package webauthn implements the passkey ceremony checks: client data
// validation, authenticator data parsing, assertion signature verification
// and sign-counter replay detection.
//
// # Design
//
// The package validates the raw ceremony artifacts the browser produces
// (clientDataJSON, authenticatorData, signature) against server-side
// expectations carried in a signed challenge token. COSE public key parsing
// and signature verification are delegated to
// github.com/go-webauthn/webauthn/protocol/webauthncose; only ECDSA and RSA
// credential keys are accepted.
//
// # What this package must NOT do
//
//   - Verify attestation statements. Registration trusts the authenticator
//     and stores the credential key as presented.
//   - Persist anything. Credential storage and counter updates belong to the
//     caller.
package webauthn
