// Package authcore is the authentication and session-security engine behind
// the Planora planning platform: credential verification, signed session
// cookies, login rate limiting, same-origin enforcement, TOTP second factor,
// and WebAuthn (passkey) registration/authentication ceremonies.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, MetricsSnapshot, etc.). Supporting codecs
// live in sub-packages (password, sensitive, session, token, webauthn); the
// rate limiter lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Own user records. Callers implement [UserProvider] against their own
//     store; the engine only reads credential fields and writes them back.
//   - Keep server-side session state. Sessions and ceremony challenges are
//     self-contained signed tokens carried by the client.
//   - Leak which sub-check failed on an authentication denial. All credential
//     failures collapse to the same sentinel errors.
package authcore
