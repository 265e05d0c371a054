// Package middleware exposes HTTP middleware adapters for session
// enforcement and same-origin (CSRF) protection built on top of
// authcore.Engine validation.
//
// # Guards
//
//   - [RequireSession] — validates the session cookie and injects the
//     decoded payload into the request context.
//   - [SameOrigin] — rejects state-changing cross-origin requests.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — session decisions are delegated to
// Engine.VerifySession.
//
// # What this package must NOT do
//
//   - Decode or sign session cookies directly (delegates to Engine).
//   - Make authorization decisions beyond pass/reject.
package middleware
