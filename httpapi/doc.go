// Package httpapi adapts the authentication engine to the browser-facing
// HTTP surface: the form login endpoint with its 303 redirect flow, the
// passkey ceremony endpoints, and logout.
//
// # Architecture boundaries
//
// Handlers translate HTTP artifacts (form fields, cookies, JSON bodies) into
// engine calls and engine errors into status codes. Every security decision
// lives in the engine.
//
// # What this package must NOT do
//
//   - Inspect passwords, hashes or ceremony artifacts beyond decoding them.
//   - Bypass the engine's error mapping with endpoint-specific side channels.
package httpapi
