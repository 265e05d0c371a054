// Package password implements the PBKDF2-HMAC-SHA256 credential hash used by
// the Planora account store, including parsing of the self-describing
// pbkdf2_sha256$iterations$salt$digest format and the legacy-plaintext
// compatibility fallback.
package password
