// Package signature verifies webhook request signatures for inlet.
//
// It is the single source of truth for webhook authentication behavior.
//
// Design goals:
// - HMAC-SHA256 over the exact raw request body, hex-encoded.
// - Constant-time comparison; a mismatch is a normal outcome, not an error.
// - A missing secret is a misconfiguration and is surfaced as ErrSecretMissing,
//   never conflated with "signature invalid".
//
// The secret is injected at construction and immutable for the process lifetime.
package signature
