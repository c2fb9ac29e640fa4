// Package authcore is the authentication and session-security core of the
// Arkivault ROM library: credential verification, TOTP and recovery-code
// multi-factor authentication, refresh-token rotation with reuse
// detection, and at-rest encryption of MFA seeds.
//
// The package is the public surface. It exposes [Engine], [Builder],
// [Config], and value types; the cryptographic building blocks live in the
// secretbox, totp, password, and token sub-packages. Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore never owns transport or persistence. User rows arrive through
// the [UserDirectory] contract, refresh families live behind
// [token.FamilyStore], and audit events leave through [AuditSink]. HTTP
// framing, cookies, rate limiting, and the user database are the embedding
// application's concern.
//
// # Security posture
//
// Every rejected login is indistinguishable to the caller (same error,
// same message, same timing class) except for the single MFARequired
// branch, which the login UI already implies. Lookups for unknown
// identifiers still burn a full password verification against a dummy
// hash. Refresh-token replay revokes the whole family, not just the
// presented token.
package authcore
