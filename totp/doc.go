// Package totp implements RFC 4226 HOTP and RFC 6238 TOTP code generation
// and verification at the algorithm level, plus recovery-code matching and
// generation for the MFA fallback path.
//
// Verification never distinguishes a malformed secret or token from a
// wrong code, and code comparison is constant-time.
package totp
