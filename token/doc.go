// Package token issues the two credentials a successful login produces:
// short-lived signed access tokens (stateless JWTs) and opaque rotating
// refresh tokens organized into families.
//
// A family is one refresh lineage. Exactly one token hash is valid per
// family at any instant; rotation swaps the stored hash with a
// compare-and-swap, so presenting an already-rotated token (or losing a
// concurrent rotation race) revokes the whole family. Refresh tokens
// are never persisted in plaintext, only as SHA-256 hashes.
package token
