package authcore

import (
	"context"
	"errors"
	"time"
)

// Role is the closed set of roles this core understands. It is owned here,
// not re-derived from a schema artifact at call time.
type Role string

const (
	// RoleAdmin marks library administrators.
	RoleAdmin Role = "admin"
	// RoleUser marks regular members.
	RoleUser Role = "user"
)

// Valid reports membership in the closed set.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// ErrUserNotFound is returned by UserDirectory implementations for unknown
// identifiers. It never escapes the engine: callers of Login only ever see
// ErrInvalidCredentials.
var ErrUserNotFound = errors.New("user not found")

// MFASecretRecord is the stored form of a user's TOTP enrollment. The seed
// exists only as a secretbox blob; recovery codes only as memory-hard
// hashes.
type MFASecretRecord struct {
	ID                 string
	SeedCiphertext     string
	RecoveryCodeHashes []string
	ConfirmedAt        *time.Time
	DisabledAt         *time.Time
	RotatedAt          *time.Time
}

// Active reports whether this secret participates in login: confirmed by
// the user and not since disabled. The directory guarantees at most one
// active secret per user.
func (m *MFASecretRecord) Active() bool {
	return m != nil && m.ConfirmedAt != nil && m.DisabledAt == nil
}

// UserRecord is the read-only user row the directory returns. The password
// hash is algorithm-tagged PHC text; the plaintext never exists here.
type UserRecord struct {
	ID           string
	Identifier   string
	PasswordHash string
	Role         Role
	MFA          *MFASecretRecord
}

// UserDirectory is the lookup contract to the embedding application's user
// database. FindByIdentifier must return ErrUserNotFound (not nil, nil)
// for unknown identifiers so the engine can take its constant-effort path.
// UpdateMFASecret persists an opportunistically re-encrypted seed.
type UserDirectory interface {
	FindByIdentifier(ctx context.Context, identifier string) (*UserRecord, error)
	UpdateMFASecret(ctx context.Context, secretID, ciphertext string, rotatedAt time.Time) error
}

// PublicUser is the caller-visible slice of a user record: no hashes, no
// MFA material.
type PublicUser struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Role       Role   `json:"role"`
}

// LoginRequest carries one authentication attempt. MFACode and
// RecoveryCode are alternatives; when both are set the TOTP code wins.
type LoginRequest struct {
	Identifier   string
	Password     string
	MFACode      string
	RecoveryCode string
}

// LoginResult is the outcome of a login or refresh. When MFARequired is
// set only Message is meaningful; the caller should answer 401 with the
// flag and re-attempt with a code. RecoveryCodeUsed is the index of the
// consumed recovery code (-1 otherwise) so the embedding application can
// mark it spent; this core never deletes codes itself.
type LoginResult struct {
	User             PublicUser `json:"user"`
	AccessToken      string     `json:"accessToken,omitempty"`
	RefreshToken     string     `json:"refreshToken,omitempty"`
	RefreshExpiresAt time.Time  `json:"refreshExpiresAt,omitempty"`
	FamilyID         string     `json:"familyId,omitempty"`
	MFARequired      bool       `json:"mfaRequired,omitempty"`
	Message          string     `json:"message"`
	RecoveryCodeUsed int        `json:"-"`
}

// MFAEnrollment is the material a new TOTP enrollment produces. The
// engine only mints it; persisting the record (and showing the user the
// plaintext codes exactly once) is the enrollment collaborator's job.
type MFAEnrollment struct {
	SecretBase32       string
	ProvisionURI       string
	SeedCiphertext     string
	RecoveryCodes      []string
	RecoveryCodeHashes []string
}
