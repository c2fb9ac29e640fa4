package token

import (
	"context"
	"crypto/ed25519"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrReuseDetected is returned by Rotate when a presented refresh token is
// structurally valid but is no longer the family's current token. By the
// time Rotate returns this error the entire family has been revoked; the
// holder of the legitimate token must re-authenticate from scratch.
var ErrReuseDetected = errors.New("token: refresh token reuse detected")

// ErrRefreshInvalid covers every other refresh rejection: unknown family,
// expired family, already-revoked family. Deliberately indistinct.
var ErrRefreshInvalid = errors.New("token: invalid refresh token")

// Config fixes the issuer's behavior at construction time.
type Config struct {
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
}

// Session is the result of an issue or rotate: the refresh token appears
// here in plaintext exactly once and is never recoverable afterwards.
type Session struct {
	AccessToken      string
	RefreshToken     string
	FamilyID         string
	UserID           string
	Role             string
	RefreshExpiresAt time.Time
}

// Issuer mints access/refresh pairs and drives refresh rotation against a
// FamilyStore. Immutable after New; safe for concurrent use.
type Issuer struct {
	cfg   Config
	store FamilyStore
	now   func() time.Time
}

// New validates the configuration and binds the issuer to its store.
func New(cfg Config, store FamilyStore) (*Issuer, error) {
	if store == nil {
		return nil, errors.New("token: nil family store")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("token: hs256 requires a key of at least 32 bytes")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) != ed25519.PrivateKeySize {
			return nil, errors.New("token: ed25519 requires a 64-byte private key")
		}
		if len(cfg.PublicKey) != 0 && len(cfg.PublicKey) != ed25519.PublicKeySize {
			return nil, errors.New("token: invalid ed25519 public key")
		}
	default:
		return nil, errors.New("token: unsupported signing method")
	}

	return &Issuer{cfg: cfg, store: store, now: time.Now}, nil
}

// Issue starts a new refresh family for a user and returns the initial
// access/refresh pair.
func (i *Issuer) Issue(ctx context.Context, userID, role string) (Session, error) {
	if i == nil {
		return Session{}, ErrRefreshInvalid
	}

	secret, err := newRefreshSecret()
	if err != nil {
		return Session{}, err
	}

	now := i.now()
	record := FamilyRecord{
		FamilyID:    uuid.NewString(),
		UserID:      userID,
		Role:        role,
		RefreshHash: hashRefreshSecret(secret),
		ExpiresAt:   now.Add(i.cfg.RefreshTTL),
	}
	if err := i.store.Create(ctx, record); err != nil {
		return Session{}, fmt.Errorf("create refresh family: %w", err)
	}

	return i.buildSession(record, secret, now)
}

// Rotate exchanges a presented refresh token for a fresh pair. The family
// ID is preserved across rotations. A stale presented token, or losing the
// compare-and-swap to a concurrent rotation, revokes the entire family and
// returns ErrReuseDetected.
func (i *Issuer) Rotate(ctx context.Context, presented string) (Session, error) {
	if i == nil {
		return Session{}, ErrRefreshInvalid
	}

	familyID, secret, err := decodeRefreshToken(presented)
	if err != nil {
		return Session{}, ErrRefreshInvalid
	}

	record, err := i.store.Get(ctx, familyID)
	switch {
	case errors.Is(err, ErrFamilyNotFound), errors.Is(err, ErrFamilyRevoked):
		return Session{}, ErrRefreshInvalid
	case err != nil:
		return Session{}, fmt.Errorf("load refresh family: %w", err)
	}

	now := i.now()
	if record.Revoked || !now.Before(record.ExpiresAt) {
		return Session{}, ErrRefreshInvalid
	}

	presentedHash := hashRefreshSecret(secret)
	if subtle.ConstantTimeCompare(presentedHash[:], record.RefreshHash[:]) != 1 {
		// The token parsed and named a live family, but it is not the
		// current token: someone is replaying a rotated-away credential.
		i.revokeQuietly(ctx, familyID)
		return Session{}, ErrReuseDetected
	}

	nextSecret, err := newRefreshSecret()
	if err != nil {
		return Session{}, err
	}
	nextHash := hashRefreshSecret(nextSecret)
	newExpiry := now.Add(i.cfg.RefreshTTL)

	err = i.store.SwapHash(ctx, familyID, presentedHash, nextHash, newExpiry)
	switch {
	case errors.Is(err, ErrHashMismatch):
		// Lost the CAS race. One of the two concurrent presenters holds a
		// stolen token; there is no way to tell which, so the family dies.
		i.revokeQuietly(ctx, familyID)
		return Session{}, ErrReuseDetected
	case errors.Is(err, ErrFamilyNotFound), errors.Is(err, ErrFamilyRevoked):
		return Session{}, ErrRefreshInvalid
	case err != nil:
		return Session{}, fmt.Errorf("rotate refresh family: %w", err)
	}

	record.RefreshHash = nextHash
	record.ExpiresAt = newExpiry
	return i.buildSession(record, nextSecret, now)
}

// Revoke permanently invalidates one family.
func (i *Issuer) Revoke(ctx context.Context, familyID string) error {
	if i == nil {
		return ErrRefreshInvalid
	}
	err := i.store.Revoke(ctx, familyID)
	if err != nil && !errors.Is(err, ErrFamilyNotFound) {
		return fmt.Errorf("revoke refresh family: %w", err)
	}
	return nil
}

// RevokeUser invalidates every family belonging to a user, for logout-all
// and password-change handling.
func (i *Issuer) RevokeUser(ctx context.Context, userID string) error {
	if i == nil {
		return ErrRefreshInvalid
	}
	if err := i.store.RevokeUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke user families: %w", err)
	}
	return nil
}

// FamilyID extracts the owning family from a refresh token without
// touching the store, for logout paths that only need the ID.
func (i *Issuer) FamilyID(presented string) (string, error) {
	familyID, _, err := decodeRefreshToken(presented)
	if err != nil {
		return "", ErrRefreshInvalid
	}
	return familyID, nil
}

func (i *Issuer) buildSession(record FamilyRecord, secret [refreshSecretSize]byte, now time.Time) (Session, error) {
	refresh, err := encodeRefreshToken(record.FamilyID, secret)
	if err != nil {
		return Session{}, err
	}
	access, err := i.signAccess(record.UserID, record.Role, record.FamilyID, now)
	if err != nil {
		return Session{}, err
	}

	return Session{
		AccessToken:      access,
		RefreshToken:     refresh,
		FamilyID:         record.FamilyID,
		UserID:           record.UserID,
		Role:             record.Role,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

// revokeQuietly is the reuse-response revocation. The revocation itself is
// best-effort: if the store write fails the caller still rejects the
// request, and the stale hash keeps failing future rotations anyway.
func (i *Issuer) revokeQuietly(ctx context.Context, familyID string) {
	_ = i.store.Revoke(ctx, familyID)
}
