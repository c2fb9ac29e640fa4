package token

import (
	"context"
	"errors"
	"time"
)

// Store sentinels. Implementations must return these exact errors (possibly
// wrapped) so the issuer can tell replay from infrastructure failure.
var (
	// ErrFamilyNotFound is returned when the family does not exist or has
	// expired out of the store.
	ErrFamilyNotFound = errors.New("token: refresh family not found")
	// ErrFamilyRevoked is returned when the family has been permanently
	// invalidated.
	ErrFamilyRevoked = errors.New("token: refresh family revoked")
	// ErrHashMismatch is returned by SwapHash when the stored hash is no
	// longer the expected one; the caller lost a rotation race.
	ErrHashMismatch = errors.New("token: refresh hash mismatch")
	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached. It is the only store error that is not an authentication
	// verdict.
	ErrStoreUnavailable = errors.New("token: family store unavailable")
)

// FamilyRecord is the persisted state of one refresh lineage. The refresh
// secret itself never appears here, only its SHA-256 hash.
type FamilyRecord struct {
	FamilyID    string
	UserID      string
	Role        string
	RefreshHash [32]byte
	ExpiresAt   time.Time
	Revoked     bool
}

// FamilyStore persists refresh-token families. SwapHash must be atomic per
// family (compare-and-swap or a transaction): the reuse-detection guarantee
// rests on at most one concurrent rotation winning.
type FamilyStore interface {
	Create(ctx context.Context, record FamilyRecord) error
	Get(ctx context.Context, familyID string) (FamilyRecord, error)
	SwapHash(ctx context.Context, familyID string, oldHash, newHash [32]byte, newExpiry time.Time) error
	Revoke(ctx context.Context, familyID string) error
	RevokeUser(ctx context.Context, userID string) error
}
