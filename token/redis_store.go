package token

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	swapStatusNotFound int64 = 0
	swapStatusRevoked  int64 = 1
	swapStatusMismatch int64 = 2
	swapStatusRotated  int64 = 3
)

// swapHashScript performs the per-family compare-and-swap. It runs
// atomically inside Redis, so two concurrent rotations of the same family
// serialize and exactly one observes the expected hash.
const swapHashScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "revoked") == "1" then
  return 1
end
if redis.call("HGET", KEYS[1], "hash") ~= ARGV[1] then
  return 2
end
redis.call("HSET", KEYS[1], "hash", ARGV[2], "exp", ARGV[3])
redis.call("PEXPIREAT", KEYS[1], ARGV[3])
return 3
`

// revokeFamilyScript flags a family revoked without resurrecting a key
// that has already expired (a bare HSET would recreate it TTL-less).
const revokeFamilyScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "revoked", "1")
return 1
`

// revokeUserScript marks every family in the user's index set revoked.
const revokeUserScript = `
local members = redis.call("SMEMBERS", KEYS[1])
for _, fid in ipairs(members) do
  local key = ARGV[1] .. fid
  if redis.call("EXISTS", key) == 1 then
    redis.call("HSET", key, "revoked", "1")
  end
end
return #members
`

var (
	swapHashLua     = redis.NewScript(swapHashScript)
	revokeFamilyLua = redis.NewScript(revokeFamilyScript)
	revokeUserLua   = redis.NewScript(revokeUserScript)
)

// RedisFamilyStore keeps refresh families in Redis hashes keyed by family
// ID, with a per-user index set for bulk revocation. Family keys carry the
// refresh expiry as their TTL, so expired families age out on their own.
type RedisFamilyStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisFamilyStore binds the store to a client. prefix namespaces all
// keys; it defaults to "arf" (arkivault refresh family).
func NewRedisFamilyStore(client redis.UniversalClient, prefix string) *RedisFamilyStore {
	if prefix == "" {
		prefix = "arf"
	}
	return &RedisFamilyStore{client: client, prefix: prefix}
}

func (s *RedisFamilyStore) familyKey(familyID string) string {
	return s.prefix + ":" + familyID
}

func (s *RedisFamilyStore) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Create implements FamilyStore.
func (s *RedisFamilyStore) Create(ctx context.Context, record FamilyRecord) error {
	key := s.familyKey(record.FamilyID)
	expMillis := record.ExpiresAt.UnixMilli()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"uid", record.UserID,
		"role", record.Role,
		"hash", hex.EncodeToString(record.RefreshHash[:]),
		"exp", strconv.FormatInt(expMillis, 10),
		"revoked", "0",
	)
	pipe.PExpireAt(ctx, key, record.ExpiresAt)
	pipe.SAdd(ctx, s.userKey(record.UserID), record.FamilyID)
	pipe.PExpire(ctx, s.userKey(record.UserID), time.Until(record.ExpiresAt)+time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get implements FamilyStore.
func (s *RedisFamilyStore) Get(ctx context.Context, familyID string) (FamilyRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.familyKey(familyID)).Result()
	if err != nil {
		return FamilyRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return FamilyRecord{}, ErrFamilyNotFound
	}

	record := FamilyRecord{
		FamilyID: familyID,
		UserID:   fields["uid"],
		Role:     fields["role"],
		Revoked:  fields["revoked"] == "1",
	}

	rawHash, err := hex.DecodeString(fields["hash"])
	if err != nil || len(rawHash) != len(record.RefreshHash) {
		return FamilyRecord{}, ErrFamilyNotFound
	}
	copy(record.RefreshHash[:], rawHash)

	expMillis, err := strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return FamilyRecord{}, ErrFamilyNotFound
	}
	record.ExpiresAt = time.UnixMilli(expMillis)

	return record, nil
}

// SwapHash implements FamilyStore via the Lua compare-and-swap.
func (s *RedisFamilyStore) SwapHash(ctx context.Context, familyID string, oldHash, newHash [32]byte, newExpiry time.Time) error {
	status, err := swapHashLua.Run(ctx, s.client,
		[]string{s.familyKey(familyID)},
		hex.EncodeToString(oldHash[:]),
		hex.EncodeToString(newHash[:]),
		newExpiry.UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch status {
	case swapStatusRotated:
		return nil
	case swapStatusRevoked:
		return ErrFamilyRevoked
	case swapStatusMismatch:
		return ErrHashMismatch
	default:
		return ErrFamilyNotFound
	}
}

// Revoke implements FamilyStore. The key keeps its TTL: a revoked family
// stays visible (and rejected) until it would have expired anyway.
func (s *RedisFamilyStore) Revoke(ctx context.Context, familyID string) error {
	existed, err := revokeFamilyLua.Run(ctx, s.client, []string{s.familyKey(familyID)}).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if existed == 0 {
		return ErrFamilyNotFound
	}
	return nil
}

// RevokeUser implements FamilyStore.
func (s *RedisFamilyStore) RevokeUser(ctx context.Context, userID string) error {
	err := revokeUserLua.Run(ctx, s.client,
		[]string{s.userKey(userID)},
		s.prefix+":",
	).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
