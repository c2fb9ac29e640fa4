package token

import (
	"context"
	"sync"
	"time"
)

// MemoryFamilyStore is a process-local FamilyStore for tests and single
// binary tooling. All operations take the store lock, which makes SwapHash
// trivially atomic.
type MemoryFamilyStore struct {
	mu       sync.Mutex
	families map[string]FamilyRecord
	byUser   map[string][]string
	now      func() time.Time
}

// NewMemoryFamilyStore returns an empty store.
func NewMemoryFamilyStore() *MemoryFamilyStore {
	return &MemoryFamilyStore{
		families: make(map[string]FamilyRecord),
		byUser:   make(map[string][]string),
		now:      time.Now,
	}
}

// Create implements FamilyStore.
func (s *MemoryFamilyStore) Create(_ context.Context, record FamilyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.families[record.FamilyID] = record
	s.byUser[record.UserID] = append(s.byUser[record.UserID], record.FamilyID)
	return nil
}

// Get implements FamilyStore. Expired families are reported as not found,
// matching the Redis implementation where the key has simply aged out.
func (s *MemoryFamilyStore) Get(_ context.Context, familyID string) (FamilyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.families[familyID]
	if !ok {
		return FamilyRecord{}, ErrFamilyNotFound
	}
	if !record.Revoked && !s.now().Before(record.ExpiresAt) {
		delete(s.families, familyID)
		return FamilyRecord{}, ErrFamilyNotFound
	}
	return record, nil
}

// SwapHash implements FamilyStore.
func (s *MemoryFamilyStore) SwapHash(_ context.Context, familyID string, oldHash, newHash [32]byte, newExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.families[familyID]
	if !ok {
		return ErrFamilyNotFound
	}
	if record.Revoked {
		return ErrFamilyRevoked
	}
	if record.RefreshHash != oldHash {
		return ErrHashMismatch
	}

	record.RefreshHash = newHash
	record.ExpiresAt = newExpiry
	s.families[familyID] = record
	return nil
}

// Revoke implements FamilyStore.
func (s *MemoryFamilyStore) Revoke(_ context.Context, familyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.families[familyID]
	if !ok {
		return ErrFamilyNotFound
	}
	record.Revoked = true
	s.families[familyID] = record
	return nil
}

// RevokeUser implements FamilyStore.
func (s *MemoryFamilyStore) RevokeUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, familyID := range s.byUser[userID] {
		if record, ok := s.families[familyID]; ok {
			record.Revoked = true
			s.families[familyID] = record
		}
	}
	return nil
}

// Len reports live (non-expired) family count, for tests.
func (s *MemoryFamilyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.families)
}
