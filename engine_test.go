package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arkivault/authcore/password"
	"github.com/arkivault/authcore/token"
)

// fakeDirectory is an in-memory UserDirectory with failure injection.
type fakeDirectory struct {
	mu            sync.Mutex
	users         map[string]*UserRecord
	lookupErr     error
	updateErr     error
	secretUpdates []secretUpdate
}

type secretUpdate struct {
	secretID   string
	ciphertext string
	rotatedAt  time.Time
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[string]*UserRecord)}
}

func (d *fakeDirectory) FindByIdentifier(_ context.Context, identifier string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	user, ok := d.users[identifier]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (d *fakeDirectory) UpdateMFASecret(_ context.Context, secretID, ciphertext string, rotatedAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateErr != nil {
		return d.updateErr
	}
	d.secretUpdates = append(d.secretUpdates, secretUpdate{secretID, ciphertext, rotatedAt})
	return nil
}

func (d *fakeDirectory) updates() []secretUpdate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]secretUpdate(nil), d.secretUpdates...)
}

func fastPasswordParams() password.Params {
	return password.Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func testConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:        "arkivault-test",
			Audience:      "arkivault-test",
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    time.Hour,
			SigningMethod: token.MethodHS256,
			PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		},
		Password: fastPasswordParams(),
		Secrets: SecretsConfig{
			CurrentKeyVersion: 1,
			Keys: map[int][]byte{
				1: []byte("11111111111111111111111111111111"),
			},
		},
		Audit: AuditConfig{Enabled: true, BufferSize: 64},
	}
}

func newTestEngine(t *testing.T, cfg Config, dir *fakeDirectory) (*Engine, *ChannelSink) {
	t.Helper()

	sink := NewChannelSink(64)
	engine, err := New().
		WithConfig(cfg).
		WithDirectory(dir).
		WithFamilyStore(token.NewMemoryFamilyStore()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, sink
}

func seedUser(t *testing.T, dir *fakeDirectory, identifier, plaintext string, role Role) *UserRecord {
	t.Helper()

	hasher, err := password.NewHasher(fastPasswordParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	hash, err := hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	user := &UserRecord{
		ID:           "user-" + identifier,
		Identifier:   identifier,
		PasswordHash: hash,
		Role:         role,
	}
	dir.users[identifier] = user
	return user
}

// enrollMFA attaches an active MFA secret built through the engine's own
// enrollment helper and returns the base32 seed for code generation.
func enrollMFA(t *testing.T, engine *Engine, user *UserRecord) (*MFAEnrollment, *MFASecretRecord) {
	t.Helper()

	enrollment, err := engine.NewMFAEnrollment(user.Identifier)
	if err != nil {
		t.Fatalf("NewMFAEnrollment failed: %v", err)
	}

	now := time.Now()
	record := &MFASecretRecord{
		ID:                 "mfa-" + user.ID,
		SeedCiphertext:     enrollment.SeedCiphertext,
		RecoveryCodeHashes: enrollment.RecoveryCodeHashes,
		ConfirmedAt:        &now,
	}
	user.MFA = record
	return enrollment, record
}

func nextAudit(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case event := <-sink.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func expectNoAudit(t *testing.T, sink *ChannelSink) {
	t.Helper()
	select {
	case event := <-sink.Events():
		t.Fatalf("unexpected audit event: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}
