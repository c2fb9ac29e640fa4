package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arkivault/authcore/password"
	"github.com/arkivault/authcore/secretbox"
	"github.com/arkivault/authcore/token"
)

// Builder assembles an Engine. Construction is allocation-only; no I/O
// happens before Build, and Build itself only touches the CPU (key
// validation plus one dummy password hash).
type Builder struct {
	config      Config
	directory   UserDirectory
	familyStore token.FamilyStore
	redisClient redis.UniversalClient
	auditSink   AuditSink
	logger      *zap.Logger

	built bool
}

// New starts a builder with default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithDirectory binds the user lookup contract. Required.
func (b *Builder) WithDirectory(directory UserDirectory) *Builder {
	b.directory = directory
	return b
}

// WithFamilyStore binds an explicit refresh-family store. Takes precedence
// over WithRedis.
func (b *Builder) WithFamilyStore(store token.FamilyStore) *Builder {
	b.familyStore = store
	return b
}

// WithRedis derives a Redis-backed family store from the client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redisClient = client
	return b
}

// WithAuditSink binds the audit destination. Defaults to NoOpSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger binds the structured logger used for swallowed best-effort
// failures, like a seed re-encryption that could not be persisted.
// Defaults to zap.NewNop.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates configuration and wires the engine. A Builder is
// single-use.
func (b *Builder) Build() (*Engine, error) {
	if b == nil {
		return nil, ErrEngineNotReady
	}
	if b.built {
		return nil, errors.New("authcore: builder already used")
	}
	if b.directory == nil {
		return nil, errors.New("authcore: user directory is required")
	}

	cfg := b.config
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	keyring, err := secretbox.NewKeyring(cfg.Secrets.CurrentKeyVersion, cfg.Secrets.Keys)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	store := b.familyStore
	if store == nil {
		if b.redisClient == nil {
			return nil, errors.New("authcore: a family store or redis client is required")
		}
		store = token.NewRedisFamilyStore(b.redisClient, cfg.Token.RedisPrefix)
	}

	issuer, err := token.New(token.Config{
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Leeway:        cfg.Token.Leeway,
		SigningMethod: cfg.Token.SigningMethod,
		PrivateKey:    cfg.Token.PrivateKey,
		PublicKey:     cfg.Token.PublicKey,
	}, store)
	if err != nil {
		return nil, err
	}

	// Hashed once here so the unknown-identifier path can verify against
	// it and cost the same as a real lookup. The password behind it is
	// random and discarded; nothing can ever match.
	dummyHash, err := hasher.Hash("authcore-dummy-credential-equalizer")
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config:    cfg,
		directory: b.directory,
		keyring:   keyring,
		hasher:    hasher,
		issuer:    issuer,
		metrics:   newMetrics(),
		logger:    logger,
		dummyHash: dummyHash,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
	}

	b.built = true
	return engine, nil
}
