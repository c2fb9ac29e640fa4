package authcore

import (
	"errors"
	"time"

	"github.com/arkivault/authcore/password"
	"github.com/arkivault/authcore/secretbox"
	"github.com/arkivault/authcore/token"
	"github.com/arkivault/authcore/totp"
)

// Config is the immutable process-start configuration tree. Zero values
// are filled by defaults at Build; key material has no default and must be
// supplied.
type Config struct {
	Token    TokenConfig
	Password password.Params
	TOTP     totp.Params
	Secrets  SecretsConfig
	Audit    AuditConfig
}

// TokenConfig mirrors token.Config at the public surface.
type TokenConfig struct {
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
	SigningMethod token.SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	RedisPrefix   string
}

// SecretsConfig supplies the at-rest encryption keyring: 32-byte keys
// tagged with versions, and the version new blobs are sealed with. Blobs
// sealed under an older listed version decrypt fine and are re-encrypted
// opportunistically on the next successful MFA login.
type SecretsConfig struct {
	CurrentKeyVersion int
	Keys              map[int][]byte
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:        "arkivault",
			Audience:      "arkivault",
			AccessTTL:     10 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: token.MethodEd25519,
		},
		Password: password.DefaultParams(),
		TOTP: totp.Params{
			Issuer: "Arkivault",
			Digits: 6,
			Period: 30,
			Skew:   1,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
		},
	}
}

func (c *Config) applyDefaults() {
	def := defaultConfig()
	if c.Token.Issuer == "" {
		c.Token.Issuer = def.Token.Issuer
	}
	if c.Token.Audience == "" {
		c.Token.Audience = def.Token.Audience
	}
	if c.Token.AccessTTL == 0 {
		c.Token.AccessTTL = def.Token.AccessTTL
	}
	if c.Token.RefreshTTL == 0 {
		c.Token.RefreshTTL = def.Token.RefreshTTL
	}
	if c.Token.SigningMethod == "" {
		c.Token.SigningMethod = def.Token.SigningMethod
	}
	if c.Password == (password.Params{}) {
		c.Password = def.Password
	}
	if c.TOTP.Issuer == "" {
		c.TOTP.Issuer = def.TOTP.Issuer
	}
	c.TOTP = c.TOTP.WithDefaults()
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}
}

func (c *Config) validate() error {
	if len(c.Secrets.Keys) == 0 {
		return errors.New("authcore: secrets keyring is required")
	}
	for _, key := range c.Secrets.Keys {
		if len(key) != secretbox.KeySize {
			return errors.New("authcore: secret keys must be 32 bytes")
		}
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("authcore: access TTL must be shorter than refresh TTL")
	}
	return nil
}
