package token

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the access-token signature scheme.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 private key (default).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
)

// ErrAccessTokenInvalid is returned by ParseAccess for any token that does
// not verify: bad signature, expired, wrong issuer or audience, or
// garbage input.
var ErrAccessTokenInvalid = errors.New("token: invalid access token")

// AccessClaims is the self-contained payload of an access token. FID ties
// the token back to the refresh family that minted it so audit trails stay
// continuous across rotations.
type AccessClaims struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
	FID  string `json:"fid"`
	jwt.RegisteredClaims
}

func (i *Issuer) signAccess(userID, role, familyID string, now time.Time) (string, error) {
	claims := AccessClaims{
		UID:  userID,
		Role: role,
		FID:  familyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTTL)),
		},
	}

	switch i.cfg.SigningMethod {
	case MethodHS256:
		t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		return t.SignedString(i.cfg.PrivateKey)
	case MethodEd25519:
		t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
		return t.SignedString(ed25519.PrivateKey(i.cfg.PrivateKey))
	default:
		return "", errors.New("token: unsupported signing method")
	}
}

// ParseAccess verifies an access token and returns its claims. Stateless:
// no store round-trip, which is why revocation rides on the short TTL.
func (i *Issuer) ParseAccess(raw string) (*AccessClaims, error) {
	if i == nil {
		return nil, ErrAccessTokenInvalid
	}

	keyFunc := func(t *jwt.Token) (any, error) {
		switch i.cfg.SigningMethod {
		case MethodHS256:
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrAccessTokenInvalid
			}
			return i.cfg.PrivateKey, nil
		case MethodEd25519:
			if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
				return nil, ErrAccessTokenInvalid
			}
			if len(i.cfg.PublicKey) > 0 {
				return ed25519.PublicKey(i.cfg.PublicKey), nil
			}
			return ed25519.PrivateKey(i.cfg.PrivateKey).Public(), nil
		default:
			return nil, ErrAccessTokenInvalid
		}
	}

	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(i.cfg.Leeway),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}
	if i.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(i.cfg.Audience))
	}

	parsed, err := jwt.ParseWithClaims(raw, &AccessClaims{}, keyFunc, opts...)
	if err != nil || !parsed.Valid {
		return nil, ErrAccessTokenInvalid
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || claims.UID == "" {
		return nil, ErrAccessTokenInvalid
	}
	return claims, nil
}
